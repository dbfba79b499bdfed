// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package analyzer

import (
	"math"
	"time"
)

// Snapshot returns a self-consistent copy of the analyzer's derived state.
// It is safe to call from any goroutine, including from the onLapComplete
// callback passed to New.
func (a *Analyzer) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	now := time.Now()
	rate := a.burnRatePerLap()

	var fuelLevel, fuelCapacity float32
	var onTrack bool
	var carCode uint32
	var speed, rpm float32
	var gearCurrent, gearSuggested uint8
	estimatedLaps := math.Inf(1)
	if a.last != nil {
		fuelLevel = a.last.FuelLevel
		fuelCapacity = a.last.FuelCapacity
		onTrack = a.last.OnTrack
		carCode = a.last.CarCode
		speed = a.last.SpeedKmh
		gearCurrent = a.last.GearCurrent
		gearSuggested = a.last.GearSuggested
		rpm = a.last.EngineRPM
		estimatedLaps = a.estimatedLapsRemaining(now, a.last, rate)
	}

	// Burn rate is only meaningful once the fuel-usage model has settled on
	// "on"; expose 0 while undetermined or off, regardless of what the
	// internal computation currently holds.
	if a.fuelUsage != FuelOn {
		rate = 0
	}

	var lapDelta int32
	if a.lastLapTimeMs > 0 && a.bestLapTimeMs > 0 {
		lapDelta = a.lastLapTimeMs - a.bestLapTimeMs
	}

	tyreTemps, tyreTrends := a.tyres.snapshot()

	var duration int64
	if !a.sessionStart.IsZero() {
		duration = now.Sub(a.sessionStart).Milliseconds()
	}

	return Snapshot{
		LapCount:  a.currentLapCount,
		LapsTotal: a.lapsTotal,

		LastLapTimeMs: a.lastLapTimeMs,
		BestLapTimeMs: a.bestLapTimeMs,
		LapDeltaMs:    lapDelta,

		PaceTrend:      a.paceTrend(),
		RecentLapTimes: append([]int32(nil), a.recentLapTimes...),

		FuelLevel:    fuelLevel,
		FuelCapacity: fuelCapacity,

		FuelBurnRatePerLap:     rate,
		EstimatedLapsRemaining: estimatedLaps,
		FuelUsageDetermined:    a.fuelUsage,

		TyreTemps:  tyreTemps,
		TyreTrends: tyreTrends,

		RevLimiterFraction: fraction(a.revLimiterFrames, a.framesInLap),
		TCSFraction:        fraction(a.tcsFrames, a.framesInLap),
		ASMFraction:        fraction(a.asmFrames, a.framesInLap),

		SpeedKmh:      speed,
		TopSpeedKmh:   a.topSpeedSession,
		GearCurrent:   gearCurrent,
		GearSuggested: gearSuggested,
		EngineRPM:     rpm,

		CarCode: carCode,
		OnTrack: onTrack,

		SessionDurationMs: duration,
		CurrentLapStartAt: a.currentLapStart,
	}
}

func fraction(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

// paceTrend looks at the three most recently completed laps, in
// chronological order, and classifies whether the driver is getting faster,
// slower, or holding pace. Fewer than three laps is always "consistent".
func (a *Analyzer) paceTrend() PaceTrend {
	if len(a.recentLapTimes) < 3 {
		return PaceConsistent
	}
	last3 := a.recentLapTimes[len(a.recentLapTimes)-3:]

	improving := true
	degrading := true
	for i := 1; i < len(last3); i++ {
		if last3[i] >= last3[i-1] {
			improving = false
		}
		if last3[i] <= last3[i-1] {
			degrading = false
		}
	}
	switch {
	case improving:
		return PaceImproving
	case degrading:
		return PaceDegrading
	default:
		return PaceConsistent
	}
}
