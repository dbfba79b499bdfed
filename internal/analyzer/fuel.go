// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package analyzer

import (
	"math"
	"time"

	"github.com/marcelscruz/open-gt/internal/telemetry"
)

const fuelConsumptionThreshold = 0.01

// checkFuelUsage samples fuel level against the fixed checkpoints after
// session start to decide whether this car burns fuel at all (some GT7
// race classes run with fuel consumption disabled). The verdict only ever
// moves forward, from undetermined to on or off.
func (a *Analyzer) checkFuelUsage(now time.Time, f *telemetry.Frame) {
	if a.fuelUsage != FuelUndetermined {
		return
	}
	elapsed := now.Sub(a.sessionStart)
	for a.nextFuelCheck < len(fuelCheckpoints) && elapsed >= fuelCheckpoints[a.nextFuelCheck] {
		consumed := a.initialFuelLevel - f.FuelLevel
		if consumed > fuelConsumptionThreshold {
			a.fuelUsage = FuelOn
			return
		}
		a.nextFuelCheck++
	}
	if a.nextFuelCheck >= len(fuelCheckpoints) {
		a.fuelUsage = FuelOff
	}
}

// burnRatePerLap averages the most recent qualifying per-lap fuel burns.
// The first interval is skipped because it spans the pit-out lap, which is
// rarely a full representative lap.
func (a *Analyzer) burnRatePerLap() float64 {
	if len(a.lapStartFuel) < 3 {
		return 0
	}
	var burns []float64
	for i := 2; i < len(a.lapStartFuel); i++ {
		burn := float64(a.lapStartFuel[i-1] - a.lapStartFuel[i])
		if burn > 0 {
			burns = append(burns, burn)
		}
	}
	if len(burns) == 0 {
		return 0
	}
	if len(burns) > 3 {
		burns = burns[len(burns)-3:]
	}
	var sum float64
	for _, b := range burns {
		sum += b
	}
	return sum / float64(len(burns))
}

// estimatedLapsRemaining prefers the per-lap burn rate; when that isn't
// available yet it falls back to a time-based consumption rate projected
// over a reference lap duration. With no fuel model at all, it reports
// +Inf so callers never alert on an unknown quantity.
func (a *Analyzer) estimatedLapsRemaining(now time.Time, f *telemetry.Frame, rate float64) float64 {
	if a.fuelUsage != FuelOn {
		return math.Inf(1)
	}
	if rate > 0 {
		return float64(f.FuelLevel) / rate
	}

	elapsed := now.Sub(a.sessionStart)
	if elapsed <= 5*time.Second {
		return math.Inf(1)
	}
	consumed := float64(a.initialFuelLevel - f.FuelLevel)
	if consumed <= fuelConsumptionThreshold {
		return math.Inf(1)
	}
	consumptionPerMs := consumed / float64(elapsed.Milliseconds())

	var refLapMs int32
	switch {
	case a.bestLapTimeMs > 0:
		refLapMs = a.bestLapTimeMs
	case a.lastLapTimeMs > 0:
		refLapMs = a.lastLapTimeMs
	default:
		return math.Inf(1)
	}

	perLap := consumptionPerMs * float64(refLapMs)
	if perLap <= 0 {
		return math.Inf(1)
	}
	return float64(f.FuelLevel) / perLap
}
