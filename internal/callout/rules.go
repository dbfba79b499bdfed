// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package callout

import (
	"fmt"

	"github.com/marcelscruz/open-gt/internal/analyzer"
)

const tyreHotThresholdC = 100.0

// Rules is the fixed rule table, in the order messages should be delivered
// when several fire on the same tick or lap.
var Rules = []Rule{
	{
		Type: "fuel_low", Set: Periodic, Priority: Critical, MinVerbosity: 1, CooldownMs: 60_000,
		Eval: evalFuelLow,
	},
	{
		Type: "tyre_temp_high", Set: Periodic, Priority: Critical, MinVerbosity: 1, CooldownMs: 30_000,
		Eval: evalTyreTempHigh,
	},
	{
		Type: "tyre_trend", Set: Periodic, Priority: Normal, MinVerbosity: 2, CooldownMs: 60_000,
		Eval: evalTyreTrend,
	},
	{
		Type: "lap_delta", Set: OnLapComplete, Priority: Normal, MinVerbosity: 2, CooldownMs: 0,
		Eval: evalLapDelta,
	},
	{
		Type: "lap_summary", Set: OnLapComplete, Priority: Info, MinVerbosity: 3, CooldownMs: 0,
		Eval: evalLapSummary,
	},
	{
		Type: "fuel_estimate", Set: OnLapComplete, Priority: Normal, MinVerbosity: 2, CooldownMs: 0,
		Eval: evalFuelEstimate,
	},
	{
		Type: "rev_limiter", Set: OnLapComplete, Priority: Normal, MinVerbosity: 2, CooldownMs: 0,
		Eval: evalRevLimiter,
	},
	{
		Type: "tcs_intervention", Set: OnLapComplete, Priority: Normal, MinVerbosity: 2, CooldownMs: 0,
		Eval: evalTCSIntervention,
	},
	{
		Type: "asm_intervention", Set: OnLapComplete, Priority: Normal, MinVerbosity: 2, CooldownMs: 0,
		Eval: evalASMIntervention,
	},
	{
		Type: "race_progress", Set: OnLapComplete, Priority: Normal, MinVerbosity: 2, CooldownMs: 0,
		Eval: evalRaceProgress,
	},
	{
		Type: "pace_summary", Set: OnLapComplete, Priority: Info, MinVerbosity: 3, CooldownMs: 0,
		Eval: evalPaceSummary,
	},
}

func evalFuelLow(snap analyzer.Snapshot) Result {
	if snap.FuelUsageDetermined != analyzer.FuelOn || snap.FuelBurnRatePerLap <= 0 {
		return Result{}
	}
	if snap.EstimatedLapsRemaining >= 3 {
		return Result{}
	}
	return Result{
		Fire:    true,
		Data:    map[string]any{"estimatedLapsRemaining": snap.EstimatedLapsRemaining},
		Message: fmt.Sprintf("Fuel is critical, about %.1f laps remaining.", snap.EstimatedLapsRemaining),
	}
}

func evalTyreTempHigh(snap analyzer.Snapshot) Result {
	hot := map[string]float32{}
	if snap.TyreTemps.FL > tyreHotThresholdC {
		hot["FL"] = snap.TyreTemps.FL
	}
	if snap.TyreTemps.FR > tyreHotThresholdC {
		hot["FR"] = snap.TyreTemps.FR
	}
	if snap.TyreTemps.RL > tyreHotThresholdC {
		hot["RL"] = snap.TyreTemps.RL
	}
	if snap.TyreTemps.RR > tyreHotThresholdC {
		hot["RR"] = snap.TyreTemps.RR
	}
	if len(hot) == 0 {
		return Result{}
	}
	data := make(map[string]any, len(hot))
	for corner, temp := range hot {
		data[corner] = temp
	}
	return Result{
		Fire:    true,
		Data:    data,
		Message: fmt.Sprintf("Tyre temperatures are running hot: %v.", data),
	}
}

func evalTyreTrend(snap analyzer.Snapshot) Result {
	rising := map[string]analyzer.TyreTrend{}
	if snap.TyreTrends.FL == analyzer.TyreRising {
		rising["FL"] = analyzer.TyreRising
	}
	if snap.TyreTrends.FR == analyzer.TyreRising {
		rising["FR"] = analyzer.TyreRising
	}
	if snap.TyreTrends.RL == analyzer.TyreRising {
		rising["RL"] = analyzer.TyreRising
	}
	if snap.TyreTrends.RR == analyzer.TyreRising {
		rising["RR"] = analyzer.TyreRising
	}
	if len(rising) == 0 {
		return Result{}
	}
	data := make(map[string]any, len(rising))
	for corner := range rising {
		data[corner] = "rising"
	}
	return Result{
		Fire:    true,
		Data:    data,
		Message: "Tyre temperatures are trending up.",
	}
}

func evalLapDelta(snap analyzer.Snapshot) Result {
	if snap.LastLapTimeMs <= 0 || snap.BestLapTimeMs <= 0 {
		return Result{}
	}
	delta := snap.LapDeltaMs
	if delta < 0 {
		delta = -delta
	}
	if delta <= 500 {
		return Result{}
	}
	sign := "+"
	if snap.LapDeltaMs < 0 {
		sign = "-"
	}
	return Result{
		Fire: true,
		Data: map[string]any{"lastLapMs": snap.LastLapTimeMs, "bestLapMs": snap.BestLapTimeMs, "deltaMs": snap.LapDeltaMs},
		Message: fmt.Sprintf("Last lap %s, %s%d.%03ds to your best.",
			FormatLapTime(snap.LastLapTimeMs), sign, delta/1000, delta%1000),
	}
}

func evalLapSummary(snap analyzer.Snapshot) Result {
	if snap.LastLapTimeMs <= 0 {
		return Result{}
	}
	return Result{
		Fire:    true,
		Data:    map[string]any{"lastLapMs": snap.LastLapTimeMs},
		Message: fmt.Sprintf("Lap complete in %s.", FormatLapTime(snap.LastLapTimeMs)),
	}
}

func evalFuelEstimate(snap analyzer.Snapshot) Result {
	if snap.FuelUsageDetermined != analyzer.FuelOn || snap.FuelBurnRatePerLap <= 0 {
		return Result{}
	}
	return Result{
		Fire: true,
		Data: map[string]any{"burnRatePerLap": snap.FuelBurnRatePerLap, "estimatedLapsRemaining": snap.EstimatedLapsRemaining},
		Message: fmt.Sprintf("Burning about %.2f fuel per lap, roughly %.1f laps left.",
			snap.FuelBurnRatePerLap, snap.EstimatedLapsRemaining),
	}
}

func evalRevLimiter(snap analyzer.Snapshot) Result {
	if snap.RevLimiterFraction <= 0.15 {
		return Result{}
	}
	return Result{
		Fire:    true,
		Data:    map[string]any{"revLimiterFraction": snap.RevLimiterFraction},
		Message: "Hitting the rev limiter a lot that lap.",
	}
}

func evalTCSIntervention(snap analyzer.Snapshot) Result {
	if snap.TCSFraction <= 0.10 {
		return Result{}
	}
	return Result{
		Fire:    true,
		Data:    map[string]any{"tcsFraction": snap.TCSFraction},
		Message: "Traction control stepped in a lot that lap.",
	}
}

func evalASMIntervention(snap analyzer.Snapshot) Result {
	if snap.ASMFraction <= 0.10 {
		return Result{}
	}
	return Result{
		Fire:    true,
		Data:    map[string]any{"asmFraction": snap.ASMFraction},
		Message: "Stability management stepped in a lot that lap.",
	}
}

func evalRaceProgress(snap analyzer.Snapshot) Result {
	if snap.LapsTotal <= 0 {
		return Result{}
	}
	remaining := snap.LapsTotal - snap.LapCount
	if snap.LapCount%5 != 0 && remaining > 3 {
		return Result{}
	}
	return Result{
		Fire:    true,
		Data:    map[string]any{"lapCount": snap.LapCount, "lapsTotal": snap.LapsTotal, "remaining": remaining},
		Message: fmt.Sprintf("Lap %d of %d, %d to go.", snap.LapCount, snap.LapsTotal, remaining),
	}
}

func evalPaceSummary(snap analyzer.Snapshot) Result {
	if len(snap.RecentLapTimes) < 3 {
		return Result{}
	}
	trendWord := string(snap.PaceTrend)
	return Result{
		Fire:    true,
		Data:    map[string]any{"paceTrend": trendWord},
		Message: fmt.Sprintf("Pace is %s over the last few laps.", trendWord),
	}
}
