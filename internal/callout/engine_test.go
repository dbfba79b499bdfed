// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package callout

import (
	"testing"
	"time"

	"github.com/marcelscruz/open-gt/internal/analyzer"
)

func TestVerbosityOneAdmitsOnlyCritical(t *testing.T) {
	e := New(1)
	snap := analyzer.Snapshot{
		TyreTemps:           analyzer.TyreSnapshot{FL: 120},
		TyreTrends:          analyzer.TyreTrends{FR: analyzer.TyreRising},
		FuelUsageDetermined: analyzer.FuelOn,
		FuelBurnRatePerLap:  2,
	}
	callouts := e.EvaluatePeriodic(time.Now(), snap)

	for _, c := range callouts {
		if c.Priority != Critical {
			t.Fatalf("verbosity 1 admitted a non-critical callout: %+v", c)
		}
	}
	foundHot := false
	for _, c := range callouts {
		if c.Type == "tyre_temp_high" {
			foundHot = true
		}
	}
	if !foundHot {
		t.Fatalf("expected tyre_temp_high to fire at verbosity 1")
	}
}

func TestCooldownSuppressesRepeatFire(t *testing.T) {
	e := New(3)
	snap := analyzer.Snapshot{TyreTemps: analyzer.TyreSnapshot{FL: 120}}

	t0 := time.Now()
	first := e.EvaluatePeriodic(t0, snap)
	if len(first) == 0 {
		t.Fatalf("expected tyre_temp_high to fire on first evaluation")
	}

	second := e.EvaluatePeriodic(t0.Add(time.Second), snap)
	for _, c := range second {
		if c.Type == "tyre_temp_high" {
			t.Fatalf("expected tyre_temp_high to be suppressed by cooldown")
		}
	}

	third := e.EvaluatePeriodic(t0.Add(31*time.Second), snap)
	found := false
	for _, c := range third {
		if c.Type == "tyre_temp_high" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected tyre_temp_high to fire again after cooldown elapses")
	}
}

func TestLapDeltaRequiresBothTimesAndThreshold(t *testing.T) {
	e := New(3)

	snap := analyzer.Snapshot{LastLapTimeMs: 91000, BestLapTimeMs: 90000, LapDeltaMs: 1000}
	callouts := e.EvaluateOnLapComplete(time.Now(), snap)
	found := false
	for _, c := range callouts {
		if c.Type == "lap_delta" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected lap_delta to fire with a 1000ms delta")
	}

	small := analyzer.Snapshot{LastLapTimeMs: 90100, BestLapTimeMs: 90000, LapDeltaMs: 100}
	callouts = e.EvaluateOnLapComplete(time.Now(), small)
	for _, c := range callouts {
		if c.Type == "lap_delta" {
			t.Fatalf("expected lap_delta to stay silent under the 500ms threshold")
		}
	}
}

func TestOnLapRulesHaveNoCooldown(t *testing.T) {
	e := New(3)
	snap := analyzer.Snapshot{LastLapTimeMs: 90000}

	first := e.EvaluateOnLapComplete(time.Now(), snap)
	second := e.EvaluateOnLapComplete(time.Now(), snap)

	countSummary := func(callouts []Callout) int {
		n := 0
		for _, c := range callouts {
			if c.Type == "lap_summary" {
				n++
			}
		}
		return n
	}
	if countSummary(first) != 1 || countSummary(second) != 1 {
		t.Fatalf("expected lap_summary to fire every time with zero cooldown")
	}
}

func TestFormatLapTimeAndDelta(t *testing.T) {
	if got := FormatLapTime(95123); got != "01:35.123" {
		t.Fatalf("FormatLapTime(95123) = %q", got)
	}
	if got := FormatDelta(-1234); got != "-1.234 s" {
		t.Fatalf("FormatDelta(-1234) = %q", got)
	}
	if got := FormatDelta(501); got != "+0.501 s" {
		t.Fatalf("FormatDelta(501) = %q", got)
	}
}
