// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/marcelscruz/open-gt/internal/telemetry"
)

func baseFrame() *telemetry.Frame {
	return &telemetry.Frame{
		OnTrack:       true,
		CarCode:       1001,
		LapCount:      1,
		LapsTotal:     10,
		BestLapTimeMs: telemetry.BestLapUnset,
		FuelLevel:     100,
		FuelCapacity:  100,
		SpeedKmh:      150,
	}
}

func TestIngestIgnoresOffTrackFrames(t *testing.T) {
	a := New(nil)
	f := baseFrame()
	f.OnTrack = false
	a.Ingest(f)

	snap := a.Snapshot()
	if snap.OnTrack {
		t.Fatalf("expected snapshot to report off-track with no frames ingested")
	}
}

func TestFirstOnTrackFrameEstablishesIdentity(t *testing.T) {
	a := New(nil)
	a.Ingest(baseFrame())

	snap := a.Snapshot()
	if !snap.OnTrack {
		t.Fatalf("expected on-track after first frame")
	}
	if snap.CarCode != 1001 {
		t.Fatalf("expected car code 1001, got %d", snap.CarCode)
	}
	if snap.LapCount != 1 {
		t.Fatalf("expected lap count 1, got %d", snap.LapCount)
	}
}

func TestCarCodeChangeTriggersReset(t *testing.T) {
	a := New(nil)
	a.Ingest(baseFrame())

	f2 := baseFrame()
	f2.CarCode = 2002
	f2.LapCount = 1
	a.Ingest(f2)

	snap := a.Snapshot()
	if snap.CarCode != 2002 {
		t.Fatalf("expected car code 2002 after swap, got %d", snap.CarCode)
	}
	if len(snap.RecentLapTimes) != 0 {
		t.Fatalf("expected recent lap times cleared on car swap, got %v", snap.RecentLapTimes)
	}
}

func TestLapCountRewindTriggersReset(t *testing.T) {
	a := New(nil)
	f1 := baseFrame()
	f1.LapCount = 5
	a.Ingest(f1)

	f2 := baseFrame()
	f2.LapCount = 1 // decreased by more than one
	a.Ingest(f2)

	snap := a.Snapshot()
	if snap.LapCount != 1 {
		t.Fatalf("expected lap count reset to 1, got %d", snap.LapCount)
	}
}

func TestLapCountResetToZeroFromPositiveTriggersReset(t *testing.T) {
	a := New(nil)
	f1 := baseFrame()
	f1.LapCount = 3
	a.Ingest(f1)

	f2 := baseFrame()
	f2.LapCount = 0
	a.Ingest(f2)

	snap := a.Snapshot()
	if snap.LapCount != 0 {
		t.Fatalf("expected lap count 0 after reset, got %d", snap.LapCount)
	}
}

func TestBestLapRevertToUnsetTriggersReset(t *testing.T) {
	a := New(nil)
	f1 := baseFrame()
	f1.BestLapTimeMs = 90000
	a.Ingest(f1)

	f2 := baseFrame()
	f2.BestLapTimeMs = telemetry.BestLapUnset
	f2.LapCount = 1
	a.Ingest(f2)

	snap := a.Snapshot()
	if snap.BestLapTimeMs != 0 {
		t.Fatalf("expected best lap time cleared by reset, got %d", snap.BestLapTimeMs)
	}
}

func TestRefuelJumpTriggersReset(t *testing.T) {
	a := New(nil)
	f1 := baseFrame()
	f1.FuelLevel = 50
	a.Ingest(f1)

	f2 := baseFrame()
	f2.FuelLevel = 100 // >= 99% from < 95%
	a.Ingest(f2)

	snap := a.Snapshot()
	if snap.FuelLevel != 100 {
		t.Fatalf("expected fuel level 100 after reset, got %v", snap.FuelLevel)
	}
}

func TestLapChangeFiresObserverAndFilesLapTime(t *testing.T) {
	var notified int
	a := New(func() { notified++ })

	f1 := baseFrame()
	f1.LapCount = 1
	a.Ingest(f1)

	f2 := baseFrame()
	f2.LapCount = 2
	f2.LastLapTimeMs = 95123
	a.Ingest(f2)

	if notified != 1 {
		t.Fatalf("expected one lap-complete notification, got %d", notified)
	}
	snap := a.Snapshot()
	if len(snap.RecentLapTimes) != 1 || snap.RecentLapTimes[0] != 95123 {
		t.Fatalf("expected recent lap times [95123], got %v", snap.RecentLapTimes)
	}
	if snap.LastLapTimeMs != 95123 {
		t.Fatalf("expected last lap time 95123, got %d", snap.LastLapTimeMs)
	}
}

func TestRecentLapTimesCapAtFive(t *testing.T) {
	a := New(nil)
	lap := int16(1)
	a.Ingest(func() *telemetry.Frame { f := baseFrame(); f.LapCount = lap; return f }())

	for i := 0; i < 7; i++ {
		lap++
		f := baseFrame()
		f.LapCount = lap
		f.LastLapTimeMs = int32(90000 + i*100)
		a.Ingest(f)
	}

	snap := a.Snapshot()
	if len(snap.RecentLapTimes) != 5 {
		t.Fatalf("expected recent lap times capped at 5, got %d", len(snap.RecentLapTimes))
	}
}

func TestPaceTrendRequiresThreeLaps(t *testing.T) {
	a := New(nil)
	lap := int16(1)
	a.Ingest(func() *telemetry.Frame { f := baseFrame(); f.LapCount = lap; return f }())

	lap++
	f := baseFrame()
	f.LapCount = lap
	f.LastLapTimeMs = 90000
	a.Ingest(f)

	snap := a.Snapshot()
	if snap.PaceTrend != PaceConsistent {
		t.Fatalf("expected consistent with <3 laps, got %v", snap.PaceTrend)
	}
}

func TestPaceTrendImprovingAndDegrading(t *testing.T) {
	a := New(nil)
	lap := int16(1)
	a.Ingest(func() *telemetry.Frame { f := baseFrame(); f.LapCount = lap; return f }())

	times := []int32{92000, 91000, 90000} // strictly decreasing -> improving
	for _, ms := range times {
		lap++
		f := baseFrame()
		f.LapCount = lap
		f.LastLapTimeMs = ms
		a.Ingest(f)
	}
	if snap := a.Snapshot(); snap.PaceTrend != PaceImproving {
		t.Fatalf("expected improving, got %v", snap.PaceTrend)
	}

	degrading := []int32{90500, 91500}
	for _, ms := range degrading {
		lap++
		f := baseFrame()
		f.LapCount = lap
		f.LastLapTimeMs = ms
		a.Ingest(f)
	}
	if snap := a.Snapshot(); snap.PaceTrend != PaceDegrading {
		t.Fatalf("expected degrading, got %v", snap.PaceTrend)
	}
}

func TestFuelUsageUndeterminedWithoutFrames(t *testing.T) {
	a := New(nil)
	snap := a.Snapshot()
	if snap.FuelUsageDetermined != FuelUndetermined {
		t.Fatalf("expected undetermined fuel usage before any frame, got %v", snap.FuelUsageDetermined)
	}
	if !math.IsInf(snap.EstimatedLapsRemaining, 1) {
		t.Fatalf("expected +Inf estimated laps remaining, got %v", snap.EstimatedLapsRemaining)
	}
}

func TestBurnRateZeroWithFewerThanThreeLaps(t *testing.T) {
	a := New(nil)
	a.lapStartFuel = []float32{98, 96}
	if rate := a.burnRatePerLap(); rate != 0 {
		t.Fatalf("expected zero burn rate with <3 samples, got %v", rate)
	}
}

func TestBurnRateAveragesQualifyingBurns(t *testing.T) {
	a := New(nil)
	a.lapStartFuel = []float32{100, 98, 95, 92}
	// burn_2 = 98-95 = 3, burn_3 = 95-92 = 3; interval 0->1 is skipped.
	rate := a.burnRatePerLap()
	if rate != 3 {
		t.Fatalf("expected burn rate 3, got %v", rate)
	}
}

func TestTyreTrendStableWithOneSample(t *testing.T) {
	var c cornerHistory
	c.push(time.Now(), 90)
	if trend := c.trend(); trend != TyreStable {
		t.Fatalf("expected stable with a single sample, got %v", trend)
	}
}
