// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package analyzer

import (
	"sync"
	"time"

	"github.com/marcelscruz/open-gt/internal/telemetry"
)

const (
	fuelJumpHighFraction = 0.99
	fuelJumpLowFraction  = 0.95
	recentLapsCap        = 5
)

// fuelCheckpoints are the elapsed-session durations at which the analyzer
// samples fuel consumption to decide whether the fuel model is on.
var fuelCheckpoints = []time.Duration{
	5 * time.Second, 10 * time.Second, 15 * time.Second,
	20 * time.Second, 25 * time.Second, 30 * time.Second,
}

// Analyzer is a single-writer actor: Ingest is the only mutator and is
// expected to be called from one goroutine. Snapshot takes the same lock so
// concurrent readers never observe a torn update.
type Analyzer struct {
	mu sync.RWMutex

	onLapComplete func()

	haveIdentity    bool
	prevCarCode     uint32
	prevLapCount    int16
	prevBestLapTime int32
	prevFuelLevel   float32

	sessionStart     time.Time
	initialFuelLevel float32
	fuelUsage        FuelUsage
	nextFuelCheck    int
	lapStartFuel     []float32

	haveLapCount    bool
	currentLapCount int16
	currentLapStart time.Time
	lapsTotal       int16

	recentLapTimes []int32
	bestLapTimeMs  int32
	lastLapTimeMs  int32

	framesInLap     int
	revLimiterFrames int
	tcsFrames        int
	asmFrames        int
	maxSpeedThisLap  float32
	topSpeedSession  float32

	tyres tyreTracker

	last *telemetry.Frame
}

// New creates an Analyzer. onLapComplete, if non-nil, is called after every
// lap-change bookkeeping pass completes; it may safely call Snapshot.
func New(onLapComplete func()) *Analyzer {
	return &Analyzer{
		onLapComplete: onLapComplete,
		fuelUsage:     FuelUndetermined,
	}
}

// Ingest folds one decoded frame into the analyzer's running state.
func (a *Analyzer) Ingest(f *telemetry.Frame) {
	a.mu.Lock()

	if !f.OnTrack {
		a.mu.Unlock()
		return
	}

	now := time.Now()
	if a.detectNewRace(f) {
		a.resetForNewRace(f, now)
	}
	a.rememberIdentity(f)

	if !a.haveLapCount {
		a.haveLapCount = true
		a.currentLapCount = f.LapCount
		a.currentLapStart = now
	}
	a.lapsTotal = f.LapsTotal
	if f.BestLapTimeMs > 0 {
		a.bestLapTimeMs = f.BestLapTimeMs
	}

	lapChanged := f.LapCount != a.currentLapCount
	if lapChanged {
		a.completeLap(f, now)
		a.currentLapCount = f.LapCount
		a.currentLapStart = now
	}

	a.framesInLap++
	if f.RevLimiterActive {
		a.revLimiterFrames++
	}
	if f.TCSActive {
		a.tcsFrames++
	}
	if f.ASMActive {
		a.asmFrames++
	}
	if f.SpeedKmh > a.maxSpeedThisLap {
		a.maxSpeedThisLap = f.SpeedKmh
	}
	if f.SpeedKmh > a.topSpeedSession {
		a.topSpeedSession = f.SpeedKmh
	}

	a.tyres.push(now, f)
	a.checkFuelUsage(now, f)

	a.last = f
	a.mu.Unlock()

	if lapChanged && a.onLapComplete != nil {
		a.onLapComplete()
	}
}

// detectNewRace recognises the identity discontinuities that mean the
// driver has started a different race rather than continued the current
// one: a car swap, a lap counter that rewound, a best-lap time that
// reverted to "unset", or a refuel that jumped the tank back to full.
func (a *Analyzer) detectNewRace(f *telemetry.Frame) bool {
	if !a.haveIdentity {
		return true
	}
	if f.CarCode != a.prevCarCode {
		return true
	}
	if f.LapCount == 0 && a.prevLapCount > 0 {
		return true
	}
	if a.prevLapCount-f.LapCount > 1 {
		return true
	}
	if f.BestLapTimeMs == telemetry.BestLapUnset && a.prevBestLapTime > 0 {
		return true
	}
	if f.FuelCapacity > 0 {
		high := float32(fuelJumpHighFraction) * f.FuelCapacity
		low := float32(fuelJumpLowFraction) * f.FuelCapacity
		if f.FuelLevel >= high && a.prevFuelLevel < low {
			return true
		}
	}
	return false
}

func (a *Analyzer) rememberIdentity(f *telemetry.Frame) {
	a.haveIdentity = true
	a.prevCarCode = f.CarCode
	a.prevLapCount = f.LapCount
	a.prevBestLapTime = f.BestLapTimeMs
	a.prevFuelLevel = f.FuelLevel
}

func (a *Analyzer) resetForNewRace(f *telemetry.Frame, now time.Time) {
	a.sessionStart = now
	a.initialFuelLevel = f.FuelLevel
	a.fuelUsage = FuelUndetermined
	a.nextFuelCheck = 0
	a.lapStartFuel = nil

	a.haveLapCount = true
	a.currentLapCount = f.LapCount
	a.currentLapStart = now
	a.lapsTotal = f.LapsTotal

	a.recentLapTimes = nil
	a.bestLapTimeMs = 0
	a.lastLapTimeMs = 0

	a.framesInLap = 0
	a.revLimiterFrames = 0
	a.tcsFrames = 0
	a.asmFrames = 0
	a.maxSpeedThisLap = 0
	a.topSpeedSession = 0

	a.tyres = tyreTracker{}
	a.last = nil
}

// completeLap runs when f.LapCount differs from the lap currently being
// accumulated. It files the just-ended lap's time and fuel level, then
// clears the per-lap accumulators for the lap that is starting.
func (a *Analyzer) completeLap(f *telemetry.Frame, now time.Time) {
	if f.LastLapTimeMs > 0 {
		a.lastLapTimeMs = f.LastLapTimeMs
		a.recentLapTimes = append(a.recentLapTimes, f.LastLapTimeMs)
		if len(a.recentLapTimes) > recentLapsCap {
			a.recentLapTimes = a.recentLapTimes[len(a.recentLapTimes)-recentLapsCap:]
		}
	}
	a.lapStartFuel = append(a.lapStartFuel, f.FuelLevel)

	a.framesInLap = 0
	a.revLimiterFrames = 0
	a.tcsFrames = 0
	a.asmFrames = 0
	a.maxSpeedThisLap = 0
}
