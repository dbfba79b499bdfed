// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package analyzer maintains derived per-session telemetry state: lap pace,
// fuel burn, tyre temperature trends and assist usage. It is a
// single-writer actor - only Ingest mutates state, and Snapshot returns a
// self-consistent point-in-time copy under the same lock Ingest uses.
package analyzer

import "time"

// PaceTrend classifies the driver's last three completed laps.
type PaceTrend string

const (
	PaceImproving  PaceTrend = "improving"
	PaceDegrading  PaceTrend = "degrading"
	PaceConsistent PaceTrend = "consistent"
)

// TyreTrend classifies a corner's temperature direction over the last 5s.
type TyreTrend string

const (
	TyreRising  TyreTrend = "rising"
	TyreStable  TyreTrend = "stable"
	TyreCooling TyreTrend = "cooling"
)

// FuelUsage reports whether the car's fuel consumption model has been
// determined yet. It only ever moves forward: undetermined -> on or
// undetermined -> off, never back.
type FuelUsage string

const (
	FuelUndetermined FuelUsage = "undetermined"
	FuelOn           FuelUsage = "on"
	FuelOff          FuelUsage = "off"
)

// TyreSnapshot bundles the four corners in FL/FR/RL/RR order.
type TyreSnapshot struct {
	FL, FR, RL, RR float32
}

// TyreTrends bundles the four corners' trends in FL/FR/RL/RR order.
type TyreTrends struct {
	FL, FR, RL, RR TyreTrend
}

// Snapshot is the analyzer's exported summary, regenerated on demand.
type Snapshot struct {
	LapCount  int16
	LapsTotal int16

	LastLapTimeMs int32
	BestLapTimeMs int32
	LapDeltaMs    int32

	PaceTrend       PaceTrend
	RecentLapTimes  []int32 // oldest to newest, length <= 5

	FuelLevel    float32
	FuelCapacity float32

	FuelBurnRatePerLap     float64 // 0 if unknown
	EstimatedLapsRemaining float64 // +Inf if unknown
	FuelUsageDetermined    FuelUsage

	TyreTemps  TyreSnapshot
	TyreTrends TyreTrends

	RevLimiterFraction float64
	TCSFraction        float64
	ASMFraction        float64

	SpeedKmh      float32
	TopSpeedKmh   float32
	GearCurrent   uint8
	GearSuggested uint8
	EngineRPM     float32

	CarCode uint32
	OnTrack bool

	SessionDurationMs int64
	CurrentLapStartAt time.Time
}
