// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

// Vec3 is a three-axis float vector (position or velocity).
type Vec3 struct {
	X, Y, Z float32
}

// Frame is one decoded telemetry sample. It is immutable after Decode
// returns - every field is a value type, so a Frame can be handed to the
// analyzer, the logger and the fan-out stage concurrently without a lock or
// a copy.
type Frame struct {
	SequenceID uint32

	Position Vec3
	Velocity Vec3

	EngineRPM float32

	GearCurrent   uint8
	GearSuggested uint8

	ThrottlePct uint8 // 0-100
	BrakePct    uint8 // 0-100

	SpeedKmh float32

	FuelLevel    float32
	FuelCapacity float32

	TyreTempFL float32
	TyreTempFR float32
	TyreTempRL float32
	TyreTempRR float32

	LapCount int16
	LapsTotal int16

	BestLapTimeMs int32
	LastLapTimeMs int32

	OnTrack           bool
	Paused            bool
	Loading           bool
	RevLimiterActive  bool
	HandbrakeActive   bool
	TCSActive         bool
	ASMActive         bool
	LightsOn          bool
	HasTurbo          bool
	InGear            bool

	CarCode uint32
}
