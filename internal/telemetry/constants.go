// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package telemetry decodes the console's encrypted UDP telemetry datagram
// into a Frame. Offsets for the fields this system actually consumes are
// given by the wire format; offsets the format leaves unspecified for (lap
// timing, tyre temperature, packet id) are implementation choices made here
// and documented inline - they are not guesses about the console's real
// layout, just a stable place to put fields the rest of the pipeline needs.
package telemetry

const (
	// FrameSize is the fixed length of an encrypted telemetry datagram.
	FrameSize = 296

	magicOffset = 0x00
	magicValue  = 0x47375330

	// ivOffset is where the nonce source word lives in the ciphertext. The
	// four bytes at this offset are not part of the encrypted stream: after
	// decryption they must be restored from the original ciphertext.
	ivOffset = 0x40
	ivXorKey = 0xDEADBEAF

	positionOffset = 0x04
	velocityOffset = 0x10
	rotationOffset = 0x1C // decoded-over but not exposed on Frame
	rpmOffset      = 0x3C

	fuelLevelOffset    = 0x44
	fuelCapacityOffset = 0x48
	speedOffset        = 0x4C // metres/second on the wire

	// Implementation-assigned offsets for fields the wire-format summary in
	// the protocol notes doesn't pin down explicitly.
	tyreTempFLOffset  = 0x60
	tyreTempFROffset  = 0x64
	tyreTempRLOffset  = 0x68
	tyreTempRROffset  = 0x6C
	packetIDOffset    = 0x70
	lapCountOffset    = 0x74
	lapsTotalOffset   = 0x76
	bestLapTimeOffset = 0x78
	lastLapTimeOffset = 0x7C

	flagsOffset = 0x8E
	gearOffset  = 0x90
	throttleOffset = 0x91
	brakeOffset    = 0x92

	carCodeOffset = 0x124
)

// Flag bits within the 16-bit flags word at flagsOffset. Bit assignment is
// an implementation choice; existence and semantics of each flag is spec'd.
const (
	flagOnTrack = 1 << 0
	flagPaused  = 1 << 1
	flagLoading = 1 << 2
	flagRevLimiter = 1 << 3
	flagHandbrake  = 1 << 4
	flagTCS        = 1 << 5
	flagASM        = 1 << 6
	flagLights     = 1 << 7
	flagHasTurbo   = 1 << 8
	flagInGear     = 1 << 9
)

// BestLapUnset is the sentinel lap time meaning "no lap time recorded".
const BestLapUnset int32 = -1
