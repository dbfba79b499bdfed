// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/marcelscruz/open-gt/internal/cipher"
)

// ErrNotAFrame is returned for any datagram that is not a valid telemetry
// frame: too short, or decrypting it does not yield the expected magic
// word. Decode never returns any other error - per-datagram failures are
// always this one sentinel so callers can drop and count without branching
// on error text.
var ErrNotAFrame = errors.New("telemetry: not a frame")

// Key derives the fixed 256-bit decryption key from the protocol's key
// string, per the wire format: the first 32 bytes of the ASCII string.
func Key() [cipher.KeySize]byte {
	const seed = "Simulator Interface Packet GT7 ver 0.0"
	var k [cipher.KeySize]byte
	copy(k[:], seed)
	return k
}

// Decode validates and parses a raw UDP datagram into a Frame. It is the
// only place in the pipeline allowed to produce a Frame, and a Frame is
// never handed downstream unless the magic word checked out.
func Decode(raw []byte, key *[cipher.KeySize]byte) (*Frame, error) {
	if len(raw) < FrameSize {
		return nil, ErrNotAFrame
	}

	ciphertext := raw[:FrameSize]

	iv1 := binary.LittleEndian.Uint32(ciphertext[ivOffset : ivOffset+4])
	iv2 := iv1 ^ ivXorKey

	var nonce [cipher.NonceSize]byte
	binary.LittleEndian.PutUint32(nonce[0:4], iv2)
	binary.LittleEndian.PutUint32(nonce[4:8], iv1)

	plain, err := cipher.Decrypt(ciphertext, key, &nonce)
	if err != nil {
		return nil, ErrNotAFrame
	}

	// The IV word was never part of the encrypted stream; restore its raw
	// bytes over whatever garbage the keystream XOR produced there.
	copy(plain[ivOffset:ivOffset+4], ciphertext[ivOffset:ivOffset+4])

	if binary.LittleEndian.Uint32(plain[magicOffset:magicOffset+4]) != magicValue {
		return nil, ErrNotAFrame
	}

	f := &Frame{
		SequenceID: binary.LittleEndian.Uint32(plain[packetIDOffset : packetIDOffset+4]),

		Position: readVec3(plain, positionOffset),
		Velocity: readVec3(plain, velocityOffset),

		EngineRPM: readFloat32(plain, rpmOffset),

		FuelLevel:    readFloat32(plain, fuelLevelOffset),
		FuelCapacity: readFloat32(plain, fuelCapacityOffset),

		SpeedKmh: readFloat32(plain, speedOffset) * 3.6,

		TyreTempFL: readFloat32(plain, tyreTempFLOffset),
		TyreTempFR: readFloat32(plain, tyreTempFROffset),
		TyreTempRL: readFloat32(plain, tyreTempRLOffset),
		TyreTempRR: readFloat32(plain, tyreTempRROffset),

		LapCount:  int16(binary.LittleEndian.Uint16(plain[lapCountOffset : lapCountOffset+2])),
		LapsTotal: int16(binary.LittleEndian.Uint16(plain[lapsTotalOffset : lapsTotalOffset+2])),

		BestLapTimeMs: int32(binary.LittleEndian.Uint32(plain[bestLapTimeOffset : bestLapTimeOffset+4])),
		LastLapTimeMs: int32(binary.LittleEndian.Uint32(plain[lastLapTimeOffset : lastLapTimeOffset+4])),

		CarCode: binary.LittleEndian.Uint32(plain[carCodeOffset : carCodeOffset+4]),
	}

	gearByte := plain[gearOffset]
	f.GearCurrent = gearByte & 0x0F
	f.GearSuggested = gearByte >> 4

	f.ThrottlePct = normalizeByteTo100(plain[throttleOffset])
	f.BrakePct = normalizeByteTo100(plain[brakeOffset])

	flags := binary.LittleEndian.Uint16(plain[flagsOffset : flagsOffset+2])
	f.OnTrack = flags&flagOnTrack != 0
	f.Paused = flags&flagPaused != 0
	f.Loading = flags&flagLoading != 0
	f.RevLimiterActive = flags&flagRevLimiter != 0
	f.HandbrakeActive = flags&flagHandbrake != 0
	f.TCSActive = flags&flagTCS != 0
	f.ASMActive = flags&flagASM != 0
	f.LightsOn = flags&flagLights != 0
	f.HasTurbo = flags&flagHasTurbo != 0
	f.InGear = flags&flagInGear != 0

	return f, nil
}

func readFloat32(b []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[offset : offset+4]))
}

func readVec3(b []byte, offset int) Vec3 {
	return Vec3{
		X: readFloat32(b, offset),
		Y: readFloat32(b, offset+4),
		Z: readFloat32(b, offset+8),
	}
}

// normalizeByteTo100 maps a raw 0-255 pedal byte onto the 0-100 range used
// by Frame.ThrottlePct/BrakePct.
func normalizeByteTo100(v byte) uint8 {
	return uint8((uint16(v) * 100) / 255)
}
