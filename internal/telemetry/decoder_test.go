// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/marcelscruz/open-gt/internal/cipher"
)

// encodeFixture builds a raw encrypted datagram matching the given Frame,
// for round-trip testing. It is test-only: production code never encodes.
func encodeFixture(t *testing.T, f *Frame, iv1 uint32) []byte {
	t.Helper()

	plain := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(plain[magicOffset:], magicValue)
	binary.LittleEndian.PutUint32(plain[packetIDOffset:], f.SequenceID)
	putVec3(plain, positionOffset, f.Position)
	putVec3(plain, velocityOffset, f.Velocity)
	putFloat32(plain, rpmOffset, f.EngineRPM)
	putFloat32(plain, fuelLevelOffset, f.FuelLevel)
	putFloat32(plain, fuelCapacityOffset, f.FuelCapacity)
	putFloat32(plain, speedOffset, f.SpeedKmh/3.6)
	putFloat32(plain, tyreTempFLOffset, f.TyreTempFL)
	putFloat32(plain, tyreTempFROffset, f.TyreTempFR)
	putFloat32(plain, tyreTempRLOffset, f.TyreTempRL)
	putFloat32(plain, tyreTempRROffset, f.TyreTempRR)
	binary.LittleEndian.PutUint16(plain[lapCountOffset:], uint16(f.LapCount))
	binary.LittleEndian.PutUint16(plain[lapsTotalOffset:], uint16(f.LapsTotal))
	binary.LittleEndian.PutUint32(plain[bestLapTimeOffset:], uint32(f.BestLapTimeMs))
	binary.LittleEndian.PutUint32(plain[lastLapTimeOffset:], uint32(f.LastLapTimeMs))
	binary.LittleEndian.PutUint32(plain[carCodeOffset:], f.CarCode)

	plain[gearOffset] = f.GearCurrent | (f.GearSuggested << 4)
	plain[throttleOffset] = byte((uint16(f.ThrottlePct) * 255) / 100)
	plain[brakeOffset] = byte((uint16(f.BrakePct) * 255) / 100)

	var flags uint16
	if f.OnTrack {
		flags |= flagOnTrack
	}
	if f.RevLimiterActive {
		flags |= flagRevLimiter
	}
	if f.TCSActive {
		flags |= flagTCS
	}
	if f.ASMActive {
		flags |= flagASM
	}
	binary.LittleEndian.PutUint16(plain[flagsOffset:], flags)

	key := Key()
	iv2 := iv1 ^ ivXorKey
	var nonce [cipher.NonceSize]byte
	binary.LittleEndian.PutUint32(nonce[0:4], iv2)
	binary.LittleEndian.PutUint32(nonce[4:8], iv1)

	ciphertext, err := cipher.Encrypt(plain, &key, &nonce)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	binary.LittleEndian.PutUint32(ciphertext[ivOffset:], iv1)
	return ciphertext
}

func putFloat32(b []byte, offset int, v float32) {
	binary.LittleEndian.PutUint32(b[offset:], math.Float32bits(v))
}

func putVec3(b []byte, offset int, v Vec3) {
	putFloat32(b, offset, v.X)
	putFloat32(b, offset+4, v.Y)
	putFloat32(b, offset+8, v.Z)
}

func TestDecodeRoundTrip(t *testing.T) {
	want := &Frame{
		SequenceID:    42,
		Position:      Vec3{1, 2, 3},
		Velocity:      Vec3{4, 5, 6},
		EngineRPM:     6500,
		GearCurrent:   3,
		GearSuggested: 4,
		ThrottlePct:   100,
		BrakePct:      0,
		SpeedKmh:      180,
		FuelLevel:     55.5,
		FuelCapacity:  100,
		TyreTempFL:    82.3,
		TyreTempFR:    83.1,
		TyreTempRL:    79.0,
		TyreTempRR:    80.2,
		LapCount:      3,
		LapsTotal:     10,
		BestLapTimeMs: 101823,
		LastLapTimeMs: 102350,
		OnTrack:       true,
		RevLimiterActive: false,
		TCSActive:     true,
		CarCode:       1234,
	}

	key := Key()
	raw := encodeFixture(t, want, 0x12345678)

	got, err := Decode(raw, &key)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if *got != *want {
		t.Fatalf("round trip mismatch:\n got  %+v\nwant %+v", *got, *want)
	}
}

func TestDecodeRejectsShortDatagram(t *testing.T) {
	key := Key()
	_, err := Decode(make([]byte, FrameSize-1), &key)
	if err != ErrNotAFrame {
		t.Fatalf("expected ErrNotAFrame, got %v", err)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	key := Key()
	f := &Frame{}
	raw := encodeFixture(t, f, 0xAABBCCDD)
	// Corrupt a byte of the magic word. The keystream XOR carries the flip
	// straight through to the same plaintext byte, so the magic check fails.
	raw[magicOffset] ^= 0xFF

	if _, err := Decode(raw, &key); err != ErrNotAFrame {
		t.Fatalf("expected ErrNotAFrame for corrupted datagram, got %v", err)
	}
}

func TestDecodeOnlyEverReturnsFrameOrSentinel(t *testing.T) {
	key := Key()
	cases := [][]byte{
		nil,
		make([]byte, 10),
		make([]byte, FrameSize),
	}
	for _, raw := range cases {
		f, err := Decode(raw, &key)
		if err != nil && err != ErrNotAFrame {
			t.Fatalf("unexpected error type: %v", err)
		}
		if err == nil && f == nil {
			t.Fatalf("nil frame with nil error")
		}
	}
}

func TestThrottleBrakeNormalization(t *testing.T) {
	if got := normalizeByteTo100(255); got != 100 {
		t.Errorf("normalizeByteTo100(255) = %d, want 100", got)
	}
	if got := normalizeByteTo100(0); got != 0 {
		t.Errorf("normalizeByteTo100(0) = %d, want 0", got)
	}
}
