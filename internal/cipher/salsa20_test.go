// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cipher

import (
	"bytes"
	"testing"
)

func TestDecryptRoundTrip(t *testing.T) {
	var key [KeySize]byte
	var nonce [NonceSize]byte
	copy(key[:], []byte("Simulator Interface Packet GT7 "))
	nonce[0] = 0xAD
	nonce[4] = 0x52

	plaintext := bytes.Repeat([]byte("telemetry-frame-payload"), 8)

	ciphertext, err := Encrypt(plaintext, &key, &nonce)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Fatalf("ciphertext equals plaintext, cipher did nothing")
	}

	decoded, err := Decrypt(ciphertext, &key, &nonce)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(decoded, plaintext) {
		t.Fatalf("round trip mismatch:\n got %x\nwant %x", decoded, plaintext)
	}
}

func TestDecryptDifferentNonceDifferentStream(t *testing.T) {
	var key [KeySize]byte
	copy(key[:], []byte("0123456789abcdef0123456789abcdef"))

	var n1, n2 [NonceSize]byte
	n2[0] = 1

	plaintext := bytes.Repeat([]byte{0}, 296)

	c1, err := Encrypt(plaintext, &key, &n1)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := Encrypt(plaintext, &key, &n2)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(c1, c2) {
		t.Fatalf("keystream did not change with nonce")
	}
}

func TestDecryptRejectsEmptyBuffer(t *testing.T) {
	var key [KeySize]byte
	var nonce [NonceSize]byte
	if _, err := Decrypt(nil, &key, &nonce); err == nil {
		t.Fatalf("expected error for empty buffer")
	}
}

func TestDecryptMultiBlock(t *testing.T) {
	var key [KeySize]byte
	var nonce [NonceSize]byte
	for i := range key {
		key[i] = byte(i)
	}
	nonce[0] = 7

	// Exercise the keystream counter rolling over more than one 64-byte block.
	plaintext := bytes.Repeat([]byte{0xAB}, 296)
	ciphertext, err := Encrypt(plaintext, &key, &nonce)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decrypt(ciphertext, &key, &nonce)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, plaintext) {
		t.Fatalf("multi-block round trip mismatch")
	}
}
