// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scryptN/scryptR/scryptP are the cost parameters for deriving the at-rest
// key. They follow the scrypt package's own documented interactive-use
// defaults.
const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32 // AES-256

	// scryptSalt is fixed rather than random: the point of host-derivation
	// is that copying the config file to another machine makes it
	// unreadable, not that two runs on the same machine produce different
	// ciphertext for the same key.
	scryptSalt = "open-gt/engineer-config/v1"
)

// hostSeed returns the machine-specific material the at-rest key is
// derived from. It deliberately does not reach for anything requiring
// elevated privilege or platform-specific APIs: hostname plus the
// machine-id file Linux systems expose is enough to make the file
// unusable off-host without being fragile across platforms.
func hostSeed() ([]byte, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("config: read hostname: %w", err)
	}
	seed := host
	if id, err := os.ReadFile("/etc/machine-id"); err == nil {
		seed += ":" + strings.TrimSpace(string(id))
	}
	return []byte(seed), nil
}

func deriveKey() ([]byte, error) {
	seed, err := hostSeed()
	if err != nil {
		return nil, err
	}
	key, err := scrypt.Key(seed, []byte(scryptSalt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("config: derive key: %w", err)
	}
	return key, nil
}

// encryptAPIKey seals plaintext with AES-256-GCM under the host-derived
// key, returning the wire form "iv:tag:ciphertext" in hex. GCM appends its
// own tag to the ciphertext, so "tag" here is the trailing 16 bytes of that
// blob rather than a separately tracked value - the field name in the wire
// format refers to what it protects, not how Go's GCM implementation
// happens to lay out bytes.
func encryptAPIKey(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	key, err := deriveKey()
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("config: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("config: new gcm: %w", err)
	}
	iv := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("config: generate iv: %w", err)
	}
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]
	return fmt.Sprintf("%s:%s:%s", hex.EncodeToString(iv), hex.EncodeToString(tag), hex.EncodeToString(ciphertext)), nil
}

// decryptAPIKey reverses encryptAPIKey. A corrupt or foreign-host record
// is a config error: callers treat any error here as "start with
// empty config", not a crash.
func decryptAPIKey(wire string) (string, error) {
	if wire == "" {
		return "", nil
	}
	parts := strings.SplitN(wire, ":", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("config: malformed encrypted record")
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("config: decode iv: %w", err)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("config: decode tag: %w", err)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("config: decode ciphertext: %w", err)
	}
	key, err := deriveKey()
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("config: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("config: new gcm: %w", err)
	}
	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("config: decrypt: %w", err)
	}
	return string(plaintext), nil
}
