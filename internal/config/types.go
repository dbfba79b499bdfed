// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config owns AppConfig: the voice model's API key and the
// engineer-enabled flag. The record is persisted encrypted at rest with a
// host-derived key, loaded once at startup, and mutated only through the
// Store's small API (Update, DeleteKey) so reads never race a write.
package config

import "time"

// AppConfig is the in-memory configuration record. APIKey is held in
// plaintext only in memory; it is never logged and never serialized
// unencrypted.
type AppConfig struct {
	APIKey          string
	EngineerEnabled bool
}

// Hint returns a display-safe fragment of the key: the last 4 characters,
// prefixed with bullets, or "" when no key is set. Matches the
// config:state wire payload's apiKeyHint field.
func (c AppConfig) Hint() string {
	if len(c.APIKey) < 4 {
		return ""
	}
	return "••••" + c.APIKey[len(c.APIKey)-4:]
}

// HasKey reports whether an API key is currently configured.
func (c AppConfig) HasKey() bool {
	return c.APIKey != ""
}

// ErrorCategory classifies why a key-validation call failed.
type ErrorCategory string

const (
	ErrorNone             ErrorCategory = ""
	ErrorEmpty            ErrorCategory = "empty"
	ErrorInvalid          ErrorCategory = "invalid"
	ErrorPermissionDenied ErrorCategory = "permission-denied"
	ErrorQuota            ErrorCategory = "quota"
	ErrorNetwork          ErrorCategory = "network"
	ErrorUnknown          ErrorCategory = "unknown"
)

// ValidationResult is the outcome of a key-validation call.
type ValidationResult struct {
	Valid    bool
	Category ErrorCategory
	Err      error
}

// ValidateTimeout bounds the cheap, non-billed provider call Validate makes.
const ValidateTimeout = 8 * time.Second

// persistedRecord is the on-disk JSON shape: the encrypted key (empty
// string when no key is configured) and the engineer-enabled flag. The
// encrypted key's wire form is "iv:tag:ciphertext" hex.
type persistedRecord struct {
	EncryptedAPIKey string `json:"encryptedApiKey"`
	EngineerEnabled bool   `json:"engineerEnabled"`
}
