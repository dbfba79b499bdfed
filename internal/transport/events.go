// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport is the client-facing side of the pipeline: a
// gorilla/websocket hub broadcasting telemetry and snapshots to every
// connected browser, and per-connection routing for the voice-engineer and
// config event surfaces. It never holds a socket inside another package's
// long-lived state - callers reach it only through Hub's methods and the
// Handlers callbacks it invokes.
package transport

import (
	"encoding/json"
	"time"
)

// Event names, exactly as they cross the wire.
const (
	EventTelemetry         = "telemetry"
	EventTelemetrySnapshot = "telemetry:snapshot"

	EventEngineerStart     = "engineer:start"
	EventEngineerStop      = "engineer:stop"
	EventEngineerVerbosity = "engineer:verbosity"
	EventEngineerAudioIn   = "engineer:audio:in"
	EventEngineerAudioEnd  = "engineer:audio:end"
	EventEngineerAudioOut  = "engineer:audio:out"
	EventEngineerText      = "engineer:text"
	EventEngineerStatus    = "engineer:status"
	EventEngineerError     = "engineer:error"

	EventConfigState              = "config:state"
	EventConfigSetAPIKey          = "config:setApiKey"
	EventConfigTestKey            = "config:testKey"
	EventConfigDeleteKey          = "config:deleteKey"
	EventConfigSetEngineerEnabled = "config:setEngineerEnabled"
)

// envelope is the wire shape every message takes in both directions: a
// named event plus a raw payload the specific handler decodes.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	AckID   string          `json:"ackId,omitempty"`
}

// EngineerStartPayload is engineer:start's inbound body.
type EngineerStartPayload struct {
	PersonalityID     string `json:"personalityId,omitempty"`
	CustomPersonality string `json:"customPersonality,omitempty"`
	Verbosity         int    `json:"verbosity,omitempty"`
	Mode              string `json:"mode,omitempty"`
}

// EngineerVerbosityPayload is engineer:verbosity's inbound body.
type EngineerVerbosityPayload struct {
	Level int `json:"level"`
}

// EngineerTextPayload is engineer:text's outbound body.
type EngineerTextPayload struct {
	Text      string `json:"text"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// EngineerStatusPayload is engineer:status's outbound body.
type EngineerStatusPayload struct {
	Connected   bool         `json:"connected"`
	Personality *Personality `json:"personality,omitempty"`
}

// Personality is the wire shape of a voice personality summary.
type Personality struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	VoiceName   string `json:"voiceName"`
}

// EngineerErrorPayload is engineer:error's outbound body.
type EngineerErrorPayload struct {
	Message string `json:"message"`
}

// ConfigStatePayload is config:state's outbound body.
type ConfigStatePayload struct {
	APIKeyHint      string `json:"apiKeyHint"`
	HasAPIKey       bool   `json:"hasApiKey"`
	EngineerEnabled bool   `json:"engineerEnabled"`
	APIKeyValid     bool   `json:"apiKeyValid"`
}

// ConfigSetAPIKeyPayload is config:setApiKey's inbound body.
type ConfigSetAPIKeyPayload struct {
	APIKey string `json:"apiKey"`
}

// ConfigSetEngineerEnabledPayload is config:setEngineerEnabled's inbound body.
type ConfigSetEngineerEnabledPayload struct {
	Enabled bool `json:"enabled"`
}

// AckResult is the shared shape of the setApiKey/testKey acks.
type AckResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
