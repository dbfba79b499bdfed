// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package voice owns the lifecycle of the single voice-model session: it
// composes the system instruction, multiplexes callouts/context/driver
// audio into the model, and demultiplexes model audio/text back out to the
// owning client. Starting a second session always tears
// down the first - there is never more than one live model connection.
package voice

import "time"

// Mode selects when driver audio is considered "live" for the model.
type Mode string

const (
	ModePushToTalk Mode = "push-to-talk"
	ModeAlwaysOpen Mode = "always-open"
)

// Personality bundles the style layered onto the fixed base instruction.
type Personality struct {
	ID          string `cbor:"id"`
	DisplayName string `cbor:"displayName"`
	Prompt      string `cbor:"prompt"`
	VoiceName   string `cbor:"voiceName"`
}

// SessionConfig is what a client's engineer:start request supplies.
// Verbosity isn't here: it gates the callout engine, not the model
// session, so onEngineerStart applies it directly to callout.Engine.
type SessionConfig struct {
	PersonalityID     string
	CustomPersonality string // free-form custom-instructions text, optional
	Mode              Mode
}

// State is the voice session's lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateActive     State = "active"
	StateClosing    State = "closing"
)

// ServerEvent is one unit of output from the model, demultiplexed from
// whatever shape the underlying Live API actually uses.
type ServerEvent struct {
	AudioBase64  string // 24kHz 16-bit PCM, base64, "" if this event carries no audio
	Text         string
	IsTranscript bool // true for driver-speech transcript, false for the model's own reply text
	TurnComplete bool
}

// TextKind distinguishes the two flavors of engineer:text payload.
type TextKind string

const (
	TextResponse   TextKind = "response"
	TextTranscript TextKind = "transcript"
	TextFallback   TextKind = "fallback" // callout forwarded as plain text, no active session
)

// Callbacks are the orchestrator's only connection to the outside world.
// Every callback is keyed by ownerID, the client connection ID that owns
// the session at the time the event was produced - sockets are never
// stored inside the orchestrator's long-lived state, only small
// per-session channels and these callbacks.
type Callbacks struct {
	OnModelAudio func(ownerID string, pcmBase64 string)
	OnModelText  func(ownerID string, text string, kind TextKind)
	OnStatus     func(ownerID string, connected bool, personality *Personality)
	OnError      func(ownerID string, message string)
	// OnFallbackText fires when a callout arrives with no active session
	// but the engineer is enabled; message goes to every client as plain
	// text so the dashboard history stays useful. timestampMs is the
	// callout's own fire time, not the time the fallback path ran it.
	OnFallbackText func(message string, timestampMs int64)
}

// contextTickInterval is how often the pipeline is expected to call
// UpdateContext. The orchestrator itself does not schedule the ticker and
// nothing in this package reads the value.
const contextTickInterval = 5 * time.Second
