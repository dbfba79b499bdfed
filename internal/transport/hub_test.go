// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestSendTelemetryOverwritesQueuedFrame(t *testing.T) {
	c := newClient("client-1", nil, discardLogger())

	c.sendTelemetry(EventTelemetry, map[string]int{"seq": 1})
	c.sendTelemetry(EventTelemetry, map[string]int{"seq": 2})

	if len(c.telemetry) != 1 {
		t.Fatalf("expected exactly one queued telemetry envelope, got %d", len(c.telemetry))
	}
	env := <-c.telemetry
	var payload map[string]int
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["seq"] != 2 {
		t.Fatalf("expected the newer frame to survive, got seq=%d", payload["seq"])
	}
}

func TestPushAudioChunkDropsOldestOnOverflow(t *testing.T) {
	c := newClient("client-1", nil, discardLogger())

	for i := 0; i < audioInBuffer+2; i++ {
		c.pushAudioChunk(string(rune('a' + i)))
	}

	if len(c.audioIn) != audioInBuffer {
		t.Fatalf("expected the buffer to stay at cap %d, got %d", audioInBuffer, len(c.audioIn))
	}

	first := <-c.audioIn
	if first == "a" {
		t.Fatalf("expected the oldest chunk to have been dropped, got it still queued")
	}
}

func TestDispatchEngineerStartInvokesHandler(t *testing.T) {
	var gotOwner string
	var gotReq EngineerStartPayload

	hub := NewHub(Handlers{
		OnEngineerStart: func(ownerID string, req EngineerStartPayload) {
			gotOwner = ownerID
			gotReq = req
		},
	}, discardLogger())

	c := newClient("client-42", nil, discardLogger())
	payload, _ := json.Marshal(EngineerStartPayload{PersonalityID: "hype-spotter", Verbosity: 2})
	hub.dispatch(c, envelope{Event: EventEngineerStart, Payload: payload})

	if gotOwner != "client-42" {
		t.Fatalf("expected owner client-42, got %q", gotOwner)
	}
	if gotReq.PersonalityID != "hype-spotter" || gotReq.Verbosity != 2 {
		t.Fatalf("unexpected decoded payload: %+v", gotReq)
	}
}

func TestDispatchConfigSetAPIKeySendsAck(t *testing.T) {
	hub := NewHub(Handlers{
		OnConfigSetAPIKey: func(ownerID, apiKey string) AckResult {
			return AckResult{Valid: apiKey == "good-key"}
		},
	}, discardLogger())

	c := newClient("client-1", nil, discardLogger())
	payload, _ := json.Marshal(ConfigSetAPIKeyPayload{APIKey: "good-key"})
	hub.dispatch(c, envelope{Event: EventConfigSetAPIKey, Payload: payload})

	select {
	case env := <-c.general:
		var ack AckResult
		if err := json.Unmarshal(env.Payload, &ack); err != nil {
			t.Fatalf("unmarshal ack: %v", err)
		}
		if !ack.Valid {
			t.Fatalf("expected ack.Valid = true")
		}
	default:
		t.Fatalf("expected an ack envelope to be queued")
	}
}
