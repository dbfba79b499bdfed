// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Handlers wires inbound socket events to the pipeline without the hub
// knowing anything about analyzers, engines or the voice orchestrator.
// Every callback is keyed by the client ID that produced the event, so
// the hub never needs to hand the orchestrator a socket directly.
type Handlers struct {
	OnConnect    func(ownerID string)
	OnDisconnect func(ownerID string)

	OnEngineerStart     func(ownerID string, req EngineerStartPayload)
	OnEngineerStop      func(ownerID string)
	OnEngineerVerbosity func(ownerID string, level int)
	OnEngineerAudioIn   func(ownerID string, pcmBase64 string)
	OnEngineerAudioEnd  func(ownerID string)

	OnConfigSetAPIKey          func(ownerID, apiKey string) AckResult
	OnConfigTestKey            func(ownerID string) AckResult
	OnConfigDeleteKey          func(ownerID string)
	OnConfigSetEngineerEnabled func(ownerID string, enabled bool)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks every connected browser client and fans telemetry/snapshots
// out to all of them. Per-session events (audio, text, status) go only to
// the owning client, looked up by ID.
type Hub struct {
	h   Handlers
	log logrus.FieldLogger

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub constructs a Hub. Call ServeHTTP from an http.Handler registered
// on the websocket endpoint.
func NewHub(h Handlers, log logrus.FieldLogger) *Hub {
	return &Hub{h: h, log: log, clients: make(map[string]*Client)}
}

// ServeHTTP upgrades the request to a websocket and runs the connection
// until it closes.
func (hub *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.WithError(err).Warn("transport: upgrade failed")
		return
	}

	client := newClient(uuid.NewString(), conn, hub.log)
	hub.register(client)
	defer hub.unregister(client)

	if hub.h.OnConnect != nil {
		hub.h.OnConnect(client.ID)
	}

	go client.writePump()
	go hub.drainAudio(client)

	hub.readPump(client)
}

func (hub *Hub) register(c *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.clients[c.ID] = c
}

func (hub *Hub) unregister(c *Client) {
	hub.mu.Lock()
	delete(hub.clients, c.ID)
	hub.mu.Unlock()

	c.markClosed()
	c.conn.Close()

	if hub.h.OnDisconnect != nil {
		hub.h.OnDisconnect(c.ID)
	}
}

// drainAudio forwards queued driver-audio chunks to the pipeline in order,
// one at a time, decoupling the (possibly slow) orchestrator call from the
// websocket read loop.
func (hub *Hub) drainAudio(c *Client) {
	for {
		select {
		case chunk := <-c.audioIn:
			if hub.h.OnEngineerAudioIn != nil {
				hub.h.OnEngineerAudioIn(c.ID, chunk)
			}
		case <-c.closed:
			return
		}
	}
}

func (hub *Hub) readPump(c *Client) {
	defer c.markClosed()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			hub.log.WithError(err).WithField("client", c.ID).Debug("transport: malformed inbound message")
			continue
		}
		hub.dispatch(c, env)
	}
}

func (hub *Hub) dispatch(c *Client, env envelope) {
	switch env.Event {
	case EventEngineerStart:
		var req EngineerStartPayload
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return
		}
		if hub.h.OnEngineerStart != nil {
			hub.h.OnEngineerStart(c.ID, req)
		}
	case EventEngineerStop:
		if hub.h.OnEngineerStop != nil {
			hub.h.OnEngineerStop(c.ID)
		}
	case EventEngineerVerbosity:
		var v EngineerVerbosityPayload
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return
		}
		if hub.h.OnEngineerVerbosity != nil {
			hub.h.OnEngineerVerbosity(c.ID, v.Level)
		}
	case EventEngineerAudioIn:
		var chunk string
		if err := json.Unmarshal(env.Payload, &chunk); err != nil {
			return
		}
		c.pushAudioChunk(chunk)
	case EventEngineerAudioEnd:
		if hub.h.OnEngineerAudioEnd != nil {
			hub.h.OnEngineerAudioEnd(c.ID)
		}
	case EventConfigSetAPIKey:
		var p ConfigSetAPIKeyPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		if hub.h.OnConfigSetAPIKey != nil {
			result := hub.h.OnConfigSetAPIKey(c.ID, p.APIKey)
			c.sendAck(EventConfigSetAPIKey, result, env.AckID)
		}
	case EventConfigTestKey:
		if hub.h.OnConfigTestKey != nil {
			result := hub.h.OnConfigTestKey(c.ID)
			c.sendAck(EventConfigTestKey, result, env.AckID)
		}
	case EventConfigDeleteKey:
		if hub.h.OnConfigDeleteKey != nil {
			hub.h.OnConfigDeleteKey(c.ID)
		}
	case EventConfigSetEngineerEnabled:
		var p ConfigSetEngineerEnabledPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		if hub.h.OnConfigSetEngineerEnabled != nil {
			hub.h.OnConfigSetEngineerEnabled(c.ID, p.Enabled)
		}
	}
}

// BroadcastTelemetry sends the latest frame to every connected client.
func (hub *Hub) BroadcastTelemetry(payload any) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for _, c := range hub.clients {
		c.sendTelemetry(EventTelemetry, payload)
	}
}

// BroadcastSnapshot sends the 1 Hz analyzer snapshot to every client.
func (hub *Hub) BroadcastSnapshot(payload any) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for _, c := range hub.clients {
		c.sendTelemetry(EventTelemetrySnapshot, payload)
	}
}

// BroadcastConfigState sends the current config summary to every client,
// used after any mutation so every dashboard stays in sync.
func (hub *Hub) BroadcastConfigState(state ConfigStatePayload) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for _, c := range hub.clients {
		c.sendGeneral(EventConfigState, state)
	}
}

// BroadcastFallbackText sends a plaintext callout to every client, used
// when the voice orchestrator has no active session. timestampMs is the
// callout's own fire time, carried through rather than restamped here.
func (hub *Hub) BroadcastFallbackText(message string, timestampMs int64) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	payload := EngineerTextPayload{Text: message, Type: "fallback", Timestamp: timestampMs}
	for _, c := range hub.clients {
		c.sendGeneral(EventEngineerText, payload)
	}
}

// SendAudioOut routes a model audio chunk to the client that owns the
// session it came from.
func (hub *Hub) SendAudioOut(ownerID, pcmBase64 string) {
	if c := hub.lookup(ownerID); c != nil {
		c.sendGeneral(EventEngineerAudioOut, pcmBase64)
	}
}

// SendText routes a model transcript or response to the owning client.
func (hub *Hub) SendText(ownerID, text, kind string) {
	if c := hub.lookup(ownerID); c != nil {
		c.sendGeneral(EventEngineerText, EngineerTextPayload{Text: text, Type: kind, Timestamp: nowMs()})
	}
}

// SendStatus routes a session status change to the owning client.
func (hub *Hub) SendStatus(ownerID string, connected bool, personality *Personality) {
	if c := hub.lookup(ownerID); c != nil {
		c.sendGeneral(EventEngineerStatus, EngineerStatusPayload{Connected: connected, Personality: personality})
	}
}

// SendError routes a session-level error to the owning client.
func (hub *Hub) SendError(ownerID, message string) {
	if c := hub.lookup(ownerID); c != nil {
		c.sendGeneral(EventEngineerError, EngineerErrorPayload{Message: message})
	}
}

func (hub *Hub) lookup(ownerID string) *Client {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return hub.clients[ownerID]
}
