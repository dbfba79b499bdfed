// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// generalSendBuffer is sized generously: text and control events
	// are low-rate and should never hit their bound in healthy operation.
	generalSendBuffer = 256
	// telemetrySendBuffer holds exactly the latest frame or snapshot; on
	// overflow the queued value is replaced by the newer one, so a slow
	// client just skips frames.
	telemetrySendBuffer = 1
	// audioInBuffer is small on purpose: overflow policy is drop-oldest, so
	// a backed-up driver-audio consumer only ever loses stale chunks.
	audioInBuffer = 8

	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Client is one connected browser socket. Its ID doubles as the ownerID the
// voice orchestrator and config acks key their callbacks on.
type Client struct {
	ID   string
	conn *websocket.Conn
	log  logrus.FieldLogger

	general   chan envelope
	telemetry chan envelope
	audioIn   chan string

	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(id string, conn *websocket.Conn, log logrus.FieldLogger) *Client {
	return &Client{
		ID:        id,
		conn:      conn,
		log:       log,
		general:   make(chan envelope, generalSendBuffer),
		telemetry: make(chan envelope, telemetrySendBuffer),
		audioIn:   make(chan string, audioInBuffer),
		closed:    make(chan struct{}),
	}
}

// sendGeneral enqueues a low-rate event. It blocks briefly if the buffer is
// momentarily full rather than dropping, since text and control events are
// expected to be delivered reliably.
func (c *Client) sendGeneral(event string, payload any) {
	env, err := buildEnvelope(event, payload)
	if err != nil {
		c.log.WithError(err).WithField("event", event).Error("transport: encode outbound payload failed")
		return
	}
	select {
	case c.general <- env:
	case <-c.closed:
	}
}

// sendAck enqueues a reply to a request envelope, echoing its ackId so the
// caller can match the reply to the request that triggered it.
func (c *Client) sendAck(event string, payload any, ackID string) {
	env, err := buildEnvelope(event, payload)
	if err != nil {
		c.log.WithError(err).WithField("event", event).Error("transport: encode outbound payload failed")
		return
	}
	env.AckID = ackID
	select {
	case c.general <- env:
	case <-c.closed:
	}
}

// sendTelemetry enqueues a telemetry-class event, overwriting whatever is
// already queued: drop-newest at the channel level would stall on a slow
// client, so instead the queue holds only the freshest value.
func (c *Client) sendTelemetry(event string, payload any) {
	env, err := buildEnvelope(event, payload)
	if err != nil {
		c.log.WithError(err).WithField("event", event).Error("transport: encode outbound payload failed")
		return
	}
	select {
	case c.telemetry <- env:
	default:
		select {
		case <-c.telemetry:
		default:
		}
		select {
		case c.telemetry <- env:
		default:
		}
	}
}

// markClosed signals c.closed exactly once, however many goroutines call it.
func (c *Client) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func buildEnvelope(event string, payload any) (envelope, error) {
	if payload == nil {
		return envelope{Event: event}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return envelope{}, err
	}
	return envelope{Event: event, Payload: raw}, nil
}

// writePump serializes every enqueued envelope onto the socket, plus
// periodic pings. It is the only goroutine that ever calls WriteMessage,
// per gorilla/websocket's one-writer-at-a-time requirement.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case env := <-c.telemetry:
			if !c.writeJSON(env) {
				return
			}
		case env := <-c.general:
			if !c.writeJSON(env) {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *Client) writeJSON(env envelope) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(env); err != nil {
		c.log.WithError(err).WithField("client", c.ID).Debug("transport: write failed")
		return false
	}
	return true
}

// pushAudioChunk enqueues one base64 PCM chunk from this client, dropping
// the oldest queued chunk when the buffer is full so the orchestrator
// always sees the freshest end of the utterance.
func (c *Client) pushAudioChunk(pcmBase64 string) {
	select {
	case c.audioIn <- pcmBase64:
	default:
		select {
		case <-c.audioIn:
		default:
		}
		select {
		case c.audioIn <- pcmBase64:
		default:
		}
	}
}
