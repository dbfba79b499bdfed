// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package voice

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/marcelscruz/open-gt/internal/analyzer"
	"github.com/marcelscruz/open-gt/internal/callout"
)

// StartRequest is what a client's engineer:start event carries.
type StartRequest struct {
	OwnerID string // the client connection ID that will own the session
	Config  SessionConfig
}

// liveSession is the orchestrator's private bookkeeping for the one
// session it may have open. model is nil while State is Connecting.
type liveSession struct {
	id          string
	ownerID     string
	personality Personality
	mode        Mode
	model       ModelSession
	cancel      context.CancelFunc
}

// Orchestrator owns at most one liveSession at a time. Every
// exported method takes the lock only long enough to read or swap the
// session pointer; the network I/O itself never happens while mu is held.
type Orchestrator struct {
	log             logrus.FieldLogger
	factory         ModelFactory
	cb              Callbacks
	apiKey          func() string
	engineerEnabled func() bool

	mu      sync.Mutex
	session *liveSession
}

// New constructs an Orchestrator. A nil factory uses the production
// genai-backed one; tests pass a fake.
func New(factory ModelFactory, apiKey func() string, engineerEnabled func() bool, cb Callbacks, log logrus.FieldLogger) *Orchestrator {
	if factory == nil {
		factory = connectGenAI
	}
	return &Orchestrator{factory: factory, apiKey: apiKey, engineerEnabled: engineerEnabled, cb: cb, log: log}
}

// Start tears down any session currently open, regardless of who owns it,
// and begins connecting a new one for req.OwnerID. When two Starts race,
// whichever acquires the lock second wins deterministically: it tears the
// first down (notifying its owner via OnStatus) before beginning its own
// connect.
func (o *Orchestrator) Start(req StartRequest) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.teardownLocked()

	key := o.apiKey()
	if key == "" {
		if o.cb.OnError != nil {
			o.cb.OnError(req.OwnerID, "no API key configured")
		}
		return
	}

	personality := Lookup(req.Config.PersonalityID)
	instruction := ComposeInstruction(personality, req.Config.CustomPersonality)

	ctx, cancel := context.WithCancel(context.Background())
	session := &liveSession{
		id:          uuid.NewString(),
		ownerID:     req.OwnerID,
		personality: personality,
		mode:        req.Config.Mode,
		cancel:      cancel,
	}
	o.session = session

	go o.connectAndRun(ctx, session, key, instruction, personality.VoiceName)
}

func (o *Orchestrator) connectAndRun(ctx context.Context, session *liveSession, apiKey, instruction, voiceName string) {
	model, err := o.factory(ctx, apiKey, instruction, voiceName)
	if err != nil {
		o.log.WithError(err).Error("voice: session connect failed")
		if o.cb.OnError != nil {
			o.cb.OnError(session.ownerID, err.Error())
		}
		o.mu.Lock()
		if o.session == session {
			o.session = nil
		}
		o.mu.Unlock()
		return
	}

	o.mu.Lock()
	if o.session != session {
		// Superseded by a later Start while we were still connecting.
		o.mu.Unlock()
		model.Close()
		return
	}
	session.model = model
	o.mu.Unlock()

	o.log.WithFields(logrus.Fields{"session": session.id, "owner": session.ownerID}).Info("voice: session active")
	if o.cb.OnStatus != nil {
		o.cb.OnStatus(session.ownerID, true, &session.personality)
	}

	for {
		ev, err := model.Recv()
		if err != nil {
			o.log.WithError(err).Warn("voice: model session ended")
			if o.cb.OnError != nil {
				o.cb.OnError(session.ownerID, "voice session ended: "+err.Error())
			}
			break
		}
		if ctx.Err() != nil {
			break
		}
		if ev.AudioBase64 != "" && o.cb.OnModelAudio != nil {
			o.cb.OnModelAudio(session.ownerID, ev.AudioBase64)
		}
		if ev.Text != "" && o.cb.OnModelText != nil {
			kind := TextResponse
			if ev.IsTranscript {
				kind = TextTranscript
			}
			o.cb.OnModelText(session.ownerID, ev.Text, kind)
		}
	}

	o.mu.Lock()
	wasCurrent := o.session == session
	if wasCurrent {
		o.session = nil
	}
	o.mu.Unlock()

	if wasCurrent && o.cb.OnStatus != nil {
		o.cb.OnStatus(session.ownerID, false, nil)
	}
}

// teardownLocked cancels and closes the current session, if any, and
// notifies its owner. Callers must hold o.mu.
func (o *Orchestrator) teardownLocked() {
	if o.session == nil {
		return
	}
	prev := o.session
	o.session = nil
	prev.cancel()
	if prev.model != nil {
		if err := prev.model.Close(); err != nil {
			o.log.WithError(err).Debug("voice: close model session failed")
		}
	}
	if o.cb.OnStatus != nil {
		o.cb.OnStatus(prev.ownerID, false, nil)
	}
}

// Stop ends the session if it belongs to ownerID. A stop from a client
// that does not own the current session is a no-op.
func (o *Orchestrator) Stop(ownerID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil && o.session.ownerID == ownerID {
		o.teardownLocked()
	}
}

// Shutdown tears down any active session unconditionally, for process exit.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.teardownLocked()
}

// DeliverCallouts routes a tick's worth of callouts, in order, to the
// active session as user-role text turns. With no active session but the
// engineer enabled, it forwards each callout's plaintext message via
// OnFallbackText instead.
func (o *Orchestrator) DeliverCallouts(ctx context.Context, callouts []callout.Callout) {
	o.mu.Lock()
	session := o.session
	o.mu.Unlock()

	if session != nil && session.model != nil {
		for _, c := range callouts {
			if err := session.model.SendText(ctx, FormatCalloutTurn(c), true); err != nil {
				o.log.WithError(err).Warn("voice: send callout failed")
			}
		}
		return
	}

	if o.engineerEnabled != nil && o.engineerEnabled() && o.cb.OnFallbackText != nil {
		for _, c := range callouts {
			o.cb.OnFallbackText(c.Message, c.TimestampMs)
		}
	}
}

// UpdateContext sends the ~5s background context block. It is a no-op
// with no active session.
func (o *Orchestrator) UpdateContext(ctx context.Context, snap analyzer.Snapshot) {
	o.mu.Lock()
	session := o.session
	o.mu.Unlock()
	if session == nil || session.model == nil {
		return
	}
	if err := session.model.SendText(ctx, FormatContextTurn(FormatContext(snap)), false); err != nil {
		o.log.WithError(err).Warn("voice: send context failed")
	}
}

// SendDriverAudio forwards one base64 PCM chunk from ownerID's client to
// the model, if ownerID currently owns the active session.
func (o *Orchestrator) SendDriverAudio(ctx context.Context, ownerID, pcmBase64 string) {
	session := o.ownedSession(ownerID)
	if session == nil {
		return
	}
	if err := session.model.SendAudioChunk(ctx, pcmBase64); err != nil {
		o.log.WithError(err).Warn("voice: send driver audio failed")
	}
}

// EndDriverAudio signals end-of-utterance to the model.
func (o *Orchestrator) EndDriverAudio(ctx context.Context, ownerID string) {
	session := o.ownedSession(ownerID)
	if session == nil {
		return
	}
	if err := session.model.SendAudioStreamEnd(ctx); err != nil {
		o.log.WithError(err).Warn("voice: send audio stream end failed")
	}
}

func (o *Orchestrator) ownedSession(ownerID string) *liveSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil || o.session.ownerID != ownerID || o.session.model == nil {
		return nil
	}
	return o.session
}

// ActiveOwner reports the connection ID that owns the current session, and
// whether one exists.
func (o *Orchestrator) ActiveOwner() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return "", false
	}
	return o.session.ownerID, true
}
