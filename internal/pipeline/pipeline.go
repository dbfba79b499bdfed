// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package pipeline wires together every other internal package into the
// running system: UDP discovery feeds the frame decoder, the decoder feeds
// the fan-out stage, fan-out feeds the analyzer/logger/client broadcast,
// and two schedulers (1 Hz analyzer tick, ~5 s context tick) drive the
// callout engine and the voice orchestrator. It is the control plane:
// one task per long-lived stage, a small set of callbacks tying transport
// to the orchestrator instead of shared sockets.
package pipeline

import (
	"context"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marcelscruz/open-gt/internal/analyzer"
	"github.com/marcelscruz/open-gt/internal/callout"
	"github.com/marcelscruz/open-gt/internal/cipher"
	"github.com/marcelscruz/open-gt/internal/config"
	"github.com/marcelscruz/open-gt/internal/discovery"
	"github.com/marcelscruz/open-gt/internal/fanout"
	"github.com/marcelscruz/open-gt/internal/sessionlog"
	"github.com/marcelscruz/open-gt/internal/telemetry"
	"github.com/marcelscruz/open-gt/internal/transport"
	"github.com/marcelscruz/open-gt/internal/voice"
)

// contextTickInterval is how often the orchestrator gets a fresh
// background context block.
const contextTickInterval = 5 * time.Second

// analyzerTickInterval drives the periodic callout evaluation.
const analyzerTickInterval = time.Second

// Config configures a Pipeline. Zero values pick the same defaults the
// individual packages already default to.
type Config struct {
	Discovery     discovery.Config
	BroadcastHz   float64
	SessionLogDir string
	ConfigPath    string
	Verbosity     int
	EnvAPIKey     string // GEMINI_API_KEY override, applied at startup
}

// Pipeline owns every long-lived component and the goroutines that tie
// them together.
type Pipeline struct {
	log logrus.FieldLogger
	cfg Config

	key          [cipher.KeySize]byte
	discovery    *discovery.Discovery
	fanout       *fanout.Fanout
	analyzer     *analyzer.Analyzer
	engine       *callout.Engine
	sessionLog   *sessionlog.Logger
	orchestrator *voice.Orchestrator
	configStore  *config.Store
	hub          *transport.Hub
}

// New constructs a Pipeline. It performs no I/O; call Run to start it.
func New(cfg Config, log logrus.FieldLogger) *Pipeline {
	if cfg.Verbosity == 0 {
		cfg.Verbosity = 2
	}

	p := &Pipeline{
		log:        log,
		cfg:        cfg,
		key:        telemetry.Key(),
		engine:     callout.New(cfg.Verbosity),
		sessionLog: sessionlog.New(cfg.SessionLogDir, log.WithField("component", "sessionlog")),
	}

	p.configStore = config.New(cfg.ConfigPath, log.WithField("component", "config"))
	if cfg.EnvAPIKey != "" {
		p.configStore.ApplyEnvOverride(cfg.EnvAPIKey)
	}

	p.analyzer = analyzer.New(p.onLapComplete)

	p.hub = transport.NewHub(transport.Handlers{
		OnConnect:                  p.onClientConnect,
		OnDisconnect:               p.onClientDisconnect,
		OnEngineerStart:            p.onEngineerStart,
		OnEngineerStop:             p.onEngineerStop,
		OnEngineerVerbosity:        p.onEngineerVerbosity,
		OnEngineerAudioIn:          p.onEngineerAudioIn,
		OnEngineerAudioEnd:         p.onEngineerAudioEnd,
		OnConfigSetAPIKey:          p.onConfigSetAPIKey,
		OnConfigTestKey:            p.onConfigTestKey,
		OnConfigDeleteKey:          p.onConfigDeleteKey,
		OnConfigSetEngineerEnabled: p.onConfigSetEngineerEnabled,
	}, log.WithField("component", "transport"))

	p.orchestrator = voice.New(nil, p.currentAPIKey, p.engineerEnabled, voice.Callbacks{
		OnModelAudio:   p.hub.SendAudioOut,
		OnModelText:    func(ownerID, text string, kind voice.TextKind) { p.hub.SendText(ownerID, text, string(kind)) },
		OnStatus:       p.onOrchestratorStatus,
		OnError:        p.hub.SendError,
		OnFallbackText: p.hub.BroadcastFallbackText,
	}, log.WithField("component", "voice"))

	p.fanout = fanout.New(cfg.BroadcastHz, p.analyzer.Ingest, p.sessionLog.Ingest, p.broadcastFrame)

	p.discovery = discovery.New(cfg.Discovery, p.decodeAndSubmit, log.WithField("component", "discovery"))

	return p
}

// HTTPHandler exposes the websocket endpoint for cmd/serve.go to mount.
func (p *Pipeline) HTTPHandler() http.Handler {
	return http.HandlerFunc(p.hub.ServeHTTP)
}

// Run starts every background goroutine and blocks until ctx is cancelled.
// Discovery's bind failure is fatal and is returned to the caller.
func (p *Pipeline) Run(ctx context.Context) error {
	go p.configStore.Run()
	defer p.configStore.Close()

	go p.analyzerTickLoop(ctx)
	go p.contextTickLoop(ctx)

	err := p.discovery.Run(ctx)

	p.orchestrator.Shutdown()
	p.sessionLog.Close()

	return err
}

func (p *Pipeline) decodeAndSubmit(payload []byte, from *net.UDPAddr) bool {
	frame, err := telemetry.Decode(payload, &p.key)
	if err != nil {
		p.log.WithError(err).Debug("pipeline: dropped datagram")
		return false
	}
	p.fanout.Submit(frame)
	return true
}

func (p *Pipeline) broadcastFrame(f *telemetry.Frame) {
	p.hub.BroadcastTelemetry(f)
}

func (p *Pipeline) onLapComplete() {
	snap := p.analyzer.Snapshot()
	callouts := p.engine.EvaluateOnLapComplete(time.Now(), snap)
	if len(callouts) == 0 {
		return
	}
	p.orchestrator.DeliverCallouts(context.Background(), callouts)
}

func (p *Pipeline) analyzerTickLoop(ctx context.Context) {
	ticker := time.NewTicker(analyzerTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := p.analyzer.Snapshot()
			wire := snap
			// encoding/json cannot encode +Inf; an unknown laps-remaining
			// estimate goes out as -1.
			if math.IsInf(wire.EstimatedLapsRemaining, 0) {
				wire.EstimatedLapsRemaining = -1
			}
			p.hub.BroadcastSnapshot(wire)
			callouts := p.engine.EvaluatePeriodic(time.Now(), snap)
			if len(callouts) > 0 {
				p.orchestrator.DeliverCallouts(ctx, callouts)
			}
		}
	}
}

func (p *Pipeline) contextTickLoop(ctx context.Context) {
	ticker := time.NewTicker(contextTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.orchestrator.UpdateContext(ctx, p.analyzer.Snapshot())
		}
	}
}

func (p *Pipeline) currentAPIKey() string {
	return p.configStore.Current().APIKey
}

func (p *Pipeline) engineerEnabled() bool {
	return p.configStore.Current().EngineerEnabled
}

func (p *Pipeline) onOrchestratorStatus(ownerID string, connected bool, personality *voice.Personality) {
	var wire *transport.Personality
	if personality != nil {
		wire = &transport.Personality{ID: personality.ID, DisplayName: personality.DisplayName, VoiceName: personality.VoiceName}
	}
	p.hub.SendStatus(ownerID, connected, wire)
}

func (p *Pipeline) onClientConnect(ownerID string) {
	p.hub.BroadcastConfigState(p.configState())
}

// onClientDisconnect ends any voice session the disconnecting client owned.
// Stop is a no-op if the session belongs to someone else or none is open.
func (p *Pipeline) onClientDisconnect(ownerID string) {
	p.orchestrator.Stop(ownerID)
}

func (p *Pipeline) configState() transport.ConfigStatePayload {
	cfg := p.configStore.Current()
	return transport.ConfigStatePayload{
		APIKeyHint:      cfg.Hint(),
		HasAPIKey:       cfg.HasKey(),
		EngineerEnabled: cfg.EngineerEnabled,
	}
}

func (p *Pipeline) onEngineerStart(ownerID string, req transport.EngineerStartPayload) {
	verbosity := req.Verbosity
	if verbosity == 0 {
		verbosity = p.cfg.Verbosity
	}
	p.engine.SetVerbosity(verbosity)

	mode := voice.ModePushToTalk
	if req.Mode == string(voice.ModeAlwaysOpen) {
		mode = voice.ModeAlwaysOpen
	}
	p.orchestrator.Start(voice.StartRequest{
		OwnerID: ownerID,
		Config: voice.SessionConfig{
			PersonalityID:     req.PersonalityID,
			CustomPersonality: req.CustomPersonality,
			Mode:              mode,
		},
	})
}

func (p *Pipeline) onEngineerStop(ownerID string) {
	p.orchestrator.Stop(ownerID)
}

func (p *Pipeline) onEngineerVerbosity(ownerID string, level int) {
	p.engine.SetVerbosity(level)
}

func (p *Pipeline) onEngineerAudioIn(ownerID, pcmBase64 string) {
	p.orchestrator.SendDriverAudio(context.Background(), ownerID, pcmBase64)
}

func (p *Pipeline) onEngineerAudioEnd(ownerID string) {
	p.orchestrator.EndDriverAudio(context.Background(), ownerID)
}

func (p *Pipeline) onConfigSetAPIKey(ownerID, apiKey string) transport.AckResult {
	result := config.Validate(context.Background(), apiKey)
	if err := p.configStore.Update(apiKey, p.engineerEnabled()); err != nil {
		p.log.WithError(err).Error("pipeline: persist API key failed")
	}
	p.hub.BroadcastConfigState(p.configStateWithValidity(result.Valid))
	return transport.AckResult{Valid: result.Valid, Error: string(result.Category)}
}

func (p *Pipeline) onConfigTestKey(ownerID string) transport.AckResult {
	result := config.Validate(context.Background(), p.currentAPIKey())
	return transport.AckResult{Valid: result.Valid, Error: string(result.Category)}
}

func (p *Pipeline) onConfigDeleteKey(ownerID string) {
	if err := p.configStore.DeleteKey(); err != nil {
		p.log.WithError(err).Error("pipeline: delete API key failed")
	}
	p.hub.BroadcastConfigState(p.configState())
}

func (p *Pipeline) onConfigSetEngineerEnabled(ownerID string, enabled bool) {
	if err := p.configStore.SetEngineerEnabled(enabled); err != nil {
		p.log.WithError(err).Error("pipeline: persist engineer-enabled flag failed")
	}
	p.hub.BroadcastConfigState(p.configState())
}

func (p *Pipeline) configStateWithValidity(valid bool) transport.ConfigStatePayload {
	state := p.configState()
	state.APIKeyValid = valid
	return state
}
