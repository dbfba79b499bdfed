// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/marcelscruz/open-gt/internal/transport"
)

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		SessionLogDir: filepath.Join(dir, "sessions"),
		ConfigPath:    filepath.Join(dir, "config.json"),
		Verbosity:     2,
	}
	return New(cfg, discardLogger())
}

func TestDecodeAndSubmitRejectsShortDatagram(t *testing.T) {
	p := newTestPipeline(t)
	if p.decodeAndSubmit(make([]byte, 10), nil) {
		t.Fatalf("expected a short datagram to be rejected")
	}
}

func TestOnConfigSetAPIKeyEmptyKeyIsCategorizedEmpty(t *testing.T) {
	p := newTestPipeline(t)
	go p.configStore.Run()
	defer p.configStore.Close()

	ack := p.onConfigSetAPIKey("client-1", "")
	if ack.Valid {
		t.Fatalf("expected an empty key to be invalid")
	}
	if ack.Error != "empty" {
		t.Fatalf("expected error category %q, got %q", "empty", ack.Error)
	}
}

func TestOnConfigDeleteKeyClearsStoredKey(t *testing.T) {
	p := newTestPipeline(t)
	go p.configStore.Run()
	defer p.configStore.Close()

	if err := p.configStore.Update("some-key", true); err != nil {
		t.Fatalf("Update: %v", err)
	}
	p.onConfigDeleteKey("client-1")

	if p.configStore.Current().HasKey() {
		t.Fatalf("expected the key to be cleared")
	}
}

func TestOnEngineerStartWithoutKeyDoesNotPanic(t *testing.T) {
	p := newTestPipeline(t)
	p.onEngineerStart("client-1", transport.EngineerStartPayload{PersonalityID: "calm-strategist"})
	if _, ok := p.orchestrator.ActiveOwner(); ok {
		t.Fatalf("expected no active session without a configured API key")
	}
}
