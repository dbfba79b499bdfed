// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marcelscruz/open-gt/internal/callout"
)

// fakeSession is a ModelSession double that blocks Recv until closed, so
// tests can control exactly when the connect goroutine's read loop exits.
type fakeSession struct {
	mu     sync.Mutex
	closed bool
	recvCh chan ServerEvent
	sent   []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{recvCh: make(chan ServerEvent)}
}

func (f *fakeSession) SendText(ctx context.Context, text string, turnComplete bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSession) SendAudioChunk(ctx context.Context, pcmBase64 string) error { return nil }
func (f *fakeSession) SendAudioStreamEnd(ctx context.Context) error               { return nil }

func (f *fakeSession) Recv() (ServerEvent, error) {
	ev, ok := <-f.recvCh
	if !ok {
		return ServerEvent{}, errors.New("fake session closed")
	}
	return ev, nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.recvCh)
	}
	return nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(nil)
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestStartRaceLaterOwnerWins(t *testing.T) {
	var statusMu sync.Mutex
	statuses := map[string][]bool{}

	factory := func(ctx context.Context, apiKey, instruction, voiceName string) (ModelSession, error) {
		s := newFakeSession()
		return s, nil
	}

	cb := Callbacks{
		OnStatus: func(ownerID string, connected bool, p *Personality) {
			statusMu.Lock()
			statuses[ownerID] = append(statuses[ownerID], connected)
			statusMu.Unlock()
		},
	}

	o := New(factory, func() string { return "test-key" }, func() bool { return true }, cb, discardLogger())

	o.Start(StartRequest{OwnerID: "client-a", Config: SessionConfig{PersonalityID: DefaultPersonalityID}})
	o.Start(StartRequest{OwnerID: "client-b", Config: SessionConfig{PersonalityID: DefaultPersonalityID}})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		owner, ok := o.ActiveOwner()
		if ok && owner == "client-b" {
			break
		}
		time.Sleep(time.Millisecond)
	}

	owner, ok := o.ActiveOwner()
	if !ok || owner != "client-b" {
		t.Fatalf("expected client-b to hold the active session, got owner=%q ok=%v", owner, ok)
	}

	statusMu.Lock()
	aStatuses := append([]bool(nil), statuses["client-a"]...)
	statusMu.Unlock()
	foundDisconnect := false
	for _, connected := range aStatuses {
		if !connected {
			foundDisconnect = true
		}
	}
	if !foundDisconnect {
		t.Fatalf("expected client-a to observe a disconnect status, got %v", aStatuses)
	}

}

func TestDeliverCalloutsFallbackWithNoSession(t *testing.T) {
	var fallback []string
	cb := Callbacks{
		OnFallbackText: func(message string, timestampMs int64) {
			fallback = append(fallback, message)
		},
	}
	o := New(func(ctx context.Context, apiKey, instruction, voiceName string) (ModelSession, error) {
		t.Fatalf("factory should not be called when no session was started")
		return nil, nil
	}, func() string { return "test-key" }, func() bool { return true }, cb, discardLogger())

	o.DeliverCallouts(context.Background(), []callout.Callout{
		{Type: "fuel_low", Message: "Fuel critical, box this lap."},
	})

	if len(fallback) != 1 || fallback[0] != "Fuel critical, box this lap." {
		t.Fatalf("expected fallback delivery, got %v", fallback)
	}
}

func TestDeliverCalloutsNoFallbackWhenEngineerDisabled(t *testing.T) {
	called := false
	cb := Callbacks{OnFallbackText: func(message string, timestampMs int64) { called = true }}
	o := New(nil, func() string { return "" }, func() bool { return false }, cb, discardLogger())

	o.DeliverCallouts(context.Background(), []callout.Callout{{Type: "lap_summary", Message: "x"}})

	if called {
		t.Fatalf("expected no fallback delivery when engineer disabled")
	}
}

func TestStartWithoutAPIKeySurfacesError(t *testing.T) {
	var errMsg string
	cb := Callbacks{OnError: func(ownerID, message string) { errMsg = message }}
	o := New(nil, func() string { return "" }, func() bool { return true }, cb, discardLogger())

	o.Start(StartRequest{OwnerID: "client-a"})

	if errMsg == "" {
		t.Fatalf("expected an error when starting without an API key")
	}
	if _, ok := o.ActiveOwner(); ok {
		t.Fatalf("expected no active session")
	}
}
