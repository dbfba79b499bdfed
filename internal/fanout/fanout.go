// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package fanout implements the single throttle stage between the frame
// decoder and everything downstream: every frame reaches the analyzer and
// the session logger unconditionally, but only reaches connected clients at
// a bounded cadence.
package fanout

import (
	"time"

	"github.com/marcelscruz/open-gt/internal/telemetry"
)

// DefaultBroadcastHz is the target client-visible telemetry rate.
const DefaultBroadcastHz = 30

// Fanout is driven by a single frame-consumer goroutine; it is not safe for
// concurrent Submit calls, matching the pipeline's single-writer design.
type Fanout struct {
	minInterval time.Duration
	lastEmit    time.Time

	toAnalyzer func(*telemetry.Frame)
	toLogger   func(*telemetry.Frame)
	toClients  func(*telemetry.Frame)
}

// New creates a Fanout targeting broadcastHz client updates per second.
// broadcastHz <= 0 uses DefaultBroadcastHz.
func New(broadcastHz float64, toAnalyzer, toLogger, toClients func(*telemetry.Frame)) *Fanout {
	if broadcastHz <= 0 {
		broadcastHz = DefaultBroadcastHz
	}
	return &Fanout{
		minInterval: time.Duration(float64(time.Second) / broadcastHz),
		toAnalyzer:  toAnalyzer,
		toLogger:    toLogger,
		toClients:   toClients,
	}
}

// Submit forwards f to the analyzer and logger unconditionally, and to
// clients only when the throttle window has elapsed.
func (fo *Fanout) Submit(f *telemetry.Frame) {
	if fo.toAnalyzer != nil {
		fo.toAnalyzer(f)
	}
	if fo.toLogger != nil {
		fo.toLogger(f)
	}

	now := time.Now()
	if fo.lastEmit.IsZero() || now.Sub(fo.lastEmit) >= fo.minInterval {
		fo.lastEmit = now
		if fo.toClients != nil {
			fo.toClients(f)
		}
	}
}
