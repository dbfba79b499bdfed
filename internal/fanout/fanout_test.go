// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fanout

import (
	"testing"
	"time"

	"github.com/marcelscruz/open-gt/internal/telemetry"
)

func TestFanoutAlwaysHitsAnalyzerAndLogger(t *testing.T) {
	var analyzerCount, loggerCount, clientCount int
	fo := New(30,
		func(*telemetry.Frame) { analyzerCount++ },
		func(*telemetry.Frame) { loggerCount++ },
		func(*telemetry.Frame) { clientCount++ },
	)

	for i := 0; i < 5; i++ {
		fo.Submit(&telemetry.Frame{})
	}

	if analyzerCount != 5 || loggerCount != 5 {
		t.Fatalf("analyzer/logger should see every frame: analyzer=%d logger=%d", analyzerCount, loggerCount)
	}
	if clientCount >= 5 {
		t.Fatalf("clients should be throttled below full rate, got %d emits for 5 back-to-back frames", clientCount)
	}
	if clientCount == 0 {
		t.Fatalf("expected at least the first frame to reach clients")
	}
}

func TestFanoutRespectsInterval(t *testing.T) {
	var clientCount int
	fo := New(30, nil, nil, func(*telemetry.Frame) { clientCount++ })

	fo.Submit(&telemetry.Frame{})
	fo.Submit(&telemetry.Frame{}) // immediate second submit, should be throttled
	if clientCount != 1 {
		t.Fatalf("expected throttle to suppress immediate second emit, got clientCount=%d", clientCount)
	}

	fo.lastEmit = time.Now().Add(-time.Second)
	fo.Submit(&telemetry.Frame{})
	if clientCount != 2 {
		t.Fatalf("expected emit after interval elapsed, got clientCount=%d", clientCount)
	}
}
