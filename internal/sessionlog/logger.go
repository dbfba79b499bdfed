// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sessionlog is a pure sink: it writes one NDJSON line per on-track
// frame to a per-race file, paired with a JSON sidecar carrying summary
// metadata. It never influences the pipeline's behavior and never returns
// an error to its caller - disk failures are logged and swallowed under a
// best-effort propagation policy.
package sessionlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marcelscruz/open-gt/internal/telemetry"
)

// IdleTimeout closes the active session if no on-track frame arrives for
// this long, even without an explicit on-track -> off-track transition.
const IdleTimeout = 30 * time.Second

type record struct {
	Timestamp int64            `json:"timestamp"`
	Data      *telemetry.Frame `json:"data"`
}

type sessionMeta struct {
	StartedAt     time.Time `json:"startedAt"`
	EndedAt       time.Time `json:"endedAt"`
	CarCode       uint32    `json:"carCode"`
	TotalLaps     int16     `json:"totalLaps"`
	BestLapTimeMs int32     `json:"bestLapTimeMs"`
	FinalLapCount int16     `json:"finalLapCount"`
	PacketCount   int64     `json:"packetCount"`
}

type activeSession struct {
	file    *os.File
	enc     *json.Encoder
	metaPath string
	meta    sessionMeta
}

// Logger owns the current NDJSON file, if any. Ingest is meant to be
// called from the fan-out stage on every frame, on-track or not; it is
// not safe to call Ingest from more than one goroutine at a time, but the
// idle watchdog runs on its own goroutine and is synchronized via mu.
type Logger struct {
	dir string
	log logrus.FieldLogger

	mu        sync.Mutex
	sess      *activeSession
	idleTimer *time.Timer
}

// New creates a Logger writing into dir. The directory is created lazily
// on first write.
func New(dir string, log logrus.FieldLogger) *Logger {
	return &Logger{dir: dir, log: log}
}

// Ingest folds one frame into the active session, opening a new session
// file on an off-track -> on-track edge and closing the current one on the
// reverse edge.
func (l *Logger) Ingest(f *telemetry.Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !f.OnTrack {
		if l.sess != nil {
			l.finalizeLocked()
		}
		return
	}

	if l.sess == nil {
		l.openLocked(f)
	}
	l.writeLocked(f)
	l.armIdleTimerLocked()
}

func (l *Logger) openLocked(f *telemetry.Frame) {
	stamp := time.Now().Format("2006-01-02T15-04-05")
	base := fmt.Sprintf("%s_car-%d", stamp, f.CarCode)

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		l.log.WithError(err).Error("sessionlog: could not create session directory")
		return
	}

	dataPath := filepath.Join(l.dir, base+".ndjson")
	file, err := os.Create(dataPath)
	if err != nil {
		l.log.WithError(err).Error("sessionlog: could not open session file")
		return
	}

	l.sess = &activeSession{
		file:     file,
		enc:      json.NewEncoder(file),
		metaPath: filepath.Join(l.dir, base+".meta.json"),
		meta: sessionMeta{
			StartedAt: time.Now(),
			CarCode:   f.CarCode,
		},
	}
	l.log.WithField("file", dataPath).Info("sessionlog: session started")
}

func (l *Logger) writeLocked(f *telemetry.Frame) {
	if l.sess == nil {
		return
	}
	if err := l.sess.enc.Encode(record{Timestamp: time.Now().UnixMilli(), Data: f}); err != nil {
		l.log.WithError(err).Warn("sessionlog: write failed")
		return
	}

	l.sess.meta.PacketCount++
	l.sess.meta.TotalLaps = f.LapsTotal
	l.sess.meta.FinalLapCount = f.LapCount
	if f.BestLapTimeMs > l.sess.meta.BestLapTimeMs {
		l.sess.meta.BestLapTimeMs = f.BestLapTimeMs
	}
}

func (l *Logger) armIdleTimerLocked() {
	if l.idleTimer != nil {
		l.idleTimer.Stop()
	}
	l.idleTimer = time.AfterFunc(IdleTimeout, l.onIdle)
}

func (l *Logger) onIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sess != nil {
		l.log.Info("sessionlog: idle timeout, finalizing session")
		l.finalizeLocked()
	}
}

func (l *Logger) finalizeLocked() {
	if l.sess == nil {
		return
	}
	if l.idleTimer != nil {
		l.idleTimer.Stop()
		l.idleTimer = nil
	}

	l.sess.meta.EndedAt = time.Now()
	if err := l.sess.file.Close(); err != nil {
		l.log.WithError(err).Warn("sessionlog: close data file failed")
	}

	data, err := json.MarshalIndent(l.sess.meta, "", "  ")
	if err != nil {
		l.log.WithError(err).Warn("sessionlog: marshal metadata failed")
	} else if err := os.WriteFile(l.sess.metaPath, data, 0o644); err != nil {
		l.log.WithError(err).Warn("sessionlog: write metadata failed")
	}

	l.log.WithField("packets", l.sess.meta.PacketCount).Info("sessionlog: session closed")
	l.sess = nil
}

// Close finalizes any in-flight session. Call on process shutdown so a
// session in progress still gets its metadata sidecar.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finalizeLocked()
}
