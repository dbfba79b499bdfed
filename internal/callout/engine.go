// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package callout

import (
	"sync"
	"time"

	"github.com/marcelscruz/open-gt/internal/analyzer"
)

// Engine owns the cooldown map and current verbosity level. Per the
// pipeline's concurrency model it is meant to be driven by a single
// evaluator task, but the cooldown map is still guarded: the periodic tick
// and the lap-change reactor are distinct goroutines in practice.
type Engine struct {
	mu        sync.Mutex
	verbosity int
	lastFire  map[string]time.Time
	rules     []Rule
}

// New creates an Engine against the fixed rule table, starting at the given
// verbosity level (1-3; out-of-range values clamp to the nearest bound).
func New(verbosity int) *Engine {
	return &Engine{
		verbosity: clampVerbosity(verbosity),
		lastFire:  make(map[string]time.Time),
		rules:     Rules,
	}
}

func clampVerbosity(v int) int {
	if v < 1 {
		return 1
	}
	if v > 3 {
		return 3
	}
	return v
}

// SetVerbosity updates the current level; it takes effect on the next
// evaluation.
func (e *Engine) SetVerbosity(v int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.verbosity = clampVerbosity(v)
}

// EvaluatePeriodic runs every periodic-set rule against snap, in rule-table
// order, applying the verbosity and cooldown gates.
func (e *Engine) EvaluatePeriodic(now time.Time, snap analyzer.Snapshot) []Callout {
	return e.evaluate(now, snap, Periodic)
}

// EvaluateOnLapComplete runs every on-lap-complete rule against snap.
func (e *Engine) EvaluateOnLapComplete(now time.Time, snap analyzer.Snapshot) []Callout {
	return e.evaluate(now, snap, OnLapComplete)
}

func (e *Engine) evaluate(now time.Time, snap analyzer.Snapshot, set RuleSet) []Callout {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Callout
	for _, rule := range e.rules {
		if rule.Set != set {
			continue
		}
		if !e.admitted(rule) {
			continue
		}
		if !e.offCooldown(rule, now) {
			continue
		}
		result := rule.Eval(snap)
		if !result.Fire {
			continue
		}
		if rule.CooldownMs > 0 {
			e.lastFire[rule.Type] = now
		}
		out = append(out, Callout{
			Type:        rule.Type,
			Priority:    rule.Priority,
			Message:     result.Message,
			Data:        result.Data,
			TimestampMs: now.UnixMilli(),
		})
	}
	return out
}

// admitted applies the verbosity gate: the configured level must both admit
// the rule's priority tier and clear the rule's own min-verbosity floor.
func (e *Engine) admitted(rule Rule) bool {
	if e.verbosity < rule.MinVerbosity {
		return false
	}
	switch rule.Priority {
	case Critical:
		return e.verbosity >= 1
	case Normal:
		return e.verbosity >= 2
	case Info:
		return e.verbosity >= 3
	default:
		return false
	}
}

func (e *Engine) offCooldown(rule Rule, now time.Time) bool {
	if rule.CooldownMs <= 0 {
		return true
	}
	last, ok := e.lastFire[rule.Type]
	if !ok {
		return true
	}
	return now.Sub(last) >= time.Duration(rule.CooldownMs)*time.Millisecond
}
