// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package callout evaluates a fixed rule table against analyzer snapshots
// and turns qualifying rules into callouts for the voice orchestrator.
package callout

import "github.com/marcelscruz/open-gt/internal/analyzer"

// Priority ranks a callout for the verbosity gate.
type Priority string

const (
	Critical Priority = "critical"
	Normal   Priority = "normal"
	Info     Priority = "info"
)

// RuleSet distinguishes the two evaluation schedules.
type RuleSet string

const (
	Periodic  RuleSet = "periodic"
	OnLapComplete RuleSet = "on_lap_complete"
)

// Result is what an evaluator hands back; Fire gates everything else.
type Result struct {
	Fire    bool
	Data    map[string]any
	Message string
}

// Callout is an admitted, cooled-down rule firing, ready for delivery.
type Callout struct {
	Type        string
	Priority    Priority
	Message     string
	Data        map[string]any
	TimestampMs int64
}

// Rule pairs an evaluator with the gating metadata the engine applies
// before ever looking at the evaluator's verdict.
type Rule struct {
	Type         string
	Set          RuleSet
	Priority     Priority
	MinVerbosity int
	CooldownMs   int64
	Eval         func(snap analyzer.Snapshot) Result
}
