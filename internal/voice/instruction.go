// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package voice

import "strings"

// baseInstruction is the fixed block every session's system instruction
// starts with. It is never overridable; personality and custom content
// may only alter style.
const baseInstruction = `You are a real-time race engineer speaking to a driver mid-session over
a live radio link. Keep every reply to one or two sentences: this is a
radio callout, not a briefing. Use racing terminology naturally (apex,
understeer, pit window, out-lap, delta) but never explain jargon unless
asked. Two kinds of messages will arrive from the system, not the driver:

  [CONTEXT UPDATE] ...   background telemetry state. Do not reply to
                          these; absorb them into what you already know
                          about the session.
  [CALLOUT: <type>] ...  an event worth calling out. Deliver it in your
                          own words, keeping the factual content intact.

Anything else is the driver talking to you directly: respond to them like
a teammate on the radio, briefly and usefully.`

// ComposeInstruction concatenates the fixed base block, the personality's
// style prompt, and the user's free-form custom instructions, in that
// order. custom may be empty.
func ComposeInstruction(p Personality, custom string) string {
	parts := []string{baseInstruction, p.Prompt}
	if strings.TrimSpace(custom) != "" {
		parts = append(parts, strings.TrimSpace(custom))
	}
	return strings.Join(parts, "\n\n")
}
