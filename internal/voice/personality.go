// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package voice

import (
	_ "embed"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

//go:embed personalities.cbor
var personalityBundle []byte

// personalities is decoded once at package init from a fixed embedded
// asset, into a concrete struct rather than a generic map.
var personalities = mustDecodePersonalities(personalityBundle)

func mustDecodePersonalities(data []byte) map[string]Personality {
	var list []Personality
	if err := cbor.Unmarshal(data, &list); err != nil {
		panic(fmt.Sprintf("voice: decode embedded personality bundle: %v", err))
	}
	out := make(map[string]Personality, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out
}

// DefaultPersonalityID is used when a client's engineer:start omits one.
const DefaultPersonalityID = "calm-strategist"

// Lookup resolves a personality by ID, falling back to the default.
func Lookup(id string) Personality {
	if id != "" {
		if p, ok := personalities[id]; ok {
			return p
		}
	}
	return personalities[DefaultPersonalityID]
}

// Personalities returns every bundled personality, for clients to offer a
// picker.
func Personalities() []Personality {
	out := make([]Personality, 0, len(personalities))
	for _, p := range personalities {
		out = append(out, p)
	}
	return out
}
