// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package voice

import (
	"fmt"
	"strings"

	"github.com/marcelscruz/open-gt/internal/analyzer"
	"github.com/marcelscruz/open-gt/internal/callout"
)

// fractionReportThreshold is the minimum assist-engagement fraction worth
// mentioning in a context block.
const fractionReportThreshold = 0.05

// FormatContext renders a snapshot into the short multi-line block sent to
// the model as background, not as a prompt to reply.
func FormatContext(snap analyzer.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Lap %d", snap.LapCount)
	if snap.LapsTotal > 0 {
		fmt.Fprintf(&b, "/%d", snap.LapsTotal)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Best %s, last %s", callout.FormatLapTime(snap.BestLapTimeMs), callout.FormatLapTime(snap.LastLapTimeMs))
	if snap.LapDeltaMs != 0 {
		fmt.Fprintf(&b, ", delta %s", callout.FormatDelta(snap.LapDeltaMs))
	}
	fmt.Fprintf(&b, ". Pace: %s.\n", snap.PaceTrend)

	fmt.Fprintf(&b, "Speed %.0f km/h, gear %d (suggested %d), %.0f RPM.\n", snap.SpeedKmh, snap.GearCurrent, snap.GearSuggested, snap.EngineRPM)

	if snap.FuelUsageDetermined == analyzer.FuelOn {
		fmt.Fprintf(&b, "Fuel %.1f/%.1f L", snap.FuelLevel, snap.FuelCapacity)
		if snap.FuelBurnRatePerLap > 0 {
			fmt.Fprintf(&b, ", burn %.2f L/lap, ~%.1f laps left", snap.FuelBurnRatePerLap, snap.EstimatedLapsRemaining)
		}
		b.WriteString(".\n")
	}

	fmt.Fprintf(&b, "Tyres FL %.0f FR %.0f RL %.0f RR %.0f C.\n", snap.TyreTemps.FL, snap.TyreTemps.FR, snap.TyreTemps.RL, snap.TyreTemps.RR)

	var assists []string
	if snap.TCSFraction > fractionReportThreshold {
		assists = append(assists, fmt.Sprintf("TCS %.0f%%", snap.TCSFraction*100))
	}
	if snap.ASMFraction > fractionReportThreshold {
		assists = append(assists, fmt.Sprintf("ASM %.0f%%", snap.ASMFraction*100))
	}
	if len(assists) > 0 {
		fmt.Fprintf(&b, "Assists this lap: %s.", strings.Join(assists, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}

// FormatCalloutTurn renders a callout as the single text turn the
// orchestrator sends the model.
func FormatCalloutTurn(c callout.Callout) string {
	return fmt.Sprintf("[CALLOUT: %s] %s Deliver this information in your style.", c.Type, c.Message)
}

// FormatContextTurn wraps a formatted context block in the [CONTEXT
// UPDATE] message-convention prefix documented in the base instruction.
func FormatContextTurn(block string) string {
	return "[CONTEXT UPDATE]\n" + block
}
