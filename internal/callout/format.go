// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package callout

import "fmt"

// FormatLapTime renders a lap time in milliseconds as MM:SS.mmm. It is
// exported so the voice orchestrator's context block can use the same
// rendering the callout messages do.
func FormatLapTime(ms int32) string {
	if ms < 0 {
		ms = 0
	}
	total := int64(ms)
	minutes := total / 60000
	seconds := (total % 60000) / 1000
	millis := total % 1000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}

// FormatDelta renders a lap delta in milliseconds as a signed ±S.sss s.
func FormatDelta(ms int32) string {
	sign := "+"
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	return fmt.Sprintf("%s%d.%03d s", sign, ms/1000, ms%1000)
}
