// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package analyzer

import (
	"time"

	"github.com/marcelscruz/open-gt/internal/telemetry"
)

const (
	tyreWindow        = 5 * time.Second
	tyreTrendThreshold = 3.0 // degrees C over the window
)

type tyreSample struct {
	at   time.Time
	temp float32
}

// cornerHistory is a small ring of samples spanning the trailing window;
// pruning happens on push so it never grows unbounded.
type cornerHistory struct {
	samples []tyreSample
}

func (c *cornerHistory) push(now time.Time, temp float32) {
	c.samples = append(c.samples, tyreSample{at: now, temp: temp})
	cutoff := now.Add(-tyreWindow)
	i := 0
	for i < len(c.samples) && c.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		c.samples = c.samples[i:]
	}
}

func (c *cornerHistory) trend() TyreTrend {
	if len(c.samples) < 2 {
		return TyreStable
	}
	delta := float64(c.samples[len(c.samples)-1].temp - c.samples[0].temp)
	switch {
	case delta > tyreTrendThreshold:
		return TyreRising
	case delta < -tyreTrendThreshold:
		return TyreCooling
	default:
		return TyreStable
	}
}

func (c *cornerHistory) latest() float32 {
	if len(c.samples) == 0 {
		return 0
	}
	return c.samples[len(c.samples)-1].temp
}

// tyreTracker holds one cornerHistory per wheel.
type tyreTracker struct {
	fl, fr, rl, rr cornerHistory
}

func (t *tyreTracker) push(now time.Time, f *telemetry.Frame) {
	t.fl.push(now, f.TyreTempFL)
	t.fr.push(now, f.TyreTempFR)
	t.rl.push(now, f.TyreTempRL)
	t.rr.push(now, f.TyreTempRR)
}

func (t *tyreTracker) snapshot() (TyreSnapshot, TyreTrends) {
	return TyreSnapshot{
			FL: t.fl.latest(),
			FR: t.fr.latest(),
			RL: t.rl.latest(),
			RR: t.rr.latest(),
		}, TyreTrends{
			FL: t.fl.trend(),
			FR: t.fr.trend(),
			RL: t.rl.trend(),
			RR: t.rr.trend(),
		}
}
