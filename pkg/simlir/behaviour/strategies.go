// Copyright 2019-2025 The Liqo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package behaviour

import (
	"fmt"
	"time"

	"github.com/liqotech/simlir/pkg/ipam/cidr"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
)

type ianaStandard struct {
	base
}

func (b *ianaStandard) CalculateRequirement(in Input) Requirement {
	return b.nothing(in.Date)
}

type rirStandard struct {
	base
}

func (b *rirStandard) CalculateRequirement(in Input) Requirement {
	amount := uint64(0)
	if in.Available < RIRDefaultRequest/2 {
		amount = RIRDefaultRequest
	}
	return Requirement{Amounts: []uint64{amount}, Next: b.later(in.Date)}
}

func (b *rirStandard) RetryAfterFailure(date time.Time) (time.Time, bool) {
	return b.later(date), true
}

type rirStatic struct {
	base
}

func (b *rirStatic) CalculateRequirement(in Input) Requirement {
	return Requirement{Amounts: []uint64{RIRDefaultRequest}, Next: b.later(in.Date)}
}

func (b *rirStatic) RetryAfterFailure(date time.Time) (time.Time, bool) {
	return b.later(date), true
}

type lirStatic struct {
	base
	size int
}

func (b *lirStatic) String() string {
	return fmt.Sprintf("%s(%d)", b.kind, b.size)
}

func (b *lirStatic) CalculateRequirement(in Input) Requirement {
	return Requirement{Amounts: []uint64{cidr.Span(b.size)}, Next: b.later(in.Date)}
}

// lirAverage requests, every period days, what it registered on average over that many days
// during the year before its first activity. The daily rate is fixed at the first activity.
type lirAverage struct {
	base
	period   int
	goldRush bool
	loaded   bool
	daily    uint64
}

func (b *lirAverage) CalculateRequirement(in Input) Requirement {
	if !b.loaded {
		b.daily = totalSpan(within(in.History, in.Date, AverageCutoff)) / AverageCutoff
		b.loaded = true
	}
	amount := b.daily * uint64(b.period)
	if b.goldRush && !in.Date.Before(GoldRushStart) {
		amount *= 2
	}
	return Requirement{
		Amounts: []uint64{amount},
		Next:    timeline.PeriodLater(in.Date, b.period, timeline.DefaultUpperbound, b.rng),
	}
}

// lirReplay snapshots the history at its first activity, then emits one registration per
// activity, oldest first, spacing activities as the historical registrations were spaced.
type lirReplay struct {
	base
	loaded  bool
	pending []Registration
}

func (b *lirReplay) CalculateRequirement(in Input) Requirement {
	if !b.loaded {
		b.pending = append(b.pending, in.History...)
		b.loaded = true
	}
	if len(b.pending) == 0 {
		return b.nothing(in.Date)
	}

	current := b.pending[0]
	b.pending = b.pending[1:]

	amounts := make([]uint64, 0, len(current.Prefixes))
	for _, p := range current.Prefixes {
		amounts = append(amounts, cidr.PrefixSpan(p))
	}

	next := b.later(in.Date)
	if len(b.pending) > 0 {
		gap := max(timeline.DayDelta(b.pending[0].Date, current.Date), 1)
		next = timeline.AddDays(in.Date, gap)
	}
	return Requirement{Amounts: amounts, Next: next}
}

// lirMonthly requests the last month's registrations at its first activity, then grows the
// request by a tenth every month.
type lirMonthly struct {
	base
	smoothed bool
	cached   uint64
}

func (b *lirMonthly) CalculateRequirement(in Input) Requirement {
	if b.cached > 0 {
		b.cached = b.cached * RequestMultiplierNum / RequestMultiplierDen
	} else {
		b.cached = totalSpan(within(in.History, in.Date, MonthWindow))
	}

	// Large requests are halved and issued twice as often, the cached amount keeps growing unhalved.
	if b.smoothed && b.cached > SmoothingThreshold {
		return Requirement{
			Amounts: []uint64{b.cached / 2},
			Next:    timeline.PeriodLater(in.Date, MonthWindow/2, timeline.DefaultUpperbound, b.rng),
		}
	}
	return Requirement{Amounts: []uint64{b.cached}, Next: b.later(in.Date)}
}

// lirSteadyState extrapolates the registration rate of the last Lookback registrations
// over the days elapsed since its previous activity.
type lirSteadyState struct {
	base
	lastCalled time.Time
}

func (b *lirSteadyState) CalculateRequirement(in Input) Requirement {
	if b.lastCalled.IsZero() && len(in.History) > 0 {
		b.lastCalled = in.History[0].Date
	}
	if len(in.History) <= 1 {
		return b.nothing(in.Date)
	}

	recent := in.History[len(in.History)-min(len(in.History), Lookback):]
	oldest, newest := recent[0], recent[len(recent)-1]
	days := uint64(max(timeline.DayDelta(newest.Date, oldest.Date), 1))
	gap := uint64(max(timeline.DayDelta(in.Date, b.lastCalled), 0))
	b.lastCalled = in.Date

	return Requirement{
		Amounts: []uint64{gap * totalSpan(recent[1:]) / days},
		Next:    b.later(in.Date),
	}
}

// lirProbability draws the size of its request from the recent registrations, and acts
// again after their average spacing.
type lirProbability struct {
	base
}

func (b *lirProbability) CalculateRequirement(in Input) Requirement {
	window := within(in.History, in.Date, LookbackPeriod)
	if len(window) == 0 {
		return b.nothing(in.Date)
	}

	picked := window[b.rng.IntN(len(window))]
	gap := timeline.DefaultDelta
	if len(window) > 1 {
		// window is newest first.
		elapsed := timeline.DayDelta(window[0].Date, window[len(window)-1].Date)
		gap = max(elapsed/(len(window)-1), 1)
	}
	return Requirement{
		Amounts: []uint64{cidr.Span(cidr.LengthForSpan(picked.Span()))},
		Next:    timeline.PeriodLater(in.Date, gap, timeline.DefaultUpperbound, b.rng),
	}
}

// lirHistogram builds, at its first activity, the histograms of the recent prefix sizes
// and of the number of prefixes registered together, then samples both.
type lirHistogram struct {
	base
	loaded   bool
	spans    []uint64
	grouping []int
	gap      int
}

func (b *lirHistogram) load(in Input) {
	b.loaded = true
	b.gap = DefaultAverageGap

	previous, total := in.Date, 0
	window := within(in.History, in.Date, LookbackPeriod)
	for _, r := range window {
		total += timeline.DayDelta(previous, r.Date)
		previous = r.Date
		b.grouping = append(b.grouping, len(r.Prefixes))
		for _, p := range r.Prefixes {
			b.spans = append(b.spans, cidr.PrefixSpan(p))
		}
	}
	if len(window) > 0 {
		b.gap = total / len(window)
	}
}

func (b *lirHistogram) CalculateRequirement(in Input) Requirement {
	if !b.loaded {
		b.load(in)
	}
	if len(b.spans) == 0 {
		return b.nothing(in.Date)
	}

	number := b.grouping[b.rng.IntN(len(b.grouping))]
	amounts := make([]uint64, 0, number)
	for range number {
		amounts = append(amounts, b.spans[b.rng.IntN(len(b.spans))])
	}
	return Requirement{
		Amounts: amounts,
		Next:    timeline.PeriodLater(in.Date, b.gap, timeline.DefaultUpperbound, b.rng),
	}
}
