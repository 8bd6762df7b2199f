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

// Package behaviour implements the strategies deciding how much address space an entity asks for,
// and when it acts next.
package behaviour

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/liqotech/simlir/pkg/ipam/cidr"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
)

// Kind identifies a behaviour.
type Kind string

const (
	// IANAStandard is the behaviour of the root registry, which never asks for space.
	IANAStandard Kind = "IANA_Standard"
	// RIRStandard asks for a default block when less than half of it is left.
	RIRStandard Kind = "RIR_Standard"
	// RIRStatic asks for a default block at every activity.
	RIRStatic Kind = "RIR_Static"
	// LIRStatic asks for a fixed size block at every activity.
	LIRStatic Kind = "LIR_Static"
	// LIRWeeklyAverage asks weekly for the daily average of the last year.
	LIRWeeklyAverage Kind = "LIR_Weekly_Average"
	// LIRFortnightlyAverage asks every two weeks for the daily average of the last year.
	LIRFortnightlyAverage Kind = "LIR_Fortnightly_Average"
	// LIRFortnightlyGoldRush is LIRFortnightlyAverage, doubled once the gold rush begins.
	LIRFortnightlyGoldRush Kind = "LIR_Fortnightly_Gold_Rush"
	// LIRReplay replays the historical registrations, newest first.
	LIRReplay Kind = "LIR_Replay"
	// LIRMonthlyExp asks monthly for the last month's registrations, growing exponentially.
	LIRMonthlyExp Kind = "LIR_Monthly_Exp"
	// LIRMonthlySmoothed is LIRMonthlyExp, splitting large requests over two half months.
	LIRMonthlySmoothed Kind = "LIR_Monthly_Smoothed"
	// LIRSimpleSteadyState extrapolates the rate of the most recent registrations.
	LIRSimpleSteadyState Kind = "LIR_Simple_Steady_State"
	// LIRProbability draws sizes from the distribution of recent registrations.
	LIRProbability Kind = "LIR_Probability"
	// LIRHistogram draws sizes and group cardinalities from recent registrations.
	LIRHistogram Kind = "LIR_Histogram"
)

const (
	// UnsizedInitial asks a supplier for the requester's initial allocation size.
	UnsizedInitial = -1
	// UnsizedDefault asks a supplier for the requester's default allocation size.
	UnsizedDefault = 0

	// LIRInitialSize is the prefix length of the first allocation to a LIR.
	LIRInitialSize = 21
	// LIRDefaultSize is the prefix length of the following allocations to a LIR.
	LIRDefaultSize = 21
	// RIRInitialSize is the prefix length of the first allocation to a RIR.
	RIRInitialSize = 8
	// RIRDefaultSize is the prefix length of the following allocations to a RIR.
	RIRDefaultSize = 8
	// StaticScalingSize is the default prefix length requested by LIRStatic.
	StaticScalingSize = 13

	// RIRDefaultRequest is the amount of addresses a RIR asks for.
	RIRDefaultRequest uint64 = 1 << 24

	// Lookback is the number of registrations considered by LIRSimpleSteadyState.
	Lookback = 10
	// LookbackPeriod is the window, in days, considered by the sampling behaviours.
	LookbackPeriod = 540
	// AverageCutoff is the window, in days, of the averaging behaviours.
	AverageCutoff = 365
	// MonthWindow is the window, in days, of the monthly behaviours.
	MonthWindow = 30
	// RequestMultiplierNum and RequestMultiplierDen express the monthly growth (1.1) of the
	// exponential behaviours.
	RequestMultiplierNum uint64 = 11
	RequestMultiplierDen uint64 = 10
	// SmoothingThreshold is the amount above which LIRMonthlySmoothed splits its requests.
	SmoothingThreshold uint64 = 1 << 16
	// DefaultAverageGap is the gap, in days, used by LIRHistogram without any history.
	DefaultAverageGap = 30
)

// GoldRushStart is the day from which LIRFortnightlyGoldRush doubles its requests.
var GoldRushStart = timeline.Date(2010, time.January, 1)

var (
	// ErrUnknownBehaviour is returned for names outside the known set.
	ErrUnknownBehaviour = errors.New("unknown behaviour")
	// ErrInvalidArgument is returned for malformed or unexpected behaviour arguments.
	ErrInvalidArgument = errors.New("invalid behaviour argument")
)

// Registration is a set of prefixes registered to an entity on the same day.
type Registration struct {
	Date     time.Time
	Prefixes []netip.Prefix
}

// Span returns the number of addresses in the registration.
func (r Registration) Span() uint64 {
	var total uint64
	for _, p := range r.Prefixes {
		total += cidr.PrefixSpan(p)
	}
	return total
}

// Input is the state of an entity a behaviour bases its decision on.
type Input struct {
	// Date is the current date of the entity.
	Date time.Time
	// Available is the amount of addresses the entity holds but has not used yet.
	Available uint64
	// History holds the registrations of the entity, oldest first.
	History []Registration
}

// Requirement is the outcome of a behaviour: the amounts of addresses to request
// and the date of the following activity.
type Requirement struct {
	Amounts []uint64
	Next    time.Time
}

// Behaviour decides how much space an entity requests, and when.
type Behaviour interface {
	// Kind returns the behaviour identifier.
	Kind() Kind
	// String returns the selector the behaviour can be rebuilt from.
	String() string
	// InitialSize is the prefix length granted by a supplier for UnsizedInitial requests.
	InitialSize() int
	// DefaultSize is the prefix length granted by a supplier for UnsizedDefault requests.
	DefaultSize() int
	// CalculateRequirement computes the amounts to request at the given date.
	CalculateRequirement(in Input) Requirement
	// RetryAfterFailure returns when to act again after a request that could not be satisfied.
	RetryAfterFailure(date time.Time) (time.Time, bool)
}

type factory struct {
	argument bool
	build    func(b base, arg int) Behaviour
}

var factories = map[Kind]factory{
	IANAStandard: {build: func(b base, _ int) Behaviour { return &ianaStandard{base: b} }},
	RIRStandard:  {build: func(b base, _ int) Behaviour { return &rirStandard{base: b} }},
	RIRStatic:    {build: func(b base, _ int) Behaviour { return &rirStatic{base: b} }},
	LIRStatic: {argument: true, build: func(b base, arg int) Behaviour {
		return &lirStatic{base: b, size: arg}
	}},
	LIRWeeklyAverage: {build: func(b base, _ int) Behaviour {
		return &lirAverage{base: b, period: 7}
	}},
	LIRFortnightlyAverage: {build: func(b base, _ int) Behaviour {
		return &lirAverage{base: b, period: 14}
	}},
	LIRFortnightlyGoldRush: {build: func(b base, _ int) Behaviour {
		return &lirAverage{base: b, period: 14, goldRush: true}
	}},
	LIRReplay:            {build: func(b base, _ int) Behaviour { return &lirReplay{base: b} }},
	LIRMonthlyExp:        {build: func(b base, _ int) Behaviour { return &lirMonthly{base: b} }},
	LIRMonthlySmoothed:   {build: func(b base, _ int) Behaviour { return &lirMonthly{base: b, smoothed: true} }},
	LIRSimpleSteadyState: {build: func(b base, _ int) Behaviour { return &lirSteadyState{base: b} }},
	LIRProbability:       {build: func(b base, _ int) Behaviour { return &lirProbability{base: b} }},
	LIRHistogram:         {build: func(b base, _ int) Behaviour { return &lirHistogram{base: b} }},
}

// Kinds returns the known behaviours, sorted by name.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// TakesArgument returns whether the behaviour accepts an argument, as in "LIR_Static(16)".
func TakesArgument(kind Kind) bool {
	return factories[kind].argument
}

// Parse splits a selector in the form "Name" or "Name(arg)" and validates it.
// The returned argument is -1 when absent.
func Parse(selector string) (kind Kind, arg int, err error) {
	name, rest, hasArg := strings.Cut(strings.TrimSpace(selector), "(")
	kind = Kind(name)
	f, ok := factories[kind]
	if !ok {
		return "", 0, fmt.Errorf("%w %q", ErrUnknownBehaviour, name)
	}

	arg = -1
	if hasArg {
		raw, closed := strings.CutSuffix(rest, ")")
		if !closed {
			return "", 0, fmt.Errorf("%w %q: missing closing parenthesis", ErrInvalidArgument, selector)
		}
		if !f.argument {
			return "", 0, fmt.Errorf("%w %q: %s takes no argument", ErrInvalidArgument, selector, kind)
		}
		if arg, err = strconv.Atoi(raw); err != nil {
			return "", 0, fmt.Errorf("%w %q: %w", ErrInvalidArgument, selector, err)
		}
		if arg < 0 || arg > cidr.MaxBits {
			return "", 0, fmt.Errorf("%w %q: prefix length out of range", ErrInvalidArgument, selector)
		}
	}
	return kind, arg, nil
}

// New builds the behaviour described by selector. The generator drives every random choice.
func New(selector string, rng *rand.Rand) (Behaviour, error) {
	kind, arg, err := Parse(selector)
	if err != nil {
		return nil, err
	}
	if kind == LIRStatic && arg < 0 {
		arg = StaticScalingSize
	}

	b := base{kind: kind, rng: rng, initial: LIRInitialSize, def: LIRDefaultSize}
	if kind == IANAStandard || kind == RIRStandard || kind == RIRStatic {
		b.initial, b.def = RIRInitialSize, RIRDefaultSize
	}
	return factories[kind].build(b, arg), nil
}

// base carries the capabilities shared by every behaviour.
type base struct {
	kind    Kind
	rng     *rand.Rand
	initial int
	def     int
}

func (b *base) Kind() Kind       { return b.kind }
func (b *base) String() string   { return string(b.kind) }
func (b *base) InitialSize() int { return b.initial }
func (b *base) DefaultSize() int { return b.def }

func (b *base) RetryAfterFailure(time.Time) (time.Time, bool) {
	return time.Time{}, false
}

func (b *base) later(date time.Time) time.Time {
	return timeline.DefaultPeriodLater(date, b.rng)
}

func (b *base) nothing(date time.Time) Requirement {
	return Requirement{Amounts: []uint64{0}, Next: b.later(date)}
}

// within returns the registrations at most days before date, newest first.
func within(history []Registration, date time.Time, days int) []Registration {
	var out []Registration
	for i := len(history) - 1; i >= 0; i-- {
		delta := timeline.DayDelta(date, history[i].Date)
		if delta < 0 {
			continue
		}
		if delta > days {
			break
		}
		out = append(out, history[i])
	}
	return out
}

func totalSpan(regs []Registration) uint64 {
	var total uint64
	for _, r := range regs {
		total += r.Span()
	}
	return total
}
