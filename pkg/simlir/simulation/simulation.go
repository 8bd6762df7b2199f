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

// Package simulation drives the registries along the timeline until the address space runs out.
package simulation

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/liqotech/simlir/pkg/simlir/behaviour"
	"github.com/liqotech/simlir/pkg/simlir/registry"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
	"github.com/liqotech/simlir/pkg/utils"
)

// ActorKind identifies the kind of entity scheduled on the timeline.
type ActorKind string

const (
	// ActorRIR is a regional registry.
	ActorRIR ActorKind = "rir"
	// ActorLIR is a local registry.
	ActorLIR ActorKind = "lir"
)

// Actor is an entity scheduled on the timeline.
type Actor struct {
	Kind ActorKind `json:"kind"`
	Name string    `json:"name"`
}

func (a Actor) String() string {
	return string(a.Kind) + "/" + a.Name
}

// StopReason tells why a run ended.
type StopReason string

const (
	// StopDrained means no event is left on the timeline.
	StopDrained StopReason = "timeline drained"
	// StopEndReached means the next event is past the end date.
	StopEndReached StopReason = "end date reached"
	// StopRIRsExhausted means every RIR ran out of space.
	StopRIRsExhausted StopReason = "every RIR exhausted"
	// StopCancelled means the context was cancelled.
	StopCancelled StopReason = "cancelled"
)

// IgnoredLIR is the placeholder country of the records not assigned to any country.
const IgnoredLIR = "ZZ"

// Recorder observes the progress of a run.
type Recorder interface {
	// ObserveDate is called when the simulation moves to a new date.
	ObserveDate(date time.Time)
	// ObserveRegistry reports the counters of a registry.
	ObserveRegistry(kind, name string, span, used uint64)
	// ObserveEvent is called for every activity performed.
	ObserveEvent(kind string)
	// ObserveExhaustion is called once per registry, when it runs out of space.
	ObserveExhaustion(name string, date time.Time)
}

// Options configures a simulation.
type Options struct {
	Start              time.Time
	End                time.Time
	Seed               uint64
	LIRBehaviour       string
	RIRBehaviour       string
	BehaviourOverrides map[string]string
	// Recorder is optional.
	Recorder Recorder
}

// Result summarizes a run.
type Result struct {
	RunID      uuid.UUID
	Reason     StopReason
	LastDate   time.Time
	Events     int
	Exhaustion map[string]time.Time
}

type entry[T any] struct {
	obj   T
	count int
}

// Simulation is the world: IANA, the RIRs, the LIRs and the timeline of their activities.
// A Simulation is not safe for concurrent use.
type Simulation struct {
	runID uuid.UUID
	opts  Options
	pcg   *rand.PCG
	rng   *rand.Rand

	iana     *registry.IANA
	rirs     map[string]*entry[*registry.RIR]
	lirs     map[string]*entry[*registry.LIR]
	timeline *timeline.Timeline[Actor]

	started    bool
	events     int
	exhausted  sets.Set[string]
	exhaustion map[string]time.Time
}

// New returns a simulation holding only IANA.
func New(opts Options) (*Simulation, error) {
	for _, d := range []time.Time{opts.Start, opts.End} {
		if err := timeline.CheckDate(d); err != nil {
			return nil, err
		}
	}
	if opts.End.Before(opts.Start) {
		return nil, fmt.Errorf("end date %s precedes start date %s",
			timeline.FormatDate(opts.End), timeline.FormatDate(opts.Start))
	}

	opts.Start, opts.End = timeline.Day(opts.Start), timeline.Day(opts.End)
	opts.BehaviourOverrides = maps.Clone(opts.BehaviourOverrides)
	pcg := rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)
	s := &Simulation{
		runID:      uuid.New(),
		opts:       opts,
		pcg:        pcg,
		rng:        rand.New(pcg),
		rirs:       map[string]*entry[*registry.RIR]{},
		lirs:       map[string]*entry[*registry.LIR]{},
		timeline:   timeline.New[Actor](),
		exhausted:  sets.New[string](),
		exhaustion: map[string]time.Time{},
	}

	b, err := behaviour.New(string(behaviour.IANAStandard), s.rng)
	if err != nil {
		return nil, err
	}
	if s.iana, err = registry.NewIANA(opts.Start, b); err != nil {
		return nil, err
	}
	return s, nil
}

// RunID returns the identifier of the run, preserved across checkpoints.
func (s *Simulation) RunID() uuid.UUID { return s.runID }

// IANA returns the root registry.
func (s *Simulation) IANA() *registry.IANA { return s.iana }

// Start returns the first simulated date.
func (s *Simulation) Start() time.Time { return s.opts.Start }

// End returns the date the run stops at.
func (s *Simulation) End() time.Time { return s.opts.End }

// SetEnd moves the end date, as done when resuming a run from a checkpoint.
func (s *Simulation) SetEnd(end time.Time) error {
	if err := timeline.CheckDate(end); err != nil {
		return err
	}
	if end.Before(s.opts.Start) {
		return fmt.Errorf("end date %s precedes start date %s",
			timeline.FormatDate(end), timeline.FormatDate(s.opts.Start))
	}
	s.opts.End = timeline.Day(end)
	return nil
}

// Timeline returns the pending activities.
func (s *Simulation) Timeline() *timeline.Timeline[Actor] { return s.timeline }

// RIR returns the regional registry with the given name.
func (s *Simulation) RIR(name string) (*registry.RIR, bool) {
	e, ok := s.rirs[name]
	if !ok {
		return nil, false
	}
	return e.obj, true
}

// LIR returns the local registry with the given name.
func (s *Simulation) LIR(name string) (*registry.LIR, bool) {
	e, ok := s.lirs[name]
	if !ok {
		return nil, false
	}
	return e.obj, true
}

// RIRNames returns the names of the regional registries, sorted.
func (s *Simulation) RIRNames() []string {
	return slices.Sorted(maps.Keys(s.rirs))
}

// LIRNames returns the names of the local registries, sorted.
func (s *Simulation) LIRNames() []string {
	return slices.Sorted(maps.Keys(s.lirs))
}

// RIRs returns the regional registries, sorted by name.
func (s *Simulation) RIRs() []*registry.RIR {
	out := make([]*registry.RIR, 0, len(s.rirs))
	for _, name := range s.RIRNames() {
		out = append(out, s.rirs[name].obj)
	}
	return out
}

// LIRs returns the local registries, sorted by name.
func (s *Simulation) LIRs() []*registry.LIR {
	out := make([]*registry.LIR, 0, len(s.lirs))
	for _, name := range s.LIRNames() {
		out = append(out, s.lirs[name].obj)
	}
	return out
}

// RIRCount returns how many times the regional registry was referenced.
func (s *Simulation) RIRCount(name string) int {
	if e, ok := s.rirs[name]; ok {
		return e.count
	}
	return 0
}

// LIRCount returns how many times the local registry was referenced.
func (s *Simulation) LIRCount(name string) int {
	if e, ok := s.lirs[name]; ok {
		return e.count
	}
	return 0
}

// LIRPopulationSize returns the number of LIRs supplied by the given RIR.
func (s *Simulation) LIRPopulationSize(rirName string) int {
	count := 0
	for _, e := range s.lirs {
		if sup := e.obj.Supplier(); sup != nil && sup.Name() == rirName {
			count++
		}
	}
	return count
}

// Exhaustion returns the dates the registries ran out of space at.
func (s *Simulation) Exhaustion() map[string]time.Time {
	return maps.Clone(s.exhaustion)
}

func (s *Simulation) behaviourFor(name, fallback string) (behaviour.Behaviour, error) {
	selector := fallback
	if override, ok := s.opts.BehaviourOverrides[name]; ok {
		selector = override
	}
	b, err := behaviour.New(selector, s.rng)
	if err != nil {
		return nil, fmt.Errorf("entity %q: %w", name, err)
	}
	return b, nil
}

// CreateRIRIfNotSeen returns the regional registry with the given name, creating it on first reference.
func (s *Simulation) CreateRIRIfNotSeen(name string) (*registry.RIR, error) {
	if e, ok := s.rirs[name]; ok {
		e.count++
		return e.obj, nil
	}

	b, err := s.behaviourFor(name, s.opts.RIRBehaviour)
	if err != nil {
		return nil, err
	}
	rir, err := registry.NewRIR(name, s.opts.Start, b)
	if err != nil {
		return nil, err
	}
	s.rirs[name] = &entry[*registry.RIR]{obj: rir, count: 1}
	klog.V(utils.LogDebugLevel).InfoS("RIR created", "rir", name, "behaviour", b)
	return rir, nil
}

// CreateLIRIfNotSeen returns the local registry with the given name, creating it on first reference.
// An empty name gets a random one.
func (s *Simulation) CreateLIRIfNotSeen(name string) (*registry.LIR, error) {
	if name == "" {
		name = registry.RandomName(s.rng)
	}
	if e, ok := s.lirs[name]; ok {
		e.count++
		return e.obj, nil
	}

	b, err := s.behaviourFor(name, s.opts.LIRBehaviour)
	if err != nil {
		return nil, err
	}
	lir, err := registry.NewLIR(name, s.opts.Start, b)
	if err != nil {
		return nil, err
	}
	s.lirs[name] = &entry[*registry.LIR]{obj: lir, count: 1}
	klog.V(utils.LogDebugLevel).InfoS("LIR created", "lir", name, "behaviour", b)
	return lir, nil
}

// SetLIRBehaviour replaces the behaviour of every LIR without an explicit override.
func (s *Simulation) SetLIRBehaviour(selector string) error {
	s.opts.LIRBehaviour = selector
	for name, e := range s.lirs {
		b, err := s.behaviourFor(name, selector)
		if err != nil {
			return err
		}
		e.obj.SetBehaviour(b)
	}
	return nil
}

// SetRIRBehaviour replaces the behaviour of every RIR without an explicit override.
func (s *Simulation) SetRIRBehaviour(selector string) error {
	s.opts.RIRBehaviour = selector
	for name, e := range s.rirs {
		b, err := s.behaviourFor(name, selector)
		if err != nil {
			return err
		}
		e.obj.SetBehaviour(b)
	}
	return nil
}

// SetBehaviourOverride selects the behaviour of a single entity, now and whenever it is created.
func (s *Simulation) SetBehaviourOverride(name, selector string) error {
	b, err := behaviour.New(selector, s.rng)
	if err != nil {
		return fmt.Errorf("entity %q: %w", name, err)
	}
	if s.opts.BehaviourOverrides == nil {
		s.opts.BehaviourOverrides = map[string]string{}
	}
	s.opts.BehaviourOverrides[name] = selector

	switch {
	case s.rirs[name] != nil:
		s.rirs[name].obj.SetBehaviour(b)
	case s.lirs[name] != nil:
		s.lirs[name].obj.SetBehaviour(b)
	}
	return nil
}

func (s *Simulation) schedule(actor Actor, now time.Time, dates []time.Time) {
	for _, d := range dates {
		if d.Before(now) {
			d = now
		}
		if err := s.timeline.Add(d, actor); err != nil {
			klog.V(utils.LogDebugLevel).InfoS("Activity not scheduled", "actor", actor, "err", err)
		}
	}
}

func (s *Simulation) act(actor Actor, date time.Time) ([]time.Time, error) {
	s.events++
	if s.opts.Recorder != nil {
		s.opts.Recorder.ObserveEvent(string(actor.Kind))
	}

	switch actor.Kind {
	case ActorRIR:
		e, ok := s.rirs[actor.Name]
		if !ok {
			break
		}
		e.obj.UpdateStats()
		return e.obj.Activity(date)
	case ActorLIR:
		e, ok := s.lirs[actor.Name]
		if !ok {
			break
		}
		return e.obj.Activity(date)
	}
	klog.V(utils.LogDebugLevel).InfoS("Skipping activity of unknown actor", "actor", actor)
	return nil, nil
}

// advance moves IANA and the RIRs to date and reports their counters.
func (s *Simulation) advance(date time.Time) error {
	if err := s.iana.SetDate(date); err != nil {
		return err
	}
	for _, rir := range s.RIRs() {
		if err := rir.SetDate(date); err != nil {
			return err
		}
	}

	if rec := s.opts.Recorder; rec != nil {
		rec.ObserveDate(date)
		rec.ObserveRegistry("iana", s.iana.Name(), s.iana.AddressSpan(), s.iana.AddressesUsed())
		for _, rir := range s.RIRs() {
			rec.ObserveRegistry("rir", rir.Name(), rir.AddressSpan(), rir.AddressesUsed())
		}
	}
	return nil
}

func (s *Simulation) recordExhaustion(name string, date time.Time) {
	if _, ok := s.exhaustion[name]; ok {
		return
	}
	s.exhaustion[name] = date
	klog.InfoS("Registry exhausted", "registry", name, "date", timeline.FormatDate(date))
	if s.opts.Recorder != nil {
		s.opts.Recorder.ObserveExhaustion(name, date)
	}
}

func (s *Simulation) checkExhaustion(date time.Time) {
	for _, rir := range s.RIRs() {
		if rir.Exhausted() && !s.exhausted.Has(rir.Name()) {
			s.exhausted.Insert(rir.Name())
			s.recordExhaustion(rir.Name(), date)
		}
	}
	if s.iana.PercentageLeft() <= 0 {
		s.recordExhaustion(s.iana.Name(), date)
	}
}

func (s *Simulation) allRIRsExhausted() bool {
	return len(s.rirs) > 0 && s.exhausted.HasAll(s.RIRNames()...)
}

// setup runs the first activity of every entity at the start date.
func (s *Simulation) setup() error {
	delete(s.lirs, IgnoredLIR)
	if err := s.advance(s.opts.Start); err != nil {
		return err
	}

	for _, name := range s.LIRNames() {
		actor := Actor{Kind: ActorLIR, Name: name}
		dates, err := s.act(actor, s.opts.Start)
		if err != nil {
			return err
		}
		s.schedule(actor, s.opts.Start, dates)
	}
	for _, name := range s.RIRNames() {
		actor := Actor{Kind: ActorRIR, Name: name}
		dates, err := s.act(actor, s.opts.Start)
		if err != nil {
			return err
		}
		s.schedule(actor, s.opts.Start, dates)
	}
	s.started = true
	return nil
}

// Run walks the timeline until it is drained, the end date is reached, every RIR is exhausted
// or ctx is cancelled. A run can be resumed: only the pending activities are kept on the timeline.
func (s *Simulation) Run(ctx context.Context) (*Result, error) {
	if !s.started {
		klog.InfoS("Simulation starting", "run", s.runID, "start", timeline.FormatDate(s.opts.Start),
			"end", timeline.FormatDate(s.opts.End), "rirs", len(s.rirs), "lirs", len(s.lirs))
		if err := s.setup(); err != nil {
			return nil, err
		}
	}

	reason := StopDrained
	var current time.Time
	processed := 0

	for date, actor := range s.timeline.Walk() {
		if ctx.Err() != nil {
			reason = StopCancelled
			break
		}

		if !date.Equal(current) {
			if date.After(s.opts.End) {
				reason = StopEndReached
				break
			}
			if !current.IsZero() {
				s.timeline.Remove(current)
			}
			current, processed = date, 0
			if err := s.advance(date); err != nil {
				return nil, err
			}
		}

		s.checkExhaustion(date)
		if s.allRIRsExhausted() {
			reason = StopRIRsExhausted
			break
		}

		dates, err := s.act(actor, date)
		processed++
		if err != nil {
			return nil, fmt.Errorf("activity of %s at %s: %w", actor, timeline.FormatDate(date), err)
		}
		s.schedule(actor, date, dates)
	}
	if !current.IsZero() {
		s.checkExhaustion(current)
		s.trim(current, processed)
	}

	res := &Result{
		RunID:      s.runID,
		Reason:     reason,
		LastDate:   current,
		Events:     s.events,
		Exhaustion: s.Exhaustion(),
	}
	klog.InfoS("Simulation stopped", "run", s.runID, "reason", reason, "date", timeline.FormatDate(current),
		"events", s.events)
	return res, nil
}

// trim drops the activities already performed at date.
func (s *Simulation) trim(date time.Time, processed int) {
	if processed == 0 {
		return
	}
	items, ok := s.timeline.At(date)
	if !ok {
		return
	}
	s.timeline.Remove(date)
	if remaining := items[min(processed, len(items)):]; len(remaining) > 0 {
		if err := s.timeline.Add(date, remaining...); err != nil {
			klog.Warningf("Failed to keep the pending activities of %s: %v", timeline.FormatDate(date), err)
		}
	}
}
