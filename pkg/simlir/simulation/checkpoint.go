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

package simulation

import (
	"fmt"
	"io"
	"maps"
	"math/rand/v2"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/liqotech/simlir/pkg/simlir/registry"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
)

// CheckpointVersion is the version of the checkpoint format written by Save.
const CheckpointVersion = 1

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type countedState struct {
	registry.State
	Count int `json:"count"`
}

type checkpoint struct {
	Version            int                    `json:"version"`
	RunID              uuid.UUID              `json:"runId"`
	Start              string                 `json:"start"`
	End                string                 `json:"end"`
	Seed               uint64                 `json:"seed"`
	RNG                []byte                 `json:"rng"`
	LIRBehaviour       string                 `json:"lirBehaviour"`
	RIRBehaviour       string                 `json:"rirBehaviour"`
	BehaviourOverrides map[string]string      `json:"behaviourOverrides,omitempty"`
	Started            bool                   `json:"started"`
	Events             int                    `json:"events"`
	IANA               registry.State         `json:"iana"`
	RIRs               []countedState         `json:"rirs,omitempty"`
	LIRs               []countedState         `json:"lirs,omitempty"`
	Timeline           []timeline.Slot[Actor] `json:"timeline,omitempty"`
	Exhaustion         map[string]string      `json:"exhaustion,omitempty"`
}

// Save writes the whole state of the simulation to w, as snappy compressed JSON.
func (s *Simulation) Save(w io.Writer) error {
	rngState, err := s.pcg.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "failed to serialize the random generator")
	}

	cp := checkpoint{
		Version:            CheckpointVersion,
		RunID:              s.runID,
		Start:              timeline.FormatDate(s.opts.Start),
		End:                timeline.FormatDate(s.opts.End),
		Seed:               s.opts.Seed,
		RNG:                rngState,
		LIRBehaviour:       s.opts.LIRBehaviour,
		RIRBehaviour:       s.opts.RIRBehaviour,
		BehaviourOverrides: s.opts.BehaviourOverrides,
		Started:            s.started,
		Events:             s.events,
		IANA:               s.iana.State(),
		Timeline:           s.timeline.Slots(),
		Exhaustion:         map[string]string{},
	}
	for _, name := range s.RIRNames() {
		e := s.rirs[name]
		cp.RIRs = append(cp.RIRs, countedState{State: e.obj.State(), Count: e.count})
	}
	for _, name := range s.LIRNames() {
		e := s.lirs[name]
		cp.LIRs = append(cp.LIRs, countedState{State: e.obj.State(), Count: e.count})
	}
	for name, date := range s.exhaustion {
		cp.Exhaustion[name] = timeline.FormatDate(date)
	}

	raw, err := json.Marshal(&cp)
	if err != nil {
		return errors.Wrap(err, "failed to encode the checkpoint")
	}
	sw := snappy.NewBufferedWriter(w)
	if _, err := sw.Write(raw); err != nil {
		return errors.Wrap(err, "failed to write the checkpoint")
	}
	return errors.Wrap(sw.Close(), "failed to flush the checkpoint")
}

// Load rebuilds a simulation from a checkpoint written by Save.
func Load(r io.Reader, rec Recorder) (*Simulation, error) {
	raw, err := io.ReadAll(snappy.NewReader(r))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read the checkpoint")
	}
	var cp checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, errors.Wrap(err, "failed to decode the checkpoint")
	}
	if cp.Version != CheckpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d", cp.Version)
	}

	start, err := timeline.ParseDate(cp.Start)
	if err != nil {
		return nil, err
	}
	end, err := timeline.ParseDate(cp.End)
	if err != nil {
		return nil, err
	}

	pcg := &rand.PCG{}
	if err := pcg.UnmarshalBinary(cp.RNG); err != nil {
		return nil, errors.Wrap(err, "failed to restore the random generator")
	}
	s := &Simulation{
		runID: cp.RunID,
		opts: Options{
			Start:              start,
			End:                end,
			Seed:               cp.Seed,
			LIRBehaviour:       cp.LIRBehaviour,
			RIRBehaviour:       cp.RIRBehaviour,
			BehaviourOverrides: maps.Clone(cp.BehaviourOverrides),
			Recorder:           rec,
		},
		pcg:        pcg,
		rng:        rand.New(pcg),
		rirs:       map[string]*entry[*registry.RIR]{},
		lirs:       map[string]*entry[*registry.LIR]{},
		started:    cp.Started,
		events:     cp.Events,
		exhausted:  sets.New[string](),
		exhaustion: map[string]time.Time{},
	}

	if s.iana, err = registry.RestoreIANA(&cp.IANA, s.rng); err != nil {
		return nil, errors.Wrap(err, "failed to restore IANA")
	}
	for i := range cp.RIRs {
		rir, err := registry.RestoreRIR(&cp.RIRs[i].State, s.rng)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to restore RIR %q", cp.RIRs[i].Name)
		}
		s.rirs[rir.Name()] = &entry[*registry.RIR]{obj: rir, count: cp.RIRs[i].Count}
	}
	for i := range cp.LIRs {
		lir, err := registry.RestoreLIR(&cp.LIRs[i].State, s.rng)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to restore LIR %q", cp.LIRs[i].Name)
		}
		s.lirs[lir.Name()] = &entry[*registry.LIR]{obj: lir, count: cp.LIRs[i].Count}
	}

	// Suppliers are linked once every entity exists.
	for i := range cp.RIRs {
		if err := s.link(&s.rirs[cp.RIRs[i].Name].obj.Holder, cp.RIRs[i].Supplier); err != nil {
			return nil, err
		}
	}
	for i := range cp.LIRs {
		if err := s.link(&s.lirs[cp.LIRs[i].Name].obj.Holder, cp.LIRs[i].Supplier); err != nil {
			return nil, err
		}
	}

	if s.timeline, err = timeline.FromSlots(cp.Timeline); err != nil {
		return nil, errors.Wrap(err, "failed to restore the timeline")
	}
	for name, value := range cp.Exhaustion {
		date, err := timeline.ParseDate(value)
		if err != nil {
			return nil, err
		}
		s.exhaustion[name] = date
		if _, ok := s.rirs[name]; ok {
			s.exhausted.Insert(name)
		}
	}
	return s, nil
}

func (s *Simulation) link(h *registry.Holder, supplier string) error {
	switch {
	case supplier == "":
		return nil
	case supplier == s.iana.Name():
		h.SetSupplier(s.iana)
	default:
		e, ok := s.rirs[supplier]
		if !ok {
			return fmt.Errorf("entity %q refers to unknown supplier %q", h.Name(), supplier)
		}
		h.SetSupplier(e.obj)
	}
	return nil
}
