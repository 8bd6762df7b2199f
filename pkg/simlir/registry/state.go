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

package registry

import (
	"math/rand/v2"
	"net/netip"
	"slices"

	ipamcore "github.com/liqotech/simlir/pkg/ipam/core"
	"github.com/liqotech/simlir/pkg/simlir/behaviour"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
)

// State is the serializable form of an entity. The internal caches of the behaviours are not
// part of it: restored behaviours start afresh.
type State struct {
	Name       string                `json:"name"`
	Date       string                `json:"date"`
	Behaviour  string                `json:"behaviour"`
	Supplier   string                `json:"supplier,omitempty"`
	Span       uint64                `json:"span"`
	Used       uint64                `json:"used"`
	Exhausted  bool                  `json:"exhausted,omitempty"`
	Tree       []ipamcore.NodeRecord `json:"tree"`
	Unusable   int                   `json:"unusable,omitempty"`
	Registered []LedgerEntry         `json:"registered,omitempty"`
	Fulfilled  []LedgerEntry         `json:"fulfilled,omitempty"`
	Pools      []netip.Prefix        `json:"pools,omitempty"`
}

func (h *Holder) state() State {
	st := State{
		Name:       h.name,
		Date:       timeline.FormatDate(h.date),
		Span:       h.span,
		Used:       h.used,
		Exhausted:  h.exhausted,
		Tree:       h.tree.Records(),
		Unusable:   h.tree.UnusablePrefixCount(),
		Registered: h.registered.Entries(),
	}
	if h.behaviour != nil {
		st.Behaviour = h.behaviour.String()
	}
	if h.supplier != nil {
		st.Supplier = h.supplier.Name()
	}
	return st
}

func restoreHolder(st *State, rng *rand.Rand) (Holder, error) {
	var h Holder
	b, err := behaviour.New(st.Behaviour, rng)
	if err != nil {
		return h, err
	}
	date, err := timeline.ParseDate(st.Date)
	if err != nil {
		return h, err
	}
	if h, err = newHolder(st.Name, date, b); err != nil {
		return h, err
	}
	if h.tree, err = ipamcore.RestoreTree(st.Tree, st.Unusable); err != nil {
		return h, err
	}
	if err := h.registered.restore(st.Registered); err != nil {
		return h, err
	}
	h.span, h.used, h.exhausted = st.Span, st.Used, st.Exhausted
	return h, nil
}

// State returns the serializable form of the root registry.
func (i *IANA) State() State {
	st := i.state()
	st.Fulfilled = i.fulfilled.Entries()
	return st
}

// RestoreIANA rebuilds the root registry from its serialized form.
func RestoreIANA(st *State, rng *rand.Rand) (*IANA, error) {
	h, err := restoreHolder(st, rng)
	if err != nil {
		return nil, err
	}
	i := &IANA{Holder: h, supply: supply{initialSize: h.behaviour.InitialSize(), defaultSize: h.behaviour.DefaultSize()}}
	if err := i.fulfilled.restore(st.Fulfilled); err != nil {
		return nil, err
	}
	return i, nil
}

// State returns the serializable form of the regional registry.
func (r *RIR) State() State {
	st := r.state()
	st.Fulfilled = r.fulfilled.Entries()
	st.Pools = slices.Clone(r.pools)
	return st
}

// RestoreRIR rebuilds a regional registry from its serialized form. The supplier is not linked.
func RestoreRIR(st *State, rng *rand.Rand) (*RIR, error) {
	h, err := restoreHolder(st, rng)
	if err != nil {
		return nil, err
	}
	r := &RIR{
		Holder: h,
		supply: supply{initialSize: behaviour.LIRInitialSize, defaultSize: behaviour.LIRDefaultSize},
		pools:  slices.Clone(st.Pools),
	}
	if err := r.fulfilled.restore(st.Fulfilled); err != nil {
		return nil, err
	}
	return r, nil
}

// State returns the serializable form of the local registry.
func (l *LIR) State() State {
	return l.state()
}

// RestoreLIR rebuilds a local registry from its serialized form. The supplier is not linked.
func RestoreLIR(st *State, rng *rand.Rand) (*LIR, error) {
	h, err := restoreHolder(st, rng)
	if err != nil {
		return nil, err
	}
	return &LIR{Holder: h}, nil
}
