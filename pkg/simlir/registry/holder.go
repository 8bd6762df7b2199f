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

// Package registry models the address registries: IANA at the root, the RIRs below it and the LIRs
// at the edge. Each of them owns an allocation trie and the ledgers of what it was registered.
package registry

import (
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"net/netip"
	"time"

	"github.com/goombaio/namegenerator"
	"k8s.io/klog/v2"

	"github.com/liqotech/simlir/pkg/ipam/cidr"
	ipamcore "github.com/liqotech/simlir/pkg/ipam/core"
	"github.com/liqotech/simlir/pkg/simlir/behaviour"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
	"github.com/liqotech/simlir/pkg/utils"
)

// ErrNoSupplier is returned when an entity needs space but nobody supplies it.
var ErrNoSupplier = errors.New("no address supplier")

// Supplier is an entity other registries obtain address space from.
type Supplier interface {
	// Name returns the name of the supplier.
	Name() string
	// Exhausted returns whether the supplier failed to satisfy its last request.
	Exhausted() bool
	// Request allocates a block of the given prefix length to requester.
	// behaviour.UnsizedInitial and behaviour.UnsizedDefault select the sizes configured for the supplier.
	// The boolean is false when no space is left.
	Request(requester string, size int) (netip.Prefix, bool, error)
}

// Holder is the state shared by every registry.
type Holder struct {
	name       string
	date       time.Time
	tree       *ipamcore.Tree
	behaviour  behaviour.Behaviour
	supplier   Supplier
	registered Ledger

	span      uint64
	used      uint64
	exhausted bool
}

func newHolder(name string, date time.Time, b behaviour.Behaviour) (Holder, error) {
	h := Holder{name: name, tree: ipamcore.NewTree(), behaviour: b}
	if err := h.SetDate(date); err != nil {
		return Holder{}, err
	}
	return h, nil
}

// RandomName returns a random human readable entity name.
func RandomName(rng *rand.Rand) string {
	return namegenerator.NewNameGenerator(rng.Int64()).Generate()
}

// Name returns the name of the entity.
func (h *Holder) Name() string { return h.name }

// Date returns the current date of the entity.
func (h *Holder) Date() time.Time { return h.date }

// SetDate moves the entity to date.
func (h *Holder) SetDate(date time.Time) error {
	date = timeline.Day(date)
	if err := timeline.CheckDate(date); err != nil {
		return fmt.Errorf("entity %q: %w", h.name, err)
	}
	h.date = date
	return nil
}

// IncrementDate moves the entity one day forward.
func (h *Holder) IncrementDate() error {
	return h.SetDate(timeline.AddDays(h.date, 1))
}

// Tree returns the allocation trie of the entity.
func (h *Holder) Tree() *ipamcore.Tree { return h.tree }

// Behaviour returns the request sizing strategy of the entity.
func (h *Holder) Behaviour() behaviour.Behaviour { return h.behaviour }

// SetBehaviour replaces the request sizing strategy of the entity.
func (h *Holder) SetBehaviour(b behaviour.Behaviour) { h.behaviour = b }

// Supplier returns the entity this one obtains space from, if any.
func (h *Holder) Supplier() Supplier { return h.supplier }

// SetSupplier sets the entity this one obtains space from.
func (h *Holder) SetSupplier(s Supplier) { h.supplier = s }

// Registered returns the ledger of the prefixes registered to the entity.
func (h *Holder) Registered() *Ledger { return &h.registered }

// Exhausted returns whether the entity ran out of space.
func (h *Holder) Exhausted() bool { return h.exhausted }

// AddressSpan returns the number of addresses held by the entity.
func (h *Holder) AddressSpan() uint64 { return h.span }

// AddressesUsed returns the number of addresses the entity used or gave out.
func (h *Holder) AddressesUsed() uint64 { return h.used }

// AddressesAvailable returns the number of addresses held but not used.
func (h *Holder) AddressesAvailable() uint64 {
	if h.used >= h.span {
		return 0
	}
	return h.span - h.used
}

// PercentageUsed returns the share of used addresses, 0 to 100.
func (h *Holder) PercentageUsed() float64 {
	if h.span == 0 {
		return 0
	}
	return float64(h.used) / float64(h.span) * 100
}

// PercentageLeft returns the share of addresses still available, 0 to 100.
func (h *Holder) PercentageLeft() float64 {
	if h.used == 0 {
		return 100
	}
	return 100 - h.PercentageUsed()
}

// CountTreePrefixes returns the number of used prefixes in the trie.
func (h *Holder) CountTreePrefixes() int {
	return h.tree.CountUsedNodes()
}

// IterateTreePrefixes yields every used prefix of the trie with its data.
func (h *Holder) IterateTreePrefixes() iter.Seq2[netip.Prefix, string] {
	return h.tree.IterateNodes()
}

// SpanByUsedPrefix returns the number of addresses covered by the used prefixes of the trie,
// without counting twice the prefixes nested in a used supernet.
func (h *Holder) SpanByUsedPrefix() uint64 {
	return h.spanUnder(netip.PrefixFrom(netip.IPv4Unspecified(), 0))
}

func (h *Holder) spanUnder(prefix netip.Prefix) uint64 {
	seq, err := h.tree.IterateNodesUnderOnlySupernets(prefix)
	if err != nil {
		return 0
	}
	var total uint64
	for p := range seq {
		total += cidr.PrefixSpan(p)
	}
	return total
}

// DataSpan returns the number of addresses covered by the used nodes carrying exactly data.
func (h *Holder) DataSpan(data string) uint64 {
	var total uint64
	for p, d := range h.tree.IterateNodes() {
		if d == data {
			total += cidr.PrefixSpan(p)
		}
	}
	return total
}

func (h *Holder) label(note string) string {
	if note == "" {
		return h.name
	}
	return h.name + " " + note
}

// insert stores prefix in the trie and in the registered ledger.
func (h *Holder) insert(prefix netip.Prefix, note string, date time.Time, opts ipamcore.InsertOptions) error {
	if _, err := h.tree.InsertWithOptions(prefix, h.label(note), opts); err != nil {
		return fmt.Errorf("entity %q cannot register %s: %w", h.name, prefix, err)
	}
	h.registered.Record(prefix, date)
	klog.V(utils.LogDebugLevel).InfoS("Prefix registered", "entity", h.name, "prefix", prefix,
		"used", opts.MarkUsed, "date", timeline.FormatDate(date), "note", note)
	return nil
}

// AddPrefix registers prefix to the entity, as used or as free space it can allocate from.
func (h *Holder) AddPrefix(prefix netip.Prefix, note string, used bool, date time.Time) error {
	if err := h.insert(prefix, note, date, ipamcore.InsertOptions{MarkUsed: used, TestDup: true}); err != nil {
		return err
	}
	h.span += cidr.PrefixSpan(prefix)
	if used {
		h.used += cidr.PrefixSpan(prefix)
	}
	return nil
}

// supply carries the state of the entities handing out space.
type supply struct {
	fulfilled   Ledger
	initialSize int
	defaultSize int
}

func (s *supply) resolveSize(size int) int {
	switch size {
	case behaviour.UnsizedInitial:
		return s.initialSize
	case behaviour.UnsizedDefault:
		return s.defaultSize
	default:
		return size
	}
}

// FulfilledRequests returns the ledger of the blocks handed out.
func (s *supply) FulfilledRequests() *Ledger { return &s.fulfilled }

// HaveGivenOut returns whether prefix was handed out.
func (s *supply) HaveGivenOut(prefix netip.Prefix) bool { return s.fulfilled.Has(prefix) }

// grant records a block handed out by h to requester.
func (h *Holder) grant(s *supply, requester string, block netip.Prefix) error {
	note := fmt.Sprintf("%s %s", requester, timeline.FormatDate(h.date))
	if _, err := h.tree.Insert(block, note); err != nil {
		return fmt.Errorf("entity %q cannot hand out %s: %w", h.name, block, err)
	}
	s.fulfilled.Record(block, h.date)
	h.used += cidr.PrefixSpan(block)
	klog.V(utils.LogDebugLevel).InfoS("Request fulfilled", "supplier", h.name, "requester", requester,
		"prefix", block, "date", timeline.FormatDate(h.date))
	return nil
}
