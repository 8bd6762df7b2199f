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
	"fmt"
	"net/netip"
	"slices"
	"time"

	"k8s.io/klog/v2"

	"github.com/liqotech/simlir/pkg/ipam/cidr"
	ipamcore "github.com/liqotech/simlir/pkg/ipam/core"
	"github.com/liqotech/simlir/pkg/simlir/behaviour"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
	"github.com/liqotech/simlir/pkg/utils"
)

// PoolStat describes the utilisation of a pool of a RIR.
type PoolStat struct {
	Prefix      netip.Prefix
	Used        uint64
	Left        uint64
	Utilisation float64
}

// RIR is a regional registry. It receives pools from IANA and hands out blocks to its LIRs.
type RIR struct {
	Holder
	supply

	pools []netip.Prefix
	stats []PoolStat
}

var _ Supplier = &RIR{}

// NewRIR returns an empty regional registry.
func NewRIR(name string, date time.Time, b behaviour.Behaviour) (*RIR, error) {
	h, err := newHolder(name, date, b)
	if err != nil {
		return nil, err
	}
	return &RIR{
		Holder: h,
		supply: supply{initialSize: behaviour.LIRInitialSize, defaultSize: behaviour.LIRDefaultSize},
	}, nil
}

// AddPrefix registers a block to the RIR. Free blocks become pools to allocate from,
// used blocks cannot be nested in a used prefix.
func (r *RIR) AddPrefix(prefix netip.Prefix, note string, used bool, date time.Time) error {
	opts := ipamcore.InsertOptions{MarkUsed: used, TestUsed: true, TestDup: true}
	if err := r.insert(prefix, note, date, opts); err != nil {
		return err
	}
	if used {
		r.used += cidr.PrefixSpan(prefix)
		return nil
	}
	r.span += cidr.PrefixSpan(prefix)
	r.pools = append(r.pools, prefix)
	return nil
}

// Pools returns the pools of the RIR, in the order they were received.
func (r *RIR) Pools() []netip.Prefix {
	return slices.Clone(r.pools)
}

// PoolStats returns the utilisation computed by the last UpdateStats.
func (r *RIR) PoolStats() []PoolStat {
	return slices.Clone(r.stats)
}

// UpdateStats recomputes the span and the used counters from the pools content.
func (r *RIR) UpdateStats() {
	r.stats = r.stats[:0]
	var span, used uint64
	for _, pool := range r.pools {
		size := cidr.PrefixSpan(pool)
		taken := r.spanUnder(pool)
		r.stats = append(r.stats, PoolStat{
			Prefix:      pool,
			Used:        taken,
			Left:        size - taken,
			Utilisation: float64(taken) / float64(size) * 100,
		})
		span += size
		used += taken
	}
	r.span, r.used = span, used
}

func (r *RIR) findGap(size int) (netip.Prefix, bool, error) {
	for _, pool := range r.pools {
		block, found, err := r.tree.FindGapFrom(pool, size)
		if err != nil || found {
			return block, found, err
		}
	}
	return netip.Prefix{}, false, nil
}

// Request hands out the first free block of the given size, looking at the pools in order.
// When every pool is full a default block is requested upstream and the search is retried.
func (r *RIR) Request(requester string, size int) (netip.Prefix, bool, error) {
	size = r.resolveSize(size)
	block, found, err := r.findGap(size)
	if err != nil {
		return netip.Prefix{}, false, err
	}

	if !found {
		r.exhausted = true
		if r.supplier == nil || r.supplier.Exhausted() {
			klog.V(utils.LogDebugLevel).InfoS("Request blocked, RIR exhausted", "rir", r.name,
				"requester", requester, "size", size, "date", timeline.FormatDate(r.date))
			return netip.Prefix{}, false, nil
		}

		pool, ok, err := r.supplier.Request(r.name, behaviour.UnsizedDefault)
		if err != nil {
			return netip.Prefix{}, false, err
		}
		if !ok {
			klog.InfoS("RIR exhausted", "rir", r.name, "requester", requester, "size", size,
				"date", timeline.FormatDate(r.date))
			return netip.Prefix{}, false, nil
		}
		if err := r.AddPrefix(pool, "FROM "+r.supplier.Name(), false, r.date); err != nil {
			return netip.Prefix{}, false, err
		}
		r.exhausted = false

		if block, found, err = r.tree.FindGapFrom(pool, size); err != nil || !found {
			return netip.Prefix{}, false, err
		}
	}

	if err := r.grant(&r.supply, requester, block); err != nil {
		return netip.Prefix{}, false, err
	}
	r.exhausted = false
	return block, true, nil
}

// Activity applies the behaviour at date, requesting space upstream as needed.
// It returns the dates the RIR wants to act again at.
func (r *RIR) Activity(date time.Time) ([]time.Time, error) {
	if err := r.SetDate(date); err != nil {
		return nil, err
	}

	req := r.behaviour.CalculateRequirement(behaviour.Input{
		Date:      r.date,
		Available: r.AddressesAvailable(),
		History:   r.registered.Registrations(),
	})

	var next []time.Time
	for _, amount := range req.Amounts {
		if r.exhausted || amount == 0 {
			continue
		}
		if r.supplier == nil {
			return nil, fmt.Errorf("rir %q: %w", r.name, ErrNoSupplier)
		}

		size := cidr.LengthForSpan(amount)
		block, ok, err := r.supplier.Request(r.name, size)
		if err != nil {
			return nil, err
		}
		if !ok {
			klog.V(utils.LogDebugLevel).InfoS("RIR blocked", "rir", r.name, "supplier", r.supplier.Name(),
				"size", size, "date", timeline.FormatDate(r.date))
			if retry, ok := r.behaviour.RetryAfterFailure(r.date); ok {
				next = append(next, retry)
			}
			continue
		}
		if err := r.AddPrefix(block, "FROM "+r.supplier.Name(), false, r.date); err != nil {
			return nil, err
		}
	}
	return append(next, req.Next), nil
}
