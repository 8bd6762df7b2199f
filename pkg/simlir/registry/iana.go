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
	"time"

	"k8s.io/klog/v2"

	"github.com/liqotech/simlir/pkg/ipam/cidr"
	ipamcore "github.com/liqotech/simlir/pkg/ipam/core"
	"github.com/liqotech/simlir/pkg/simlir/behaviour"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
	"github.com/liqotech/simlir/pkg/utils"
)

// IANAName is the name of the root registry.
const IANAName = "IANA"

// IANA is the root registry, holding the whole IPv4 space and handing it out to the RIRs.
type IANA struct {
	Holder
	supply
}

var _ Supplier = &IANA{}

// NewIANA returns the root registry, starting with the two halves of the address space
// available for allocation.
func NewIANA(date time.Time, b behaviour.Behaviour) (*IANA, error) {
	h, err := newHolder(IANAName, date, b)
	if err != nil {
		return nil, err
	}
	for _, half := range []string{"0.0.0.0/1", "128.0.0.0/1"} {
		if _, err := h.tree.InsertWithOptions(cidr.MustParsePrefix(half), h.name, ipamcore.InsertOptions{TestDup: true}); err != nil {
			return nil, fmt.Errorf("cannot initialize %s: %w", h.name, err)
		}
	}
	h.span = cidr.Span(0)

	return &IANA{
		Holder: h,
		supply: supply{initialSize: b.InitialSize(), defaultSize: b.DefaultSize()},
	}, nil
}

// AddPrefix registers a historical allocation. The span of IANA never changes, only the
// used counter grows.
func (i *IANA) AddPrefix(prefix netip.Prefix, note string, used bool, date time.Time) error {
	if err := i.insert(prefix, note, date, ipamcore.InsertOptions{MarkUsed: used, TestDup: true}); err != nil {
		return err
	}
	if used {
		i.used += cidr.PrefixSpan(prefix)
	}
	return nil
}

// SubtractCantUse marks the forbidden and the IANA reserved spaces as used, as selected.
func (i *IANA) SubtractCantUse(forbidden, reserved bool) error {
	var f, r []netip.Prefix
	if forbidden {
		f = ipamcore.ForbiddenSpaces()
	}
	if reserved {
		r = ipamcore.ReservedSpaces()
	}
	if err := i.tree.SubtractCantUse(f, r); err != nil {
		return err
	}
	i.used = i.SpanByUsedPrefix()
	return nil
}

// Request hands out the first free block of the given size.
func (i *IANA) Request(requester string, size int) (netip.Prefix, bool, error) {
	size = i.resolveSize(size)
	if i.exhausted {
		klog.V(utils.LogDebugLevel).InfoS("Request blocked, supplier exhausted", "supplier", i.name,
			"requester", requester, "size", size, "date", timeline.FormatDate(i.date))
		return netip.Prefix{}, false, nil
	}

	block, found, err := i.tree.FindGap(size)
	if err != nil {
		return netip.Prefix{}, false, err
	}
	if !found {
		i.exhausted = true
		klog.InfoS("IANA exhausted", "requester", requester, "size", size, "date", timeline.FormatDate(i.date))
		return netip.Prefix{}, false, nil
	}

	if err := i.grant(&i.supply, requester, block); err != nil {
		return netip.Prefix{}, false, err
	}
	return block, true, nil
}
