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
	"time"

	"k8s.io/klog/v2"

	"github.com/liqotech/simlir/pkg/ipam/cidr"
	"github.com/liqotech/simlir/pkg/simlir/behaviour"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
	"github.com/liqotech/simlir/pkg/utils"
)

// MinLIRRequest is the amount of addresses a LIR requirement must exceed to be requested.
const MinLIRRequest uint64 = 1 << 8

// LIR is a local registry, obtaining space from its RIR and using all of it.
type LIR struct {
	Holder
}

// NewLIR returns an empty local registry.
func NewLIR(name string, date time.Time, b behaviour.Behaviour) (*LIR, error) {
	h, err := newHolder(name, date, b)
	if err != nil {
		return nil, err
	}
	return &LIR{Holder: h}, nil
}

// Activity applies the behaviour at date, requesting the needed blocks from the supplier
// rounded up to a power of two. It returns the dates the LIR wants to act again at.
func (l *LIR) Activity(date time.Time) ([]time.Time, error) {
	if err := l.SetDate(date); err != nil {
		return nil, err
	}

	req := l.behaviour.CalculateRequirement(behaviour.Input{
		Date:      l.date,
		Available: l.AddressesAvailable(),
		History:   l.registered.Registrations(),
	})

	var next []time.Time
	for _, amount := range req.Amounts {
		if amount <= MinLIRRequest {
			continue
		}
		if l.supplier == nil {
			return nil, fmt.Errorf("lir %q: %w", l.name, ErrNoSupplier)
		}

		size := cidr.LengthForSpan(amount)
		block, ok, err := l.supplier.Request(l.name, size)
		if err != nil {
			return nil, err
		}
		if !ok {
			klog.V(utils.LogDebugLevel).InfoS("LIR blocked", "lir", l.name, "supplier", l.supplier.Name(),
				"size", size, "date", timeline.FormatDate(l.date))
			if retry, ok := l.behaviour.RetryAfterFailure(l.date); ok {
				next = append(next, retry)
			}
			continue
		}
		if err := l.AddPrefix(block, "FROM "+l.supplier.Name(), true, l.date); err != nil {
			return nil, err
		}
	}
	return append(next, req.Next), nil
}
