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
	"errors"
	"net/netip"
	"time"

	"k8s.io/klog/v2"

	"github.com/liqotech/simlir/pkg/ipam/cidr"
	ipamcore "github.com/liqotech/simlir/pkg/ipam/core"
	"github.com/liqotech/simlir/pkg/simlir/config"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
	"github.com/liqotech/simlir/pkg/utils"
)

// DefaultNonZeroDate replaces the unknown dates of the allocation records.
var DefaultNonZeroDate = timeline.Date(timeline.MinYear, time.January, 1)

// Statuses of the IANA records not directed to a RIR, with the note they are recorded with.
var ianaStatuses = map[string]string{
	"ietf":     "IETF RESERVED",
	"assigned": "ASSIGNED",
	"various":  "VARIOUS",
	"reserved": "RESERVED",
}

// FromScenario builds the world described by the scenario: the RIRs, the unusable spaces and
// the historical allocations.
func FromScenario(sc *config.Scenario, rec Recorder) (*Simulation, error) {
	start, err := timeline.ParseDate(sc.Start)
	if err != nil {
		return nil, err
	}
	end, err := timeline.ParseDate(sc.End)
	if err != nil {
		return nil, err
	}

	s, err := New(Options{
		Start:              start,
		End:                end,
		Seed:               sc.Seed,
		LIRBehaviour:       sc.LIRBehaviour,
		RIRBehaviour:       sc.RIRBehaviour,
		BehaviourOverrides: sc.BehaviourOverrides,
		Recorder:           rec,
	})
	if err != nil {
		return nil, err
	}

	for _, name := range sc.RIRs {
		if _, err := s.CreateRIRIfNotSeen(name); err != nil {
			return nil, err
		}
	}
	if err := s.iana.SubtractCantUse(sc.SubtractForbidden, sc.SubtractReserved); err != nil {
		return nil, err
	}
	for i := range sc.IANAAllocations {
		if err := s.RecordIANAAllocation(&sc.IANAAllocations[i]); err != nil {
			return nil, err
		}
	}
	for i := range sc.RIRAllocations {
		if err := s.RecordRIRAllocation(&sc.RIRAllocations[i]); err != nil {
			return nil, err
		}
	}

	klog.InfoS("World populated", "rirs", len(s.rirs), "lirs", len(s.lirs),
		"ianaAllocations", len(sc.IANAAllocations), "rirAllocations", len(sc.RIRAllocations))
	return s, nil
}

// AllocationPrefixes decomposes the block of a record into a series of CIDR prefixes.
func AllocationPrefixes(a *config.Allocation) ([]netip.Prefix, error) {
	start, err := a.StartAddr()
	if err != nil {
		return nil, err
	}
	return cidr.Series(start, cidr.DecomposeAmount(a.Size))
}

func allocationDate(a *config.Allocation) (time.Time, error) {
	if a.Date == config.UnknownDate || a.Date == "" {
		return DefaultNonZeroDate, nil
	}
	return timeline.ParseDate(a.Date)
}

// ignoreConflict logs and drops the structural conflicts raised while registering historical data.
func ignoreConflict(err error, a *config.Allocation) error {
	if errors.Is(err, ipamcore.ErrConflict) {
		klog.V(utils.LogDebugLevel).InfoS("Historical allocation skipped", "registry", a.Registry,
			"start", a.Start, "size", a.Size, "err", err)
		return nil
	}
	return err
}

// skipMisaligned drops the records whose block cannot be expressed as a series of CIDR prefixes.
func skipMisaligned(err error, a *config.Allocation) error {
	if errors.Is(err, cidr.ErrInvalidPrefix) {
		klog.InfoS("Allocation record skipped", "registry", a.Registry, "start", a.Start, "size", a.Size, "err", err)
		return nil
	}
	return err
}

// RecordIANAAllocation registers a block handed out by IANA. Blocks handed to a RIR become pools of
// that RIR, the others are marked used in IANA with a note describing their status.
func (s *Simulation) RecordIANAAllocation(a *config.Allocation) error {
	prefixes, err := AllocationPrefixes(a)
	if err != nil {
		return skipMisaligned(err, a)
	}
	date, err := allocationDate(a)
	if err != nil {
		return err
	}

	if note, ok := ianaStatuses[a.Status]; ok {
		for _, p := range prefixes {
			if err := ignoreConflict(s.iana.AddPrefix(p, note, true, date), a); err != nil {
				return err
			}
		}
		return nil
	}

	rir, err := s.CreateRIRIfNotSeen(a.Status)
	if err != nil {
		return err
	}
	note := "TO RIR " + a.Status
	for _, p := range prefixes {
		if err := ignoreConflict(rir.AddPrefix(p, note, false, date), a); err != nil {
			return err
		}
		if err := ignoreConflict(s.iana.AddPrefix(p, note, true, date), a); err != nil {
			return err
		}
	}
	rir.SetSupplier(s.iana)
	return nil
}

// RecordRIRAllocation registers a block handed out by a RIR to the LIR of a country.
// Records of IANA are forwarded to RecordIANAAllocation. The first RIR seen for a LIR becomes its supplier.
func (s *Simulation) RecordRIRAllocation(a *config.Allocation) error {
	if a.Registry == "iana" {
		return s.RecordIANAAllocation(a)
	}

	prefixes, err := AllocationPrefixes(a)
	if err != nil {
		return skipMisaligned(err, a)
	}
	date, err := allocationDate(a)
	if err != nil {
		return err
	}

	rir, err := s.CreateRIRIfNotSeen(a.Registry)
	if err != nil {
		return err
	}
	lir, err := s.CreateLIRIfNotSeen(a.Country)
	if err != nil {
		return err
	}

	note := "FROM " + rir.Name()
	for _, p := range prefixes {
		if err := ignoreConflict(lir.AddPrefix(p, note, true, date), a); err != nil {
			return err
		}
		if err := ignoreConflict(rir.AddPrefix(p, "TO "+lir.Name(), true, date), a); err != nil {
			return err
		}
	}
	if lir.Supplier() == nil {
		lir.SetSupplier(rir)
	}
	return nil
}
