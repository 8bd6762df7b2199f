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

// Package config contains the scenario file and the command line options of the simulator.
package config

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/liqotech/simlir/pkg/simlir/behaviour"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
)

const (
	// DefaultStart is the date the simulation starts at when not configured.
	DefaultStart = "19930101"
	// DefaultEnd is the date the simulation stops at when not configured.
	DefaultEnd = "20501231"
	// DefaultLIRBehaviour is the behaviour of the LIRs when not configured.
	DefaultLIRBehaviour = "LIR_Static"
	// DefaultRIRBehaviour is the behaviour of the RIRs when not configured.
	DefaultRIRBehaviour = "RIR_Standard"
)

// Allocation is the record of a block handed out by a registry.
type Allocation struct {
	// Registry is the registry handing out the block.
	Registry string `json:"registry"`
	// Country identifies the receiving LIR in RIR records.
	Country string `json:"country,omitempty"`
	// Start is the first address of the block.
	Start string `json:"start"`
	// Size is the number of addresses, not necessarily a power of two.
	Size uint64 `json:"size"`
	// Date is the allocation date, YYYYMMDD. 00000000 stands for an unknown date.
	Date string `json:"date"`
	// Status is the allocation status, or the receiving RIR in IANA records.
	Status string `json:"status"`
}

// StartAddr parses the first address of the block.
func (a *Allocation) StartAddr() (netip.Addr, error) {
	addr, err := netip.ParseAddr(a.Start)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("invalid start address %q", a.Start)
	}
	return addr, nil
}

// Scenario is the description of a simulation run.
type Scenario struct {
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
	Seed         uint64 `json:"seed,omitempty"`
	LIRBehaviour string `json:"lirBehaviour,omitempty"`
	RIRBehaviour string `json:"rirBehaviour,omitempty"`
	// BehaviourOverrides selects the behaviour of single entities, by name.
	BehaviourOverrides map[string]string `json:"behaviourOverrides,omitempty"`

	SubtractForbidden bool `json:"subtractForbidden,omitempty"`
	SubtractReserved  bool `json:"subtractReserved,omitempty"`

	// RIRs are created upfront, even without allocation records.
	RIRs            []string     `json:"rirs,omitempty"`
	IANAAllocations []Allocation `json:"ianaAllocations,omitempty"`
	RIRAllocations  []Allocation `json:"rirAllocations,omitempty"`
	// DelegatedFiles are RIR statistics exchange files, relative to the scenario file.
	DelegatedFiles []string `json:"delegatedFiles,omitempty"`
}

// LoadScenario reads and validates a scenario file, including the delegated files it references.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read scenario %q", path)
	}

	var s Scenario
	if err := yaml.UnmarshalStrict(raw, &s); err != nil {
		return nil, errors.Wrapf(err, "failed to parse scenario %q", path)
	}

	for _, file := range s.DelegatedFiles {
		if !filepath.IsAbs(file) {
			file = filepath.Join(filepath.Dir(path), file)
		}
		records, err := readDelegated(file)
		if err != nil {
			return nil, err
		}
		s.RIRAllocations = append(s.RIRAllocations, records...)
	}

	s.SetDefaults()
	if err := s.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid scenario %q", path)
	}
	return &s, nil
}

// SetDefaults fills the unset fields.
func (s *Scenario) SetDefaults() {
	if s.Start == "" {
		s.Start = DefaultStart
	}
	if s.End == "" {
		s.End = DefaultEnd
	}
	if s.LIRBehaviour == "" {
		s.LIRBehaviour = DefaultLIRBehaviour
	}
	if s.RIRBehaviour == "" {
		s.RIRBehaviour = DefaultRIRBehaviour
	}
}

// Validate checks dates, behaviours and allocation records.
func (s *Scenario) Validate() error {
	start, err := timeline.ParseDate(s.Start)
	if err != nil {
		return err
	}
	end, err := timeline.ParseDate(s.End)
	if err != nil {
		return err
	}
	for _, d := range []time.Time{start, end} {
		if err := timeline.CheckDate(d); err != nil {
			return err
		}
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s precedes start date %s", s.End, s.Start)
	}

	for _, selector := range []string{s.LIRBehaviour, s.RIRBehaviour} {
		if _, _, err := behaviour.Parse(selector); err != nil {
			return err
		}
	}
	for name, selector := range s.BehaviourOverrides {
		if _, _, err := behaviour.Parse(selector); err != nil {
			return fmt.Errorf("entity %q: %w", name, err)
		}
	}

	check := func(kind string, records []Allocation) error {
		for i := range records {
			a := &records[i]
			if _, err := a.StartAddr(); err != nil {
				return fmt.Errorf("%s allocation %d: %w", kind, i, err)
			}
			if a.Size == 0 {
				return fmt.Errorf("%s allocation %d: empty block", kind, i)
			}
			if a.Date != UnknownDate {
				if _, err := timeline.ParseDate(a.Date); err != nil {
					return fmt.Errorf("%s allocation %d: %w", kind, i, err)
				}
			}
		}
		return nil
	}
	if err := check("IANA", s.IANAAllocations); err != nil {
		return err
	}
	return check("RIR", s.RIRAllocations)
}

// UnknownDate marks allocation records without a date.
const UnknownDate = "00000000"

func readDelegated(path string) ([]Allocation, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open delegated file %q", path)
	}
	defer f.Close()

	records, err := ParseDelegated(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse delegated file %q", path)
	}
	return records, nil
}

// ParseDelegated reads the IPv4 records of a RIR statistics exchange file, in the form
// "registry|cc|type|start|value|date|status". Version, summary and comment lines are skipped.
func ParseDelegated(r io.Reader) ([]Allocation, error) {
	var records []Allocation
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Split(text, "|")
		if len(fields) < 7 {
			// Version lines carry fewer fields, summary lines end with "summary".
			continue
		}
		if fields[2] != "ipv4" || fields[1] == "*" || fields[3] == "*" {
			continue
		}

		size, err := strconv.ParseUint(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid size %q", line, fields[4])
		}
		date := fields[5]
		if date == "" {
			date = UnknownDate
		}
		records = append(records, Allocation{
			Registry: strings.ToLower(fields[0]),
			Country:  strings.ToUpper(fields[1]),
			Start:    fields[3],
			Size:     size,
			Date:     date,
			Status:   strings.ToLower(fields[6]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
