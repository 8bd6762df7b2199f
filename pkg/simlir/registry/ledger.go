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
	"maps"
	"net/netip"
	"slices"
	"time"

	"github.com/liqotech/simlir/pkg/simlir/behaviour"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
)

// Ledger indexes prefixes by the date they were recorded at, and dates by prefix.
// The zero value is an empty ledger ready to use.
type Ledger struct {
	byDate   map[time.Time][]netip.Prefix
	byPrefix map[netip.Prefix][]time.Time
}

// LedgerEntry is a single record of a ledger.
type LedgerEntry struct {
	Date   string       `json:"date"`
	Prefix netip.Prefix `json:"prefix"`
}

// Record stores prefix at date.
func (l *Ledger) Record(prefix netip.Prefix, date time.Time) {
	if l.byDate == nil {
		l.byDate = map[time.Time][]netip.Prefix{}
		l.byPrefix = map[netip.Prefix][]time.Time{}
	}
	date = timeline.Day(date)
	l.byDate[date] = append(l.byDate[date], prefix)
	l.byPrefix[prefix] = append(l.byPrefix[prefix], date)
}

// Len returns the number of distinct prefixes.
func (l *Ledger) Len() int {
	return len(l.byPrefix)
}

// Has returns whether prefix was ever recorded.
func (l *Ledger) Has(prefix netip.Prefix) bool {
	_, ok := l.byPrefix[prefix]
	return ok
}

// Dates returns the dates prefix was recorded at.
func (l *Ledger) Dates(prefix netip.Prefix) []time.Time {
	return slices.Clone(l.byPrefix[prefix])
}

// At returns the prefixes recorded at date.
func (l *Ledger) At(date time.Time) []netip.Prefix {
	return slices.Clone(l.byDate[timeline.Day(date)])
}

// Prefixes returns the recorded prefixes in address order.
func (l *Ledger) Prefixes() []netip.Prefix {
	return slices.SortedFunc(maps.Keys(l.byPrefix), func(a, b netip.Prefix) int {
		return a.Compare(b)
	})
}

// Registrations returns the ledger grouped by date, oldest first.
func (l *Ledger) Registrations() []behaviour.Registration {
	dates := slices.SortedFunc(maps.Keys(l.byDate), time.Time.Compare)
	out := make([]behaviour.Registration, 0, len(dates))
	for _, d := range dates {
		out = append(out, behaviour.Registration{Date: d, Prefixes: slices.Clone(l.byDate[d])})
	}
	return out
}

// Entries flattens the ledger, oldest first, preserving the recording order within a date.
func (l *Ledger) Entries() []LedgerEntry {
	var out []LedgerEntry
	for _, r := range l.Registrations() {
		for _, p := range r.Prefixes {
			out = append(out, LedgerEntry{Date: timeline.FormatDate(r.Date), Prefix: p})
		}
	}
	return out
}

// restore replays the output of Entries.
func (l *Ledger) restore(entries []LedgerEntry) error {
	for _, e := range entries {
		date, err := timeline.ParseDate(e.Date)
		if err != nil {
			return err
		}
		l.Record(e.Prefix, date)
	}
	return nil
}
