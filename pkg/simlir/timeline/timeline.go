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

// Package timeline provides the date-ordered event queue driving the simulation.
package timeline

import (
	"fmt"
	"iter"
	"slices"
	"time"
)

// Slot groups the items scheduled at the same date.
type Slot[T comparable] struct {
	Date  time.Time `json:"date"`
	Items []T       `json:"items"`
}

// Timeline is an ordered set of dates, each holding the items scheduled for that day.
// The zero value is an empty timeline ready to use.
type Timeline[T comparable] struct {
	slots []Slot[T]
}

// New returns an empty timeline.
func New[T comparable]() *Timeline[T] {
	return &Timeline[T]{}
}

// FromSlots rebuilds a timeline from the output of Slots.
func FromSlots[T comparable](slots []Slot[T]) (*Timeline[T], error) {
	tl := New[T]()
	for _, s := range slots {
		if err := tl.Add(s.Date, s.Items...); err != nil {
			return nil, err
		}
	}
	return tl, nil
}

func (tl *Timeline[T]) search(date time.Time) (int, bool) {
	return slices.BinarySearchFunc(tl.slots, date, func(s Slot[T], d time.Time) int {
		return s.Date.Compare(d)
	})
}

// Add appends the items to the slot at date, creating it if needed.
func (tl *Timeline[T]) Add(date time.Time, items ...T) error {
	date = Day(date)
	if err := CheckDate(date); err != nil {
		return fmt.Errorf("cannot schedule: %w", err)
	}

	i, found := tl.search(date)
	if !found {
		tl.slots = slices.Insert(tl.slots, i, Slot[T]{Date: date})
	}
	tl.slots[i].Items = append(tl.slots[i].Items, items...)
	return nil
}

// At returns the items scheduled at date.
func (tl *Timeline[T]) At(date time.Time) ([]T, bool) {
	i, found := tl.search(Day(date))
	if !found {
		return nil, false
	}
	return slices.Clone(tl.slots[i].Items), true
}

// FirstBefore returns the last slot strictly preceding date.
func (tl *Timeline[T]) FirstBefore(date time.Time) (Slot[T], bool) {
	i, _ := tl.search(Day(date))
	if i == 0 {
		return Slot[T]{}, false
	}
	return tl.clone(i - 1), true
}

// FirstAfter returns the first slot strictly following date.
func (tl *Timeline[T]) FirstAfter(date time.Time) (Slot[T], bool) {
	i, found := tl.search(Day(date))
	if found {
		i++
	}
	if i >= len(tl.slots) {
		return Slot[T]{}, false
	}
	return tl.clone(i), true
}

// Remove deletes the whole slot at date.
func (tl *Timeline[T]) Remove(date time.Time) bool {
	i, found := tl.search(Day(date))
	if !found {
		return false
	}
	tl.slots = slices.Delete(tl.slots, i, i+1)
	return true
}

// Prune deletes every occurrence of item from the slot at date. An emptied slot is kept.
func (tl *Timeline[T]) Prune(date time.Time, item T) bool {
	i, found := tl.search(Day(date))
	if !found {
		return false
	}
	before := len(tl.slots[i].Items)
	tl.slots[i].Items = slices.DeleteFunc(tl.slots[i].Items, func(it T) bool { return it == item })
	return len(tl.slots[i].Items) != before
}

// Head returns the earliest scheduled date.
func (tl *Timeline[T]) Head() (time.Time, bool) {
	if len(tl.slots) == 0 {
		return time.Time{}, false
	}
	return tl.slots[0].Date, true
}

// Len returns the number of distinct dates.
func (tl *Timeline[T]) Len() int {
	return len(tl.slots)
}

// Slots returns a deep copy of the timeline content, in date order.
func (tl *Timeline[T]) Slots() []Slot[T] {
	out := make([]Slot[T], len(tl.slots))
	for i := range tl.slots {
		out[i] = tl.clone(i)
	}
	return out
}

func (tl *Timeline[T]) clone(i int) Slot[T] {
	return Slot[T]{Date: tl.slots[i].Date, Items: slices.Clone(tl.slots[i].Items)}
}

// Walk yields every scheduled item in date order, and in insertion order within a date.
// Items added while walking are observed when scheduled at the current or a later date.
// Each call uses its own cursor.
func (tl *Timeline[T]) Walk() iter.Seq2[time.Time, T] {
	return func(yield func(time.Time, T) bool) {
		if len(tl.slots) == 0 {
			return
		}
		current := tl.slots[0].Date
		pos := 0

		for {
			i, found := tl.search(current)
			if !found {
				// The current slot was removed while walking: resume from the following one.
				if i >= len(tl.slots) {
					return
				}
				current, pos = tl.slots[i].Date, 0
				continue
			}

			if pos < len(tl.slots[i].Items) {
				item := tl.slots[i].Items[pos]
				pos++
				if !yield(current, item) {
					return
				}
				continue
			}

			if i+1 >= len(tl.slots) {
				return
			}
			current, pos = tl.slots[i+1].Date, 0
		}
	}
}
