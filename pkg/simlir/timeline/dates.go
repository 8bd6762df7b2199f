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

package timeline

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	// DateLayout is the compact layout used for dates in records, scenarios and checkpoints.
	DateLayout = "20060102"

	// MinYear is the first year an event can be scheduled in.
	MinYear = 1993
	// MaxYear is the last year an event can be scheduled in.
	MaxYear = 2050

	// DefaultDelta is the default number of days between two activities of an entity.
	DefaultDelta = 27
	// DefaultUpperbound is the default upper bound of the random jitter added to DefaultDelta.
	DefaultUpperbound = 6
)

var (
	// ErrInvalidDate is returned when a date cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")
	// ErrOutOfRange is returned when a date falls outside the simulated years.
	ErrOutOfRange = errors.New("date out of range")
)

// Day truncates t to midnight UTC of the same calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYYMMDD string. Day and month must be valid for the calendar,
// the year is not bounded here, see CheckDate.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("%w %q: expected YYYYMMDD", ErrInvalidDate, s)
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %w", ErrInvalidDate, s, err)
	}
	return t, nil
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// FormatDate returns the YYYYMMDD representation of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// CheckDate verifies that t falls within the simulated years.
func CheckDate(t time.Time) error {
	if y := t.Year(); y < MinYear || y > MaxYear {
		return fmt.Errorf("%w: %s is not within %d-%d", ErrOutOfRange, FormatDate(t), MinYear, MaxYear)
	}
	return nil
}

// DayDelta returns the number of days from earlier to later, negative if later precedes earlier.
func DayDelta(later, earlier time.Time) int {
	return int(Day(later).Sub(Day(earlier)).Hours() / 24)
}

// AddDays moves t by the given number of days.
func AddDays(t time.Time, days int) time.Time {
	return Day(t).AddDate(0, 0, days)
}

// PeriodLater returns the date delta days after date, plus a uniformly random jitter in
// [1, upperbound] days. A non-positive upperbound disables the jitter.
func PeriodLater(date time.Time, delta, upperbound int, rng *rand.Rand) time.Time {
	jitter := 0
	if upperbound > 0 {
		jitter = rng.IntN(upperbound) + 1
	}
	return AddDays(date, delta+jitter)
}

// DefaultPeriodLater is PeriodLater with the default delta and jitter.
func DefaultPeriodLater(date time.Time, rng *rand.Rand) time.Time {
	return PeriodLater(date, DefaultDelta, DefaultUpperbound, rng)
}

// WithinDays returns whether other is at most days away from current, in either direction.
func WithinDays(current time.Time, days int, other time.Time) bool {
	delta := DayDelta(current, other)
	if delta < 0 {
		delta = -delta
	}
	return delta <= days
}
