// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form. Lexical order equals
// chronological order, so comparisons work on the string directly.
type Date string

// ParseDate validates v as a calendar date.
func ParseDate(v string) (Date, error) {
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", v, err)
	}
	return Date(t.Format(DateLayout)), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == "" }

// Time returns midnight UTC of d. The zero Date yields the zero time.
func (d Date) Time() time.Time {
	if d == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d Date) String() string { return string(d) }

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d < other }

// DurationDays returns the inclusive number of calendar days between start and end.
func DurationDays(start, end Date) int {
	s, e := start.Time(), end.Time()
	if s.IsZero() || e.IsZero() || e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}
