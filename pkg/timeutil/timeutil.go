// Package timeutil holds the calendar helpers shared by reports, the HTTP API
// and the CLI. Every instant is stored and compared in UTC, so calendar days
// here are UTC days.
package timeutil

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the bare calendar date format accepted on input and used for
// report day buckets.
const DateLayout = time.DateOnly

// ErrInvalidDate is returned when a value is neither RFC 3339 nor a bare date.
var ErrInvalidDate = errors.New("timeutil: invalid date")

// StartOfDay returns 00:00:00 of t's UTC day.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last nanosecond of t's UTC day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DayKey formats t's UTC day, e.g. "2025-03-10". Keys sort chronologically.
func DayKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// IsSameDay reports whether a and b fall on the same UTC day.
func IsSameDay(a, b time.Time) bool {
	return DayKey(a) == DayKey(b)
}

// ParseBound parses a range bound given as RFC 3339 or as a bare date. A bare
// date used as an upper bound covers the whole day. Empty input yields the
// zero time, meaning an open bound.
func ParseBound(raw string, upper bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	if upper {
		return EndOfDay(d), nil
	}
	return d, nil
}
