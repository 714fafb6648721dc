package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule fires on wall-clock multiples of Interval, so every
// replica sweeps at the same instants.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a new IntervalSchedule. Interval must be positive.
func NewIntervalSchedule(interval time.Duration) (*IntervalSchedule, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidSchedule, interval)
	}
	return &IntervalSchedule{Interval: interval}, nil
}

// Next returns the first interval boundary strictly after t.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Truncate(s.Interval).Add(s.Interval)
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval)
}
