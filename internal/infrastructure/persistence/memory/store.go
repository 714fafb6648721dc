// Package memory provides a mutex-guarded in-memory implementation of every
// repository. Reads return clones so callers can never mutate stored rows.
// It backs tests and the "memory" storage driver.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
)

type state struct {
	colleges      map[string]*college.College
	students      map[string]*student.Student
	events        map[string]*event.Event
	registrations map[string]*registration.Registration
	attendance    map[string]*registration.Attendance // keyed by registration ID
	feedback      map[string]*registration.Feedback   // keyed by registration ID

	// live indexes the single live registration per (student, event) pair.
	live map[pairKey]string
}

type pairKey struct {
	studentID string
	eventID   string
}

func newState() state {
	return state{
		colleges:      map[string]*college.College{},
		students:      map[string]*student.Student{},
		events:        map[string]*event.Event{},
		registrations: map[string]*registration.Registration{},
		attendance:    map[string]*registration.Attendance{},
		feedback:      map[string]*registration.Feedback{},
		live:          map[pairKey]string{},
	}
}

// studentCollege returns the college of a stored student, "" if unknown.
func (st *state) studentCollege(studentID string) string {
	if s, ok := st.students[studentID]; ok {
		return s.CollegeID
	}
	return ""
}

// Store is the in-memory entity store. The zero value is not usable; call New.
type Store struct {
	mu    sync.RWMutex
	state state
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{state: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Colleges returns the college repository view.
func (s *Store) Colleges() *CollegeRepository { return &CollegeRepository{s: s} }

// Students returns the student repository view.
func (s *Store) Students() *StudentRepository { return &StudentRepository{s: s} }

// Events returns the event repository view.
func (s *Store) Events() *EventRepository { return &EventRepository{s: s} }

// Registrations returns the registration ledger.
func (s *Store) Registrations() *Ledger { return &Ledger{s: s} }

// Attendance returns the attendance repository view.
func (s *Store) Attendance() *AttendanceRepository { return &AttendanceRepository{s: s} }

// Feedback returns the feedback repository view.
func (s *Store) Feedback() *FeedbackRepository { return &FeedbackRepository{s: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}
