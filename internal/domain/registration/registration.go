// Package registration holds the Registration join entity together with the
// Attendance state machine and the Feedback gate that hang off it.
package registration

import (
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// Status is the registration lifecycle stage.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusCancelled  Status = "cancelled"
	StatusAttended   Status = "attended"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusRegistered, StatusCancelled, StatusAttended:
		return true
	}
	return false
}

// Registration links one student to one event. At most one live
// (non-cancelled) registration exists per pair.
type Registration struct {
	ID           string
	StudentID    string
	EventID      string
	Status       Status
	RegisteredAt time.Time
	CancelledAt  *time.Time
}

// New builds a live registration.
func New(id, studentID, eventID string, now time.Time) *Registration {
	return &Registration{
		ID:           id,
		StudentID:    studentID,
		EventID:      eventID,
		Status:       StatusRegistered,
		RegisteredAt: now,
	}
}

// IsLive reports whether the registration holds a seat.
func (r *Registration) IsLive() bool {
	return r.Status != StatusCancelled
}

// Cancel marks the registration cancelled. Stores call this inside the same
// atomic step that releases the seat.
func (r *Registration) Cancel(now time.Time) error {
	if r.Status == StatusCancelled {
		return shared.ErrAlreadyCancelled
	}
	r.Status = StatusCancelled
	r.CancelledAt = &now
	return nil
}

// Clone returns a deep copy.
func (r *Registration) Clone() *Registration {
	cp := *r
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		cp.CancelledAt = &t
	}
	return &cp
}
