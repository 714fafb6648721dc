package registration

import (
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// GracePeriod separates present from late: arriving strictly after
// start + GracePeriod is late.
const GracePeriod = 15 * time.Minute

// ══════════════════════════════════════════════════════════════════════════════
// STATES & TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceStatus is the explicit attendance state. Timestamps are auxiliary.
type AttendanceStatus string

const (
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendancePresent AttendanceStatus = "present"
	AttendanceLate    AttendanceStatus = "late"
)

// IsValid reports whether s is a known state.
func (s AttendanceStatus) IsValid() bool {
	switch s {
	case AttendanceAbsent, AttendancePresent, AttendanceLate:
		return true
	}
	return false
}

// Qualifies reports whether the state admits feedback.
func (s AttendanceStatus) Qualifies() bool {
	return s == AttendancePresent || s == AttendanceLate
}

// TransitionKind names the only two transitions the machine accepts.
type TransitionKind string

const (
	TransitionCheckIn  TransitionKind = "check_in"
	TransitionCheckOut TransitionKind = "check_out"
)

// Transition is the input to Attendance.Apply.
type Transition struct {
	Kind TransitionKind
	At   time.Time

	// RegistrationStatus gates check-in.
	RegistrationStatus Status

	// EventStart drives the present/late classification.
	EventStart time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Attendance records a registration's check-in and check-out.
type Attendance struct {
	ID             string
	RegistrationID string
	Status         AttendanceStatus
	CheckInTime    *time.Time
	CheckOutTime   *time.Time

	// Version is 0 until first persisted; stores compare-and-swap on it.
	Version int
}

// NewAttendance creates the implicit initial record in state absent.
func NewAttendance(id, registrationID string) *Attendance {
	return &Attendance{
		ID:             id,
		RegistrationID: registrationID,
		Status:         AttendanceAbsent,
	}
}

// ClassifyArrival returns late when at is strictly after start + GracePeriod.
func ClassifyArrival(at, eventStart time.Time) AttendanceStatus {
	if at.After(eventStart.Add(GracePeriod)) {
		return AttendanceLate
	}
	return AttendancePresent
}

// Apply is the single place attendance transitions are validated and
// performed. On error the record is left untouched.
func (a *Attendance) Apply(t Transition) error {
	switch t.Kind {
	case TransitionCheckIn:
		if t.RegistrationStatus != StatusRegistered {
			return shared.ErrNotRegistered
		}
		if a.CheckInTime != nil {
			return shared.ErrAlreadyCheckedIn
		}
		at := t.At
		a.CheckInTime = &at
		a.Status = ClassifyArrival(at, t.EventStart)
		return nil

	case TransitionCheckOut:
		if a.CheckInTime == nil {
			return shared.ErrMustCheckInFirst
		}
		if a.CheckOutTime != nil {
			return shared.ErrAlreadyCheckedOut
		}
		if t.At.Before(*a.CheckInTime) {
			return shared.ErrCheckOutBeforeIn
		}
		at := t.At
		a.CheckOutTime = &at
		return nil
	}

	return shared.InvalidInput("attendance", "Apply", "unknown transition "+string(t.Kind))
}

// Duration returns the time between check-in and check-out, or zero if the
// cycle is incomplete.
func (a *Attendance) Duration() time.Duration {
	if a.CheckInTime == nil || a.CheckOutTime == nil {
		return 0
	}
	return a.CheckOutTime.Sub(*a.CheckInTime)
}

// Clone returns a deep copy.
func (a *Attendance) Clone() *Attendance {
	cp := *a
	if a.CheckInTime != nil {
		t := *a.CheckInTime
		cp.CheckInTime = &t
	}
	if a.CheckOutTime != nil {
		t := *a.CheckOutTime
		cp.CheckOutTime = &t
	}
	return &cp
}
