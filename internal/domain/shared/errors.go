// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds. Every error surfaced by the engine matches exactly one of
// these via errors.Is().
var (
	// ErrNotFound: a referenced entity is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict: duplicate registration or feedback, repeated check-in/out,
	// lost race on a contended counter.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState: operation attempted outside its allowed lifecycle stage.
	ErrInvalidState = errors.New("invalid state")

	// ErrCapacityExceeded: the event has no free seats.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrForbidden: feedback without qualifying attendance.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput: field-level validation failure.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrOptimisticLock signals a lost compare-and-swap. It is internal to the
// engine's retry loop and is translated before reaching callers.
var ErrOptimisticLock = errors.New("optimistic lock failure")

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "registration", "event", "report"
	Op      string // Operation that failed, e.g., "Register", "CheckIn"
	Kind    error  // Base error kind for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Entity lookup errors
var (
	ErrCollegeNotFound      = NewDomainError("college", "Find", ErrNotFound, "college not found")
	ErrStudentNotFound      = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrEventNotFound        = NewDomainError("event", "Find", ErrNotFound, "event not found")
	ErrRegistrationNotFound = NewDomainError("registration", "Find", ErrNotFound, "registration not found")
	ErrAttendanceNotFound   = NewDomainError("attendance", "Find", ErrNotFound, "attendance not found")
	ErrFeedbackNotFound     = NewDomainError("feedback", "Find", ErrNotFound, "feedback not found")
)

// Registration engine errors
var (
	ErrEventNotActive        = NewDomainError("registration", "Register", ErrInvalidState, "event not active")
	ErrEventAlreadyStarted   = NewDomainError("registration", "Register", ErrInvalidState, "event already started or past")
	ErrDuplicateRegistration = NewDomainError("registration", "Register", ErrConflict, "duplicate registration")
	ErrEventFull             = NewDomainError("registration", "Register", ErrCapacityExceeded, "event is full")
	ErrRegistrationContended = NewDomainError("registration", "Register", ErrConflict, "registration contended, try again")
	ErrAlreadyCancelled      = NewDomainError("registration", "Cancel", ErrInvalidState, "registration already cancelled")
)

// Attendance state machine errors
var (
	ErrNotRegistered       = NewDomainError("attendance", "CheckIn", ErrInvalidState, "not registered")
	ErrAlreadyCheckedIn    = NewDomainError("attendance", "CheckIn", ErrConflict, "already checked in")
	ErrMustCheckInFirst    = NewDomainError("attendance", "CheckOut", ErrInvalidState, "must check in first")
	ErrAlreadyCheckedOut   = NewDomainError("attendance", "CheckOut", ErrConflict, "already checked out")
	ErrCheckOutBeforeIn    = NewDomainError("attendance", "CheckOut", ErrInvalidInput, "check-out time precedes check-in time")
	ErrAttendanceContended = NewDomainError("attendance", "Save", ErrConflict, "attendance record modified concurrently")
)

// Feedback gate errors
var (
	ErrAttendanceRequired = NewDomainError("feedback", "Submit", ErrForbidden, "attendance required")
	ErrDuplicateFeedback  = NewDomainError("feedback", "Submit", ErrConflict, "duplicate feedback")
	ErrInvalidRating      = NewDomainError("feedback", "Validate", ErrInvalidInput, "rating must be between 1 and 5")
)

// Entity store constraint errors
var (
	ErrDuplicateStudentID = NewDomainError("student", "Create", ErrConflict, "student_id already exists in this college")
	ErrInvalidCapacity    = NewDomainError("event", "Validate", ErrInvalidInput, "max_capacity must be positive")
	ErrInvalidTimeRange   = NewDomainError("event", "Validate", ErrInvalidInput, "end_time must be after start_time")
	ErrCapacityBelowCount = NewDomainError("event", "Update", ErrInvalidInput, "max_capacity cannot be below current registrations")
	ErrEventContended     = NewDomainError("event", "Update", ErrConflict, "event modified concurrently")
)

// Report errors
var (
	ErrUnknownReportKind = NewDomainError("report", "Get", ErrInvalidInput, "unknown report kind")
)

// InvalidInput builds an ErrInvalidInput error for a specific field.
func InvalidInput(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrInvalidInput, message)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidState checks if the error is a lifecycle violation.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsCapacityExceeded checks if the event was full.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsInvalidInput checks if the error is a validation error.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsOptimisticLock checks if a compare-and-swap was lost.
func IsOptimisticLock(err error) bool {
	return errors.Is(err, ErrOptimisticLock)
}

// Kind returns the base kind of err, or nil if err carries none.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrInvalidState, ErrCapacityExceeded, ErrForbidden, ErrInvalidInput} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
