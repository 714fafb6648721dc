package registration

import (
	"context"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// Ledger owns registrations and the event capacity counter. Reserve and
// Release are the only writers of Event.CurrentRegistrations.
type Ledger interface {
	// Reserve is tryIncrementIfBelow: in one atomic step it increments the
	// event's counter, provided the counter still equals observedCount, is
	// below capacity and the event is active, and inserts reg. A stale
	// observation returns shared.ErrOptimisticLock; a live duplicate returns
	// shared.ErrDuplicateRegistration. Returns the new counter value.
	Reserve(ctx context.Context, reg *Registration, observedCount int) (int, error)

	// Release cancels the registration and decrements its event's counter
	// (floored at zero) in one atomic step. Returns the cancelled
	// registration and the new counter value.
	Release(ctx context.Context, registrationID string, at time.Time) (*Registration, int, error)

	// GetByID returns shared.ErrRegistrationNotFound if absent.
	GetByID(ctx context.Context, id string) (*Registration, error)

	// FindLive returns the live registration for the pair or
	// shared.ErrRegistrationNotFound.
	FindLive(ctx context.Context, studentID, eventID string) (*Registration, error)

	// ListByEvent returns registrations for an event, oldest first.
	ListByEvent(ctx context.Context, eventID string, p shared.Pagination) ([]*Registration, error)

	// ListByStudent returns registrations for a student, newest first.
	ListByStudent(ctx context.Context, studentID string, p shared.Pagination) ([]*Registration, error)

	// List returns registrations matching f, newest first. Rating and
	// attendance options are ignored.
	List(ctx context.Context, f ListFilter, p shared.Pagination) ([]*Registration, error)
}

// AttendanceRepository stores attendance records with per-record atomicity.
type AttendanceRepository interface {
	// GetByRegistration returns shared.ErrAttendanceNotFound if none exists.
	GetByRegistration(ctx context.Context, registrationID string) (*Attendance, error)

	// Save inserts (expectedVersion == 0) or updates the record if the stored
	// version equals expectedVersion, then bumps a.Version. A mismatch or a
	// concurrent insert returns shared.ErrOptimisticLock.
	Save(ctx context.Context, a *Attendance, expectedVersion int) error

	// List returns attendance records whose registration matches f, ordered
	// by check-in time. Rating options are ignored.
	List(ctx context.Context, f ListFilter, p shared.Pagination) ([]*Attendance, error)
}

// FeedbackRepository stores immutable feedback.
type FeedbackRepository interface {
	// GetByRegistration returns shared.ErrFeedbackNotFound if none exists.
	GetByRegistration(ctx context.Context, registrationID string) (*Feedback, error)

	// Create returns shared.ErrDuplicateFeedback if the registration already
	// has feedback.
	Create(ctx context.Context, f *Feedback) error

	// List returns feedback whose registration matches f, newest first.
	// Status options are ignored.
	List(ctx context.Context, f ListFilter, p shared.Pagination) ([]*Feedback, error)
}

// ListFilter narrows the registration, attendance and feedback listings. Zero
// values mean "any". CollegeID is the registered student's college.
type ListFilter struct {
	EventID   string
	StudentID string
	CollegeID string

	Status           Status
	AttendanceStatus AttendanceStatus

	// MinRating and MaxRating bound feedback ratings, inclusive.
	MinRating int
	MaxRating int
}

// Validate rejects unknown statuses and impossible rating bounds.
func (f ListFilter) Validate() error {
	switch {
	case f.Status != "" && !f.Status.IsValid():
		return shared.InvalidInput("registration", "List", "unknown status "+string(f.Status))
	case f.AttendanceStatus != "" && !f.AttendanceStatus.IsValid():
		return shared.InvalidInput("registration", "List", "unknown attendance status "+string(f.AttendanceStatus))
	case f.MinRating != 0 && !shared.Rating(f.MinRating).IsValid(),
		f.MaxRating != 0 && !shared.Rating(f.MaxRating).IsValid():
		return shared.InvalidInput("registration", "List", "rating bounds must be between 1 and 5")
	case f.MinRating != 0 && f.MaxRating != 0 && f.MinRating > f.MaxRating:
		return shared.InvalidInput("registration", "List", "min_rating must not exceed max_rating")
	}
	return nil
}

// MatchesRegistration checks the registration-level options. studentCollege
// is the college of r's student.
func (f ListFilter) MatchesRegistration(r *Registration, studentCollege string) bool {
	switch {
	case f.EventID != "" && r.EventID != f.EventID:
		return false
	case f.StudentID != "" && r.StudentID != f.StudentID:
		return false
	case f.CollegeID != "" && studentCollege != f.CollegeID:
		return false
	}
	return true
}

// MatchesRating checks the rating bounds.
func (f ListFilter) MatchesRating(r shared.Rating) bool {
	if f.MinRating != 0 && r.Int() < f.MinRating {
		return false
	}
	return f.MaxRating == 0 || r.Int() <= f.MaxRating
}
