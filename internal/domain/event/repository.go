package event

import (
	"context"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// Repository persists events. The registration counter is owned by the
// registration ledger; Update never writes it.
type Repository interface {
	// Create stores a new event. Returns shared.ErrCollegeNotFound if the
	// owning college is missing.
	Create(ctx context.Context, e *Event) error

	// GetByID returns shared.ErrEventNotFound if absent.
	GetByID(ctx context.Context, id string) (*Event, error)

	// List returns events matching f ordered by start time.
	List(ctx context.Context, f ListFilter, p shared.Pagination) ([]*Event, error)

	// Update writes descriptive fields and status if the stored version equals
	// expectedVersion, bumping it. A mismatch returns shared.ErrOptimisticLock.
	Update(ctx context.Context, e *Event, expectedVersion int) error

	// FindFinished returns active events whose end time is at or before now.
	FindFinished(ctx context.Context, now time.Time, limit int) ([]*Event, error)
}

// ListFilter narrows List. Zero values mean "any".
type ListFilter struct {
	CollegeID string
	EventType string
	Status    Status

	// Query matches title or description, case-insensitively.
	Query string

	// StartsFrom/StartsUntil bound the start time, inclusive.
	StartsFrom  time.Time
	StartsUntil time.Time
}

// Matches reports whether e passes the filter.
func (f ListFilter) Matches(e *Event) bool {
	if f.CollegeID != "" && e.CollegeID != f.CollegeID {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Query != "" && !shared.ContainsFold(e.Title, f.Query) && !shared.ContainsFold(e.Description, f.Query) {
		return false
	}
	if !f.StartsFrom.IsZero() && e.StartTime.Before(f.StartsFrom) {
		return false
	}
	if !f.StartsUntil.IsZero() && e.StartTime.After(f.StartsUntil) {
		return false
	}
	return true
}
