// Package event holds the Event aggregate and its capacity counter.
package event

import (
	"strings"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// DefaultMaxCapacity applies when a create request leaves capacity unset.
const DefaultMaxCapacity = 100

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the event lifecycle stage.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: EVENT
// ══════════════════════════════════════════════════════════════════════════════

// NormalizeType is the stored form of an event type. Filters on event type
// must pass their value through it too.
func NormalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// Event is a scheduled happening with a bounded number of seats.
//
// CurrentRegistrations is a cached counter of live registrations and is only
// ever changed by the store's Reserve/Release primitives, never by Update.
type Event struct {
	ID          string
	CollegeID   string
	Title       string
	Description string
	EventType   string
	Location    string
	StartTime   time.Time
	EndTime     time.Time

	MaxCapacity          int
	CurrentRegistrations int

	Status    Status
	CreatedAt time.Time

	// Version is bumped on every write and used for compare-and-swap.
	Version int
}

// NewEventParams carries the inputs for New.
type NewEventParams struct {
	ID          string
	CollegeID   string
	Title       string
	Description string
	EventType   string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	MaxCapacity int
}

// New validates and builds an active Event with an empty counter.
func New(p NewEventParams, now time.Time) (*Event, error) {
	capacity := p.MaxCapacity
	if capacity == 0 {
		capacity = DefaultMaxCapacity
	}
	e := &Event{
		ID:          p.ID,
		CollegeID:   p.CollegeID,
		Title:       strings.TrimSpace(p.Title),
		Description: strings.TrimSpace(p.Description),
		EventType:   NormalizeType(p.EventType),
		Location:    strings.TrimSpace(p.Location),
		StartTime:   p.StartTime.UTC(),
		EndTime:     p.EndTime.UTC(),
		MaxCapacity: capacity,
		Status:      StatusActive,
		CreatedAt:   now,
		Version:     1,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks field-level and counter invariants.
func (e *Event) Validate() error {
	switch {
	case e.ID == "":
		return shared.InvalidInput("event", "Validate", "id is required")
	case e.CollegeID == "":
		return shared.InvalidInput("event", "Validate", "college_id is required")
	case e.Title == "" || len(e.Title) > 200:
		return shared.InvalidInput("event", "Validate", "title must be 1-200 characters")
	case e.EventType == "":
		return shared.InvalidInput("event", "Validate", "event_type is required")
	case !e.StartTime.Before(e.EndTime):
		return shared.ErrInvalidTimeRange
	case e.MaxCapacity <= 0:
		return shared.ErrInvalidCapacity
	case e.CurrentRegistrations < 0 || e.CurrentRegistrations > e.MaxCapacity:
		return shared.ErrCapacityBelowCount
	case !e.Status.IsValid():
		return shared.InvalidInput("event", "Validate", "unknown status")
	}
	return nil
}

// HasRoom reports whether another seat can be taken.
func (e *Event) HasRoom() bool {
	return e.CurrentRegistrations < e.MaxCapacity
}

// Started reports whether the event has begun at now.
func (e *Event) Started(now time.Time) bool {
	return !e.StartTime.After(now)
}

// Finished reports whether the event has ended at now.
func (e *Event) Finished(now time.Time) bool {
	return !e.EndTime.After(now)
}

// FillPercent is current/max*100 rounded to two decimals.
func (e *Event) FillPercent() float64 {
	if e.MaxCapacity == 0 {
		return 0
	}
	return shared.PercentOf(e.CurrentRegistrations, e.MaxCapacity)
}

// Cancel moves an active event to cancelled.
func (e *Event) Cancel() error {
	if e.Status != StatusActive {
		return shared.NewDomainError("event", "Cancel", shared.ErrInvalidState, "only active events can be cancelled")
	}
	e.Status = StatusCancelled
	return nil
}

// Complete moves an active event to completed.
func (e *Event) Complete() error {
	if e.Status != StatusActive {
		return shared.NewDomainError("event", "Complete", shared.ErrInvalidState, "only active events can be completed")
	}
	e.Status = StatusCompleted
	return nil
}

// UpdateParams holds optional field changes. Nil means unchanged.
type UpdateParams struct {
	Title       *string
	Description *string
	EventType   *string
	Location    *string
	StartTime   *time.Time
	EndTime     *time.Time
	MaxCapacity *int
}

// Apply merges p into e and re-validates. Capacity may not drop below the
// live registration count.
func (e *Event) Apply(p UpdateParams) error {
	if e.Status != StatusActive {
		return shared.NewDomainError("event", "Update", shared.ErrInvalidState, "only active events can be edited")
	}
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.EventType != nil {
		e.EventType = NormalizeType(*p.EventType)
	}
	if p.Location != nil {
		e.Location = strings.TrimSpace(*p.Location)
	}
	if p.StartTime != nil {
		e.StartTime = p.StartTime.UTC()
	}
	if p.EndTime != nil {
		e.EndTime = p.EndTime.UTC()
	}
	if p.MaxCapacity != nil {
		if *p.MaxCapacity <= 0 {
			return shared.ErrInvalidCapacity
		}
		if *p.MaxCapacity < e.CurrentRegistrations {
			return shared.ErrCapacityBelowCount
		}
		e.MaxCapacity = *p.MaxCapacity
	}
	return e.Validate()
}

// Clone returns a copy.
func (e *Event) Clone() *Event {
	cp := *e
	return &cp
}
