package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/report"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EventRepository implements event.Repository for PostgreSQL. It never
// writes current_registrations; only the Ledger does.
type EventRepository struct {
	conn *Connection
}

var _ event.Repository = (*EventRepository)(nil)

// NewEventRepository creates a new EventRepository.
func NewEventRepository(conn *Connection) *EventRepository {
	return &EventRepository{conn: conn}
}

const eventColumnsSQL = `e.id, e.college_id, e.title, e.description, e.event_type, e.location,
	e.start_time, e.end_time, e.max_capacity, e.current_registrations, e.status, e.created_at, e.version`

func scanEvent(row pgx.Row) (*event.Event, error) {
	var e event.Event
	var status string
	err := row.Scan(
		&e.ID, &e.CollegeID, &e.Title, &e.Description, &e.EventType, &e.Location,
		&e.StartTime, &e.EndTime, &e.MaxCapacity, &e.CurrentRegistrations, &status, &e.CreatedAt, &e.Version,
	)
	if err != nil {
		return nil, err
	}
	e.Status = event.Status(status)
	return &e, nil
}

// Create inserts the event with a zero counter.
func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO events (
			id, college_id, title, description, event_type, location,
			start_time, end_time, max_capacity, current_registrations, status, created_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11, $12)
	`,
		e.ID, e.CollegeID, e.Title, e.Description, e.EventType, e.Location,
		e.StartTime, e.EndTime, e.MaxCapacity, string(e.Status), e.CreatedAt, max(e.Version, 1),
	)
	if err != nil {
		switch {
		case IsForeignKeyViolation(err):
			return shared.ErrCollegeNotFound
		case IsUniqueViolation(err):
			return shared.NewDomainError("event", "Create", shared.ErrConflict, "event already exists")
		case IsCheckViolation(err):
			return shared.WrapError("event", "Create", shared.ErrInvalidInput, "event violates a constraint", err)
		}
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID returns an event by ID.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*event.Event, error) {
	e, err := scanEvent(r.conn.QueryRow(ctx, `SELECT `+eventColumnsSQL+` FROM events e WHERE e.id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// List returns events matching f ordered by start time.
func (r *EventRepository) List(ctx context.Context, f event.ListFilter, p shared.Pagination) ([]*event.Event, error) {
	var preds []report.Predicate
	if f.CollegeID != "" {
		preds = append(preds, report.Eq(report.FieldCollegeID, f.CollegeID))
	}
	if f.EventType != "" {
		preds = append(preds, report.Eq(report.FieldEventType, f.EventType))
	}
	if f.Status != "" {
		preds = append(preds, report.Eq(report.FieldStatus, string(f.Status)))
	}
	if !f.StartsFrom.IsZero() || !f.StartsUntil.IsZero() {
		preds = append(preds, report.Range(report.FieldStartTime, f.StartsFrom, f.StartsUntil))
	}

	var w where
	var a args
	if err := w.compile(preds, eventColumns, &a); err != nil {
		return nil, err
	}
	if f.Query != "" {
		w.containsAny(f.Query, &a, "e.title", "e.description")
	}

	query := `SELECT ` + eventColumnsSQL + ` FROM events e ` + w.String() +
		` ORDER BY e.start_time, e.id` + page(p.Limit(), p.Offset(), &a)

	rows, err := r.conn.Query(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return collectRows(rows, scanEvent)
}

// Update writes descriptive fields and status under a version check. The
// events_capacity_check constraint rejects a capacity below the live count.
func (r *EventRepository) Update(ctx context.Context, e *event.Event, expectedVersion int) error {
	var version int
	err := r.conn.QueryRow(ctx, `
		UPDATE events SET
			title = $3,
			description = $4,
			event_type = $5,
			location = $6,
			start_time = $7,
			end_time = $8,
			max_capacity = $9,
			status = $10,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version
	`,
		e.ID, expectedVersion,
		e.Title, e.Description, e.EventType, e.Location,
		e.StartTime, e.EndTime, e.MaxCapacity, string(e.Status),
	).Scan(&version)

	switch {
	case err == nil:
		e.Version = version
		return nil
	case IsNoRows(err):
		var exists bool
		if err := r.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, e.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check event: %w", err)
		}
		if !exists {
			return shared.ErrEventNotFound
		}
		return shared.ErrOptimisticLock
	case IsCheckViolation(err) && ConstraintName(err) == "events_capacity_check":
		return shared.ErrCapacityBelowCount
	case IsCheckViolation(err):
		return shared.WrapError("event", "Update", shared.ErrInvalidInput, "event violates a constraint", err)
	}
	return fmt.Errorf("failed to update event: %w", err)
}

// FindFinished returns active events whose end time is at or before now.
func (r *EventRepository) FindFinished(ctx context.Context, now time.Time, limit int) ([]*event.Event, error) {
	var a args
	query := `SELECT ` + eventColumnsSQL + ` FROM events e
		WHERE e.status = 'active' AND e.end_time <= ` + a.add(now) + `
		ORDER BY e.start_time, e.id`
	if limit > 0 {
		query += ` LIMIT ` + a.add(limit)
	}

	rows, err := r.conn.Query(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("failed to find finished events: %w", err)
	}
	return collectRows(rows, scanEvent)
}
