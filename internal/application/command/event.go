package command

import (
	"context"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/pkg/logger"
	"github.com/campus-hub/campus-event-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT COMMANDS
// Edits go through Event.Version. Registrations bump the version too, so an
// edit racing with sign-ups re-reads and re-applies a bounded number of times.
// ══════════════════════════════════════════════════════════════════════════════

// CreateEventCommand schedules an event.
type CreateEventCommand struct {
	CollegeID   string    `json:"college_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	EventType   string    `json:"event_type" validate:"required,max=50"`
	Location    string    `json:"location" validate:"max=200"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`

	// MaxCapacity of 0 selects event.DefaultMaxCapacity.
	MaxCapacity int `json:"max_capacity" validate:"min=0"`
}

// UpdateEventCommand edits an active event. Nil fields are left unchanged.
type UpdateEventCommand struct {
	EventID     string     `json:"event_id" validate:"required"`
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	EventType   *string    `json:"event_type" validate:"omitempty,max=50"`
	Location    *string    `json:"location" validate:"omitempty,max=200"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	MaxCapacity *int       `json:"max_capacity"`
}

// EventHandler handles event lifecycle commands.
type EventHandler struct {
	events  event.Repository
	rt      Runtime
	retrier *retry.Retrier
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events event.Repository, rt Runtime, config RegisterHandlerConfig) *EventHandler {
	if config.MaxAttempts <= 0 {
		config = DefaultRegisterHandlerConfig()
	}
	return &EventHandler{
		events:  events,
		rt:      rt.withDefaults(),
		retrier: retry.ContentionRetrier(config.MaxAttempts, config.InitialDelay, config.MaxDelay),
	}
}

// Create executes CreateEventCommand.
func (h *EventHandler) Create(ctx context.Context, cmd CreateEventCommand) (*event.Event, error) {
	if err := validateCommand("event", "Create", cmd); err != nil {
		return nil, err
	}

	now := h.rt.Now()
	e, err := event.New(event.NewEventParams{
		ID:          h.rt.NewID(),
		CollegeID:   cmd.CollegeID,
		Title:       cmd.Title,
		Description: cmd.Description,
		EventType:   cmd.EventType,
		Location:    cmd.Location,
		StartTime:   cmd.StartTime,
		EndTime:     cmd.EndTime,
		MaxCapacity: cmd.MaxCapacity,
	}, now)
	if err != nil {
		return nil, err
	}
	if err := h.events.Create(ctx, e); err != nil {
		return nil, err
	}

	h.rt.publish(shared.NewEntityChangedEvent(shared.EventEventCreated, e.ID, e.CollegeID, now))
	return e, nil
}

// Update executes UpdateEventCommand.
func (h *EventHandler) Update(ctx context.Context, cmd UpdateEventCommand) (*event.Event, error) {
	if err := validateCommand("event", "Update", cmd); err != nil {
		return nil, err
	}
	params := event.UpdateParams{
		Title:       cmd.Title,
		Description: cmd.Description,
		EventType:   cmd.EventType,
		Location:    cmd.Location,
		StartTime:   cmd.StartTime,
		EndTime:     cmd.EndTime,
		MaxCapacity: cmd.MaxCapacity,
	}
	return h.mutate(ctx, cmd.EventID, "Update", shared.EventEventUpdated, func(e *event.Event) error {
		return e.Apply(params)
	})
}

// Cancel moves an active event to cancelled. Live registrations keep their
// seats so the counter stays equal to the live row count.
func (h *EventHandler) Cancel(ctx context.Context, eventID string) (*event.Event, error) {
	if eventID == "" {
		return nil, shared.InvalidInput("event", "Cancel", "event_id is required")
	}
	return h.mutate(ctx, eventID, "Cancel", shared.EventEventCancelled, (*event.Event).Cancel)
}

// Complete moves an active event to completed.
func (h *EventHandler) Complete(ctx context.Context, eventID string) (*event.Event, error) {
	if eventID == "" {
		return nil, shared.InvalidInput("event", "Complete", "event_id is required")
	}
	return h.mutate(ctx, eventID, "Complete", shared.EventEventCompleted, (*event.Event).Complete)
}

// CompleteFinished completes every active event that has ended by now and
// returns how many were moved. Events lost to a concurrent edit are skipped
// and picked up on the next run.
func (h *EventHandler) CompleteFinished(ctx context.Context, now time.Time, batch int) (int, error) {
	finished, err := h.events.FindFinished(ctx, now, batch)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, e := range finished {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := h.Complete(ctx, e.ID); err != nil {
			if shared.IsConflict(err) || shared.IsInvalidState(err) || shared.IsNotFound(err) {
				h.rt.log(ctx).Debug("skipping event completion", logger.EventID(e.ID), logger.Err(err))
				continue
			}
			return done, err
		}
		done++
	}
	return done, nil
}

// mutate is the read-modify-compare-and-swap loop shared by every edit.
func (h *EventHandler) mutate(
	ctx context.Context,
	eventID, op string,
	eventType shared.EventType,
	change func(*event.Event) error,
) (*event.Event, error) {
	updated, err := retry.DoWithRetrier(ctx, h.retrier, func(ctx context.Context) (*event.Event, error) {
		e, err := h.events.GetByID(ctx, eventID)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		expected := e.Version
		if err := change(e); err != nil {
			return nil, retry.Permanent(err)
		}
		if err := h.events.Update(ctx, e, expected); err != nil {
			if shared.IsOptimisticLock(err) {
				return nil, retry.Retryable(err)
			}
			return nil, retry.Permanent(err)
		}
		return e, nil
	})
	if err != nil {
		if retry.IsExhausted(err) {
			return nil, shared.WrapError("event", op, shared.ErrConflict, "event modified concurrently", shared.ErrEventContended)
		}
		return nil, err
	}

	h.rt.publish(shared.NewEntityChangedEvent(eventType, updated.ID, updated.CollegeID, h.rt.Now()))
	return updated, nil
}
