package command

import (
	"context"
	"fmt"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
	"github.com/campus-hub/campus-event-hub/pkg/logger"
	"github.com/campus-hub/campus-event-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER COMMAND
// Takes one seat on an event. The capacity check and increment are a single
// conditional update in the ledger; losers of a race re-read and retry.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterCommand registers a student for an event.
type RegisterCommand struct {
	StudentID string `json:"student_id" validate:"required"`
	EventID   string `json:"event_id" validate:"required"`

	// At overrides the clock. Zero means now.
	At time.Time `json:"-"`
}

// RegisterResult contains the new registration and the counter it produced.
type RegisterResult struct {
	Registration         *registration.Registration
	CurrentRegistrations int
	MaxCapacity          int

	// Attempts is how many compare-and-swap rounds it took.
	Attempts int
}

// RegisterHandlerConfig bounds the contention retry loop.
type RegisterHandlerConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRegisterHandlerConfig returns default configuration.
func DefaultRegisterHandlerConfig() RegisterHandlerConfig {
	return RegisterHandlerConfig{
		MaxAttempts:  5,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
	}
}

// RegisterHandler handles RegisterCommand.
type RegisterHandler struct {
	students student.Repository
	events   event.Repository
	ledger   registration.Ledger
	rt       Runtime
	retrier  *retry.Retrier
}

// NewRegisterHandler creates a new RegisterHandler.
func NewRegisterHandler(
	students student.Repository,
	events event.Repository,
	ledger registration.Ledger,
	rt Runtime,
	config RegisterHandlerConfig,
) *RegisterHandler {
	if config.MaxAttempts <= 0 {
		config = DefaultRegisterHandlerConfig()
	}
	return &RegisterHandler{
		students: students,
		events:   events,
		ledger:   ledger,
		rt:       rt.withDefaults(),
		retrier:  retry.ContentionRetrier(config.MaxAttempts, config.InitialDelay, config.MaxDelay),
	}
}

// Handle executes the register command.
func (h *RegisterHandler) Handle(ctx context.Context, cmd RegisterCommand) (*RegisterResult, error) {
	if err := validateCommand("registration", "Register", cmd); err != nil {
		return nil, err
	}

	now := cmd.At
	if now.IsZero() {
		now = h.rt.Now()
	}

	attempts := 0
	result, err := retry.DoWithRetrier(ctx, h.retrier, func(ctx context.Context) (*RegisterResult, error) {
		attempts++
		return h.attempt(ctx, cmd, now)
	})
	if err != nil {
		if retry.IsExhausted(err) {
			err = shared.WrapError("registration", "Register", shared.ErrConflict,
				fmt.Sprintf("registration contended after %d attempts", attempts), shared.ErrRegistrationContended)
		}
		if shared.IsCapacityExceeded(err) || shared.IsConflict(err) {
			h.rt.publish(shared.NewRegistrationRejectedEvent(cmd.EventID, cmd.StudentID, err.Error(), now))
		}
		h.rt.log(ctx).Debug("registration rejected",
			logger.StudentID(cmd.StudentID),
			logger.EventID(cmd.EventID),
			logger.Attempt(attempts),
			logger.Err(err),
		)
		return nil, err
	}

	result.Attempts = attempts
	h.rt.publish(shared.NewRegistrationEvent(
		shared.EventRegistrationCreated,
		result.Registration.ID,
		result.Registration.StudentID,
		result.Registration.EventID,
		result.CurrentRegistrations,
		result.MaxCapacity,
		attempts,
		now,
	))

	return result, nil
}

// attempt is one read-check-reserve round. Only a lost compare-and-swap is
// retryable; every precondition failure is final.
func (h *RegisterHandler) attempt(ctx context.Context, cmd RegisterCommand, now time.Time) (*RegisterResult, error) {
	st, err := h.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, retry.Permanent(err)
	}

	e, err := h.events.GetByID(ctx, cmd.EventID)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	if e.Status != event.StatusActive {
		return nil, retry.Permanent(shared.ErrEventNotActive)
	}
	if e.Started(now) {
		return nil, retry.Permanent(shared.ErrEventAlreadyStarted)
	}

	if _, err := h.ledger.FindLive(ctx, st.ID, e.ID); err == nil {
		return nil, retry.Permanent(shared.ErrDuplicateRegistration)
	} else if !shared.IsNotFound(err) {
		return nil, retry.Permanent(err)
	}

	if !e.HasRoom() {
		return nil, retry.Permanent(shared.ErrEventFull)
	}

	reg := registration.New(h.rt.NewID(), st.ID, e.ID, now)
	count, err := h.ledger.Reserve(ctx, reg, e.CurrentRegistrations)
	if err != nil {
		if shared.IsOptimisticLock(err) {
			return nil, retry.Retryable(err)
		}
		return nil, retry.Permanent(err)
	}

	return &RegisterResult{
		Registration:         reg,
		CurrentRegistrations: count,
		MaxCapacity:          e.MaxCapacity,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CANCEL REGISTRATION COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CancelRegistrationCommand releases a seat. Attendance and feedback are kept.
type CancelRegistrationCommand struct {
	RegistrationID string    `json:"registration_id" validate:"required"`
	At             time.Time `json:"-"`
}

// CancelRegistrationResult contains the cancelled registration.
type CancelRegistrationResult struct {
	Registration         *registration.Registration
	CurrentRegistrations int
}

// CancelRegistrationHandler handles CancelRegistrationCommand.
type CancelRegistrationHandler struct {
	ledger registration.Ledger
	rt     Runtime
}

// NewCancelRegistrationHandler creates a new CancelRegistrationHandler.
func NewCancelRegistrationHandler(ledger registration.Ledger, rt Runtime) *CancelRegistrationHandler {
	return &CancelRegistrationHandler{ledger: ledger, rt: rt.withDefaults()}
}

// Handle executes the cancel command.
func (h *CancelRegistrationHandler) Handle(ctx context.Context, cmd CancelRegistrationCommand) (*CancelRegistrationResult, error) {
	if err := validateCommand("registration", "Cancel", cmd); err != nil {
		return nil, err
	}

	now := cmd.At
	if now.IsZero() {
		now = h.rt.Now()
	}

	reg, count, err := h.ledger.Release(ctx, cmd.RegistrationID, now)
	if err != nil {
		return nil, err
	}

	h.rt.publish(shared.NewRegistrationEvent(
		shared.EventRegistrationCancelled,
		reg.ID, reg.StudentID, reg.EventID,
		count, 0, 1, now,
	))

	return &CancelRegistrationResult{Registration: reg, CurrentRegistrations: count}, nil
}
