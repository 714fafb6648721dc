package command

import (
	"context"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK-IN / CHECK-OUT COMMANDS
// Both drive registration.Attendance.Apply and persist with a per-record
// compare-and-swap. A lost swap surfaces as Conflict without retrying: the
// winner already performed the same one-shot transition.
// ══════════════════════════════════════════════════════════════════════════════

// CheckInCommand records arrival.
type CheckInCommand struct {
	RegistrationID string    `json:"registration_id" validate:"required"`
	At             time.Time `json:"-"`
}

// CheckOutCommand records departure.
type CheckOutCommand struct {
	RegistrationID string    `json:"registration_id" validate:"required"`
	At             time.Time `json:"-"`
}

// AttendanceResult carries the record after the transition.
type AttendanceResult struct {
	Attendance *registration.Attendance
	EventID    string
}

// AttendanceHandler handles both attendance commands.
type AttendanceHandler struct {
	ledger     registration.Ledger
	events     event.Repository
	attendance registration.AttendanceRepository
	rt         Runtime
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(
	ledger registration.Ledger,
	events event.Repository,
	attendance registration.AttendanceRepository,
	rt Runtime,
) *AttendanceHandler {
	return &AttendanceHandler{
		ledger:     ledger,
		events:     events,
		attendance: attendance,
		rt:         rt.withDefaults(),
	}
}

// CheckIn executes the check-in transition.
func (h *AttendanceHandler) CheckIn(ctx context.Context, cmd CheckInCommand) (*AttendanceResult, error) {
	if err := validateCommand("attendance", "CheckIn", cmd); err != nil {
		return nil, err
	}
	return h.transition(ctx, cmd.RegistrationID, registration.TransitionCheckIn, cmd.At)
}

// CheckOut executes the check-out transition.
func (h *AttendanceHandler) CheckOut(ctx context.Context, cmd CheckOutCommand) (*AttendanceResult, error) {
	if err := validateCommand("attendance", "CheckOut", cmd); err != nil {
		return nil, err
	}
	return h.transition(ctx, cmd.RegistrationID, registration.TransitionCheckOut, cmd.At)
}

func (h *AttendanceHandler) transition(ctx context.Context, registrationID string, kind registration.TransitionKind, at time.Time) (*AttendanceResult, error) {
	if at.IsZero() {
		at = h.rt.Now()
	}

	reg, err := h.ledger.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	tr := registration.Transition{Kind: kind, At: at, RegistrationStatus: reg.Status}
	if kind == registration.TransitionCheckIn {
		e, err := h.events.GetByID(ctx, reg.EventID)
		if err != nil {
			return nil, err
		}
		tr.EventStart = e.StartTime
	}

	att, err := h.attendance.GetByRegistration(ctx, reg.ID)
	switch {
	case shared.IsNotFound(err):
		att = registration.NewAttendance(h.rt.NewID(), reg.ID)
	case err != nil:
		return nil, err
	}

	expected := att.Version
	if err := att.Apply(tr); err != nil {
		return nil, err
	}
	if err := h.attendance.Save(ctx, att, expected); err != nil {
		if shared.IsOptimisticLock(err) {
			return nil, shared.WrapError("attendance", string(kind), shared.ErrConflict,
				"attendance record modified concurrently", shared.ErrAttendanceContended)
		}
		return nil, err
	}

	eventType := shared.EventCheckedIn
	if kind == registration.TransitionCheckOut {
		eventType = shared.EventCheckedOut
	}
	h.rt.publish(shared.NewAttendanceEvent(eventType, reg.ID, reg.EventID, string(att.Status), at))

	return &AttendanceResult{Attendance: att, EventID: reg.EventID}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT FEEDBACK COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// SubmitFeedbackCommand rates an attended event. Range checks on Rating are
// left to the domain gate so its error ordering holds.
type SubmitFeedbackCommand struct {
	RegistrationID string    `json:"registration_id" validate:"required"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment" validate:"max=2000"`
	At             time.Time `json:"-"`
}

// SubmitFeedbackHandler handles SubmitFeedbackCommand.
type SubmitFeedbackHandler struct {
	ledger     registration.Ledger
	attendance registration.AttendanceRepository
	feedback   registration.FeedbackRepository
	rt         Runtime
}

// NewSubmitFeedbackHandler creates a new SubmitFeedbackHandler.
func NewSubmitFeedbackHandler(
	ledger registration.Ledger,
	attendance registration.AttendanceRepository,
	feedback registration.FeedbackRepository,
	rt Runtime,
) *SubmitFeedbackHandler {
	return &SubmitFeedbackHandler{
		ledger:     ledger,
		attendance: attendance,
		feedback:   feedback,
		rt:         rt.withDefaults(),
	}
}

// Handle executes the submit feedback command.
func (h *SubmitFeedbackHandler) Handle(ctx context.Context, cmd SubmitFeedbackCommand) (*registration.Feedback, error) {
	if err := validateCommand("feedback", "Submit", cmd); err != nil {
		return nil, err
	}

	now := cmd.At
	if now.IsZero() {
		now = h.rt.Now()
	}

	reg, err := h.ledger.GetByID(ctx, cmd.RegistrationID)
	if err != nil {
		return nil, err
	}

	att, err := h.attendance.GetByRegistration(ctx, reg.ID)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	existing, err := h.feedback.GetByRegistration(ctx, reg.ID)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}

	if err := registration.AdmitFeedback(att, existing, cmd.Rating, cmd.Comment); err != nil {
		return nil, err
	}

	fb := registration.NewFeedback(h.rt.NewID(), reg.ID, cmd.Rating, cmd.Comment, now)
	if err := h.feedback.Create(ctx, fb); err != nil {
		return nil, err
	}

	h.rt.publish(shared.NewFeedbackSubmittedEvent(reg.ID, reg.EventID, cmd.Rating, now))
	return fb, nil
}
