package query

import (
	"context"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY QUERIES
// Point lookups, searches and registration listings.
// ══════════════════════════════════════════════════════════════════════════════

// SearchEventsQuery filters events. Zero values mean "any".
type SearchEventsQuery struct {
	CollegeID string
	EventType string
	Status    event.Status
	Query     string
	From      time.Time
	Until     time.Time

	// Upcoming restricts to active events that have not started at Now.
	Upcoming bool
	Now      time.Time

	Page shared.Pagination
}

// SearchStudentsQuery filters students. Zero values mean "any".
type SearchStudentsQuery struct {
	CollegeID string
	Year      int
	Query     string
	Page      shared.Pagination
}

// RegistrationView is a registration with its attendance and feedback.
type RegistrationView struct {
	Registration *registration.Registration `json:"registration"`
	Attendance   *registration.Attendance   `json:"attendance,omitempty"`
	Feedback     *registration.Feedback     `json:"feedback,omitempty"`
}

// Directory serves read-only lookups.
type Directory struct {
	colleges   college.Repository
	students   student.Repository
	events     event.Repository
	ledger     registration.Ledger
	attendance registration.AttendanceRepository
	feedback   registration.FeedbackRepository
}

// NewDirectory creates a new Directory.
func NewDirectory(
	colleges college.Repository,
	students student.Repository,
	events event.Repository,
	ledger registration.Ledger,
	attendance registration.AttendanceRepository,
	feedback registration.FeedbackRepository,
) *Directory {
	return &Directory{
		colleges:   colleges,
		students:   students,
		events:     events,
		ledger:     ledger,
		attendance: attendance,
		feedback:   feedback,
	}
}

// College returns one college.
func (d *Directory) College(ctx context.Context, id string) (*college.College, error) {
	return d.colleges.GetByID(ctx, id)
}

// Colleges lists colleges by name.
func (d *Directory) Colleges(ctx context.Context, p shared.Pagination) ([]*college.College, error) {
	return d.colleges.List(ctx, p)
}

// Student returns one student.
func (d *Directory) Student(ctx context.Context, id string) (*student.Student, error) {
	return d.students.GetByID(ctx, id)
}

// SearchStudents lists students matching q.
func (d *Directory) SearchStudents(ctx context.Context, q SearchStudentsQuery) ([]*student.Student, error) {
	return d.students.List(ctx, student.ListFilter{
		CollegeID: q.CollegeID,
		Year:      q.Year,
		Query:     q.Query,
	}, q.Page)
}

// Event returns one event.
func (d *Directory) Event(ctx context.Context, id string) (*event.Event, error) {
	return d.events.GetByID(ctx, id)
}

// SearchEvents lists events matching q, ordered by start time.
func (d *Directory) SearchEvents(ctx context.Context, q SearchEventsQuery) ([]*event.Event, error) {
	if q.Status != "" && !q.Status.IsValid() {
		return nil, shared.InvalidInput("event", "Search", "unknown status "+string(q.Status))
	}
	f := event.ListFilter{
		CollegeID:   q.CollegeID,
		EventType:   event.NormalizeType(q.EventType),
		Status:      q.Status,
		Query:       q.Query,
		StartsFrom:  q.From,
		StartsUntil: q.Until,
	}
	if q.Upcoming {
		f.Status = event.StatusActive
		// Strictly after now: an event starting exactly now is no longer open.
		if from := q.Now.Add(time.Nanosecond); from.After(f.StartsFrom) {
			f.StartsFrom = from
		}
	}
	return d.events.List(ctx, f, q.Page)
}

// EventRegistrations lists an event's registrations, oldest first.
func (d *Directory) EventRegistrations(ctx context.Context, eventID string, p shared.Pagination) ([]RegistrationView, error) {
	if _, err := d.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	regs, err := d.ledger.ListByEvent(ctx, eventID, p)
	if err != nil {
		return nil, err
	}
	return d.expand(ctx, regs)
}

// StudentRegistrations lists a student's registrations, newest first.
func (d *Directory) StudentRegistrations(ctx context.Context, studentID string, p shared.Pagination) ([]RegistrationView, error) {
	if _, err := d.students.GetByID(ctx, studentID); err != nil {
		return nil, err
	}
	regs, err := d.ledger.ListByStudent(ctx, studentID, p)
	if err != nil {
		return nil, err
	}
	return d.expand(ctx, regs)
}

// ActivityQuery filters the registration, attendance and feedback listings.
type ActivityQuery struct {
	Filter registration.ListFilter
	Page   shared.Pagination
}

// ListRegistrations lists registrations matching q, newest first.
func (d *Directory) ListRegistrations(ctx context.Context, q ActivityQuery) ([]RegistrationView, error) {
	regs, err := d.ledger.List(ctx, q.Filter, q.Page)
	if err != nil {
		return nil, err
	}
	return d.expand(ctx, regs)
}

// ListAttendance lists attendance records matching q.
func (d *Directory) ListAttendance(ctx context.Context, q ActivityQuery) ([]*registration.Attendance, error) {
	return d.attendance.List(ctx, q.Filter, q.Page)
}

// ListFeedback lists feedback matching q, newest first.
func (d *Directory) ListFeedback(ctx context.Context, q ActivityQuery) ([]*registration.Feedback, error) {
	return d.feedback.List(ctx, q.Filter, q.Page)
}

// Registration returns one registration with its attendance and feedback.
func (d *Directory) Registration(ctx context.Context, id string) (*RegistrationView, error) {
	reg, err := d.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := d.expand(ctx, []*registration.Registration{reg})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (d *Directory) expand(ctx context.Context, regs []*registration.Registration) ([]RegistrationView, error) {
	out := make([]RegistrationView, 0, len(regs))
	for _, r := range regs {
		v := RegistrationView{Registration: r}

		att, err := d.attendance.GetByRegistration(ctx, r.ID)
		switch {
		case err == nil:
			v.Attendance = att
		case !shared.IsNotFound(err):
			return nil, err
		}

		fb, err := d.feedback.GetByRegistration(ctx, r.ID)
		switch {
		case err == nil:
			v.Feedback = fb
		case !shared.IsNotFound(err):
			return nil, err
		}

		out = append(out, v)
	}
	return out, nil
}
