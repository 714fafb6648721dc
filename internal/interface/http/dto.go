package http

import (
	"time"

	"github.com/campus-hub/campus-event-hub/internal/application/command"
	"github.com/campus-hub/campus-event-hub/internal/application/query"
	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE DTOs
// Domain entities carry no JSON tags; these fix the wire shape.
// ══════════════════════════════════════════════════════════════════════════════

type collegeDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Location     string    `json:"location,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toCollegeDTO(c *college.College) collegeDTO {
	return collegeDTO{
		ID:           c.ID,
		Name:         c.Name,
		Location:     c.Location,
		ContactEmail: c.ContactEmail,
		CreatedAt:    c.CreatedAt,
	}
}

type studentDTO struct {
	ID        string    `json:"id"`
	CollegeID string    `json:"college_id"`
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Year      int       `json:"year,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toStudentDTO(s *student.Student) studentDTO {
	return studentDTO{
		ID:        s.ID,
		CollegeID: s.CollegeID,
		StudentID: s.StudentID,
		Name:      s.Name,
		Email:     s.Email,
		Year:      s.Year,
		CreatedAt: s.CreatedAt,
	}
}

type eventDTO struct {
	ID                   string       `json:"id"`
	CollegeID            string       `json:"college_id"`
	Title                string       `json:"title"`
	Description          string       `json:"description,omitempty"`
	EventType            string       `json:"event_type"`
	Location             string       `json:"location,omitempty"`
	StartTime            time.Time    `json:"start_time"`
	EndTime              time.Time    `json:"end_time"`
	MaxCapacity          int          `json:"max_capacity"`
	CurrentRegistrations int          `json:"current_registrations"`
	AvailableSpots       int          `json:"available_spots"`
	Status               event.Status `json:"status"`
	CreatedAt            time.Time    `json:"created_at"`
	Version              int          `json:"version"`
}

func toEventDTO(e *event.Event) eventDTO {
	return eventDTO{
		ID:                   e.ID,
		CollegeID:            e.CollegeID,
		Title:                e.Title,
		Description:          e.Description,
		EventType:            e.EventType,
		Location:             e.Location,
		StartTime:            e.StartTime,
		EndTime:              e.EndTime,
		MaxCapacity:          e.MaxCapacity,
		CurrentRegistrations: e.CurrentRegistrations,
		AvailableSpots:       max(e.MaxCapacity-e.CurrentRegistrations, 0),
		Status:               e.Status,
		CreatedAt:            e.CreatedAt,
		Version:              e.Version,
	}
}

type registrationDTO struct {
	ID           string              `json:"id"`
	StudentID    string              `json:"student_id"`
	EventID      string              `json:"event_id"`
	Status       registration.Status `json:"status"`
	RegisteredAt time.Time           `json:"registered_at"`
	CancelledAt  *time.Time          `json:"cancelled_at,omitempty"`
}

func toRegistrationDTO(r *registration.Registration) registrationDTO {
	return registrationDTO{
		ID:           r.ID,
		StudentID:    r.StudentID,
		EventID:      r.EventID,
		Status:       r.Status,
		RegisteredAt: r.RegisteredAt,
		CancelledAt:  r.CancelledAt,
	}
}

type attendanceDTO struct {
	RegistrationID string                        `json:"registration_id"`
	Status         registration.AttendanceStatus `json:"status"`
	CheckInTime    *time.Time                    `json:"check_in_time,omitempty"`
	CheckOutTime   *time.Time                    `json:"check_out_time,omitempty"`
}

func toAttendanceDTO(a *registration.Attendance) *attendanceDTO {
	if a == nil {
		return nil
	}
	return &attendanceDTO{
		RegistrationID: a.RegistrationID,
		Status:         a.Status,
		CheckInTime:    a.CheckInTime,
		CheckOutTime:   a.CheckOutTime,
	}
}

type feedbackDTO struct {
	ID             string    `json:"id"`
	RegistrationID string    `json:"registration_id"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

func toFeedbackDTO(f *registration.Feedback) *feedbackDTO {
	if f == nil {
		return nil
	}
	return &feedbackDTO{
		ID:             f.ID,
		RegistrationID: f.RegistrationID,
		Rating:         f.Rating.Int(),
		Comment:        f.Comment,
		SubmittedAt:    f.SubmittedAt,
	}
}

type registrationViewDTO struct {
	Registration registrationDTO `json:"registration"`
	Attendance   *attendanceDTO  `json:"attendance,omitempty"`
	Feedback     *feedbackDTO    `json:"feedback,omitempty"`
}

func toRegistrationViewDTO(v query.RegistrationView) registrationViewDTO {
	return registrationViewDTO{
		Registration: toRegistrationDTO(v.Registration),
		Attendance:   toAttendanceDTO(v.Attendance),
		Feedback:     toFeedbackDTO(v.Feedback),
	}
}

type registerDTO struct {
	Registration         registrationDTO `json:"registration"`
	CurrentRegistrations int             `json:"current_registrations"`
	MaxCapacity          int             `json:"max_capacity"`
}

func toRegisterDTO(r *command.RegisterResult) registerDTO {
	return registerDTO{
		Registration:         toRegistrationDTO(r.Registration),
		CurrentRegistrations: r.CurrentRegistrations,
		MaxCapacity:          r.MaxCapacity,
	}
}

type attendanceResultDTO struct {
	EventID    string         `json:"event_id"`
	Attendance *attendanceDTO `json:"attendance"`
}

func mapSlice[T, D any](in []T, f func(T) D) []D {
	out := make([]D, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}
