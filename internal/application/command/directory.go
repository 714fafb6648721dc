package command

import (
	"context"

	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
	"github.com/campus-hub/campus-event-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLLEGE COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// CreateCollegeCommand creates a college.
type CreateCollegeCommand struct {
	Name         string `json:"name" validate:"required,max=200"`
	Location     string `json:"location" validate:"max=200"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
}

// UpdateCollegeCommand overwrites a college's descriptive fields.
type UpdateCollegeCommand struct {
	CollegeID    string `json:"college_id" validate:"required"`
	Name         string `json:"name" validate:"required,max=200"`
	Location     string `json:"location" validate:"max=200"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
}

// DeleteCollegeCommand removes a college and everything it owns.
type DeleteCollegeCommand struct {
	CollegeID string `json:"college_id" validate:"required"`
}

// CollegeHandler handles college commands.
type CollegeHandler struct {
	colleges college.Repository
	rt       Runtime
}

// NewCollegeHandler creates a new CollegeHandler.
func NewCollegeHandler(colleges college.Repository, rt Runtime) *CollegeHandler {
	return &CollegeHandler{colleges: colleges, rt: rt.withDefaults()}
}

// Create executes CreateCollegeCommand.
func (h *CollegeHandler) Create(ctx context.Context, cmd CreateCollegeCommand) (*college.College, error) {
	if err := validateCommand("college", "Create", cmd); err != nil {
		return nil, err
	}

	now := h.rt.Now()
	c, err := college.New(h.rt.NewID(), cmd.Name, cmd.Location, cmd.ContactEmail, now)
	if err != nil {
		return nil, err
	}
	if err := h.colleges.Create(ctx, c); err != nil {
		return nil, err
	}

	h.rt.publish(shared.NewEntityChangedEvent(shared.EventCollegeCreated, c.ID, c.ID, now))
	return c, nil
}

// Update executes UpdateCollegeCommand.
func (h *CollegeHandler) Update(ctx context.Context, cmd UpdateCollegeCommand) (*college.College, error) {
	if err := validateCommand("college", "Update", cmd); err != nil {
		return nil, err
	}

	c, err := h.colleges.GetByID(ctx, cmd.CollegeID)
	if err != nil {
		return nil, err
	}
	next, err := college.New(c.ID, cmd.Name, cmd.Location, cmd.ContactEmail, c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := h.colleges.Update(ctx, next); err != nil {
		return nil, err
	}

	h.rt.publish(shared.NewEntityChangedEvent(shared.EventCollegeUpdated, c.ID, c.ID, h.rt.Now()))
	return next, nil
}

// Delete executes DeleteCollegeCommand.
func (h *CollegeHandler) Delete(ctx context.Context, cmd DeleteCollegeCommand) (college.DeleteSummary, error) {
	if err := validateCommand("college", "Delete", cmd); err != nil {
		return college.DeleteSummary{}, err
	}

	sum, err := h.colleges.Delete(ctx, cmd.CollegeID)
	if err != nil {
		return sum, err
	}

	h.rt.log(ctx).Info("college deleted",
		logger.CollegeID(cmd.CollegeID),
		logger.Int("students", sum.Students),
		logger.Int("events", sum.Events),
		logger.Int("registrations", sum.Registrations),
	)
	h.rt.publish(shared.NewEntityChangedEvent(shared.EventCollegeDeleted, cmd.CollegeID, cmd.CollegeID, h.rt.Now()))
	return sum, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// CreateStudentCommand enrolls a student in a college.
type CreateStudentCommand struct {
	CollegeID string `json:"college_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required,max=50"`
	Name      string `json:"name" validate:"required,max=200"`
	Email     string `json:"email" validate:"required,email"`
	Year      int    `json:"year" validate:"min=0,max=10"`
}

// BulkCreateStudentsCommand enrolls many students at once; all or nothing.
type BulkCreateStudentsCommand struct {
	Students []CreateStudentCommand `json:"students" validate:"required,min=1,max=500,dive"`
}

// UpdateStudentCommand changes a student's descriptive fields. Nil fields
// are left as they are; the college cannot change.
type UpdateStudentCommand struct {
	ID        string  `json:"id" validate:"required"`
	StudentID *string `json:"student_id" validate:"omitempty,min=1,max=50"`
	Name      *string `json:"name" validate:"omitempty,min=1,max=200"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Year      *int    `json:"year" validate:"omitempty,min=0,max=10"`
}

// StudentHandler handles student commands.
type StudentHandler struct {
	students student.Repository
	rt       Runtime
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(students student.Repository, rt Runtime) *StudentHandler {
	return &StudentHandler{students: students, rt: rt.withDefaults()}
}

// Create executes CreateStudentCommand.
func (h *StudentHandler) Create(ctx context.Context, cmd CreateStudentCommand) (*student.Student, error) {
	if err := validateCommand("student", "Create", cmd); err != nil {
		return nil, err
	}

	now := h.rt.Now()
	s, err := h.build(cmd)
	if err != nil {
		return nil, err
	}
	if err := h.students.Create(ctx, s); err != nil {
		return nil, err
	}

	h.rt.publish(shared.NewEntityChangedEvent(shared.EventStudentCreated, s.ID, s.CollegeID, now))
	return s, nil
}

// CreateBatch executes BulkCreateStudentsCommand.
func (h *StudentHandler) CreateBatch(ctx context.Context, cmd BulkCreateStudentsCommand) ([]*student.Student, error) {
	if err := validateCommand("student", "CreateBatch", cmd); err != nil {
		return nil, err
	}

	out := make([]*student.Student, 0, len(cmd.Students))
	for _, c := range cmd.Students {
		s, err := h.build(c)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := h.students.CreateBatch(ctx, out); err != nil {
		return nil, err
	}

	now := h.rt.Now()
	for _, s := range out {
		h.rt.publish(shared.NewEntityChangedEvent(shared.EventStudentCreated, s.ID, s.CollegeID, now))
	}
	return out, nil
}

// Update executes UpdateStudentCommand.
func (h *StudentHandler) Update(ctx context.Context, cmd UpdateStudentCommand) (*student.Student, error) {
	if err := validateCommand("student", "Update", cmd); err != nil {
		return nil, err
	}

	s, err := h.students.GetByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if err := s.Apply(student.UpdateParams{
		StudentID: cmd.StudentID,
		Name:      cmd.Name,
		Email:     cmd.Email,
		Year:      cmd.Year,
	}); err != nil {
		return nil, err
	}
	if err := h.students.Update(ctx, s); err != nil {
		return nil, err
	}

	h.rt.publish(shared.NewEntityChangedEvent(shared.EventStudentUpdated, s.ID, s.CollegeID, h.rt.Now()))
	return s, nil
}

func (h *StudentHandler) build(cmd CreateStudentCommand) (*student.Student, error) {
	return student.New(student.NewStudentParams{
		ID:        h.rt.NewID(),
		CollegeID: cmd.CollegeID,
		StudentID: cmd.StudentID,
		Name:      cmd.Name,
		Email:     cmd.Email,
		Year:      cmd.Year,
	}, h.rt.Now())
}
