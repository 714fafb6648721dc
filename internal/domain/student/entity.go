// Package student holds the Student entity. A student belongs to exactly one
// college and carries a college-scoped external identifier.
package student

import (
	"strings"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is a participant. (CollegeID, StudentID) is unique; StudentID alone is not.
type Student struct {
	// ID is the internal UUID.
	ID string

	// CollegeID references the owning college.
	CollegeID string

	// StudentID is the roll number issued by the college.
	StudentID string

	Name  string
	Email string

	// Year of study, 0 when unknown.
	Year int

	CreatedAt time.Time
}

// NewStudentParams carries the inputs for New.
type NewStudentParams struct {
	ID        string
	CollegeID string
	StudentID string
	Name      string
	Email     string
	Year      int
}

// New validates and builds a Student.
func New(p NewStudentParams, now time.Time) (*Student, error) {
	s := &Student{
		ID:        p.ID,
		CollegeID: p.CollegeID,
		StudentID: strings.TrimSpace(p.StudentID),
		Name:      strings.TrimSpace(p.Name),
		Email:     strings.ToLower(strings.TrimSpace(p.Email)),
		Year:      p.Year,
		CreatedAt: now,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks field-level constraints.
func (s *Student) Validate() error {
	switch {
	case s.ID == "":
		return shared.InvalidInput("student", "Validate", "id is required")
	case s.CollegeID == "":
		return shared.InvalidInput("student", "Validate", "college_id is required")
	case s.StudentID == "" || len(s.StudentID) > 50:
		return shared.InvalidInput("student", "Validate", "student_id must be 1-50 characters")
	case s.Name == "" || len(s.Name) > 200:
		return shared.InvalidInput("student", "Validate", "name must be 1-200 characters")
	case !strings.Contains(s.Email, "@"):
		return shared.InvalidInput("student", "Validate", "email must contain @")
	case s.Year < 0 || s.Year > 10:
		return shared.InvalidInput("student", "Validate", "year must be between 0 and 10")
	}
	return nil
}

// UpdateParams holds optional field changes. Nil means unchanged. The
// owning college cannot change.
type UpdateParams struct {
	StudentID *string
	Name      *string
	Email     *string
	Year      *int
}

// Apply merges p into s and re-validates. On error s is left untouched.
func (s *Student) Apply(p UpdateParams) error {
	next := *s
	if p.StudentID != nil {
		next.StudentID = strings.TrimSpace(*p.StudentID)
	}
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		next.Email = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.Year != nil {
		next.Year = *p.Year
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*s = next
	return nil
}

// Clone returns a copy.
func (s *Student) Clone() *Student {
	cp := *s
	return &cp
}
