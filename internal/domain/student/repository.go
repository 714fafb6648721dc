package student

import (
	"context"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines storage operations for students.
type Repository interface {
	// Create stores a student. Returns shared.ErrDuplicateStudentID when the
	// (college, student_id) pair is taken and shared.ErrCollegeNotFound when
	// the college is missing.
	Create(ctx context.Context, s *Student) error

	// CreateBatch stores all students or none.
	CreateBatch(ctx context.Context, students []*Student) error

	// Update overwrites a student's descriptive fields, keeping CollegeID and
	// CreatedAt. Returns shared.ErrDuplicateStudentID when the new roll
	// number is taken within the college.
	Update(ctx context.Context, s *Student) error

	// GetByID returns shared.ErrStudentNotFound if absent.
	GetByID(ctx context.Context, id string) (*Student, error)

	// List returns students matching the filter ordered by name.
	List(ctx context.Context, f ListFilter, p shared.Pagination) ([]*Student, error)
}

// ListFilter narrows List. Zero values mean "any".
type ListFilter struct {
	CollegeID string
	Year      int

	// Query matches name, email or student_id, case-insensitively.
	Query string
}

// Matches reports whether s passes the filter.
func (f ListFilter) Matches(s *Student) bool {
	if f.CollegeID != "" && s.CollegeID != f.CollegeID {
		return false
	}
	if f.Year != 0 && s.Year != f.Year {
		return false
	}
	if f.Query != "" &&
		!shared.ContainsFold(s.Name, f.Query) &&
		!shared.ContainsFold(s.Email, f.Query) &&
		!shared.ContainsFold(s.StudentID, f.Query) {
		return false
	}
	return true
}
