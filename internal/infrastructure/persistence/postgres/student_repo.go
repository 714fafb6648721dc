package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

var _ student.Repository = (*StudentRepository)(nil)

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumnsSQL = `s.id, s.college_id, s.student_id, s.name, s.email, s.year, s.created_at`

const insertStudentSQL = `
	INSERT INTO students (id, college_id, student_id, name, email, year, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func scanStudent(row pgx.Row) (*student.Student, error) {
	var s student.Student
	if err := row.Scan(&s.ID, &s.CollegeID, &s.StudentID, &s.Name, &s.Email, &s.Year, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func studentArgs(s *student.Student) []any {
	return []any{s.ID, s.CollegeID, s.StudentID, s.Name, s.Email, s.Year, s.CreatedAt}
}

// mapStudentInsertError translates constraint violations into domain errors.
func mapStudentInsertError(err error) error {
	switch {
	case IsUniqueViolation(err) && ConstraintName(err) == "students_college_student_id_key":
		return shared.ErrDuplicateStudentID
	case IsUniqueViolation(err):
		return shared.NewDomainError("student", "Create", shared.ErrConflict, "student already exists")
	case IsForeignKeyViolation(err):
		return shared.ErrCollegeNotFound
	}
	return fmt.Errorf("failed to create student: %w", err)
}

// Create creates a new student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	if _, err := r.conn.Exec(ctx, insertStudentSQL, studentArgs(s)...); err != nil {
		return mapStudentInsertError(err)
	}
	return nil
}

// CreateBatch inserts all students in one transaction.
func (r *StudentRepository) CreateBatch(ctx context.Context, students []*student.Student) error {
	if len(students) == 0 {
		return nil
	}
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, s := range students {
			batch.Queue(insertStudentSQL, studentArgs(s)...)
		}
		br := tx.SendBatch(ctx, batch)
		for range students {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return mapStudentInsertError(err)
			}
		}
		return br.Close()
	})
}

// Update overwrites the descriptive columns; college_id and created_at are
// never written.
func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE students SET student_id = $2, name = $3, email = $4, year = $5
		WHERE id = $1
	`, s.ID, s.StudentID, s.Name, s.Email, s.Year)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDuplicateStudentID
		}
		return fmt.Errorf("failed to update student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}
	return nil
}

// GetByID returns a student by internal ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	s, err := scanStudent(r.conn.QueryRow(ctx, `SELECT `+studentColumnsSQL+` FROM students s WHERE s.id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

// List returns students matching f ordered by name.
func (r *StudentRepository) List(ctx context.Context, f student.ListFilter, p shared.Pagination) ([]*student.Student, error) {
	var w where
	var a args
	if f.CollegeID != "" {
		w.and("s.college_id = " + a.add(f.CollegeID))
	}
	if f.Year != 0 {
		w.and("s.year = " + a.add(f.Year))
	}
	if f.Query != "" {
		w.containsAny(f.Query, &a, "s.name", "s.email", "s.student_id")
	}

	query := `SELECT ` + studentColumnsSQL + ` FROM students s ` + w.String() +
		` ORDER BY s.name, s.id` + page(p.Limit(), p.Offset(), &a)

	rows, err := r.conn.Query(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return collectRows(rows, scanStudent)
}
