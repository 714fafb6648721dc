package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLLEGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CollegeRepository implements college.Repository for PostgreSQL.
type CollegeRepository struct {
	conn *Connection
}

var _ college.Repository = (*CollegeRepository)(nil)

// NewCollegeRepository creates a new CollegeRepository.
func NewCollegeRepository(conn *Connection) *CollegeRepository {
	return &CollegeRepository{conn: conn}
}

const collegeColumnsSQL = `c.id, c.name, c.location, c.contact_email, c.created_at`

func scanCollege(row pgx.Row) (*college.College, error) {
	var c college.College
	if err := row.Scan(&c.ID, &c.Name, &c.Location, &c.ContactEmail, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create creates a new college.
func (r *CollegeRepository) Create(ctx context.Context, c *college.College) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO colleges (id, name, location, contact_email, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.Name, c.Location, c.ContactEmail, c.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("college", "Create", shared.ErrConflict, "college already exists")
		}
		return fmt.Errorf("failed to create college: %w", err)
	}
	return nil
}

// GetByID returns a college by ID.
func (r *CollegeRepository) GetByID(ctx context.Context, id string) (*college.College, error) {
	c, err := scanCollege(r.conn.QueryRow(ctx, `SELECT `+collegeColumnsSQL+` FROM colleges c WHERE c.id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCollegeNotFound
		}
		return nil, fmt.Errorf("failed to get college: %w", err)
	}
	return c, nil
}

// List returns colleges ordered by name.
func (r *CollegeRepository) List(ctx context.Context, p shared.Pagination) ([]*college.College, error) {
	var a args
	rows, err := r.conn.Query(ctx, `SELECT `+collegeColumnsSQL+` FROM colleges c ORDER BY c.name, c.id`+page(p.Limit(), p.Offset(), &a), a...)
	if err != nil {
		return nil, fmt.Errorf("failed to list colleges: %w", err)
	}
	return collectRows(rows, scanCollege)
}

// Update overwrites name, location and contact email.
func (r *CollegeRepository) Update(ctx context.Context, c *college.College) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE colleges SET name = $2, location = $3, contact_email = $4
		WHERE id = $1
	`, c.ID, c.Name, c.Location, c.ContactEmail)
	if err != nil {
		return fmt.Errorf("failed to update college: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrCollegeNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Cascade delete
// ─────────────────────────────────────────────────────────────────────────────

// doomedRegistrations selects every registration touching the college's
// students or events. $1 is the college ID.
const doomedRegistrations = `
	SELECT r.id FROM registrations r
	WHERE r.student_id IN (SELECT id FROM students WHERE college_id = $1)
	   OR r.event_id IN (SELECT id FROM events WHERE college_id = $1)
`

// Delete removes the college and everything it owns in one transaction.
// The college's students and events are locked first, so concurrent
// registrations either commit before the walk or fail on the missing rows.
func (r *CollegeRepository) Delete(ctx context.Context, id string) (college.DeleteSummary, error) {
	var sum college.DeleteSummary

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var found string
		if err := tx.QueryRow(ctx, `SELECT id FROM colleges WHERE id = $1 FOR UPDATE`, id).Scan(&found); err != nil {
			if IsNoRows(err) {
				return shared.ErrCollegeNotFound
			}
			return err
		}
		if _, err := tx.Exec(ctx, `SELECT 1 FROM students WHERE college_id = $1 FOR UPDATE`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `SELECT 1 FROM events WHERE college_id = $1 FOR UPDATE`, id); err != nil {
			return err
		}

		steps := []struct {
			sql   string
			count *int
		}{
			{`DELETE FROM feedback WHERE registration_id IN (` + doomedRegistrations + `)`, &sum.Feedback},
			{`DELETE FROM attendance WHERE registration_id IN (` + doomedRegistrations + `)`, &sum.Attendance},
			// Seats this college's students hold on other colleges' events
			// are handed back before their registrations go.
			{`
				UPDATE events e
				SET current_registrations = GREATEST(e.current_registrations - x.n, 0),
				    version = e.version + 1
				FROM (
					SELECT r.event_id, COUNT(*) AS n
					FROM registrations r
					JOIN students s ON s.id = r.student_id
					WHERE s.college_id = $1 AND r.status <> 'cancelled'
					GROUP BY r.event_id
				) x
				WHERE e.id = x.event_id AND e.college_id <> $1
			`, nil},
			{`DELETE FROM registrations WHERE id IN (` + doomedRegistrations + `)`, &sum.Registrations},
			{`DELETE FROM students WHERE college_id = $1`, &sum.Students},
			{`DELETE FROM events WHERE college_id = $1`, &sum.Events},
			{`DELETE FROM colleges WHERE id = $1`, nil},
		}
		for _, step := range steps {
			tag, err := tx.Exec(ctx, step.sql, id)
			if err != nil {
				return err
			}
			if step.count != nil {
				*step.count = int(tag.RowsAffected())
			}
		}
		return nil
	})
	if err != nil {
		if shared.IsNotFound(err) {
			return college.DeleteSummary{}, err
		}
		return college.DeleteSummary{}, fmt.Errorf("failed to delete college: %w", err)
	}
	return sum, nil
}

// collectRows scans every row with scan.
func collectRows[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}
