package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// Ledger implements registration.Ledger. The counter update and the
// registration row are written in one transaction.
type Ledger struct {
	conn *Connection
}

var _ registration.Ledger = (*Ledger)(nil)

// NewLedger creates a new Ledger.
func NewLedger(conn *Connection) *Ledger {
	return &Ledger{conn: conn}
}

const registrationColumnsSQL = `r.id, r.student_id, r.event_id, r.status, r.registered_at, r.cancelled_at`

func scanRegistration(row pgx.Row) (*registration.Registration, error) {
	var r registration.Registration
	var status string
	if err := row.Scan(&r.ID, &r.StudentID, &r.EventID, &status, &r.RegisteredAt, &r.CancelledAt); err != nil {
		return nil, err
	}
	r.Status = registration.Status(status)
	return &r, nil
}

// Reserve is the conditional increment: the UPDATE only matches while the
// counter still equals observedCount, is below capacity and the event is
// active. When it matches nothing the row is re-read to name the reason.
func (l *Ledger) Reserve(ctx context.Context, reg *registration.Registration, observedCount int) (int, error) {
	var count int

	err := l.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE id = $1)`, reg.StudentID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return shared.ErrStudentNotFound
		}

		err := tx.QueryRow(ctx, `
			UPDATE events
			SET current_registrations = current_registrations + 1, version = version + 1
			WHERE id = $1
			  AND current_registrations = $2
			  AND current_registrations < max_capacity
			  AND status = 'active'
			RETURNING current_registrations
		`, reg.EventID, observedCount).Scan(&count)
		if IsNoRows(err) {
			var reason error
			count, reason = l.whyNotReserved(ctx, tx, reg.EventID, observedCount)
			return reason
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO registrations (id, student_id, event_id, status, registered_at)
			VALUES ($1, $2, $3, $4, $5)
		`, reg.ID, reg.StudentID, reg.EventID, string(reg.Status), reg.RegisteredAt)
		switch {
		case err == nil:
			return nil
		case IsUniqueViolation(err) && ConstraintName(err) == "registrations_live_pair_key":
			count--
			return shared.ErrDuplicateRegistration
		case IsUniqueViolation(err):
			count--
			return shared.NewDomainError("registration", "Reserve", shared.ErrConflict, "registration id already used")
		case IsForeignKeyViolation(err):
			// The student was deleted after the existence check.
			count--
			return shared.ErrStudentNotFound
		}
		return err
	})
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) || errors.Is(err, shared.ErrOptimisticLock) {
			return count, err
		}
		if IsSerializationFailure(err) {
			return count, shared.ErrOptimisticLock
		}
		return count, fmt.Errorf("failed to reserve seat: %w", err)
	}
	return count, nil
}

// whyNotReserved diagnoses a non-matching conditional update in the order
// the in-memory ledger checks.
func (l *Ledger) whyNotReserved(ctx context.Context, tx pgx.Tx, eventID string, observed int) (int, error) {
	var current, capacity int
	var status string
	err := tx.QueryRow(ctx, `SELECT current_registrations, max_capacity, status FROM events WHERE id = $1`, eventID).
		Scan(&current, &capacity, &status)
	switch {
	case IsNoRows(err):
		return 0, shared.ErrEventNotFound
	case err != nil:
		return 0, err
	case current != observed:
		return current, shared.ErrOptimisticLock
	case event.Status(status) != event.StatusActive:
		return current, shared.ErrEventNotActive
	case current >= capacity:
		return current, shared.ErrEventFull
	}
	// The row changed between the update and the re-read.
	return current, shared.ErrOptimisticLock
}

// Release cancels the registration and returns its seat.
func (l *Ledger) Release(ctx context.Context, registrationID string, at time.Time) (*registration.Registration, int, error) {
	var (
		reg   *registration.Registration
		count int
	)

	err := l.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var err error
		reg, err = scanRegistration(tx.QueryRow(ctx,
			`SELECT `+registrationColumnsSQL+` FROM registrations r WHERE r.id = $1 FOR UPDATE`, registrationID))
		if err != nil {
			if IsNoRows(err) {
				return shared.ErrRegistrationNotFound
			}
			return err
		}
		if err := reg.Cancel(at); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE registrations SET status = $2, cancelled_at = $3 WHERE id = $1`,
			reg.ID, string(reg.Status), reg.CancelledAt,
		); err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			UPDATE events
			SET current_registrations = GREATEST(current_registrations - 1, 0), version = version + 1
			WHERE id = $1
			RETURNING current_registrations
		`, reg.EventID).Scan(&count)
		if IsNoRows(err) {
			count = 0
			return nil
		}
		return err
	})
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("failed to release seat: %w", err)
	}
	return reg, count, nil
}

// GetByID returns a registration by ID.
func (l *Ledger) GetByID(ctx context.Context, id string) (*registration.Registration, error) {
	reg, err := scanRegistration(l.conn.QueryRow(ctx,
		`SELECT `+registrationColumnsSQL+` FROM registrations r WHERE r.id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return reg, nil
}

// FindLive returns the live registration for the pair.
func (l *Ledger) FindLive(ctx context.Context, studentID, eventID string) (*registration.Registration, error) {
	reg, err := scanRegistration(l.conn.QueryRow(ctx, `
		SELECT `+registrationColumnsSQL+` FROM registrations r
		WHERE r.student_id = $1 AND r.event_id = $2 AND r.status <> 'cancelled'
	`, studentID, eventID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	return reg, nil
}

// ListByEvent returns registrations for an event, oldest first.
func (l *Ledger) ListByEvent(ctx context.Context, eventID string, p shared.Pagination) ([]*registration.Registration, error) {
	a := args{eventID}
	rows, err := l.conn.Query(ctx, `
		SELECT `+registrationColumnsSQL+` FROM registrations r
		WHERE r.event_id = $1
		ORDER BY r.registered_at, r.id`+page(p.Limit(), p.Offset(), &a), a...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return collectRows(rows, scanRegistration)
}

// ListByStudent returns registrations for a student, newest first.
func (l *Ledger) ListByStudent(ctx context.Context, studentID string, p shared.Pagination) ([]*registration.Registration, error) {
	a := args{studentID}
	rows, err := l.conn.Query(ctx, `
		SELECT `+registrationColumnsSQL+` FROM registrations r
		WHERE r.student_id = $1
		ORDER BY r.registered_at DESC, r.id`+page(p.Limit(), p.Offset(), &a), a...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return collectRows(rows, scanRegistration)
}

// List returns registrations matching f, newest first.
func (l *Ledger) List(ctx context.Context, f registration.ListFilter, p shared.Pagination) ([]*registration.Registration, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var w where
	var a args
	w.activity(f, &a)
	if f.Status != "" {
		w.and("r.status = " + a.add(string(f.Status)))
	}

	rows, err := l.conn.Query(ctx, `
		SELECT `+registrationColumnsSQL+` FROM registrations r `+w.String()+`
		ORDER BY r.registered_at DESC, r.id`+page(p.Limit(), p.Offset(), &a), a...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return collectRows(rows, scanRegistration)
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE & FEEDBACK
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceRepository implements registration.AttendanceRepository.
type AttendanceRepository struct {
	conn *Connection
}

var _ registration.AttendanceRepository = (*AttendanceRepository)(nil)

const attendanceColumnsSQL = `a.id, a.registration_id, a.status, a.check_in_time, a.check_out_time, a.version`

func scanAttendance(row pgx.Row) (*registration.Attendance, error) {
	var a registration.Attendance
	var status string
	if err := row.Scan(&a.ID, &a.RegistrationID, &status, &a.CheckInTime, &a.CheckOutTime, &a.Version); err != nil {
		return nil, err
	}
	a.Status = registration.AttendanceStatus(status)
	return &a, nil
}

// GetByRegistration returns the attendance record of a registration.
func (r *AttendanceRepository) GetByRegistration(ctx context.Context, registrationID string) (*registration.Attendance, error) {
	a, err := scanAttendance(r.conn.QueryRow(ctx,
		`SELECT `+attendanceColumnsSQL+` FROM attendance a WHERE a.registration_id = $1`, registrationID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAttendanceNotFound
		}
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return a, nil
}

// Save inserts when expectedVersion is 0, otherwise updates under a version
// check. A lost race in either case is shared.ErrOptimisticLock.
func (r *AttendanceRepository) Save(ctx context.Context, a *registration.Attendance, expectedVersion int) error {
	next := expectedVersion + 1

	var (
		stmt   string
		params []any
	)
	if expectedVersion == 0 {
		stmt = `
			INSERT INTO attendance (id, registration_id, status, check_in_time, check_out_time, version)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (registration_id) DO NOTHING`
		params = []any{a.ID, a.RegistrationID, string(a.Status), a.CheckInTime, a.CheckOutTime, next}
	} else {
		stmt = `
			UPDATE attendance
			SET status = $2, check_in_time = $3, check_out_time = $4, version = $5
			WHERE registration_id = $1 AND version = $6`
		params = []any{a.RegistrationID, string(a.Status), a.CheckInTime, a.CheckOutTime, next, expectedVersion}
	}

	tag, err := r.conn.Exec(ctx, stmt, params...)
	if err != nil {
		switch {
		case IsForeignKeyViolation(err):
			return shared.ErrRegistrationNotFound
		case IsCheckViolation(err):
			return shared.ErrCheckOutBeforeIn
		}
		return fmt.Errorf("failed to save attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if expectedVersion != 0 {
			if _, err := (&Ledger{conn: r.conn}).GetByID(ctx, a.RegistrationID); shared.IsNotFound(err) {
				return shared.ErrRegistrationNotFound
			}
		}
		return shared.ErrOptimisticLock
	}

	a.Version = next
	return nil
}

// List returns attendance records whose registration matches f, ordered by
// check-in time with records never checked in last.
func (r *AttendanceRepository) List(ctx context.Context, f registration.ListFilter, p shared.Pagination) ([]*registration.Attendance, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var w where
	var a args
	w.activity(f, &a)
	if f.AttendanceStatus != "" {
		w.and("a.status = " + a.add(string(f.AttendanceStatus)))
	}

	rows, err := r.conn.Query(ctx, `
		SELECT `+attendanceColumnsSQL+` FROM attendance a
		JOIN registrations r ON r.id = a.registration_id `+w.String()+`
		ORDER BY a.check_in_time NULLS LAST, a.id`+page(p.Limit(), p.Offset(), &a), a...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return collectRows(rows, scanAttendance)
}

// FeedbackRepository implements registration.FeedbackRepository.
type FeedbackRepository struct {
	conn *Connection
}

var _ registration.FeedbackRepository = (*FeedbackRepository)(nil)

const feedbackColumnsSQL = `f.id, f.registration_id, f.rating, f.comment, f.submitted_at`

func scanFeedback(row pgx.Row) (*registration.Feedback, error) {
	var f registration.Feedback
	var rating int
	if err := row.Scan(&f.ID, &f.RegistrationID, &rating, &f.Comment, &f.SubmittedAt); err != nil {
		return nil, err
	}
	f.Rating = shared.Rating(rating)
	return &f, nil
}

// GetByRegistration returns the feedback of a registration.
func (r *FeedbackRepository) GetByRegistration(ctx context.Context, registrationID string) (*registration.Feedback, error) {
	f, err := scanFeedback(r.conn.QueryRow(ctx,
		`SELECT `+feedbackColumnsSQL+` FROM feedback f WHERE f.registration_id = $1`, registrationID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return f, nil
}

// Create stores feedback; the unique key on registration_id enforces one
// per registration.
func (r *FeedbackRepository) Create(ctx context.Context, f *registration.Feedback) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO feedback (id, registration_id, rating, comment, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
	`, f.ID, f.RegistrationID, f.Rating.Int(), f.Comment, f.SubmittedAt)
	if err != nil {
		switch {
		case IsUniqueViolation(err) && ConstraintName(err) == "feedback_registration_key":
			return shared.ErrDuplicateFeedback
		case IsUniqueViolation(err):
			return shared.NewDomainError("feedback", "Create", shared.ErrConflict, "feedback already exists")
		case IsForeignKeyViolation(err):
			return shared.ErrRegistrationNotFound
		case IsCheckViolation(err):
			return shared.ErrInvalidRating
		}
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

// List returns feedback whose registration matches f, newest first.
func (r *FeedbackRepository) List(ctx context.Context, f registration.ListFilter, p shared.Pagination) ([]*registration.Feedback, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var w where
	var a args
	w.activity(f, &a)
	if f.MinRating != 0 {
		w.and("f.rating >= " + a.add(f.MinRating))
	}
	if f.MaxRating != 0 {
		w.and("f.rating <= " + a.add(f.MaxRating))
	}

	rows, err := r.conn.Query(ctx, `
		SELECT `+feedbackColumnsSQL+` FROM feedback f
		JOIN registrations r ON r.id = f.registration_id `+w.String()+`
		ORDER BY f.submitted_at DESC, f.id`+page(p.Limit(), p.Offset(), &a), a...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return collectRows(rows, scanFeedback)
}
