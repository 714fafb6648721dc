package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/campus-hub/campus-event-hub/internal/domain/report"
)

var _ report.SnapshotSource = (*Store)(nil)

// LoadSnapshot reads the scoped rows inside one repeatable-read transaction,
// so every slice sees the same database state.
func (s *Store) LoadSnapshot(ctx context.Context, scope report.Scope) (*report.Snapshot, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	snap := &report.Snapshot{TakenAt: s.now().UTC()}

	err := s.conn.WithTx(ctx, SnapshotTxOptions(), func(tx pgx.Tx) error {
		var err error

		var cw where
		var ca args
		if err = cw.compile(scope.Colleges, collegeColumns, &ca); err != nil {
			return err
		}
		snap.Colleges, err = queryAll(ctx, tx,
			`SELECT `+collegeColumnsSQL+` FROM colleges c `+cw.String()+` ORDER BY c.id`, ca, scanCollege)
		if err != nil {
			return err
		}

		var sw where
		var sa args
		if err = sw.compile(scope.Students, studentColumns, &sa); err != nil {
			return err
		}
		snap.Students, err = queryAll(ctx, tx,
			`SELECT `+studentColumnsSQL+` FROM students s `+sw.String()+` ORDER BY s.id`, sa, scanStudent)
		if err != nil {
			return err
		}

		var ew where
		var ea args
		if err = ew.compile(scope.Events, eventColumns, &ea); err != nil {
			return err
		}
		snap.Events, err = queryAll(ctx, tx,
			`SELECT `+eventColumnsSQL+` FROM events e `+ew.String()+` ORDER BY e.id`, ea, scanEvent)
		if err != nil {
			return err
		}

		regCond, ra, err := registrationScope(scope)
		if err != nil {
			return err
		}
		snap.Registrations, err = queryAll(ctx, tx, `
			SELECT `+registrationColumnsSQL+` FROM registrations r
			WHERE `+regCond+`
			ORDER BY r.id`, ra, scanRegistration)
		if err != nil {
			return err
		}

		scopedRegs := `SELECT r.id FROM registrations r WHERE ` + regCond
		snap.Attendance, err = queryAll(ctx, tx, `
			SELECT `+attendanceColumnsSQL+` FROM attendance a
			WHERE a.registration_id IN (`+scopedRegs+`)
			ORDER BY a.registration_id`, ra, scanAttendance)
		if err != nil {
			return err
		}

		snap.Feedback, err = queryAll(ctx, tx, `
			SELECT `+feedbackColumnsSQL+` FROM feedback f
			WHERE f.registration_id IN (`+scopedRegs+`)
			ORDER BY f.registration_id`, ra, scanFeedback)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snap, nil
}

// registrationScope selects registrations on scoped events and, when the
// student scope is narrowed, every registration of a scoped student.
func registrationScope(scope report.Scope) (string, args, error) {
	var a args
	var ew where
	if err := ew.compile(scope.Events, eventColumns, &a); err != nil {
		return "", nil, err
	}
	cond := `r.event_id IN (SELECT e.id FROM events e ` + ew.String() + `)`
	if len(scope.Students) == 0 {
		return cond, a, nil
	}

	var sw where
	if err := sw.compile(scope.Students, studentColumns, &a); err != nil {
		return "", nil, err
	}
	return `(` + cond + ` OR r.student_id IN (SELECT s.id FROM students s ` + sw.String() + `))`, a, nil
}

func queryAll[T any](ctx context.Context, tx pgx.Tx, query string, a args, scan func(pgx.Row) (T, error)) ([]T, error) {
	rows, err := tx.Query(ctx, query, a...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, scan)
}
