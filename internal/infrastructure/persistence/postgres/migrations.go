package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies the embedded migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns applied versions with their timestamps.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}

	return applied, rows.Err()
}

// Migrate applies all pending migrations in version order and returns how
// many ran.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return 0, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if mig.UpSQL == "" {
			return ran, fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			_, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName), mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return ran, fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		ran++
	}

	return ran, nil
}

// Rollback rolls back the last applied migration. It returns the rolled
// back version, or 0 when nothing was applied.
func (m *Migrator) Rollback(ctx context.Context) (int, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return 0, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	last := 0
	for v := range applied {
		last = max(last, v)
	}
	if last == 0 {
		return 0, nil
	}

	var mig *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last {
			mig = &m.migrations[i]
			break
		}
	}
	if mig == nil || mig.DownSQL == "" {
		return 0, fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, last)
	}

	err = m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, mig.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", last, err)
		}
		_, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName), last)
		return err
	})
	if err != nil {
		return 0, err
	}
	return last, nil
}

// Status returns every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if at, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = at
		}
	}

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations sorted by version.
func GetMigrations() []Migration {
	migs := []Migration{
		{Version: 1, Name: "create_directory", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_events", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_registrations", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_attendance_feedback", UpSQL: migration004Up, DownSQL: migration004Down},
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].Version < migs[j].Version })
	return migs
}

// Foreign keys carry no ON DELETE CASCADE; CollegeRepository.Delete
// walks the ownership tree itself.

const migration001Up = `
CREATE TABLE IF NOT EXISTS colleges (
    id            TEXT PRIMARY KEY,
    name          VARCHAR(200) NOT NULL,
    location      TEXT NOT NULL DEFAULT '',
    contact_email TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_colleges_name ON colleges (name, id);

CREATE TABLE IF NOT EXISTS students (
    id         TEXT PRIMARY KEY,
    college_id TEXT NOT NULL REFERENCES colleges (id),
    student_id VARCHAR(50) NOT NULL,
    name       VARCHAR(200) NOT NULL,
    email      VARCHAR(320) NOT NULL,
    year       INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT students_college_student_id_key UNIQUE (college_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_students_college_name ON students (college_id, name);
`

const migration001Down = `
DROP TABLE IF EXISTS students;
DROP TABLE IF EXISTS colleges;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS events (
    id                    TEXT PRIMARY KEY,
    college_id            TEXT NOT NULL REFERENCES colleges (id),
    title                 VARCHAR(200) NOT NULL,
    description           TEXT NOT NULL DEFAULT '',
    event_type            VARCHAR(50) NOT NULL,
    location              TEXT NOT NULL DEFAULT '',
    start_time            TIMESTAMP WITH TIME ZONE NOT NULL,
    end_time              TIMESTAMP WITH TIME ZONE NOT NULL,
    max_capacity          INTEGER NOT NULL,
    current_registrations INTEGER NOT NULL DEFAULT 0,
    status                VARCHAR(20) NOT NULL DEFAULT 'active',
    version               INTEGER NOT NULL DEFAULT 1,
    created_at            TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT events_time_range_check CHECK (start_time < end_time),
    CONSTRAINT events_max_capacity_check CHECK (max_capacity > 0),
    CONSTRAINT events_capacity_check CHECK (current_registrations >= 0 AND current_registrations <= max_capacity),
    CONSTRAINT events_status_check CHECK (status IN ('active', 'cancelled', 'completed'))
);

CREATE INDEX IF NOT EXISTS idx_events_college_start ON events (college_id, start_time);
CREATE INDEX IF NOT EXISTS idx_events_active_end ON events (end_time) WHERE status = 'active';
`

const migration002Down = `
DROP TABLE IF EXISTS events;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS registrations (
    id            TEXT PRIMARY KEY,
    student_id    TEXT NOT NULL REFERENCES students (id),
    event_id      TEXT NOT NULL REFERENCES events (id),
    status        VARCHAR(20) NOT NULL DEFAULT 'registered',
    registered_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    cancelled_at  TIMESTAMP WITH TIME ZONE,

    CONSTRAINT registrations_status_check CHECK (status IN ('registered', 'cancelled', 'attended'))
);

-- At most one live registration per (student, event).
CREATE UNIQUE INDEX IF NOT EXISTS registrations_live_pair_key
    ON registrations (student_id, event_id) WHERE status <> 'cancelled';

CREATE INDEX IF NOT EXISTS idx_registrations_event ON registrations (event_id, registered_at);
CREATE INDEX IF NOT EXISTS idx_registrations_student ON registrations (student_id, registered_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS registrations;
`

const migration004Up = `
CREATE TABLE IF NOT EXISTS attendance (
    id              TEXT PRIMARY KEY,
    registration_id TEXT NOT NULL REFERENCES registrations (id),
    status          VARCHAR(20) NOT NULL DEFAULT 'absent',
    check_in_time   TIMESTAMP WITH TIME ZONE,
    check_out_time  TIMESTAMP WITH TIME ZONE,
    version         INTEGER NOT NULL DEFAULT 1,

    CONSTRAINT attendance_registration_key UNIQUE (registration_id),
    CONSTRAINT attendance_status_check CHECK (status IN ('absent', 'present', 'late')),
    CONSTRAINT attendance_checkout_check CHECK (
        check_out_time IS NULL OR (check_in_time IS NOT NULL AND check_out_time >= check_in_time)
    )
);

CREATE TABLE IF NOT EXISTS feedback (
    id              TEXT PRIMARY KEY,
    registration_id TEXT NOT NULL REFERENCES registrations (id),
    rating          SMALLINT NOT NULL,
    comment         TEXT NOT NULL DEFAULT '',
    submitted_at    TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT feedback_registration_key UNIQUE (registration_id),
    CONSTRAINT feedback_rating_check CHECK (rating BETWEEN 1 AND 5)
);
`

const migration004Down = `
DROP TABLE IF EXISTS feedback;
DROP TABLE IF EXISTS attendance;
`
