package postgres

import (
	"context"
	"time"
)

// Store bundles the repositories over one Connection.
type Store struct {
	conn *Connection
	now  func() time.Time
}

// NewStore wraps conn. The clock stamps snapshots.
func NewStore(conn *Connection, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{conn: conn, now: now}
}

// Conn returns the underlying connection.
func (s *Store) Conn() *Connection { return s.conn }

func (s *Store) Colleges() *CollegeRepository { return &CollegeRepository{conn: s.conn} }

func (s *Store) Students() *StudentRepository { return &StudentRepository{conn: s.conn} }

func (s *Store) Events() *EventRepository { return &EventRepository{conn: s.conn} }

func (s *Store) Registrations() *Ledger { return &Ledger{conn: s.conn} }

func (s *Store) Attendance() *AttendanceRepository { return &AttendanceRepository{conn: s.conn} }

func (s *Store) Feedback() *FeedbackRepository { return &FeedbackRepository{conn: s.conn} }

// Ping checks the database.
func (s *Store) Ping(ctx context.Context) error { return s.conn.Ping(ctx) }

// Close closes the pool.
func (s *Store) Close() { s.conn.Close() }
