// Package report is the read-only analytics engine. Every report is a pure
// function of a Snapshot; nothing here writes to the store.
package report

import (
	"fmt"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
)

// MaxLimit caps Filter.Limit.
const MaxLimit = 1000

// ══════════════════════════════════════════════════════════════════════════════
// PREDICATES
// ══════════════════════════════════════════════════════════════════════════════

// Field is one of the fixed set of filterable attributes.
type Field string

const (
	FieldCollegeID Field = "college_id"
	FieldEventType Field = "event_type"
	FieldStatus    Field = "status"
	FieldTitle     Field = "title"
	FieldStartTime Field = "start_time"
	FieldEndTime   Field = "end_time"
)

// Op is a predicate operator.
type Op string

const (
	OpEq       Op = "eq"
	OpRange    Op = "range"
	OpContains Op = "contains"
)

// fieldOps lists which operators each field accepts.
var fieldOps = map[Field][]Op{
	FieldCollegeID: {OpEq},
	FieldEventType: {OpEq, OpContains},
	FieldStatus:    {OpEq},
	FieldTitle:     {OpEq, OpContains},
	FieldStartTime: {OpRange},
	FieldEndTime:   {OpRange},
}

// Predicate is a typed condition on one Field. Range bounds are inclusive and
// a zero bound is open.
type Predicate struct {
	Field Field
	Op    Op
	Value string
	From  time.Time
	To    time.Time
}

// Eq matches fields equal to v.
func Eq(f Field, v string) Predicate {
	return Predicate{Field: f, Op: OpEq, Value: v}
}

// Contains matches string fields containing v, case-insensitively.
func Contains(f Field, v string) Predicate {
	return Predicate{Field: f, Op: OpContains, Value: v}
}

// Range matches time fields within [from, to].
func Range(f Field, from, to time.Time) Predicate {
	return Predicate{Field: f, Op: OpRange, From: from, To: to}
}

// Validate rejects operator/field combinations outside fieldOps.
func (p Predicate) Validate() error {
	ops, ok := fieldOps[p.Field]
	if !ok {
		return shared.WrapError("report", "Filter", shared.ErrInvalidInput, "unknown field", fmt.Errorf("%q", p.Field))
	}
	for _, op := range ops {
		if op == p.Op {
			if p.Op == OpRange && !p.From.IsZero() && !p.To.IsZero() && p.From.After(p.To) {
				return shared.WrapError("report", "Filter", shared.ErrInvalidInput, "range is inverted", fmt.Errorf("%s", p.Field))
			}
			return nil
		}
	}
	return shared.WrapError("report", "Filter", shared.ErrInvalidInput, "operator not supported", fmt.Errorf("%s on %s", p.Op, p.Field))
}

// Subject exposes field values to predicates. ok is false when the subject
// does not carry the field, in which case the predicate does not constrain it.
type Subject interface {
	StringField(f Field) (string, bool)
	TimeField(f Field) (time.Time, bool)
}

// Match evaluates p against s.
func (p Predicate) Match(s Subject) bool {
	switch p.Op {
	case OpEq:
		v, ok := s.StringField(p.Field)
		return !ok || v == p.Value
	case OpContains:
		v, ok := s.StringField(p.Field)
		return !ok || shared.ContainsFold(v, p.Value)
	case OpRange:
		t, ok := s.TimeField(p.Field)
		if !ok {
			return true
		}
		return shared.TimeRange{From: p.From, To: p.To}.Contains(t)
	}
	return false
}

// MatchAll is the conjunction of preds over s.
func MatchAll(preds []Predicate, s Subject) bool {
	for _, p := range preds {
		if !p.Match(s) {
			return false
		}
	}
	return true
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT ADAPTERS
// ══════════════════════════════════════════════════════════════════════════════

// EventSubject adapts an event for predicate evaluation.
type EventSubject struct{ *event.Event }

func (e EventSubject) StringField(f Field) (string, bool) {
	switch f {
	case FieldCollegeID:
		return e.CollegeID, true
	case FieldEventType:
		return e.EventType, true
	case FieldStatus:
		return string(e.Status), true
	case FieldTitle:
		return e.Title, true
	}
	return "", false
}

func (e EventSubject) TimeField(f Field) (time.Time, bool) {
	switch f {
	case FieldStartTime:
		return e.StartTime, true
	case FieldEndTime:
		return e.EndTime, true
	}
	return time.Time{}, false
}

// StudentSubject adapts a student; only the college is filterable.
type StudentSubject struct{ *student.Student }

func (s StudentSubject) StringField(f Field) (string, bool) {
	if f == FieldCollegeID {
		return s.CollegeID, true
	}
	return "", false
}

func (s StudentSubject) TimeField(Field) (time.Time, bool) { return time.Time{}, false }

// CollegeSubject adapts a college; its own ID is its college_id.
type CollegeSubject struct{ *college.College }

func (c CollegeSubject) StringField(f Field) (string, bool) {
	if f == FieldCollegeID {
		return c.ID, true
	}
	return "", false
}

func (c CollegeSubject) TimeField(Field) (time.Time, bool) { return time.Time{}, false }

// ══════════════════════════════════════════════════════════════════════════════
// FILTER
// ══════════════════════════════════════════════════════════════════════════════

// Filter is the recognized report configuration. All set options combine
// with AND. Zero values mean "unset".
type Filter struct {
	CollegeID string       `json:"college_id,omitempty"`
	EventType string       `json:"event_type,omitempty"`
	Status    event.Status `json:"status,omitempty"`

	// StartDate bounds event start time from below, EndDate bounds event end
	// time from above. Both inclusive.
	StartDate time.Time `json:"start_date,omitempty"`
	EndDate   time.Time `json:"end_date,omitempty"`

	// Limit caps row count; 0 selects the report's default.
	Limit int `json:"limit,omitempty"`
}

// Validate checks option values.
func (f Filter) Validate() error {
	if f.Status != "" && !f.Status.IsValid() {
		return shared.WrapError("report", "Filter", shared.ErrInvalidInput, "unknown status", fmt.Errorf("%q", f.Status))
	}
	if f.Limit < 0 || f.Limit > MaxLimit {
		return shared.InvalidInput("report", "Filter", fmt.Sprintf("limit must be between 0 and %d", MaxLimit))
	}
	if !(shared.TimeRange{From: f.StartDate, To: f.EndDate}).IsValid() {
		return shared.InvalidInput("report", "Filter", "start_date must not be after end_date")
	}
	return nil
}

// Scope is a filter compiled into per-entity predicate lists. Stores evaluate
// it when loading a snapshot.
type Scope struct {
	Colleges []Predicate
	Students []Predicate
	Events   []Predicate
}

// Scope compiles f into predicates.
func (f Filter) Scope() Scope {
	var s Scope
	if f.CollegeID != "" {
		p := Eq(FieldCollegeID, f.CollegeID)
		s.Colleges = append(s.Colleges, p)
		s.Students = append(s.Students, p)
		s.Events = append(s.Events, p)
	}
	if t := event.NormalizeType(f.EventType); t != "" {
		s.Events = append(s.Events, Eq(FieldEventType, t))
	}
	if f.Status != "" {
		s.Events = append(s.Events, Eq(FieldStatus, string(f.Status)))
	}
	if !f.StartDate.IsZero() {
		s.Events = append(s.Events, Range(FieldStartTime, f.StartDate, time.Time{}))
	}
	if !f.EndDate.IsZero() {
		s.Events = append(s.Events, Range(FieldEndTime, time.Time{}, f.EndDate))
	}
	return s
}

// Validate checks every predicate in the scope.
func (s Scope) Validate() error {
	for _, list := range [][]Predicate{s.Colleges, s.Students, s.Events} {
		for _, p := range list {
			if err := p.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// narrowsEvents reports whether any option beyond the college restricts the
// event set.
func (f Filter) narrowsEvents() bool {
	return event.NormalizeType(f.EventType) != "" || f.Status != "" || !f.StartDate.IsZero() || !f.EndDate.IsZero()
}

func (f Filter) limitOr(def int) int {
	if f.Limit > 0 {
		return f.Limit
	}
	return def
}

// statusesOr returns the explicit status if set, otherwise the defaults.
func (f Filter) statusesOr(defaults ...event.Status) map[event.Status]bool {
	set := make(map[event.Status]bool, len(defaults))
	if f.Status != "" {
		set[f.Status] = true
		return set
	}
	for _, s := range defaults {
		set[s] = true
	}
	return set
}
