package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/report"
)

// ══════════════════════════════════════════════════════════════════════════════
// PREDICATE COMPILER
// Report scopes and list filters are turned into parameterized WHERE clauses.
// Column names only ever come from the fixed maps below.
// ══════════════════════════════════════════════════════════════════════════════

// columns maps filterable fields to the SQL column of one table. A field the
// table lacks does not constrain it, matching report.Predicate.Match.
type columns map[report.Field]string

var (
	eventColumns = columns{
		report.FieldCollegeID: "e.college_id",
		report.FieldEventType: "e.event_type",
		report.FieldStatus:    "e.status",
		report.FieldTitle:     "e.title",
		report.FieldStartTime: "e.start_time",
		report.FieldEndTime:   "e.end_time",
	}
	studentColumns = columns{report.FieldCollegeID: "s.college_id"}
	collegeColumns = columns{report.FieldCollegeID: "c.id"}
)

// args accumulates positional parameters.
type args []any

// add appends v and returns its placeholder.
func (a *args) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

// where collects conjuncts.
type where []string

func (w *where) and(cond string) { *w = append(*w, cond) }

// String renders "WHERE a AND b", or "" when empty.
func (w where) String() string {
	if len(w) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w, " AND ")
}

// compile appends one condition per applicable predicate.
func (w *where) compile(preds []report.Predicate, cols columns, a *args) error {
	for _, p := range preds {
		if err := p.Validate(); err != nil {
			return err
		}
		col, ok := cols[p.Field]
		if !ok {
			continue
		}
		switch p.Op {
		case report.OpEq:
			w.and(col + " = " + a.add(p.Value))
		case report.OpContains:
			w.and(col + " ILIKE " + a.add(likePattern(p.Value)) + ` ESCAPE '\'`)
		case report.OpRange:
			if !p.From.IsZero() {
				w.and(col + " >= " + a.add(p.From))
			}
			if !p.To.IsZero() {
				w.and(col + " <= " + a.add(p.To))
			}
		default:
			return fmt.Errorf("postgres: unsupported operator %q", p.Op)
		}
	}
	return nil
}

// containsAny adds "(c1 ILIKE $n OR c2 ILIKE $n ...)" sharing one parameter.
func (w *where) containsAny(q string, a *args, cols ...string) {
	ph := a.add(likePattern(q))
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + " ILIKE " + ph + ` ESCAPE '\'`
	}
	w.and("(" + strings.Join(parts, " OR ") + ")")
}

// activity compiles the registration-level options of a listing filter. The
// query must alias registrations as r.
func (w *where) activity(f registration.ListFilter, a *args) {
	if f.EventID != "" {
		w.and("r.event_id = " + a.add(f.EventID))
	}
	if f.StudentID != "" {
		w.and("r.student_id = " + a.add(f.StudentID))
	}
	if f.CollegeID != "" {
		w.and("r.student_id IN (SELECT id FROM students WHERE college_id = " + a.add(f.CollegeID) + ")")
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps s for a substring match with LIKE metacharacters escaped.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// page renders LIMIT/OFFSET placeholders.
func page(limit, offset int, a *args) string {
	return " LIMIT " + a.add(limit) + " OFFSET " + a.add(offset)
}
