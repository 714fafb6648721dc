package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/report"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
)

var _ report.SnapshotSource = (*Store)(nil)

// LoadSnapshot copies the scoped rows under a read lock so every slice
// reflects the same instant.
func (s *Store) LoadSnapshot(ctx context.Context, scope report.Scope) (*report.Snapshot, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &s.state
	snap := &report.Snapshot{TakenAt: s.now().UTC()}

	for _, c := range st.colleges {
		if report.MatchAll(scope.Colleges, report.CollegeSubject{College: c}) {
			snap.Colleges = append(snap.Colleges, c.Clone())
		}
	}
	students := map[string]bool{}
	for _, stu := range st.students {
		if report.MatchAll(scope.Students, report.StudentSubject{Student: stu}) {
			snap.Students = append(snap.Students, stu.Clone())
			students[stu.ID] = true
		}
	}
	studentScoped := len(scope.Students) > 0

	events := map[string]bool{}
	for _, e := range st.events {
		if report.MatchAll(scope.Events, report.EventSubject{Event: e}) {
			snap.Events = append(snap.Events, e.Clone())
			events[e.ID] = true
		}
	}

	for _, r := range st.registrations {
		if !events[r.EventID] && !(studentScoped && students[r.StudentID]) {
			continue
		}
		snap.Registrations = append(snap.Registrations, r.Clone())
		if a, ok := st.attendance[r.ID]; ok {
			snap.Attendance = append(snap.Attendance, a.Clone())
		}
		if f, ok := st.feedback[r.ID]; ok {
			cp := *f
			snap.Feedback = append(snap.Feedback, &cp)
		}
	}

	sortSnapshot(snap)
	return snap, nil
}

// sortSnapshot fixes row order; map iteration is random and reports break
// ties on input order.
func sortSnapshot(snap *report.Snapshot) {
	slices.SortFunc(snap.Colleges, func(a, b *college.College) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(snap.Students, func(a, b *student.Student) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(snap.Events, func(a, b *event.Event) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(snap.Registrations, func(a, b *registration.Registration) int { return cmp.Compare(a.ID, b.ID) })
}
