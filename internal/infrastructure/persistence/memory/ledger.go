package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// Ledger implements registration.Ledger.
type Ledger struct{ s *Store }

var _ registration.Ledger = (*Ledger)(nil)

// Reserve performs the conditional increment and the insert under one write
// lock.
func (l *Ledger) Reserve(_ context.Context, reg *registration.Registration, observedCount int) (int, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	st := &l.s.state
	if _, ok := st.students[reg.StudentID]; !ok {
		return 0, shared.ErrStudentNotFound
	}
	e, ok := st.events[reg.EventID]
	if !ok {
		return 0, shared.ErrEventNotFound
	}
	if e.CurrentRegistrations != observedCount {
		return e.CurrentRegistrations, shared.ErrOptimisticLock
	}
	if e.Status != event.StatusActive {
		return e.CurrentRegistrations, shared.ErrEventNotActive
	}
	if !e.HasRoom() {
		return e.CurrentRegistrations, shared.ErrEventFull
	}
	key := pairKey{reg.StudentID, reg.EventID}
	if _, dup := st.live[key]; dup {
		return e.CurrentRegistrations, shared.ErrDuplicateRegistration
	}
	if _, exists := st.registrations[reg.ID]; exists {
		return e.CurrentRegistrations, shared.NewDomainError("registration", "Reserve", shared.ErrConflict, "registration id already used")
	}

	e.CurrentRegistrations++
	e.Version++
	st.registrations[reg.ID] = reg.Clone()
	st.live[key] = reg.ID
	return e.CurrentRegistrations, nil
}

func (l *Ledger) Release(_ context.Context, registrationID string, at time.Time) (*registration.Registration, int, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	st := &l.s.state
	reg, ok := st.registrations[registrationID]
	if !ok {
		return nil, 0, shared.ErrRegistrationNotFound
	}
	next := reg.Clone()
	if err := next.Cancel(at); err != nil {
		return nil, 0, err
	}

	count := 0
	if e, ok := st.events[reg.EventID]; ok {
		e.CurrentRegistrations = max(e.CurrentRegistrations-1, 0)
		e.Version++
		count = e.CurrentRegistrations
	}
	st.registrations[registrationID] = next
	delete(st.live, pairKey{reg.StudentID, reg.EventID})
	return next.Clone(), count, nil
}

func (l *Ledger) GetByID(_ context.Context, id string) (*registration.Registration, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	reg, ok := l.s.state.registrations[id]
	if !ok {
		return nil, shared.ErrRegistrationNotFound
	}
	return reg.Clone(), nil
}

func (l *Ledger) FindLive(_ context.Context, studentID, eventID string) (*registration.Registration, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	id, ok := l.s.state.live[pairKey{studentID, eventID}]
	if !ok {
		return nil, shared.ErrRegistrationNotFound
	}
	return l.s.state.registrations[id].Clone(), nil
}

func (l *Ledger) ListByEvent(_ context.Context, eventID string, p shared.Pagination) ([]*registration.Registration, error) {
	out := l.collect(func(r *registration.Registration) bool { return r.EventID == eventID })
	slices.SortFunc(out, func(a, b *registration.Registration) int {
		return cmp.Or(a.RegisteredAt.Compare(b.RegisteredAt), cmp.Compare(a.ID, b.ID))
	})
	return shared.Page(out, p), nil
}

func (l *Ledger) ListByStudent(_ context.Context, studentID string, p shared.Pagination) ([]*registration.Registration, error) {
	out := l.collect(func(r *registration.Registration) bool { return r.StudentID == studentID })
	slices.SortFunc(out, func(a, b *registration.Registration) int {
		return cmp.Or(b.RegisteredAt.Compare(a.RegisteredAt), cmp.Compare(a.ID, b.ID))
	})
	return shared.Page(out, p), nil
}

func (l *Ledger) List(_ context.Context, f registration.ListFilter, p shared.Pagination) ([]*registration.Registration, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	l.s.mu.RLock()
	st := &l.s.state
	out := make([]*registration.Registration, 0)
	for _, r := range st.registrations {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.MatchesRegistration(r, st.studentCollege(r.StudentID)) {
			out = append(out, r.Clone())
		}
	}
	l.s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *registration.Registration) int {
		return cmp.Or(b.RegisteredAt.Compare(a.RegisteredAt), cmp.Compare(a.ID, b.ID))
	})
	return shared.Page(out, p), nil
}

func (l *Ledger) collect(keep func(*registration.Registration) bool) []*registration.Registration {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	out := make([]*registration.Registration, 0)
	for _, r := range l.s.state.registrations {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE & FEEDBACK
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceRepository implements registration.AttendanceRepository.
type AttendanceRepository struct{ s *Store }

var _ registration.AttendanceRepository = (*AttendanceRepository)(nil)

func (r *AttendanceRepository) GetByRegistration(_ context.Context, registrationID string) (*registration.Attendance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.state.attendance[registrationID]
	if !ok {
		return nil, shared.ErrAttendanceNotFound
	}
	return a.Clone(), nil
}

func (r *AttendanceRepository) Save(_ context.Context, a *registration.Attendance, expectedVersion int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := &r.s.state
	if _, ok := st.registrations[a.RegistrationID]; !ok {
		return shared.ErrRegistrationNotFound
	}
	cur, exists := st.attendance[a.RegistrationID]
	switch {
	case expectedVersion == 0 && exists:
		return shared.ErrOptimisticLock
	case expectedVersion != 0 && (!exists || cur.Version != expectedVersion):
		return shared.ErrOptimisticLock
	}

	next := a.Clone()
	next.Version = expectedVersion + 1
	st.attendance[a.RegistrationID] = next
	a.Version = next.Version
	return nil
}

func (r *AttendanceRepository) List(_ context.Context, f registration.ListFilter, p shared.Pagination) ([]*registration.Attendance, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	st := &r.s.state
	out := make([]*registration.Attendance, 0)
	for regID, a := range st.attendance {
		if f.AttendanceStatus != "" && a.Status != f.AttendanceStatus {
			continue
		}
		if reg, ok := st.registrations[regID]; ok && f.MatchesRegistration(reg, st.studentCollege(reg.StudentID)) {
			out = append(out, a.Clone())
		}
	}
	r.s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *registration.Attendance) int {
		return cmp.Or(compareOptionalTime(a.CheckInTime, b.CheckInTime), cmp.Compare(a.ID, b.ID))
	})
	return shared.Page(out, p), nil
}

// compareOptionalTime orders nil after any time.
func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

// FeedbackRepository implements registration.FeedbackRepository.
type FeedbackRepository struct{ s *Store }

var _ registration.FeedbackRepository = (*FeedbackRepository)(nil)

func (r *FeedbackRepository) GetByRegistration(_ context.Context, registrationID string) (*registration.Feedback, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	f, ok := r.s.state.feedback[registrationID]
	if !ok {
		return nil, shared.ErrFeedbackNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *FeedbackRepository) Create(_ context.Context, f *registration.Feedback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := &r.s.state
	if _, ok := st.registrations[f.RegistrationID]; !ok {
		return shared.ErrRegistrationNotFound
	}
	if _, ok := st.feedback[f.RegistrationID]; ok {
		return shared.ErrDuplicateFeedback
	}
	cp := *f
	st.feedback[f.RegistrationID] = &cp
	return nil
}

func (r *FeedbackRepository) List(_ context.Context, f registration.ListFilter, p shared.Pagination) ([]*registration.Feedback, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	st := &r.s.state
	out := make([]*registration.Feedback, 0)
	for regID, fb := range st.feedback {
		if !f.MatchesRating(fb.Rating) {
			continue
		}
		if reg, ok := st.registrations[regID]; ok && f.MatchesRegistration(reg, st.studentCollege(reg.StudentID)) {
			cp := *fb
			out = append(out, &cp)
		}
	}
	r.s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *registration.Feedback) int {
		return cmp.Or(b.SubmittedAt.Compare(a.SubmittedAt), cmp.Compare(a.ID, b.ID))
	})
	return shared.Page(out, p), nil
}
