package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLLEGES
// ══════════════════════════════════════════════════════════════════════════════

// CollegeRepository implements college.Repository.
type CollegeRepository struct{ s *Store }

var _ college.Repository = (*CollegeRepository)(nil)

func (r *CollegeRepository) Create(_ context.Context, c *college.College) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.state.colleges[c.ID]; ok {
		return shared.NewDomainError("college", "Create", shared.ErrConflict, "college already exists")
	}
	r.s.state.colleges[c.ID] = c.Clone()
	return nil
}

func (r *CollegeRepository) GetByID(_ context.Context, id string) (*college.College, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.state.colleges[id]
	if !ok {
		return nil, shared.ErrCollegeNotFound
	}
	return c.Clone(), nil
}

func (r *CollegeRepository) List(_ context.Context, p shared.Pagination) ([]*college.College, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*college.College, 0, len(r.s.state.colleges))
	for _, c := range r.s.state.colleges {
		out = append(out, c.Clone())
	}
	slices.SortFunc(out, func(a, b *college.College) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return shared.Page(out, p), nil
}

func (r *CollegeRepository) Update(_ context.Context, c *college.College) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.state.colleges[c.ID]
	if !ok {
		return shared.ErrCollegeNotFound
	}
	next := c.Clone()
	next.CreatedAt = cur.CreatedAt
	r.s.state.colleges[c.ID] = next
	return nil
}

// Delete walks the ownership tree leaves first under a single write lock, so
// readers never observe a half-deleted college.
func (r *CollegeRepository) Delete(_ context.Context, id string) (college.DeleteSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := &r.s.state
	var sum college.DeleteSummary
	if _, ok := st.colleges[id]; !ok {
		return sum, shared.ErrCollegeNotFound
	}

	students := map[string]bool{}
	for sid, s := range st.students {
		if s.CollegeID == id {
			students[sid] = true
		}
	}
	events := map[string]bool{}
	for eid, e := range st.events {
		if e.CollegeID == id {
			events[eid] = true
		}
	}

	var regs []string
	for rid, reg := range st.registrations {
		if students[reg.StudentID] || events[reg.EventID] {
			regs = append(regs, rid)
		}
	}

	for _, rid := range regs {
		if _, ok := st.feedback[rid]; ok {
			delete(st.feedback, rid)
			sum.Feedback++
		}
	}
	for _, rid := range regs {
		if _, ok := st.attendance[rid]; ok {
			delete(st.attendance, rid)
			sum.Attendance++
		}
	}
	for _, rid := range regs {
		reg := st.registrations[rid]
		if reg.IsLive() {
			delete(st.live, pairKey{reg.StudentID, reg.EventID})
			// Registrations of outside students to this college's events go
			// away with the event; seats held on other colleges' events by
			// this college's students are handed back.
			if e, ok := st.events[reg.EventID]; ok && !events[reg.EventID] {
				e.CurrentRegistrations = max(e.CurrentRegistrations-1, 0)
				e.Version++
			}
		}
		delete(st.registrations, rid)
		sum.Registrations++
	}
	for sid := range students {
		delete(st.students, sid)
		sum.Students++
	}
	for eid := range events {
		delete(st.events, eid)
		sum.Events++
	}
	delete(st.colleges, id)

	return sum, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository.
type StudentRepository struct{ s *Store }

var _ student.Repository = (*StudentRepository)(nil)

func (r *StudentRepository) Create(_ context.Context, s *student.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkInsert(s, nil); err != nil {
		return err
	}
	r.s.state.students[s.ID] = s.Clone()
	return nil
}

// CreateBatch validates every row against the store and the batch itself
// before writing anything.
func (r *StudentRepository) CreateBatch(_ context.Context, students []*student.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	pending := make(map[[2]string]bool, len(students))
	for _, s := range students {
		if err := r.checkInsert(s, pending); err != nil {
			return err
		}
		pending[[2]string{s.CollegeID, s.StudentID}] = true
	}
	for _, s := range students {
		r.s.state.students[s.ID] = s.Clone()
	}
	return nil
}

func (r *StudentRepository) checkInsert(s *student.Student, pending map[[2]string]bool) error {
	if _, ok := r.s.state.colleges[s.CollegeID]; !ok {
		return shared.ErrCollegeNotFound
	}
	if _, ok := r.s.state.students[s.ID]; ok {
		return shared.NewDomainError("student", "Create", shared.ErrConflict, "student already exists")
	}
	if pending[[2]string{s.CollegeID, s.StudentID}] {
		return shared.ErrDuplicateStudentID
	}
	for _, cur := range r.s.state.students {
		if cur.CollegeID == s.CollegeID && cur.StudentID == s.StudentID {
			return shared.ErrDuplicateStudentID
		}
	}
	return nil
}

func (r *StudentRepository) Update(_ context.Context, s *student.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.state.students[s.ID]
	if !ok {
		return shared.ErrStudentNotFound
	}
	for _, other := range r.s.state.students {
		if other.ID != s.ID && other.CollegeID == cur.CollegeID && other.StudentID == s.StudentID {
			return shared.ErrDuplicateStudentID
		}
	}
	next := s.Clone()
	next.CollegeID = cur.CollegeID
	next.CreatedAt = cur.CreatedAt
	r.s.state.students[s.ID] = next
	return nil
}

func (r *StudentRepository) GetByID(_ context.Context, id string) (*student.Student, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	s, ok := r.s.state.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return s.Clone(), nil
}

func (r *StudentRepository) List(_ context.Context, f student.ListFilter, p shared.Pagination) ([]*student.Student, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*student.Student, 0)
	for _, s := range r.s.state.students {
		if f.Matches(s) {
			out = append(out, s.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *student.Student) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return shared.Page(out, p), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// EventRepository implements event.Repository.
type EventRepository struct{ s *Store }

var _ event.Repository = (*EventRepository)(nil)

func (r *EventRepository) Create(_ context.Context, e *event.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.state.colleges[e.CollegeID]; !ok {
		return shared.ErrCollegeNotFound
	}
	if _, ok := r.s.state.events[e.ID]; ok {
		return shared.NewDomainError("event", "Create", shared.ErrConflict, "event already exists")
	}
	cp := e.Clone()
	cp.CurrentRegistrations = 0
	if cp.Version == 0 {
		cp.Version = 1
	}
	r.s.state.events[e.ID] = cp
	return nil
}

func (r *EventRepository) GetByID(_ context.Context, id string) (*event.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.state.events[id]
	if !ok {
		return nil, shared.ErrEventNotFound
	}
	return e.Clone(), nil
}

func (r *EventRepository) List(_ context.Context, f event.ListFilter, p shared.Pagination) ([]*event.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*event.Event, 0)
	for _, e := range r.s.state.events {
		if f.Matches(e) {
			out = append(out, e.Clone())
		}
	}
	sortEvents(out)
	return shared.Page(out, p), nil
}

// Update writes everything except the registration counter.
func (r *EventRepository) Update(_ context.Context, e *event.Event, expectedVersion int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.state.events[e.ID]
	if !ok {
		return shared.ErrEventNotFound
	}
	if cur.Version != expectedVersion {
		return shared.ErrOptimisticLock
	}
	if e.MaxCapacity < cur.CurrentRegistrations {
		return shared.ErrCapacityBelowCount
	}

	next := e.Clone()
	next.CurrentRegistrations = cur.CurrentRegistrations
	next.CreatedAt = cur.CreatedAt
	next.CollegeID = cur.CollegeID
	next.Version = cur.Version + 1
	r.s.state.events[e.ID] = next
	e.Version = next.Version
	return nil
}

func (r *EventRepository) FindFinished(_ context.Context, now time.Time, limit int) ([]*event.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*event.Event, 0)
	for _, e := range r.s.state.events {
		if e.Status == event.StatusActive && e.Finished(now) {
			out = append(out, e.Clone())
		}
	}
	sortEvents(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortEvents(events []*event.Event) {
	slices.SortFunc(events, func(a, b *event.Event) int {
		return cmp.Or(a.StartTime.Compare(b.StartTime), cmp.Compare(a.ID, b.ID))
	})
}
