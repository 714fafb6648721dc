package command

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/persistence/memory"
)

var (
	now        = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	eventStart = now.Add(48 * time.Hour)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count(t shared.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.EventType() == t {
			n++
		}
	}
	return n
}

type harness struct {
	store     *memory.Store
	pub       *recordingPublisher
	rt        Runtime
	register  *RegisterHandler
	cancel    *CancelRegistrationHandler
	attend    *AttendanceHandler
	feedback  *SubmitFeedbackHandler
	colleges  *CollegeHandler
	students  *StudentHandler
	events    *EventHandler
	collegeID string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	var seq atomic.Int64
	pub := &recordingPublisher{}
	rt := Runtime{
		Now:       func() time.Time { return now },
		NewID:     func() string { return fmt.Sprintf("id-%d", seq.Add(1)) },
		Publisher: pub,
	}
	cfg := RegisterHandlerConfig{MaxAttempts: 20, InitialDelay: time.Microsecond, MaxDelay: time.Millisecond}

	s := memory.New()
	h := &harness{
		store:    s,
		pub:      pub,
		rt:       rt,
		register: NewRegisterHandler(s.Students(), s.Events(), s.Registrations(), rt, cfg),
		cancel:   NewCancelRegistrationHandler(s.Registrations(), rt),
		attend:   NewAttendanceHandler(s.Registrations(), s.Events(), s.Attendance(), rt),
		feedback: NewSubmitFeedbackHandler(s.Registrations(), s.Attendance(), s.Feedback(), rt),
		colleges: NewCollegeHandler(s.Colleges(), rt),
		students: NewStudentHandler(s.Students(), rt),
		events:   NewEventHandler(s.Events(), rt, cfg),
	}

	c, err := h.colleges.Create(context.Background(), CreateCollegeCommand{Name: "North", ContactEmail: "n@north.edu"})
	require.NoError(t, err)
	h.collegeID = c.ID
	return h
}

func (h *harness) student(t *testing.T, roll string) *student.Student {
	t.Helper()
	s, err := h.students.Create(context.Background(), CreateStudentCommand{
		CollegeID: h.collegeID, StudentID: roll, Name: "Student " + roll, Email: roll + "@north.edu", Year: 2,
	})
	require.NoError(t, err)
	return s
}

func (h *harness) event(t *testing.T, capacity int) *event.Event {
	t.Helper()
	e, err := h.events.Create(context.Background(), CreateEventCommand{
		CollegeID: h.collegeID, Title: "Go Workshop", EventType: "Workshop",
		StartTime: eventStart, EndTime: eventStart.Add(2 * time.Hour), MaxCapacity: capacity,
	})
	require.NoError(t, err)
	return e
}

func (h *harness) liveCount(t *testing.T, eventID string) int {
	t.Helper()
	regs, err := h.store.Registrations().ListByEvent(context.Background(), eventID, shared.NewPagination(1, shared.MaxPageSize))
	require.NoError(t, err)
	n := 0
	for _, r := range regs {
		if r.IsLive() {
			n++
		}
	}
	return n
}

func (h *harness) counter(t *testing.T, eventID string) int {
	t.Helper()
	e, err := h.store.Events().GetByID(context.Background(), eventID)
	require.NoError(t, err)
	return e.CurrentRegistrations
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

func TestRegister_Succeeds(t *testing.T) {
	h := newHarness(t)
	s := h.student(t, "R1")
	e := h.event(t, 5)

	res, err := h.register.Handle(context.Background(), RegisterCommand{StudentID: s.ID, EventID: e.ID})
	require.NoError(t, err)

	assert.Equal(t, registration.StatusRegistered, res.Registration.Status)
	assert.Equal(t, 1, res.CurrentRegistrations)
	assert.Equal(t, 5, res.MaxCapacity)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, h.pub.count(shared.EventRegistrationCreated))
}

func TestRegister_PreconditionsInOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.student(t, "R1")
	e := h.event(t, 1)

	_, err := h.register.Handle(ctx, RegisterCommand{StudentID: "missing", EventID: "missing"})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)

	_, err = h.register.Handle(ctx, RegisterCommand{StudentID: s.ID, EventID: "missing"})
	assert.ErrorIs(t, err, shared.ErrEventNotFound)

	_, err = h.register.Handle(ctx, RegisterCommand{StudentID: s.ID, EventID: e.ID, At: eventStart})
	assert.ErrorIs(t, err, shared.ErrEventAlreadyStarted)
	assert.True(t, shared.IsInvalidState(err))

	_, err = h.register.Handle(ctx, RegisterCommand{StudentID: s.ID, EventID: e.ID})
	require.NoError(t, err)

	// Full and duplicate at once: duplicate wins.
	_, err = h.register.Handle(ctx, RegisterCommand{StudentID: s.ID, EventID: e.ID})
	assert.ErrorIs(t, err, shared.ErrDuplicateRegistration)
	assert.True(t, shared.IsConflict(err))

	other := h.student(t, "R2")
	_, err = h.register.Handle(ctx, RegisterCommand{StudentID: other.ID, EventID: e.ID})
	assert.True(t, shared.IsCapacityExceeded(err))

	cancelled := h.event(t, 5)
	_, err = h.events.Cancel(ctx, cancelled.ID)
	require.NoError(t, err)
	_, err = h.register.Handle(ctx, RegisterCommand{StudentID: s.ID, EventID: cancelled.ID})
	assert.ErrorIs(t, err, shared.ErrEventNotActive)

	assert.Equal(t, 1, h.counter(t, e.ID))
}

func TestRegister_ValidatesCommand(t *testing.T) {
	h := newHarness(t)

	_, err := h.register.Handle(context.Background(), RegisterCommand{EventID: "e"})
	require.Error(t, err)
	assert.True(t, shared.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "student_id")
}

func TestRegister_LastSeatRace(t *testing.T) {
	for i := 0; i < 20; i++ {
		h := newHarness(t)
		e := h.event(t, 1)
		a := h.student(t, "A")
		b := h.student(t, "B")

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for idx, st := range []*student.Student{a, b} {
			wg.Add(1)
			go func(idx int, id string) {
				defer wg.Done()
				_, errs[idx] = h.register.Handle(context.Background(), RegisterCommand{StudentID: id, EventID: e.ID})
			}(idx, st.ID)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, shared.IsCapacityExceeded(err), "loser must see CapacityExceeded, got %v", err)
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, h.counter(t, e.ID))
	}
}

func TestRegister_CapacityInvariantUnderConcurrency(t *testing.T) {
	h := newHarness(t)
	e := h.event(t, 10)

	const callers = 40
	ids := make([]string, callers)
	for i := range ids {
		ids[i] = h.student(t, fmt.Sprintf("S%02d", i)).ID
	}

	var (
		wg       sync.WaitGroup
		ok, full atomic.Int64
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := h.register.Handle(context.Background(), RegisterCommand{StudentID: id, EventID: e.ID})
			switch {
			case err == nil:
				ok.Add(1)
			case shared.IsCapacityExceeded(err):
				full.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	assert.EqualValues(t, 10, ok.Load())
	assert.EqualValues(t, callers-10, full.Load())
	assert.Equal(t, 10, h.counter(t, e.ID))
	assert.Equal(t, 10, h.liveCount(t, e.ID))
}

func TestRegister_MixedRegisterAndCancelKeepsCounterExact(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.event(t, 8)

	ids := make([]string, 24)
	for i := range ids {
		ids[i] = h.student(t, fmt.Sprintf("M%02d", i)).ID
	}

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		cancelled atomic.Int64
	)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			res, err := h.register.Handle(ctx, RegisterCommand{StudentID: id, EventID: e.ID})
			if err != nil {
				assert.True(t, shared.IsCapacityExceeded(err) || shared.IsConflict(err), "got %v", err)
				return
			}
			succeeded.Add(1)
			if i%2 == 0 {
				_, err := h.cancel.Handle(ctx, CancelRegistrationCommand{RegistrationID: res.Registration.ID})
				assert.NoError(t, err)
				cancelled.Add(1)
			}
		}(i, id)
	}
	wg.Wait()

	final := h.counter(t, e.ID)
	assert.LessOrEqual(t, final, 8)
	assert.EqualValues(t, succeeded.Load()-cancelled.Load(), final)
	assert.Equal(t, final, h.liveCount(t, e.ID))
}

// contendedLedger loses every compare-and-swap.
type contendedLedger struct {
	registration.Ledger
	calls atomic.Int64
}

func (l *contendedLedger) Reserve(context.Context, *registration.Registration, int) (int, error) {
	l.calls.Add(1)
	return 0, shared.ErrOptimisticLock
}

func TestRegister_BoundedRetrySurfacesConflict(t *testing.T) {
	h := newHarness(t)
	s := h.student(t, "R1")
	e := h.event(t, 5)

	ledger := &contendedLedger{Ledger: h.store.Registrations()}
	handler := NewRegisterHandler(h.store.Students(), h.store.Events(), ledger, h.rt,
		RegisterHandlerConfig{MaxAttempts: 3, InitialDelay: time.Microsecond, MaxDelay: time.Microsecond})

	_, err := handler.Handle(context.Background(), RegisterCommand{StudentID: s.ID, EventID: e.ID})

	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
	assert.ErrorIs(t, err, shared.ErrRegistrationContended)
	assert.False(t, shared.IsOptimisticLock(err))
	assert.EqualValues(t, 3, ledger.calls.Load())
	assert.Equal(t, 1, h.pub.count(shared.EventRegistrationRejected))
}

func TestCancelRegistration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.student(t, "R1")
	e := h.event(t, 1)

	res, err := h.register.Handle(ctx, RegisterCommand{StudentID: s.ID, EventID: e.ID})
	require.NoError(t, err)

	out, err := h.cancel.Handle(ctx, CancelRegistrationCommand{RegistrationID: res.Registration.ID})
	require.NoError(t, err)
	assert.Equal(t, registration.StatusCancelled, out.Registration.Status)
	assert.Equal(t, 0, out.CurrentRegistrations)

	_, err = h.cancel.Handle(ctx, CancelRegistrationCommand{RegistrationID: res.Registration.ID})
	assert.True(t, shared.IsInvalidState(err))

	_, err = h.cancel.Handle(ctx, CancelRegistrationCommand{RegistrationID: "missing"})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.register.Handle(ctx, RegisterCommand{StudentID: s.ID, EventID: e.ID})
	assert.NoError(t, err, "cancelled pair may register again")
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE & FEEDBACK
// ══════════════════════════════════════════════════════════════════════════════

func (h *harness) registered(t *testing.T) *registration.Registration {
	t.Helper()
	s := h.student(t, h.rt.NewID())
	e := h.event(t, 10)
	res, err := h.register.Handle(context.Background(), RegisterCommand{StudentID: s.ID, EventID: e.ID})
	require.NoError(t, err)
	return res.Registration
}

func TestCheckIn_ClassifiesLateAfterGrace(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	onTime := h.registered(t)
	res, err := h.attend.CheckIn(ctx, CheckInCommand{RegistrationID: onTime.ID, At: eventStart.Add(15 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, registration.AttendancePresent, res.Attendance.Status)

	late := h.registered(t)
	res, err = h.attend.CheckIn(ctx, CheckInCommand{RegistrationID: late.ID, At: eventStart.Add(16 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, registration.AttendanceLate, res.Attendance.Status)

	_, err = h.attend.CheckIn(ctx, CheckInCommand{RegistrationID: late.ID, At: eventStart.Add(20 * time.Minute)})
	assert.ErrorIs(t, err, shared.ErrAlreadyCheckedIn)
	assert.Equal(t, 2, h.pub.count(shared.EventCheckedIn))
}

func TestCheckOut_Lifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	reg := h.registered(t)

	_, err := h.attend.CheckOut(ctx, CheckOutCommand{RegistrationID: reg.ID, At: eventStart})
	assert.ErrorIs(t, err, shared.ErrMustCheckInFirst)
	_, err = h.store.Attendance().GetByRegistration(ctx, reg.ID)
	assert.True(t, shared.IsNotFound(err), "failed transition must not create a record")

	_, err = h.attend.CheckIn(ctx, CheckInCommand{RegistrationID: reg.ID, At: eventStart})
	require.NoError(t, err)

	res, err := h.attend.CheckOut(ctx, CheckOutCommand{RegistrationID: reg.ID, At: eventStart.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, res.Attendance.Duration())

	_, err = h.attend.CheckOut(ctx, CheckOutCommand{RegistrationID: reg.ID, At: eventStart.Add(2 * time.Hour)})
	assert.ErrorIs(t, err, shared.ErrAlreadyCheckedOut)
}

func TestCheckIn_RequiresLiveRegistration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	reg := h.registered(t)

	_, err := h.cancel.Handle(ctx, CancelRegistrationCommand{RegistrationID: reg.ID})
	require.NoError(t, err)

	_, err = h.attend.CheckIn(ctx, CheckInCommand{RegistrationID: reg.ID, At: eventStart})
	assert.ErrorIs(t, err, shared.ErrNotRegistered)
}

func TestCheckIn_ConcurrentOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	reg := h.registered(t)

	var (
		wg sync.WaitGroup
		ok atomic.Int64
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.attend.CheckIn(ctx, CheckInCommand{RegistrationID: reg.ID, At: eventStart})
			if err == nil {
				ok.Add(1)
				return
			}
			assert.True(t, shared.IsConflict(err), "got %v", err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
}

func TestSubmitFeedback_Gate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	reg := h.registered(t)

	_, err := h.feedback.Handle(ctx, SubmitFeedbackCommand{RegistrationID: reg.ID, Rating: 6})
	assert.ErrorIs(t, err, shared.ErrAttendanceRequired, "attendance is checked before rating")

	_, err = h.feedback.Handle(ctx, SubmitFeedbackCommand{RegistrationID: "missing", Rating: 4})
	assert.True(t, shared.IsNotFound(err))

	_, err = h.attend.CheckIn(ctx, CheckInCommand{RegistrationID: reg.ID, At: eventStart.Add(30 * time.Minute)})
	require.NoError(t, err)

	_, err = h.feedback.Handle(ctx, SubmitFeedbackCommand{RegistrationID: reg.ID, Rating: 0})
	assert.True(t, shared.IsInvalidInput(err))

	fb, err := h.feedback.Handle(ctx, SubmitFeedbackCommand{RegistrationID: reg.ID, Rating: 4, Comment: "  good  "})
	require.NoError(t, err)
	assert.Equal(t, 4, fb.Rating.Int())
	assert.Equal(t, "good", fb.Comment)

	_, err = h.feedback.Handle(ctx, SubmitFeedbackCommand{RegistrationID: reg.ID, Rating: 5})
	assert.ErrorIs(t, err, shared.ErrDuplicateFeedback)
	assert.Equal(t, 1, h.pub.count(shared.EventFeedbackSubmitted))
}

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY & EVENTS
// ══════════════════════════════════════════════════════════════════════════════

func TestEventUpdate_CapacityNotBelowCount(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.event(t, 3)
	for _, roll := range []string{"U1", "U2"} {
		s := h.student(t, roll)
		_, err := h.register.Handle(ctx, RegisterCommand{StudentID: s.ID, EventID: e.ID})
		require.NoError(t, err)
	}

	one := 1
	_, err := h.events.Update(ctx, UpdateEventCommand{EventID: e.ID, MaxCapacity: &one})
	assert.ErrorIs(t, err, shared.ErrCapacityBelowCount)

	two := 2
	title := "Advanced Go"
	updated, err := h.events.Update(ctx, UpdateEventCommand{EventID: e.ID, MaxCapacity: &two, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.MaxCapacity)
	assert.Equal(t, 2, updated.CurrentRegistrations)
	assert.Equal(t, "Advanced Go", updated.Title)

	badEnd := eventStart.Add(-time.Hour)
	_, err = h.events.Update(ctx, UpdateEventCommand{EventID: e.ID, EndTime: &badEnd})
	assert.ErrorIs(t, err, shared.ErrInvalidTimeRange)
}

func TestEventCreate_Validation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.events.Create(ctx, CreateEventCommand{
		CollegeID: h.collegeID, Title: "X", EventType: "talk", StartTime: eventStart, EndTime: eventStart,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidTimeRange)

	_, err = h.events.Create(ctx, CreateEventCommand{
		CollegeID: h.collegeID, Title: "X", EventType: "talk", StartTime: eventStart, EndTime: eventStart.Add(time.Hour), MaxCapacity: -1,
	})
	assert.True(t, shared.IsInvalidInput(err))

	e, err := h.events.Create(ctx, CreateEventCommand{
		CollegeID: h.collegeID, Title: "X", EventType: " Talk ", StartTime: eventStart, EndTime: eventStart.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, event.DefaultMaxCapacity, e.MaxCapacity)
	assert.Equal(t, "talk", e.EventType)

	_, err = h.events.Create(ctx, CreateEventCommand{
		CollegeID: "missing", Title: "X", EventType: "talk", StartTime: eventStart, EndTime: eventStart.Add(time.Hour),
	})
	assert.ErrorIs(t, err, shared.ErrCollegeNotFound)
}

func TestCompleteFinished(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.event(t, 5)
	future := h.event(t, 5)
	_, err := h.events.Update(ctx, UpdateEventCommand{EventID: future.ID, EndTime: ptr(eventStart.Add(72 * time.Hour))})
	require.NoError(t, err)

	done, err := h.events.CompleteFinished(ctx, eventStart.Add(3*time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, done)

	got, err := h.store.Events().GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StatusCompleted, got.Status)

	_, err = h.events.Cancel(ctx, e.ID)
	assert.True(t, shared.IsInvalidState(err))
}

func TestStudents_BulkIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.student(t, "B1")

	_, err := h.students.CreateBatch(ctx, BulkCreateStudentsCommand{Students: []CreateStudentCommand{
		{CollegeID: h.collegeID, StudentID: "B2", Name: "Two", Email: "two@north.edu"},
		{CollegeID: h.collegeID, StudentID: "B1", Name: "Dup", Email: "dup@north.edu"},
	}})
	assert.ErrorIs(t, err, shared.ErrDuplicateStudentID)

	_, err = h.students.CreateBatch(ctx, BulkCreateStudentsCommand{Students: []CreateStudentCommand{
		{CollegeID: h.collegeID, StudentID: "B3", Name: "Three", Email: "not-an-email"},
	}})
	assert.True(t, shared.IsInvalidInput(err))

	list, err := h.store.Students().List(ctx, student.ListFilter{CollegeID: h.collegeID}, shared.DefaultPagination())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	created, err := h.students.CreateBatch(ctx, BulkCreateStudentsCommand{Students: []CreateStudentCommand{
		{CollegeID: h.collegeID, StudentID: "B2", Name: "Two", Email: "two@north.edu"},
		{CollegeID: h.collegeID, StudentID: "B3", Name: "Three", Email: "three@north.edu"},
	}})
	require.NoError(t, err)
	assert.Len(t, created, 2)
}

func TestCollegeDelete_Cascades(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	reg := h.registered(t)
	_, err := h.attend.CheckIn(ctx, CheckInCommand{RegistrationID: reg.ID, At: eventStart})
	require.NoError(t, err)
	_, err = h.feedback.Handle(ctx, SubmitFeedbackCommand{RegistrationID: reg.ID, Rating: 5})
	require.NoError(t, err)

	sum, err := h.colleges.Delete(ctx, DeleteCollegeCommand{CollegeID: h.collegeID})
	require.NoError(t, err)
	assert.Equal(t, college.DeleteSummary{Feedback: 1, Attendance: 1, Registrations: 1, Students: 1, Events: 1}, sum)

	_, err = h.store.Registrations().GetByID(ctx, reg.ID)
	assert.True(t, shared.IsNotFound(err))
	_, err = h.store.Attendance().GetByRegistration(ctx, reg.ID)
	assert.True(t, shared.IsNotFound(err))
	_, err = h.store.Feedback().GetByRegistration(ctx, reg.ID)
	assert.True(t, shared.IsNotFound(err))
	assert.Equal(t, 1, h.pub.count(shared.EventCollegeDeleted))
}

func ptr[T any](v T) *T { return &v }

func TestStudentUpdate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ada := h.student(t, "R1")
	h.student(t, "R2")

	name, email := "  Ada L. ", "ADA@North.edu"
	got, err := h.students.Update(ctx, UpdateStudentCommand{ID: ada.ID, Name: &name, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.Name)
	assert.Equal(t, "ada@north.edu", got.Email)
	assert.Equal(t, "R1", got.StudentID)
	assert.Equal(t, 2, got.Year)
	assert.Equal(t, 1, h.pub.count(shared.EventStudentUpdated))

	stored, err := h.store.Students().GetByID(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", stored.Name)
	assert.Equal(t, h.collegeID, stored.CollegeID)

	taken := "R2"
	_, err = h.students.Update(ctx, UpdateStudentCommand{ID: ada.ID, StudentID: &taken})
	assert.ErrorIs(t, err, shared.ErrDuplicateStudentID)

	year := 11
	_, err = h.students.Update(ctx, UpdateStudentCommand{ID: ada.ID, Year: &year})
	assert.True(t, shared.IsInvalidInput(err))

	_, err = h.students.Update(ctx, UpdateStudentCommand{ID: "missing", Name: &name})
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
	assert.Equal(t, 1, h.pub.count(shared.EventStudentUpdated))
}
