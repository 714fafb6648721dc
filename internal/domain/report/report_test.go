package report

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// fixture builds snapshots by hand.
type fixture struct {
	snap *Snapshot
	seq  int
}

func newFixture() *fixture {
	return &fixture{snap: &Snapshot{TakenAt: now}}
}

func (fx *fixture) id(prefix string) string {
	fx.seq++
	return fmt.Sprintf("%s-%d", prefix, fx.seq)
}

func (fx *fixture) college(name string) *college.College {
	c := &college.College{ID: fx.id("c"), Name: name}
	fx.snap.Colleges = append(fx.snap.Colleges, c)
	return c
}

func (fx *fixture) student(c *college.College, name string) *student.Student {
	s := &student.Student{ID: fx.id("s"), CollegeID: c.ID, StudentID: name, Name: name, Email: name + "@x.edu"}
	fx.snap.Students = append(fx.snap.Students, s)
	return s
}

func (fx *fixture) event(c *college.College, title, typ string, capacity int) *event.Event {
	e := &event.Event{
		ID:          fx.id("e"),
		CollegeID:   c.ID,
		Title:       title,
		EventType:   typ,
		StartTime:   now.Add(24 * time.Hour),
		EndTime:     now.Add(26 * time.Hour),
		MaxCapacity: capacity,
		Status:      event.StatusActive,
	}
	fx.snap.Events = append(fx.snap.Events, e)
	return e
}

// register adds a live registration and bumps the counter like the ledger would.
func (fx *fixture) register(s *student.Student, e *event.Event) *registration.Registration {
	r := registration.New(fx.id("r"), s.ID, e.ID, now)
	e.CurrentRegistrations++
	fx.snap.Registrations = append(fx.snap.Registrations, r)
	return r
}

func (fx *fixture) fill(c *college.College, e *event.Event, n int) {
	for i := 0; i < n; i++ {
		fx.register(fx.student(c, fmt.Sprintf("%s-st%d", e.Title, i)), e)
	}
}

func (fx *fixture) attend(r *registration.Registration, status registration.AttendanceStatus) {
	t := now
	fx.snap.Attendance = append(fx.snap.Attendance, &registration.Attendance{
		ID: fx.id("a"), RegistrationID: r.ID, Status: status, CheckInTime: &t,
	})
}

func (fx *fixture) rate(r *registration.Registration, rating int) {
	fx.snap.Feedback = append(fx.snap.Feedback, &registration.Feedback{
		ID: fx.id("f"), RegistrationID: r.ID, Rating: shared.Rating(rating),
	})
}

func generate[T any](t *testing.T, kind Kind, fx *fixture, f Filter) T {
	t.Helper()
	out, err := Generate(kind, fx.snap, f)
	require.NoError(t, err)
	typed, ok := out.(T)
	require.True(t, ok, "unexpected result type %T", out)
	return typed
}

func TestEventPopularity_OrdersByRegistrations(t *testing.T) {
	fx := newFixture()
	c := fx.college("North")
	half := fx.event(c, "half", "workshop", 10)
	full := fx.event(c, "full", "workshop", 10)
	empty := fx.event(c, "empty", "workshop", 5)
	fx.fill(c, half, 5)
	fx.fill(c, full, 10)

	rows := generate[[]PopularityRow](t, KindEventPopularity, fx, Filter{})

	require.Len(t, rows, 3)
	assert.Equal(t, []string{full.ID, half.ID, empty.ID}, []string{rows[0].EventID, rows[1].EventID, rows[2].EventID})
	assert.Equal(t, 100.0, rows[0].RegistrationPercentage)
	assert.Equal(t, 50.0, rows[1].RegistrationPercentage)
	assert.Equal(t, 0.0, rows[2].RegistrationPercentage)
}

func TestEventPopularity_CountsCancelledRowsAndSkipsInactive(t *testing.T) {
	fx := newFixture()
	c := fx.college("North")
	churn := fx.event(c, "churn", "talk", 10)
	steady := fx.event(c, "steady", "talk", 10)
	gone := fx.event(c, "gone", "talk", 10)
	gone.Status = event.StatusCancelled

	for i := 0; i < 3; i++ {
		r := fx.register(fx.student(c, fmt.Sprintf("x%d", i)), churn)
		r.Status = registration.StatusCancelled
		churn.CurrentRegistrations--
	}
	fx.fill(c, steady, 2)

	rows := generate[[]PopularityRow](t, KindEventPopularity, fx, Filter{Limit: 1})

	require.Len(t, rows, 1)
	assert.Equal(t, churn.ID, rows[0].EventID)
	assert.Equal(t, 3, rows[0].TotalRegistrations)
	assert.Equal(t, 0, rows[0].CurrentRegistrations)
}

func TestEventTypeBreakdown_Averages(t *testing.T) {
	fx := newFixture()
	c := fx.college("North")
	a := fx.event(c, "a", "hackathon", 10)
	b := fx.event(c, "b", "hackathon", 10)
	fx.event(c, "c", "hackathon", 5)
	fx.fill(c, a, 5)
	fx.fill(c, b, 10)

	rows := generate[[]TypeBreakdownRow](t, KindEventTypeBreakdown, fx, Filter{})

	require.Len(t, rows, 1)
	assert.Equal(t, "hackathon", rows[0].EventType)
	assert.Equal(t, 3, rows[0].TotalEvents)
	assert.Equal(t, 15, rows[0].TotalRegistrations)
	assert.Equal(t, 5.0, rows[0].AvgRegistrations)
	assert.Equal(t, 50.0, rows[0].AvgRegistrationPercentage)
}

func TestAttendanceSummary_NullPercentageWithoutRegistrations(t *testing.T) {
	fx := newFixture()
	c := fx.college("North")
	busy := fx.event(c, "busy", "talk", 10)
	idle := fx.event(c, "idle", "talk", 10)

	s1, s2, s3 := fx.student(c, "s1"), fx.student(c, "s2"), fx.student(c, "s3")
	fx.attend(fx.register(s1, busy), registration.AttendancePresent)
	fx.attend(fx.register(s2, busy), registration.AttendanceLate)
	fx.register(s3, busy)

	rows := generate[[]AttendanceRow](t, KindAttendanceSummary, fx, Filter{})

	require.Len(t, rows, 2)
	assert.Equal(t, busy.ID, rows[0].EventID)
	require.NotNil(t, rows[0].AttendancePercentage)
	assert.Equal(t, 66.67, *rows[0].AttendancePercentage)
	assert.Equal(t, 1, rows[0].PresentCount)
	assert.Equal(t, 1, rows[0].LateCount)

	assert.Equal(t, idle.ID, rows[1].EventID)
	assert.Nil(t, rows[1].AttendancePercentage)
}

func TestStudentParticipation_ExcludesUnregistered(t *testing.T) {
	fx := newFixture()
	c := fx.college("North")
	e1 := fx.event(c, "e1", "talk", 10)
	e2 := fx.event(c, "e2", "talk", 10)
	keen := fx.student(c, "keen")
	casual := fx.student(c, "casual")
	fx.student(c, "lurker")

	fx.attend(fx.register(keen, e1), registration.AttendancePresent)
	fx.attend(fx.register(keen, e2), registration.AttendanceLate)
	fx.attend(fx.register(casual, e1), registration.AttendanceAbsent)
	fx.register(casual, e2)

	rep := generate[ParticipationReport](t, KindStudentParticipation, fx, Filter{})

	require.Len(t, rep.Students, 2)
	assert.Equal(t, keen.ID, rep.Students[0].ID)
	assert.Equal(t, 2, rep.Students[0].EventsAttended)
	assert.Equal(t, 100.0, *rep.Students[0].AttendanceRate)

	assert.Equal(t, casual.ID, rep.Students[1].ID)
	assert.Equal(t, 2, rep.Students[1].TotalRegistrations)
	assert.Equal(t, 1, rep.Students[1].TotalAttendance)
	assert.Equal(t, 0.0, *rep.Students[1].AttendanceRate)
	assert.Equal(t, "North", rep.Students[1].CollegeName)

	assert.Len(t, rep.TopStudents, 2)
}

func TestFeedbackSummary_AveragesAndBuckets(t *testing.T) {
	fx := newFixture()
	c := fx.college("North")
	rated := fx.event(c, "rated", "talk", 10)
	fx.event(c, "silent", "talk", 10)

	for i, rating := range []int{5, 4, 4} {
		r := fx.register(fx.student(c, fmt.Sprintf("r%d", i)), rated)
		fx.attend(r, registration.AttendancePresent)
		fx.rate(r, rating)
	}

	rows := generate[[]FeedbackRow](t, KindFeedbackSummary, fx, Filter{})

	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].TotalFeedback)
	assert.Equal(t, 4.33, rows[0].AverageRating)
	assert.Equal(t, [5]int{0, 0, 0, 2, 1}, rows[0].RatingCounts)

	dist := generate[Distribution](t, KindFeedbackDistribution, fx, Filter{})
	assert.Equal(t, 3, dist.TotalFeedback)
	require.Len(t, dist.Ratings, 5)
	assert.Equal(t, 5, dist.Ratings[0].Rating)
	assert.Equal(t, 33.33, *dist.Ratings[0].Percentage)
	assert.Equal(t, 66.67, *dist.Ratings[1].Percentage)
}

func TestCollegePerformance_GuardsEmptyColleges(t *testing.T) {
	fx := newFixture()
	north := fx.college("North")
	fx.college("South")
	e := fx.event(north, "e", "talk", 4)
	r := fx.register(fx.student(north, "a"), e)
	fx.attend(r, registration.AttendancePresent)
	fx.rate(r, 3)
	fx.register(fx.student(north, "b"), e)

	rows := generate[[]CollegeRow](t, KindCollegePerformance, fx, Filter{})

	require.Len(t, rows, 2)
	assert.Equal(t, "North", rows[0].Name)
	assert.Equal(t, 2, rows[0].TotalStudents)
	assert.Equal(t, 2, rows[0].TotalRegistrations)
	assert.Equal(t, 50.0, *rows[0].AttendanceRate)
	assert.Equal(t, 3.0, *rows[0].AverageRating)

	assert.Equal(t, "South", rows[1].Name)
	assert.Nil(t, rows[1].AttendanceRate)
	assert.Nil(t, rows[1].AverageRating)
	assert.Nil(t, rows[1].AverageRegistrationsPerEvent)

	eng := generate[[]EngagementRow](t, KindCollegeEngagement, fx, Filter{})
	assert.Equal(t, "North", eng[0].Name)
}

func TestSystemOverview_Totals(t *testing.T) {
	fx := newFixture()
	c := fx.college("North")
	e := fx.event(c, "soon", "talk", 10)
	old := fx.event(c, "old", "talk", 10)
	old.StartTime = now.AddDate(0, -3, 0)
	old.EndTime = old.StartTime.Add(time.Hour)
	old.Status = event.StatusCompleted
	fx.fill(c, e, 4)

	ov := generate[Overview](t, KindSystemOverview, fx, Filter{})

	assert.Equal(t, 1, ov.TotalColleges)
	assert.Equal(t, 4, ov.TotalStudents)
	assert.Equal(t, 2, ov.TotalEvents)
	assert.Equal(t, 1, ov.ActiveEvents)
	assert.Equal(t, 1, ov.RecentEvents30Days)
	assert.Equal(t, 2.0, *ov.AverageRegistrationsPerEvent)
	assert.Nil(t, ov.AverageRating)
}

func TestAttendanceTrends_GroupsByDay(t *testing.T) {
	fx := newFixture()
	c := fx.college("North")
	a := fx.event(c, "a", "talk", 10)
	b := fx.event(c, "b", "talk", 10)
	b.StartTime = a.StartTime.Add(time.Hour)
	stale := fx.event(c, "stale", "talk", 10)
	stale.StartTime = now.AddDate(0, 0, -40)

	fx.attend(fx.register(fx.student(c, "x"), a), registration.AttendancePresent)
	fx.register(fx.student(c, "y"), b)

	rows := generate[[]TrendRow](t, KindAttendanceTrends, fx, Filter{})

	require.Len(t, rows, 1)
	assert.Equal(t, a.StartTime.Format(time.DateOnly), rows[0].Date)
	assert.Equal(t, 2, rows[0].TotalEvents)
	assert.Equal(t, 50.0, *rows[0].DailyAttendanceRate)
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	fx := newFixture()

	_, err := Generate("nope", fx.snap, Filter{})
	assert.True(t, shared.IsInvalidInput(err))

	_, err = Generate(KindEventPopularity, fx.snap, Filter{Limit: -1})
	assert.True(t, shared.IsInvalidInput(err))

	_, err = Generate(KindEventPopularity, fx.snap, Filter{Status: "archived"})
	assert.True(t, shared.IsInvalidInput(err))
}
