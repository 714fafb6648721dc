package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/report"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/persistence/memory"
)

// seedTwoColleges builds North (c1) and South (c2). South's student s2 only
// ever registers for North's workshop and attends it.
//
//	e1  c1  "Workshop"  starts now+1h
//	e2  c1  talk        starts now+48h
//	e3  c2  talk        starts now+1h
func seedTwoColleges(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New(memory.WithClock(func() time.Time { return now }))

	for _, c := range []struct{ id, name string }{{"c1", "North"}, {"c2", "South"}} {
		col, err := college.New(c.id, c.name, "", "", now)
		require.NoError(t, err)
		require.NoError(t, s.Colleges().Create(ctx, col))
	}

	for _, e := range []struct {
		id, college, title, typ string
		start                   time.Duration
	}{
		{"e1", "c1", "Go Workshop", "Workshop", time.Hour},
		{"e2", "c1", "Later Talk", "talk", 48 * time.Hour},
		{"e3", "c2", "South Talk", "talk", time.Hour},
	} {
		ev, err := event.New(event.NewEventParams{
			ID: e.id, CollegeID: e.college, Title: e.title, EventType: e.typ,
			StartTime: now.Add(e.start), EndTime: now.Add(e.start + time.Hour), MaxCapacity: 10,
		}, now)
		require.NoError(t, err)
		require.NoError(t, s.Events().Create(ctx, ev))
	}

	for _, st := range []struct{ id, college, name string }{{"s1", "c1", "Ada"}, {"s2", "c2", "Bob"}} {
		stu, err := student.New(student.NewStudentParams{
			ID: st.id, CollegeID: st.college, StudentID: "R-" + st.id, Name: st.name, Email: st.id + "@x.edu",
		}, now)
		require.NoError(t, err)
		require.NoError(t, s.Students().Create(ctx, stu))
	}

	_, err := s.Registrations().Reserve(ctx, registration.New("r1", "s2", "e1", now), 0)
	require.NoError(t, err)
	_, err = s.Registrations().Reserve(ctx, registration.New("r2", "s1", "e2", now), 0)
	require.NoError(t, err)

	checkIn := now.Add(time.Hour)
	require.NoError(t, s.Attendance().Save(ctx, &registration.Attendance{
		ID: "a1", RegistrationID: "r1", Status: registration.AttendancePresent, CheckInTime: &checkIn,
	}, 0))
	return s
}

func participation(t *testing.T, h *GetReportHandler, f report.Filter) report.ParticipationReport {
	t.Helper()
	res, err := h.Handle(context.Background(), GetReportQuery{Kind: string(report.KindStudentParticipation), Filter: f})
	require.NoError(t, err)
	out, ok := res.Data.(report.ParticipationReport)
	require.True(t, ok, "got %T", res.Data)
	return out
}

func popularityIDs(t *testing.T, h *GetReportHandler, f report.Filter) []string {
	t.Helper()
	res, err := h.Handle(context.Background(), GetReportQuery{Kind: string(report.KindEventPopularity), Filter: f})
	require.NoError(t, err)
	rows, ok := res.Data.([]report.PopularityRow)
	require.True(t, ok, "got %T", res.Data)
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.EventID)
	}
	return ids
}

func TestStudentParticipation_CollegeScopeFollowsStudents(t *testing.T) {
	h := NewGetReportHandler(seedTwoColleges(t))

	south := participation(t, h, report.Filter{CollegeID: "c2"})
	require.Len(t, south.Students, 1)
	row := south.Students[0]
	assert.Equal(t, "s2", row.ID)
	assert.Equal(t, "South", row.CollegeName)
	assert.Equal(t, 1, row.TotalRegistrations)
	assert.Equal(t, 1, row.EventsAttended)
	require.NotNil(t, row.AttendanceRate)
	assert.InDelta(t, 100.0, *row.AttendanceRate, 1e-9)

	north := participation(t, h, report.Filter{CollegeID: "c1"})
	require.Len(t, north.Students, 1, "outside students on North's events are not North's students")
	assert.Equal(t, "s1", north.Students[0].ID)

	all := participation(t, h, report.Filter{})
	assert.Len(t, all.Students, 2)

	// Event options still narrow which registrations count.
	talks := participation(t, h, report.Filter{CollegeID: "c2", EventType: "talk"})
	assert.Empty(t, talks.Students)
}

func TestCollegeScopedSnapshot_KeepsStudentsOutsideRegistrations(t *testing.T) {
	s := seedTwoColleges(t)

	snap, err := s.LoadSnapshot(context.Background(), report.Filter{CollegeID: "c2"}.Scope())
	require.NoError(t, err)

	require.Len(t, snap.Events, 1)
	assert.Equal(t, "e3", snap.Events[0].ID)
	require.Len(t, snap.Registrations, 1)
	assert.Equal(t, "r1", snap.Registrations[0].ID)
	require.Len(t, snap.Attendance, 1)

	// The North event itself stays out of South's event-based reports.
	h := NewGetReportHandler(s)
	assert.Equal(t, []string{"e3"}, popularityIDs(t, h, report.Filter{CollegeID: "c2"}))
}

func TestReports_EventTypeIsCaseInsensitive(t *testing.T) {
	s := seedTwoColleges(t)
	h := NewGetReportHandler(s)

	for _, typ := range []string{"Workshop", "workshop", "  WORKSHOP "} {
		assert.Equal(t, []string{"e1"}, popularityIDs(t, h, report.Filter{EventType: typ}), typ)
	}

	d := NewDirectory(s.Colleges(), s.Students(), s.Events(), s.Registrations(), s.Attendance(), s.Feedback())
	events, err := d.SearchEvents(context.Background(), SearchEventsQuery{EventType: "Workshop", Page: shared.DefaultPagination()})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)
}

func TestReports_DateRangeThroughSnapshot(t *testing.T) {
	h := NewGetReportHandler(seedTwoColleges(t))

	tests := []struct {
		name   string
		filter report.Filter
		want   []string
	}{
		{"start bound", report.Filter{StartDate: now.Add(24 * time.Hour)}, []string{"e2"}},
		{"end bound inclusive", report.Filter{EndDate: now.Add(2 * time.Hour)}, []string{"e1", "e3"}},
		{"both bounds with college", report.Filter{CollegeID: "c1", StartDate: now, EndDate: now.Add(3 * time.Hour)}, []string{"e1"}},
		{"empty window", report.Filter{StartDate: now.Add(72 * time.Hour)}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, popularityIDs(t, h, tt.filter))
		})
	}
}
