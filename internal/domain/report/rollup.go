package report

import (
	"cmp"
	"slices"

	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

const recentEventDays = 30

// rollup accumulates event tallies over a set of events.
type rollup struct {
	events      int
	activeCount int
	regs        int
	records     int
	present     int
	late        int
	feedback    int
	ratingSum   int
}

func (ix *index) rollup(events []*event.Event) rollup {
	var r rollup
	for _, e := range events {
		t := ix.tally(e)
		r.events++
		if e.Status == event.StatusActive {
			r.activeCount++
		}
		r.regs += e.CurrentRegistrations
		r.records += t.records
		r.present += t.present
		r.late += t.late
		r.feedback += t.feedback
		r.ratingSum += t.ratingSum
	}
	return r
}

// CollegeRow is the per-college rollup.
type CollegeRow struct {
	CollegeID    string `json:"college_id"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	ContactEmail string `json:"contact_email"`

	TotalStudents                int      `json:"total_students"`
	TotalEvents                  int      `json:"total_events"`
	TotalRegistrations           int      `json:"total_registrations"`
	AverageRegistrationsPerEvent *float64 `json:"average_registrations_per_event"`
	TotalAttendanceRecords       int      `json:"total_attendance_records"`
	PresentCount                 int      `json:"present_count"`
	LateCount                    int      `json:"late_count"`
	AttendanceRate               *float64 `json:"attendance_rate"`
	TotalFeedback                int      `json:"total_feedback"`
	AverageRating                *float64 `json:"average_rating"`
}

// collegePerformance rolls every scoped college's events up into one row,
// ordered by name.
func collegePerformance(ix *index, f Filter) []CollegeRow {
	rows := make([]CollegeRow, 0, len(ix.snap.Colleges))
	for _, c := range ix.snap.Colleges {
		r := ix.rollup(ix.eventsByCollege[c.ID])
		rows = append(rows, CollegeRow{
			CollegeID:                    c.ID,
			Name:                         c.Name,
			Location:                     c.Location,
			ContactEmail:                 c.ContactEmail,
			TotalStudents:                ix.studentsByColl[c.ID],
			TotalEvents:                  r.events,
			TotalRegistrations:           r.regs,
			AverageRegistrationsPerEvent: shared.Ratio(float64(r.regs), r.events),
			TotalAttendanceRecords:       r.records,
			PresentCount:                 r.present,
			LateCount:                    r.late,
			AttendanceRate:               shared.Percent(r.present+r.late, r.regs),
			TotalFeedback:                r.feedback,
			AverageRating:                shared.Ratio(float64(r.ratingSum), r.feedback),
		})
	}

	slices.SortFunc(rows, func(a, b CollegeRow) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.CollegeID, b.CollegeID))
	})

	return truncate(rows, f.Limit)
}

// EngagementRow is the college_engagement projection of CollegeRow.
type EngagementRow struct {
	CollegeID          string   `json:"college_id"`
	Name               string   `json:"name"`
	TotalStudents      int      `json:"total_students"`
	TotalRegistrations int      `json:"total_registrations"`
	TotalAttendance    int      `json:"total_attendance"`
	AttendanceRate     *float64 `json:"attendance_rate"`
	AverageRating      *float64 `json:"average_rating"`
}

// collegeEngagement ranks colleges by attendance rate, nil rates last.
func collegeEngagement(ix *index, f Filter) []EngagementRow {
	perf := collegePerformance(ix, Filter{})

	rows := make([]EngagementRow, 0, len(perf))
	for _, p := range perf {
		rows = append(rows, EngagementRow{
			CollegeID:          p.CollegeID,
			Name:               p.Name,
			TotalStudents:      p.TotalStudents,
			TotalRegistrations: p.TotalRegistrations,
			TotalAttendance:    p.PresentCount + p.LateCount,
			AttendanceRate:     p.AttendanceRate,
			AverageRating:      p.AverageRating,
		})
	}

	slices.SortFunc(rows, func(a, b EngagementRow) int {
		return cmp.Or(
			comparePtrDesc(a.AttendanceRate, b.AttendanceRate),
			cmp.Compare(a.Name, b.Name),
		)
	})

	return truncate(rows, f.Limit)
}

// Overview is the system_overview result.
type Overview struct {
	TotalColleges                int      `json:"total_colleges"`
	TotalStudents                int      `json:"total_students"`
	TotalEvents                  int      `json:"total_events"`
	ActiveEvents                 int      `json:"active_events"`
	RecentEvents30Days           int      `json:"recent_events_30_days"`
	TotalRegistrations           int      `json:"total_registrations"`
	AverageRegistrationsPerEvent *float64 `json:"average_registrations_per_event"`
	AttendanceRate               *float64 `json:"attendance_rate"`
	TotalFeedback                int      `json:"total_feedback"`
	AverageRating                *float64 `json:"average_rating"`
}

// systemOverview totals everything in scope.
func systemOverview(ix *index, _ Filter) Overview {
	r := ix.rollup(ix.snap.Events)

	window := shared.LastNDays(ix.snap.TakenAt, recentEventDays)
	recent := 0
	for _, e := range ix.snap.Events {
		if !e.StartTime.Before(window.From) {
			recent++
		}
	}

	return Overview{
		TotalColleges:                len(ix.snap.Colleges),
		TotalStudents:                len(ix.snap.Students),
		TotalEvents:                  r.events,
		ActiveEvents:                 r.activeCount,
		RecentEvents30Days:           recent,
		TotalRegistrations:           r.regs,
		AverageRegistrationsPerEvent: shared.Ratio(float64(r.regs), r.events),
		AttendanceRate:               shared.Percent(r.present+r.late, r.regs),
		TotalFeedback:                r.feedback,
		AverageRating:                shared.Ratio(float64(r.ratingSum), r.feedback),
	}
}
