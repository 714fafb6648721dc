package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/pkg/timeutil"
)

// trendWindowDays bounds attendance_trends when no date range is given.
const trendWindowDays = 30

// AttendanceRow is one event's attendance breakdown.
type AttendanceRow struct {
	EventID                string    `json:"event_id"`
	Title                  string    `json:"title"`
	EventType              string    `json:"event_type"`
	StartTime              time.Time `json:"start_time"`
	Status                 string    `json:"status"`
	MaxCapacity            int       `json:"max_capacity"`
	CurrentRegistrations   int       `json:"current_registrations"`
	TotalAttendanceRecords int       `json:"total_attendance_records"`
	PresentCount           int       `json:"present_count"`
	LateCount              int       `json:"late_count"`
	AbsentCount            int       `json:"absent_count"`

	// AttendancePercentage is nil when the event has no live registrations.
	AttendancePercentage *float64 `json:"attendance_percentage"`
}

// attendanceSummary reports active and completed events. The percentage and
// its denominator come from the same snapshot row.
func attendanceSummary(ix *index, f Filter) []AttendanceRow {
	statuses := f.statusesOr(event.StatusActive, event.StatusCompleted)

	rows := make([]AttendanceRow, 0, len(ix.snap.Events))
	for _, e := range ix.snap.Events {
		if !statuses[e.Status] {
			continue
		}
		t := ix.tally(e)
		rows = append(rows, AttendanceRow{
			EventID:                e.ID,
			Title:                  e.Title,
			EventType:              e.EventType,
			StartTime:              e.StartTime,
			Status:                 string(e.Status),
			MaxCapacity:            e.MaxCapacity,
			CurrentRegistrations:   e.CurrentRegistrations,
			TotalAttendanceRecords: t.records,
			PresentCount:           t.present,
			LateCount:              t.late,
			AbsentCount:            t.absent,
			AttendancePercentage:   shared.Percent(t.attended(), e.CurrentRegistrations),
		})
	}

	slices.SortFunc(rows, func(a, b AttendanceRow) int {
		return cmp.Or(
			comparePtrDesc(a.AttendancePercentage, b.AttendancePercentage),
			cmp.Compare(a.Title, b.Title),
			cmp.Compare(a.EventID, b.EventID),
		)
	})

	return truncate(rows, f.Limit)
}

// TrendRow aggregates events starting on one UTC day.
type TrendRow struct {
	Date                string   `json:"date"`
	TotalEvents         int      `json:"total_events"`
	TotalRegistrations  int      `json:"total_registrations"`
	TotalPresent        int      `json:"total_present"`
	TotalLate           int      `json:"total_late"`
	DailyAttendanceRate *float64 `json:"daily_attendance_rate"`
}

// attendanceTrends groups events by start day, newest first. Without an
// explicit start_date only the last 30 days before the snapshot are covered.
func attendanceTrends(ix *index, f Filter) []TrendRow {
	from := f.StartDate
	if from.IsZero() {
		from = shared.LastNDays(ix.snap.TakenAt, trendWindowDays).From
	}

	type acc struct {
		events, regs, present, late int
	}
	byDay := make(map[string]*acc)
	for _, e := range ix.snap.Events {
		if e.StartTime.Before(from) {
			continue
		}
		day := timeutil.DayKey(e.StartTime)
		a, ok := byDay[day]
		if !ok {
			a = &acc{}
			byDay[day] = a
		}
		t := ix.tally(e)
		a.events++
		a.regs += e.CurrentRegistrations
		a.present += t.present
		a.late += t.late
	}

	rows := make([]TrendRow, 0, len(byDay))
	for day, a := range byDay {
		rows = append(rows, TrendRow{
			Date:                day,
			TotalEvents:         a.events,
			TotalRegistrations:  a.regs,
			TotalPresent:        a.present,
			TotalLate:           a.late,
			DailyAttendanceRate: shared.Percent(a.present+a.late, a.regs),
		})
	}

	slices.SortFunc(rows, func(a, b TrendRow) int {
		return cmp.Compare(b.Date, a.Date)
	})

	return truncate(rows, f.Limit)
}
