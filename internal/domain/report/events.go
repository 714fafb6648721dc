package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

const defaultPopularityLimit = 10

// PopularityRow is one event in the popularity ranking.
type PopularityRow struct {
	EventID                string    `json:"event_id"`
	CollegeID              string    `json:"college_id"`
	Title                  string    `json:"title"`
	EventType              string    `json:"event_type"`
	StartTime              time.Time `json:"start_time"`
	MaxCapacity            int       `json:"max_capacity"`
	CurrentRegistrations   int       `json:"current_registrations"`
	TotalRegistrations     int       `json:"total_registrations"`
	RegistrationPercentage float64   `json:"registration_percentage"`
}

// eventPopularity ranks active events by registration rows (cancelled
// included), then by live count, then title.
func eventPopularity(ix *index, f Filter) []PopularityRow {
	statuses := f.statusesOr(event.StatusActive)

	rows := make([]PopularityRow, 0, len(ix.snap.Events))
	for _, e := range ix.snap.Events {
		if !statuses[e.Status] {
			continue
		}
		t := ix.tally(e)
		rows = append(rows, PopularityRow{
			EventID:                e.ID,
			CollegeID:              e.CollegeID,
			Title:                  e.Title,
			EventType:              e.EventType,
			StartTime:              e.StartTime,
			MaxCapacity:            e.MaxCapacity,
			CurrentRegistrations:   e.CurrentRegistrations,
			TotalRegistrations:     t.totalRows,
			RegistrationPercentage: e.FillPercent(),
		})
	}

	slices.SortFunc(rows, func(a, b PopularityRow) int {
		return cmp.Or(
			cmp.Compare(b.TotalRegistrations, a.TotalRegistrations),
			cmp.Compare(b.CurrentRegistrations, a.CurrentRegistrations),
			cmp.Compare(a.Title, b.Title),
			cmp.Compare(a.EventID, b.EventID),
		)
	})

	return truncate(rows, f.limitOr(defaultPopularityLimit))
}

// TypeBreakdownRow aggregates active events of one type.
type TypeBreakdownRow struct {
	EventType                 string  `json:"event_type"`
	TotalEvents               int     `json:"total_events"`
	TotalRegistrations        int     `json:"total_registrations"`
	AvgRegistrations          float64 `json:"avg_registrations"`
	AvgRegistrationPercentage float64 `json:"avg_registration_percentage"`
}

// eventTypeBreakdown groups active events by type. Rows only exist for types
// with at least one event, so averages never divide by zero.
func eventTypeBreakdown(ix *index, f Filter) []TypeBreakdownRow {
	statuses := f.statusesOr(event.StatusActive)

	type acc struct {
		events  int
		regs    int
		fillSum float64
	}
	byType := make(map[string]*acc)
	for _, e := range ix.snap.Events {
		if !statuses[e.Status] {
			continue
		}
		a, ok := byType[e.EventType]
		if !ok {
			a = &acc{}
			byType[e.EventType] = a
		}
		a.events++
		a.regs += e.CurrentRegistrations
		a.fillSum += float64(e.CurrentRegistrations) / float64(e.MaxCapacity) * 100
	}

	rows := make([]TypeBreakdownRow, 0, len(byType))
	for typ, a := range byType {
		rows = append(rows, TypeBreakdownRow{
			EventType:                 typ,
			TotalEvents:               a.events,
			TotalRegistrations:        a.regs,
			AvgRegistrations:          shared.Round2(float64(a.regs) / float64(a.events)),
			AvgRegistrationPercentage: shared.Round2(a.fillSum / float64(a.events)),
		})
	}

	slices.SortFunc(rows, func(a, b TypeBreakdownRow) int {
		return cmp.Or(
			cmp.Compare(b.TotalRegistrations, a.TotalRegistrations),
			cmp.Compare(a.EventType, b.EventType),
		)
	})

	return truncate(rows, f.Limit)
}

// truncate caps rows at n; n <= 0 means no cap.
func truncate[T any](rows []T, n int) []T {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}

// comparePtrDesc orders non-nil values descending with nils last.
func comparePtrDesc(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*b, *a)
}
