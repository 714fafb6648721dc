package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// FeedbackRow summarizes ratings for one event.
type FeedbackRow struct {
	EventID       string    `json:"event_id"`
	Title         string    `json:"title"`
	EventType     string    `json:"event_type"`
	StartTime     time.Time `json:"start_time"`
	TotalFeedback int       `json:"total_feedback"`
	AverageRating float64   `json:"average_rating"`

	// RatingCounts[i] is the number of ratings equal to i+1.
	RatingCounts [5]int `json:"rating_counts"`
}

// feedbackSummary covers active and completed events that received at least
// one rating, best average first.
func feedbackSummary(ix *index, f Filter) []FeedbackRow {
	statuses := f.statusesOr(event.StatusActive, event.StatusCompleted)

	rows := make([]FeedbackRow, 0)
	for _, e := range ix.snap.Events {
		if !statuses[e.Status] {
			continue
		}
		t := ix.tally(e)
		if t.feedback == 0 {
			continue
		}
		row := FeedbackRow{
			EventID:       e.ID,
			Title:         e.Title,
			EventType:     e.EventType,
			StartTime:     e.StartTime,
			TotalFeedback: t.feedback,
			AverageRating: shared.Round2(float64(t.ratingSum) / float64(t.feedback)),
		}
		copy(row.RatingCounts[:], t.ratings[1:])
		rows = append(rows, row)
	}

	slices.SortFunc(rows, func(a, b FeedbackRow) int {
		return cmp.Or(
			cmp.Compare(b.AverageRating, a.AverageRating),
			cmp.Compare(b.TotalFeedback, a.TotalFeedback),
			cmp.Compare(a.Title, b.Title),
			cmp.Compare(a.EventID, b.EventID),
		)
	})

	return truncate(rows, f.Limit)
}

// RatingShare is one bucket of the distribution.
type RatingShare struct {
	Rating     int      `json:"rating"`
	Count      int      `json:"count"`
	Percentage *float64 `json:"percentage"`
}

// Distribution is the feedback_distribution result.
type Distribution struct {
	TotalFeedback int           `json:"total_feedback"`
	Ratings       []RatingShare `json:"ratings"`
}

// feedbackDistribution reports every rating value from 5 down to 1, including
// empty buckets. Percentages are relative to feedback within scope.
func feedbackDistribution(ix *index, _ Filter) Distribution {
	var counts [6]int
	total := 0
	for _, e := range ix.snap.Events {
		t := ix.tally(e)
		total += t.feedback
		for r := 1; r <= 5; r++ {
			counts[r] += t.ratings[r]
		}
	}

	d := Distribution{TotalFeedback: total, Ratings: make([]RatingShare, 0, 5)}
	for r := int(shared.MaxRating); r >= int(shared.MinRating); r-- {
		d.Ratings = append(d.Ratings, RatingShare{
			Rating:     r,
			Count:      counts[r],
			Percentage: shared.Percent(counts[r], total),
		})
	}
	return d
}
