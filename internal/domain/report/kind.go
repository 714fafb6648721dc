package report

import (
	"fmt"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

// Kind names a report.
type Kind string

const (
	KindEventPopularity      Kind = "event_popularity"
	KindEventTypeBreakdown   Kind = "event_type_breakdown"
	KindStudentParticipation Kind = "student_participation"
	KindAttendanceSummary    Kind = "attendance_summary"
	KindFeedbackSummary      Kind = "feedback_summary"
	KindCollegePerformance   Kind = "college_performance"
	KindSystemOverview       Kind = "system_overview"

	KindAttendanceTrends     Kind = "attendance_trends"
	KindFeedbackDistribution Kind = "feedback_distribution"
	KindCollegeEngagement    Kind = "college_engagement"
)

// Kinds lists every supported report in a stable order.
var Kinds = []Kind{
	KindEventPopularity,
	KindEventTypeBreakdown,
	KindStudentParticipation,
	KindAttendanceSummary,
	KindFeedbackSummary,
	KindCollegePerformance,
	KindSystemOverview,
	KindAttendanceTrends,
	KindFeedbackDistribution,
	KindCollegeEngagement,
}

// ParseKind validates a textual kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", shared.WrapError("report", "ParseKind", shared.ErrInvalidInput, fmt.Sprintf("unknown report kind %q", s), shared.ErrUnknownReportKind)
}

// Generate computes the report of the given kind from s.
func Generate(kind Kind, s *Snapshot, f Filter) (any, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	ix := newIndex(s)

	switch kind {
	case KindEventPopularity:
		return eventPopularity(ix, f), nil
	case KindEventTypeBreakdown:
		return eventTypeBreakdown(ix, f), nil
	case KindStudentParticipation:
		return studentParticipation(ix, f), nil
	case KindAttendanceSummary:
		return attendanceSummary(ix, f), nil
	case KindFeedbackSummary:
		return feedbackSummary(ix, f), nil
	case KindCollegePerformance:
		return collegePerformance(ix, f), nil
	case KindSystemOverview:
		return systemOverview(ix, f), nil
	case KindAttendanceTrends:
		return attendanceTrends(ix, f), nil
	case KindFeedbackDistribution:
		return feedbackDistribution(ix, f), nil
	case KindCollegeEngagement:
		return collegeEngagement(ix, f), nil
	}
	return nil, shared.WrapError("report", "Generate", shared.ErrInvalidInput, "unknown report kind", fmt.Errorf("%q", kind))
}
