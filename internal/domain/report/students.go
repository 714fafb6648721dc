package report

import (
	"cmp"
	"slices"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

const (
	defaultParticipationLimit = 20
	topStudentsLimit          = 3
)

// ParticipationRow summarizes one student's engagement.
type ParticipationRow struct {
	ID                 string   `json:"id"`
	StudentID          string   `json:"student_id"`
	Name               string   `json:"name"`
	Email              string   `json:"email"`
	CollegeID          string   `json:"college_id"`
	CollegeName        string   `json:"college_name"`
	TotalRegistrations int      `json:"total_registrations"`
	TotalAttendance    int      `json:"total_attendance"`
	EventsAttended     int      `json:"events_attended"`
	AttendanceRate     *float64 `json:"attendance_rate"`
}

// ParticipationReport is the student_participation result.
type ParticipationReport struct {
	Students    []ParticipationRow `json:"students"`
	TopStudents []ParticipationRow `json:"top_students"`
}

// studentParticipation counts, per student with at least one registration,
// distinct events registered for, attendance records, and distinct events
// attended (present or late). Students without registrations are left out.
// A college filter picks the students, not their events; event filters
// restrict which registrations count.
func studentParticipation(ix *index, f Filter) ParticipationReport {
	rows := make([]ParticipationRow, 0, len(ix.regsByStudent))
	eventScoped := f.narrowsEvents()

	for _, st := range ix.snap.Students {
		regs := ix.regsByStudent[st.ID]

		registered := make(map[string]struct{}, len(regs))
		attended := make(map[string]struct{}, len(regs))
		records := 0
		for _, r := range regs {
			if _, ok := ix.eventByID[r.EventID]; eventScoped && !ok {
				continue
			}
			registered[r.EventID] = struct{}{}
			a, ok := ix.attByReg[r.ID]
			if !ok {
				continue
			}
			records++
			if a.Status.Qualifies() {
				attended[r.EventID] = struct{}{}
			}
		}

		if len(registered) == 0 {
			continue
		}

		row := ParticipationRow{
			ID:                 st.ID,
			StudentID:          st.StudentID,
			Name:               st.Name,
			Email:              st.Email,
			CollegeID:          st.CollegeID,
			TotalRegistrations: len(registered),
			TotalAttendance:    records,
			EventsAttended:     len(attended),
			AttendanceRate:     shared.Percent(len(attended), len(registered)),
		}
		if c, ok := ix.collegeByID[st.CollegeID]; ok {
			row.CollegeName = c.Name
		}
		rows = append(rows, row)
	}

	slices.SortFunc(rows, func(a, b ParticipationRow) int {
		return cmp.Or(
			cmp.Compare(b.EventsAttended, a.EventsAttended),
			comparePtrDesc(a.AttendanceRate, b.AttendanceRate),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.ID, b.ID),
		)
	})

	rows = truncate(rows, f.limitOr(defaultParticipationLimit))
	return ParticipationReport{
		Students:    rows,
		TopStudents: truncate(slices.Clone(rows), topStudentsLimit),
	}
}
