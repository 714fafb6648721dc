package report

import (
	"context"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
)

// Snapshot is a consistent, scoped copy of store contents. Registrations cover
// the scoped events and, when the student scope is narrowed, every
// registration of a scoped student whatever college runs the event. Attendance
// and feedback follow the registrations.
type Snapshot struct {
	TakenAt       time.Time
	Colleges      []*college.College
	Students      []*student.Student
	Events        []*event.Event
	Registrations []*registration.Registration
	Attendance    []*registration.Attendance
	Feedback      []*registration.Feedback
}

// SnapshotSource loads snapshots. Implementations must read every slice from
// the same point in time.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, scope Scope) (*Snapshot, error)
}

// index joins snapshot rows once so each report walks maps instead of slices.
type index struct {
	snap *Snapshot

	collegeByID     map[string]*college.College
	studentByID     map[string]*student.Student
	eventByID       map[string]*event.Event
	regsByEvent     map[string][]*registration.Registration // scoped events only
	regsByStudent   map[string][]*registration.Registration // may reach outside events
	attByReg        map[string]*registration.Attendance
	feedbackByReg   map[string]*registration.Feedback
	studentsByColl  map[string]int
	eventsByCollege map[string][]*event.Event
}

func newIndex(s *Snapshot) *index {
	ix := &index{
		snap:            s,
		collegeByID:     make(map[string]*college.College, len(s.Colleges)),
		studentByID:     make(map[string]*student.Student, len(s.Students)),
		eventByID:       make(map[string]*event.Event, len(s.Events)),
		regsByEvent:     make(map[string][]*registration.Registration),
		regsByStudent:   make(map[string][]*registration.Registration),
		attByReg:        make(map[string]*registration.Attendance, len(s.Attendance)),
		feedbackByReg:   make(map[string]*registration.Feedback, len(s.Feedback)),
		studentsByColl:  make(map[string]int),
		eventsByCollege: make(map[string][]*event.Event),
	}
	for _, c := range s.Colleges {
		ix.collegeByID[c.ID] = c
	}
	for _, st := range s.Students {
		ix.studentByID[st.ID] = st
		ix.studentsByColl[st.CollegeID]++
	}
	for _, e := range s.Events {
		ix.eventByID[e.ID] = e
		ix.eventsByCollege[e.CollegeID] = append(ix.eventsByCollege[e.CollegeID], e)
	}
	for _, r := range s.Registrations {
		ix.regsByStudent[r.StudentID] = append(ix.regsByStudent[r.StudentID], r)
		if _, ok := ix.eventByID[r.EventID]; ok {
			ix.regsByEvent[r.EventID] = append(ix.regsByEvent[r.EventID], r)
		}
	}
	for _, a := range s.Attendance {
		ix.attByReg[a.RegistrationID] = a
	}
	for _, f := range s.Feedback {
		ix.feedbackByReg[f.RegistrationID] = f
	}
	return ix
}

// eventTally aggregates one event's registrations. Attendance is counted on
// live registrations only so it shares a denominator with the counter;
// feedback is historical and counted on every row.
type eventTally struct {
	totalRows int // all registration rows, cancelled included
	records   int
	present   int
	late      int
	absent    int
	feedback  int
	ratingSum int
	ratings   [6]int
}

func (ix *index) tally(e *event.Event) eventTally {
	var t eventTally
	for _, r := range ix.regsByEvent[e.ID] {
		t.totalRows++
		if f, ok := ix.feedbackByReg[r.ID]; ok {
			t.feedback++
			t.ratingSum += f.Rating.Int()
			if f.Rating.IsValid() {
				t.ratings[f.Rating]++
			}
		}
		if !r.IsLive() {
			continue
		}
		if a, ok := ix.attByReg[r.ID]; ok {
			t.records++
			switch a.Status {
			case registration.AttendancePresent:
				t.present++
			case registration.AttendanceLate:
				t.late++
			default:
				t.absent++
			}
		}
	}
	return t
}

func (t eventTally) attended() int { return t.present + t.late }
