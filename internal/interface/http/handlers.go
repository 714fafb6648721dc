package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-hub/campus-event-hub/internal/application/command"
	"github.com/campus-hub/campus-event-hub/internal/application/query"
	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/report"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(c *gin.Context) {
	status := s.deps.Health.Check(c.Request.Context())
	if !status.Healthy {
		writeJSON(c, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(c, http.StatusOK, status)
}

func (s *Server) handleLive(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"status": "alive", "uptime": s.Uptime().Round(time.Second).String()})
}

// ══════════════════════════════════════════════════════════════════════════════
// COLLEGES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCreateCollege(c *gin.Context) {
	var cmd command.CreateCollegeCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		bindError(c, err)
		return
	}
	col, err := s.deps.Colleges.Create(c.Request.Context(), cmd)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toCollegeDTO(col))
}

func (s *Server) handleListColleges(c *gin.Context) {
	p, err := pagination(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	list, err := s.deps.Directory.Colleges(c.Request.Context(), p)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeList(c, mapSlice(list, toCollegeDTO), p)
}

func (s *Server) handleGetCollege(c *gin.Context) {
	col, err := s.deps.Directory.College(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toCollegeDTO(col))
}

func (s *Server) handleUpdateCollege(c *gin.Context) {
	var cmd command.UpdateCollegeCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		bindError(c, err)
		return
	}
	cmd.CollegeID = c.Param("id")
	col, err := s.deps.Colleges.Update(c.Request.Context(), cmd)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toCollegeDTO(col))
}

func (s *Server) handleDeleteCollege(c *gin.Context) {
	sum, err := s.deps.Colleges.Delete(c.Request.Context(), command.DeleteCollegeCommand{CollegeID: c.Param("id")})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, struct {
		CollegeID string                `json:"college_id"`
		Deleted   college.DeleteSummary `json:"deleted"`
	}{c.Param("id"), sum})
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCreateStudent(c *gin.Context) {
	var cmd command.CreateStudentCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		bindError(c, err)
		return
	}
	st, err := s.deps.Students.Create(c.Request.Context(), cmd)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toStudentDTO(st))
}

func (s *Server) handleBulkCreateStudents(c *gin.Context) {
	var cmd command.BulkCreateStudentsCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		bindError(c, err)
		return
	}
	list, err := s.deps.Students.CreateBatch(c.Request.Context(), cmd)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSONWithMeta(c, http.StatusCreated, mapSlice(list, toStudentDTO), &ResponseMeta{Count: len(list)})
}

func (s *Server) handleSearchStudents(c *gin.Context) {
	p, err := pagination(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	year, err := intParam(c, "year", 0)
	if err != nil {
		s.writeError(c, err)
		return
	}
	list, err := s.deps.Directory.SearchStudents(c.Request.Context(), query.SearchStudentsQuery{
		CollegeID: c.Query("college_id"),
		Year:      year,
		Query:     c.Query("q"),
		Page:      p,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeList(c, mapSlice(list, toStudentDTO), p)
}

func (s *Server) handleGetStudent(c *gin.Context) {
	st, err := s.deps.Directory.Student(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toStudentDTO(st))
}

func (s *Server) handleUpdateStudent(c *gin.Context) {
	var cmd command.UpdateStudentCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		bindError(c, err)
		return
	}
	cmd.ID = c.Param("id")
	st, err := s.deps.Students.Update(c.Request.Context(), cmd)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toStudentDTO(st))
}

func (s *Server) handleStudentRegistrations(c *gin.Context) {
	p, err := pagination(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	views, err := s.deps.Directory.StudentRegistrations(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeList(c, mapSlice(views, toRegistrationViewDTO), p)
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCreateEvent(c *gin.Context) {
	var cmd command.CreateEventCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		bindError(c, err)
		return
	}
	e, err := s.deps.Events.Create(c.Request.Context(), cmd)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toEventDTO(e))
}

func (s *Server) handleSearchEvents(c *gin.Context) {
	p, err := pagination(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	from, err := timeParam(c, "from", false)
	if err != nil {
		s.writeError(c, err)
		return
	}
	until, err := timeParam(c, "until", true)
	if err != nil {
		s.writeError(c, err)
		return
	}
	upcoming, _ := strconv.ParseBool(c.Query("upcoming"))

	list, err := s.deps.Directory.SearchEvents(c.Request.Context(), query.SearchEventsQuery{
		CollegeID: c.Query("college_id"),
		EventType: c.Query("event_type"),
		Status:    event.Status(c.Query("status")),
		Query:     c.Query("q"),
		From:      from,
		Until:     until,
		Upcoming:  upcoming,
		Now:       s.now(),
		Page:      p,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeList(c, mapSlice(list, toEventDTO), p)
}

func (s *Server) handleGetEvent(c *gin.Context) {
	e, err := s.deps.Directory.Event(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toEventDTO(e))
}

func (s *Server) handleUpdateEvent(c *gin.Context) {
	var cmd command.UpdateEventCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		bindError(c, err)
		return
	}
	cmd.EventID = c.Param("id")
	e, err := s.deps.Events.Update(c.Request.Context(), cmd)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toEventDTO(e))
}

func (s *Server) handleCancelEvent(c *gin.Context) {
	e, err := s.deps.Events.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toEventDTO(e))
}

func (s *Server) handleCompleteEvent(c *gin.Context) {
	e, err := s.deps.Events.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toEventDTO(e))
}

func (s *Server) handleEventRegistrations(c *gin.Context) {
	p, err := pagination(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	views, err := s.deps.Directory.EventRegistrations(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeList(c, mapSlice(views, toRegistrationViewDTO), p)
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATIONS, ATTENDANCE & FEEDBACK
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRegister(c *gin.Context) {
	var cmd command.RegisterCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		bindError(c, err)
		return
	}
	res, err := s.deps.Register.Handle(c.Request.Context(), cmd)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toRegisterDTO(res))
}

func (s *Server) handleGetRegistration(c *gin.Context) {
	v, err := s.deps.Directory.Registration(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toRegistrationViewDTO(*v))
}

func (s *Server) handleListRegistrations(c *gin.Context) {
	q, err := activityQuery(c, false)
	if err != nil {
		s.writeError(c, err)
		return
	}
	views, err := s.deps.Directory.ListRegistrations(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeList(c, mapSlice(views, toRegistrationViewDTO), q.Page)
}

func (s *Server) handleListAttendance(c *gin.Context) {
	q, err := activityQuery(c, true)
	if err != nil {
		s.writeError(c, err)
		return
	}
	list, err := s.deps.Directory.ListAttendance(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeList(c, mapSlice(list, toAttendanceDTO), q.Page)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	q, err := activityQuery(c, false)
	if err != nil {
		s.writeError(c, err)
		return
	}
	list, err := s.deps.Directory.ListFeedback(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeList(c, mapSlice(list, toFeedbackDTO), q.Page)
}

func (s *Server) handleCancelRegistration(c *gin.Context) {
	res, err := s.deps.Cancel.Handle(c.Request.Context(), command.CancelRegistrationCommand{RegistrationID: c.Param("id")})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, struct {
		Registration         registrationDTO `json:"registration"`
		CurrentRegistrations int             `json:"current_registrations"`
	}{toRegistrationDTO(res.Registration), res.CurrentRegistrations})
}

func (s *Server) handleCheckIn(c *gin.Context) {
	res, err := s.deps.Attendance.CheckIn(c.Request.Context(), command.CheckInCommand{RegistrationID: c.Param("id")})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, attendanceResultDTO{EventID: res.EventID, Attendance: toAttendanceDTO(res.Attendance)})
}

func (s *Server) handleCheckOut(c *gin.Context) {
	res, err := s.deps.Attendance.CheckOut(c.Request.Context(), command.CheckOutCommand{RegistrationID: c.Param("id")})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, attendanceResultDTO{EventID: res.EventID, Attendance: toAttendanceDTO(res.Attendance)})
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	var cmd command.SubmitFeedbackCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		bindError(c, err)
		return
	}
	cmd.RegistrationID = c.Param("id")
	f, err := s.deps.Feedback.Handle(c.Request.Context(), cmd)
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toFeedbackDTO(f))
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORTS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListReportKinds(c *gin.Context) {
	writeJSON(c, http.StatusOK, report.Kinds)
}

func (s *Server) handleGetReport(c *gin.Context) {
	f, err := reportFilter(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	res, err := s.deps.Reports.Handle(c.Request.Context(), query.GetReportQuery{Kind: c.Param("kind"), Filter: f})
	if err != nil {
		s.writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// PARAMETER PARSING
// ══════════════════════════════════════════════════════════════════════════════

func reportFilter(c *gin.Context) (report.Filter, error) {
	var f report.Filter
	var err error

	f.CollegeID = c.Query("college_id")
	f.EventType = c.Query("event_type")
	f.Status = event.Status(c.Query("status"))
	if f.StartDate, err = timeParam(c, "start_date", false); err != nil {
		return f, err
	}
	if f.EndDate, err = timeParam(c, "end_date", true); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(c, "limit", 0); err != nil {
		return f, err
	}
	return f, nil
}

// activityQuery reads the shared listing filters. "status" names the
// attendance status on the attendance listing and the registration status
// everywhere else.
func activityQuery(c *gin.Context, attendanceStatus bool) (query.ActivityQuery, error) {
	var q query.ActivityQuery
	var err error

	q.Filter = registration.ListFilter{
		EventID:   c.Query("event_id"),
		StudentID: c.Query("student_id"),
		CollegeID: c.Query("college_id"),
	}
	if attendanceStatus {
		q.Filter.AttendanceStatus = registration.AttendanceStatus(c.Query("status"))
	} else {
		q.Filter.Status = registration.Status(c.Query("status"))
	}
	if q.Filter.MinRating, err = intParam(c, "min_rating", 0); err != nil {
		return q, err
	}
	if q.Filter.MaxRating, err = intParam(c, "max_rating", 0); err != nil {
		return q, err
	}
	if q.Page, err = pagination(c); err != nil {
		return q, err
	}
	return q, q.Filter.Validate()
}

// timeParam accepts RFC 3339 or a bare date. A bare date used as an upper
// bound covers the whole day.
func timeParam(c *gin.Context, key string, upper bool) (time.Time, error) {
	t, err := timeutil.ParseBound(c.Query(key), upper)
	if err != nil {
		return time.Time{}, shared.InvalidInput("http", "Query", key+" must be RFC 3339 or YYYY-MM-DD")
	}
	return t, nil
}

func intParam(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.InvalidInput("http", "Query", key+" must be an integer")
	}
	return n, nil
}

func pagination(c *gin.Context) (shared.Pagination, error) {
	page, err := intParam(c, "page", 1)
	if err != nil {
		return shared.Pagination{}, err
	}
	size, err := intParam(c, "page_size", shared.DefaultPageSize)
	if err != nil {
		return shared.Pagination{}, err
	}
	if page < 1 || size < 1 {
		return shared.Pagination{}, shared.InvalidInput("http", "Query", "page and page_size must be positive")
	}
	return shared.NewPagination(page, size), nil
}

func writeList[T any](c *gin.Context, items []T, p shared.Pagination) {
	writeJSONWithMeta(c, http.StatusOK, items, &ResponseMeta{
		Page:     max(p.Page, 1),
		PageSize: p.Limit(),
		Count:    len(items),
	})
}
