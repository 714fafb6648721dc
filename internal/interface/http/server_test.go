package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/campus-event-hub/internal/application/command"
	"github.com/campus-hub/campus-event-hub/internal/application/query"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/metrics"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/persistence/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var now = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

type testAPI struct {
	t       *testing.T
	handler http.Handler
	metrics *metrics.Metrics
}

func newTestAPI(t *testing.T, cfg Config) *testAPI {
	t.Helper()

	var seq atomic.Int64
	rt := command.Runtime{
		Now:   func() time.Time { return now },
		NewID: func() string { return fmt.Sprintf("id-%d", seq.Add(1)) },
	}
	engine := command.RegisterHandlerConfig{MaxAttempts: 10, InitialDelay: time.Microsecond, MaxDelay: time.Millisecond}
	s := memory.New(memory.WithClock(func() time.Time { return now }))
	m := metrics.New(prometheus.NewRegistry())

	health := NewHealthChecker("test")
	health.AddCheck("store", s)

	srv := NewServer(cfg, Dependencies{
		Colleges:       command.NewCollegeHandler(s.Colleges(), rt),
		Students:       command.NewStudentHandler(s.Students(), rt),
		Events:         command.NewEventHandler(s.Events(), rt, engine),
		Register:       command.NewRegisterHandler(s.Students(), s.Events(), s.Registrations(), rt, engine),
		Cancel:         command.NewCancelRegistrationHandler(s.Registrations(), rt),
		Attendance:     command.NewAttendanceHandler(s.Registrations(), s.Events(), s.Attendance(), rt),
		Feedback:       command.NewSubmitFeedbackHandler(s.Registrations(), s.Attendance(), s.Feedback(), rt),
		Directory:      query.NewDirectory(s.Colleges(), s.Students(), s.Events(), s.Registrations(), s.Attendance(), s.Feedback()),
		Reports:        query.NewGetReportHandler(s, query.WithReportClock(func() time.Time { return now })),
		Health:         health,
		Observer:       m,
		MetricsHandler: m.Handler(),
	})
	srv.now = func() time.Time { return now }

	return &testAPI{t: t, handler: srv.Handler(), metrics: m}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimitRPS = 0
	return cfg
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *ResponseMeta   `json:"meta"`
}

func (a *testAPI) do(method, path string, body any) (int, envelope) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (a *testAPI) id(method, path string, body any) string {
	a.t.Helper()
	code, env := a.do(method, path, body)
	require.Equal(a.t, http.StatusCreated, code, "%s %s: %+v", method, path, env.Error)
	var v struct {
		ID           string `json:"id"`
		Registration struct {
			ID string `json:"id"`
		} `json:"registration"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &v))
	if v.ID != "" {
		return v.ID
	}
	return v.Registration.ID
}

// seed creates a college, n students and one event with the given capacity.
func (a *testAPI) seed(n, capacity int) (collegeID string, studentIDs []string, eventID string) {
	collegeID = a.id(http.MethodPost, "/api/v1/colleges", gin.H{"name": "North", "contact_email": "office@north.edu"})
	for i := 0; i < n; i++ {
		studentIDs = append(studentIDs, a.id(http.MethodPost, "/api/v1/students", gin.H{
			"college_id": collegeID,
			"student_id": fmt.Sprintf("S%03d", i),
			"name":       fmt.Sprintf("Student %d", i),
			"email":      fmt.Sprintf("s%d@north.edu", i),
		}))
	}
	eventID = a.id(http.MethodPost, "/api/v1/events", gin.H{
		"college_id":   collegeID,
		"title":        "Go Workshop",
		"event_type":   "workshop",
		"start_time":   now.Add(time.Hour),
		"end_time":     now.Add(3 * time.Hour),
		"max_capacity": capacity,
	})
	return collegeID, studentIDs, eventID
}

func TestRegistrationLifecycle(t *testing.T) {
	api := newTestAPI(t, testConfig())
	_, students, eventID := api.seed(2, 1)

	regID := api.id(http.MethodPost, "/api/v1/registrations", gin.H{"student_id": students[0], "event_id": eventID})

	code, env := api.do(http.MethodPost, "/api/v1/registrations", gin.H{"student_id": students[1], "event_id": eventID})
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "capacity_exceeded", env.Error.Code)

	code, env = api.do(http.MethodPost, "/api/v1/registrations", gin.H{"student_id": students[0], "event_id": eventID})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", env.Error.Code)

	code, env = api.do(http.MethodPost, "/api/v1/registrations/"+regID+"/feedback", gin.H{"rating": 5})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", env.Error.Code)

	code, env = api.do(http.MethodPost, "/api/v1/registrations/"+regID+"/check-out", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "invalid_state", env.Error.Code)

	code, env = api.do(http.MethodPost, "/api/v1/registrations/"+regID+"/check-in", nil)
	require.Equal(t, http.StatusOK, code)
	var att attendanceResultDTO
	require.NoError(t, json.Unmarshal(env.Data, &att))
	assert.Equal(t, eventID, att.EventID)
	assert.Equal(t, "present", string(att.Attendance.Status))

	code, _ = api.do(http.MethodPost, "/api/v1/registrations/"+regID+"/check-out", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodPost, "/api/v1/registrations/"+regID+"/feedback", gin.H{"rating": 6})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", env.Error.Code)

	code, _ = api.do(http.MethodPost, "/api/v1/registrations/"+regID+"/feedback", gin.H{"rating": 4, "comment": "good"})
	assert.Equal(t, http.StatusCreated, code)

	code, env = api.do(http.MethodGet, "/api/v1/registrations/"+regID, nil)
	require.Equal(t, http.StatusOK, code)
	var view registrationViewDTO
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.NotNil(t, view.Feedback)
	assert.Equal(t, 4, view.Feedback.Rating)
	require.NotNil(t, view.Attendance)
	assert.NotNil(t, view.Attendance.CheckOutTime)

	code, _ = api.do(http.MethodPost, "/api/v1/registrations/"+regID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, code)
	code, env = api.do(http.MethodGet, "/api/v1/events/"+eventID, nil)
	require.Equal(t, http.StatusOK, code)
	var ev eventDTO
	require.NoError(t, json.Unmarshal(env.Data, &ev))
	assert.Equal(t, 0, ev.CurrentRegistrations)
	assert.Equal(t, 1, ev.AvailableSpots)
}

func TestErrorMapping(t *testing.T) {
	api := newTestAPI(t, testConfig())

	code, env := api.do(http.MethodGet, "/api/v1/events/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Error.Code)
	assert.False(t, env.Success)

	code, env = api.do(http.MethodPost, "/api/v1/colleges", gin.H{"name": ""})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", env.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/colleges", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	code, _ = api.do(http.MethodGet, "/api/v1/reports/unknown", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(http.MethodGet, "/api/v1/reports/event_popularity?start_date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(http.MethodGet, "/api/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{shared.ErrEventNotFound, http.StatusNotFound, "not_found"},
		{shared.ErrDuplicateRegistration, http.StatusConflict, "conflict"},
		{shared.ErrEventNotActive, http.StatusUnprocessableEntity, "invalid_state"},
		{shared.ErrEventFull, http.StatusConflict, "capacity_exceeded"},
		{shared.ErrAttendanceRequired, http.StatusForbidden, "forbidden"},
		{shared.ErrInvalidRating, http.StatusBadRequest, "invalid_input"},
		{fmt.Errorf("wrapped: %w", shared.ErrStudentNotFound), http.StatusNotFound, "not_found"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		status, code := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func TestReportsAndSearch(t *testing.T) {
	api := newTestAPI(t, testConfig())
	collegeID, students, eventID := api.seed(3, 10)
	for _, s := range students {
		api.id(http.MethodPost, "/api/v1/registrations", gin.H{"student_id": s, "event_id": eventID})
	}

	code, env := api.do(http.MethodGet, "/api/v1/reports/event_popularity?college_id="+collegeID+"&limit=5", nil)
	require.Equal(t, http.StatusOK, code)
	var res struct {
		Kind string `json:"kind"`
		Data []struct {
			EventID       string `json:"event_id"`
			Registrations int    `json:"total_registrations"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "event_popularity", res.Kind)
	require.Len(t, res.Data, 1)
	assert.Equal(t, eventID, res.Data[0].EventID)

	code, env = api.do(http.MethodGet, "/api/v1/reports", nil)
	require.Equal(t, http.StatusOK, code)
	var kinds []string
	require.NoError(t, json.Unmarshal(env.Data, &kinds))
	assert.Contains(t, kinds, "college_engagement")

	code, env = api.do(http.MethodGet, "/api/v1/students?q=student%201", nil)
	require.Equal(t, http.StatusOK, code)
	var found []studentDTO
	require.NoError(t, json.Unmarshal(env.Data, &found))
	require.Len(t, found, 1)
	assert.Equal(t, "S001", found[0].StudentID)

	code, env = api.do(http.MethodGet, "/api/v1/events?upcoming=true&q=workshop", nil)
	require.Equal(t, http.StatusOK, code)
	var events []eventDTO
	require.NoError(t, json.Unmarshal(env.Data, &events))
	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].CurrentRegistrations)

	code, env = api.do(http.MethodGet, "/api/v1/events/"+eventID+"/registrations?page_size=2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, env.Meta.Count)

	code, _ = api.do(http.MethodGet, "/api/v1/events?page=0", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDeleteCollegeCascades(t *testing.T) {
	api := newTestAPI(t, testConfig())
	collegeID, students, eventID := api.seed(2, 10)
	api.id(http.MethodPost, "/api/v1/registrations", gin.H{"student_id": students[0], "event_id": eventID})

	code, env := api.do(http.MethodDelete, "/api/v1/colleges/"+collegeID, nil)
	require.Equal(t, http.StatusOK, code)
	var out struct {
		Deleted struct {
			Students      int `json:"students"`
			Events        int `json:"events"`
			Registrations int `json:"registrations"`
		} `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 2, out.Deleted.Students)
	assert.Equal(t, 1, out.Deleted.Events)
	assert.Equal(t, 1, out.Deleted.Registrations)

	code, _ = api.do(http.MethodGet, "/api/v1/students/"+students[0], nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t, testConfig())

	code, env := api.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.Healthy)
	assert.Contains(t, status.Checks, "store")

	api.do(http.MethodGet, "/api/v1/colleges", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `campus_http_request_duration_seconds_count{method="GET",route="/api/v1/colleges",status="200"}`)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthChecker_ReportsFailures(t *testing.T) {
	h := NewHealthChecker("v1")
	h.AddCheck("db", failingPinger{})
	h.AddCheck("cache", memory.New())

	status := h.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, "Some checks failed: db", status.Message)
	assert.True(t, status.Checks["cache"].Healthy)
	assert.Equal(t, "connection refused", status.Checks["db"].Message)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 2
	api := newTestAPI(t, cfg)

	for i := 0; i < 2; i++ {
		code, _ := api.do(http.MethodGet, "/api/v1/colleges", nil)
		assert.Equal(t, http.StatusOK, code)
	}
	code, env := api.do(http.MethodGet, "/api/v1/colleges", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate_limit_exceeded", env.Error.Code)
}

func TestIPRateLimiter_Sweep(t *testing.T) {
	clock := now
	l := newIPRateLimiter(1, 1)
	l.now = func() time.Time { return clock }

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))

	clock = clock.Add(time.Second)
	assert.True(t, l.allow("10.0.0.1"))

	clock = clock.Add(11 * time.Minute)
	assert.Equal(t, 0, l.sweep())
}

func TestRequestIDPropagation(t *testing.T) {
	api := newTestAPI(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set(headerRequestID, "abc-123")
	w := httptest.NewRecorder()
	api.handler.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(headerRequestID))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestUpdateStudent(t *testing.T) {
	api := newTestAPI(t, testConfig())
	_, students, _ := api.seed(2, 5)

	code, env := api.do(http.MethodPut, "/api/v1/students/"+students[0], gin.H{"name": "Renamed", "year": 3})
	require.Equal(t, http.StatusOK, code, "%+v", env.Error)
	var st studentDTO
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, "Renamed", st.Name)
	assert.Equal(t, 3, st.Year)
	assert.Equal(t, "S000", st.StudentID, "unset fields are kept")
	assert.Equal(t, "s0@north.edu", st.Email)

	code, env = api.do(http.MethodPut, "/api/v1/students/"+students[1], gin.H{"student_id": "S000"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", env.Error.Code)

	code, _ = api.do(http.MethodPut, "/api/v1/students/"+students[1], gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(http.MethodPut, "/api/v1/students/missing", gin.H{"name": "Ghost"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestActivityListings(t *testing.T) {
	api := newTestAPI(t, testConfig())
	_, students, eventID := api.seed(3, 5)

	regs := make([]string, len(students))
	for i, sid := range students {
		regs[i] = api.id(http.MethodPost, "/api/v1/registrations", gin.H{"student_id": sid, "event_id": eventID})
	}
	for i, rating := range []int{5, 2} {
		code, _ := api.do(http.MethodPost, "/api/v1/registrations/"+regs[i]+"/check-in", nil)
		require.Equal(t, http.StatusOK, code)
		code, _ = api.do(http.MethodPost, "/api/v1/registrations/"+regs[i]+"/feedback", gin.H{"rating": rating})
		require.Equal(t, http.StatusCreated, code)
	}
	code, _ := api.do(http.MethodPost, "/api/v1/registrations/"+regs[2]+"/cancel", nil)
	require.Equal(t, http.StatusOK, code)

	count := func(path string) int {
		t.Helper()
		code, env := api.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, code, "%s: %+v", path, env.Error)
		var items []json.RawMessage
		require.NoError(t, json.Unmarshal(env.Data, &items))
		return len(items)
	}

	assert.Equal(t, 3, count("/api/v1/registrations?event_id="+eventID))
	assert.Equal(t, 2, count("/api/v1/registrations?event_id="+eventID+"&status=registered"))
	assert.Equal(t, 1, count("/api/v1/registrations?student_id="+students[2]+"&status=cancelled"))

	assert.Equal(t, 2, count("/api/v1/attendance?event_id="+eventID+"&status=present"))
	assert.Equal(t, 0, count("/api/v1/attendance?status=late"))
	assert.Equal(t, 1, count("/api/v1/attendance?student_id="+students[1]))

	assert.Equal(t, 2, count("/api/v1/feedback"))
	assert.Equal(t, 1, count("/api/v1/feedback?min_rating=4"))
	assert.Equal(t, 1, count("/api/v1/feedback?max_rating=3"))
	assert.Equal(t, 0, count("/api/v1/feedback?college_id=elsewhere"))

	for _, path := range []string{
		"/api/v1/registrations?status=bogus",
		"/api/v1/attendance?status=registered",
		"/api/v1/feedback?min_rating=5&max_rating=1",
		"/api/v1/feedback?min_rating=9",
	} {
		code, env := api.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, code, path)
		require.NotNil(t, env.Error, path)
		assert.Equal(t, "invalid_input", env.Error.Code, path)
	}
}
