// Package metrics declares the Prometheus instruments exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
)

const namespace = "campus"

// =============================================================================
// Prometheus Metrics
// =============================================================================

// Metrics holds every collector. Build one per registry; promauto panics on
// duplicate registration.
type Metrics struct {
	gatherer prometheus.Gatherer

	// registrations counts registration engine outcomes.
	// Labels: outcome (created, cancelled, rejected), reason (error kind or "")
	registrations *prometheus.CounterVec

	// registrationAttempts is the CAS attempt count of successful registrations.
	registrationAttempts prometheus.Histogram

	// attendance counts attendance transitions.
	// Labels: transition (check_in, check_out), status (present, late)
	attendance *prometheus.CounterVec

	// feedback counts admitted feedback by rating.
	feedback *prometheus.CounterVec

	// reportDuration measures report latency.
	// Labels: kind, cached (true, false)
	reportDuration *prometheus.HistogramVec

	// handlerDuration measures event bus handler latency.
	// Labels: event_type, status (ok, error)
	handlerDuration *prometheus.HistogramVec

	// jobDuration measures scheduled job latency.
	// Labels: job, status (ok, error)
	jobDuration *prometheus.HistogramVec

	// httpRequests measures HTTP latency.
	// Labels: method, route, status
	httpRequests *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registration",
			Name:      "outcomes_total",
			Help:      "Registration engine outcomes",
		}, []string{"outcome", "reason"}),
		registrationAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "registration",
			Name:      "attempts",
			Help:      "Compare-and-swap attempts per successful registration",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 13, 21},
		}),
		attendance: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attendance",
			Name:      "transitions_total",
			Help:      "Attendance transitions applied",
		}, []string{"transition", "status"}),
		feedback: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "submitted_total",
			Help:      "Feedback submissions by rating",
		}, []string{"rating"}),
		reportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "duration_seconds",
			Help:      "Report generation latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind", "cached"}),
		handlerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "handler_duration_seconds",
			Help:      "Event handler latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type", "status"}),
		jobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduled job latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"job", "status"}),
		httpRequests: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveReport implements query.ReportObserver.
func (m *Metrics) ObserveReport(kind string, cached bool, took time.Duration) {
	m.reportDuration.WithLabelValues(kind, strconv.FormatBool(cached)).Observe(took.Seconds())
}

// ObserveHandler implements messaging.HandlerObserver.
func (m *Metrics) ObserveHandler(eventType string, took time.Duration, err error) {
	m.handlerDuration.WithLabelValues(eventType, statusOf(err)).Observe(took.Seconds())
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveJob implements scheduler.JobObserver.
func (m *Metrics) ObserveJob(name string, took time.Duration, err error) {
	m.jobDuration.WithLabelValues(name, statusOf(err)).Observe(took.Seconds())
}

// ObserveHTTP records one served request. route is the matched pattern.
func (m *Metrics) ObserveHTTP(method, route string, status int, took time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(took.Seconds())
}

// RecordEvent updates the domain counters. It is subscribed to the event
// bus for every event type.
func (m *Metrics) RecordEvent(e shared.Event) error {
	switch ev := e.(type) {
	case shared.RegistrationEvent:
		switch ev.EventType() {
		case shared.EventRegistrationCreated:
			m.registrations.WithLabelValues("created", "").Inc()
			m.registrationAttempts.Observe(float64(ev.Attempts))
		case shared.EventRegistrationCancelled:
			m.registrations.WithLabelValues("cancelled", "").Inc()
		}
	case shared.RegistrationRejectedEvent:
		m.registrations.WithLabelValues("rejected", ev.Reason).Inc()
	case shared.AttendanceEvent:
		transition := "check_in"
		if ev.EventType() == shared.EventCheckedOut {
			transition = "check_out"
		}
		m.attendance.WithLabelValues(transition, ev.Status).Inc()
	case shared.FeedbackSubmittedEvent:
		m.feedback.WithLabelValues(strconv.Itoa(ev.Rating)).Inc()
	}
	return nil
}
