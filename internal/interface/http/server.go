// Package http exposes the campus event hub over a JSON REST API built on gin.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-hub/campus-event-hub/config"
	"github.com/campus-hub/campus-event-hub/internal/application/command"
	"github.com/campus-hub/campus-event-hub/internal/application/query"
	"github.com/campus-hub/campus-event-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodyBytes   int64

	// RateLimitRPS <= 0 disables per-IP limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// Release switches gin to release mode.
	Release bool
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
		MaxBodyBytes:   1 << 20,
		RateLimitRPS:   20,
		RateLimitBurst: 40,
	}
}

// ConfigFrom builds a server Config from application settings.
func ConfigFrom(app config.AppConfig, c config.HTTPConfig) Config {
	cfg := DefaultConfig()
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.ReadTimeout > 0 {
		cfg.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		cfg.WriteTimeout = c.WriteTimeout
	}
	cfg.RateLimitRPS = c.RateLimitRPS
	cfg.RateLimitBurst = c.RateLimitBurst
	cfg.Release = app.Environment == config.EnvProduction
	return cfg
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains the application handlers the routes call.
type Dependencies struct {
	Colleges   *command.CollegeHandler
	Students   *command.StudentHandler
	Events     *command.EventHandler
	Register   *command.RegisterHandler
	Cancel     *command.CancelRegistrationHandler
	Attendance *command.AttendanceHandler
	Feedback   *command.SubmitFeedbackHandler

	Directory *query.Directory
	Reports   *query.GetReportHandler

	// Optional.
	Health         *HealthChecker
	Observer       HTTPObserver
	MetricsHandler http.Handler

	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	logger     *logger.Logger
	observer   HTTPObserver
	limiter    *ipRateLimiter
	now        func() time.Time

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(cfg Config, deps Dependencies) *Server {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:   cfg,
		deps:     deps,
		engine:   gin.New(),
		logger:   deps.Logger,
		observer: deps.Observer,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	s.logger = s.logger.Named("http")
	if s.deps.Health == nil {
		s.deps.Health = NewHealthChecker("")
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = newIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	s.engine.HandleMethodNotAllowed = true
	s.engine.NoRoute(func(c *gin.Context) {
		writeJSONError(c, http.StatusNotFound, "not_found", "route not found")
	})
	s.engine.NoMethod(func(c *gin.Context) {
		writeJSONError(c, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           cfg.Addr,
		Handler:        s.engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupMiddleware() {
	s.engine.Use(s.requestIDMiddleware())
	s.engine.Use(s.loggingMiddleware())
	s.engine.Use(s.recoveryMiddleware())
	s.engine.Use(securityHeadersMiddleware())
	if s.config.MaxBodyBytes > 0 {
		s.engine.Use(bodyLimitMiddleware(s.config.MaxBodyBytes))
	}
	if s.limiter != nil {
		s.engine.Use(s.rateLimitMiddleware())
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/livez", s.handleLive)
	if s.deps.MetricsHandler != nil {
		s.engine.GET("/metrics", gin.WrapH(s.deps.MetricsHandler))
	}

	v1 := s.engine.Group("/api/v1")

	colleges := v1.Group("/colleges")
	colleges.POST("", s.handleCreateCollege)
	colleges.GET("", s.handleListColleges)
	colleges.GET("/:id", s.handleGetCollege)
	colleges.PUT("/:id", s.handleUpdateCollege)
	colleges.DELETE("/:id", s.handleDeleteCollege)

	students := v1.Group("/students")
	students.POST("", s.handleCreateStudent)
	students.POST("/bulk", s.handleBulkCreateStudents)
	students.GET("", s.handleSearchStudents)
	students.GET("/:id", s.handleGetStudent)
	students.PUT("/:id", s.handleUpdateStudent)
	students.GET("/:id/registrations", s.handleStudentRegistrations)

	events := v1.Group("/events")
	events.POST("", s.handleCreateEvent)
	events.GET("", s.handleSearchEvents)
	events.GET("/:id", s.handleGetEvent)
	events.PATCH("/:id", s.handleUpdateEvent)
	events.POST("/:id/cancel", s.handleCancelEvent)
	events.POST("/:id/complete", s.handleCompleteEvent)
	events.GET("/:id/registrations", s.handleEventRegistrations)

	regs := v1.Group("/registrations")
	regs.POST("", s.handleRegister)
	regs.GET("", s.handleListRegistrations)
	regs.GET("/:id", s.handleGetRegistration)
	regs.POST("/:id/cancel", s.handleCancelRegistration)
	regs.POST("/:id/check-in", s.handleCheckIn)
	regs.POST("/:id/check-out", s.handleCheckOut)
	regs.POST("/:id/feedback", s.handleSubmitFeedback)

	v1.GET("/attendance", s.handleListAttendance)
	v1.GET("/feedback", s.handleListFeedback)

	reports := v1.Group("/reports")
	reports.GET("", s.handleListReportKinds)
	reports.GET("/:kind", s.handleGetReport)
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
