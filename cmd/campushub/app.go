package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/campus-hub/campus-event-hub/config"
	"github.com/campus-hub/campus-event-hub/internal/application/command"
	"github.com/campus-hub/campus-event-hub/internal/application/eventhandler"
	"github.com/campus-hub/campus-event-hub/internal/application/query"
	"github.com/campus-hub/campus-event-hub/internal/domain/college"
	"github.com/campus-hub/campus-event-hub/internal/domain/event"
	"github.com/campus-hub/campus-event-hub/internal/domain/registration"
	"github.com/campus-hub/campus-event-hub/internal/domain/report"
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/internal/domain/student"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/messaging"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/metrics"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/persistence/memory"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/persistence/postgres"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/persistence/redis"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/scheduler"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/campus-hub/campus-event-hub/internal/interface/http"
	"github.com/campus-hub/campus-event-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// repositories is the driver-independent view of the Entity Store.
type repositories struct {
	colleges   college.Repository
	students   student.Repository
	events     event.Repository
	ledger     registration.Ledger
	attendance registration.AttendanceRepository
	feedback   registration.FeedbackRepository
	snapshots  report.SnapshotSource

	pinger httpapi.Pinger
	close  func()
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger, now func() time.Time) (*repositories, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on exit")
		s := memory.New(memory.WithClock(now))
		return &repositories{
			colleges:   s.Colleges(),
			students:   s.Students(),
			events:     s.Events(),
			ledger:     s.Registrations(),
			attendance: s.Attendance(),
			feedback:   s.Feedback(),
			snapshots:  s,
			pinger:     s,
			close:      s.Close,
		}, nil

	case config.DriverPostgres:
		log.Info("connecting to database")
		conn, err := postgres.NewConnection(ctx, postgres.ConfigFrom(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if cfg.AutoMigrate {
			n, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				conn.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("migrations applied", logger.Int("count", n))
		}

		s := postgres.NewStore(conn, now)
		return &repositories{
			colleges:   s.Colleges(),
			students:   s.Students(),
			events:     s.Events(),
			ledger:     s.Registrations(),
			attendance: s.Attendance(),
			feedback:   s.Feedback(),
			snapshots:  s,
			pinger:     s,
			close:      s.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// APPLICATION
// ══════════════════════════════════════════════════════════════════════════════

// app holds every wired component. Subcommands take what they need.
type app struct {
	cfg *config.Config
	log *logger.Logger
	now func() time.Time

	repos       *repositories
	cache       *redis.Cache
	reportCache *redis.ReportCache
	metrics     *metrics.Metrics
	bus         *messaging.InMemoryEventBus

	colleges   *command.CollegeHandler
	students   *command.StudentHandler
	events     *command.EventHandler
	register   *command.RegisterHandler
	cancel     *command.CancelRegistrationHandler
	attendance *command.AttendanceHandler
	feedback   *command.SubmitFeedbackHandler

	directory *query.Directory
	reports   *query.GetReportHandler

	scheduler *scheduler.Scheduler
	health    *httpapi.HealthChecker
}

// loadConfig reads the config file and builds the root logger.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log.With(logger.String("app", cfg.App.Name), logger.String("env", string(cfg.App.Environment))), nil
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{
		cfg: cfg,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}

	repos, err := openStore(ctx, cfg.Database, log.Named("store"), a.now)
	if err != nil {
		return nil, err
	}
	a.repos = repos

	if cfg.Redis.Enabled {
		log.Info("connecting to Redis", logger.String("addr", cfg.Redis.Addr))
		cache, err := redis.NewCache(ctx, redis.ConfigFrom(cfg.Redis))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.cache = cache
		a.reportCache = redis.NewReportCache(cache, cfg.Redis.ReportTTL)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(reg)

	// Synchronous delivery: cache invalidation finishes before the write returns.
	a.bus = messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		Logger:   log,
		Observer: a.metrics,
	})

	if err := a.subscribe(); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to subscribe event handlers: %w", err)
	}

	rt := command.Runtime{
		Now:       a.now,
		Publisher: a.bus,
		Logger:    log.Named("command"),
	}
	retry := command.RegisterHandlerConfig{
		MaxAttempts:  cfg.Engine.RegisterMaxAttempts,
		InitialDelay: cfg.Engine.RetryInitialDelay,
		MaxDelay:     cfg.Engine.RetryMaxDelay,
	}

	a.colleges = command.NewCollegeHandler(repos.colleges, rt)
	a.students = command.NewStudentHandler(repos.students, rt)
	a.events = command.NewEventHandler(repos.events, rt, retry)
	a.register = command.NewRegisterHandler(repos.students, repos.events, repos.ledger, rt, retry)
	a.cancel = command.NewCancelRegistrationHandler(repos.ledger, rt)
	a.attendance = command.NewAttendanceHandler(repos.ledger, repos.events, repos.attendance, rt)
	a.feedback = command.NewSubmitFeedbackHandler(repos.ledger, repos.attendance, repos.feedback, rt)

	a.directory = query.NewDirectory(repos.colleges, repos.students, repos.events, repos.ledger, repos.attendance, repos.feedback)

	reportOpts := []query.GetReportOption{
		query.WithReportObserver(a.metrics),
		query.WithReportLogger(log),
		query.WithReportClock(a.now),
	}
	if a.reportCache != nil {
		reportOpts = append(reportOpts, query.WithReportCache(a.reportCache))
	}
	a.reports = query.NewGetReportHandler(repos.snapshots, reportOpts...)

	if err := a.buildScheduler(); err != nil {
		a.Close()
		return nil, err
	}

	a.health = httpapi.NewHealthChecker(cfg.App.Version)
	a.health.AddCheck("store", repos.pinger)
	if a.cache != nil {
		a.health.AddCheck("redis", a.cache)
	}

	return a, nil
}

func (a *app) subscribe() error {
	subs := eventhandler.Subscriptions{
		Audit: eventhandler.NewAuditLogHandler(a.log),
		Extra: []shared.EventHandler{a.metrics.RecordEvent},
	}
	if a.reportCache != nil {
		subs.Invalidate = eventhandler.NewInvalidateReportsHandler(a.reportCache, a.log, eventhandler.DefaultInvalidateReportsConfig())
	}
	return eventhandler.Register(a.bus, subs)
}

func (a *app) buildScheduler() error {
	a.scheduler = scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:   a.log,
		Observer: a.metrics,
	})

	schedule, err := scheduler.NewIntervalSchedule(a.cfg.Scheduler.CompleteEventsInterval)
	if err != nil {
		return fmt.Errorf("invalid complete_events_interval: %w", err)
	}
	job := jobs.NewCompleteFinishedEventsJob(a.events, a.now, a.log, jobs.CompleteFinishedEventsConfig{
		Timeout: a.cfg.Scheduler.JobTimeout,
	})
	if err := a.scheduler.Register(job, schedule); err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.Name(), err)
	}
	return nil
}

// httpServer builds the API server over the wired handlers.
func (a *app) httpServer() *httpapi.Server {
	return httpapi.NewServer(httpapi.ConfigFrom(a.cfg.App, a.cfg.HTTP), httpapi.Dependencies{
		Colleges:       a.colleges,
		Students:       a.students,
		Events:         a.events,
		Register:       a.register,
		Cancel:         a.cancel,
		Attendance:     a.attendance,
		Feedback:       a.feedback,
		Directory:      a.directory,
		Reports:        a.reports,
		Health:         a.health,
		Observer:       a.metrics,
		MetricsHandler: a.metrics.Handler(),
		Logger:         a.log,
	})
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.log.Warn("failed to close event bus", logger.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("failed to close redis", logger.Err(err))
		}
	}
	if a.repos != nil {
		a.log.Info("closing store")
		a.repos.close()
	}
	_ = a.log.Sync()
}
