// Package jobs contains the scheduled background jobs.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/campus-hub/campus-event-hub/pkg/logger"
)

// EventCompleter moves finished active events to completed.
type EventCompleter interface {
	CompleteFinished(ctx context.Context, now time.Time, batch int) (int, error)
}

// CompleteFinishedEventsConfig contains job configuration.
type CompleteFinishedEventsConfig struct {
	// BatchSize caps events handled per pass.
	BatchSize int

	// MaxPasses caps passes per run; a full batch triggers another pass.
	MaxPasses int

	// Timeout bounds one run.
	Timeout time.Duration
}

// DefaultCompleteFinishedEventsConfig returns the default configuration.
func DefaultCompleteFinishedEventsConfig() CompleteFinishedEventsConfig {
	return CompleteFinishedEventsConfig{
		BatchSize: 200,
		MaxPasses: 10,
		Timeout:   time.Minute,
	}
}

// CompleteFinishedEventsJob closes out events whose end time has passed.
type CompleteFinishedEventsJob struct {
	completer EventCompleter
	now       func() time.Time
	logger    *logger.Logger
	config    CompleteFinishedEventsConfig
}

// NewCompleteFinishedEventsJob creates the job.
func NewCompleteFinishedEventsJob(
	completer EventCompleter,
	now func() time.Time,
	log *logger.Logger,
	config CompleteFinishedEventsConfig,
) *CompleteFinishedEventsJob {
	def := DefaultCompleteFinishedEventsConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxPasses <= 0 {
		config.MaxPasses = def.MaxPasses
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CompleteFinishedEventsJob{
		completer: completer,
		now:       now,
		logger:    log.Named("complete_finished_events"),
		config:    config,
	}
}

// Name implements scheduler.Job.
func (j *CompleteFinishedEventsJob) Name() string { return "complete_finished_events" }

// Description implements scheduler.Job.
func (j *CompleteFinishedEventsJob) Description() string {
	return "marks active events whose end time has passed as completed"
}

// Run implements scheduler.Job.
func (j *CompleteFinishedEventsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	now := j.now()
	total := 0
	for pass := 0; pass < j.config.MaxPasses; pass++ {
		n, err := j.completer.CompleteFinished(ctx, now, j.config.BatchSize)
		total += n
		if err != nil {
			return fmt.Errorf("complete finished events: %w", err)
		}
		if n < j.config.BatchSize {
			break
		}
	}

	if total > 0 {
		j.logger.Info("events completed", logger.Int("count", total))
	}
	return nil
}
