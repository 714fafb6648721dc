// Package eventhandler contains domain event handlers.
package eventhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// INVALIDATE REPORTS HANDLER
// Every write that changes report inputs advances the report cache
// generation, so cached reports are never served after a committed write.
// Rejected registrations change nothing and are ignored.
// ═══════════════════════════════════════════════════════════════════════════

// ReportInvalidator advances the report cache generation.
type ReportInvalidator interface {
	Invalidate(ctx context.Context) error
}

// InvalidateReportsConfig contains configuration for the handler.
type InvalidateReportsConfig struct {
	// Timeout bounds a single invalidation call.
	Timeout time.Duration
}

// DefaultInvalidateReportsConfig returns the default configuration.
func DefaultInvalidateReportsConfig() InvalidateReportsConfig {
	return InvalidateReportsConfig{Timeout: 2 * time.Second}
}

// InvalidateReportsHandler handles write events.
type InvalidateReportsHandler struct {
	invalidator ReportInvalidator
	logger      *logger.Logger
	config      InvalidateReportsConfig
}

// NewInvalidateReportsHandler creates the handler.
func NewInvalidateReportsHandler(invalidator ReportInvalidator, log *logger.Logger, config InvalidateReportsConfig) *InvalidateReportsHandler {
	if log == nil {
		log = logger.Nop()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultInvalidateReportsConfig().Timeout
	}
	return &InvalidateReportsHandler{
		invalidator: invalidator,
		logger:      log.Named("invalidate_reports"),
		config:      config,
	}
}

// Handle implements shared.EventHandler.
func (h *InvalidateReportsHandler) Handle(e shared.Event) error {
	if e.EventType() == shared.EventRegistrationRejected {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if err := h.invalidator.Invalidate(ctx); err != nil {
		h.logger.Warn("report cache invalidation failed",
			logger.String("event_type", string(e.EventType())),
			logger.String("aggregate_id", e.AggregateID()),
			logger.Err(err),
		)
		return fmt.Errorf("invalidate reports: %w", err)
	}
	return nil
}
