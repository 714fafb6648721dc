package eventhandler

import (
	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/pkg/logger"
)

// AuditLogHandler writes one structured line per domain event.
type AuditLogHandler struct {
	logger *logger.Logger
}

// NewAuditLogHandler creates the handler.
func NewAuditLogHandler(log *logger.Logger) *AuditLogHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuditLogHandler{logger: log.Named("audit")}
}

// Handle implements shared.EventHandler.
func (h *AuditLogHandler) Handle(e shared.Event) error {
	fields := []logger.Field{
		logger.String("event_type", string(e.EventType())),
		logger.String("aggregate_id", e.AggregateID()),
		logger.Time("occurred_at", e.OccurredAt()),
	}
	for k, v := range e.Payload() {
		fields = append(fields, logger.Any(k, v))
	}
	h.logger.Info("domain event", fields...)
	return nil
}

// Subscriptions groups the handlers attached to the bus at startup.
type Subscriptions struct {
	Invalidate *InvalidateReportsHandler
	Audit      *AuditLogHandler
	// Extra handlers receive every event, e.g. metrics recorders.
	Extra []shared.EventHandler
}

// Register subscribes every non-nil handler to all events.
func Register(bus shared.EventSubscriber, subs Subscriptions) error {
	handlers := make([]shared.EventHandler, 0, 2+len(subs.Extra))
	if subs.Invalidate != nil {
		handlers = append(handlers, subs.Invalidate.Handle)
	}
	if subs.Audit != nil {
		handlers = append(handlers, subs.Audit.Handle)
	}
	handlers = append(handlers, subs.Extra...)

	for _, h := range handlers {
		if err := bus.SubscribeAll(h); err != nil {
			return err
		}
	}
	return nil
}
