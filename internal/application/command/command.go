// Package command contains write operations (CQRS - Commands).
//
// Every handler validates its command, runs the domain rules, persists through
// the repository interfaces and publishes exactly one domain event on success.
package command

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/pkg/logger"
)

// Runtime holds the collaborators every handler shares.
type Runtime struct {
	// Now is the clock. Defaults to time.Now in UTC.
	Now func() time.Time

	// NewID generates entity identifiers. Defaults to UUIDv4.
	NewID func() string

	// Publisher receives domain events after a successful write.
	Publisher shared.EventPublisher

	Logger *logger.Logger
}

func (r Runtime) withDefaults() Runtime {
	if r.Now == nil {
		r.Now = func() time.Time { return time.Now().UTC() }
	}
	if r.NewID == nil {
		r.NewID = uuid.NewString
	}
	if r.Publisher == nil {
		r.Publisher = shared.NopPublisher{}
	}
	if r.Logger == nil {
		r.Logger = logger.Nop()
	}
	return r
}

// log returns the request-scoped logger carried by ctx, falling back to
// r.Logger.
func (r Runtime) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx, r.Logger)
}

// publish hands e to the bus. Delivery failures are logged, never returned:
// the write has already committed.
func (r Runtime) publish(e shared.Event) {
	if err := r.Publisher.Publish(e); err != nil {
		r.Logger.Warn("failed to publish event",
			logger.String("event_type", string(e.EventType())),
			logger.String("aggregate_id", e.AggregateID()),
			logger.Err(err),
		)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateCommand runs struct tags on cmd and reports the first failure as
// ErrInvalidInput.
func validateCommand(domain, op string, cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg := fmt.Sprintf("%s failed on %q", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s failed on %q=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return shared.WrapError(domain, op, shared.ErrInvalidInput, msg, err)
	}
	return shared.WrapError(domain, op, shared.ErrInvalidInput, "invalid command", err)
}
