package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/campus-event-hub/internal/domain/shared"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/messaging"
)

type countingInvalidator struct {
	calls int
	err   error
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return c.err
}

func TestInvalidateReports_OnWrites(t *testing.T) {
	inv := &countingInvalidator{}
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{})
	require.NoError(t, Register(bus, Subscriptions{
		Invalidate: NewInvalidateReportsHandler(inv, nil, InvalidateReportsConfig{}),
		Audit:      NewAuditLogHandler(nil),
	}))

	now := time.Now()
	require.NoError(t, bus.Publish(shared.NewRegistrationEvent(shared.EventRegistrationCreated, "r1", "s1", "e1", 1, 5, 1, now)))
	require.NoError(t, bus.Publish(shared.NewRegistrationRejectedEvent("e1", "s2", "capacity_exceeded", now)))
	require.NoError(t, bus.Publish(shared.NewFeedbackSubmittedEvent("r1", "e1", 5, now)))

	assert.Equal(t, 2, inv.calls, "rejections do not invalidate")
}

func TestInvalidateReports_ReportsFailure(t *testing.T) {
	inv := &countingInvalidator{err: errors.New("redis down")}
	h := NewInvalidateReportsHandler(inv, nil, DefaultInvalidateReportsConfig())

	err := h.Handle(shared.NewEntityChangedEvent(shared.EventCollegeDeleted, "c1", "c1", time.Now()))
	assert.ErrorContains(t, err, "redis down")
}
