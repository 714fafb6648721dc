package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/campus-event-hub/config"
	"github.com/campus-hub/campus-event-hub/internal/infrastructure/persistence/postgres"
	"github.com/campus-hub/campus-event-hub/pkg/logger"
)

func TestReportFilterFromFlags(t *testing.T) {
	t.Cleanup(func() { reportFlags = reportOptions{} })

	reportFlags.collegeID = "c1"
	reportFlags.status = "active"
	reportFlags.limit = 5
	f, err := reportFilterFromFlags()
	require.NoError(t, err)
	assert.Equal(t, "c1", f.CollegeID)
	assert.Equal(t, 5, f.Limit)

	reportFlags.status = "sleeping"
	_, err = reportFilterFromFlags()
	assert.Error(t, err)
}

func TestPrintMigrations(t *testing.T) {
	var buf bytes.Buffer
	err := printMigrations(&buf, []postgres.Migration{
		{Version: 1, Name: "create_directory", IsApplied: true, AppliedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{Version: 2, Name: "create_events"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Regexp(t, `001\s+create_directory`, out)
	assert.Contains(t, out, "2025-01-02 03:04:05")
	assert.Contains(t, out, "pending")
}

func TestNewApp_MemoryDriver(t *testing.T) {
	cfg := &config.Config{
		App:      config.AppConfig{Name: "campushub", Version: "test"},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Engine:   config.EngineConfig{RegisterMaxAttempts: 3},
		Scheduler: config.SchedulerConfig{
			CompleteEventsInterval: time.Minute,
		},
	}

	a, err := newApp(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.cache)
	assert.NotNil(t, a.httpServer().Handler())

	status := a.health.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Contains(t, status.Checks, "store")

	jobs := a.scheduler.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "complete_finished_events", jobs[0].Name)
}
