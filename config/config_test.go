package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
db:
  driver: memory
http:
  addr: ":9090"
engine:
  register_max_attempts: 8
scheduler:
  complete_events_interval: 90s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 8, cfg.Engine.RegisterMaxAttempts)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.CompleteEventsInterval)

	// Untouched keys keep their defaults.
	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.Equal(t, 5*time.Millisecond, cfg.Engine.RetryInitialDelay)
	assert.Equal(t, 5*time.Minute, cfg.Redis.ReportTTL)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "db:\n  driver: memory\nlog:\n  level: info\n")
	t.Setenv("CAMPUS_LOG_LEVEL", "debug")
	t.Setenv("CAMPUS_HTTP_RATE_LIMIT_RPS", "3.5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.InDelta(t, 3.5, cfg.HTTP.RateLimitRPS, 1e-9)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			App:       AppConfig{Environment: EnvDevelopment},
			Database:  DatabaseConfig{Driver: DriverPostgres, URL: "postgres://localhost/campus"},
			Log:       LogConfig{Format: "json"},
			Engine:    EngineConfig{RegisterMaxAttempts: 1},
			Scheduler: SchedulerConfig{Enabled: true, CompleteEventsInterval: time.Minute},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"postgres needs url", func(c *Config) { c.Database.URL = "" }, "db.url"},
		{"memory forbidden in production", func(c *Config) {
			c.Database.Driver = DriverMemory
			c.App.Environment = EnvProduction
		}, "not allowed in production"},
		{"staging is accepted", func(c *Config) { c.App.Environment = EnvStaging }, ""},
		{"unknown environment", func(c *Config) { c.App.Environment = "qa" }, "app.env"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "db.driver"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"attempts below one", func(c *Config) { c.Engine.RegisterMaxAttempts = 0 }, "register_max_attempts"},
		{"redis needs addr", func(c *Config) { c.Redis = RedisConfig{Enabled: true} }, "redis.addr"},
		{"scheduler interval", func(c *Config) { c.Scheduler.CompleteEventsInterval = 0 }, "complete_events_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
