package redis

import (
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/campus-hub/campus-event-hub/config"
)

func TestCache_KeyNamespacing(t *testing.T) {
	c := NewCacheFromClient(goredis.NewClient(&goredis.Options{Addr: "localhost:0"}), "campus:")
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, "campus:report:generation", c.Key("report", "generation"))
	assert.Equal(t, "campus:x", c.Key("x"))

	rc := NewReportCache(c, 0)
	assert.Equal(t, DefaultReportTTL, rc.ttl)
	assert.Equal(t, "campus:report:generation", rc.generationKey())
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.RedisConfig{Addr: "cache:6380", DB: 2, KeyPrefix: "t:", ReportTTL: time.Minute})

	assert.Equal(t, "cache:6380", cfg.Addr)
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, "t:", cfg.KeyPrefix)
	assert.Equal(t, DefaultConfig().PoolSize, cfg.PoolSize)
}
