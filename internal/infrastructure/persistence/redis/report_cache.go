package redis

import (
	"context"
	"errors"
	"time"
)

// DefaultReportTTL bounds how long a report survives without an invalidation.
const DefaultReportTTL = 5 * time.Minute

// ReportCache stores serialized reports under generation-scoped keys.
// Invalidate bumps the generation; older entries are never read again and
// expire on their TTL.
type ReportCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewReportCache creates a report cache. A non-positive ttl selects
// DefaultReportTTL.
func NewReportCache(cache *Cache, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &ReportCache{cache: cache, ttl: ttl}
}

func (r *ReportCache) generationKey() string {
	return r.cache.Key("report", "generation")
}

// Generation returns the current generation, 0 before the first write.
func (r *ReportCache) Generation(ctx context.Context) (int64, error) {
	return r.cache.GetInt64(ctx, r.generationKey())
}

// Get returns a stored payload.
func (r *ReportCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.cache.GetBytes(ctx, r.cache.Key("report", key))
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a payload for the configured TTL.
func (r *ReportCache) Set(ctx context.Context, key string, payload []byte) error {
	return r.cache.SetBytes(ctx, r.cache.Key("report", key), payload, r.ttl)
}

// Invalidate advances the generation.
func (r *ReportCache) Invalidate(ctx context.Context) error {
	_, err := r.cache.Incr(ctx, r.generationKey())
	return err
}
