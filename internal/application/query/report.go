// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/campus-hub/campus-event-hub/internal/domain/report"
	"github.com/campus-hub/campus-event-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET REPORT QUERY
// Loads one consistent snapshot and runs a report over it. Results may be
// served from a generation-keyed cache; any write bumps the generation.
// ══════════════════════════════════════════════════════════════════════════════

// GetReportQuery selects a report kind and its filter.
type GetReportQuery struct {
	Kind   string
	Filter report.Filter
}

// GetReportResult wraps report data with its provenance.
type GetReportResult struct {
	Kind        report.Kind   `json:"kind"`
	Filter      report.Filter `json:"filters"`
	GeneratedAt time.Time     `json:"generated_at"`
	Cached      bool          `json:"cached"`

	// Data is the typed report on a fresh run and json.RawMessage on a cache hit.
	Data any `json:"data"`
}

// ReportCache stores serialized report results.
type ReportCache interface {
	// Generation returns the current invalidation generation.
	Generation(ctx context.Context) (int64, error)

	// Get returns the payload and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a payload.
	Set(ctx context.Context, key string, payload []byte) error
}

// ReportObserver receives timing for every served report.
type ReportObserver interface {
	ObserveReport(kind string, cached bool, took time.Duration)
}

// GetReportHandler handles GetReportQuery.
type GetReportHandler struct {
	source   report.SnapshotSource
	cache    ReportCache
	observer ReportObserver
	log      *logger.Logger
	now      func() time.Time

	group singleflight.Group
}

// GetReportOption configures the handler.
type GetReportOption func(*GetReportHandler)

// WithReportCache enables result caching.
func WithReportCache(c ReportCache) GetReportOption {
	return func(h *GetReportHandler) { h.cache = c }
}

// WithReportObserver sets a timing observer.
func WithReportObserver(o ReportObserver) GetReportOption {
	return func(h *GetReportHandler) { h.observer = o }
}

// WithReportLogger sets the logger.
func WithReportLogger(l *logger.Logger) GetReportOption {
	return func(h *GetReportHandler) { h.log = l }
}

// WithReportClock overrides the clock.
func WithReportClock(now func() time.Time) GetReportOption {
	return func(h *GetReportHandler) { h.now = now }
}

// NewGetReportHandler creates a new GetReportHandler.
func NewGetReportHandler(source report.SnapshotSource, opts ...GetReportOption) *GetReportHandler {
	h := &GetReportHandler{
		source: source,
		log:    logger.Nop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle executes the query.
func (h *GetReportHandler) Handle(ctx context.Context, q GetReportQuery) (*GetReportResult, error) {
	started := h.now()

	kind, err := report.ParseKind(q.Kind)
	if err != nil {
		return nil, err
	}
	if err := q.Filter.Validate(); err != nil {
		return nil, err
	}

	key, cacheable, err := h.cacheKey(ctx, kind, q.Filter)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if res, ok := h.fromCache(ctx, key, kind, q.Filter); ok {
			h.observe(kind, true, started)
			return res, nil
		}
	}

	// The shared run outlives any single caller; each waiter honours its own ctx.
	detached := context.WithoutCancel(ctx)
	ch := h.group.DoChan(key, func() (any, error) {
		return h.generate(detached, key, cacheable, kind, q.Filter)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		h.observe(kind, false, started)
		return r.Val.(*GetReportResult), nil
	}
}

func (h *GetReportHandler) generate(ctx context.Context, key string, cacheable bool, kind report.Kind, f report.Filter) (*GetReportResult, error) {
	snap, err := h.source.LoadSnapshot(ctx, f.Scope())
	if err != nil {
		return nil, fmt.Errorf("get_report: load snapshot: %w", err)
	}

	data, err := report.Generate(kind, snap, f)
	if err != nil {
		return nil, err
	}

	res := &GetReportResult{Kind: kind, Filter: f, GeneratedAt: snap.TakenAt, Data: data}

	if cacheable {
		payload, err := json.Marshal(res)
		if err == nil {
			err = h.cache.Set(ctx, key, payload)
		}
		if err != nil {
			h.log.Warn("failed to cache report", logger.ReportKind(string(kind)), logger.Err(err))
		}
	}

	return res, nil
}

// fromCache never fails the request; cache trouble degrades to a fresh run.
func (h *GetReportHandler) fromCache(ctx context.Context, key string, kind report.Kind, f report.Filter) (*GetReportResult, bool) {
	payload, ok, err := h.cache.Get(ctx, key)
	if err != nil {
		h.log.Warn("report cache read failed", logger.ReportKind(string(kind)), logger.Err(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var stored struct {
		GeneratedAt time.Time       `json:"generated_at"`
		Data        json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &stored); err != nil {
		h.log.Warn("discarding corrupt cached report", logger.ReportKind(string(kind)), logger.Err(err))
		return nil, false
	}

	return &GetReportResult{
		Kind:        kind,
		Filter:      f,
		GeneratedAt: stored.GeneratedAt,
		Cached:      true,
		Data:        stored.Data,
	}, true
}

// cacheKey folds the cache generation into the key so a bump orphans every
// older entry at once. cacheable is false when caching is off or the
// generation cannot be read; the key then only dedupes concurrent callers.
func (h *GetReportHandler) cacheKey(ctx context.Context, kind report.Kind, f report.Filter) (key string, cacheable bool, err error) {
	filterJSON, err := json.Marshal(f)
	if err != nil {
		return "", false, fmt.Errorf("get_report: encode filter: %w", err)
	}
	sum := sha256.Sum256(filterJSON)
	digest := hex.EncodeToString(sum[:8])

	if h.cache == nil {
		return fmt.Sprintf("%s:%s", kind, digest), false, nil
	}
	gen, err := h.cache.Generation(ctx)
	if err != nil {
		h.log.Warn("report cache generation unavailable", logger.Err(err))
		return fmt.Sprintf("%s:%s", kind, digest), false, nil
	}
	return fmt.Sprintf("%s:g%d:%s", kind, gen, digest), true, nil
}

func (h *GetReportHandler) observe(kind report.Kind, cached bool, started time.Time) {
	took := h.now().Sub(started)
	if h.observer != nil {
		h.observer.ObserveReport(string(kind), cached, took)
	}
	h.log.Debug("report served",
		logger.ReportKind(string(kind)),
		logger.Bool("cached", cached),
		logger.Latency(took),
	)
}
