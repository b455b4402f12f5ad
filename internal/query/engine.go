// Package query provides the central query engine for TKB read operations.
// Every operation resolves the current snapshot through the cache manager
// (refreshing when stale), applies filters against the in-memory indices,
// and returns a projection payload plus freshness metadata.
//
// "Not found" never raises: a missing identifier yields a nil single result
// or an empty collection. The only error surfaced to callers is the
// no-snapshot error, before the first successful materialization.
package query

import (
	"context"
	"log/slog"
	"time"

	"tkb/internal/cache"
	"tkb/internal/config"
	"tkb/internal/snapshot"
)

// Engine is the query coordinator. It owns no state beyond configuration;
// all data access goes through the cache manager's current snapshot.
type Engine struct {
	cache  *cache.Manager
	cfg    *config.Config
	logger *slog.Logger

	// now is the clock used for cycle phase computation.
	now func() time.Time
}

// NewEngine creates a query engine over a cache manager.
func NewEngine(mgr *cache.Manager, cfg *config.Config, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cache:  mgr,
		cfg:    cfg,
		logger: logger.With("component", "query"),
		now:    time.Now,
	}
}

// snap resolves the current snapshot, refreshing per the staleness policy.
func (e *Engine) snap(ctx context.Context) (*snapshot.Snapshot, cache.Freshness, error) {
	return e.cache.Snapshot(ctx)
}

// Refresh forces a synchronous refresh and reports the resulting health.
// A failed refresh demotes health but keeps the previous snapshot.
func (e *Engine) Refresh(ctx context.Context) cache.Health {
	return e.cache.ForceRefresh(ctx)
}

// MarkStale flags the current snapshot so the next query refreshes first.
func (e *Engine) MarkStale() {
	e.cache.MarkStale()
}

// Health reports the cache health without touching the snapshot.
func (e *Engine) Health() cache.Health {
	return e.cache.Health()
}

// urlBase returns the configured web base URL, or "" when links are off.
func (e *Engine) urlBase() string {
	return e.cfg.Store.URLBase
}
