package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	tkberrors "tkb/internal/errors"
	"tkb/internal/snapshot"
)

const (
	// DefaultMaxAge is how old a snapshot may grow before a query triggers
	// a synchronous refresh.
	DefaultMaxAge = 5 * time.Minute
	// DefaultRefreshWait bounds how long a query waits for that refresh
	// before falling back to the previous snapshot.
	DefaultRefreshWait = 10 * time.Second
)

// Materializer builds one snapshot per call. *snapshot.Builder satisfies it.
type Materializer interface {
	Materialize(ctx context.Context, generation uint64) (*snapshot.Snapshot, error)
}

// Options configures a Manager.
type Options struct {
	MaxAge      time.Duration
	RefreshWait time.Duration
	Logger      *slog.Logger
	// Clock is the time source; tests inject one to age snapshots without
	// sleeping.
	Clock func() time.Time
}

// Manager serves the current snapshot and coalesces refreshes. Any number
// of queries may run concurrently; at most one materialization runs at a
// time, and every waiter shares its outcome.
type Manager struct {
	builder Materializer
	maxAge  time.Duration
	wait    time.Duration
	logger  *slog.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	current atomic.Pointer[snapshot.Snapshot]

	mu       sync.Mutex
	health   Health
	gen      uint64
	stale    bool
	inflight chan struct{}
	lastErr  error
}

func New(builder Materializer, opts Options) *Manager {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.RefreshWait <= 0 {
		opts.RefreshWait = DefaultRefreshWait
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		builder: builder,
		maxAge:  opts.MaxAge,
		wait:    opts.RefreshWait,
		logger:  opts.Logger,
		now:     opts.Clock,
		ctx:     ctx,
		cancel:  cancel,
		health:  Health{State: StateHealthy},
	}
}

// Close stops any in-flight refresh. The manager stays readable.
func (m *Manager) Close() {
	m.cancel()
}

// Snapshot returns a snapshot to answer a query from. A fresh snapshot
// returns immediately. A missing, stale, or marked-stale snapshot triggers
// a refresh; the call waits up to the configured bound, then answers from
// the previous snapshot with Stale set rather than failing. Only a process
// that has never completed a refresh returns NO_SNAPSHOT.
func (m *Manager) Snapshot(ctx context.Context) (*snapshot.Snapshot, Freshness, error) {
	cur := m.current.Load()
	if cur != nil && !m.needsRefresh(cur) {
		return cur, m.freshnessFor(cur), nil
	}

	done := m.startRefresh()
	timer := time.NewTimer(m.wait)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		m.logger.Warn("refresh exceeded wait bound, answering from previous snapshot",
			"wait", m.wait)
	case <-ctx.Done():
		return nil, Freshness{}, ctx.Err()
	}

	cur = m.current.Load()
	if cur == nil {
		m.mu.Lock()
		cause := m.lastErr
		m.mu.Unlock()
		return nil, Freshness{}, tkberrors.NewNoSnapshot(cause)
	}
	return cur, m.freshnessFor(cur), nil
}

// Refresh materializes synchronously and reports the failure, for callers
// that need the outcome (startup warm-up, the refresh command).
func (m *Manager) Refresh(ctx context.Context) error {
	done := m.startRefresh()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.health.State == StateDegraded {
		return m.lastErr
	}
	return nil
}

// ForceRefresh runs a refresh and absorbs any failure into the health
// state. It is the reconnect hook's entry point and must never take the
// host process down; calling it redundantly is harmless.
func (m *Manager) ForceRefresh(ctx context.Context) Health {
	done := m.startRefresh()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return m.Health()
}

// MarkStale makes the next query refresh regardless of snapshot age. The
// mark clears only on a successful refresh.
func (m *Manager) MarkStale() {
	m.mu.Lock()
	m.stale = true
	m.mu.Unlock()
}

// Health returns a copy of the current health state.
func (m *Manager) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}

// Freshness describes the current snapshot without triggering a refresh.
// ok is false before the first successful materialization.
func (m *Manager) Freshness() (Freshness, bool) {
	cur := m.current.Load()
	if cur == nil {
		return Freshness{}, false
	}
	return m.freshnessFor(cur), true
}

func (m *Manager) needsRefresh(cur *snapshot.Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stale || m.now().Sub(cur.AsOf) > m.maxAge
}

func (m *Manager) freshnessFor(cur *snapshot.Snapshot) Freshness {
	m.mu.Lock()
	defer m.mu.Unlock()
	age := m.now().Sub(cur.AsOf)
	return Freshness{
		Generation: cur.Generation,
		SnapshotID: cur.ID,
		AsOf:       cur.AsOf,
		AgeSeconds: int64(age.Seconds()),
		Stale:      m.stale || age > m.maxAge,
		Degraded:   m.health.State == StateDegraded,
	}
}

// startRefresh returns the in-flight refresh's completion channel, starting
// a new refresh if none is running.
func (m *Manager) startRefresh() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight != nil {
		return m.inflight
	}
	done := make(chan struct{})
	m.inflight = done
	go m.runRefresh(m.gen+1, done)
	return done
}

func (m *Manager) runRefresh(gen uint64, done chan struct{}) {
	snap, err := m.builder.Materialize(m.ctx, gen)
	now := m.now()

	m.mu.Lock()
	m.health.LastAttemptAt = &now
	if err != nil {
		m.health.State = StateDegraded
		m.health.FailureCount++
		m.health.Reason = string(tkberrors.CodeOf(err))
		m.health.LastError = err.Error()
		m.health.LastErrorAt = &now
		m.lastErr = err
		m.logger.Error("snapshot refresh failed",
			"generation", gen,
			"failureCount", m.health.FailureCount,
			"error", err)
	} else {
		m.current.Store(snap)
		m.gen = gen
		m.stale = false
		m.health.State = StateHealthy
		m.health.FailureCount = 0
		m.health.Reason = ""
		m.health.LastSuccessAt = &now
	}
	m.inflight = nil
	m.mu.Unlock()
	close(done)
}
