package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tkberrors "tkb/internal/errors"
	"tkb/internal/slogutil"
	"tkb/internal/snapshot"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeBuilder materializes header-only snapshots, optionally failing or
// blocking until a gate opens.
type fakeBuilder struct {
	clock *fakeClock

	mu    sync.Mutex
	calls int
	fail  error
	gate  chan struct{}
}

func (f *fakeBuilder) Materialize(ctx context.Context, gen uint64) (*snapshot.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	fail := f.fail
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}
	return &snapshot.Snapshot{
		Generation: gen,
		ID:         fmt.Sprintf("snap-%d", gen),
		AsOf:       f.clock.Now(),
	}, nil
}

func (f *fakeBuilder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeBuilder) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func newTestManager(t *testing.T) (*Manager, *fakeBuilder, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	fb := &fakeBuilder{clock: clock}
	m := New(fb, Options{
		MaxAge:      time.Minute,
		RefreshWait: 200 * time.Millisecond,
		Logger:      slogutil.NewDiscardLogger(),
		Clock:       clock.Now,
	})
	t.Cleanup(m.Close)
	return m, fb, clock
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestFirstQueryMaterializes(t *testing.T) {
	m, fb, _ := newTestManager(t)

	snap, fr, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Generation != 1 || fr.Generation != 1 || fr.SnapshotID != "snap-1" {
		t.Errorf("snapshot = gen %d, freshness = %+v", snap.Generation, fr)
	}
	if fr.Stale || fr.Degraded || fr.AgeSeconds != 0 {
		t.Errorf("freshness = %+v, want fresh", fr)
	}
	if h := m.Health(); h.State != StateHealthy || h.LastSuccessAt == nil {
		t.Errorf("health = %+v", h)
	}
	if fb.callCount() != 1 {
		t.Errorf("calls = %d", fb.callCount())
	}
}

func TestFreshSnapshotReused(t *testing.T) {
	m, fb, _ := newTestManager(t)

	first, _, _ := m.Snapshot(context.Background())
	second, _, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("fresh snapshot was rebuilt")
	}
	if fb.callCount() != 1 {
		t.Errorf("calls = %d, want 1", fb.callCount())
	}
}

func TestAgedSnapshotRefreshes(t *testing.T) {
	m, fb, clock := newTestManager(t)

	m.Snapshot(context.Background())
	clock.Advance(2 * time.Minute)

	snap, fr, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Generation != 2 || fr.Stale {
		t.Errorf("snapshot gen %d, freshness %+v", snap.Generation, fr)
	}
	if fb.callCount() != 2 {
		t.Errorf("calls = %d", fb.callCount())
	}
}

func TestFailedRefreshServesPreviousAsStale(t *testing.T) {
	m, fb, clock := newTestManager(t)

	m.Snapshot(context.Background())
	clock.Advance(2 * time.Minute)
	fb.setFail(tkberrors.NewStoreCorrupt("/store", "manifest unreadable", nil))

	snap, fr, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("stale fallback must not error, got %v", err)
	}
	if snap.Generation != 1 || !fr.Stale || !fr.Degraded {
		t.Errorf("snapshot gen %d, freshness %+v", snap.Generation, fr)
	}

	h := m.Health()
	if h.State != StateDegraded || h.FailureCount != 1 {
		t.Fatalf("health = %+v", h)
	}
	if h.Reason != "STORE_CORRUPT" || h.LastError == "" || h.LastErrorAt == nil {
		t.Errorf("health diagnostics = %+v", h)
	}

	// Recovery heals the state but keeps the last error as a diagnostic.
	fb.setFail(nil)
	snap, fr, err = m.Snapshot(context.Background())
	if err != nil || snap.Generation != 2 || fr.Stale {
		t.Fatalf("recovery: snap %v, fr %+v, err %v", snap, fr, err)
	}
	h = m.Health()
	if h.State != StateHealthy || h.FailureCount != 0 || h.Reason != "" {
		t.Errorf("healed health = %+v", h)
	}
	if h.LastError == "" || h.LastErrorAt == nil {
		t.Errorf("diagnostics dropped on recovery: %+v", h)
	}
}

func TestNoSnapshotBeforeFirstSuccess(t *testing.T) {
	m, fb, _ := newTestManager(t)
	fb.setFail(tkberrors.NewStoreNotFound("/store", nil))

	_, _, err := m.Snapshot(context.Background())
	if !tkberrors.HasCode(err, tkberrors.NoSnapshot) {
		t.Fatalf("err = %v, want NO_SNAPSHOT", err)
	}
	if h := m.Health(); h.State != StateDegraded || h.FailureCount != 1 {
		t.Errorf("health = %+v", h)
	}
	if _, ok := m.Freshness(); ok {
		t.Error("freshness reported before first success")
	}
}

func TestBoundedWaitServesPrevious(t *testing.T) {
	m, fb, clock := newTestManager(t)

	m.Snapshot(context.Background())
	clock.Advance(2 * time.Minute)

	gate := make(chan struct{})
	fb.mu.Lock()
	fb.gate = gate
	fb.mu.Unlock()

	start := time.Now()
	snap, fr, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Generation != 1 || !fr.Stale {
		t.Errorf("snapshot gen %d, freshness %+v", snap.Generation, fr)
	}
	if waited := time.Since(start); waited > 2*time.Second {
		t.Errorf("waited %v, want around the 200ms bound", waited)
	}

	// The abandoned refresh keeps running and lands for later queries.
	close(gate)
	waitFor(t, "background refresh", func() bool {
		fr, ok := m.Freshness()
		return ok && fr.Generation == 2
	})
}

func TestConcurrentQueriesCoalesce(t *testing.T) {
	m, fb, _ := newTestManager(t)

	gate := make(chan struct{})
	fb.mu.Lock()
	fb.gate = gate
	fb.mu.Unlock()
	time.AfterFunc(10*time.Millisecond, func() { close(gate) })

	const n = 8
	gens := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, _, err := m.Snapshot(context.Background())
			if err != nil {
				t.Errorf("Snapshot: %v", err)
				return
			}
			gens <- snap.Generation
		}()
	}
	wg.Wait()
	close(gens)

	for gen := range gens {
		if gen != 1 {
			t.Errorf("generation = %d, want 1", gen)
		}
	}
	if fb.callCount() != 1 {
		t.Errorf("calls = %d, want one coalesced refresh", fb.callCount())
	}
}

func TestMarkStaleForcesRefresh(t *testing.T) {
	m, fb, _ := newTestManager(t)

	m.Snapshot(context.Background())
	m.MarkStale()

	snap, fr, err := m.Snapshot(context.Background())
	if err != nil || snap.Generation != 2 || fr.Stale {
		t.Fatalf("snap %v, fr %+v, err %v", snap, fr, err)
	}

	// The mark survives a failed refresh and keeps forcing attempts until
	// one succeeds.
	m.MarkStale()
	fb.setFail(tkberrors.NewStoreCorrupt("/store", "bad block", nil))
	snap, fr, _ = m.Snapshot(context.Background())
	if snap.Generation != 2 || !fr.Stale {
		t.Fatalf("failed forced refresh: gen %d, fr %+v", snap.Generation, fr)
	}

	fb.setFail(nil)
	snap, fr, _ = m.Snapshot(context.Background())
	if snap.Generation != 3 || fr.Stale {
		t.Fatalf("after recovery: gen %d, fr %+v", snap.Generation, fr)
	}
}

func TestForceRefreshAbsorbsFailure(t *testing.T) {
	m, fb, _ := newTestManager(t)
	fb.setFail(tkberrors.NewStoreNotFound("/store", nil))

	h := m.ForceRefresh(context.Background())
	if h.State != StateDegraded || h.FailureCount != 1 {
		t.Fatalf("health = %+v", h)
	}

	fb.setFail(nil)
	h = m.ForceRefresh(context.Background())
	if h.State != StateHealthy {
		t.Fatalf("health = %+v", h)
	}
	if fr, ok := m.Freshness(); !ok || fr.Generation != 1 {
		t.Errorf("freshness = %+v, ok %v", fr, ok)
	}
}

func TestRefreshReturnsError(t *testing.T) {
	m, fb, _ := newTestManager(t)
	fb.setFail(tkberrors.NewStoreCorrupt("/store", "torn write", nil))

	err := m.Refresh(context.Background())
	if !tkberrors.HasCode(err, tkberrors.StoreCorrupt) {
		t.Fatalf("err = %v, want STORE_CORRUPT", err)
	}

	fb.setFail(nil)
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("recovered Refresh: %v", err)
	}
}
