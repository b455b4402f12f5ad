// Package cache owns the live snapshot: one atomic pointer the query layer
// reads, one refresh loop that replaces it, and the health state machine
// describing how the last attempts went. There is no terminal state; a
// degraded cache heals on the next successful refresh.
package cache

import "time"

// State is the cache health state.
type State string

const (
	StateHealthy  State = "healthy"
	StateDegraded State = "degraded"
)

// Health describes refresh outcomes for status output. LastError and
// LastErrorAt survive recovery as diagnostics; Reason describes the current
// degradation only and clears on success.
type Health struct {
	State         State      `json:"state"`
	FailureCount  int        `json:"failureCount"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	LastErrorAt   *time.Time `json:"lastErrorAt,omitempty"`
}

// Freshness describes the snapshot a query was answered from.
type Freshness struct {
	Generation uint64    `json:"generation"`
	SnapshotID string    `json:"snapshotId"`
	AsOf       time.Time `json:"asOf"`
	AgeSeconds int64     `json:"ageSeconds"`
	// Stale is set when the snapshot is older than the configured max age
	// or a stale mark is pending, and the answer was served anyway.
	Stale    bool `json:"stale,omitempty"`
	Degraded bool `json:"degraded,omitempty"`
}
