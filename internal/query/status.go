package query

import (
	"context"

	"tkb/internal/cache"
	"tkb/internal/output"
	"tkb/internal/snapshot"
)

// SnapshotInfo identifies the snapshot status was answered from.
type SnapshotInfo struct {
	Generation uint64 `json:"generation"`
	SnapshotID string `json:"snapshotId"`
	AsOf       string `json:"asOf"`
	AgeSeconds int64  `json:"ageSeconds"`
	Stale      bool   `json:"stale,omitempty"`
	Degraded   bool   `json:"degraded,omitempty"`
}

// ScopeStatus echoes the configured account scope and how it resolved.
type ScopeStatus struct {
	AccountEmails  []string              `json:"accountEmails,omitempty"`
	UserAccountIDs []string              `json:"userAccountIds,omitempty"`
	Report         *snapshot.ScopeReport `json:"report,omitempty"`
}

// StoreStatus echoes the effective store configuration.
type StoreStatus struct {
	Path                  string `json:"path"`
	MaxAgeSeconds         int    `json:"maxAgeSeconds"`
	RefreshTimeoutSeconds int    `json:"refreshTimeoutSeconds"`
}

// StatusResponse is the full health and snapshot summary.
type StatusResponse struct {
	Healthy  bool           `json:"healthy"`
	Health   cache.Health   `json:"health"`
	Snapshot *SnapshotInfo  `json:"snapshot,omitempty"`
	Entities map[string]int `json:"entities,omitempty"`
	Scope    ScopeStatus    `json:"scope"`
	Store    StoreStatus    `json:"store"`
}

// Status reports cache health and a summary of the current snapshot.
// It never fails: before the first successful materialization the
// snapshot section is simply absent and Healthy is false.
func (e *Engine) Status(ctx context.Context) *StatusResponse {
	resp := &StatusResponse{
		Scope: ScopeStatus{
			AccountEmails:  e.cfg.Scope.AccountEmails,
			UserAccountIDs: e.cfg.Scope.UserAccountIDs,
		},
		Store: StoreStatus{
			Path:                  e.cfg.Store.Path,
			MaxAgeSeconds:         e.cfg.Cache.MaxAgeSeconds,
			RefreshTimeoutSeconds: e.cfg.Cache.RefreshTimeoutSeconds,
		},
	}

	s, fr, err := e.snap(ctx)
	health := e.cache.Health()
	resp.Health = health
	resp.Healthy = err == nil && health.State == cache.StateHealthy
	if err != nil || s == nil {
		return resp
	}

	resp.Snapshot = &SnapshotInfo{
		Generation: fr.Generation,
		SnapshotID: fr.SnapshotID,
		AsOf:       output.FormatTime(fr.AsOf),
		AgeSeconds: fr.AgeSeconds,
		Stale:      fr.Stale,
		Degraded:   fr.Degraded,
	}

	counts := s.Counts()
	entities := make(map[string]int, len(counts))
	for kind, n := range counts {
		entities[string(kind)] = n
	}
	resp.Entities = entities
	if s.Report.Scope.Enabled {
		report := s.Report.Scope
		resp.Scope.Report = &report
	}
	return resp
}
