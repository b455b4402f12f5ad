package snapshot

import (
	"tkb/internal/entity"
	"tkb/internal/ldb"
	"tkb/internal/shape"
)

// Report is the materialization report for one snapshot: what the pass
// read, what it could not use, and what it produced. Data-quality problems
// land here rather than failing the refresh.
type Report struct {
	DurationMS int64     `json:"durationMs"`
	Store      ldb.Stats `json:"store"`

	// RecordsDecoded counts live records that decoded cleanly, whatever
	// their classification.
	RecordsDecoded int `json:"recordsDecoded"`
	DecodeFailures int `json:"decodeFailures"`
	// MissingID counts classified records of materialized kinds that carry
	// no usable id field.
	MissingID int `json:"missingId,omitempty"`
	// Duplicates counts record versions dropped by per-kind deduplication.
	Duplicates int `json:"duplicates,omitempty"`
	// Dangling counts relational identifiers that resolve to nothing in
	// this snapshot.
	Dangling int `json:"danglingReferences"`

	// Records is the per-kind classified record count, before
	// deduplication and scope.
	Records          map[entity.Kind]int     `json:"records"`
	Unmatched        int                     `json:"unmatched"`
	Ambiguous        int                     `json:"ambiguous"`
	AmbiguousSamples []shape.AmbiguousSample `json:"ambiguousSamples,omitempty"`

	// Entities is the per-kind materialized entity count, after
	// deduplication and scope.
	Entities map[entity.Kind]int `json:"entities"`
	Scope    ScopeReport         `json:"scope"`
}
