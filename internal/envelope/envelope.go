// Package envelope defines the versioned response envelope that wraps
// every MCP tool reply and every JSON-mode CLI output.
//
// The envelope carries the data payload plus freshness metadata from the
// snapshot cache, so a client can always tell which snapshot generation
// answered the query and how old it was.
package envelope

import "time"

// CurrentSchemaVersion is the envelope schema version.
const CurrentSchemaVersion = "1.0"

// Truncation describes a list payload cut short by a limit.
type Truncation struct {
	IsTruncated bool `json:"isTruncated"`
	Shown       int  `json:"shown"`
	Total       int  `json:"total"`
}

// Meta carries snapshot freshness metadata for a response.
type Meta struct {
	Generation uint64      `json:"generation"`
	SnapshotID string      `json:"snapshotId"`
	AsOf       time.Time   `json:"asOf"`
	AgeSeconds int64       `json:"ageSeconds"`
	Stale      bool        `json:"stale,omitempty"`
	Degraded   bool        `json:"degraded,omitempty"`
	Truncation *Truncation `json:"truncation,omitempty"`
}

// Warning is a non-fatal notice attached to a response.
type Warning struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Response is the envelope for tool responses.
type Response struct {
	SchemaVersion string    `json:"schemaVersion"`
	Data          any       `json:"data,omitempty"`
	Meta          *Meta     `json:"meta,omitempty"`
	Warnings      []Warning `json:"warnings,omitempty"`
	Error         *string   `json:"error,omitempty"`
}
