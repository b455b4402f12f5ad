// Package output provides deterministic encoding and rendering for tool
// responses, ensuring that identical queries against the same snapshot
// produce byte-identical JSON. This keeps golden tests stable and lets
// clients cache replies by content.
//
// # JSON Encoding Rules
//
// The DeterministicEncode function produces byte-identical outputs by:
//
//  1. Stable key ordering: object keys are sorted alphabetically
//  2. Float formatting: rounded to max 6 decimal places, no trailing zeros
//  3. Null handling: nil fields are omitted entirely; empty lists stay []
//  4. Timestamps: values implementing json.Marshaler (time.Time) pass
//     through untouched and render as RFC 3339
//
// # Snapshot Comparison
//
// Envelope metadata carries per-refresh values (snapshot id, asOf, age)
// that differ between otherwise identical runs. NormalizeForComparison
// strips them so tests can compare full envelopes:
//
//	equal, msg := output.CompareNormalized(json1, json2)
//	if !equal {
//	    t.Errorf("responses differ: %s", msg)
//	}
package output
