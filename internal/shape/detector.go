package shape

import (
	"sort"

	"tkb/internal/codec"
	"tkb/internal/entity"
)

// maxAmbiguousSamples bounds the field-set samples kept for diagnostics.
const maxAmbiguousSamples = 5

// AmbiguousSample records one record that matched several signatures.
type AmbiguousSample struct {
	Kinds  []string `json:"kinds"`
	Fields []string `json:"fields"`
}

// Report summarizes one classification pass.
type Report struct {
	Counts           map[entity.Kind]int `json:"counts"`
	Unmatched        int                 `json:"unmatched"`
	Ambiguous        int                 `json:"ambiguous"`
	AmbiguousSamples []AmbiguousSample   `json:"ambiguousSamples,omitempty"`
}

// Detector classifies records against one table and accumulates counts.
// It is created fresh for each materialization pass and is not safe for
// concurrent use.
type Detector struct {
	table     *Table
	counts    map[entity.Kind]int
	unmatched int
	ambiguous int
	samples   []AmbiguousSample
}

func NewDetector(table *Table) *Detector {
	return &Detector{
		table:  table,
		counts: make(map[entity.Kind]int),
	}
}

// Classify assigns the record's kind. Exactly one signature must match;
// zero or several matches yield Unknown, counted separately, never broken
// by preference or probability.
func (d *Detector) Classify(rec *codec.DecodedRecord) entity.Kind {
	matched := d.table.matchAll(rec.Fields, rec.Resolve)
	switch len(matched) {
	case 1:
		d.counts[matched[0]]++
		return matched[0]
	case 0:
		d.unmatched++
		return entity.KindUnknown
	default:
		d.ambiguous++
		if len(d.samples) < maxAmbiguousSamples {
			d.samples = append(d.samples, AmbiguousSample{
				Kinds:  kindNames(matched),
				Fields: fieldNames(rec.Fields),
			})
		}
		return entity.KindUnknown
	}
}

// Report returns the counts accumulated so far.
func (d *Detector) Report() Report {
	counts := make(map[entity.Kind]int, len(d.counts))
	for k, n := range d.counts {
		counts[k] = n
	}
	return Report{
		Counts:           counts,
		Unmatched:        d.unmatched,
		Ambiguous:        d.ambiguous,
		AmbiguousSamples: append([]AmbiguousSample(nil), d.samples...),
	}
}

func kindNames(kinds []entity.Kind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

func fieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
