// Package codec decodes raw store records: the varint-and-tag key format
// into a logical key path, and the tagged binary value format (the upstream
// runtime's structured-clone serialization) into plain Go values.
//
// Decoded composites live in a per-record arena. A back-reference in the
// wire format decodes to a Ref holding the arena index of the value it
// shares, never to an aliased pointer, so decoded trees stay acyclic and
// safe to marshal even when the wire data contains cycles.
package codec

import (
	"fmt"

	tkberrors "tkb/internal/errors"
)

// Ref is a decoded back-reference: an index into the record's arena.
type Ref int

// DecodedRecord is one store record in logical form.
type DecodedRecord struct {
	// KeyPath is [storeID, primaryKey]: the object-store ID followed by the
	// record's primary key scalar.
	KeyPath []any

	// Fields maps the record's top-level property names to decoded values.
	// Values are nil, bool, int64, float64, string, time.Time, []any,
	// map[string]any, or Ref.
	Fields map[string]any

	// Seq is the store sequence number that won the merge for this key.
	Seq uint64

	arena []any
}

// Decode parses one raw key/value pair. The value must decode to an object
// at the top level; anything else is a DecodeError, which callers count and
// skip rather than treat as fatal.
func Decode(key, value []byte, seq uint64) (*DecodedRecord, error) {
	storeID, primary, err := decodeKey(key)
	if err != nil {
		return nil, tkberrors.NewDecodeError("unreadable record key", err)
	}

	d := &decoder{data: value}
	top, err := d.decodeTop()
	if err != nil {
		return nil, tkberrors.NewDecodeError("unreadable record value", err)
	}
	fields, ok := top.(map[string]any)
	if !ok {
		return nil, tkberrors.NewDecodeError(
			fmt.Sprintf("record value is %T, not an object", top), nil)
	}

	return &DecodedRecord{
		KeyPath: []any{storeID, primary},
		Fields:  fields,
		Seq:     seq,
		arena:   d.arena,
	}, nil
}

// StoreID returns the object-store component of the key path.
func (r *DecodedRecord) StoreID() int64 {
	id, _ := r.KeyPath[0].(int64)
	return id
}

// PrimaryKey returns the primary-key component of the key path.
func (r *DecodedRecord) PrimaryKey() any {
	if len(r.KeyPath) < 2 {
		return nil
	}
	return r.KeyPath[1]
}

// Resolve maps a Ref to the arena value it names. Non-Ref values pass
// through unchanged. Arena slots never hold a bare Ref, so resolution is a
// single hop.
func (r *DecodedRecord) Resolve(v any) any {
	ref, ok := v.(Ref)
	if !ok {
		return v
	}
	if int(ref) < 0 || int(ref) >= len(r.arena) {
		return nil
	}
	return r.arena[int(ref)]
}

// Field returns the named top-level field with any back-reference resolved.
func (r *DecodedRecord) Field(name string) (any, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return nil, false
	}
	return r.Resolve(v), true
}
