// Package testutil builds synthetic store fixtures for tests: an encoder
// for the tagged value format and a builder that lays complete store
// directories on disk. It is the write-side mirror of the read-only
// production path and must stay test-only.
package testutil

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"
)

// Wire tags duplicated from the decoder; a fixture writer keeps its own
// copy so encoder bugs cannot cancel out decoder bugs.
const (
	tagVersion     = 0xFF
	tagNull        = '0'
	tagTrue        = 'T'
	tagFalse       = 'F'
	tagInt         = 'I'
	tagDouble      = 'N'
	tagUTF8String  = 'S'
	tagDate        = 'D'
	tagBeginObject = 'o'
	tagEndObject   = '{'
	tagBeginDense  = 'A'
	tagEndDense    = '$'

	keyTagBinary = 0x30
	keyTagString = 0x31
	keyTagNumber = 0x32
	keyTagDate   = 0x33
)

// EncodeValue serializes v with the double version header the upstream
// writer emits. Map keys are sorted so identical input yields identical
// bytes.
func EncodeValue(v any) []byte {
	b := []byte{tagVersion}
	b = binary.AppendUvarint(b, 15)
	b = append(b, tagVersion)
	b = binary.AppendUvarint(b, 13)
	return appendValue(b, v)
}

func appendValue(b []byte, v any) []byte {
	switch val := v.(type) {
	case nil:
		return append(b, tagNull)
	case bool:
		if val {
			return append(b, tagTrue)
		}
		return append(b, tagFalse)
	case int:
		return appendZigzag(append(b, tagInt), int64(val))
	case int64:
		return appendZigzag(append(b, tagInt), val)
	case float64:
		b = append(b, tagDouble)
		return binary.LittleEndian.AppendUint64(b, math.Float64bits(val))
	case string:
		b = append(b, tagUTF8String)
		b = binary.AppendUvarint(b, uint64(len(val)))
		return append(b, val...)
	case time.Time:
		b = append(b, tagDate)
		return binary.LittleEndian.AppendUint64(b, math.Float64bits(float64(val.UnixMilli())))
	case []string:
		elems := make([]any, len(val))
		for i, s := range val {
			elems[i] = s
		}
		return appendDense(b, elems)
	case []any:
		return appendDense(b, val)
	case map[string]any:
		b = append(b, tagBeginObject)
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b = appendValue(b, k)
			b = appendValue(b, val[k])
		}
		b = append(b, tagEndObject)
		return binary.AppendUvarint(b, uint64(len(val)))
	default:
		panic(fmt.Sprintf("testutil: cannot encode %T", v))
	}
}

func appendDense(b []byte, elems []any) []byte {
	b = append(b, tagBeginDense)
	b = binary.AppendUvarint(b, uint64(len(elems)))
	for _, e := range elems {
		b = appendValue(b, e)
	}
	b = append(b, tagEndDense)
	b = binary.AppendUvarint(b, 0)
	return binary.AppendUvarint(b, uint64(len(elems)))
}

func appendZigzag(b []byte, v int64) []byte {
	return binary.AppendUvarint(b, uint64((v<<1)^(v>>63)))
}

// EncodeKey serializes a record key: object-store ID plus one primary-key
// scalar (string, float64, []byte, or time.Time).
func EncodeKey(storeID uint64, pk any) []byte {
	b := binary.AppendUvarint(nil, storeID)
	switch k := pk.(type) {
	case string:
		b = append(b, keyTagString)
		b = binary.AppendUvarint(b, uint64(len(k)))
		return append(b, k...)
	case float64:
		b = append(b, keyTagNumber)
		return binary.LittleEndian.AppendUint64(b, math.Float64bits(k))
	case []byte:
		b = append(b, keyTagBinary)
		b = binary.AppendUvarint(b, uint64(len(k)))
		return append(b, k...)
	case time.Time:
		b = append(b, keyTagDate)
		return binary.LittleEndian.AppendUint64(b, math.Float64bits(float64(k.UnixMilli())))
	default:
		panic(fmt.Sprintf("testutil: cannot encode key %T", pk))
	}
}
