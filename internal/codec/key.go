package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Key scalar tags. A record key is a varint object-store ID followed by one
// tagged primary-key scalar.
const (
	keyTagBinary = 0x30
	keyTagString = 0x31
	keyTagNumber = 0x32
	keyTagDate   = 0x33
)

func decodeKey(key []byte) (storeID int64, primary any, err error) {
	id, n := binary.Uvarint(key)
	if n <= 0 {
		return 0, nil, fmt.Errorf("bad object-store ID varint")
	}
	if id > math.MaxInt64 {
		return 0, nil, fmt.Errorf("object-store ID %d overflows", id)
	}
	rest := key[n:]
	if len(rest) == 0 {
		return 0, nil, fmt.Errorf("key has no primary-key scalar")
	}

	tag := rest[0]
	rest = rest[1:]
	switch tag {
	case keyTagBinary:
		b, trailing, err := keyVarslice(rest)
		if err != nil {
			return 0, nil, fmt.Errorf("binary key: %w", err)
		}
		if trailing != 0 {
			return 0, nil, fmt.Errorf("binary key: %d trailing bytes", trailing)
		}
		return int64(id), append([]byte(nil), b...), nil

	case keyTagString:
		b, trailing, err := keyVarslice(rest)
		if err != nil {
			return 0, nil, fmt.Errorf("string key: %w", err)
		}
		if trailing != 0 {
			return 0, nil, fmt.Errorf("string key: %d trailing bytes", trailing)
		}
		return int64(id), string(b), nil

	case keyTagNumber:
		if len(rest) != 8 {
			return 0, nil, fmt.Errorf("number key has %d bytes, want 8", len(rest))
		}
		return int64(id), math.Float64frombits(binary.LittleEndian.Uint64(rest)), nil

	case keyTagDate:
		if len(rest) != 8 {
			return 0, nil, fmt.Errorf("date key has %d bytes, want 8", len(rest))
		}
		ms := math.Float64frombits(binary.LittleEndian.Uint64(rest))
		if math.IsNaN(ms) || math.IsInf(ms, 0) {
			return 0, nil, fmt.Errorf("date key is not a finite timestamp")
		}
		return int64(id), time.UnixMilli(int64(ms)).UTC(), nil

	default:
		return 0, nil, fmt.Errorf("unknown key tag 0x%02x", tag)
	}
}

func keyVarslice(b []byte) ([]byte, int, error) {
	n, w := binary.Uvarint(b)
	if w <= 0 {
		return nil, 0, fmt.Errorf("bad length varint")
	}
	b = b[w:]
	if n > uint64(len(b)) {
		return nil, 0, fmt.Errorf("length %d exceeds remaining %d bytes", n, len(b))
	}
	return b[:n], len(b) - int(n), nil
}
