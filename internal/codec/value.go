package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"
	"unicode/utf16"
)

// Wire tags of the tagged value format.
const (
	tagVersion       = 0xFF
	tagPadding       = 0x00
	tagUndefined     = '_'
	tagNull          = '0'
	tagTrue          = 'T'
	tagFalse         = 'F'
	tagInt           = 'I'
	tagUint          = 'U'
	tagDouble        = 'N'
	tagOneByteString = '"'
	tagTwoByteString = 'c'
	tagUTF8String    = 'S'
	tagDate          = 'D'
	tagBeginObject   = 'o'
	tagEndObject     = '{'
	tagBeginDense    = 'A'
	tagEndDense      = '$'
	tagBeginSparse   = 'a'
	tagEndSparse     = '@'
	tagBackref       = '^'
	tagHole          = '-'
)

// Decode limits. Nesting beyond maxDepth or an arena beyond maxArena means
// the input is malformed or hostile, not real application data.
const (
	maxDepth     = 64
	maxArena     = 1 << 20
	maxSparseLen = 1 << 20
)

// undefined marks a serialized `undefined`. Objects drop the property;
// arrays keep a nil element. It never escapes the decoder.
type undefined struct{}

type decoder struct {
	data  []byte
	pos   int
	depth int
	arena []any
}

// decodeTop consumes version headers, decodes the single top-level value,
// and requires the remainder to be padding only.
func (d *decoder) decodeTop() (any, error) {
	// Values are wrapped in one or two `0xFF <version>` envelope headers,
	// possibly separated by alignment padding.
	for {
		d.skipPadding()
		if d.pos >= len(d.data) || d.data[d.pos] != tagVersion {
			break
		}
		d.pos++
		if _, err := d.readUvarint(); err != nil {
			return nil, fmt.Errorf("version header: %w", err)
		}
	}

	v, err := d.decodeValue()
	if err != nil {
		return nil, err
	}
	if _, isUndef := v.(undefined); isUndef {
		v = nil
	}

	d.skipPadding()
	if d.pos != len(d.data) {
		return nil, fmt.Errorf("%d trailing bytes after value", len(d.data)-d.pos)
	}
	return v, nil
}

func (d *decoder) skipPadding() {
	for d.pos < len(d.data) && d.data[d.pos] == tagPadding {
		d.pos++
	}
}

func (d *decoder) decodeValue() (any, error) {
	d.skipPadding()
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagUndefined:
		return undefined{}, nil
	case tagHole:
		return undefined{}, nil
	case tagNull:
		return nil, nil
	case tagTrue:
		return true, nil
	case tagFalse:
		return false, nil

	case tagInt:
		u, err := d.readUvarint()
		if err != nil {
			return nil, fmt.Errorf("int: %w", err)
		}
		// Zigzag: sign in the low bit.
		return int64(u>>1) ^ -int64(u&1), nil

	case tagUint:
		u, err := d.readUvarint()
		if err != nil {
			return nil, fmt.Errorf("uint: %w", err)
		}
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("uint %d overflows", u)
		}
		return int64(u), nil

	case tagDouble:
		bits, err := d.readFixed64()
		if err != nil {
			return nil, fmt.Errorf("double: %w", err)
		}
		return math.Float64frombits(bits), nil

	case tagOneByteString:
		return d.readOneByteString()
	case tagTwoByteString:
		return d.readTwoByteString()
	case tagUTF8String:
		b, err := d.readLengthPrefixed()
		if err != nil {
			return nil, fmt.Errorf("utf8 string: %w", err)
		}
		return string(b), nil

	case tagDate:
		bits, err := d.readFixed64()
		if err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}
		ms := math.Float64frombits(bits)
		if math.IsNaN(ms) || math.IsInf(ms, 0) {
			return nil, fmt.Errorf("date is not a finite timestamp")
		}
		t := time.UnixMilli(int64(ms)).UTC()
		if err := d.register(t); err != nil {
			return nil, err
		}
		return t, nil

	case tagBeginObject:
		return d.decodeObject()
	case tagBeginDense:
		return d.decodeDenseArray()
	case tagBeginSparse:
		return d.decodeSparseArray()

	case tagBackref:
		idx, err := d.readUvarint()
		if err != nil {
			return nil, fmt.Errorf("back-reference: %w", err)
		}
		if idx >= uint64(len(d.arena)) {
			return nil, fmt.Errorf("back-reference %d outside arena of %d", idx, len(d.arena))
		}
		return Ref(idx), nil

	default:
		return nil, fmt.Errorf("unknown value tag 0x%02x at %d", tag, d.pos-1)
	}
}

// decodeObject reads key/value pairs until the end tag. The object claims
// its arena slot before its contents so a back-reference inside can name it.
func (d *decoder) decodeObject() (any, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	obj := make(map[string]any)
	if err := d.register(obj); err != nil {
		return nil, err
	}

	read := uint64(0)
	for {
		d.skipPadding()
		if d.peek() == tagEndObject {
			d.pos++
			break
		}
		key, err := d.decodePropertyKey()
		if err != nil {
			return nil, err
		}
		val, err := d.decodeValue()
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", key, err)
		}
		read++
		if _, isUndef := val.(undefined); isUndef {
			continue // undefined property is absent
		}
		obj[key] = val
	}

	count, err := d.readUvarint()
	if err != nil {
		return nil, fmt.Errorf("object property count: %w", err)
	}
	if count != read {
		return nil, fmt.Errorf("object declares %d properties, has %d", count, read)
	}
	return obj, nil
}

// decodeDenseArray reads a fixed element count, then any named properties
// until the end tag.
func (d *decoder) decodeDenseArray() (any, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	length, err := d.readUvarint()
	if err != nil {
		return nil, fmt.Errorf("array length: %w", err)
	}
	if length > uint64(len(d.data)-d.pos) {
		return nil, fmt.Errorf("array length %d exceeds remaining input", length)
	}

	arr := make([]any, length)
	if err := d.register(arr); err != nil {
		return nil, err
	}

	for i := range arr {
		v, err := d.decodeValue()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if _, isUndef := v.(undefined); isUndef {
			v = nil
		}
		arr[i] = v
	}

	// Arrays may carry named properties after their elements. They have no
	// place in a plain slice; validate and drop them.
	props := uint64(0)
	for {
		d.skipPadding()
		if d.peek() == tagEndDense {
			d.pos++
			break
		}
		key, err := d.decodePropertyKey()
		if err != nil {
			return nil, err
		}
		if _, err := d.decodeValue(); err != nil {
			return nil, fmt.Errorf("array property %q: %w", key, err)
		}
		props++
	}

	count, err := d.readUvarint()
	if err != nil {
		return nil, fmt.Errorf("array property count: %w", err)
	}
	echo, err := d.readUvarint()
	if err != nil {
		return nil, fmt.Errorf("array length echo: %w", err)
	}
	if count != props || echo != length {
		return nil, fmt.Errorf("array trailer (%d props, length %d) does not match body (%d, %d)",
			count, echo, props, length)
	}
	return arr, nil
}

// decodeSparseArray reads index/value pairs until the end tag, placing
// integer indices into a slice of the declared length.
func (d *decoder) decodeSparseArray() (any, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	length, err := d.readUvarint()
	if err != nil {
		return nil, fmt.Errorf("sparse array length: %w", err)
	}
	// The declared length is a JS array length, not an element count, so it
	// cannot be bounded by the remaining input the way a dense length can.
	if length > maxSparseLen {
		return nil, fmt.Errorf("sparse array length %d exceeds limit", length)
	}

	arr := make([]any, length)
	if err := d.register(arr); err != nil {
		return nil, err
	}

	read := uint64(0)
	for {
		d.skipPadding()
		if d.peek() == tagEndSparse {
			d.pos++
			break
		}
		key, err := d.decodeValue()
		if err != nil {
			return nil, fmt.Errorf("sparse key: %w", err)
		}
		val, err := d.decodeValue()
		if err != nil {
			return nil, fmt.Errorf("sparse value: %w", err)
		}
		read++
		if _, isUndef := val.(undefined); isUndef {
			continue
		}
		if idx, ok := arrayIndex(key, length); ok {
			arr[idx] = val
		}
		// Non-index keys are named properties; dropped like dense arrays'.
	}

	count, err := d.readUvarint()
	if err != nil {
		return nil, fmt.Errorf("sparse array property count: %w", err)
	}
	echo, err := d.readUvarint()
	if err != nil {
		return nil, fmt.Errorf("sparse array length echo: %w", err)
	}
	if count != read || echo != length {
		return nil, fmt.Errorf("sparse array trailer (%d props, length %d) does not match body (%d, %d)",
			count, echo, read, length)
	}
	return arr, nil
}

// decodePropertyKey reads one object key, which the writer serializes as a
// string or a number.
func (d *decoder) decodePropertyKey() (string, error) {
	v, err := d.decodeValue()
	if err != nil {
		return "", fmt.Errorf("property key: %w", err)
	}
	switch k := v.(type) {
	case string:
		return k, nil
	case int64:
		return strconv.FormatInt(k, 10), nil
	case float64:
		return strconv.FormatFloat(k, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("property key is %T, not a string or number", v)
	}
}

func arrayIndex(key any, length uint64) (int, bool) {
	var idx int64
	switch k := key.(type) {
	case int64:
		idx = k
	case float64:
		if k != math.Trunc(k) {
			return 0, false
		}
		idx = int64(k)
	case string:
		n, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return 0, false
		}
		idx = n
	default:
		return 0, false
	}
	if idx < 0 || uint64(idx) >= length {
		return 0, false
	}
	return int(idx), true
}

func (d *decoder) register(v any) error {
	if len(d.arena) >= maxArena {
		return fmt.Errorf("arena exceeds %d values", maxArena)
	}
	d.arena = append(d.arena, v)
	return nil
}

func (d *decoder) enter() error {
	d.depth++
	if d.depth > maxDepth {
		return fmt.Errorf("nesting exceeds %d levels", maxDepth)
	}
	return nil
}

func (d *decoder) leave() { d.depth-- }

// peek returns the next byte without consuming it, or 0 at end of input.
func (d *decoder) peek() byte {
	if d.pos >= len(d.data) {
		return 0
	}
	return d.data[d.pos]
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, fmt.Errorf("unexpected end of input at %d", d.pos)
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.data[d.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("bad varint at %d", d.pos)
	}
	d.pos += n
	return v, nil
}

func (d *decoder) readFixed64() (uint64, error) {
	if len(d.data)-d.pos < 8 {
		return 0, fmt.Errorf("unexpected end of input at %d", d.pos)
	}
	v := binary.LittleEndian.Uint64(d.data[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *decoder) readLengthPrefixed() ([]byte, error) {
	n, err := d.readUvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(d.data)-d.pos) {
		return nil, fmt.Errorf("length %d exceeds remaining input", n)
	}
	b := d.data[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return b, nil
}

// readOneByteString decodes a Latin-1 string: each byte is the identically
// numbered Unicode code point.
func (d *decoder) readOneByteString() (string, error) {
	b, err := d.readLengthPrefixed()
	if err != nil {
		return "", fmt.Errorf("one-byte string: %w", err)
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes), nil
}

// readTwoByteString decodes UTF-16-LE code units.
func (d *decoder) readTwoByteString() (string, error) {
	b, err := d.readLengthPrefixed()
	if err != nil {
		return "", fmt.Errorf("two-byte string: %w", err)
	}
	if len(b)%2 != 0 {
		return "", fmt.Errorf("two-byte string has odd byte length %d", len(b))
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units)), nil
}
