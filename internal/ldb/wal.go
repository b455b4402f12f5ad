package ldb

import (
	"encoding/binary"
	"fmt"
)

// logReader replays a log-format file (write-ahead segment or manifest):
// a sequence of 32 KiB blocks holding checksummed physical records that
// reassemble into logical records. Replay stops silently at the first
// invalid physical record, which makes a truncated tail from an unclean
// shutdown indistinguishable from a clean end of file. Everything before
// the cut is returned intact.
type logReader struct {
	data []byte
	pos  int

	// truncated is set when replay ended before the end of the file.
	truncated bool
}

func newLogReader(data []byte) *logReader {
	return &logReader{data: data}
}

// next returns the next logical record, or nil when the file is exhausted
// or the remainder is unreadable.
func (r *logReader) next() []byte {
	var frag []byte
	assembling := false

	for {
		payload, typ, ok := r.nextPhysical()
		if !ok {
			// A partially written logical record at the tail is discarded.
			if assembling {
				r.truncated = true
			}
			return nil
		}

		switch typ {
		case recFull:
			if assembling {
				// A full record while mid-chain means the previous chain
				// was cut short; drop it and return the complete record.
				r.truncated = true
			}
			return payload
		case recFirst:
			if assembling {
				r.truncated = true
			}
			frag = append([]byte(nil), payload...)
			assembling = true
		case recMiddle:
			if !assembling {
				r.truncated = true
				return nil
			}
			frag = append(frag, payload...)
		case recLast:
			if !assembling {
				r.truncated = true
				return nil
			}
			return append(frag, payload...)
		default:
			r.truncated = true
			return nil
		}
	}
}

// nextPhysical reads one physical record, skipping block padding.
func (r *logReader) nextPhysical() (payload []byte, typ byte, ok bool) {
	for {
		blockRemaining := blockSize - r.pos%blockSize
		if blockRemaining < logHeaderSize {
			// Trailing bytes of a block are padding.
			r.pos += blockRemaining
			continue
		}
		if r.pos+logHeaderSize > len(r.data) {
			if r.pos < len(r.data) {
				r.truncated = true
			}
			return nil, 0, false
		}

		header := r.data[r.pos : r.pos+logHeaderSize]
		storedCRC := binary.LittleEndian.Uint32(header[0:4])
		length := int(binary.LittleEndian.Uint16(header[4:6]))
		typ = header[6]

		if typ == recZero && length == 0 && storedCRC == 0 {
			// Preallocated padding; skip to the next block.
			r.pos += blockRemaining
			continue
		}

		if logHeaderSize+length > blockRemaining || r.pos+logHeaderSize+length > len(r.data) {
			r.truncated = true
			return nil, 0, false
		}

		payload = r.data[r.pos+logHeaderSize : r.pos+logHeaderSize+length]
		if unmaskCRC(storedCRC) != recordCRC(typ, payload) {
			r.truncated = true
			return nil, 0, false
		}

		r.pos += logHeaderSize + length
		return payload, typ, true
	}
}

// parseBatch decodes one write batch from the write-ahead segment and calls
// fn for each entry. Entry i of a batch carries sequence base+i. A batch that
// passed its record checksum but is structurally invalid is real corruption,
// not a truncated tail.
func parseBatch(rec []byte, fn func(seq uint64, typ byte, key, value []byte) error) error {
	if len(rec) < 12 {
		return fmt.Errorf("write batch too short: %d bytes", len(rec))
	}
	base := binary.LittleEndian.Uint64(rec[0:8])
	count := binary.LittleEndian.Uint32(rec[8:12])
	if count > maxBatchCount {
		return fmt.Errorf("write batch count %d out of range", count)
	}

	pos := 12
	for i := uint32(0); i < count; i++ {
		if pos >= len(rec) {
			return fmt.Errorf("write batch ends after %d of %d entries", i, count)
		}
		typ := rec[pos]
		pos++

		var key, value []byte
		var ok bool
		switch typ {
		case typeValue:
			key, pos, ok = varslice(rec, pos)
			if !ok {
				return fmt.Errorf("write batch entry %d: bad key", i)
			}
			value, pos, ok = varslice(rec, pos)
			if !ok {
				return fmt.Errorf("write batch entry %d: bad value", i)
			}
		case typeDeletion:
			key, pos, ok = varslice(rec, pos)
			if !ok {
				return fmt.Errorf("write batch entry %d: bad key", i)
			}
		default:
			return fmt.Errorf("write batch entry %d: unknown type %d", i, typ)
		}

		if err := fn(base+uint64(i), typ, key, value); err != nil {
			return err
		}
	}
	if pos != len(rec) {
		return fmt.Errorf("write batch has %d trailing bytes", len(rec)-pos)
	}
	return nil
}
