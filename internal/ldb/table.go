package ldb

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/snappy"
)

// blockHandle locates a block within a table file.
type blockHandle struct {
	offset uint64
	size   uint64
}

func decodeBlockHandle(data []byte, pos int) (blockHandle, int, bool) {
	off, pos, ok := uvarint(data, pos)
	if !ok {
		return blockHandle{}, pos, false
	}
	size, pos, ok := uvarint(data, pos)
	if !ok {
		return blockHandle{}, pos, false
	}
	return blockHandle{offset: off, size: size}, pos, true
}

// readTableBlock extracts, verifies, and decompresses one block of a sorted
// table. Each block is followed on disk by a compression-type byte and a
// masked crc32c over data plus that byte.
func readTableBlock(file []byte, h blockHandle) ([]byte, error) {
	end := h.offset + h.size + blockTrailerSize
	if h.offset > uint64(len(file)) || end > uint64(len(file)) || end < h.offset {
		return nil, fmt.Errorf("block handle [%d,%d) outside file of %d bytes", h.offset, end, len(file))
	}
	raw := file[h.offset : h.offset+h.size]
	typ := file[h.offset+h.size]
	storedCRC := binary.LittleEndian.Uint32(file[h.offset+h.size+1 : h.offset+h.size+5])

	if unmaskCRC(storedCRC) != blockCRC(raw, typ) {
		return nil, fmt.Errorf("block at %d: checksum mismatch", h.offset)
	}

	switch typ {
	case compressionNone:
		return raw, nil
	case compressionSnappy:
		decoded, err := snappy.Decode(nil, raw)
		if err != nil {
			return nil, fmt.Errorf("block at %d: snappy: %w", h.offset, err)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("block at %d: unsupported compression type %d", h.offset, typ)
	}
}

// blockEntries walks the prefix-compressed entries of a table block in order,
// calling fn with each fully reassembled key and its value.
func blockEntries(block []byte, fn func(key, value []byte) error) error {
	if len(block) < 4 {
		return fmt.Errorf("block too short: %d bytes", len(block))
	}
	numRestarts := int(binary.LittleEndian.Uint32(block[len(block)-4:]))
	trailer := 4 + 4*numRestarts
	if numRestarts < 0 || trailer > len(block) {
		return fmt.Errorf("block restart count %d out of range", numRestarts)
	}
	entries := block[:len(block)-trailer]

	var key []byte
	pos := 0
	for pos < len(entries) {
		shared, next, ok := uvarint(entries, pos)
		if !ok {
			return fmt.Errorf("block entry at %d: bad shared length", pos)
		}
		unshared, next, ok := uvarint(entries, next)
		if !ok {
			return fmt.Errorf("block entry at %d: bad unshared length", pos)
		}
		valueLen, next, ok := uvarint(entries, next)
		if !ok {
			return fmt.Errorf("block entry at %d: bad value length", pos)
		}
		if shared > uint64(len(key)) {
			return fmt.Errorf("block entry at %d: shared prefix %d exceeds previous key", pos, shared)
		}
		if uint64(len(entries)-next) < unshared+valueLen {
			return fmt.Errorf("block entry at %d: overruns block", pos)
		}

		key = append(key[:shared], entries[next:next+int(unshared)]...)
		next += int(unshared)
		value := entries[next : next+int(valueLen)]
		next += int(valueLen)

		// Keys alias a shared buffer rebuilt per entry; hand out a copy.
		if err := fn(append([]byte(nil), key...), value); err != nil {
			return err
		}
		pos = next
	}
	return nil
}

// readTable parses one immutable sorted segment and streams its entries in
// key order: footer, then index block, then each data block it points at.
func readTable(file []byte, fn func(userKey []byte, seq uint64, typ byte, value []byte) error) error {
	if len(file) < footerSize {
		return fmt.Errorf("table file too short: %d bytes", len(file))
	}
	footer := file[len(file)-footerSize:]
	if binary.LittleEndian.Uint64(footer[footerSize-8:]) != tableMagic {
		return fmt.Errorf("bad table magic")
	}

	// Metaindex handle is decoded and ignored; filters are irrelevant to a
	// full scan.
	_, pos, ok := decodeBlockHandle(footer, 0)
	if !ok {
		return fmt.Errorf("bad metaindex handle")
	}
	indexHandle, _, ok := decodeBlockHandle(footer, pos)
	if !ok {
		return fmt.Errorf("bad index handle")
	}

	index, err := readTableBlock(file, indexHandle)
	if err != nil {
		return fmt.Errorf("index block: %w", err)
	}

	return blockEntries(index, func(_, handleEnc []byte) error {
		h, _, ok := decodeBlockHandle(handleEnc, 0)
		if !ok {
			return fmt.Errorf("bad data block handle in index")
		}
		block, err := readTableBlock(file, h)
		if err != nil {
			return err
		}
		return blockEntries(block, func(ikey, value []byte) error {
			userKey, seq, typ, ok := parseInternalKey(ikey)
			if !ok {
				return fmt.Errorf("internal key too short: %d bytes", len(ikey))
			}
			return fn(userKey, seq, typ, value)
		})
	})
}
