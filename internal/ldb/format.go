package ldb

import (
	"encoding/binary"
	"hash/crc32"
)

// On-disk layout constants for the store's log-structured format.
const (
	// blockSize is the physical block size of log-format files (WAL, manifest).
	blockSize = 32 * 1024

	// logHeaderSize is the per-record header in log-format files:
	// crc32c (4) + length (2) + type (1).
	logHeaderSize = 7

	// footerSize is the fixed trailer of a sorted-table file:
	// two block handles padded to 40 bytes + 8-byte magic.
	footerSize = 48

	// blockTrailerSize follows every table block on disk:
	// compression type (1) + crc32c (4).
	blockTrailerSize = 5

	// tableMagic identifies a sorted-table file footer.
	tableMagic = uint64(0xdb4775248b80fb57)

	// maskDelta is the constant used to mask stored crc32c values so that
	// checksums of data containing embedded checksums stay well distributed.
	maskDelta = 0xa282ead8
)

// Physical record types in log-format files.
const (
	recZero   = 0 // preallocated block padding
	recFull   = 1
	recFirst  = 2
	recMiddle = 3
	recLast   = 4
)

// Entry types in write batches and internal keys.
const (
	typeDeletion = 0
	typeValue    = 1
)

// Block compression types.
const (
	compressionNone   = 0
	compressionSnappy = 1
)

// Version-edit field tags in the manifest.
const (
	tagComparator     = 1
	tagLogNumber      = 2
	tagNextFileNumber = 3
	tagLastSequence   = 4
	tagCompactPointer = 5
	tagDeletedFile    = 6
	tagNewFile        = 7
	tagPrevLogNumber  = 9
)

// Size guards against nonsense inputs. Real store files are a few MiB.
const (
	maxStoreFileSize = 512 << 20
	maxBatchCount    = 1 << 24
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// maskCRC returns the masked form of a crc32c value as stored on disk.
func maskCRC(c uint32) uint32 {
	return ((c >> 15) | (c << 17)) + maskDelta
}

// unmaskCRC reverses maskCRC.
func unmaskCRC(m uint32) uint32 {
	r := m - maskDelta
	return (r >> 17) | (r << 15)
}

// recordCRC computes the checksum covering the record type byte and payload,
// matching the writer's crc32c(type || data).
func recordCRC(typ byte, data []byte) uint32 {
	c := crc32.Update(0, castagnoli, []byte{typ})
	return crc32.Update(c, castagnoli, data)
}

// blockCRC computes the checksum covering a table block plus its type byte.
func blockCRC(data []byte, typ byte) uint32 {
	c := crc32.Update(0, castagnoli, data)
	return crc32.Update(c, castagnoli, []byte{typ})
}

// parseInternalKey splits a table key into user key, sequence, and type.
// The trailer is 8 bytes: (sequence << 8) | type, little-endian.
func parseInternalKey(ikey []byte) (userKey []byte, seq uint64, typ byte, ok bool) {
	if len(ikey) < 8 {
		return nil, 0, 0, false
	}
	trailer := binary.LittleEndian.Uint64(ikey[len(ikey)-8:])
	return ikey[:len(ikey)-8], trailer >> 8, byte(trailer & 0xff), true
}

// uvarint decodes an unsigned varint at data[pos], returning the value and
// the position after it. ok is false on truncation or overflow.
func uvarint(data []byte, pos int) (v uint64, next int, ok bool) {
	if pos < 0 || pos > len(data) {
		return 0, pos, false
	}
	v, n := binary.Uvarint(data[pos:])
	if n <= 0 {
		return 0, pos, false
	}
	return v, pos + n, true
}

// varslice decodes a varint-length-prefixed byte slice at data[pos].
func varslice(data []byte, pos int) (s []byte, next int, ok bool) {
	n, pos, ok := uvarint(data, pos)
	if !ok {
		return nil, pos, false
	}
	if n > uint64(len(data)-pos) {
		return nil, pos, false
	}
	return data[pos : pos+int(n)], pos + int(n), true
}
