package ldb

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/snappy"
)

// The helpers below are writers mirroring the reader's on-disk format, used
// to assemble synthetic stores for tests.

func appendUvarint(b []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(b, tmp[:n]...)
}

func appendVarslice(b []byte, s []byte) []byte {
	b = appendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

// appendLogRecord frames one physical record, splitting across 32 KiB block
// boundaries the way the store's writer does.
func appendLogRecord(buf []byte, payload []byte) []byte {
	first := true
	for {
		remaining := blockSize - len(buf)%blockSize
		if remaining < logHeaderSize {
			for i := 0; i < remaining; i++ {
				buf = append(buf, 0)
			}
			continue
		}
		avail := remaining - logHeaderSize
		frag := payload
		if len(frag) > avail {
			frag = payload[:avail]
		}
		payload = payload[len(frag):]

		var typ byte
		switch {
		case first && len(payload) == 0:
			typ = recFull
		case first:
			typ = recFirst
		case len(payload) == 0:
			typ = recLast
		default:
			typ = recMiddle
		}
		first = false

		var header [logHeaderSize]byte
		binary.LittleEndian.PutUint32(header[0:4], maskCRC(recordCRC(typ, frag)))
		binary.LittleEndian.PutUint16(header[4:6], uint16(len(frag)))
		header[6] = typ
		buf = append(buf, header[:]...)
		buf = append(buf, frag...)

		if len(payload) == 0 {
			return buf
		}
	}
}

type batchOp struct {
	typ   byte
	key   string
	value string
}

func put(key, value string) batchOp { return batchOp{typ: typeValue, key: key, value: value} }
func del(key string) batchOp        { return batchOp{typ: typeDeletion, key: key} }

// buildBatch serializes a write batch with the given base sequence.
func buildBatch(base uint64, ops []batchOp) []byte {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint64(b[0:8], base)
	binary.LittleEndian.PutUint32(b[8:12], uint32(len(ops)))
	for _, op := range ops {
		b = append(b, op.typ)
		b = appendVarslice(b, []byte(op.key))
		if op.typ == typeValue {
			b = appendVarslice(b, []byte(op.value))
		}
	}
	return b
}

type tableEntry struct {
	key   string
	seq   uint64
	typ   byte
	value string
}

// buildBlock serializes entries without prefix compression and appends the
// restart trailer.
func buildBlock(pairs [][2][]byte) []byte {
	var b []byte
	for _, p := range pairs {
		b = appendUvarint(b, 0) // shared
		b = appendUvarint(b, uint64(len(p[0])))
		b = appendUvarint(b, uint64(len(p[1])))
		b = append(b, p[0]...)
		b = append(b, p[1]...)
	}
	b = binary.LittleEndian.AppendUint32(b, 0) // restart offset
	b = binary.LittleEndian.AppendUint32(b, 1) // restart count
	return b
}

// appendBlockWithTrailer writes a block plus compression byte and checksum,
// returning the file and the block's handle.
func appendBlockWithTrailer(file []byte, block []byte, compress bool) ([]byte, blockHandle) {
	raw := block
	typ := byte(compressionNone)
	if compress {
		raw = snappy.Encode(nil, block)
		typ = compressionSnappy
	}
	h := blockHandle{offset: uint64(len(file)), size: uint64(len(raw))}
	file = append(file, raw...)
	file = append(file, typ)
	file = binary.LittleEndian.AppendUint32(file, maskCRC(blockCRC(raw, typ)))
	return file, h
}

// buildTable assembles a single-data-block sorted table. Entries must be in
// key order.
func buildTable(entries []tableEntry, compress bool) []byte {
	var dataPairs [][2][]byte
	var lastKey []byte
	for _, e := range entries {
		ikey := append([]byte(nil), e.key...)
		ikey = binary.LittleEndian.AppendUint64(ikey, e.seq<<8|uint64(e.typ))
		dataPairs = append(dataPairs, [2][]byte{ikey, []byte(e.value)})
		lastKey = ikey
	}

	var file []byte
	file, dataHandle := appendBlockWithTrailer(file, buildBlock(dataPairs), compress)
	file, metaHandle := appendBlockWithTrailer(file, buildBlock(nil), false)

	var handleEnc []byte
	handleEnc = appendUvarint(handleEnc, dataHandle.offset)
	handleEnc = appendUvarint(handleEnc, dataHandle.size)
	indexBlock := buildBlock([][2][]byte{{lastKey, handleEnc}})
	file, indexHandle := appendBlockWithTrailer(file, indexBlock, false)

	var footer []byte
	footer = appendUvarint(footer, metaHandle.offset)
	footer = appendUvarint(footer, metaHandle.size)
	footer = appendUvarint(footer, indexHandle.offset)
	footer = appendUvarint(footer, indexHandle.size)
	for len(footer) < footerSize-8 {
		footer = append(footer, 0)
	}
	footer = binary.LittleEndian.AppendUint64(footer, tableMagic)
	return append(file, footer...)
}

// Version-edit builders.

func editField(b []byte, tag uint64, values ...uint64) []byte {
	b = appendUvarint(b, tag)
	for _, v := range values {
		b = appendUvarint(b, v)
	}
	return b
}

func editNewFile(b []byte, level, number, size uint64, smallest, largest string) []byte {
	b = editField(b, tagNewFile, level, number, size)
	b = appendVarslice(b, []byte(smallest))
	b = appendVarslice(b, []byte(largest))
	return b
}

func editComparator(b []byte, name string) []byte {
	b = appendUvarint(b, tagComparator)
	return appendVarslice(b, []byte(name))
}

// writeStoreDir lays a complete store directory on disk: CURRENT, one
// manifest, and any table/log files keyed by file number.
func writeStoreDir(t *testing.T, dir string, manifestEdits [][]byte, tables map[uint64][]byte, logs map[uint64][]byte) {
	t.Helper()

	var manifest []byte
	for _, edit := range manifestEdits {
		manifest = appendLogRecord(manifest, edit)
	}
	writeFile(t, filepath.Join(dir, "MANIFEST-000001"), manifest)
	writeFile(t, filepath.Join(dir, "CURRENT"), []byte("MANIFEST-000001\n"))

	for num, data := range tables {
		writeFile(t, filepath.Join(dir, tableName(num)), data)
	}
	for num, data := range logs {
		writeFile(t, filepath.Join(dir, logName(num)), data)
	}
}

func tableName(num uint64) string { return fmt.Sprintf("%06d.ldb", num) }
func logName(num uint64) string   { return fmt.Sprintf("%06d.log", num) }

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// standardEdits returns the minimal manifest for a store whose active log is
// logNum and whose tables are listed.
func standardEdits(logNum uint64, tables ...uint64) [][]byte {
	var edit []byte
	edit = editComparator(edit, "leveldb.BytewiseComparator")
	edit = editField(edit, tagLogNumber, logNum)
	edit = editField(edit, tagNextFileNumber, 100)
	edit = editField(edit, tagLastSequence, 1000)
	for _, num := range tables {
		edit = editNewFile(edit, 0, num, 1024, "a", "z")
	}
	return [][]byte{edit}
}
