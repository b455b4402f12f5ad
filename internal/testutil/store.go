package testutil

import (
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"
)

// Log-format constants duplicated from the reader.
const (
	blockSize     = 32 * 1024
	logHeaderSize = 7
	recFull       = 1
	recFirst      = 2
	recMiddle     = 3
	recLast       = 4

	typeDeletion = 0
	typeValue    = 1

	tagComparator     = 1
	tagLogNumber      = 2
	tagNextFileNumber = 3
	tagLastSequence   = 4

	maskDelta = 0xa282ead8
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

type storeOp struct {
	del   bool
	key   []byte
	value []byte
}

// StoreBuilder accumulates writes and lays them out as a store directory
// with a CURRENT pointer, a manifest, and a single write-ahead segment.
// Each write lands in its own batch with an increasing sequence, so later
// writes win the merge exactly as they would in the live store.
type StoreBuilder struct {
	t   *testing.T
	ops []storeOp
}

func NewStoreBuilder(t *testing.T) *StoreBuilder {
	t.Helper()
	return &StoreBuilder{t: t}
}

// Put records an entity write: fields are encoded with EncodeValue under a
// string primary key.
func (b *StoreBuilder) Put(storeID uint64, pk string, fields map[string]any) *StoreBuilder {
	return b.PutRaw(EncodeKey(storeID, pk), EncodeValue(fields))
}

// PutRaw records a write with caller-supplied raw bytes.
func (b *StoreBuilder) PutRaw(key, value []byte) *StoreBuilder {
	b.ops = append(b.ops, storeOp{key: key, value: value})
	return b
}

// Delete records a tombstone for the given key.
func (b *StoreBuilder) Delete(storeID uint64, pk string) *StoreBuilder {
	b.ops = append(b.ops, storeOp{del: true, key: EncodeKey(storeID, pk)})
	return b
}

// Write lays the store out under a fresh temp directory and returns its
// path.
func (b *StoreBuilder) Write() string {
	b.t.Helper()
	dir := b.t.TempDir()
	b.WriteTo(dir)
	return dir
}

// WriteTo lays the store out under dir, which must exist.
func (b *StoreBuilder) WriteTo(dir string) {
	b.t.Helper()

	var wal []byte
	for i, op := range b.ops {
		wal = appendLogRecord(wal, buildBatch(uint64(i+1), op))
	}

	var edit []byte
	edit = appendUvarintTag(edit, tagComparator)
	edit = appendVarslice(edit, []byte("leveldb.BytewiseComparator"))
	edit = appendUvarintTag(edit, tagLogNumber)
	edit = binary.AppendUvarint(edit, 5)
	edit = appendUvarintTag(edit, tagNextFileNumber)
	edit = binary.AppendUvarint(edit, 100)
	edit = appendUvarintTag(edit, tagLastSequence)
	edit = binary.AppendUvarint(edit, uint64(len(b.ops)+1))

	b.writeFile(filepath.Join(dir, "MANIFEST-000001"), appendLogRecord(nil, edit))
	b.writeFile(filepath.Join(dir, "CURRENT"), []byte("MANIFEST-000001\n"))
	b.writeFile(filepath.Join(dir, "000005.log"), wal)
}

func (b *StoreBuilder) writeFile(path string, data []byte) {
	b.t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		b.t.Fatalf("write %s: %v", path, err)
	}
}

func buildBatch(seq uint64, op storeOp) []byte {
	batch := make([]byte, 12)
	binary.LittleEndian.PutUint64(batch[0:8], seq)
	binary.LittleEndian.PutUint32(batch[8:12], 1)
	if op.del {
		batch = append(batch, typeDeletion)
		batch = appendVarslice(batch, op.key)
	} else {
		batch = append(batch, typeValue)
		batch = appendVarslice(batch, op.key)
		batch = appendVarslice(batch, op.value)
	}
	return batch
}

func appendLogRecord(buf, payload []byte) []byte {
	first := true
	for {
		remaining := blockSize - len(buf)%blockSize
		if remaining < logHeaderSize {
			for i := 0; i < remaining; i++ {
				buf = append(buf, 0)
			}
			continue
		}
		frag := payload
		if avail := remaining - logHeaderSize; len(frag) > avail {
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

		crc := crc32.Update(0, castagnoli, []byte{typ})
		crc = crc32.Update(crc, castagnoli, frag)
		masked := ((crc >> 15) | (crc << 17)) + maskDelta

		var header [logHeaderSize]byte
		binary.LittleEndian.PutUint32(header[0:4], masked)
		binary.LittleEndian.PutUint16(header[4:6], uint16(len(frag)))
		header[6] = typ
		buf = append(buf, header[:]...)
		buf = append(buf, frag...)

		if len(payload) == 0 {
			return buf
		}
	}
}

func appendUvarintTag(b []byte, tag uint64) []byte {
	return binary.AppendUvarint(b, tag)
}

func appendVarslice(b, s []byte) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}
