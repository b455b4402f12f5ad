package ldb

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestLogReaderSingleRecord(t *testing.T) {
	payload := []byte("hello store")
	data := appendLogRecord(nil, payload)

	r := newLogReader(data)
	got := r.next()
	if !bytes.Equal(got, payload) {
		t.Fatalf("record = %q, want %q", got, payload)
	}
	if r.next() != nil {
		t.Fatal("expected end of log after one record")
	}
	if r.truncated {
		t.Fatal("clean log marked truncated")
	}
}

func TestLogReaderMultipleRecords(t *testing.T) {
	records := [][]byte{
		[]byte("first"),
		[]byte(""),
		bytes.Repeat([]byte("x"), 500),
	}
	var data []byte
	for _, rec := range records {
		data = appendLogRecord(data, rec)
	}

	r := newLogReader(data)
	for i, want := range records {
		got := r.next()
		if !bytes.Equal(got, want) {
			t.Fatalf("record %d = %q, want %q", i, got, want)
		}
	}
	if r.next() != nil {
		t.Fatal("expected end of log")
	}
}

func TestLogReaderFragmentedRecord(t *testing.T) {
	// Larger than two blocks forces a first/middle/last chain.
	payload := bytes.Repeat([]byte{0xAB}, 3*blockSize)
	data := appendLogRecord(nil, payload)
	if len(data) <= 3*blockSize {
		t.Fatalf("expected fragmentation overhead, got %d bytes", len(data))
	}

	r := newLogReader(data)
	got := r.next()
	if !bytes.Equal(got, payload) {
		t.Fatalf("reassembled %d bytes, want %d", len(got), len(payload))
	}
	if r.truncated {
		t.Fatal("fragmented record marked truncated")
	}
}

func TestLogReaderBlockTailPadding(t *testing.T) {
	// Fill a block to within a few bytes of its end so the next record has
	// to start in the following block.
	first := bytes.Repeat([]byte("p"), blockSize-logHeaderSize-3)
	second := []byte("after padding")
	data := appendLogRecord(nil, first)
	data = appendLogRecord(data, second)

	r := newLogReader(data)
	if got := r.next(); !bytes.Equal(got, first) {
		t.Fatalf("first record length = %d, want %d", len(got), len(first))
	}
	if got := r.next(); !bytes.Equal(got, second) {
		t.Fatalf("second record = %q, want %q", got, second)
	}
}

func TestLogReaderStopsAtCorruptRecord(t *testing.T) {
	data := appendLogRecord(nil, []byte("good"))
	cut := len(data)
	data = appendLogRecord(data, []byte("bad"))
	data[cut+logHeaderSize] ^= 0xFF // flip a payload byte under the checksum

	r := newLogReader(data)
	if got := r.next(); !bytes.Equal(got, []byte("good")) {
		t.Fatalf("record = %q, want %q", got, "good")
	}
	if r.next() != nil {
		t.Fatal("corrupt record should end replay")
	}
	if !r.truncated {
		t.Fatal("corrupt tail not flagged as truncated")
	}
}

func TestLogReaderTruncatedTail(t *testing.T) {
	data := appendLogRecord(nil, []byte("kept"))
	data = appendLogRecord(data, []byte("will be cut"))
	data = data[:len(data)-4]

	r := newLogReader(data)
	if got := r.next(); !bytes.Equal(got, []byte("kept")) {
		t.Fatalf("record = %q, want %q", got, "kept")
	}
	if r.next() != nil {
		t.Fatal("truncated record should end replay")
	}
	if !r.truncated {
		t.Fatal("truncation not flagged")
	}
}

func TestLogReaderDanglingFirstFragment(t *testing.T) {
	payload := bytes.Repeat([]byte("f"), 2*blockSize)
	data := appendLogRecord(nil, payload)
	// Keep only the opening fragment of the chain.
	data = data[:blockSize]

	r := newLogReader(data)
	if r.next() != nil {
		t.Fatal("incomplete chain should yield no record")
	}
	if !r.truncated {
		t.Fatal("dangling fragment not flagged as truncated")
	}
}

func TestParseBatchPutAndDelete(t *testing.T) {
	rec := buildBatch(41, []batchOp{
		put("alpha", "1"),
		del("beta"),
		put("gamma", "three"),
	})

	type seen struct {
		seq      uint64
		typ      byte
		key, val string
	}
	var got []seen
	err := parseBatch(rec, func(seq uint64, typ byte, key, value []byte) error {
		got = append(got, seen{seq, typ, string(key), string(value)})
		return nil
	})
	if err != nil {
		t.Fatalf("parseBatch: %v", err)
	}

	want := []seen{
		{41, typeValue, "alpha", "1"},
		{42, typeDeletion, "beta", ""},
		{43, typeValue, "gamma", "three"},
	}
	if len(got) != len(want) {
		t.Fatalf("entries = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseBatchRejectsMalformed(t *testing.T) {
	valid := buildBatch(1, []batchOp{put("k", "v")})

	tests := []struct {
		name string
		rec  []byte
	}{
		{"too short", valid[:8]},
		{"trailing bytes", append(append([]byte(nil), valid...), 0x00)},
		{"unknown entry type", func() []byte {
			b := append([]byte(nil), valid...)
			b[12] = 7
			return b
		}()},
		{"count overruns data", func() []byte {
			b := append([]byte(nil), valid...)
			binary.LittleEndian.PutUint32(b[8:12], 5)
			return b
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseBatch(tt.rec, func(uint64, byte, []byte, []byte) error { return nil })
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCRCMaskRoundTrip(t *testing.T) {
	for _, c := range []uint32{0, 1, 0xdeadbeef, 0xffffffff, maskDelta} {
		if got := unmaskCRC(maskCRC(c)); got != c {
			t.Errorf("unmask(mask(%#x)) = %#x", c, got)
		}
	}
	// Masked values must differ from the raw checksum, or embedded
	// checksums would checksum to themselves.
	if maskCRC(0x12345678) == 0x12345678 {
		t.Error("mask is the identity for 0x12345678")
	}
}
