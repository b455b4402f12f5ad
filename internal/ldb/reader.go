// Package ldb reads the desktop client's log-structured key-value store:
// a write-ahead segment plus immutable sorted segments under a manifest
// pointer. Access is strictly read-only and lock-free; the owning
// application may keep writing while a scan is in progress, so Open takes
// a short-lived point-in-time view and tolerates files vanishing to
// compaction by retrying once against a fresh manifest.
package ldb

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	tkberrors "tkb/internal/errors"
)

// An entry is one live key/value pair after merge resolution.
type entry struct {
	key   []byte
	value []byte
	seq   uint64
}

// Stats describes what a successful Open consumed and produced.
type Stats struct {
	TableFiles   int   `json:"tableFiles"`
	WALFiles     int   `json:"walFiles"`
	Bytes        int64 `json:"bytes"`
	RawEntries   int   `json:"rawEntries"`
	LiveEntries  int   `json:"liveEntries"`
	Tombstones   int   `json:"tombstones"`
	WALTruncated bool  `json:"walTruncated"`
}

// DB is a point-in-time, read-only view of the store. It is immutable after
// Open and safe for concurrent use.
type DB struct {
	dir     string
	entries []entry
	stats   Stats
}

var walNamePattern = regexp.MustCompile(`^(\d{6,})\.log$`)

// Open replays the store at dir into an iterable merged view.
// Failure modes: STORE_NOT_FOUND when dir or the manifest pointer is
// missing, STORE_LOCKED when the OS refuses reads, STORE_CORRUPT for
// structural damage anywhere but the write-ahead tail.
func Open(dir string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := open(dir, logger)
	if err != nil && retryable(err) {
		// A compaction can remove a table between reading the manifest and
		// reading the table. One fresh pass sees the post-compaction state.
		logger.Debug("store file vanished mid-open, retrying", "dir", dir, "error", err)
		db, err = open(dir, logger)
		if err != nil && retryable(err) {
			err = tkberrors.NewStoreCorrupt(dir, "store kept changing during open", err)
		}
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("store opened",
		"dir", dir,
		"tables", db.stats.TableFiles,
		"walFiles", db.stats.WALFiles,
		"liveEntries", db.stats.LiveEntries,
		"walTruncated", db.stats.WALTruncated)
	return db, nil
}

// retryableError marks a mid-open race with the owning writer.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func retryable(err error) bool {
	_, ok := err.(*retryableError)
	return ok
}

func open(dir string, logger *slog.Logger) (*DB, error) {
	if info, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, tkberrors.NewStoreNotFound(dir, err)
		}
		return nil, tkberrors.NewStoreLocked(dir, err)
	} else if !info.IsDir() {
		return nil, tkberrors.NewStoreNotFound(dir, fmt.Errorf("not a directory"))
	}

	manifestName, err := readCurrent(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tkberrors.NewStoreNotFound(filepath.Join(dir, "CURRENT"), err)
		}
		if os.IsPermission(err) {
			return nil, tkberrors.NewStoreLocked(filepath.Join(dir, "CURRENT"), err)
		}
		return nil, tkberrors.NewStoreCorrupt(filepath.Join(dir, "CURRENT"), "bad manifest pointer", err)
	}

	manifestPath := filepath.Join(dir, manifestName)
	manifestData, err := readStoreFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			// CURRENT was swapped under us; a fresh read resolves it.
			return nil, &retryableError{err}
		}
		return nil, err
	}
	manifest, err := replayManifest(manifestData)
	if err != nil {
		return nil, tkberrors.NewStoreCorrupt(manifestPath, "unreadable manifest", err)
	}

	db := &DB{dir: dir}

	for _, ref := range sortedTables(manifest.tables) {
		path, data, err := readTableFile(dir, ref.number)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &retryableError{err}
			}
			return nil, err
		}
		db.stats.TableFiles++
		db.stats.Bytes += int64(len(data))

		err = readTable(data, func(userKey []byte, seq uint64, typ byte, value []byte) error {
			db.addRaw(userKey, seq, typ, value)
			return nil
		})
		if err != nil {
			return nil, tkberrors.NewStoreCorrupt(path, "unreadable table", err)
		}
	}

	if err := db.replayWAL(dir, manifest, logger); err != nil {
		return nil, err
	}

	db.merge()
	return db, nil
}

// replayWAL applies every write-ahead segment the manifest still considers
// live, in file order. A truncated trailing record ends that file's replay
// silently; a checksum-valid but malformed batch is corruption.
func (db *DB) replayWAL(dir string, manifest *manifestState, logger *slog.Logger) error {
	minLog := manifest.logNumber
	if manifest.prevLogNumber > 0 && manifest.prevLogNumber < minLog {
		minLog = manifest.prevLogNumber
	}

	names, err := os.ReadDir(dir)
	if err != nil {
		return tkberrors.NewStoreLocked(dir, err)
	}

	var walNumbers []uint64
	for _, de := range names {
		m := walNamePattern.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil || n < minLog {
			continue
		}
		walNumbers = append(walNumbers, n)
	}
	sort.Slice(walNumbers, func(i, j int) bool { return walNumbers[i] < walNumbers[j] })

	for _, n := range walNumbers {
		path := filepath.Join(dir, fmt.Sprintf("%06d.log", n))
		data, err := readStoreFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // compacted away since ReadDir
			}
			return err
		}
		db.stats.WALFiles++
		db.stats.Bytes += int64(len(data))

		r := newLogReader(data)
		for {
			rec := r.next()
			if rec == nil {
				break
			}
			err := parseBatch(rec, func(seq uint64, typ byte, key, value []byte) error {
				db.addRaw(key, seq, typ, value)
				return nil
			})
			if err != nil {
				return tkberrors.NewStoreCorrupt(path, "malformed write batch", err)
			}
		}
		if r.truncated {
			db.stats.WALTruncated = true
			logger.Debug("write-ahead segment ends with a truncated record", "path", path)
		}
	}
	return nil
}

func (db *DB) addRaw(key []byte, seq uint64, typ byte, value []byte) {
	db.stats.RawEntries++
	if typ == typeDeletion {
		db.stats.Tombstones++
	}
	// Tombstones stay in the raw set so merge can suppress older writes.
	db.entries = append(db.entries, entry{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
		seq:   seq<<8 | uint64(typ),
	})
}

// merge resolves the raw multi-version entry set to live entries only:
// user-key order, one winner per key by highest sequence, tombstone winners
// removed.
func (db *DB) merge() {
	sort.SliceStable(db.entries, func(i, j int) bool {
		if c := bytes.Compare(db.entries[i].key, db.entries[j].key); c != 0 {
			return c < 0
		}
		return db.entries[i].seq > db.entries[j].seq
	})

	live := db.entries[:0]
	var prev []byte
	havePrev := false
	for _, e := range db.entries {
		if havePrev && bytes.Equal(e.key, prev) {
			continue // superseded version
		}
		prev = e.key
		havePrev = true
		if byte(e.seq&0xff) == typeDeletion {
			continue // deleted key is omitted entirely
		}
		live = append(live, entry{key: e.key, value: e.value, seq: e.seq >> 8})
	}
	db.entries = live
	db.stats.LiveEntries = len(live)
}

// Iterate calls fn for every live key/value pair in key order, with the
// internal sequence number that won the merge. The view is restartable:
// each call walks the same point-in-time state from the beginning.
func (db *DB) Iterate(fn func(key, value []byte, seq uint64) error) error {
	for i := range db.entries {
		if err := fn(db.entries[i].key, db.entries[i].value, db.entries[i].seq); err != nil {
			return err
		}
	}
	return nil
}

// Stats reports what Open consumed.
func (db *DB) Stats() Stats { return db.stats }

// Close releases the merged view.
func (db *DB) Close() error {
	db.entries = nil
	return nil
}

func sortedTables(tables []tableRef) []tableRef {
	out := append([]tableRef(nil), tables...)
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out
}

// readTableFile resolves the two historical table extensions.
func readTableFile(dir string, number uint64) (string, []byte, error) {
	base := fmt.Sprintf("%06d", number)
	for _, ext := range []string{".ldb", ".sst"} {
		path := filepath.Join(dir, base+ext)
		data, err := readStoreFile(path)
		if err == nil {
			return path, data, nil
		}
		if !os.IsNotExist(err) {
			return path, nil, err
		}
	}
	return filepath.Join(dir, base+".ldb"), nil, os.ErrNotExist
}

// readStoreFile reads a whole store file with the shared failure mapping
// and size guard.
func readStoreFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, tkberrors.NewStoreLocked(path, err)
	}
	if info.Size() > maxStoreFileSize {
		return nil, tkberrors.NewStoreCorrupt(path, fmt.Sprintf("file size %d exceeds limit", info.Size()), nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, tkberrors.NewStoreLocked(path, err)
	}
	return data, nil
}
