package ldb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tableRef names one live immutable segment recorded by the manifest.
type tableRef struct {
	level  int
	number uint64
	size   uint64
}

// manifestState is the replayed result of the live manifest: the set of
// current table files plus the number of the active write-ahead segment.
type manifestState struct {
	logNumber     uint64
	prevLogNumber uint64
	lastSequence  uint64
	tables        []tableRef
}

// readCurrent returns the manifest filename named by the CURRENT pointer.
func readCurrent(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "CURRENT"))
	if err != nil {
		return "", err
	}
	name := strings.TrimRight(string(data), "\r\n")
	if !strings.HasPrefix(name, "MANIFEST-") || strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("CURRENT does not name a manifest: %q", name)
	}
	return name, nil
}

// replayManifest applies every version edit in order and returns the final
// live-file set. The manifest uses the same physical log format as the
// write-ahead segment, so a tail cut short by a crash ends replay silently.
func replayManifest(data []byte) (*manifestState, error) {
	state := &manifestState{}
	live := make(map[uint64]tableRef)

	r := newLogReader(data)
	edits := 0
	for {
		rec := r.next()
		if rec == nil {
			break
		}
		if err := applyVersionEdit(rec, state, live); err != nil {
			return nil, err
		}
		edits++
	}
	if edits == 0 {
		return nil, fmt.Errorf("manifest holds no readable version edits")
	}

	state.tables = make([]tableRef, 0, len(live))
	for _, t := range live {
		state.tables = append(state.tables, t)
	}
	return state, nil
}

// applyVersionEdit decodes one varint-tagged version edit. Fields that do not
// affect a read-only scan (comparator name, compaction pointers, file
// counters) are decoded and dropped.
func applyVersionEdit(rec []byte, state *manifestState, live map[uint64]tableRef) error {
	pos := 0
	for pos < len(rec) {
		tag, next, ok := uvarint(rec, pos)
		if !ok {
			return fmt.Errorf("version edit: bad tag at %d", pos)
		}
		pos = next

		switch tag {
		case tagComparator:
			if _, pos, ok = varslice(rec, pos); !ok {
				return fmt.Errorf("version edit: bad comparator")
			}
		case tagLogNumber:
			if state.logNumber, pos, ok = uvarint(rec, pos); !ok {
				return fmt.Errorf("version edit: bad log number")
			}
		case tagPrevLogNumber:
			if state.prevLogNumber, pos, ok = uvarint(rec, pos); !ok {
				return fmt.Errorf("version edit: bad prev log number")
			}
		case tagNextFileNumber:
			if _, pos, ok = uvarint(rec, pos); !ok {
				return fmt.Errorf("version edit: bad next file number")
			}
		case tagLastSequence:
			if state.lastSequence, pos, ok = uvarint(rec, pos); !ok {
				return fmt.Errorf("version edit: bad last sequence")
			}
		case tagCompactPointer:
			if _, pos, ok = uvarint(rec, pos); !ok {
				return fmt.Errorf("version edit: bad compact pointer level")
			}
			if _, pos, ok = varslice(rec, pos); !ok {
				return fmt.Errorf("version edit: bad compact pointer key")
			}
		case tagDeletedFile:
			var num uint64
			if _, pos, ok = uvarint(rec, pos); !ok {
				return fmt.Errorf("version edit: bad deleted file level")
			}
			if num, pos, ok = uvarint(rec, pos); !ok {
				return fmt.Errorf("version edit: bad deleted file number")
			}
			delete(live, num)
		case tagNewFile:
			var ref tableRef
			var level uint64
			if level, pos, ok = uvarint(rec, pos); !ok {
				return fmt.Errorf("version edit: bad new file level")
			}
			if ref.number, pos, ok = uvarint(rec, pos); !ok {
				return fmt.Errorf("version edit: bad new file number")
			}
			if ref.size, pos, ok = uvarint(rec, pos); !ok {
				return fmt.Errorf("version edit: bad new file size")
			}
			if _, pos, ok = varslice(rec, pos); !ok {
				return fmt.Errorf("version edit: bad new file smallest key")
			}
			if _, pos, ok = varslice(rec, pos); !ok {
				return fmt.Errorf("version edit: bad new file largest key")
			}
			ref.level = int(level)
			live[ref.number] = ref
		default:
			return fmt.Errorf("version edit: unknown tag %d", tag)
		}
	}
	return nil
}
