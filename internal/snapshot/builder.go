package snapshot

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"tkb/internal/codec"
	"tkb/internal/entity"
	"tkb/internal/ldb"
	"tkb/internal/shape"
)

// Options configures a Builder.
type Options struct {
	// StorePath is the store directory (the one holding CURRENT).
	StorePath string
	// ShapesPath optionally names an external signature table; empty means
	// the built-in table. The file is re-read on every pass.
	ShapesPath string
	Scope      Scope
	Logger     *slog.Logger
}

// Builder materializes snapshots. It holds no state between passes; every
// Materialize call opens the store fresh.
type Builder struct {
	opts Options
}

func NewBuilder(opts Options) *Builder {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Builder{opts: opts}
}

// Materialize reads the whole store and builds one snapshot. It fails only
// when the store cannot be opened, the signature table cannot be loaded, the
// account scope cannot be resolved, or the context is canceled; everything
// else is reported and survived.
func (b *Builder) Materialize(ctx context.Context, generation uint64) (*Snapshot, error) {
	start := time.Now()

	table, err := b.loadTable()
	if err != nil {
		return nil, err
	}

	db, err := ldb.Open(b.opts.StorePath, b.opts.Logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	det := shape.NewDetector(table)
	acc := newAccumulator()
	var decoded, decodeFailures, missingID int

	err = db.Iterate(func(key, value []byte, seq uint64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, derr := codec.Decode(key, value, seq)
		if derr != nil {
			decodeFailures++
			b.opts.Logger.Debug("skipping undecodable record", "seq", seq, "error", derr)
			return nil
		}
		decoded++

		kind := det.Classify(rec)
		if !acc.materializes(kind) {
			return nil
		}
		if id := (fields{rec}).str("id"); id != "" {
			acc.add(kind, id, rec)
		} else {
			missingID++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Generation: generation,
		ID:         uuid.NewString(),
		AsOf:       time.Now().UTC(),
	}
	acc.fill(snap)

	scopeReport, err := b.opts.Scope.apply(snap)
	if err != nil {
		return nil, err
	}

	snap.index()

	shapeReport := det.Report()
	snap.Report = Report{
		DurationMS:       time.Since(start).Milliseconds(),
		Store:            db.Stats(),
		RecordsDecoded:   decoded,
		DecodeFailures:   decodeFailures,
		MissingID:        missingID,
		Duplicates:       acc.duplicates,
		Dangling:         snap.countDangling(),
		Records:          shapeReport.Counts,
		Unmatched:        shapeReport.Unmatched,
		Ambiguous:        shapeReport.Ambiguous,
		AmbiguousSamples: shapeReport.AmbiguousSamples,
		Entities:         snap.Counts(),
		Scope:            scopeReport,
	}

	b.opts.Logger.Info("snapshot materialized",
		"generation", generation,
		"snapshot", snap.ID,
		"records", decoded,
		"decodeFailures", decodeFailures,
		"unmatched", shapeReport.Unmatched,
		"ambiguous", shapeReport.Ambiguous,
		"dangling", snap.Report.Dangling,
		"issues", len(snap.Issues),
		"durationMs", snap.Report.DurationMS)
	return snap, nil
}

func (b *Builder) loadTable() (*shape.Table, error) {
	if b.opts.ShapesPath == "" {
		return shape.DefaultTable(), nil
	}
	return shape.Load(b.opts.ShapesPath)
}

// accumulator deduplicates classified records by entity id, keeping the
// highest sequence number, the same resolution rule the store itself uses
// per key.
type accumulator struct {
	byKind     map[entity.Kind]map[string]*codec.DecodedRecord
	duplicates int
}

func newAccumulator() *accumulator {
	byKind := make(map[entity.Kind]map[string]*codec.DecodedRecord, len(entity.MaterializedKinds))
	for _, k := range entity.MaterializedKinds {
		byKind[k] = make(map[string]*codec.DecodedRecord)
	}
	return &accumulator{byKind: byKind}
}

func (a *accumulator) materializes(kind entity.Kind) bool {
	_, ok := a.byKind[kind]
	return ok
}

func (a *accumulator) add(kind entity.Kind, id string, rec *codec.DecodedRecord) {
	m := a.byKind[kind]
	cur, ok := m[id]
	if !ok {
		m[id] = rec
		return
	}
	a.duplicates++
	if rec.Seq > cur.Seq {
		m[id] = rec
	}
}

// fill coerces the winning record per id into its entity struct. Slices are
// sorted by id so two passes over the same store build identical snapshots.
func (a *accumulator) fill(s *Snapshot) {
	s.Issues = fillKind(a.byKind[entity.KindIssue], coerceIssue)
	s.Users = fillKind(a.byKind[entity.KindUser], coerceUser)
	s.Teams = fillKind(a.byKind[entity.KindTeam], coerceTeam)
	s.States = fillKind(a.byKind[entity.KindWorkflowState], coerceState)
	s.Comments = fillKind(a.byKind[entity.KindComment], coerceComment)
	s.Projects = fillKind(a.byKind[entity.KindProject], coerceProject)
	s.ProjectStatuses = fillKind(a.byKind[entity.KindProjectStatus], coerceProjectStatus)
	s.Labels = fillKind(a.byKind[entity.KindLabel], coerceLabel)
	s.Initiatives = fillKind(a.byKind[entity.KindInitiative], coerceInitiative)
	s.Cycles = fillKind(a.byKind[entity.KindCycle], coerceCycle)
	s.Documents = fillKind(a.byKind[entity.KindDocument], coerceDocument)
	s.Milestones = fillKind(a.byKind[entity.KindMilestone], coerceMilestone)
	s.ProjectUpdates = fillKind(a.byKind[entity.KindProjectUpdate], coerceProjectUpdate)
}

func fillKind[E any](records map[string]*codec.DecodedRecord, coerce func(*codec.DecodedRecord) *E) []*E {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*E, len(ids))
	for i, id := range ids {
		out[i] = coerce(records[id])
	}
	return out
}
