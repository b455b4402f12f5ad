// Package export writes a materialized snapshot to a standalone SQLite
// file: one table per entity kind with flattened columns, plus
// snapshot_info and report tables describing where the data came from.
// The artifact is write-once; nothing in this process reads it back.
package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	tkberrors "tkb/internal/errors"
	"tkb/internal/snapshot"
)

// Exporter writes snapshots to SQLite files.
type Exporter struct {
	logger *slog.Logger
}

// New creates an exporter.
func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger.With("component", "export")}
}

// Export writes snap to a new SQLite database at path. An existing file
// is an error unless overwrite is set. On failure the partial file is
// removed; the artifact exists only if Export returns nil.
func (e *Exporter) Export(ctx context.Context, snap *snapshot.Snapshot, path string, overwrite bool) error {
	if snap == nil {
		return tkberrors.NewExportFailed(path, errors.New("no snapshot to export"))
	}

	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return tkberrors.NewExportFailed(path, errors.New("file already exists"))
		}
		if err := os.Remove(path); err != nil {
			return tkberrors.NewExportFailed(path, err)
		}
	}

	start := time.Now()

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return tkberrors.NewExportFailed(path, err)
	}

	if err := e.write(ctx, conn, snap); err != nil {
		conn.Close()
		os.Remove(path)
		return tkberrors.NewExportFailed(path, err)
	}

	if err := conn.Close(); err != nil {
		os.Remove(path)
		return tkberrors.NewExportFailed(path, err)
	}

	total := 0
	for _, n := range snap.Counts() {
		total += n
	}
	e.logger.Info("snapshot exported",
		"path", path,
		"generation", snap.Generation,
		"entities", total,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)

	return nil
}

// write creates the schema and loads every table in one transaction.
func (e *Exporter) write(ctx context.Context, conn *sql.DB, snap *snapshot.Snapshot) error {
	// Write-once artifact on a fresh file: journaling and fsync buy
	// nothing here, the file is discarded on any failure.
	pragmas := []string{
		"PRAGMA journal_mode=OFF",
		"PRAGMA synchronous=OFF",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("set pragma: %w", err)
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createTables(ctx, tx); err != nil {
		return err
	}
	if err := insertEntities(ctx, tx, snap); err != nil {
		return err
	}
	if err := insertSnapshotInfo(ctx, tx, snap); err != nil {
		return err
	}
	if err := insertReport(ctx, tx, &snap.Report); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
