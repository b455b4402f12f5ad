package export

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	tkberrors "tkb/internal/errors"
	"tkb/internal/slogutil"
	"tkb/internal/snapshot"
	"tkb/internal/testutil"
)

// seedStore writes a small cross-linked workspace covering every entity
// kind the exporter writes.
func seedStore(t *testing.T) string {
	t.Helper()
	mar := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	sb := testutil.NewStoreBuilder(t)
	sb.Put(3, "t1", map[string]any{
		"id": "t1", "key": "ENG", "name": "Engineering",
		"organizationId": "org1", "createdAt": "2025-01-10T08:00:00.000Z",
		"updatedAt": "2025-01-10T08:00:00.000Z",
	})
	sb.Put(2, "u1", map[string]any{
		"id": "u1", "name": "Ada Lovelace", "displayName": "ada",
		"email": "ada@example.com", "active": true,
		"userAccountId": "acc-1", "organizationId": "org1",
	})
	sb.Put(4, "s1", map[string]any{
		"id": "s1", "name": "In Progress", "type": "started",
		"color": "#f2c94c", "teamId": "t1", "position": 2,
	})
	sb.Put(1, "i1", map[string]any{
		"id": "i1", "number": 42, "title": "Fix login crash",
		"teamId": "t1", "stateId": "s1", "assigneeId": "u1",
		"creatorId": "u1", "projectId": "p1", "priority": 1,
		"estimate": 3.0, "sortOrder": 10.0, "dueDate": "2025-09-01",
		"labelIds": []string{"l1"}, "description": "Crash on empty password.",
		"createdAt": mar, "updatedAt": mar.Add(48 * time.Hour),
	})
	sb.Put(1, "i2", map[string]any{
		"id": "i2", "number": 43, "title": "Add dark mode",
		"teamId": "t1", "stateId": "s1", "creatorId": "u1", "priority": 3,
		"createdAt": mar.Add(time.Hour), "updatedAt": mar.Add(time.Hour),
	})
	sb.Put(5, "c1", map[string]any{
		"id": "c1", "issueId": "i1", "userId": "u1",
		"body": "Can reproduce on main.", "bodyData": "{}",
		"createdAt": "2025-03-02T09:30:00.000Z",
		"updatedAt": "2025-03-02T09:30:00.000Z",
	})
	sb.Put(6, "p1", map[string]any{
		"id": "p1", "name": "Apollo", "slugId": "apollo-81f2",
		"teamIds": []string{"t1"}, "memberIds": []string{"u1"},
		"statusId": "ps1", "leadId": "u1", "state": "started",
		"startDate": "2025-02-01", "targetDate": "2025-06-30",
		"createdAt": "2025-02-01T00:00:00.000Z",
		"updatedAt": "2025-03-01T00:00:00.000Z",
	})
	sb.Put(7, "ps1", map[string]any{
		"id": "ps1", "name": "In Progress", "color": "#f2c94c",
		"position": 2, "type": "started",
	})
	sb.Put(8, "l1", map[string]any{
		"id": "l1", "name": "bug", "color": "#eb5757",
		"isGroup": false, "teamId": "t1",
	})
	sb.Put(9, "in1", map[string]any{
		"id": "in1", "name": "Platform Rework", "slugId": "platform-rework",
		"ownerId": "u1", "frequencyResolution": "month",
		"teamIds": []string{"t1"}, "status": "active", "color": "#5e6ad2",
	})
	sb.Put(10, "cy1", map[string]any{
		"id": "cy1", "number": 4, "teamId": "t1",
		"startsAt": "2025-03-03T00:00:00.000Z",
		"endsAt":   "2025-03-17T00:00:00.000Z",
		"currentProgress": map[string]any{
			"completedIssueCount": 1, "startedIssueCount": 2,
			"unstartedIssueCount": 3, "scopeCount": 6,
		},
	})
	sb.Put(11, "d1", map[string]any{
		"id": "d1", "title": "Design Notes", "slugId": "design-notes",
		"sortOrder": 1.0, "projectId": "p1", "creatorId": "u1",
		"createdAt": "2025-02-10T00:00:00.000Z",
		"updatedAt": "2025-02-12T00:00:00.000Z",
	})
	sb.Put(12, "m1", map[string]any{
		"id": "m1", "name": "Beta", "projectId": "p1",
		"sortOrder": 1.0, "targetDate": "2025-10-01",
	})
	sb.Put(13, "pu1", map[string]any{
		"id": "pu1", "body": "On track for beta.", "health": "onTrack",
		"projectId": "p1", "userId": "u1",
		"createdAt": "2025-03-05T00:00:00.000Z",
		"updatedAt": "2025-03-05T00:00:00.000Z",
	})
	return sb.Write()
}

func materializeSnapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	b := snapshot.NewBuilder(snapshot.Options{
		StorePath: seedStore(t),
		Logger:    slogutil.NewDiscardLogger(),
	})
	snap, err := b.Materialize(context.Background(), 1)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	return snap
}

func exportTo(t *testing.T, snap *snapshot.Snapshot, path string, overwrite bool) error {
	t.Helper()
	return New(slogutil.NewDiscardLogger()).Export(context.Background(), snap, path, overwrite)
}

func openExport(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func queryInt(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return n
}

func TestExportWritesAllTables(t *testing.T) {
	snap := materializeSnapshot(t)
	path := filepath.Join(t.TempDir(), "snapshot.db")
	if err := exportTo(t, snap, path, false); err != nil {
		t.Fatalf("Export: %v", err)
	}

	db := openExport(t, path)
	counts := map[string]int{
		"issues":           2,
		"users":            1,
		"teams":            1,
		"workflow_states":  1,
		"comments":         1,
		"projects":         1,
		"project_statuses": 1,
		"labels":           1,
		"initiatives":      1,
		"cycles":           1,
		"documents":        1,
		"milestones":       1,
		"project_updates":  1,
		"snapshot_info":    1,
		"report":           1,
	}
	for table, want := range counts {
		if got := queryInt(t, db, "SELECT COUNT(*) FROM "+table); got != want {
			t.Errorf("%s rows = %d, want %d", table, got, want)
		}
	}
}

func TestExportIssueColumns(t *testing.T) {
	snap := materializeSnapshot(t)
	path := filepath.Join(t.TempDir(), "snapshot.db")
	if err := exportTo(t, snap, path, false); err != nil {
		t.Fatalf("Export: %v", err)
	}
	db := openExport(t, path)

	var (
		identifier, createdAt string
		estimate              sql.NullFloat64
		labelIDs, dueDate     sql.NullString
	)
	err := db.QueryRow(`
		SELECT identifier, created_at, estimate, label_ids, due_date
		FROM issues WHERE id = 'i1'
	`).Scan(&identifier, &createdAt, &estimate, &labelIDs, &dueDate)
	if err != nil {
		t.Fatalf("select i1: %v", err)
	}
	if identifier != "ENG-42" {
		t.Errorf("identifier = %q, want ENG-42", identifier)
	}
	if createdAt != "2025-03-01T10:00:00Z" {
		t.Errorf("created_at = %q", createdAt)
	}
	if !estimate.Valid || estimate.Float64 != 3.0 {
		t.Errorf("estimate = %+v, want 3.0", estimate)
	}
	if !labelIDs.Valid || labelIDs.String != `["l1"]` {
		t.Errorf("label_ids = %+v, want [\"l1\"]", labelIDs)
	}
	if !dueDate.Valid || dueDate.String != "2025-09-01" {
		t.Errorf("due_date = %+v, want 2025-09-01", dueDate)
	}

	// The bare issue keeps optional columns NULL.
	var assignee sql.NullString
	err = db.QueryRow(`
		SELECT estimate, label_ids, assignee_id FROM issues WHERE id = 'i2'
	`).Scan(&estimate, &labelIDs, &assignee)
	if err != nil {
		t.Fatalf("select i2: %v", err)
	}
	if estimate.Valid || labelIDs.Valid || assignee.Valid {
		t.Errorf("i2 optional columns not NULL: estimate=%+v labels=%+v assignee=%+v",
			estimate, labelIDs, assignee)
	}
}

func TestExportProgressColumns(t *testing.T) {
	snap := materializeSnapshot(t)
	path := filepath.Join(t.TempDir(), "snapshot.db")
	if err := exportTo(t, snap, path, false); err != nil {
		t.Fatalf("Export: %v", err)
	}
	db := openExport(t, path)

	var completed, started, unstarted, total int
	err := db.QueryRow(`
		SELECT progress_completed, progress_started, progress_unstarted, progress_total
		FROM cycles WHERE id = 'cy1'
	`).Scan(&completed, &started, &unstarted, &total)
	if err != nil {
		t.Fatalf("select cy1: %v", err)
	}
	if completed != 1 || started != 2 || unstarted != 3 || total != 6 {
		t.Errorf("cycle progress = %d/%d/%d/%d, want 1/2/3/6",
			completed, started, unstarted, total)
	}

	// The fixture project carries no rollup.
	var projTotal sql.NullInt64
	if err := db.QueryRow(`SELECT progress_total FROM projects WHERE id = 'p1'`).Scan(&projTotal); err != nil {
		t.Fatalf("select p1: %v", err)
	}
	if projTotal.Valid {
		t.Errorf("project progress_total = %+v, want NULL", projTotal)
	}
}

func TestExportSnapshotInfo(t *testing.T) {
	snap := materializeSnapshot(t)
	path := filepath.Join(t.TempDir(), "snapshot.db")
	if err := exportTo(t, snap, path, false); err != nil {
		t.Fatalf("Export: %v", err)
	}
	db := openExport(t, path)

	var (
		generation            int64
		snapshotID, asOf      string
		issueCount, teamCount int
	)
	err := db.QueryRow(`
		SELECT generation, snapshot_id, as_of, issue_count, team_count
		FROM snapshot_info
	`).Scan(&generation, &snapshotID, &asOf, &issueCount, &teamCount)
	if err != nil {
		t.Fatalf("select snapshot_info: %v", err)
	}
	if generation != 1 {
		t.Errorf("generation = %d, want 1", generation)
	}
	if snapshotID != snap.ID {
		t.Errorf("snapshot_id = %q, want %q", snapshotID, snap.ID)
	}
	if _, err := time.Parse(time.RFC3339, asOf); err != nil {
		t.Errorf("as_of %q not RFC 3339: %v", asOf, err)
	}
	if issueCount != 2 || teamCount != 1 {
		t.Errorf("counts = issues %d teams %d, want 2/1", issueCount, teamCount)
	}
}

func TestExportReportRow(t *testing.T) {
	snap := materializeSnapshot(t)
	path := filepath.Join(t.TempDir(), "snapshot.db")
	if err := exportTo(t, snap, path, false); err != nil {
		t.Fatalf("Export: %v", err)
	}
	db := openExport(t, path)

	var decoded, liveEntries, scopeEnabled int
	var records string
	err := db.QueryRow(`
		SELECT records_decoded, store_live_entries, scope_enabled, records
		FROM report
	`).Scan(&decoded, &liveEntries, &scopeEnabled, &records)
	if err != nil {
		t.Fatalf("select report: %v", err)
	}
	if decoded < 14 {
		t.Errorf("records_decoded = %d, want >= 14", decoded)
	}
	if liveEntries < decoded {
		t.Errorf("store_live_entries = %d, want >= %d", liveEntries, decoded)
	}
	if scopeEnabled != 0 {
		t.Errorf("scope_enabled = %d, want 0", scopeEnabled)
	}
	if records == "" || records[0] != '{' {
		t.Errorf("records = %q, want JSON object", records)
	}
}

func TestExportRefusesExistingFile(t *testing.T) {
	snap := materializeSnapshot(t)
	path := filepath.Join(t.TempDir(), "snapshot.db")
	if err := os.WriteFile(path, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := exportTo(t, snap, path, false)
	if !tkberrors.HasCode(err, tkberrors.ExportFailed) {
		t.Fatalf("Export over existing file = %v, want EXPORT_FAILED", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "keep me" {
		t.Errorf("existing file was touched: %q, %v", data, err)
	}
}

func TestExportOverwrite(t *testing.T) {
	snap := materializeSnapshot(t)
	path := filepath.Join(t.TempDir(), "snapshot.db")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := exportTo(t, snap, path, true); err != nil {
		t.Fatalf("Export with overwrite: %v", err)
	}
	db := openExport(t, path)
	if got := queryInt(t, db, "SELECT COUNT(*) FROM issues"); got != 2 {
		t.Errorf("issues rows = %d, want 2", got)
	}
}

func TestExportNilSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	err := New(slogutil.NewDiscardLogger()).Export(context.Background(), nil, path, false)
	if !tkberrors.HasCode(err, tkberrors.ExportFailed) {
		t.Fatalf("Export(nil) = %v, want EXPORT_FAILED", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("nil export left a file behind")
	}
}

func TestExportUnwritablePath(t *testing.T) {
	snap := materializeSnapshot(t)
	path := filepath.Join(t.TempDir(), "missing", "deep", "snapshot.db")
	err := exportTo(t, snap, path, false)
	if !tkberrors.HasCode(err, tkberrors.ExportFailed) {
		t.Fatalf("Export to missing dir = %v, want EXPORT_FAILED", err)
	}
}
