package export

import (
	"context"
	"database/sql"
	"fmt"
)

// createTables creates the full export schema. The file is always
// fresh, so plain CREATE TABLE catches any double-create bug.
func createTables(ctx context.Context, tx *sql.Tx) error {
	tables := []string{
		`CREATE TABLE issues (
			id TEXT PRIMARY KEY,
			identifier TEXT NOT NULL,
			number INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			priority INTEGER NOT NULL,
			estimate REAL,
			sort_order REAL NOT NULL,
			due_date TEXT,
			team_id TEXT,
			state_id TEXT,
			assignee_id TEXT,
			creator_id TEXT,
			project_id TEXT,
			parent_id TEXT,
			cycle_id TEXT,
			milestone_id TEXT,
			label_ids TEXT,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			display_name TEXT,
			email TEXT,
			active INTEGER NOT NULL,
			user_account_id TEXT,
			org_id TEXT,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE teams (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			org_id TEXT,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE workflow_states (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			color TEXT,
			position REAL NOT NULL,
			team_id TEXT
		)`,
		`CREATE TABLE comments (
			id TEXT PRIMARY KEY,
			issue_id TEXT,
			user_id TEXT,
			body TEXT,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			slug_id TEXT,
			state TEXT,
			status_id TEXT,
			lead_id TEXT,
			team_ids TEXT,
			member_ids TEXT,
			start_date TEXT,
			target_date TEXT,
			progress_completed INTEGER,
			progress_started INTEGER,
			progress_unstarted INTEGER,
			progress_total INTEGER,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE project_statuses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			color TEXT,
			type TEXT,
			position REAL NOT NULL
		)`,
		`CREATE TABLE labels (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			color TEXT,
			team_id TEXT,
			parent_id TEXT,
			is_group INTEGER NOT NULL
		)`,
		`CREATE TABLE initiatives (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug_id TEXT,
			color TEXT,
			status TEXT,
			owner_id TEXT,
			team_ids TEXT,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE cycles (
			id TEXT PRIMARY KEY,
			number INTEGER NOT NULL,
			name TEXT,
			team_id TEXT,
			starts_at TEXT,
			ends_at TEXT,
			completed_at TEXT,
			progress_completed INTEGER,
			progress_started INTEGER,
			progress_unstarted INTEGER,
			progress_total INTEGER,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			slug_id TEXT,
			project_id TEXT,
			initiative_id TEXT,
			creator_id TEXT,
			sort_order REAL NOT NULL,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE milestones (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			project_id TEXT,
			target_date TEXT,
			sort_order REAL NOT NULL,
			progress_completed INTEGER,
			progress_started INTEGER,
			progress_unstarted INTEGER,
			progress_total INTEGER,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE project_updates (
			id TEXT PRIMARY KEY,
			project_id TEXT,
			user_id TEXT,
			body TEXT,
			health TEXT,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE snapshot_info (
			generation INTEGER NOT NULL,
			snapshot_id TEXT NOT NULL,
			as_of TEXT NOT NULL,
			exported_at TEXT NOT NULL,
			issue_count INTEGER NOT NULL,
			user_count INTEGER NOT NULL,
			team_count INTEGER NOT NULL,
			workflow_state_count INTEGER NOT NULL,
			comment_count INTEGER NOT NULL,
			project_count INTEGER NOT NULL,
			project_status_count INTEGER NOT NULL,
			label_count INTEGER NOT NULL,
			initiative_count INTEGER NOT NULL,
			cycle_count INTEGER NOT NULL,
			document_count INTEGER NOT NULL,
			milestone_count INTEGER NOT NULL,
			project_update_count INTEGER NOT NULL
		)`,
		`CREATE TABLE report (
			duration_ms INTEGER NOT NULL,
			store_table_files INTEGER NOT NULL,
			store_wal_files INTEGER NOT NULL,
			store_bytes INTEGER NOT NULL,
			store_raw_entries INTEGER NOT NULL,
			store_live_entries INTEGER NOT NULL,
			store_tombstones INTEGER NOT NULL,
			store_wal_truncated INTEGER NOT NULL,
			records_decoded INTEGER NOT NULL,
			decode_failures INTEGER NOT NULL,
			missing_id INTEGER NOT NULL,
			duplicates INTEGER NOT NULL,
			dangling INTEGER NOT NULL,
			unmatched INTEGER NOT NULL,
			ambiguous INTEGER NOT NULL,
			records TEXT,
			scope_enabled INTEGER NOT NULL,
			scope_matched_users INTEGER NOT NULL,
			scope_organizations TEXT,
			scope_excluded INTEGER NOT NULL
		)`,
	}

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []string{
		`CREATE UNIQUE INDEX idx_issues_identifier ON issues(identifier)`,
		`CREATE INDEX idx_issues_team ON issues(team_id)`,
		`CREATE INDEX idx_issues_assignee ON issues(assignee_id)`,
		`CREATE INDEX idx_issues_project ON issues(project_id)`,
		`CREATE INDEX idx_comments_issue ON comments(issue_id)`,
		`CREATE INDEX idx_project_updates_project ON project_updates(project_id)`,
	}

	for _, index := range indexes {
		if _, err := tx.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}
