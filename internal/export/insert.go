package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tkb/internal/entity"
	"tkb/internal/snapshot"
)

// timeOrNil renders t as RFC 3339 UTC, or NULL for the zero time.
func timeOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// textOrNil keeps optional references and free text NULL when absent.
func textOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// jsonList renders an id list as a JSON array, NULL when empty.
func jsonList(ids []string) any {
	if len(ids) == 0 {
		return nil
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

// progressCols expands a progress rollup into its four columns, all NULL
// when the entity carries none.
func progressCols(p *entity.Progress) (completed, started, unstarted, total any) {
	if p == nil {
		return nil, nil, nil, nil
	}
	return p.Completed, p.Started, p.Unstarted, p.Total
}

// insertEntities loads every entity table from the snapshot slices.
func insertEntities(ctx context.Context, tx *sql.Tx, snap *snapshot.Snapshot) error {
	if err := insertIssues(ctx, tx, snap.Issues); err != nil {
		return err
	}
	if err := insertUsers(ctx, tx, snap.Users); err != nil {
		return err
	}
	if err := insertTeams(ctx, tx, snap.Teams); err != nil {
		return err
	}
	if err := insertStates(ctx, tx, snap.States); err != nil {
		return err
	}
	if err := insertComments(ctx, tx, snap.Comments); err != nil {
		return err
	}
	if err := insertProjects(ctx, tx, snap.Projects); err != nil {
		return err
	}
	if err := insertProjectStatuses(ctx, tx, snap.ProjectStatuses); err != nil {
		return err
	}
	if err := insertLabels(ctx, tx, snap.Labels); err != nil {
		return err
	}
	if err := insertInitiatives(ctx, tx, snap.Initiatives); err != nil {
		return err
	}
	if err := insertCycles(ctx, tx, snap.Cycles); err != nil {
		return err
	}
	if err := insertDocuments(ctx, tx, snap.Documents); err != nil {
		return err
	}
	if err := insertMilestones(ctx, tx, snap.Milestones); err != nil {
		return err
	}
	return insertProjectUpdates(ctx, tx, snap.ProjectUpdates)
}

func insertIssues(ctx context.Context, tx *sql.Tx, issues []*entity.Issue) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO issues (
			id, identifier, number, title, description, priority, estimate,
			sort_order, due_date, team_id, state_id, assignee_id, creator_id,
			project_id, parent_id, cycle_id, milestone_id, label_ids,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare issues insert: %w", err)
	}
	defer stmt.Close()

	for _, is := range issues {
		if _, err := stmt.ExecContext(ctx,
			is.ID, is.Identifier, is.Number, is.Title, textOrNil(is.Description),
			is.Priority, is.Estimate, is.SortOrder, textOrNil(is.DueDate),
			textOrNil(is.TeamID), textOrNil(is.StateID), textOrNil(is.AssigneeID),
			textOrNil(is.CreatorID), textOrNil(is.ProjectID), textOrNil(is.ParentID),
			textOrNil(is.CycleID), textOrNil(is.MilestoneID), jsonList(is.LabelIDs),
			timeOrNil(is.CreatedAt), timeOrNil(is.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert issue %s: %w", is.ID, err)
		}
	}
	return nil
}

func insertUsers(ctx context.Context, tx *sql.Tx, users []*entity.User) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO users (
			id, name, display_name, email, active, user_account_id, org_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare users insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range users {
		if _, err := stmt.ExecContext(ctx,
			u.ID, u.Name, textOrNil(u.DisplayName), textOrNil(u.Email),
			u.Active, textOrNil(u.UserAccountID), textOrNil(u.OrgID),
			timeOrNil(u.CreatedAt), timeOrNil(u.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert user %s: %w", u.ID, err)
		}
	}
	return nil
}

func insertTeams(ctx context.Context, tx *sql.Tx, teams []*entity.Team) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO teams (
			id, key, name, description, org_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare teams insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range teams {
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.Key, t.Name, textOrNil(t.Description), textOrNil(t.OrgID),
			timeOrNil(t.CreatedAt), timeOrNil(t.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert team %s: %w", t.ID, err)
		}
	}
	return nil
}

func insertStates(ctx context.Context, tx *sql.Tx, states []*entity.WorkflowState) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO workflow_states (
			id, name, type, color, position, team_id
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare workflow_states insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range states {
		if _, err := stmt.ExecContext(ctx,
			st.ID, st.Name, st.Type, textOrNil(st.Color), st.Position,
			textOrNil(st.TeamID),
		); err != nil {
			return fmt.Errorf("insert workflow state %s: %w", st.ID, err)
		}
	}
	return nil
}

func insertComments(ctx context.Context, tx *sql.Tx, comments []*entity.Comment) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO comments (
			id, issue_id, user_id, body, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare comments insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range comments {
		if _, err := stmt.ExecContext(ctx,
			c.ID, textOrNil(c.IssueID), textOrNil(c.UserID), textOrNil(c.Body),
			timeOrNil(c.CreatedAt), timeOrNil(c.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert comment %s: %w", c.ID, err)
		}
	}
	return nil
}

func insertProjects(ctx context.Context, tx *sql.Tx, projects []*entity.Project) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO projects (
			id, name, description, slug_id, state, status_id, lead_id,
			team_ids, member_ids, start_date, target_date,
			progress_completed, progress_started, progress_unstarted, progress_total,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare projects insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range projects {
		completed, started, unstarted, total := progressCols(p.Progress)
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Name, textOrNil(p.Description), textOrNil(p.SlugID),
			textOrNil(p.State), textOrNil(p.StatusID), textOrNil(p.LeadID),
			jsonList(p.TeamIDs), jsonList(p.MemberIDs),
			textOrNil(p.StartDate), textOrNil(p.TargetDate),
			completed, started, unstarted, total,
			timeOrNil(p.CreatedAt), timeOrNil(p.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert project %s: %w", p.ID, err)
		}
	}
	return nil
}

func insertProjectStatuses(ctx context.Context, tx *sql.Tx, statuses []*entity.ProjectStatus) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO project_statuses (
			id, name, color, type, position
		) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare project_statuses insert: %w", err)
	}
	defer stmt.Close()

	for _, ps := range statuses {
		if _, err := stmt.ExecContext(ctx,
			ps.ID, ps.Name, textOrNil(ps.Color), textOrNil(ps.Type), ps.Position,
		); err != nil {
			return fmt.Errorf("insert project status %s: %w", ps.ID, err)
		}
	}
	return nil
}

func insertLabels(ctx context.Context, tx *sql.Tx, labels []*entity.Label) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO labels (
			id, name, color, team_id, parent_id, is_group
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare labels insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range labels {
		if _, err := stmt.ExecContext(ctx,
			l.ID, l.Name, textOrNil(l.Color), textOrNil(l.TeamID),
			textOrNil(l.ParentID), l.IsGroup,
		); err != nil {
			return fmt.Errorf("insert label %s: %w", l.ID, err)
		}
	}
	return nil
}

func insertInitiatives(ctx context.Context, tx *sql.Tx, initiatives []*entity.Initiative) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO initiatives (
			id, name, slug_id, color, status, owner_id, team_ids,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare initiatives insert: %w", err)
	}
	defer stmt.Close()

	for _, in := range initiatives {
		if _, err := stmt.ExecContext(ctx,
			in.ID, in.Name, textOrNil(in.SlugID), textOrNil(in.Color),
			textOrNil(in.Status), textOrNil(in.OwnerID), jsonList(in.TeamIDs),
			timeOrNil(in.CreatedAt), timeOrNil(in.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert initiative %s: %w", in.ID, err)
		}
	}
	return nil
}

func insertCycles(ctx context.Context, tx *sql.Tx, cycles []*entity.Cycle) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cycles (
			id, number, name, team_id, starts_at, ends_at, completed_at,
			progress_completed, progress_started, progress_unstarted, progress_total,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare cycles insert: %w", err)
	}
	defer stmt.Close()

	for _, cy := range cycles {
		completed, started, unstarted, total := progressCols(cy.Progress)
		if _, err := stmt.ExecContext(ctx,
			cy.ID, cy.Number, textOrNil(cy.Name), textOrNil(cy.TeamID),
			timeOrNil(cy.StartsAt), timeOrNil(cy.EndsAt), timeOrNil(cy.CompletedAt),
			completed, started, unstarted, total,
			timeOrNil(cy.CreatedAt), timeOrNil(cy.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert cycle %s: %w", cy.ID, err)
		}
	}
	return nil
}

func insertDocuments(ctx context.Context, tx *sql.Tx, documents []*entity.Document) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (
			id, title, slug_id, project_id, initiative_id, creator_id,
			sort_order, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare documents insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range documents {
		if _, err := stmt.ExecContext(ctx,
			d.ID, d.Title, textOrNil(d.SlugID), textOrNil(d.ProjectID),
			textOrNil(d.InitiativeID), textOrNil(d.CreatorID), d.SortOrder,
			timeOrNil(d.CreatedAt), timeOrNil(d.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert document %s: %w", d.ID, err)
		}
	}
	return nil
}

func insertMilestones(ctx context.Context, tx *sql.Tx, milestones []*entity.Milestone) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO milestones (
			id, name, project_id, target_date, sort_order,
			progress_completed, progress_started, progress_unstarted, progress_total,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare milestones insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range milestones {
		completed, started, unstarted, total := progressCols(m.Progress)
		if _, err := stmt.ExecContext(ctx,
			m.ID, m.Name, textOrNil(m.ProjectID), textOrNil(m.TargetDate),
			m.SortOrder, completed, started, unstarted, total,
			timeOrNil(m.CreatedAt), timeOrNil(m.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert milestone %s: %w", m.ID, err)
		}
	}
	return nil
}

func insertProjectUpdates(ctx context.Context, tx *sql.Tx, updates []*entity.ProjectUpdate) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO project_updates (
			id, project_id, user_id, body, health, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare project_updates insert: %w", err)
	}
	defer stmt.Close()

	for _, pu := range updates {
		if _, err := stmt.ExecContext(ctx,
			pu.ID, textOrNil(pu.ProjectID), textOrNil(pu.UserID),
			textOrNil(pu.Body), textOrNil(pu.Health),
			timeOrNil(pu.CreatedAt), timeOrNil(pu.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert project update %s: %w", pu.ID, err)
		}
	}
	return nil
}

// insertSnapshotInfo writes the single provenance row.
func insertSnapshotInfo(ctx context.Context, tx *sql.Tx, snap *snapshot.Snapshot) error {
	counts := snap.Counts()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_info (
			generation, snapshot_id, as_of, exported_at,
			issue_count, user_count, team_count, workflow_state_count,
			comment_count, project_count, project_status_count, label_count,
			initiative_count, cycle_count, document_count, milestone_count,
			project_update_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		int64(snap.Generation), snap.ID, snap.AsOf.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		counts[entity.KindIssue], counts[entity.KindUser], counts[entity.KindTeam],
		counts[entity.KindWorkflowState], counts[entity.KindComment],
		counts[entity.KindProject], counts[entity.KindProjectStatus],
		counts[entity.KindLabel], counts[entity.KindInitiative],
		counts[entity.KindCycle], counts[entity.KindDocument],
		counts[entity.KindMilestone], counts[entity.KindProjectUpdate],
	)
	if err != nil {
		return fmt.Errorf("insert snapshot_info: %w", err)
	}
	return nil
}

// insertReport writes the single materialization report row. The per-kind
// classified counts go in as a JSON object; map keys marshal sorted, so
// the column is stable across exports.
func insertReport(ctx context.Context, tx *sql.Tx, rep *snapshot.Report) error {
	records, _ := json.Marshal(rep.Records)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO report (
			duration_ms,
			store_table_files, store_wal_files, store_bytes,
			store_raw_entries, store_live_entries, store_tombstones,
			store_wal_truncated,
			records_decoded, decode_failures, missing_id, duplicates,
			dangling, unmatched, ambiguous, records,
			scope_enabled, scope_matched_users, scope_organizations, scope_excluded
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rep.DurationMS,
		rep.Store.TableFiles, rep.Store.WALFiles, rep.Store.Bytes,
		rep.Store.RawEntries, rep.Store.LiveEntries, rep.Store.Tombstones,
		rep.Store.WALTruncated,
		rep.RecordsDecoded, rep.DecodeFailures, rep.MissingID, rep.Duplicates,
		rep.Dangling, rep.Unmatched, rep.Ambiguous, string(records),
		rep.Scope.Enabled, rep.Scope.MatchedUsers, jsonList(rep.Scope.Organizations), rep.Scope.Excluded,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}
