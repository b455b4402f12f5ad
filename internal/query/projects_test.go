package query

import (
	"context"
	"testing"
)

func TestListProjects(t *testing.T) {
	eng := trackerEngine(t)
	ctx := context.Background()

	all, _, err := eng.ListProjects(ctx, "")
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Apollo" || all[1].Name != "Borealis" {
		t.Fatalf("projects = %+v", all)
	}
	if all[0].IssueCount != 3 || all[0].State != "started" {
		t.Errorf("Apollo = %+v", all[0])
	}
	if all[0].StartDate != "2025-02-01" || all[0].TargetDate != "2025-06-30" {
		t.Errorf("Apollo dates = %+v", all[0])
	}

	scoped, _, err := eng.ListProjects(ctx, "ENG")
	if err != nil {
		t.Fatalf("ListProjects(ENG): %v", err)
	}
	if len(scoped) != 1 || scoped[0].Name != "Apollo" {
		t.Errorf("ENG projects = %+v", scoped)
	}

	none, _, err := eng.ListProjects(ctx, "nope")
	if err != nil {
		t.Fatalf("ListProjects(nope): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("projects = %+v, want empty", none)
	}
}

func TestGetProject(t *testing.T) {
	eng := trackerEngine(t)

	p, _, err := eng.GetProject(context.Background(), "apollo")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if p == nil {
		t.Fatal("nil project")
	}
	if p.ID != "p1" || p.Description != "Login rework." || p.Lead != "Ada Lovelace" {
		t.Errorf("project = %+v", p)
	}
	if p.Status == nil || p.Status.Name != "In Progress" || p.Status.Type != "started" {
		t.Errorf("status = %+v", p.Status)
	}
	if p.Progress == nil {
		t.Fatal("nil progress")
	}
	if p.Progress.Completed != 2 || p.Progress.Started != 1 || p.Progress.Unstarted != 3 || p.Progress.Total != 6 {
		t.Errorf("progress = %+v", p.Progress)
	}
	if p.IssueCount != 3 {
		t.Errorf("issueCount = %d, want 3", p.IssueCount)
	}
	// Apollo issues: ENG-41 In Progress, ENG-42 Todo, ENG-45 In Progress.
	if p.IssuesByState["In Progress"] != 2 || p.IssuesByState["Todo"] != 1 {
		t.Errorf("issuesByState = %v", p.IssuesByState)
	}
}

func TestGetProjectBySlug(t *testing.T) {
	eng := trackerEngine(t)

	p, _, err := eng.GetProject(context.Background(), "borealis-9c3d")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if p == nil || p.Name != "Borealis" {
		t.Errorf("project = %+v", p)
	}
	if p != nil && p.Progress != nil {
		t.Errorf("progress = %+v, want nil when the store has none", p.Progress)
	}
}
