package query

import (
	"context"
	"testing"
)

func TestListComments(t *testing.T) {
	eng := trackerEngine(t)
	ctx := context.Background()

	comments, _, err := eng.ListComments(ctx, "ENG-41")
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("len = %d, want 2", len(comments))
	}
	if comments[0].ID != "c1" || comments[1].ID != "c2" {
		t.Errorf("order = %s, %s; want oldest first", comments[0].ID, comments[1].ID)
	}
	if comments[0].Author != "Grace Hopper" || comments[0].Body != "Can reproduce on main." {
		t.Errorf("first = %+v", comments[0])
	}
	if comments[0].CreatedAt != "2025-03-02T09:00:00Z" {
		t.Errorf("createdAt = %q", comments[0].CreatedAt)
	}
}

func TestListCommentsUnknownIssue(t *testing.T) {
	eng := trackerEngine(t)

	comments, _, err := eng.ListComments(context.Background(), "ENG-9000")
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if comments == nil || len(comments) != 0 {
		t.Errorf("comments = %#v, want empty non-nil slice", comments)
	}
}

func TestListCommentsWithoutComments(t *testing.T) {
	eng := trackerEngine(t)

	comments, _, err := eng.ListComments(context.Background(), "ENG-44")
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("comments = %+v, want none", comments)
	}
}
