package query

import (
	"context"
	"sort"

	"tkb/internal/cache"
	"tkb/internal/entity"
	"tkb/internal/output"
	"tkb/internal/snapshot"
)

// StatusUpdatesOptions narrows a status-update query. Only Type
// "project" is served from the local snapshot; Initiative, Cursor,
// CreatedAt, UpdatedAt and IncludeArchived name filters the snapshot
// cannot answer and turn the result into an empty list with a warning.
type StatusUpdatesOptions struct {
	Type            string
	ID              string
	Project         string
	User            string
	Initiative      string
	Cursor          string
	CreatedAt       string
	UpdatedAt       string
	IncludeArchived bool
	Limit           int
}

// StatusUpdatePayload is one project status update.
type StatusUpdatePayload struct {
	ID        string `json:"id"`
	Body      string `json:"body,omitempty"`
	Health    string `json:"health,omitempty"`
	Author    string `json:"author,omitempty"`
	Project   string `json:"project,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// StatusUpdateList is the payload for a status-update listing.
type StatusUpdateList struct {
	StatusUpdates []StatusUpdatePayload `json:"statusUpdates"`
	TotalCount    int                   `json:"totalCount"`
}

// ResultWarning flags a request the snapshot answered only partially.
type ResultWarning struct {
	Code    string
	Message string
}

// StatusUpdateResult carries either a single update (when the query
// named an id) or a list. Warning is set when the requested scope or
// filters are not answerable locally; the list is then empty.
type StatusUpdateResult struct {
	Update  *StatusUpdatePayload
	List    *StatusUpdateList
	Warning *ResultWarning
	single  bool
}

// Payload returns what belongs in the response envelope: the single
// update (nil when not found) for id queries, the list otherwise.
func (r *StatusUpdateResult) Payload() any {
	if r.single {
		if r.Update == nil {
			return nil
		}
		return r.Update
	}
	return r.List
}

// GetStatusUpdates returns project status updates, newest first by
// creation time. An update is an event; its creation time is its
// identity, so there is no alternate ordering.
func (e *Engine) GetStatusUpdates(ctx context.Context, opts StatusUpdatesOptions) (*StatusUpdateResult, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	emptyList := func() *StatusUpdateList {
		return &StatusUpdateList{StatusUpdates: []StatusUpdatePayload{}}
	}

	if opts.Type != "project" {
		return &StatusUpdateResult{
			List: emptyList(),
			Warning: &ResultWarning{
				Code:    "UNSUPPORTED_SCOPE",
				Message: `the local snapshot serves only type "project" status updates`,
			},
		}, fr, nil
	}
	if opts.Initiative != "" || opts.Cursor != "" || opts.CreatedAt != "" || opts.UpdatedAt != "" || opts.IncludeArchived {
		return &StatusUpdateResult{
			List: emptyList(),
			Warning: &ResultWarning{
				Code:    "UNSUPPORTED_FILTER",
				Message: "one or more requested filters cannot be answered from the local snapshot",
			},
		}, fr, nil
	}

	var projectID string
	if opts.Project != "" {
		p := resolveProject(s, opts.Project)
		if p == nil {
			return &StatusUpdateResult{List: emptyList()}, fr, nil
		}
		projectID = p.ID
	}
	var userID string
	if opts.User != "" {
		u := resolveUser(s, opts.User)
		if u == nil {
			return &StatusUpdateResult{List: emptyList()}, fr, nil
		}
		userID = u.ID
	}

	updates := collectUpdates(s, projectID, userID)

	if opts.ID != "" {
		res := &StatusUpdateResult{single: true}
		for _, u := range updates {
			if u.ID == opts.ID {
				payload := updatePayload(s, u)
				res.Update = &payload
				break
			}
		}
		return res, fr, nil
	}

	total := len(updates)
	if opts.Limit > 0 && len(updates) > opts.Limit {
		updates = updates[:opts.Limit]
	}
	payload := make([]StatusUpdatePayload, 0, len(updates))
	for _, u := range updates {
		payload = append(payload, updatePayload(s, u))
	}
	return &StatusUpdateResult{
		List: &StatusUpdateList{StatusUpdates: payload, TotalCount: total},
	}, fr, nil
}

// ListProjectUpdates returns every status update of one project,
// newest first. A project that resolves to nothing yields an empty
// slice.
func (e *Engine) ListProjectUpdates(ctx context.Context, project string) ([]StatusUpdatePayload, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	p := resolveProject(s, project)
	if p == nil {
		return []StatusUpdatePayload{}, fr, nil
	}

	updates := collectUpdates(s, p.ID, "")
	payload := make([]StatusUpdatePayload, 0, len(updates))
	for _, u := range updates {
		payload = append(payload, updatePayload(s, u))
	}
	return payload, fr, nil
}

func collectUpdates(s *snapshot.Snapshot, projectID, userID string) []*entity.ProjectUpdate {
	var src []*entity.ProjectUpdate
	if projectID != "" {
		src = s.UpdatesByProject[projectID]
	} else {
		src = s.ProjectUpdates
	}

	updates := make([]*entity.ProjectUpdate, 0, len(src))
	for _, u := range src {
		if userID != "" && u.UserID != userID {
			continue
		}
		updates = append(updates, u)
	}
	sort.SliceStable(updates, func(i, j int) bool {
		if !updates[i].CreatedAt.Equal(updates[j].CreatedAt) {
			return updates[i].CreatedAt.After(updates[j].CreatedAt)
		}
		return updates[i].ID < updates[j].ID
	})
	return updates
}

func updatePayload(s *snapshot.Snapshot, u *entity.ProjectUpdate) StatusUpdatePayload {
	return StatusUpdatePayload{
		ID:        u.ID,
		Body:      u.Body,
		Health:    u.Health,
		Author:    userName(s, u.UserID),
		Project:   projectName(s, u.ProjectID),
		CreatedAt: output.FormatTime(u.CreatedAt),
		UpdatedAt: output.FormatTime(u.UpdatedAt),
	}
}
