package query

import (
	"context"
	"sort"

	"tkb/internal/cache"
)

// UserSummary is one row of a ListUsers result.
type UserSummary struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email,omitempty"`
	DisplayName        string `json:"displayName,omitempty"`
	AssignedIssueCount int    `json:"assignedIssueCount"`
}

// UserDetail is the full single-user payload. AssignedIssueCount is the
// sum over IssuesByState, so both always agree.
type UserDetail struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Email              string         `json:"email,omitempty"`
	DisplayName        string         `json:"displayName,omitempty"`
	AssignedIssueCount int            `json:"assignedIssueCount"`
	IssuesByState      map[string]int `json:"issuesByState,omitempty"`
}

// ListUsers returns all users sorted by name.
func (e *Engine) ListUsers(ctx context.Context) ([]UserSummary, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	results := make([]UserSummary, 0, len(s.Users))
	for _, user := range s.Users {
		results = append(results, UserSummary{
			ID:                 user.ID,
			Name:               user.Name,
			Email:              user.Email,
			DisplayName:        user.DisplayName,
			AssignedIssueCount: len(s.IssuesByAssignee[user.ID]),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Name != results[j].Name {
			return results[i].Name < results[j].Name
		}
		return results[i].ID < results[j].ID
	})
	return results, fr, nil
}

// GetUser returns one user by name or display name. Unknown queries yield
// nil.
func (e *Engine) GetUser(ctx context.Context, query string) (*UserDetail, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	user := resolveUser(s, query)
	if user == nil {
		return nil, fr, nil
	}

	counts := stateCounts(s, s.IssuesByAssignee[user.ID])
	total := 0
	for _, n := range counts {
		total += n
	}

	return &UserDetail{
		ID:                 user.ID,
		Name:               user.Name,
		Email:              user.Email,
		DisplayName:        user.DisplayName,
		AssignedIssueCount: total,
		IssuesByState:      counts,
	}, fr, nil
}
