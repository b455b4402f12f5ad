package query

import (
	"context"
	"sort"

	"tkb/internal/cache"
	"tkb/internal/entity"
	"tkb/internal/snapshot"
)

// TeamSummary is one row of a ListTeams result.
type TeamSummary struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	IssueCount int    `json:"issueCount"`
}

// TeamDetail is the full single-team payload.
type TeamDetail struct {
	ID            string         `json:"id"`
	Key           string         `json:"key"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	IssueCount    int            `json:"issueCount"`
	IssuesByState map[string]int `json:"issuesByState,omitempty"`
}

// ListTeams returns all teams sorted by key.
func (e *Engine) ListTeams(ctx context.Context) ([]TeamSummary, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	results := make([]TeamSummary, 0, len(s.Teams))
	for _, team := range s.Teams {
		results = append(results, TeamSummary{
			Key:        team.Key,
			Name:       team.Name,
			IssueCount: len(s.IssuesByTeam[team.ID]),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results, fr, nil
}

// GetTeam returns one team by key or name. Unknown queries yield nil.
func (e *Engine) GetTeam(ctx context.Context, query string) (*TeamDetail, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	team := resolveTeam(s, query)
	if team == nil {
		return nil, fr, nil
	}

	return &TeamDetail{
		ID:            team.ID,
		Key:           team.Key,
		Name:          team.Name,
		Description:   team.Description,
		IssueCount:    len(s.IssuesByTeam[team.ID]),
		IssuesByState: stateCounts(s, s.IssuesByTeam[team.ID]),
	}, fr, nil
}

// stateCounts tallies issues by workflow state name. Issues whose state
// does not resolve are left out of the tally.
func stateCounts(s *snapshot.Snapshot, issues []*entity.Issue) map[string]int {
	counts := make(map[string]int)
	for _, issue := range issues {
		if name := stateName(s, issue.StateID); name != "" {
			counts[name]++
		}
	}
	if len(counts) == 0 {
		return nil
	}
	return counts
}
