package query

import (
	"context"
	"sort"

	"tkb/internal/cache"
)

// LabelPayload is one issue label.
type LabelPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color,omitempty"`
	IsGroup bool   `json:"isGroup"`
}

// ListIssueLabels returns labels sorted by name. With a team filter the
// list narrows to that team's labels plus workspace-level ones; a team
// query that resolves to nothing leaves the list unfiltered.
func (e *Engine) ListIssueLabels(ctx context.Context, team string) ([]LabelPayload, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	var teamID string
	if team != "" {
		if teamObj := resolveTeam(s, team); teamObj != nil {
			teamID = teamObj.ID
		}
	}

	results := []LabelPayload{}
	for _, label := range s.Labels {
		if teamID != "" && label.TeamID != "" && label.TeamID != teamID {
			continue
		}
		results = append(results, LabelPayload{
			ID:      label.ID,
			Name:    label.Name,
			Color:   label.Color,
			IsGroup: label.IsGroup,
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
