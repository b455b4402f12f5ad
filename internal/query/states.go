package query

import (
	"context"
	"sort"

	"tkb/internal/cache"
)

// StatePayload is one workflow state of a team's issue flow.
type StatePayload struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Color    string  `json:"color,omitempty"`
	Position float64 `json:"position"`
	Team     string  `json:"team,omitempty"`
}

// ListIssueStatuses returns the team's workflow states sorted by board
// position. An unresolvable team yields an empty list.
func (e *Engine) ListIssueStatuses(ctx context.Context, team string) ([]StatePayload, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	results := []StatePayload{}
	teamObj := resolveTeam(s, team)
	if teamObj == nil {
		return results, fr, nil
	}

	for _, state := range s.StatesByTeam[teamObj.ID] {
		results = append(results, StatePayload{
			ID:       state.ID,
			Name:     state.Name,
			Type:     state.Type,
			Color:    state.Color,
			Position: state.Position,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Position != results[j].Position {
			return results[i].Position < results[j].Position
		}
		return results[i].ID < results[j].ID
	})
	return results, fr, nil
}

// GetIssueStatus returns one workflow state by id or name, scoped to a
// team when one is given. Unknown queries yield nil.
func (e *Engine) GetIssueStatus(ctx context.Context, team, query string) (*StatePayload, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	var teamID, teamName string
	if team != "" {
		teamObj := resolveTeam(s, team)
		if teamObj == nil {
			return nil, fr, nil
		}
		teamID = teamObj.ID
		teamName = teamObj.Name
	}

	state := resolveState(s, teamID, query)
	if state == nil {
		return nil, fr, nil
	}
	if teamName == "" {
		if owner, ok := s.TeamByID[state.TeamID]; ok {
			teamName = owner.Name
		}
	}

	return &StatePayload{
		ID:       state.ID,
		Name:     state.Name,
		Type:     state.Type,
		Color:    state.Color,
		Position: state.Position,
		Team:     teamName,
	}, fr, nil
}
