package query

import (
	"context"
	"sort"

	"tkb/internal/cache"
	"tkb/internal/output"
)

// InitiativeSummary is one row of a ListInitiatives result.
type InitiativeSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	SlugID string `json:"slugId,omitempty"`
	Color  string `json:"color,omitempty"`
	Status string `json:"status,omitempty"`
	Owner  string `json:"owner,omitempty"`
}

// InitiativeDetail is the full single-initiative payload.
type InitiativeDetail struct {
	InitiativeSummary
	TeamIDs   []string `json:"teamIds"`
	CreatedAt string   `json:"createdAt,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// ListInitiatives returns all initiatives sorted by name.
func (e *Engine) ListInitiatives(ctx context.Context) ([]InitiativeSummary, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	results := make([]InitiativeSummary, 0, len(s.Initiatives))
	for _, initiative := range s.Initiatives {
		results = append(results, InitiativeSummary{
			ID:     initiative.ID,
			Name:   initiative.Name,
			SlugID: initiative.SlugID,
			Color:  initiative.Color,
			Status: initiative.Status,
			Owner:  userName(s, initiative.OwnerID),
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

// GetInitiative returns one initiative by name. Unknown queries yield nil.
func (e *Engine) GetInitiative(ctx context.Context, query string) (*InitiativeDetail, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	initiative := resolveInitiative(s, query)
	if initiative == nil {
		return nil, fr, nil
	}

	teamIDs := initiative.TeamIDs
	if teamIDs == nil {
		teamIDs = []string{}
	}
	return &InitiativeDetail{
		InitiativeSummary: InitiativeSummary{
			ID:     initiative.ID,
			Name:   initiative.Name,
			SlugID: initiative.SlugID,
			Color:  initiative.Color,
			Status: initiative.Status,
			Owner:  userName(s, initiative.OwnerID),
		},
		TeamIDs:   teamIDs,
		CreatedAt: output.FormatTime(initiative.CreatedAt),
		UpdatedAt: output.FormatTime(initiative.UpdatedAt),
	}, fr, nil
}
