package query

import (
	"context"
	"sort"

	"tkb/internal/cache"
	"tkb/internal/entity"
)

// MilestonePayload is one milestone in a project listing.
type MilestonePayload struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	TargetDate string           `json:"targetDate,omitempty"`
	Progress   *entity.Progress `json:"progress,omitempty"`
}

// MilestoneDetail names the owning project and carries the sort order
// used to position the milestone inside it.
type MilestoneDetail struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Project    string           `json:"project,omitempty"`
	TargetDate string           `json:"targetDate,omitempty"`
	SortOrder  float64          `json:"sortOrder"`
	Progress   *entity.Progress `json:"progress,omitempty"`
}

// ListMilestones returns the milestones of one project in board order.
// The project query is required; a project that resolves to nothing
// yields an empty list.
func (e *Engine) ListMilestones(ctx context.Context, project string) ([]MilestonePayload, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	p := resolveProject(s, project)
	if p == nil {
		return []MilestonePayload{}, fr, nil
	}

	milestones := make([]*entity.Milestone, len(s.MilestonesByProject[p.ID]))
	copy(milestones, s.MilestonesByProject[p.ID])
	sort.SliceStable(milestones, func(i, j int) bool {
		if milestones[i].SortOrder != milestones[j].SortOrder {
			return milestones[i].SortOrder < milestones[j].SortOrder
		}
		return milestones[i].ID < milestones[j].ID
	})

	payload := make([]MilestonePayload, 0, len(milestones))
	for _, m := range milestones {
		payload = append(payload, MilestonePayload{
			ID:         m.ID,
			Name:       m.Name,
			TargetDate: m.TargetDate,
			Progress:   m.Progress,
		})
	}
	return payload, fr, nil
}

// GetMilestone returns one milestone by id or exact name within the
// given project. An unknown project or milestone yields nil.
func (e *Engine) GetMilestone(ctx context.Context, project, query string) (*MilestoneDetail, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	p := resolveProject(s, project)
	if p == nil {
		return nil, fr, nil
	}
	m := resolveMilestone(s, p.ID, query)
	if m == nil {
		return nil, fr, nil
	}

	return &MilestoneDetail{
		ID:         m.ID,
		Name:       m.Name,
		Project:    projectName(s, m.ProjectID),
		TargetDate: m.TargetDate,
		SortOrder:  m.SortOrder,
		Progress:   m.Progress,
	}, fr, nil
}
