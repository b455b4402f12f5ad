package query

import (
	"context"
	"sort"

	"tkb/internal/cache"
	"tkb/internal/entity"
	"tkb/internal/output"
)

// CyclePayload is one cycle in a team's cadence. State is derived from
// the cycle window relative to the current time: a cycle whose window
// contains now is active, one that has not started yet is upcoming, and
// everything else is past.
type CyclePayload struct {
	ID          string           `json:"id"`
	Number      int              `json:"number"`
	Name        string           `json:"name,omitempty"`
	State       string           `json:"state"`
	StartsAt    string           `json:"startsAt,omitempty"`
	EndsAt      string           `json:"endsAt,omitempty"`
	CompletedAt string           `json:"completedAt,omitempty"`
	Progress    *entity.Progress `json:"progress,omitempty"`
}

// ListCycles returns the cycles for one team, newest number first. The
// team query is required; a team that resolves to nothing yields an
// empty list.
func (e *Engine) ListCycles(ctx context.Context, team string) ([]CyclePayload, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	t := resolveTeam(s, team)
	if t == nil {
		return []CyclePayload{}, fr, nil
	}

	cycles := make([]*entity.Cycle, len(s.CyclesByTeam[t.ID]))
	copy(cycles, s.CyclesByTeam[t.ID])
	sort.SliceStable(cycles, func(i, j int) bool {
		if cycles[i].Number != cycles[j].Number {
			return cycles[i].Number > cycles[j].Number
		}
		return cycles[i].ID < cycles[j].ID
	})

	now := e.now()
	payload := make([]CyclePayload, 0, len(cycles))
	for _, c := range cycles {
		state := "past"
		switch {
		case !c.StartsAt.IsZero() && now.Before(c.StartsAt):
			state = "upcoming"
		case !c.StartsAt.IsZero() && !c.EndsAt.IsZero() && !now.Before(c.StartsAt) && now.Before(c.EndsAt):
			state = "active"
		}
		payload = append(payload, CyclePayload{
			ID:          c.ID,
			Number:      c.Number,
			Name:        c.Name,
			State:       state,
			StartsAt:    output.FormatTime(c.StartsAt),
			EndsAt:      output.FormatTime(c.EndsAt),
			CompletedAt: output.FormatTime(c.CompletedAt),
			Progress:    c.Progress,
		})
	}

	return payload, fr, nil
}
