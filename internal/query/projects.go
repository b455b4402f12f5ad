package query

import (
	"context"
	"sort"

	"tkb/internal/cache"
	"tkb/internal/entity"
	"tkb/internal/snapshot"
)

// ProjectSummary is one row of a ListProjects result.
type ProjectSummary struct {
	Name       string `json:"name"`
	State      string `json:"state,omitempty"`
	IssueCount int    `json:"issueCount"`
	StartDate  string `json:"startDate,omitempty"`
	TargetDate string `json:"targetDate,omitempty"`
}

// ProjectStatusInfo names the status a project currently sits in.
type ProjectStatusInfo struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// ProjectDetail is the full single-project payload.
type ProjectDetail struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description,omitempty"`
	State         string             `json:"state,omitempty"`
	Status        *ProjectStatusInfo `json:"status,omitempty"`
	Lead          string             `json:"lead,omitempty"`
	StartDate     string             `json:"startDate,omitempty"`
	TargetDate    string             `json:"targetDate,omitempty"`
	Progress      *entity.Progress   `json:"progress,omitempty"`
	IssueCount    int                `json:"issueCount"`
	IssuesByState map[string]int     `json:"issuesByState,omitempty"`
}

// ListProjects returns projects, optionally narrowed to a team, sorted by
// name. An unresolvable team yields an empty list.
func (e *Engine) ListProjects(ctx context.Context, team string) ([]ProjectSummary, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	results := []ProjectSummary{}

	var teamID string
	if team != "" {
		teamObj := resolveTeam(s, team)
		if teamObj == nil {
			return results, fr, nil
		}
		teamID = teamObj.ID
	}

	for _, project := range s.Projects {
		if teamID != "" && !containsString(project.TeamIDs, teamID) {
			continue
		}
		results = append(results, ProjectSummary{
			Name:       project.Name,
			State:      project.State,
			IssueCount: len(s.IssuesByProject[project.ID]),
			StartDate:  project.StartDate,
			TargetDate: project.TargetDate,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, fr, nil
}

// GetProject returns one project by name or slug. Unknown queries yield
// nil.
func (e *Engine) GetProject(ctx context.Context, query string) (*ProjectDetail, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	project := resolveProject(s, query)
	if project == nil {
		return nil, fr, nil
	}
	return projectDetail(s, project), fr, nil
}

func projectDetail(s *snapshot.Snapshot, project *entity.Project) *ProjectDetail {
	detail := &ProjectDetail{
		ID:            project.ID,
		Name:          project.Name,
		Description:   project.Description,
		State:         project.State,
		Lead:          userName(s, project.LeadID),
		StartDate:     project.StartDate,
		TargetDate:    project.TargetDate,
		Progress:      project.Progress,
		IssueCount:    len(s.IssuesByProject[project.ID]),
		IssuesByState: stateCounts(s, s.IssuesByProject[project.ID]),
	}
	if status, ok := s.StatusByID[project.StatusID]; ok {
		detail.Status = &ProjectStatusInfo{Name: status.Name, Type: status.Type}
	}
	return detail
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
