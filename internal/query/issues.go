package query

import (
	"context"
	"sort"
	"strings"

	"tkb/internal/cache"
	"tkb/internal/entity"
	"tkb/internal/output"
	"tkb/internal/snapshot"
)

// ListIssuesOptions filters and pages the issue list. Unset filters match
// everything. Limit <= 0 returns all matches; the tool and CLI layers
// default it to 50.
type ListIssuesOptions struct {
	Assignee string
	Team     string
	State    string
	Priority *int
	Project  string
	Query    string
	OrderBy  string // updatedAt (default) or createdAt
	Limit    int
}

// IssueSummary is one row of a ListIssues result.
type IssueSummary struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Priority   int    `json:"priority"`
	State      string `json:"state,omitempty"`
	StateType  string `json:"stateType,omitempty"`
	Assignee   string `json:"assignee,omitempty"`
	DueDate    string `json:"dueDate,omitempty"`
}

// IssueList is a filtered page of issues, with the pre-limit match count.
type IssueList struct {
	Issues     []IssueSummary `json:"issues"`
	TotalCount int            `json:"totalCount"`
}

// IssueComment is a comment enriched with its author's name.
type IssueComment struct {
	ID        string `json:"id,omitempty"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// IssueDetail is the full single-issue payload.
type IssueDetail struct {
	Identifier  string         `json:"identifier"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Priority    int            `json:"priority"`
	Estimate    *float64       `json:"estimate,omitempty"`
	State       string         `json:"state,omitempty"`
	StateType   string         `json:"stateType,omitempty"`
	Assignee    string         `json:"assignee,omitempty"`
	Project     string         `json:"project,omitempty"`
	DueDate     string         `json:"dueDate,omitempty"`
	CreatedAt   string         `json:"createdAt,omitempty"`
	UpdatedAt   string         `json:"updatedAt,omitempty"`
	Comments    []IssueComment `json:"comments"`
	URL         string         `json:"url,omitempty"`
}

// ListIssues returns issues matching all given filters, ordered by update
// (or creation) time descending. A filter that resolves to no entity
// yields an empty result, not an error.
func (e *Engine) ListIssues(ctx context.Context, opts ListIssuesOptions) (*IssueList, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	empty := &IssueList{Issues: []IssueSummary{}}

	var assigneeID string
	if opts.Assignee != "" {
		user := resolveUser(s, opts.Assignee)
		if user == nil {
			return empty, fr, nil
		}
		assigneeID = user.ID
	}

	var teamID string
	if opts.Team != "" {
		team := resolveTeam(s, opts.Team)
		if team == nil {
			return empty, fr, nil
		}
		teamID = team.ID
	}

	var projectID string
	if opts.Project != "" {
		project := resolveProject(s, opts.Project)
		if project == nil {
			return empty, fr, nil
		}
		projectID = project.ID
	}

	queryLower := strings.ToLower(opts.Query)
	stateLower := strings.ToLower(opts.State)

	var filtered []*entity.Issue
	for _, issue := range s.Issues {
		if assigneeID != "" && issue.AssigneeID != assigneeID {
			continue
		}
		if teamID != "" && issue.TeamID != teamID {
			continue
		}
		if stateLower != "" {
			if stateLower != stateType(s, issue.StateID) &&
				stateLower != strings.ToLower(stateName(s, issue.StateID)) {
				continue
			}
		}
		if projectID != "" && issue.ProjectID != projectID {
			continue
		}
		if queryLower != "" && !strings.Contains(strings.ToLower(issue.Title), queryLower) {
			continue
		}
		if opts.Priority != nil && issue.Priority != *opts.Priority {
			continue
		}
		filtered = append(filtered, issue)
	}

	byCreated := opts.OrderBy == "createdAt"
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		at, bt := a.UpdatedAt, b.UpdatedAt
		if byCreated {
			at, bt = a.CreatedAt, b.CreatedAt
		}
		if !at.Equal(bt) {
			return at.After(bt)
		}
		return a.Identifier < b.Identifier
	})

	totalCount := len(filtered)
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}

	results := make([]IssueSummary, 0, len(filtered))
	for _, issue := range filtered {
		results = append(results, IssueSummary{
			Identifier: issue.Identifier,
			Title:      issue.Title,
			Priority:   issue.Priority,
			State:      stateName(s, issue.StateID),
			StateType:  stateType(s, issue.StateID),
			Assignee:   userName(s, issue.AssigneeID),
			DueDate:    issue.DueDate,
		})
	}

	return &IssueList{Issues: results, TotalCount: totalCount}, fr, nil
}

// GetIssue returns one issue by its display identifier (ENG-42,
// case-insensitive), with author-enriched comments. Unknown identifiers
// yield nil.
func (e *Engine) GetIssue(ctx context.Context, identifier string) (*IssueDetail, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	issue := s.IssueByIdentifier[strings.ToUpper(strings.TrimSpace(identifier))]
	if issue == nil {
		return nil, fr, nil
	}

	detail := &IssueDetail{
		Identifier:  issue.Identifier,
		Title:       issue.Title,
		Description: issue.Description,
		Priority:    issue.Priority,
		Estimate:    issue.Estimate,
		State:       stateName(s, issue.StateID),
		StateType:   stateType(s, issue.StateID),
		Assignee:    userName(s, issue.AssigneeID),
		Project:     projectName(s, issue.ProjectID),
		DueDate:     issue.DueDate,
		CreatedAt:   output.FormatTime(issue.CreatedAt),
		UpdatedAt:   output.FormatTime(issue.UpdatedAt),
		Comments:    enrichComments(s, issue.ID),
	}
	if base := e.urlBase(); base != "" {
		detail.URL = base + "/issue/" + issue.Identifier
	}
	return detail, fr, nil
}

// enrichComments returns the issue's comments oldest first with author
// names resolved.
func enrichComments(s *snapshot.Snapshot, issueID string) []IssueComment {
	comments := s.CommentsByIssue[issueID]
	results := make([]IssueComment, 0, len(comments))
	sorted := make([]*entity.Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	for _, comment := range sorted {
		author := userName(s, comment.UserID)
		if author == "" {
			author = "Unknown"
		}
		results = append(results, IssueComment{
			ID:        comment.ID,
			Author:    author,
			Body:      comment.Body,
			CreatedAt: output.FormatTime(comment.CreatedAt),
			UpdatedAt: output.FormatTime(comment.UpdatedAt),
		})
	}
	return results
}
