package mcp

import (
	"context"

	"tkb/internal/envelope"
	"tkb/internal/query"
)

// defaultLimit pages the two wrapped list tools (listIssues,
// getStatusUpdates) when the caller sends no limit. The engine itself
// treats limit <= 0 as unbounded.
const defaultLimit = 50

// toolListIssues implements the listIssues tool.
func (s *Server) toolListIssues(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	assignee, err := stringArg(args, "assignee")
	if err != nil {
		return nil, err
	}
	team, err := stringArg(args, "team")
	if err != nil {
		return nil, err
	}
	state, err := stringArg(args, "state")
	if err != nil {
		return nil, err
	}
	priority, err := optionalIntArg(args, "priority")
	if err != nil {
		return nil, err
	}
	project, err := stringArg(args, "project")
	if err != nil {
		return nil, err
	}
	text, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	orderBy, err := stringArg(args, "orderBy")
	if err != nil {
		return nil, err
	}
	limit, err := intArg(args, "limit", defaultLimit)
	if err != nil {
		return nil, err
	}

	list, fr, err := s.engine.ListIssues(ctx, query.ListIssuesOptions{
		Assignee: assignee,
		Team:     team,
		State:    state,
		Priority: priority,
		Project:  project,
		Query:    text,
		OrderBy:  orderBy,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(list).
		WithFreshness(fr).
		WithTruncation(len(list.Issues), list.TotalCount), nil
}

// toolGetIssue implements the getIssue tool.
func (s *Server) toolGetIssue(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	id, err := requiredStringArg(args, "id")
	if err != nil {
		return nil, err
	}

	detail, fr, err := s.engine.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(detail).WithFreshness(fr), nil
}

// toolListTeams implements the listTeams tool.
func (s *Server) toolListTeams(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	teams, fr, err := s.engine.ListTeams(ctx)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(teams).WithFreshness(fr), nil
}

// toolGetTeam implements the getTeam tool.
func (s *Server) toolGetTeam(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	q, err := requiredStringArg(args, "query")
	if err != nil {
		return nil, err
	}

	team, fr, err := s.engine.GetTeam(ctx, q)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(team).WithFreshness(fr), nil
}

// toolListProjects implements the listProjects tool.
func (s *Server) toolListProjects(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	team, err := stringArg(args, "team")
	if err != nil {
		return nil, err
	}

	projects, fr, err := s.engine.ListProjects(ctx, team)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(projects).WithFreshness(fr), nil
}

// toolGetProject implements the getProject tool.
func (s *Server) toolGetProject(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	q, err := requiredStringArg(args, "query")
	if err != nil {
		return nil, err
	}

	project, fr, err := s.engine.GetProject(ctx, q)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(project).WithFreshness(fr), nil
}

// toolListUsers implements the listUsers tool.
func (s *Server) toolListUsers(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	users, fr, err := s.engine.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(users).WithFreshness(fr), nil
}

// toolGetUser implements the getUser tool.
func (s *Server) toolGetUser(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	q, err := requiredStringArg(args, "query")
	if err != nil {
		return nil, err
	}

	user, fr, err := s.engine.GetUser(ctx, q)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(user).WithFreshness(fr), nil
}

// toolListIssueStatuses implements the listIssueStatuses tool.
func (s *Server) toolListIssueStatuses(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	team, err := requiredStringArg(args, "team")
	if err != nil {
		return nil, err
	}

	states, fr, err := s.engine.ListIssueStatuses(ctx, team)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(states).WithFreshness(fr), nil
}

// toolGetIssueStatus implements the getIssueStatus tool.
func (s *Server) toolGetIssueStatus(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	q, err := requiredStringArg(args, "query")
	if err != nil {
		return nil, err
	}
	team, err := stringArg(args, "team")
	if err != nil {
		return nil, err
	}

	state, fr, err := s.engine.GetIssueStatus(ctx, team, q)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(state).WithFreshness(fr), nil
}

// toolListComments implements the listComments tool.
func (s *Server) toolListComments(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	issue, err := requiredStringArg(args, "issue")
	if err != nil {
		return nil, err
	}

	comments, fr, err := s.engine.ListComments(ctx, issue)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(comments).WithFreshness(fr), nil
}

// toolListIssueLabels implements the listIssueLabels tool.
func (s *Server) toolListIssueLabels(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	team, err := stringArg(args, "team")
	if err != nil {
		return nil, err
	}

	labels, fr, err := s.engine.ListIssueLabels(ctx, team)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(labels).WithFreshness(fr), nil
}

// toolListInitiatives implements the listInitiatives tool.
func (s *Server) toolListInitiatives(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	initiatives, fr, err := s.engine.ListInitiatives(ctx)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(initiatives).WithFreshness(fr), nil
}

// toolGetInitiative implements the getInitiative tool.
func (s *Server) toolGetInitiative(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	q, err := requiredStringArg(args, "query")
	if err != nil {
		return nil, err
	}

	initiative, fr, err := s.engine.GetInitiative(ctx, q)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(initiative).WithFreshness(fr), nil
}

// toolListCycles implements the listCycles tool.
func (s *Server) toolListCycles(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	team, err := requiredStringArg(args, "team")
	if err != nil {
		return nil, err
	}

	cycles, fr, err := s.engine.ListCycles(ctx, team)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(cycles).WithFreshness(fr), nil
}

// toolListDocuments implements the listDocuments tool.
func (s *Server) toolListDocuments(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	project, err := stringArg(args, "project")
	if err != nil {
		return nil, err
	}

	documents, fr, err := s.engine.ListDocuments(ctx, project)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(documents).WithFreshness(fr), nil
}

// toolGetDocument implements the getDocument tool.
func (s *Server) toolGetDocument(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	q, err := requiredStringArg(args, "query")
	if err != nil {
		return nil, err
	}

	document, fr, err := s.engine.GetDocument(ctx, q)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(document).WithFreshness(fr), nil
}

// toolListMilestones implements the listMilestones tool.
func (s *Server) toolListMilestones(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	project, err := requiredStringArg(args, "project")
	if err != nil {
		return nil, err
	}

	milestones, fr, err := s.engine.ListMilestones(ctx, project)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(milestones).WithFreshness(fr), nil
}

// toolGetMilestone implements the getMilestone tool.
func (s *Server) toolGetMilestone(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	project, err := requiredStringArg(args, "project")
	if err != nil {
		return nil, err
	}
	q, err := requiredStringArg(args, "query")
	if err != nil {
		return nil, err
	}

	milestone, fr, err := s.engine.GetMilestone(ctx, project, q)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(milestone).WithFreshness(fr), nil
}

// toolListProjectUpdates implements the listProjectUpdates tool.
func (s *Server) toolListProjectUpdates(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	project, err := requiredStringArg(args, "project")
	if err != nil {
		return nil, err
	}

	updates, fr, err := s.engine.ListProjectUpdates(ctx, project)
	if err != nil {
		return nil, err
	}

	return envelope.NewResponse(updates).WithFreshness(fr), nil
}

// toolGetStatusUpdates implements the getStatusUpdates tool.
func (s *Server) toolGetStatusUpdates(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	updType, err := stringArgDefault(args, "type", "project")
	if err != nil {
		return nil, err
	}
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}
	project, err := stringArg(args, "project")
	if err != nil {
		return nil, err
	}
	user, err := stringArg(args, "user")
	if err != nil {
		return nil, err
	}
	initiative, err := stringArg(args, "initiative")
	if err != nil {
		return nil, err
	}
	cursor, err := stringArg(args, "cursor")
	if err != nil {
		return nil, err
	}
	createdAt, err := stringArg(args, "createdAt")
	if err != nil {
		return nil, err
	}
	updatedAt, err := stringArg(args, "updatedAt")
	if err != nil {
		return nil, err
	}
	includeArchived, err := boolArg(args, "includeArchived")
	if err != nil {
		return nil, err
	}
	limit, err := intArg(args, "limit", defaultLimit)
	if err != nil {
		return nil, err
	}

	result, fr, err := s.engine.GetStatusUpdates(ctx, query.StatusUpdatesOptions{
		Type:            updType,
		ID:              id,
		Project:         project,
		User:            user,
		Initiative:      initiative,
		Cursor:          cursor,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
		IncludeArchived: includeArchived,
		Limit:           limit,
	})
	if err != nil {
		return nil, err
	}

	resp := envelope.NewResponse(result.Payload()).WithFreshness(fr)
	if result.List != nil {
		resp.WithTruncation(len(result.List.StatusUpdates), result.List.TotalCount)
	}
	if result.Warning != nil {
		resp.AddWarning(result.Warning.Code, result.Warning.Message)
	}
	return resp, nil
}

// toolGetStatus implements the getStatus tool. The status payload
// carries its own snapshot block, so no freshness meta is attached.
func (s *Server) toolGetStatus(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	return envelope.NewResponse(s.engine.Status(ctx)), nil
}

// toolRefreshCache implements the refreshCache tool. A failed refresh
// demotes health rather than erroring, so the reply is always the
// resulting health state.
func (s *Server) toolRefreshCache(ctx context.Context, args map[string]interface{}) (*envelope.Response, error) {
	health := s.engine.Refresh(ctx)
	return envelope.NewResponse(health), nil
}
