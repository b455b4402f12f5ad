package mcp

import (
	"context"

	"tkb/internal/envelope"
)

// Tool is one entry of the tools/list response.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// toolHandler executes a tool call and returns the response envelope.
type toolHandler func(ctx context.Context, args map[string]interface{}) (*envelope.Response, error)

// GetToolDefinitions returns all tool definitions.
func (s *Server) GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "listIssues",
			Description: "List issues with optional filtering by assignee, team, state, priority, project, or title text",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"assignee": map[string]interface{}{
						"type":        "string",
						"description": "Assignee name, display name, or email",
					},
					"team": map[string]interface{}{
						"type":        "string",
						"description": "Team key, name, or id",
					},
					"state": map[string]interface{}{
						"type":        "string",
						"description": "Workflow state name or type (e.g. 'In Progress' or 'started')",
					},
					"priority": map[string]interface{}{
						"type":        "number",
						"description": "Priority level (0 = none, 1 = urgent, 2 = high, 3 = normal, 4 = low)",
					},
					"project": map[string]interface{}{
						"type":        "string",
						"description": "Project name, slug, or id",
					},
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Title substring match, case-insensitive",
					},
					"orderBy": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"updatedAt", "createdAt"},
						"default":     "updatedAt",
						"description": "Sort field, newest first",
					},
					"limit": map[string]interface{}{
						"type":        "number",
						"default":     50,
						"description": "Maximum number of issues to return",
					},
				},
			},
		},
		{
			Name:        "getIssue",
			Description: "Get a single issue with its comments by identifier (e.g. ENG-123)",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Issue identifier like ENG-123",
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "listTeams",
			Description: "List all teams with per-team issue counts",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "getTeam",
			Description: "Get a team by key, name, or id, with issue counts grouped by state",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Team key, name, or id",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "listProjects",
			Description: "List projects, optionally narrowed to one team",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"team": map[string]interface{}{
						"type":        "string",
						"description": "Team key, name, or id",
					},
				},
			},
		},
		{
			Name:        "getProject",
			Description: "Get a project by name, slug, or id, with lead, status, and progress",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Project name, slug, or id",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "listUsers",
			Description: "List workspace members with assigned issue counts",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "getUser",
			Description: "Get a user by name, display name, or email, with issue counts grouped by state",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "User name, display name, or email",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "listIssueStatuses",
			Description: "List workflow states for a team in board order",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"team": map[string]interface{}{
						"type":        "string",
						"description": "Team key, name, or id",
					},
				},
				"required": []string{"team"},
			},
		},
		{
			Name:        "getIssueStatus",
			Description: "Get a workflow state by name or id, optionally narrowed to a team",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "State name or id",
					},
					"team": map[string]interface{}{
						"type":        "string",
						"description": "Team key, name, or id",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "listComments",
			Description: "List the comments of an issue, oldest first",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"issue": map[string]interface{}{
						"type":        "string",
						"description": "Issue identifier like ENG-123",
					},
				},
				"required": []string{"issue"},
			},
		},
		{
			Name:        "listIssueLabels",
			Description: "List issue labels, optionally narrowed to a team; workspace-level labels are always included",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"team": map[string]interface{}{
						"type":        "string",
						"description": "Team key, name, or id",
					},
				},
			},
		},
		{
			Name:        "listInitiatives",
			Description: "List all initiatives",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "getInitiative",
			Description: "Get an initiative by name or id",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Initiative name or id",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "listCycles",
			Description: "List the cycles of a team, newest first, with phase (upcoming, active, past)",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"team": map[string]interface{}{
						"type":        "string",
						"description": "Team key, name, or id",
					},
				},
				"required": []string{"team"},
			},
		},
		{
			Name:        "listDocuments",
			Description: "List documents, optionally narrowed to one project",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project": map[string]interface{}{
						"type":        "string",
						"description": "Project name, slug, or id",
					},
				},
			},
		},
		{
			Name:        "getDocument",
			Description: "Get a document by title or id",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Document title or id",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "listMilestones",
			Description: "List the milestones of a project in their planned order",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project": map[string]interface{}{
						"type":        "string",
						"description": "Project name, slug, or id",
					},
				},
				"required": []string{"project"},
			},
		},
		{
			Name:        "getMilestone",
			Description: "Get a milestone of a project by name or id",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project": map[string]interface{}{
						"type":        "string",
						"description": "Project name, slug, or id",
					},
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Milestone name or id",
					},
				},
				"required": []string{"project", "query"},
			},
		},
		{
			Name:        "listProjectUpdates",
			Description: "List the status updates of a project, newest first",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"project": map[string]interface{}{
						"type":        "string",
						"description": "Project name, slug, or id",
					},
				},
				"required": []string{"project"},
			},
		},
		{
			Name:        "getStatusUpdates",
			Description: "Get project status updates with optional filtering; only type 'project' is served from the local snapshot",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"type": map[string]interface{}{
						"type":        "string",
						"default":     "project",
						"description": "Update scope; only 'project' is answerable locally",
					},
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Return the single update with this id",
					},
					"project": map[string]interface{}{
						"type":        "string",
						"description": "Project name, slug, or id",
					},
					"user": map[string]interface{}{
						"type":        "string",
						"description": "Author name, display name, or email",
					},
					"initiative": map[string]interface{}{
						"type":        "string",
						"description": "Initiative filter (not answerable locally)",
					},
					"cursor": map[string]interface{}{
						"type":        "string",
						"description": "Pagination cursor (not answerable locally)",
					},
					"createdAt": map[string]interface{}{
						"type":        "string",
						"description": "Creation time filter (not answerable locally)",
					},
					"updatedAt": map[string]interface{}{
						"type":        "string",
						"description": "Update time filter (not answerable locally)",
					},
					"includeArchived": map[string]interface{}{
						"type":        "boolean",
						"default":     false,
						"description": "Include archived updates (not answerable locally)",
					},
					"limit": map[string]interface{}{
						"type":        "number",
						"default":     50,
						"description": "Maximum number of updates to return",
					},
				},
			},
		},
		{
			Name:        "getStatus",
			Description: "Get server status: snapshot freshness, entity counts, account scope, and store health",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "refreshCache",
			Description: "Force a snapshot rebuild from the store and report the resulting health",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// registerTools wires tool names to their handlers.
func (s *Server) registerTools() {
	s.tools["listIssues"] = s.toolListIssues
	s.tools["getIssue"] = s.toolGetIssue
	s.tools["listTeams"] = s.toolListTeams
	s.tools["getTeam"] = s.toolGetTeam
	s.tools["listProjects"] = s.toolListProjects
	s.tools["getProject"] = s.toolGetProject
	s.tools["listUsers"] = s.toolListUsers
	s.tools["getUser"] = s.toolGetUser
	s.tools["listIssueStatuses"] = s.toolListIssueStatuses
	s.tools["getIssueStatus"] = s.toolGetIssueStatus
	s.tools["listComments"] = s.toolListComments
	s.tools["listIssueLabels"] = s.toolListIssueLabels
	s.tools["listInitiatives"] = s.toolListInitiatives
	s.tools["getInitiative"] = s.toolGetInitiative
	s.tools["listCycles"] = s.toolListCycles
	s.tools["listDocuments"] = s.toolListDocuments
	s.tools["getDocument"] = s.toolGetDocument
	s.tools["listMilestones"] = s.toolListMilestones
	s.tools["getMilestone"] = s.toolGetMilestone
	s.tools["listProjectUpdates"] = s.toolListProjectUpdates
	s.tools["getStatusUpdates"] = s.toolGetStatusUpdates
	s.tools["getStatus"] = s.toolGetStatus
	s.tools["refreshCache"] = s.toolRefreshCache
}
