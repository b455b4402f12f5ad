package shape

import "tkb/internal/entity"

// DefaultTable returns the built-in signature table mirroring the upstream
// application's schema. An external TOML table (shapes.path) replaces it
// wholesale when configured.
func DefaultTable() *Table {
	t := &Table{Kinds: map[string]Signature{
		string(entity.KindIssue): {
			Required: req("number", "teamId", "stateId", "title"),
		},
		string(entity.KindUser): {
			Required: req("name", "displayName", "email"),
		},
		string(entity.KindTeam): {
			Required: []FieldRule{
				{Field: "key", Type: TypeString, Pattern: `[A-Z0-9]{1,10}`},
				{Field: "name"},
			},
		},
		string(entity.KindWorkflowState): {
			Required: []FieldRule{
				{Field: "name"},
				{Field: "type", Values: []string{
					"started", "unstarted", "completed", "canceled", "backlog", "triage",
				}},
				{Field: "color"},
				{Field: "teamId"},
			},
		},
		string(entity.KindComment): {
			Required: req("issueId", "userId", "bodyData", "createdAt"),
		},
		string(entity.KindProject): {
			Required: []FieldRule{
				{Field: "name"},
				{Field: "teamIds", Type: TypeList},
				{Field: "slugId"},
				{Field: "statusId"},
				{Field: "memberIds", Type: TypeList},
			},
		},
		string(entity.KindProjectStatus): {
			Required: []FieldRule{
				{Field: "name"},
				{Field: "color"},
				{Field: "position", Type: TypeNumber},
				{Field: "type"},
			},
			Absent: []string{"teamId"},
		},
		string(entity.KindLabel): {
			Required: req("name", "color", "isGroup"),
		},
		string(entity.KindInitiative): {
			Required: req("name", "ownerId", "slugId", "frequencyResolution"),
		},
		string(entity.KindCycle): {
			Required: []FieldRule{
				{Field: "number", Type: TypeNumber},
				{Field: "teamId"},
				{Field: "startsAt"},
				{Field: "endsAt"},
			},
		},
		string(entity.KindDocument): {
			Required: req("title", "slugId", "sortOrder"),
			AnyOf:    []string{"projectId", "initiativeId"},
			Absent:   []string{"number", "stateId"},
		},
		string(entity.KindMilestone): {
			Required: req("name", "projectId", "sortOrder"),
			AnyOf:    []string{"currentProgress", "targetDate"},
		},
		string(entity.KindProjectUpdate): {
			Required: req("body"),
			AnyOf:    []string{"projectId", "health"},
			Absent:   []string{"issueId"},
		},
		string(entity.KindIssueContent): {
			Required: req("issueId", "contentState"),
		},
		string(entity.KindDocumentContent): {
			Required: req("documentContentId", "contentData"),
		},
	}}
	if err := t.compile(); err != nil {
		panic("built-in signature table: " + err.Error())
	}
	return t
}

func req(fields ...string) []FieldRule {
	rules := make([]FieldRule, len(fields))
	for i, f := range fields {
		rules[i] = FieldRule{Field: f}
	}
	return rules
}
