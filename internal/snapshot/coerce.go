package snapshot

import (
	"time"

	"tkb/internal/codec"
	"tkb/internal/entity"
)

// Field coercion is deliberately lenient: the store belongs to another
// application and its schema drifts between releases. A field of an
// unexpected type coerces to the zero value rather than failing the whole
// record; classification has already vouched for the record's shape.

type fields struct {
	rec *codec.DecodedRecord
}

func (f fields) get(name string) any {
	v, ok := f.rec.Field(name)
	if !ok {
		return nil
	}
	return v
}

func (f fields) str(name string) string {
	s, _ := f.get(name).(string)
	return s
}

func (f fields) boolean(name string) bool {
	b, _ := f.get(name).(bool)
	return b
}

func (f fields) number(name string) float64 {
	switch v := f.get(name).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func (f fields) integer(name string) int {
	return int(f.number(name))
}

func (f fields) optNumber(name string) *float64 {
	switch v := f.get(name).(type) {
	case float64:
		return &v
	case int64:
		n := float64(v)
		return &n
	}
	return nil
}

// instant accepts the three timestamp encodings the store has been seen to
// use: a serialized Date, an ISO 8601 string, and epoch milliseconds.
func (f fields) instant(name string) time.Time {
	switch v := f.get(name).(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC()
		}
	case float64:
		return time.UnixMilli(int64(v)).UTC()
	case int64:
		return time.UnixMilli(v).UTC()
	}
	return time.Time{}
}

func (f fields) strList(name string) []string {
	list, ok := f.get(name).([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, el := range list {
		if s, ok := f.rec.Resolve(el).(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// progress reads the nested issue-count rollup carried by cycles,
// milestones, and projects. A missing or malformed rollup is nil.
func (f fields) progress(name string) *entity.Progress {
	m, ok := f.get(name).(map[string]any)
	if !ok {
		return nil
	}
	sub := func(key string) int {
		switch v := f.rec.Resolve(m[key]).(type) {
		case float64:
			return int(v)
		case int64:
			return int(v)
		}
		return 0
	}
	return &entity.Progress{
		Completed: sub("completedIssueCount"),
		Started:   sub("startedIssueCount"),
		Unstarted: sub("unstartedIssueCount"),
		Total:     sub("scopeCount"),
	}
}

func coerceIssue(rec *codec.DecodedRecord) *entity.Issue {
	f := fields{rec}
	return &entity.Issue{
		ID:          f.str("id"),
		Number:      f.integer("number"),
		Title:       f.str("title"),
		Description: f.str("description"),
		Priority:    f.integer("priority"),
		Estimate:    f.optNumber("estimate"),
		SortOrder:   f.number("sortOrder"),
		DueDate:     f.str("dueDate"),
		TeamID:      f.str("teamId"),
		StateID:     f.str("stateId"),
		AssigneeID:  f.str("assigneeId"),
		CreatorID:   f.str("creatorId"),
		ProjectID:   f.str("projectId"),
		ParentID:    f.str("parentId"),
		CycleID:     f.str("cycleId"),
		MilestoneID: f.str("projectMilestoneId"),
		LabelIDs:    f.strList("labelIds"),
		CreatedAt:   f.instant("createdAt"),
		UpdatedAt:   f.instant("updatedAt"),
	}
}

func coerceUser(rec *codec.DecodedRecord) *entity.User {
	f := fields{rec}
	return &entity.User{
		ID:            f.str("id"),
		Name:          f.str("name"),
		DisplayName:   f.str("displayName"),
		Email:         f.str("email"),
		Active:        f.boolean("active"),
		UserAccountID: f.str("userAccountId"),
		OrgID:         f.str("organizationId"),
		CreatedAt:     f.instant("createdAt"),
		UpdatedAt:     f.instant("updatedAt"),
	}
}

func coerceTeam(rec *codec.DecodedRecord) *entity.Team {
	f := fields{rec}
	return &entity.Team{
		ID:          f.str("id"),
		Key:         f.str("key"),
		Name:        f.str("name"),
		Description: f.str("description"),
		OrgID:       f.str("organizationId"),
		CreatedAt:   f.instant("createdAt"),
		UpdatedAt:   f.instant("updatedAt"),
	}
}

func coerceState(rec *codec.DecodedRecord) *entity.WorkflowState {
	f := fields{rec}
	return &entity.WorkflowState{
		ID:       f.str("id"),
		Name:     f.str("name"),
		Type:     f.str("type"),
		Color:    f.str("color"),
		Position: f.number("position"),
		TeamID:   f.str("teamId"),
	}
}

func coerceComment(rec *codec.DecodedRecord) *entity.Comment {
	f := fields{rec}
	return &entity.Comment{
		ID:        f.str("id"),
		IssueID:   f.str("issueId"),
		UserID:    f.str("userId"),
		Body:      f.str("body"),
		CreatedAt: f.instant("createdAt"),
		UpdatedAt: f.instant("updatedAt"),
	}
}

func coerceProject(rec *codec.DecodedRecord) *entity.Project {
	f := fields{rec}
	return &entity.Project{
		ID:          f.str("id"),
		Name:        f.str("name"),
		Description: f.str("description"),
		SlugID:      f.str("slugId"),
		State:       f.str("state"),
		StatusID:    f.str("statusId"),
		LeadID:      f.str("leadId"),
		TeamIDs:     f.strList("teamIds"),
		MemberIDs:   f.strList("memberIds"),
		StartDate:   f.str("startDate"),
		TargetDate:  f.str("targetDate"),
		Progress:    f.progress("currentProgress"),
		CreatedAt:   f.instant("createdAt"),
		UpdatedAt:   f.instant("updatedAt"),
	}
}

func coerceProjectStatus(rec *codec.DecodedRecord) *entity.ProjectStatus {
	f := fields{rec}
	return &entity.ProjectStatus{
		ID:       f.str("id"),
		Name:     f.str("name"),
		Color:    f.str("color"),
		Type:     f.str("type"),
		Position: f.number("position"),
	}
}

func coerceLabel(rec *codec.DecodedRecord) *entity.Label {
	f := fields{rec}
	return &entity.Label{
		ID:       f.str("id"),
		Name:     f.str("name"),
		Color:    f.str("color"),
		TeamID:   f.str("teamId"),
		ParentID: f.str("parentId"),
		IsGroup:  f.boolean("isGroup"),
	}
}

func coerceInitiative(rec *codec.DecodedRecord) *entity.Initiative {
	f := fields{rec}
	return &entity.Initiative{
		ID:        f.str("id"),
		Name:      f.str("name"),
		SlugID:    f.str("slugId"),
		Color:     f.str("color"),
		Status:    f.str("status"),
		OwnerID:   f.str("ownerId"),
		TeamIDs:   f.strList("teamIds"),
		CreatedAt: f.instant("createdAt"),
		UpdatedAt: f.instant("updatedAt"),
	}
}

func coerceCycle(rec *codec.DecodedRecord) *entity.Cycle {
	f := fields{rec}
	return &entity.Cycle{
		ID:          f.str("id"),
		Number:      f.integer("number"),
		Name:        f.str("name"),
		TeamID:      f.str("teamId"),
		StartsAt:    f.instant("startsAt"),
		EndsAt:      f.instant("endsAt"),
		CompletedAt: f.instant("completedAt"),
		Progress:    f.progress("currentProgress"),
		CreatedAt:   f.instant("createdAt"),
		UpdatedAt:   f.instant("updatedAt"),
	}
}

func coerceDocument(rec *codec.DecodedRecord) *entity.Document {
	f := fields{rec}
	return &entity.Document{
		ID:           f.str("id"),
		Title:        f.str("title"),
		SlugID:       f.str("slugId"),
		ProjectID:    f.str("projectId"),
		InitiativeID: f.str("initiativeId"),
		CreatorID:    f.str("creatorId"),
		SortOrder:    f.number("sortOrder"),
		CreatedAt:    f.instant("createdAt"),
		UpdatedAt:    f.instant("updatedAt"),
	}
}

func coerceMilestone(rec *codec.DecodedRecord) *entity.Milestone {
	f := fields{rec}
	return &entity.Milestone{
		ID:         f.str("id"),
		Name:       f.str("name"),
		ProjectID:  f.str("projectId"),
		TargetDate: f.str("targetDate"),
		SortOrder:  f.number("sortOrder"),
		Progress:   f.progress("currentProgress"),
		CreatedAt:  f.instant("createdAt"),
		UpdatedAt:  f.instant("updatedAt"),
	}
}

func coerceProjectUpdate(rec *codec.DecodedRecord) *entity.ProjectUpdate {
	f := fields{rec}
	return &entity.ProjectUpdate{
		ID:        f.str("id"),
		ProjectID: f.str("projectId"),
		UserID:    f.str("userId"),
		Body:      f.str("body"),
		Health:    f.str("health"),
		CreatedAt: f.instant("createdAt"),
		UpdatedAt: f.instant("updatedAt"),
	}
}
