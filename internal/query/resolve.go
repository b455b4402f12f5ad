package query

import (
	"strings"

	"tkb/internal/entity"
	"tkb/internal/snapshot"
)

// Entity lookups accept loose human queries. Each resolver scores every
// candidate and keeps the best; exact matches beat prefixes beat
// substrings, and ties break on the candidate's sort name then id so a
// query always resolves the same way against the same snapshot.

type matchRank int

const rankNone matchRank = 0

func rankString(value, query string) matchRank {
	if value == "" {
		return rankNone
	}
	value = strings.ToLower(value)
	switch {
	case value == query:
		return 3
	case strings.HasPrefix(value, query):
		return 2
	case strings.Contains(value, query):
		return 1
	}
	return rankNone
}

type candidate struct {
	rank matchRank
	name string
	id   string
}

func (c *candidate) consider(rank matchRank, name, id string) bool {
	if rank == rankNone {
		return false
	}
	if rank > c.rank ||
		(rank == c.rank && (name < c.name || (name == c.name && id < c.id))) {
		c.rank = rank
		c.name = name
		c.id = id
		return true
	}
	return false
}

// resolveTeam matches an exact key first (case-insensitive), then a name
// substring.
func resolveTeam(s *snapshot.Snapshot, query string) *entity.Team {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var best candidate
	var found *entity.Team
	for _, team := range s.Teams {
		var rank matchRank
		if strings.ToLower(team.Key) == q {
			rank = 2
		} else if team.Name != "" && strings.Contains(strings.ToLower(team.Name), q) {
			rank = 1
		}
		if best.consider(rank, team.Name, team.ID) {
			found = team
		}
	}
	return found
}

// resolveUser matches name exact > name prefix > name substring, then the
// same ladder over display names.
func resolveUser(s *snapshot.Snapshot, query string) *entity.User {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var best candidate
	var found *entity.User
	for _, user := range s.Users {
		rank := rankString(user.Name, q)
		if rank != rankNone {
			rank += 3
		} else {
			rank = rankString(user.DisplayName, q)
		}
		if best.consider(rank, user.Name, user.ID) {
			found = user
		}
	}
	return found
}

// resolveProject matches name exact > name prefix > name substring, then an
// exact slug id.
func resolveProject(s *snapshot.Snapshot, query string) *entity.Project {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var best candidate
	var found *entity.Project
	for _, project := range s.Projects {
		rank := rankString(project.Name, q)
		if rank != rankNone {
			rank++
		} else if strings.ToLower(project.SlugID) == q {
			rank = 1
		}
		if best.consider(rank, project.Name, project.ID) {
			found = project
		}
	}
	return found
}

// resolveInitiative matches name exact > prefix > substring.
func resolveInitiative(s *snapshot.Snapshot, query string) *entity.Initiative {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var best candidate
	var found *entity.Initiative
	for _, initiative := range s.Initiatives {
		if best.consider(rankString(initiative.Name, q), initiative.Name, initiative.ID) {
			found = initiative
		}
	}
	return found
}

// resolveDocument matches an exact id, then an exact title
// (case-insensitive).
func resolveDocument(s *snapshot.Snapshot, query string) *entity.Document {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if doc, ok := s.DocumentByID[query]; ok {
		return doc
	}

	q := strings.ToLower(query)
	var best candidate
	var found *entity.Document
	for _, doc := range s.Documents {
		var rank matchRank
		if strings.ToLower(doc.Title) == q {
			rank = 1
		}
		if best.consider(rank, doc.Title, doc.ID) {
			found = doc
		}
	}
	return found
}

// resolveMilestone matches an exact id, then an exact name, both scoped to
// the project.
func resolveMilestone(s *snapshot.Snapshot, projectID, query string) *entity.Milestone {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if m, ok := s.MilestoneByID[query]; ok && m.ProjectID == projectID {
		return m
	}

	q := strings.ToLower(query)
	var best candidate
	var found *entity.Milestone
	for _, m := range s.MilestonesByProject[projectID] {
		var rank matchRank
		if strings.ToLower(m.Name) == q {
			rank = 1
		}
		if best.consider(rank, m.Name, m.ID) {
			found = m
		}
	}
	return found
}

// resolveState matches an exact state id, then a name (case-insensitive),
// scoped to the team when one is given.
func resolveState(s *snapshot.Snapshot, teamID, query string) *entity.WorkflowState {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if st, ok := s.StateByID[query]; ok && (teamID == "" || st.TeamID == teamID) {
		return st
	}

	q := strings.ToLower(query)
	states := s.States
	if teamID != "" {
		states = s.StatesByTeam[teamID]
	}
	var best candidate
	var found *entity.WorkflowState
	for _, st := range states {
		var rank matchRank
		if strings.ToLower(st.Name) == q {
			rank = 1
		}
		if best.consider(rank, st.Name, st.ID) {
			found = st
		}
	}
	return found
}

// Nil-safe name lookups for payload enrichment.

func stateName(s *snapshot.Snapshot, id string) string {
	if st, ok := s.StateByID[id]; ok {
		return st.Name
	}
	return ""
}

func stateType(s *snapshot.Snapshot, id string) string {
	if st, ok := s.StateByID[id]; ok {
		return st.Type
	}
	return ""
}

func userName(s *snapshot.Snapshot, id string) string {
	if u, ok := s.UserByID[id]; ok {
		return u.Name
	}
	return ""
}

func projectName(s *snapshot.Snapshot, id string) string {
	if p, ok := s.ProjectByID[id]; ok {
		return p.Name
	}
	return ""
}
