package snapshot

import (
	"sort"
	"strings"

	"tkb/internal/entity"
	tkberrors "tkb/internal/errors"
)

// Scope restricts a snapshot to the workspaces of one account. The store
// file can hold records from every workspace the desktop app ever signed
// into; an active scope guarantees queries only see the configured one.
type Scope struct {
	// Emails match users case-insensitively by email address.
	Emails []string
	// AccountIDs match users by their account identifier.
	AccountIDs []string
}

// Enabled reports whether any scope criterion is configured.
func (sc Scope) Enabled() bool {
	return len(sc.Emails) > 0 || len(sc.AccountIDs) > 0
}

// ScopeReport records how the scope resolved, for status output.
type ScopeReport struct {
	Enabled       bool     `json:"enabled"`
	MatchedUsers  int      `json:"matchedUsers,omitempty"`
	Organizations []string `json:"organizations,omitempty"`
	Excluded      int      `json:"excluded,omitempty"`
}

// apply filters the snapshot's entity slices in place, before indexing.
// Children inherit scope through their parent chain: teams follow their
// organization, issues follow their team, comments follow their issue, and
// so on down the containment tree.
//
// Resolution failure is fatal to the refresh: a scope matching no user
// must never degrade into an unscoped or silently empty snapshot.
func (sc Scope) apply(s *Snapshot) (ScopeReport, error) {
	if !sc.Enabled() {
		return ScopeReport{Enabled: false}, nil
	}

	emails := make(map[string]bool, len(sc.Emails))
	for _, e := range sc.Emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			emails[e] = true
		}
	}
	accounts := make(map[string]bool, len(sc.AccountIDs))
	for _, id := range sc.AccountIDs {
		if id = strings.TrimSpace(id); id != "" {
			accounts[id] = true
		}
	}

	matchedEmail := false
	var matched []*entity.User
	for _, u := range s.Users {
		byEmail := len(emails) > 0 && emails[strings.ToLower(u.Email)]
		byAccount := len(accounts) > 0 && u.UserAccountID != "" && accounts[u.UserAccountID]
		if byEmail {
			matchedEmail = true
		}
		if byEmail || byAccount {
			matched = append(matched, u)
		}
	}
	if len(emails) > 0 && !matchedEmail {
		return ScopeReport{}, tkberrors.NewScopeUnresolved(
			"no matching user for configured account emails")
	}

	orgs := make(map[string]bool)
	for _, u := range matched {
		if u.OrgID != "" {
			orgs[u.OrgID] = true
		}
	}
	if len(orgs) == 0 {
		return ScopeReport{}, tkberrors.NewScopeUnresolved(
			"no matching organization for configured account scope")
	}

	report := ScopeReport{
		Enabled:      true,
		MatchedUsers: len(matched),
	}
	for org := range orgs {
		report.Organizations = append(report.Organizations, org)
	}
	sort.Strings(report.Organizations)

	before := s.totalEntities()

	s.Users = keep(s.Users, func(u *entity.User) bool { return orgs[u.OrgID] })
	s.Teams = keep(s.Teams, func(t *entity.Team) bool { return orgs[t.OrgID] })

	teams := make(map[string]bool, len(s.Teams))
	for _, t := range s.Teams {
		teams[t.ID] = true
	}
	users := make(map[string]bool, len(s.Users))
	for _, u := range s.Users {
		users[u.ID] = true
	}

	s.States = keep(s.States, func(st *entity.WorkflowState) bool { return teams[st.TeamID] })
	s.Cycles = keep(s.Cycles, func(cy *entity.Cycle) bool { return teams[cy.TeamID] })
	s.Issues = keep(s.Issues, func(is *entity.Issue) bool { return teams[is.TeamID] })

	// Workspace-global labels have no team and stay visible.
	s.Labels = keep(s.Labels, func(l *entity.Label) bool {
		return l.TeamID == "" || teams[l.TeamID]
	})

	issues := make(map[string]bool, len(s.Issues))
	for _, is := range s.Issues {
		issues[is.ID] = true
	}
	s.Comments = keep(s.Comments, func(c *entity.Comment) bool { return issues[c.IssueID] })

	s.Projects = keep(s.Projects, func(p *entity.Project) bool {
		for _, tid := range p.TeamIDs {
			if teams[tid] {
				return true
			}
		}
		if p.LeadID != "" && users[p.LeadID] {
			return true
		}
		for _, mid := range p.MemberIDs {
			if users[mid] {
				return true
			}
		}
		return false
	})

	s.Initiatives = keep(s.Initiatives, func(in *entity.Initiative) bool {
		for _, tid := range in.TeamIDs {
			if teams[tid] {
				return true
			}
		}
		return in.OwnerID != "" && users[in.OwnerID]
	})

	projects := make(map[string]bool, len(s.Projects))
	statusRefs := make(map[string]bool)
	for _, p := range s.Projects {
		projects[p.ID] = true
		if p.StatusID != "" {
			statusRefs[p.StatusID] = true
		}
	}

	s.Documents = keep(s.Documents, func(d *entity.Document) bool {
		if d.ProjectID != "" {
			return projects[d.ProjectID]
		}
		return d.CreatorID != "" && users[d.CreatorID]
	})
	s.Milestones = keep(s.Milestones, func(m *entity.Milestone) bool { return projects[m.ProjectID] })
	s.ProjectUpdates = keep(s.ProjectUpdates, func(pu *entity.ProjectUpdate) bool { return projects[pu.ProjectID] })
	s.ProjectStatuses = keep(s.ProjectStatuses, func(ps *entity.ProjectStatus) bool { return statusRefs[ps.ID] })

	report.Excluded = before - s.totalEntities()
	return report, nil
}

func (s *Snapshot) totalEntities() int {
	n := 0
	for _, c := range s.Counts() {
		n += c
	}
	return n
}

func keep[E any](list []*E, pred func(*E) bool) []*E {
	out := list[:0]
	for _, e := range list {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}
