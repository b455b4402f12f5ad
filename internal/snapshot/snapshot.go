// Package snapshot materializes decoded store records into an immutable,
// indexed view of the tracker workspace. A Snapshot is built in one pass
// over the store, scoped to the configured account, and then never mutated;
// readers hold it only through the cache layer's atomic pointer.
package snapshot

import (
	"fmt"
	"strings"
	"time"

	"tkb/internal/entity"
)

// Snapshot is one materialized view of the store. All slices and maps are
// frozen after Materialize returns; entities are shared between the slices
// and the indices.
type Snapshot struct {
	Generation uint64
	ID         string
	AsOf       time.Time

	Issues          []*entity.Issue
	Users           []*entity.User
	Teams           []*entity.Team
	States          []*entity.WorkflowState
	Comments        []*entity.Comment
	Projects        []*entity.Project
	ProjectStatuses []*entity.ProjectStatus
	Labels          []*entity.Label
	Initiatives     []*entity.Initiative
	Cycles          []*entity.Cycle
	Documents       []*entity.Document
	Milestones      []*entity.Milestone
	ProjectUpdates  []*entity.ProjectUpdate

	IssueByID         map[string]*entity.Issue
	IssueByIdentifier map[string]*entity.Issue
	UserByID          map[string]*entity.User
	TeamByID          map[string]*entity.Team
	StateByID         map[string]*entity.WorkflowState
	CommentByID       map[string]*entity.Comment
	ProjectByID       map[string]*entity.Project
	StatusByID        map[string]*entity.ProjectStatus
	LabelByID         map[string]*entity.Label
	InitiativeByID    map[string]*entity.Initiative
	CycleByID         map[string]*entity.Cycle
	DocumentByID      map[string]*entity.Document
	MilestoneByID     map[string]*entity.Milestone
	UpdateByID        map[string]*entity.ProjectUpdate

	IssuesByTeam        map[string][]*entity.Issue
	IssuesByAssignee    map[string][]*entity.Issue
	IssuesByProject     map[string][]*entity.Issue
	IssuesByParent      map[string][]*entity.Issue
	CommentsByIssue     map[string][]*entity.Comment
	StatesByTeam        map[string][]*entity.WorkflowState
	LabelsByTeam        map[string][]*entity.Label
	CyclesByTeam        map[string][]*entity.Cycle
	ProjectsByTeam      map[string][]*entity.Project
	DocumentsByProject  map[string][]*entity.Document
	MilestonesByProject map[string][]*entity.Milestone
	UpdatesByProject    map[string][]*entity.ProjectUpdate

	Report Report
}

// index builds all lookup maps, computes issue display identifiers, and
// fills the secondary indices. Called once, after scope filtering.
func (s *Snapshot) index() {
	s.IssueByID = make(map[string]*entity.Issue, len(s.Issues))
	for _, is := range s.Issues {
		s.IssueByID[is.ID] = is
	}
	s.UserByID = make(map[string]*entity.User, len(s.Users))
	for _, u := range s.Users {
		s.UserByID[u.ID] = u
	}
	s.TeamByID = make(map[string]*entity.Team, len(s.Teams))
	for _, t := range s.Teams {
		s.TeamByID[t.ID] = t
	}
	s.StateByID = make(map[string]*entity.WorkflowState, len(s.States))
	for _, st := range s.States {
		s.StateByID[st.ID] = st
	}
	s.CommentByID = make(map[string]*entity.Comment, len(s.Comments))
	for _, c := range s.Comments {
		s.CommentByID[c.ID] = c
	}
	s.ProjectByID = make(map[string]*entity.Project, len(s.Projects))
	for _, p := range s.Projects {
		s.ProjectByID[p.ID] = p
	}
	s.StatusByID = make(map[string]*entity.ProjectStatus, len(s.ProjectStatuses))
	for _, ps := range s.ProjectStatuses {
		s.StatusByID[ps.ID] = ps
	}
	s.LabelByID = make(map[string]*entity.Label, len(s.Labels))
	for _, l := range s.Labels {
		s.LabelByID[l.ID] = l
	}
	s.InitiativeByID = make(map[string]*entity.Initiative, len(s.Initiatives))
	for _, in := range s.Initiatives {
		s.InitiativeByID[in.ID] = in
	}
	s.CycleByID = make(map[string]*entity.Cycle, len(s.Cycles))
	for _, cy := range s.Cycles {
		s.CycleByID[cy.ID] = cy
	}
	s.DocumentByID = make(map[string]*entity.Document, len(s.Documents))
	for _, d := range s.Documents {
		s.DocumentByID[d.ID] = d
	}
	s.MilestoneByID = make(map[string]*entity.Milestone, len(s.Milestones))
	for _, m := range s.Milestones {
		s.MilestoneByID[m.ID] = m
	}
	s.UpdateByID = make(map[string]*entity.ProjectUpdate, len(s.ProjectUpdates))
	for _, pu := range s.ProjectUpdates {
		s.UpdateByID[pu.ID] = pu
	}

	// Display identifiers need the team index; issues of a dangling team
	// keep an empty identifier and surface in the dangling count.
	s.IssueByIdentifier = make(map[string]*entity.Issue, len(s.Issues))
	for _, is := range s.Issues {
		if team, ok := s.TeamByID[is.TeamID]; ok && team.Key != "" {
			is.Identifier = fmt.Sprintf("%s-%d", team.Key, is.Number)
			s.IssueByIdentifier[strings.ToUpper(is.Identifier)] = is
		}
	}

	s.IssuesByTeam = make(map[string][]*entity.Issue)
	s.IssuesByAssignee = make(map[string][]*entity.Issue)
	s.IssuesByProject = make(map[string][]*entity.Issue)
	s.IssuesByParent = make(map[string][]*entity.Issue)
	for _, is := range s.Issues {
		if is.TeamID != "" {
			s.IssuesByTeam[is.TeamID] = append(s.IssuesByTeam[is.TeamID], is)
		}
		if is.AssigneeID != "" {
			s.IssuesByAssignee[is.AssigneeID] = append(s.IssuesByAssignee[is.AssigneeID], is)
		}
		if is.ProjectID != "" {
			s.IssuesByProject[is.ProjectID] = append(s.IssuesByProject[is.ProjectID], is)
		}
		if is.ParentID != "" {
			s.IssuesByParent[is.ParentID] = append(s.IssuesByParent[is.ParentID], is)
		}
	}

	s.CommentsByIssue = make(map[string][]*entity.Comment)
	for _, c := range s.Comments {
		if c.IssueID != "" {
			s.CommentsByIssue[c.IssueID] = append(s.CommentsByIssue[c.IssueID], c)
		}
	}

	s.StatesByTeam = make(map[string][]*entity.WorkflowState)
	for _, st := range s.States {
		if st.TeamID != "" {
			s.StatesByTeam[st.TeamID] = append(s.StatesByTeam[st.TeamID], st)
		}
	}
	s.LabelsByTeam = make(map[string][]*entity.Label)
	for _, l := range s.Labels {
		if l.TeamID != "" {
			s.LabelsByTeam[l.TeamID] = append(s.LabelsByTeam[l.TeamID], l)
		}
	}
	s.CyclesByTeam = make(map[string][]*entity.Cycle)
	for _, cy := range s.Cycles {
		if cy.TeamID != "" {
			s.CyclesByTeam[cy.TeamID] = append(s.CyclesByTeam[cy.TeamID], cy)
		}
	}
	s.ProjectsByTeam = make(map[string][]*entity.Project)
	for _, p := range s.Projects {
		for _, tid := range p.TeamIDs {
			s.ProjectsByTeam[tid] = append(s.ProjectsByTeam[tid], p)
		}
	}

	s.DocumentsByProject = make(map[string][]*entity.Document)
	for _, d := range s.Documents {
		if d.ProjectID != "" {
			s.DocumentsByProject[d.ProjectID] = append(s.DocumentsByProject[d.ProjectID], d)
		}
	}
	s.MilestonesByProject = make(map[string][]*entity.Milestone)
	for _, m := range s.Milestones {
		if m.ProjectID != "" {
			s.MilestonesByProject[m.ProjectID] = append(s.MilestonesByProject[m.ProjectID], m)
		}
	}
	s.UpdatesByProject = make(map[string][]*entity.ProjectUpdate)
	for _, pu := range s.ProjectUpdates {
		if pu.ProjectID != "" {
			s.UpdatesByProject[pu.ProjectID] = append(s.UpdatesByProject[pu.ProjectID], pu)
		}
	}
}

// Counts returns the number of materialized entities per kind.
func (s *Snapshot) Counts() map[entity.Kind]int {
	return map[entity.Kind]int{
		entity.KindIssue:         len(s.Issues),
		entity.KindUser:          len(s.Users),
		entity.KindTeam:          len(s.Teams),
		entity.KindWorkflowState: len(s.States),
		entity.KindComment:       len(s.Comments),
		entity.KindProject:       len(s.Projects),
		entity.KindProjectStatus: len(s.ProjectStatuses),
		entity.KindLabel:         len(s.Labels),
		entity.KindInitiative:    len(s.Initiatives),
		entity.KindCycle:         len(s.Cycles),
		entity.KindDocument:      len(s.Documents),
		entity.KindMilestone:     len(s.Milestones),
		entity.KindProjectUpdate: len(s.ProjectUpdates),
	}
}

// countDangling counts relational identifiers that do not resolve within
// this snapshot. Dangling references are permitted; they are reported, not
// repaired.
func (s *Snapshot) countDangling() int {
	n := 0
	miss := func(id string, ok bool) {
		if id != "" && !ok {
			n++
		}
	}

	for _, is := range s.Issues {
		_, ok := s.TeamByID[is.TeamID]
		miss(is.TeamID, ok)
		_, ok = s.StateByID[is.StateID]
		miss(is.StateID, ok)
		_, ok = s.UserByID[is.AssigneeID]
		miss(is.AssigneeID, ok)
		_, ok = s.UserByID[is.CreatorID]
		miss(is.CreatorID, ok)
		_, ok = s.ProjectByID[is.ProjectID]
		miss(is.ProjectID, ok)
		_, ok = s.IssueByID[is.ParentID]
		miss(is.ParentID, ok)
		_, ok = s.CycleByID[is.CycleID]
		miss(is.CycleID, ok)
		_, ok = s.MilestoneByID[is.MilestoneID]
		miss(is.MilestoneID, ok)
	}
	for _, c := range s.Comments {
		_, ok := s.IssueByID[c.IssueID]
		miss(c.IssueID, ok)
		_, ok = s.UserByID[c.UserID]
		miss(c.UserID, ok)
	}
	for _, p := range s.Projects {
		_, ok := s.StatusByID[p.StatusID]
		miss(p.StatusID, ok)
		_, ok = s.UserByID[p.LeadID]
		miss(p.LeadID, ok)
		for _, tid := range p.TeamIDs {
			_, ok := s.TeamByID[tid]
			miss(tid, ok)
		}
	}
	for _, st := range s.States {
		_, ok := s.TeamByID[st.TeamID]
		miss(st.TeamID, ok)
	}
	for _, cy := range s.Cycles {
		_, ok := s.TeamByID[cy.TeamID]
		miss(cy.TeamID, ok)
	}
	for _, d := range s.Documents {
		_, ok := s.ProjectByID[d.ProjectID]
		miss(d.ProjectID, ok)
	}
	for _, m := range s.Milestones {
		_, ok := s.ProjectByID[m.ProjectID]
		miss(m.ProjectID, ok)
	}
	for _, pu := range s.ProjectUpdates {
		_, ok := s.ProjectByID[pu.ProjectID]
		miss(pu.ProjectID, ok)
		_, ok = s.UserByID[pu.UserID]
		miss(pu.UserID, ok)
	}
	return n
}
