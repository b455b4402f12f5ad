package entity

import "time"

// Issue is one tracked work item. Identifier is computed at materialization
// from the owning team's key and the issue number.
type Issue struct {
	ID          string
	Identifier  string
	Number      int
	Title       string
	Description string
	Priority    int
	Estimate    *float64
	SortOrder   float64
	DueDate     string // date-only, as stored
	TeamID      string
	StateID     string
	AssigneeID  string
	CreatorID   string
	ProjectID   string
	ParentID    string
	CycleID     string
	MilestoneID string
	LabelIDs    []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type User struct {
	ID            string
	Name          string
	DisplayName   string
	Email         string
	Active        bool
	UserAccountID string
	OrgID         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Team struct {
	ID          string
	Key         string
	Name        string
	Description string
	OrgID       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkflowState is one column of a team's issue workflow.
type WorkflowState struct {
	ID       string
	Name     string
	Type     string // started, unstarted, completed, canceled, backlog, triage
	Color    string
	Position float64
	TeamID   string
}

type Comment struct {
	ID        string
	IssueID   string
	UserID    string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Progress is the issue-count rollup some parents carry.
type Progress struct {
	Completed int `json:"completed"`
	Started   int `json:"started"`
	Unstarted int `json:"unstarted"`
	Total     int `json:"total"`
}

type Project struct {
	ID          string
	Name        string
	Description string
	SlugID      string
	State       string
	StatusID    string
	LeadID      string
	TeamIDs     []string
	MemberIDs   []string
	StartDate   string // date-only, as stored
	TargetDate  string
	Progress    *Progress
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectStatus is an organization-wide project status definition,
// referenced by Project.StatusID.
type ProjectStatus struct {
	ID       string
	Name     string
	Color    string
	Type     string
	Position float64
}

type Label struct {
	ID       string
	Name     string
	Color    string
	TeamID   string // empty for workspace-level labels
	ParentID string
	IsGroup  bool
}

type Initiative struct {
	ID        string
	Name      string
	SlugID    string
	Color     string
	Status    string
	OwnerID   string
	TeamIDs   []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Cycle struct {
	ID          string
	Number      int
	Name        string
	TeamID      string
	StartsAt    time.Time
	EndsAt      time.Time
	CompletedAt time.Time
	Progress    *Progress
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Document struct {
	ID           string
	Title        string
	SlugID       string
	ProjectID    string
	InitiativeID string
	CreatorID    string
	SortOrder    float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Milestone struct {
	ID         string
	Name       string
	ProjectID  string
	TargetDate string
	SortOrder  float64
	Progress   *Progress
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ProjectUpdate struct {
	ID        string
	ProjectID string
	UserID    string
	Body      string
	Health    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
