package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"tkb/internal/cache"
	"tkb/internal/envelope"
	"tkb/internal/output"
	"tkb/internal/query"
)

// OutputFormat selects how command output is rendered.
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatYAML  OutputFormat = "yaml"
)

// printResponse renders an envelope to stdout in the selected format.
// JSON and YAML emit the whole envelope; human renders the payload and
// appends a freshness footer.
func printResponse(resp *envelope.Response) error {
	switch OutputFormat(formatFlag) {
	case FormatJSON:
		data, err := output.DeterministicEncodeIndented(resp, "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case FormatYAML:
		data, err := toYAML(resp)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	case FormatHuman:
		s, err := formatHuman(resp.Data)
		if err != nil {
			return err
		}
		fmt.Print(s)
		printFooter(resp)
	default:
		return fmt.Errorf("unsupported format %q (json, human, yaml)", formatFlag)
	}
	return nil
}

// toYAML goes through the deterministic JSON encoding first, so YAML
// output carries the same field names and normalization as JSON.
func toYAML(v any) ([]byte, error) {
	data, err := output.DeterministicEncode(v)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return yaml.Marshal(tree)
}

func printFooter(resp *envelope.Response) {
	for _, w := range resp.Warnings {
		if w.Code != "" {
			fmt.Printf("! %s: %s\n", w.Code, w.Message)
		} else {
			fmt.Printf("! %s\n", w.Message)
		}
	}
	m := resp.Meta
	if m == nil {
		return
	}
	line := fmt.Sprintf("Snapshot generation %d, as of %s (age %s)",
		m.Generation, output.FormatTime(m.AsOf), output.FormatAge(m.AgeSeconds))
	if m.Stale {
		line += " [stale]"
	}
	if m.Degraded {
		line += " [degraded]"
	}
	if t := m.Truncation; t != nil && t.IsTruncated {
		line += fmt.Sprintf(", showing %d of %d", t.Shown, t.Total)
	}
	fmt.Printf("\n%s\n", line)
}

// formatHuman renders a payload in human-readable form. Types without a
// dedicated renderer fall back to JSON.
func formatHuman(v any) (string, error) {
	switch p := v.(type) {
	case *query.StatusResponse:
		return formatStatusHuman(p), nil
	case *query.IssueList:
		return formatIssueListHuman(p), nil
	case *query.IssueDetail:
		return formatIssueDetailHuman(p), nil
	case []query.TeamSummary:
		return formatTeamsHuman(p), nil
	case []query.ProjectSummary:
		return formatProjectsHuman(p), nil
	case []query.UserSummary:
		return formatUsersHuman(p), nil
	case []query.CyclePayload:
		return formatCyclesHuman(p), nil
	case []query.LabelPayload:
		return formatLabelsHuman(p), nil
	case cache.Health:
		return formatHealthHuman(p), nil
	case *DoctorReport:
		return formatDoctorHuman(p), nil
	case *ShapesValidation:
		return formatShapesValidationHuman(p), nil
	case *ExportResult:
		return formatExportHuman(p), nil
	default:
		data, err := output.DeterministicEncodeIndented(v, "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	}
}

func rule(b *strings.Builder) {
	b.WriteString(strings.Repeat("=", 60) + "\n")
}

func formatStatusHuman(resp *query.StatusResponse) string {
	var b strings.Builder

	b.WriteString("TKB Status\n")
	rule(&b)

	healthIcon := "✓"
	healthText := "Healthy"
	if !resp.Healthy {
		healthIcon = "✗"
		healthText = "Degraded"
	}
	b.WriteString(fmt.Sprintf("%s %s (%d consecutive refresh failures)\n\n",
		healthIcon, healthText, resp.Health.FailureCount))
	if resp.Health.Reason != "" {
		b.WriteString(fmt.Sprintf("  Reason: %s\n", resp.Health.Reason))
	}
	if resp.Health.LastError != "" {
		b.WriteString(fmt.Sprintf("  Last error: %s\n\n", resp.Health.LastError))
	}

	if resp.Snapshot != nil {
		b.WriteString("Snapshot:\n")
		b.WriteString(fmt.Sprintf("  Generation: %d\n", resp.Snapshot.Generation))
		b.WriteString(fmt.Sprintf("  As of: %s (age %ds)\n", resp.Snapshot.AsOf, resp.Snapshot.AgeSeconds))
		if resp.Snapshot.Stale {
			b.WriteString("  Stale: yes\n")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Snapshot: none materialized yet\n\n")
	}

	if len(resp.Entities) > 0 {
		b.WriteString("Entities:\n")
		for _, kind := range sortedKeys(resp.Entities) {
			b.WriteString(fmt.Sprintf("  %-16s %d\n", kind, resp.Entities[kind]))
		}
		b.WriteString("\n")
	}

	if len(resp.Scope.AccountEmails) > 0 || len(resp.Scope.UserAccountIDs) > 0 {
		b.WriteString("Scope:\n")
		if len(resp.Scope.AccountEmails) > 0 {
			b.WriteString(fmt.Sprintf("  Emails: %s\n", strings.Join(resp.Scope.AccountEmails, ", ")))
		}
		if len(resp.Scope.UserAccountIDs) > 0 {
			b.WriteString(fmt.Sprintf("  Account IDs: %s\n", strings.Join(resp.Scope.UserAccountIDs, ", ")))
		}
		if r := resp.Scope.Report; r != nil && r.Enabled {
			b.WriteString(fmt.Sprintf("  Matched %d users, excluded %d records\n",
				r.MatchedUsers, r.Excluded))
		}
		b.WriteString("\n")
	}

	b.WriteString("Store:\n")
	path := resp.Store.Path
	if path == "" {
		path = "(not configured)"
	}
	b.WriteString(fmt.Sprintf("  Path: %s\n", path))
	b.WriteString(fmt.Sprintf("  Max age: %ds, refresh timeout: %ds\n",
		resp.Store.MaxAgeSeconds, resp.Store.RefreshTimeoutSeconds))

	return b.String()
}

func formatHealthHuman(h cache.Health) string {
	var b strings.Builder
	icon := "✓"
	if h.State != cache.StateHealthy {
		icon = "✗"
	}
	b.WriteString(fmt.Sprintf("%s Cache %s\n", icon, h.State))
	if h.FailureCount > 0 {
		b.WriteString(fmt.Sprintf("  Consecutive failures: %d\n", h.FailureCount))
	}
	if h.Reason != "" {
		b.WriteString(fmt.Sprintf("  Reason: %s\n", h.Reason))
	}
	if h.LastError != "" {
		b.WriteString(fmt.Sprintf("  Last error: %s\n", h.LastError))
	}
	if h.LastSuccessAt != nil {
		b.WriteString(fmt.Sprintf("  Last success: %s\n", output.FormatTime(*h.LastSuccessAt)))
	}
	return b.String()
}

var priorityNames = map[int]string{
	0: "none", 1: "urgent", 2: "high", 3: "normal", 4: "low",
}

func priorityName(p int) string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("P%d", p)
}

func formatIssueListHuman(list *query.IssueList) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Issues (%d of %d)\n", len(list.Issues), list.TotalCount))
	rule(&b)

	for _, is := range list.Issues {
		state := is.State
		if state == "" {
			state = "-"
		}
		line := fmt.Sprintf("%-10s %-14s %s", is.Identifier, "["+state+"]", output.Truncate(is.Title, 72))
		b.WriteString(line + "\n")

		var details []string
		if is.Assignee != "" {
			details = append(details, is.Assignee)
		}
		details = append(details, priorityName(is.Priority))
		if is.DueDate != "" {
			details = append(details, "due "+is.DueDate)
		}
		b.WriteString(fmt.Sprintf("           %s\n", strings.Join(details, ", ")))
	}

	return b.String()
}

func formatIssueDetailHuman(d *query.IssueDetail) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s: %s\n", d.Identifier, d.Title))
	rule(&b)

	if d.State != "" {
		b.WriteString(fmt.Sprintf("State: %s (%s)\n", d.State, d.StateType))
	}
	b.WriteString(fmt.Sprintf("Priority: %s\n", priorityName(d.Priority)))
	if d.Estimate != nil {
		b.WriteString(fmt.Sprintf("Estimate: %g\n", *d.Estimate))
	}
	if d.Assignee != "" {
		b.WriteString(fmt.Sprintf("Assignee: %s\n", d.Assignee))
	}
	if d.Project != "" {
		b.WriteString(fmt.Sprintf("Project: %s\n", d.Project))
	}
	if d.DueDate != "" {
		b.WriteString(fmt.Sprintf("Due: %s\n", d.DueDate))
	}
	if d.CreatedAt != "" {
		b.WriteString(fmt.Sprintf("Created: %s, updated: %s\n", d.CreatedAt, d.UpdatedAt))
	}
	if d.URL != "" {
		b.WriteString(fmt.Sprintf("URL: %s\n", d.URL))
	}

	if d.Description != "" {
		b.WriteString("\n" + d.Description + "\n")
	}

	if len(d.Comments) > 0 {
		b.WriteString(fmt.Sprintf("\nComments (%d):\n", len(d.Comments)))
		for _, c := range d.Comments {
			b.WriteString(fmt.Sprintf("  %s (%s):\n", c.Author, c.CreatedAt))
			for _, line := range strings.Split(c.Body, "\n") {
				b.WriteString("    " + line + "\n")
			}
		}
	}

	return b.String()
}

func formatTeamsHuman(teams []query.TeamSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Teams (%d)\n", len(teams)))
	rule(&b)
	tbl := output.NewTable(&b)
	tbl.Header("KEY", "NAME", "ISSUES")
	for _, t := range teams {
		tbl.Row(t.Key, t.Name, t.IssueCount)
	}
	tbl.Flush()
	return b.String()
}

func formatProjectsHuman(projects []query.ProjectSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Projects (%d)\n", len(projects)))
	rule(&b)
	tbl := output.NewTable(&b)
	tbl.Header("NAME", "STATE", "ISSUES", "TARGET")
	for _, p := range projects {
		state := p.State
		if state == "" {
			state = "-"
		}
		tbl.Row(p.Name, state, p.IssueCount, p.TargetDate)
	}
	tbl.Flush()
	return b.String()
}

func formatUsersHuman(users []query.UserSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Users (%d)\n", len(users)))
	rule(&b)
	tbl := output.NewTable(&b)
	tbl.Header("NAME", "EMAIL", "ASSIGNED")
	for _, u := range users {
		email := u.Email
		if email == "" {
			email = "-"
		}
		tbl.Row(u.Name, email, u.AssignedIssueCount)
	}
	tbl.Flush()
	return b.String()
}

func formatCyclesHuman(cycles []query.CyclePayload) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Cycles (%d)\n", len(cycles)))
	rule(&b)
	for _, cy := range cycles {
		name := cy.Name
		if name == "" {
			name = fmt.Sprintf("Cycle %d", cy.Number)
		}
		b.WriteString(fmt.Sprintf("#%-4d %-24s %-10s %s .. %s", cy.Number, name, cy.State, cy.StartsAt, cy.EndsAt))
		if cy.Progress != nil && cy.Progress.Total > 0 {
			b.WriteString(fmt.Sprintf("  %d/%d done", cy.Progress.Completed, cy.Progress.Total))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatLabelsHuman(labels []query.LabelPayload) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Labels (%d)\n", len(labels)))
	rule(&b)
	for _, l := range labels {
		marker := ""
		if l.IsGroup {
			marker = " (group)"
		}
		b.WriteString(fmt.Sprintf("%-24s %s%s\n", l.Name, l.Color, marker))
	}
	return b.String()
}

func formatDoctorHuman(resp *DoctorReport) string {
	var b strings.Builder

	b.WriteString("TKB Doctor\n")
	rule(&b)

	if resp.Healthy {
		b.WriteString("✓ All checks passed\n\n")
	} else {
		b.WriteString("✗ Issues found\n\n")
	}

	for _, check := range resp.Checks {
		var icon string
		switch check.Status {
		case "pass":
			icon = "✓"
		case "warn":
			icon = "⚠"
		default:
			icon = "✗"
		}
		b.WriteString(fmt.Sprintf("%s %s: %s\n", icon, check.Name, check.Message))
	}

	return b.String()
}

func formatShapesValidationHuman(v *ShapesValidation) string {
	var b strings.Builder
	if v.Valid {
		b.WriteString(fmt.Sprintf("✓ %s parses and compiles (%d kinds)\n", v.Path, len(v.Kinds)))
	} else {
		b.WriteString(fmt.Sprintf("✗ %s: %s\n", v.Path, v.Error))
	}
	for _, k := range v.UnknownKeys {
		b.WriteString(fmt.Sprintf("⚠ unknown key: %s\n", k))
	}
	return b.String()
}

func formatExportHuman(res *ExportResult) string {
	return fmt.Sprintf("Exported %d entities (snapshot generation %d) to %s\n",
		res.Entities, res.Generation, res.Path)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
