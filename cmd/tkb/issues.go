package main

import (
	"context"

	"github.com/spf13/cobra"

	"tkb/internal/envelope"
	"tkb/internal/query"
)

var (
	issuesAssignee string
	issuesTeam     string
	issuesState    string
	issuesPriority int
	issuesProject  string
	issuesOrderBy  string
	issuesLimit    int
)

var issuesCmd = &cobra.Command{
	Use:   "issues [query]",
	Short: "List issues",
	Long: `List issues, filtered and ordered. All filters combine; a filter
that resolves to nothing yields an empty list. The optional positional
query is a case-insensitive title substring match.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIssues,
}

func init() {
	issuesCmd.Flags().StringVar(&issuesAssignee, "assignee", "", "Filter by assignee (name, display name, or email)")
	issuesCmd.Flags().StringVar(&issuesTeam, "team", "", "Filter by team (key or name)")
	issuesCmd.Flags().StringVar(&issuesState, "state", "", "Filter by workflow state name or type")
	issuesCmd.Flags().IntVar(&issuesPriority, "priority", -1, "Filter by priority (0 = none, 1 = urgent, 2 = high, 3 = normal, 4 = low)")
	issuesCmd.Flags().StringVar(&issuesProject, "project", "", "Filter by project (name or slug)")
	issuesCmd.Flags().StringVar(&issuesOrderBy, "order-by", "updatedAt", "Sort order (updatedAt, createdAt)")
	issuesCmd.Flags().IntVar(&issuesLimit, "limit", 50, "Maximum issues returned (0 = all)")
	rootCmd.AddCommand(issuesCmd)
}

func runIssues(cmd *cobra.Command, args []string) error {
	cfg := mustConfig()
	logger := newCLILogger(cfg)
	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	opts := query.ListIssuesOptions{
		Assignee: issuesAssignee,
		Team:     issuesTeam,
		State:    issuesState,
		Project:  issuesProject,
		OrderBy:  issuesOrderBy,
		Limit:    issuesLimit,
	}
	if issuesPriority >= 0 {
		opts.Priority = &issuesPriority
	}
	if len(args) == 1 {
		opts.Query = args[0]
	}

	list, fr, err := engine.ListIssues(context.Background(), opts)
	if err != nil {
		return err
	}

	resp := envelope.NewResponse(list).
		WithFreshness(fr).
		WithTruncation(len(list.Issues), list.TotalCount)
	return printResponse(resp)
}
