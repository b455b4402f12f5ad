package main

import (
	"context"

	"github.com/spf13/cobra"

	"tkb/internal/envelope"
)

var labelsTeam string

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List issue labels",
	Long: `List issue labels sorted by name. With --team the list narrows to
that team's labels; workspace-level labels are always included.`,
	RunE: runLabels,
}

func init() {
	labelsCmd.Flags().StringVar(&labelsTeam, "team", "", "Filter by team (key or name)")
	rootCmd.AddCommand(labelsCmd)
}

func runLabels(cmd *cobra.Command, args []string) error {
	cfg := mustConfig()
	logger := newCLILogger(cfg)
	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	labels, fr, err := engine.ListIssueLabels(context.Background(), labelsTeam)
	if err != nil {
		return err
	}

	return printResponse(envelope.NewResponse(labels).WithFreshness(fr))
}
