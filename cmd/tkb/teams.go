package main

import (
	"context"

	"github.com/spf13/cobra"

	"tkb/internal/envelope"
)

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List teams",
	RunE:  runTeams,
}

func init() {
	rootCmd.AddCommand(teamsCmd)
}

func runTeams(cmd *cobra.Command, args []string) error {
	cfg := mustConfig()
	logger := newCLILogger(cfg)
	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	teams, fr, err := engine.ListTeams(context.Background())
	if err != nil {
		return err
	}

	return printResponse(envelope.NewResponse(teams).WithFreshness(fr))
}
