package main

import (
	"context"

	"github.com/spf13/cobra"

	"tkb/internal/envelope"
)

var projectsTeam string

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects",
	RunE:  runProjects,
}

func init() {
	projectsCmd.Flags().StringVar(&projectsTeam, "team", "", "Filter by team (key or name)")
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(cmd *cobra.Command, args []string) error {
	cfg := mustConfig()
	logger := newCLILogger(cfg)
	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	projects, fr, err := engine.ListProjects(context.Background(), projectsTeam)
	if err != nil {
		return err
	}

	return printResponse(envelope.NewResponse(projects).WithFreshness(fr))
}
