package main

import (
	"context"

	"github.com/spf13/cobra"

	"tkb/internal/envelope"
)

var cyclesTeam string

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "List a team's cycles",
	Long: `List the cycles of one team, newest first, each tagged with its
phase (upcoming, active, past).`,
	RunE: runCycles,
}

func init() {
	cyclesCmd.Flags().StringVar(&cyclesTeam, "team", "", "Team (key or name)")
	cyclesCmd.MarkFlagRequired("team")
	rootCmd.AddCommand(cyclesCmd)
}

func runCycles(cmd *cobra.Command, args []string) error {
	cfg := mustConfig()
	logger := newCLILogger(cfg)
	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	cycles, fr, err := engine.ListCycles(context.Background(), cyclesTeam)
	if err != nil {
		return err
	}

	return printResponse(envelope.NewResponse(cycles).WithFreshness(fr))
}
