package main

import (
	"context"

	"github.com/spf13/cobra"

	"tkb/internal/envelope"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force a snapshot refresh",
	Long: `Materialize a fresh snapshot from the store right now, regardless
of the current snapshot's age.

A failed refresh demotes cache health rather than failing the command;
the exit code stays zero and the printed health explains what happened.`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cfg := mustConfig()
	logger := newCLILogger(cfg)
	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	health := engine.Refresh(context.Background())

	return printResponse(envelope.NewResponse(health))
}
