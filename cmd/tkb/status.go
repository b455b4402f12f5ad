package main

import (
	"context"

	"github.com/spf13/cobra"

	"tkb/internal/envelope"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache health and snapshot summary",
	Long: `Display cache health, the current snapshot's generation and age,
per-kind entity counts, and the effective scope and store configuration.

Status never fails: before the first successful materialization the
snapshot section is absent and the health state explains why.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := mustConfig()
	logger := newCLILogger(cfg)
	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	resp := engine.Status(context.Background())

	// The payload carries its own snapshot block, so no freshness meta.
	return printResponse(envelope.NewResponse(resp))
}
