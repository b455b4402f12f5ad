package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tkb/internal/envelope"
)

var issueCmd = &cobra.Command{
	Use:   "issue <identifier>",
	Short: "Show one issue with its comments",
	Long: `Show the full detail of one issue, looked up by display
identifier (like ENG-123, case-insensitive).`,
	Args: cobra.ExactArgs(1),
	RunE: runIssue,
}

func init() {
	rootCmd.AddCommand(issueCmd)
}

func runIssue(cmd *cobra.Command, args []string) error {
	cfg := mustConfig()
	logger := newCLILogger(cfg)
	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	detail, fr, err := engine.GetIssue(context.Background(), args[0])
	if err != nil {
		return err
	}
	if detail == nil {
		return fmt.Errorf("issue %q not found", args[0])
	}

	return printResponse(envelope.NewResponse(detail).WithFreshness(fr))
}
