package main

import (
	"context"

	"github.com/spf13/cobra"

	"tkb/internal/envelope"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users",
	RunE:  runUsers,
}

func init() {
	rootCmd.AddCommand(usersCmd)
}

func runUsers(cmd *cobra.Command, args []string) error {
	cfg := mustConfig()
	logger := newCLILogger(cfg)
	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	users, fr, err := engine.ListUsers(context.Background())
	if err != nil {
		return err
	}

	return printResponse(envelope.NewResponse(users).WithFreshness(fr))
}
