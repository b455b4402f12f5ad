package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tkb/internal/mcp"
	"tkb/internal/slogutil"
	"tkb/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP stdio server",
	Long: `Start the Model Context Protocol server on stdin/stdout.

The server exposes the full query surface as MCP tools: issues, teams,
projects, users, workflow states, comments, labels, initiatives, cycles,
documents, milestones, status updates, plus getStatus and refreshCache.

stdout carries the protocol, so logs go to the configured log file
(logging.file) or to stderr. This command is typically invoked by MCP
clients and not directly by users.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := slogutil.LevelFromString(cfg.Logging.Level)
	var logger *slog.Logger
	if cfg.Logging.File != "" {
		fileLogger, closer, err := slogutil.NewFileLoggerWithRotation(cfg.Logging.File, level, "10MB", 3)
		if err != nil {
			return err
		}
		defer closer.Close()
		logger = fileLogger
	} else {
		logger = slogutil.NewJSONLogger(os.Stderr, level)
	}
	logConfigWarnings(logger, cfg)

	engine, cleanup := newEngine(cfg, logger)
	defer cleanup()

	logger.Info("starting MCP server",
		"version", version.Version,
		"store", cfg.Store.Path,
	)

	server := mcp.NewServer(version.Version, engine, logger)
	if err := server.Start(); err != nil {
		logger.Error("MCP server failed", "error", err)
		return err
	}
	return nil
}
