package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tkb/internal/config"
	"tkb/internal/slogutil"
	"tkb/internal/version"
)

var (
	configFlag   string
	storeFlag    string
	logLevelFlag string
	formatFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "tkb",
	Short: "TKB - Tracker Knowledge Base",
	Long: `TKB reads the issue tracker desktop app's local database and serves
project knowledge from it: issues, teams, projects, users, cycles,
documents, and status updates, without touching the network.

Queries run against an in-memory snapshot materialized from the app's
on-disk store. The snapshot refreshes automatically when it goes stale;
'tkb serve' exposes the same queries to MCP clients over stdio.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("TKB version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Config file path (default ~/.config/tkb/config.json)")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "",
		"Store directory, overrides store.path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human",
		"Output format (json, human, yaml)")
}

// loadConfig reads the effective configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if storeFlag != "" {
		cfg.Store.Path = storeFlag
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mustConfig() *config.Config {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newCLILogger logs to stderr so stdout stays clean for command output.
func newCLILogger(cfg *config.Config) *slog.Logger {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	var logger *slog.Logger
	if cfg.Logging.Format == "json" {
		logger = slogutil.NewJSONLogger(os.Stderr, level)
	} else {
		logger = slogutil.NewLogger(os.Stderr, level)
	}
	logConfigWarnings(logger, cfg)
	return logger
}

func logConfigWarnings(logger *slog.Logger, cfg *config.Config) {
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}
}
