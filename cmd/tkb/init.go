package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tkb/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a config file with defaults to the --config path, or to
~/.config/tkb/config.json. Edit store.path afterwards to point at the
tracker app's store directory.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configFlag
	if path == "" {
		def, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = def
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		// Already initialized is success, so init is safe to re-run.
		fmt.Printf("Config already exists at %s\n", path)
		fmt.Println("Run 'tkb init --force' to overwrite it.")
		return nil
	}

	cfg := config.DefaultConfig()
	if storeFlag != "" {
		cfg.Store.Path = storeFlag
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", path)
	if cfg.Store.Path == "" {
		fmt.Println("Set store.path to the tracker app's IndexedDB store directory.")
	}
	return nil
}
