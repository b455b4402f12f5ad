package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tkb/internal/config"
	"tkb/internal/envelope"
	"tkb/internal/ldb"
	"tkb/internal/shape"
	"tkb/internal/slogutil"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and store problems",
	Long: `Run diagnostic checks: configuration validity, store path existence,
CURRENT/MANIFEST layout sanity, a full store open, and the signature
table load. Exits non-zero when any check fails.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// DoctorCheck is one finding.
type DoctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // pass, warn, fail
	Message string `json:"message"`
}

// DoctorReport is the full diagnostic run.
type DoctorReport struct {
	Healthy bool          `json:"healthy"`
	Checks  []DoctorCheck `json:"checks"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	report := &DoctorReport{Healthy: true}
	add := func(name, status, message string) {
		report.Checks = append(report.Checks, DoctorCheck{Name: name, Status: status, Message: message})
		if status == "fail" {
			report.Healthy = false
		}
	}

	// Doctor diagnoses broken configuration instead of dying on it.
	cfg, err := loadConfig()
	if err != nil {
		add("config", "fail", err.Error())
	} else {
		add("config", "pass", "configuration is valid")
		for _, w := range cfg.Warnings() {
			add("config", "warn", w)
		}
	}

	if cfg != nil {
		checkStore(cfg, add)
		checkShapes(cfg, add)
	}

	if err := printResponse(envelope.NewResponse(report)); err != nil {
		return err
	}
	if !report.Healthy {
		os.Exit(1)
	}
	return nil
}

func checkStore(cfg *config.Config, add func(name, status, message string)) {
	path := cfg.Store.Path
	if path == "" {
		add("store path", "fail", "store.path is not configured (set it in the config file or pass --store)")
		return
	}
	info, err := os.Stat(path)
	switch {
	case err != nil:
		add("store path", "fail", fmt.Sprintf("%s: %v", path, err))
		return
	case !info.IsDir():
		add("store path", "fail", path+" is not a directory")
		return
	}
	add("store path", "pass", path)

	// CURRENT names the live MANIFEST; a store missing either never opens.
	current, err := os.ReadFile(filepath.Join(path, "CURRENT"))
	if err != nil {
		add("store layout", "fail", "cannot read CURRENT: "+err.Error())
		return
	}
	manifest := strings.TrimSpace(string(current))
	if manifest == "" {
		add("store layout", "fail", "CURRENT is empty")
		return
	}
	if _, err := os.Stat(filepath.Join(path, manifest)); err != nil {
		add("store layout", "fail", fmt.Sprintf("CURRENT names %s, which is missing", manifest))
		return
	}
	add("store layout", "pass", "CURRENT -> "+manifest)

	db, err := ldb.Open(path, slogutil.NewDiscardLogger())
	if err != nil {
		add("store open", "fail", err.Error())
		return
	}
	stats := db.Stats()
	db.Close()
	msg := fmt.Sprintf("%d live records in %d table files and %d WAL files",
		stats.LiveEntries, stats.TableFiles, stats.WALFiles)
	if stats.WALTruncated {
		add("store open", "warn", msg+" (WAL tail truncated)")
		return
	}
	add("store open", "pass", msg)
}

func checkShapes(cfg *config.Config, add func(name, status, message string)) {
	if cfg.Shapes.Path == "" {
		table := shape.DefaultTable()
		add("signature table", "pass", fmt.Sprintf("built-in table (%d kinds)", len(table.KindNames())))
		return
	}
	table, err := shape.Load(cfg.Shapes.Path)
	if err != nil {
		add("signature table", "fail", err.Error())
		return
	}
	add("signature table", "pass", fmt.Sprintf("%s (%d kinds)", cfg.Shapes.Path, len(table.KindNames())))
}
