package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tkb/internal/config"
	"tkb/internal/testutil"
)

func collectChecks(fn func(add func(name, status, message string))) []DoctorCheck {
	var checks []DoctorCheck
	fn(func(name, status, message string) {
		checks = append(checks, DoctorCheck{Name: name, Status: status, Message: message})
	})
	return checks
}

func findCheck(t *testing.T, checks []DoctorCheck, name string) DoctorCheck {
	t.Helper()
	for _, c := range checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %q check in %+v", name, checks)
	return DoctorCheck{}
}

func TestCheckStoreUnconfigured(t *testing.T) {
	cfg := config.DefaultConfig()

	checks := collectChecks(func(add func(name, status, message string)) {
		checkStore(cfg, add)
	})

	c := findCheck(t, checks, "store path")
	if c.Status != "fail" || !strings.Contains(c.Message, "store.path") {
		t.Errorf("check = %+v, want fail mentioning store.path", c)
	}
}

func TestCheckStoreMissingDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "nope")

	checks := collectChecks(func(add func(name, status, message string)) {
		checkStore(cfg, add)
	})

	if c := findCheck(t, checks, "store path"); c.Status != "fail" {
		t.Errorf("check = %+v, want fail", c)
	}
}

func TestCheckStoreFileNotDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Store.Path = path

	checks := collectChecks(func(add func(name, status, message string)) {
		checkStore(cfg, add)
	})

	c := findCheck(t, checks, "store path")
	if c.Status != "fail" || !strings.Contains(c.Message, "not a directory") {
		t.Errorf("check = %+v, want fail mentioning not a directory", c)
	}
}

func TestCheckStoreMissingCurrent(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Path = t.TempDir()

	checks := collectChecks(func(add func(name, status, message string)) {
		checkStore(cfg, add)
	})

	if c := findCheck(t, checks, "store path"); c.Status != "pass" {
		t.Errorf("store path check = %+v, want pass", c)
	}
	c := findCheck(t, checks, "store layout")
	if c.Status != "fail" || !strings.Contains(c.Message, "CURRENT") {
		t.Errorf("store layout check = %+v, want fail mentioning CURRENT", c)
	}
}

func TestCheckStoreHealthy(t *testing.T) {
	sb := testutil.NewStoreBuilder(t)
	sb.Put(3, "t1", map[string]any{
		"id": "t1", "key": "ENG", "name": "Engineering", "organizationId": "org1",
	})
	cfg := config.DefaultConfig()
	cfg.Store.Path = sb.Write()

	checks := collectChecks(func(add func(name, status, message string)) {
		checkStore(cfg, add)
	})

	if c := findCheck(t, checks, "store path"); c.Status != "pass" {
		t.Errorf("store path check = %+v, want pass", c)
	}
	c := findCheck(t, checks, "store layout")
	if c.Status != "pass" || !strings.Contains(c.Message, "CURRENT -> ") {
		t.Errorf("store layout check = %+v, want pass naming the manifest", c)
	}
	c = findCheck(t, checks, "store open")
	if c.Status != "pass" || !strings.Contains(c.Message, "live records") {
		t.Errorf("store open check = %+v, want pass with live records", c)
	}
}

func TestCheckShapesBuiltin(t *testing.T) {
	cfg := config.DefaultConfig()

	checks := collectChecks(func(add func(name, status, message string)) {
		checkShapes(cfg, add)
	})

	c := findCheck(t, checks, "signature table")
	if c.Status != "pass" || !strings.Contains(c.Message, "built-in table") {
		t.Errorf("check = %+v, want pass with built-in table", c)
	}
}

func TestCheckShapesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shapes.toml")
	table := `
[kinds.issue]
required = [{ field = "id" }, { field = "title" }]
`
	if err := os.WriteFile(path, []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Shapes.Path = path

	checks := collectChecks(func(add func(name, status, message string)) {
		checkShapes(cfg, add)
	})

	c := findCheck(t, checks, "signature table")
	if c.Status != "pass" || !strings.Contains(c.Message, path) {
		t.Errorf("check = %+v, want pass naming %s", c, path)
	}
}

func TestCheckShapesOverrideBroken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shapes.toml")
	if err := os.WriteFile(path, []byte("[kinds.issue]\nabsent = [\"x\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Shapes.Path = path

	checks := collectChecks(func(add func(name, status, message string)) {
		checkShapes(cfg, add)
	})

	if c := findCheck(t, checks, "signature table"); c.Status != "fail" {
		t.Errorf("check = %+v, want fail", c)
	}
}
