package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolateEnv points config resolution at an empty temp home so ambient
// files and variables cannot leak into a test.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TKB_CONFIG", "")
	os.Unsetenv("TKB_CONFIG")
	return home
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Cache.MaxAgeSeconds != 300 {
		t.Errorf("MaxAgeSeconds = %d, want 300", cfg.Cache.MaxAgeSeconds)
	}
	if cfg.Cache.RefreshTimeoutSeconds != 10 {
		t.Errorf("RefreshTimeoutSeconds = %d, want 10", cfg.Cache.RefreshTimeoutSeconds)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text", cfg.Logging)
	}
	if cfg.Store.Path != "" {
		t.Errorf("Store.Path = %q, want empty", cfg.Store.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingDefaultLocation(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.MaxAgeSeconds != 300 {
		t.Errorf("MaxAgeSeconds = %d, want default 300", cfg.Cache.MaxAgeSeconds)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"store": {"path": "/data/tracker/leveldb", "url_base": "https://linear.app/acme"},
		"cache": {"max_age_seconds": 60},
		"scope": {"account_emails": ["ada@example.com"]}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "/data/tracker/leveldb" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Store.URLBase != "https://linear.app/acme" {
		t.Errorf("Store.URLBase = %q", cfg.Store.URLBase)
	}
	if cfg.Cache.MaxAgeSeconds != 60 {
		t.Errorf("MaxAgeSeconds = %d, want 60", cfg.Cache.MaxAgeSeconds)
	}
	// Unset fields keep defaults.
	if cfg.Cache.RefreshTimeoutSeconds != 10 {
		t.Errorf("RefreshTimeoutSeconds = %d, want default 10", cfg.Cache.RefreshTimeoutSeconds)
	}
	if len(cfg.Scope.AccountEmails) != 1 || cfg.Scope.AccountEmails[0] != "ada@example.com" {
		t.Errorf("AccountEmails = %v", cfg.Scope.AccountEmails)
	}
}

func TestLoadExplicitMissingFails(t *testing.T) {
	isolateEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for explicitly requested missing file")
	}
}

func TestLoadMalformedFails(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"store": `), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestLoadConfigEnvPointsAtFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "via-env.json")
	if err := os.WriteFile(path, []byte(`{"cache": {"max_age_seconds": 77}}`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TKB_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.MaxAgeSeconds != 77 {
		t.Errorf("MaxAgeSeconds = %d, want 77", cfg.Cache.MaxAgeSeconds)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("TKB_STORE_PATH", "/env/store")
	t.Setenv("TKB_SCOPE_EMAILS", "ada@example.com,grace@example.com")
	t.Setenv("TKB_CACHE_MAX_AGE_SECONDS", "42")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "/env/store" {
		t.Errorf("Store.Path = %q, want /env/store", cfg.Store.Path)
	}
	if len(cfg.Scope.AccountEmails) != 2 || cfg.Scope.AccountEmails[1] != "grace@example.com" {
		t.Errorf("AccountEmails = %v, want comma-split pair", cfg.Scope.AccountEmails)
	}
	if cfg.Cache.MaxAgeSeconds != 42 {
		t.Errorf("MaxAgeSeconds = %d, want 42", cfg.Cache.MaxAgeSeconds)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"store": {"path": "/from/file"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TKB_STORE_PATH", "/from/env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "/from/env" {
		t.Errorf("Store.Path = %q, env should win over file", cfg.Store.Path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"zero max age", func(c *Config) { c.Cache.MaxAgeSeconds = 0 }, "cache.max_age_seconds"},
		{"negative max age", func(c *Config) { c.Cache.MaxAgeSeconds = -5 }, "cache.max_age_seconds"},
		{"zero refresh timeout", func(c *Config) { c.Cache.RefreshTimeoutSeconds = 0 }, "cache.refresh_timeout_seconds"},
		{"unknown level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"valid", func(c *Config) {}, ""},
		{"warn level ok", func(c *Config) { c.Logging.Level = "WARN" }, ""},
		{"json format ok", func(c *Config) { c.Logging.Format = "json" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate: %v, want nil", err)
				}
				return
			}
			cerr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("error type = %T (%v), want *ConfigError", err, err)
			}
			if cerr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cerr.Field, tt.wantField)
			}
		})
	}
}

func TestWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scope.UserAccountIDs = []string{
		"4f9c2a10-9a1b-4c4d-8e2f-1a2b3c4d5e6f",
		"not-a-uuid",
	}

	warnings := cfg.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", warnings)
	}
	if !strings.Contains(warnings[0], "not-a-uuid") {
		t.Errorf("warning = %q, want it to name the bad entry", warnings[0])
	}

	cfg.Scope.UserAccountIDs = nil
	if w := cfg.Warnings(); len(w) != 0 {
		t.Errorf("warnings = %v, want none", w)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.json")

	cfg := DefaultConfig()
	cfg.Store.Path = "/data/store"
	cfg.Scope.AccountEmails = []string{"ada@example.com"}
	cfg.Cache.MaxAgeSeconds = 120

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Store.Path != "/data/store" {
		t.Errorf("Store.Path = %q", loaded.Store.Path)
	}
	if loaded.Cache.MaxAgeSeconds != 120 {
		t.Errorf("MaxAgeSeconds = %d, want 120", loaded.Cache.MaxAgeSeconds)
	}
	if len(loaded.Scope.AccountEmails) != 1 {
		t.Errorf("AccountEmails = %v", loaded.Scope.AccountEmails)
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxAge().Seconds() != 300 {
		t.Errorf("MaxAge = %v, want 5m", cfg.MaxAge())
	}
	if cfg.RefreshWait().Seconds() != 10 {
		t.Errorf("RefreshWait = %v, want 10s", cfg.RefreshWait())
	}
}
