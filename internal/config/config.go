package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config is the complete TKB configuration.
type Config struct {
	Store   StoreConfig   `json:"store" mapstructure:"store"`
	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Scope   ScopeConfig   `json:"scope" mapstructure:"scope"`
	Shapes  ShapesConfig  `json:"shapes" mapstructure:"shapes"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// StoreConfig locates the tracker application's on-disk store.
type StoreConfig struct {
	// Path is the LevelDB directory of the tracker's IndexedDB store.
	Path string `json:"path" mapstructure:"path"`
	// URLBase, when set, is used to build web links in payloads
	// (e.g. https://linear.app/acme).
	URLBase string `json:"url_base" mapstructure:"url_base"`
}

// CacheConfig controls snapshot staleness and refresh behavior.
type CacheConfig struct {
	MaxAgeSeconds         int `json:"max_age_seconds" mapstructure:"max_age_seconds"`
	RefreshTimeoutSeconds int `json:"refresh_timeout_seconds" mapstructure:"refresh_timeout_seconds"`
}

// ScopeConfig restricts snapshots to the workspaces of the named accounts.
type ScopeConfig struct {
	AccountEmails  []string `json:"account_emails" mapstructure:"account_emails"`
	UserAccountIDs []string `json:"user_account_ids" mapstructure:"user_account_ids"`
}

// ShapesConfig points at an optional TOML signature-table override.
type ShapesConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
	// File receives logs from the stdio server, whose stdout is the
	// protocol channel.
	File string `json:"file" mapstructure:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{},
		Cache: CacheConfig{
			MaxAgeSeconds:         300,
			RefreshTimeoutSeconds: 10,
		},
		Scope: ScopeConfig{
			AccountEmails:  []string{},
			UserAccountIDs: []string{},
		},
		Shapes:  ShapesConfig{},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// DefaultPath returns the default config file location,
// ~/.config/tkb/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tkb", "config.json"), nil
}

// Load reads configuration from path, falling back to $TKB_CONFIG and then
// the default location when path is empty. A missing file at the default
// location yields defaults; a missing explicitly requested file is an
// error, as is a malformed file. Environment variables with the TKB_
// prefix override file values (TKB_STORE_PATH, TKB_SCOPE_EMAILS, ...);
// list values are comma-separated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TKB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("scope.account_emails", "TKB_SCOPE_EMAILS", "TKB_SCOPE_ACCOUNT_EMAILS")
	_ = v.BindEnv("scope.user_account_ids", "TKB_SCOPE_ACCOUNT_IDS", "TKB_SCOPE_USER_ACCOUNT_IDS")

	explicit := path != ""
	if !explicit {
		if env := os.Getenv("TKB_CONFIG"); env != "" {
			path = env
			explicit = true
		}
	}
	if path == "" {
		def, err := DefaultPath()
		if err != nil {
			return nil, &ConfigError{Field: "config", Message: "cannot resolve home directory: " + err.Error()}
		}
		path = def
	}

	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		if !explicit && os.IsNotExist(err) {
			// No file at the default location; defaults plus env apply.
		} else {
			return nil, &ConfigError{Field: "config", Message: fmt.Sprintf("cannot read %s: %v", path, err)}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "config", Message: "cannot parse " + path + ": " + err.Error()}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("store.url_base", def.Store.URLBase)
	v.SetDefault("cache.max_age_seconds", def.Cache.MaxAgeSeconds)
	v.SetDefault("cache.refresh_timeout_seconds", def.Cache.RefreshTimeoutSeconds)
	v.SetDefault("scope.account_emails", def.Scope.AccountEmails)
	v.SetDefault("scope.user_account_ids", def.Scope.UserAccountIDs)
	v.SetDefault("shapes.path", def.Shapes.Path)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.file", def.Logging.File)
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validFormats = map[string]bool{
	"text": true, "json": true,
}

// Validate checks the configuration for values no command could run with.
func (c *Config) Validate() error {
	if c.Cache.MaxAgeSeconds <= 0 {
		return &ConfigError{Field: "cache.max_age_seconds", Message: "must be positive"}
	}
	if c.Cache.RefreshTimeoutSeconds <= 0 {
		return &ConfigError{Field: "cache.refresh_timeout_seconds", Message: "must be positive"}
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

// Warnings returns non-fatal configuration notices: scope account ids
// that are not UUIDs still participate in matching but are likely typos.
func (c *Config) Warnings() []string {
	var warnings []string
	for _, id := range c.Scope.UserAccountIDs {
		if uuid.Validate(id) != nil {
			warnings = append(warnings, fmt.Sprintf("scope.user_account_ids entry %q is not a UUID", id))
		}
	}
	return warnings
}

// MaxAge returns the snapshot max age as a duration.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.Cache.MaxAgeSeconds) * time.Second
}

// RefreshWait returns the bounded refresh wait as a duration.
func (c *Config) RefreshWait() time.Duration {
	return time.Duration(c.Cache.RefreshTimeoutSeconds) * time.Second
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
