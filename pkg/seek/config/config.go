package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// BatchConfig holds flush thresholds per strategy.
type BatchConfig struct {
	Journal int `mapstructure:"journal"`
	Walk    int `mapstructure:"walk"`
}

// WalkConfig configures the tree walker.
type WalkConfig struct {
	Workers        int      `mapstructure:"workers"` // 0 means tuned
	SkipDirs       []string `mapstructure:"skip_dirs"`
	ReservedPrefix string   `mapstructure:"reserved_prefix"`
}

// Config represents the application configuration.
type Config struct {
	DataDir  string      `mapstructure:"data_dir"`
	Batch    BatchConfig `mapstructure:"batch"`
	Progress struct {
		Every int `mapstructure:"every"`
	} `mapstructure:"progress"`
	Walk    WalkConfig `mapstructure:"walk"`
	Journal struct {
		Incremental bool `mapstructure:"incremental"`
	} `mapstructure:"journal"`
	CancelPolicy string `mapstructure:"cancel_policy"`
	Search       struct {
		Limit int `mapstructure:"limit"`
	} `mapstructure:"search"`
	History struct {
		Enabled    bool   `mapstructure:"enabled"`
		Path       string `mapstructure:"path"`
		MaxEntries int    `mapstructure:"max_entries"`
	} `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
	API     struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"api"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/seek/config.yaml
//   - $HOME/.config/seek/config.yaml
//
// Environment variables are prefixed with SEEK_ (e.g., SEEK_CANCEL_POLICY).
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith loads configuration into v, which may already carry bound flags.
func LoadWith(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "seek"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "seek"))

	v.SetEnvPrefix("SEEK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DataDir, err = ExpandPath(cfg.DataDir); err != nil {
		return nil, err
	}
	if cfg.History.Path, err = ExpandPath(cfg.History.Path); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", CatalogDir())
	v.SetDefault("batch.journal", DefaultJournalBatch)
	v.SetDefault("batch.walk", DefaultWalkBatch)
	v.SetDefault("progress.every", DefaultProgressEvery)
	v.SetDefault("walk.workers", 0)
	v.SetDefault("walk.skip_dirs", DefaultSkipDirs)
	v.SetDefault("walk.reserved_prefix", DefaultReservedPrefix)
	v.SetDefault("journal.incremental", true)
	v.SetDefault("cancel_policy", CancelPolicyPublish)
	v.SetDefault("search.limit", DefaultSearchLimit)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", DefaultHistoryPath())
	v.SetDefault("history.max_entries", DefaultHistoryEntries)
	v.SetDefault("api.addr", DefaultAPIAddr)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"session": "info",
		"walker":  "warn",
		"journal": "warn",
		"store":   "info",
		"tui":     "info",
	})
}

// Validate checks values that would otherwise fail deep inside a session.
func (c *Config) Validate() error {
	if c.Batch.Journal <= 0 || c.Batch.Walk <= 0 {
		return fmt.Errorf("batch sizes must be positive (journal=%d, walk=%d)", c.Batch.Journal, c.Batch.Walk)
	}
	if c.Progress.Every <= 0 {
		return fmt.Errorf("progress.every must be positive, got %d", c.Progress.Every)
	}
	switch c.CancelPolicy {
	case CancelPolicyPublish, CancelPolicyDiscard:
	default:
		return fmt.Errorf("cancel_policy must be %q or %q, got %q", CancelPolicyPublish, CancelPolicyDiscard, c.CancelPolicy)
	}
	// A search never returns more than DefaultSearchLimit rows; smaller
	// limits are allowed.
	if c.Search.Limit <= 0 || c.Search.Limit > DefaultSearchLimit {
		c.Search.Limit = DefaultSearchLimit
	}
	return nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "seek"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "seek"), nil
}

// ConfigPath returns the path of the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	var skip strings.Builder
	for _, d := range DefaultSkipDirs {
		fmt.Fprintf(&skip, "    - %q\n", d)
	}

	defaultConfig := fmt.Sprintf(`# Seek Configuration

# Directory holding catalog snapshots and the last-used preference
data_dir: %s

# Records buffered before each catalog write
batch:
  journal: %d
  walk: %d

# Flushed records between progress events
progress:
  every: %d

# Tree walk settings
walk:
  # Parallel walkers (0 picks a value from CPU count and memory)
  workers: 0
  # Directory names never descended into (case-insensitive)
  skip_dirs:
%s  # Directory names starting with this prefix are skipped
  reserved_prefix: "%s"

# Change journal settings
journal:
  # Resume from stored cursors and seed from the previous snapshot
  incremental: true

# What to do with flushed records when indexing is cancelled: publish or discard
cancel_policy: %s

search:
  limit: %d

history:
  enabled: true
  path: %s
  max_entries: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/seek/seek.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    session: info
    walker: warn
    journal: warn
    store: info
    tui: info

# Local HTTP API (seek serve)
api:
  addr: %s
`, CatalogDir(), DefaultJournalBatch, DefaultWalkBatch, DefaultProgressEvery,
		skip.String(), DefaultReservedPrefix, CancelPolicyPublish, DefaultSearchLimit,
		DefaultHistoryPath(), DefaultHistoryEntries, DefaultAPIAddr)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/seek/.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "seek")
}

// StateDir returns $XDG_STATE_HOME/seek/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "seek")
}

// CatalogDir returns the default directory for catalog snapshots.
func CatalogDir() string {
	return filepath.Join(DataDir(), "catalogs")
}

// CursorDir returns the badger directory holding journal cursors.
func CursorDir() string {
	return filepath.Join(DataDir(), "cursors")
}

// DefaultHistoryPath returns the default session history file.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history.json")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "seek.log")
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
