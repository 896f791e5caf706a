package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/seek/pkg/seek/config"
	"github.com/jamesainslie/seek/pkg/seek/cursor"
	"github.com/jamesainslie/seek/pkg/seek/history"
	"github.com/jamesainslie/seek/pkg/seek/logging"
	"github.com/jamesainslie/seek/pkg/seek/search"
	"github.com/jamesainslie/seek/pkg/seek/session"
	"github.com/jamesainslie/seek/pkg/seek/store"
)

// loadConfig reads configuration through the global viper instance so that
// bound flags take precedence over the file and environment.
func loadConfig() (*config.Config, error) {
	return config.LoadWith(viper.GetViper())
}

// initializeLogging is the root PersistentPreRunE hook. It creates the seek
// directories and starts file logging, with console output in verbose mode.
func initializeLogging(_ *cobra.Command, _ []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := config.EnsureStateDir(); err != nil {
		return err
	}

	logCfg := logging.Config{Level: "info"}
	dataDir := config.DataDir()
	if cfg, err := loadConfig(); err == nil {
		logCfg = logging.FromConfig(cfg.Logging)
		dataDir = cfg.DataDir
	} else {
		printVerbose("Failed to load configuration for logging: %v", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}
	return logging.Init(logCfg)
}

// initTUILogging re-initializes logging for the TUI: entries go to the file
// and the ring buffer, never the console.
func initTUILogging(cfg *config.Config) error {
	logCfg := logging.FromConfig(cfg.Logging)
	logCfg.TUIMode = true
	return logging.Init(logCfg)
}

func closeLogging() {
	_ = logging.Close()
}

// components are the long-lived collaborators a command needs.
type components struct {
	cfg     *config.Config
	manager *session.Manager
	engine  *search.Engine
	history *history.History
	cursors *cursor.Store
}

// newComponents wires a session manager and search engine from cfg. The
// cursor store is optional: when another seek process holds it, journal
// sessions run without incremental resume.
func newComponents(cfg *config.Config) (*components, error) {
	c := &components{cfg: cfg}
	opts := session.FromConfig(cfg)

	if cfg.History.Enabled {
		h, err := history.New(cfg.History.Path, cfg.History.MaxEntries)
		if err != nil {
			return nil, fmt.Errorf("opening history: %w", err)
		}
		c.history = h
		opts.History = h
	}

	if cfg.Journal.Incremental {
		cs, err := cursor.Open(config.CursorDir())
		if err != nil {
			logging.Get("cli").Warn("cursor store unavailable, journal scans start from the beginning", "error", err)
			printVerbose("Cursor store unavailable: %v", err)
		} else {
			c.cursors = cs
			opts.Cursors = cs
		}
	}

	c.manager = session.NewManager(opts)
	c.engine = search.New(search.Options{
		CatalogDir: cfg.DataDir,
		Limit:      cfg.Search.Limit,
		Preference: store.NewPreference(cfg.DataDir),
	})
	return c, nil
}

// Close stops any running session and releases the stores.
func (c *components) Close() {
	c.manager.Close()
	if err := c.engine.Close(); err != nil {
		printVerbose("Closing catalog: %v", err)
	}
	if c.cursors != nil {
		if err := c.cursors.Close(); err != nil {
			printVerbose("Closing cursor store: %v", err)
		}
	}
}
