package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/seek/cmd/seek/tui"
	"github.com/jamesainslie/seek/pkg/seek/catalog"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

var uiIndexDir string

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Search interactively",
	Long: `Open the interactive search screen over the current catalog.

With --index DIR the directory is indexed on launch and again on ctrl+r;
the screen switches to the new snapshot when it is published, as it does
for snapshots published by other seek processes.`,
	RunE: runUI,
}

func init() {
	uiCmd.Flags().StringVar(&uiIndexDir, "index", "", "index this directory on launch")
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := initTUILogging(cfg); err != nil {
		return fmt.Errorf("failed to initialize TUI logging: %w", err)
	}

	c, err := newComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := c.engine.OpenLast(ctx); err != nil && !errors.Is(err, types.ErrNoCatalog) {
		return err
	}

	opts := tui.Options{Manager: c.manager, Engine: c.engine}
	if uiIndexDir != "" {
		abs, err := filepath.Abs(uiIndexDir)
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		opts.Index = &types.ScanRequest{Targets: []string{abs}, Strategy: types.StrategyWalk, Scope: types.ScopeDirectory}
	}

	if w, err := catalog.NewWatcher(cfg.DataDir); err == nil {
		defer w.Close()
		changes := make(chan catalog.Change, 8)
		go w.Run(ctx, func(ch catalog.Change) {
			select {
			case changes <- ch:
			default:
			}
		})
		opts.Changes = changes
	} else {
		printVerbose("Catalog watcher unavailable: %v", err)
	}

	return tui.Run(opts)
}
