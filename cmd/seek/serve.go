package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/seek/pkg/seek/api"
	"github.com/jamesainslie/seek/pkg/seek/catalog"
	"github.com/jamesainslie/seek/pkg/seek/types"
	"github.com/jamesainslie/seek/pkg/seek/volume"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local HTTP API and metrics",
	Long: `Serve search, catalog selection and indexing control over HTTP, with
Prometheus metrics at /metrics. The server switches to every new snapshot
that appears in the catalog directory.

Endpoints:
  GET  /api/search?q=KEYWORD
  GET  /api/catalogs
  PUT  /api/catalogs/current     {"name": "<snapshot>"}
  POST /api/index                {"targets": [...], "strategy": "walk|journal", "scope": "dir|volumes"}
  POST /api/index/cancel[?id=ID]
  GET  /api/status
  GET  /api/history
  GET  /metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default 127.0.0.1:7878)")
	_ = viper.BindPFlag("api.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	c, err := newComponents(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path, err := c.engine.OpenLast(ctx); err == nil {
		printInfo("Catalog: %s", path)
	} else if !errors.Is(err, types.ErrNoCatalog) {
		return err
	}

	srv := api.New(api.Options{
		CatalogDir:  cfg.DataDir,
		Manager:     c.manager,
		Engine:      c.engine,
		History:     c.history,
		ListVolumes: volume.List,
	})

	w, err := catalog.NewWatcher(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("watching catalog directory: %w", err)
	}
	defer w.Close()
	go srv.Follow(ctx, w)

	printInfo("Listening on http://%s", cfg.API.Addr)
	return srv.ListenAndServe(ctx, cfg.API.Addr)
}
