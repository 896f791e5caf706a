// Package search answers keyword queries against the currently open catalog
// snapshot.
package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jamesainslie/seek/pkg/seek/config"
	"github.com/jamesainslie/seek/pkg/seek/logging"
	"github.com/jamesainslie/seek/pkg/seek/metrics"
	"github.com/jamesainslie/seek/pkg/seek/store"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

// Options configures an Engine.
type Options struct {
	// CatalogDir is searched for the newest snapshot when no preference is saved.
	CatalogDir string

	// Limit caps the rows of one search. Zero or more than 100 means 100.
	Limit int

	// Preference, when set, is updated whenever a catalog is opened.
	Preference *store.Preference
}

// Engine holds the open catalog. Searches and catalog switches may run
// concurrently; a switch waits for in-flight searches.
type Engine struct {
	opts   Options
	logger *logging.Logger

	mu      sync.RWMutex
	catalog *store.Catalog
	records int64
}

// New returns an Engine with no catalog open.
func New(opts Options) *Engine {
	if opts.Limit <= 0 || opts.Limit > config.DefaultSearchLimit {
		opts.Limit = config.DefaultSearchLimit
	}
	return &Engine{opts: opts, logger: logging.Get("search")}
}

// Open makes the snapshot at path the current catalog and remembers it.
// The previous catalog stays open if path cannot be opened.
func (e *Engine) Open(ctx context.Context, path string) error {
	c, err := store.OpenCatalog(ctx, path)
	if err != nil {
		return err
	}
	n, err := c.Count(ctx)
	if err != nil {
		_ = c.Close()
		return err
	}

	e.mu.Lock()
	prev := e.catalog
	e.catalog, e.records = c, n
	e.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			e.logger.Debug("closing previous catalog failed", "path", prev.Path(), "error", err)
		}
	}
	metrics.CatalogRecords.Set(float64(n))
	e.logger.Info("catalog opened", "path", path, "records", n)

	if e.opts.Preference != nil {
		if err := e.opts.Preference.Save(path); err != nil {
			e.logger.Warn("saving catalog preference failed", "error", err)
		}
	}
	return nil
}

// OpenLast opens the catalog saved in the preference, falling back to the
// newest snapshot in the catalog directory. It returns the opened path, or
// types.ErrNoCatalog when there is nothing to open.
func (e *Engine) OpenLast(ctx context.Context) (string, error) {
	if e.opts.Preference != nil {
		path, err := e.opts.Preference.Load()
		if err != nil {
			e.logger.Warn("reading catalog preference failed", "error", err)
		}
		if path != "" {
			if _, statErr := os.Stat(path); statErr == nil {
				return path, e.Open(ctx, path)
			}
			e.logger.Debug("preferred catalog is gone", "path", path)
		}
	}

	if e.opts.CatalogDir == "" {
		return "", types.ErrNoCatalog
	}
	snapshots, err := store.ListSnapshots(e.opts.CatalogDir)
	if err != nil {
		return "", err
	}
	if len(snapshots) == 0 {
		return "", fmt.Errorf("%w: no snapshots in %s", types.ErrNoCatalog, e.opts.CatalogDir)
	}
	return snapshots[0].Path, e.Open(ctx, snapshots[0].Path)
}

// Search returns up to the configured limit of records whose filename
// contains keyword, ignoring case. An empty keyword returns no rows.
func (e *Engine) Search(ctx context.Context, keyword string) ([]types.FileRecord, error) {
	if keyword == "" {
		return []types.FileRecord{}, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.catalog == nil {
		return nil, types.ErrNoCatalog
	}

	start := time.Now()
	rows, err := e.catalog.Search(ctx, keyword, e.opts.Limit)
	metrics.ObserveSearch(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("search", "keyword", keyword, "rows", len(rows), "elapsed", time.Since(start))
	return rows, nil
}

// Limit returns the maximum number of rows a search returns.
func (e *Engine) Limit() int {
	return e.opts.Limit
}

// Current returns the path of the open catalog, or "".
func (e *Engine) Current() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.catalog == nil {
		return ""
	}
	return e.catalog.Path()
}

// Records returns the row count of the open catalog.
func (e *Engine) Records() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.records
}

// Close closes the open catalog.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.catalog == nil {
		return nil
	}
	err := e.catalog.Close()
	e.catalog, e.records = nil, 0
	if err != nil {
		return errors.Join(types.ErrStore, err)
	}
	return nil
}
