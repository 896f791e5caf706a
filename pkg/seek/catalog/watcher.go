package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/seek/pkg/seek/logging"
	"github.com/jamesainslie/seek/pkg/seek/store"
)

// ChangeKind says whether a snapshot appeared or went away.
type ChangeKind int

const (
	Added ChangeKind = iota
	Removed
)

// Change is a snapshot appearing in or leaving the catalog directory.
// Staging artifacts never produce changes.
type Change struct {
	Kind ChangeKind
	Path string
}

// Watcher watches the catalog directory, not its subdirectories.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	mu      sync.Mutex
	closed  bool
	logger  *logging.Logger
}

// NewWatcher starts watching dir, creating it if needed.
func NewWatcher(dir string) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{dir: dir, watcher: fsw, logger: logging.Get("catalog")}, nil
}

// Run delivers changes until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(Change)) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if c, ok := classify(event); ok && onChange != nil {
				onChange(c)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// classify maps an fsnotify event to a snapshot change. A publish renames a
// staging artifact into place, which arrives as a create of the final name.
func classify(event fsnotify.Event) (Change, bool) {
	name := filepath.Base(event.Name)
	if store.IsStagingName(name) {
		return Change{}, false
	}
	if _, _, ok := store.ParseSnapshotName(name); !ok {
		return Change{}, false
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		return Change{Kind: Added, Path: event.Name}, true
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return Change{Kind: Removed, Path: event.Name}, true
	}
	return Change{}, false
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.watcher.Close()
}
