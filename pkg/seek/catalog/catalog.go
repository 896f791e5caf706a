// Package catalog manages the snapshots in the catalog directory: listing,
// selecting, pruning and watching for snapshots published by other processes.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesainslie/seek/pkg/seek/logging"
	"github.com/jamesainslie/seek/pkg/seek/store"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

// Entry is a snapshot with its selection state.
type Entry struct {
	store.Snapshot `yaml:",inline"`
	Current        bool `json:"current" yaml:"current"`
}

// List returns the snapshots in dir, newest first, marking current.
func List(dir, current string) ([]Entry, error) {
	snapshots, err := store.ListSnapshots(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(snapshots))
	for i, s := range snapshots {
		entries[i] = Entry{Snapshot: s, Current: samePath(s.Path, current)}
	}
	return entries, nil
}

// Resolve turns a snapshot name or path into the path of an existing
// snapshot.
func Resolve(dir, name string) (string, error) {
	path := name
	if !filepath.IsAbs(name) && filepath.Dir(name) == "." {
		path = filepath.Join(dir, name)
		if filepath.Ext(path) != store.SnapshotExt {
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				path += store.SnapshotExt
			}
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrNoCatalog, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", types.ErrNoCatalog, path)
	}
	return path, nil
}

// Prune deletes all but the keep newest snapshots. The current snapshot is
// never deleted and does not count towards keep. It returns the removed paths.
func Prune(dir string, keep int, current string) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep must not be negative: %d", keep)
	}
	snapshots, err := store.ListSnapshots(dir)
	if err != nil {
		return nil, err
	}

	logger := logging.Get("catalog")
	var (
		removed []string
		errs    []error
		kept    int
	)
	for _, s := range snapshots {
		if samePath(s.Path, current) {
			continue
		}
		if kept < keep {
			kept++
			continue
		}
		if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		logger.Info("snapshot pruned", "path", s.Path)
		removed = append(removed, s.Path)
	}
	return removed, errors.Join(errs...)
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
