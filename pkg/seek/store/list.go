package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Snapshot describes a published catalog file.
type Snapshot struct {
	Name      string    `json:"name" yaml:"name"`
	Path      string    `json:"path" yaml:"path"`
	Label     string    `json:"label" yaml:"label"`
	Completed time.Time `json:"completed" yaml:"completed"`
	Size      int64     `json:"size" yaml:"size"`
}

// ListSnapshots returns the snapshots in dir, newest first. A missing
// directory yields an empty list.
func ListSnapshots(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Snapshot{}, nil
		}
		return nil, fmt.Errorf("reading catalog directory: %w", err)
	}

	snapshots := []Snapshot{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		completed, label, ok := ParseSnapshotName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Name:      e.Name(),
			Path:      filepath.Join(dir, e.Name()),
			Label:     label,
			Completed: completed,
			Size:      info.Size(),
		})
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		if !snapshots[i].Completed.Equal(snapshots[j].Completed) {
			return snapshots[i].Completed.After(snapshots[j].Completed)
		}
		return snapshots[i].Name > snapshots[j].Name
	})
	return snapshots, nil
}

// LatestSnapshot returns the newest snapshot in dir carrying label.
func LatestSnapshot(dir, label string) (Snapshot, bool, error) {
	snapshots, err := ListSnapshots(dir)
	if err != nil {
		return Snapshot{}, false, err
	}
	for _, s := range snapshots {
		if s.Label == label {
			return s, true, nil
		}
	}
	return Snapshot{}, false, nil
}

// CleanStaging removes staging artifacts older than maxAge, left behind by
// sessions that were killed before they could publish or discard.
func CleanStaging(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading catalog directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !IsStagingName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
