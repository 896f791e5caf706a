// Package history records the outcome of every indexing session in a JSON
// file so past runs can be listed from the CLI and API.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

// Entry is one finished session.
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Strategy  string    `json:"strategy" yaml:"strategy"`
	Targets   []string  `json:"targets" yaml:"targets"`
	State     string    `json:"state" yaml:"state"`
	Records   int64     `json:"records" yaml:"records"`
	Snapshot  string    `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Elapsed   float64   `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	Skipped   []string  `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewEntry builds an entry from a session request and its outcome.
func NewEntry(req types.ScanRequest, o types.Outcome) Entry {
	e := Entry{
		ID:        o.SessionID,
		Timestamp: time.Now().UTC(),
		Strategy:  req.Strategy.String(),
		Targets:   append([]string(nil), req.Targets...),
		State:     o.State.String(),
		Records:   o.Records,
		Snapshot:  o.SnapshotPath,
		Elapsed:   o.ElapsedSeconds(),
	}
	for _, s := range o.Skipped {
		e.Skipped = append(e.Skipped, s.Volume+": "+s.Reason)
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	return e
}

// History manages the session history file.
type History struct {
	path       string
	maxEntries int
	mu         sync.Mutex
}

// New creates a History stored at path, keeping at most maxEntries
// (0 keeps everything). The file is created on the first Append.
func New(path string, maxEntries int) (*History, error) {
	if path == "" {
		return nil, errors.New("history path cannot be empty")
	}
	return &History{path: path, maxEntries: maxEntries}, nil
}

// Path returns the history file path.
func (h *History) Path() string {
	return h.path
}

// Append adds an entry and trims the oldest ones beyond the limit.
func (h *History) Append(e Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.read()
	if err != nil {
		return err
	}

	entries = append([]Entry{e}, entries...)
	if h.maxEntries > 0 && len(entries) > h.maxEntries {
		entries = entries[:h.maxEntries]
	}
	return h.write(entries)
}

// List returns entries newest first. If limit is 0 or negative, all entries
// are returned.
func (h *History) List(limit int) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.read()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get retrieves an entry by session ID.
func (h *History) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}
	entries, err := h.List(0)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("entry not found: %s", id)
}

// Clear removes the history file.
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove history: %w", err)
	}
	return nil
}

func (h *History) read() ([]Entry, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// write replaces the file atomically using a temp file and rename.
func (h *History) write(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tmpPath := h.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, h.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
