package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const preferenceFile = "last_catalog"

// Preference remembers the last catalog the user opened or produced. It
// stores the snapshot file name, resolved against the catalog directory.
type Preference struct {
	mu  sync.Mutex
	dir string
}

// NewPreference returns the preference kept in dir.
func NewPreference(dir string) *Preference {
	return &Preference{dir: dir}
}

// Load returns the full path of the last catalog, or "" if none was saved.
func (p *Preference) Load() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(p.dir, preferenceFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading catalog preference: %w", err)
	}

	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", nil
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	return filepath.Join(p.dir, name), nil
}

// Save records path as the last catalog. Paths inside the catalog directory
// are stored by name so the directory can be moved.
func (p *Preference) Save(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	value := path
	if filepath.Dir(path) == filepath.Clean(p.dir) {
		value = filepath.Base(path)
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}

	target := filepath.Join(p.dir, preferenceFile)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(value+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing catalog preference: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("saving catalog preference: %w", err)
	}
	return nil
}

// Clear forgets the last catalog.
func (p *Preference) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(filepath.Join(p.dir, preferenceFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing catalog preference: %w", err)
	}
	return nil
}
