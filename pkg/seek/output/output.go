// Package output provides formatters for displaying search results in
// various output formats (plain, json, yaml, table, template, paths).
//
// The package uses a registry pattern so formatters can be selected by
// name at runtime:
//
//	formatter, err := output.Get("table")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
package output

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

// FileInfo is a search hit prepared for display.
type FileInfo struct {
	Path      string    `json:"path" yaml:"path"`
	Name      string    `json:"name" yaml:"name"`
	Dir       string    `json:"dir" yaml:"dir"`
	Size      int64     `json:"size" yaml:"size"`
	SizeHuman string    `json:"size_human" yaml:"size_human"`
	ModTime   time.Time `json:"modified_time" yaml:"modified_time"`
}

// Result is one search with its hits.
type Result struct {
	Keyword string        `json:"keyword" yaml:"keyword"`
	Catalog string        `json:"catalog" yaml:"catalog"`
	Files   []FileInfo    `json:"files" yaml:"files"`
	Limit   int           `json:"limit" yaml:"limit"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// NewResult builds a Result from catalog rows.
func NewResult(keyword, catalog string, rows []types.FileRecord, limit int, elapsed time.Duration) *Result {
	files := make([]FileInfo, len(rows))
	for i := range rows {
		r := &rows[i]
		files[i] = FileInfo{
			Path:      r.Path,
			Name:      r.Filename,
			Dir:       filepath.Dir(r.Path),
			Size:      r.Size,
			SizeHuman: r.HumanSize(),
			ModTime:   r.ModTime,
		}
	}
	return &Result{Keyword: keyword, Catalog: catalog, Files: files, Limit: limit, Elapsed: elapsed}
}

// Truncated reports whether the search hit its row limit.
func (r *Result) Truncated() bool {
	return r.Limit > 0 && len(r.Files) >= r.Limit
}

// TotalSize returns the sum of all file sizes in the result.
func (r *Result) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory, replacing one with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
