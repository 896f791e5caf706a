// Package walker enumerates files under a directory tree in parallel using
// fastwalk, skipping system directories and hidden or system files.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/seek/pkg/seek/logging"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

var errStopped = errors.New("walk stopped")

// Options configures a Walker.
type Options struct {
	// SkipDirs are directory names never descended into, compared without case.
	SkipDirs []string

	// ReservedPrefix marks directory names that are never descended into.
	ReservedPrefix string

	// Workers is the number of parallel directory readers. Zero lets
	// fastwalk choose.
	Workers int
}

// Stats counts what a walk saw.
type Stats struct {
	Dirs    int64 `json:"dirs"`
	Files   int64 `json:"files"`
	Skipped int64 `json:"skipped"`
	Errors  int64 `json:"errors"`
}

// FileFunc receives each visible regular file. Calls are serialized.
// Returning an error stops the walk.
type FileFunc func(types.FileRecord) error

// Walker walks directory trees.
type Walker struct {
	opts   Options
	skip   map[string]struct{}
	logger *logging.Logger
}

// New returns a Walker.
func New(opts Options) *Walker {
	skip := make(map[string]struct{}, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		skip[strings.ToLower(d)] = struct{}{}
	}
	return &Walker{opts: opts, skip: skip, logger: logging.Get("walker")}
}

// Walk visits every regular file under root and passes it to fn. It returns
// types.ErrCancelled if ctx is cancelled; the entry being processed at that
// moment is finished first. Per-entry errors are counted and skipped.
func (w *Walker) Walk(ctx context.Context, root string, fn FileFunc) (Stats, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %s: %w", types.ErrVolumeAccess, root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %s: %w", types.ErrVolumeAccess, root, err)
	}
	if !info.IsDir() {
		return Stats{}, fmt.Errorf("%w: %s is not a directory", types.ErrVolumeAccess, root)
	}
	if seg, ok := w.skippedSegment(abs); ok {
		return Stats{}, fmt.Errorf("%w: %s is inside skipped directory %q", types.ErrVolumeAccess, root, seg)
	}

	var (
		dirs, files, skipped, errs atomic.Int64
		mu                         sync.Mutex
		stopErr                    error
		stopped                    atomic.Bool
	)

	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: w.opts.Workers,
	}

	walkErr := fastwalk.Walk(&conf, abs, func(path string, d fs.DirEntry, err error) error {
		if stopped.Load() {
			return errStopped
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			errs.Add(1)
			w.logger.Debug("skipping entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == abs {
				return nil
			}
			if w.skipDir(d.Name()) {
				skipped.Add(1)
				return fastwalk.SkipDir
			}
			dirs.Add(1)
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			errs.Add(1)
			w.logger.Debug("stat failed", "path", path, "error", err)
			return nil
		}
		if isHidden(path, fi) {
			skipped.Add(1)
			return nil
		}

		rec := types.FileRecord{
			Path:     path,
			Filename: d.Name(),
			Size:     fi.Size(),
			ModTime:  fi.ModTime().Truncate(time.Second),
		}

		mu.Lock()
		defer mu.Unlock()
		if stopErr != nil {
			return stopErr
		}
		files.Add(1)
		if err := fn(rec); err != nil {
			stopErr = err
			stopped.Store(true)
			return err
		}
		return nil
	})

	stats := Stats{
		Dirs:    dirs.Load(),
		Files:   files.Load(),
		Skipped: skipped.Load(),
		Errors:  errs.Load(),
	}

	mu.Lock()
	defer mu.Unlock()
	switch {
	case stopErr != nil:
		return stats, stopErr
	case errors.Is(walkErr, context.Canceled), errors.Is(walkErr, context.DeadlineExceeded):
		return stats, fmt.Errorf("%w: walking %s", types.ErrCancelled, abs)
	case walkErr != nil:
		return stats, fmt.Errorf("walking %s: %w", abs, walkErr)
	}

	w.logger.Debug("walk finished", "root", abs, "files", stats.Files, "dirs", stats.Dirs, "skipped", stats.Skipped, "errors", stats.Errors)
	return stats, nil
}

// skipDir reports whether a directory name is excluded.
// skippedSegment returns the first segment of path, from the root down,
// that the skip rules exclude.
func (w *Walker) skippedSegment(path string) (string, bool) {
	var segs []string
	for p := path; p != filepath.Dir(p); p = filepath.Dir(p) {
		segs = append(segs, filepath.Base(p))
	}
	for i := len(segs) - 1; i >= 0; i-- {
		if w.skipDir(segs[i]) {
			return segs[i], true
		}
	}
	return "", false
}

func (w *Walker) skipDir(name string) bool {
	if w.opts.ReservedPrefix != "" && strings.HasPrefix(name, w.opts.ReservedPrefix) {
		return true
	}
	_, ok := w.skip[strings.ToLower(name)]
	return ok
}
