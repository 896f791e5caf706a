package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/seek/pkg/seek/logging"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

// RecycleBin is the directory name whose contents are never cataloged.
const RecycleBin = "$Recycle.Bin"

const (
	defaultPageSize = 64 * 1024
	maxPathDepth    = 512
)

// Sink receives the reader's output. batcher.Batcher implements it.
type Sink interface {
	Add(types.FileRecord) error
	Remove(path string) error
}

// Cursor is the resume position of a journal.
type Cursor struct {
	JournalID uint64
	NextUSN   int64
}

// Result summarizes one read.
type Result struct {
	Journal Data
	// Next is where the following read should resume.
	Next        Cursor
	Incremental bool
	Records     int64
	Removed     int64
	Skipped     int64
}

// Options configures a Reader.
type Options struct {
	// SkipDirs are directory names whose contents are ignored. The recycle
	// bin is always ignored.
	SkipDirs []string

	// PageSize is the read buffer size. Zero means 64KiB.
	PageSize int

	// Stat confirms resolved paths. Zero means os.Stat.
	Stat func(string) (fs.FileInfo, error)
}

type dirEntry struct {
	parent uint64
	name   string
}

// Reader turns journal records of one volume into file records.
type Reader struct {
	dev      Device
	resolver ParentResolver
	volume   string
	opts     Options
	skip     map[string]struct{}
	logger   *logging.Logger

	// dirs holds directory names seen in the journal; resolved caches
	// full paths returned by the resolver.
	dirs     map[uint64]dirEntry
	resolved map[uint64]string
}

// NewReader returns a reader over dev for the volume root volume. resolver
// may be nil, in which case only directories seen in the journal resolve.
func NewReader(dev Device, resolver ParentResolver, volume string, opts Options) *Reader {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Stat == nil {
		opts.Stat = os.Stat
	}
	skip := map[string]struct{}{strings.ToLower(RecycleBin): {}}
	for _, d := range opts.SkipDirs {
		skip[strings.ToLower(d)] = struct{}{}
	}
	return &Reader{
		dev:      dev,
		resolver: resolver,
		volume:   volume,
		opts:     opts,
		skip:     skip,
		logger:   logging.Get("journal").With("volume", volume),
		dirs:     make(map[uint64]dirEntry),
		resolved: make(map[uint64]string),
	}
}

// Ensure returns the journal's data, creating the journal once if the
// volume has none.
func (r *Reader) Ensure() (Data, error) {
	data, err := r.dev.Query()
	if errors.Is(err, ErrNotActive) {
		r.logger.Info("creating change journal")
		if cerr := r.dev.Create(DefaultMaximumSize, DefaultAllocationDelta); cerr != nil {
			return Data{}, fmt.Errorf("%w: %s: %w", types.ErrJournalUnavailable, r.volume, cerr)
		}
		data, err = r.dev.Query()
	}
	if err != nil {
		return Data{}, fmt.Errorf("%w: %s: %w", types.ErrJournalUnavailable, r.volume, err)
	}
	return data, nil
}

// Read streams the journal from start (or from its first USN when start is
// nil, belongs to another journal, or has expired) up to the USN that was
// current when the read began. Cancellation is checked once per page.
func (r *Reader) Read(ctx context.Context, start *Cursor, sink Sink) (Result, error) {
	data, err := r.Ensure()
	if err != nil {
		return Result{}, err
	}

	res := Result{Journal: data}
	from := data.FirstUSN
	if start != nil && start.JournalID == data.JournalID &&
		start.NextUSN >= data.FirstUSN && start.NextUSN <= data.NextUSN {
		from = start.NextUSN
		res.Incremental = true
	}
	end := data.NextUSN

	r.logger.Debug("reading journal", "journal_id", data.JournalID, "from", from, "to", end, "incremental", res.Incremental)

	buf := make([]byte, r.opts.PageSize)
	for from < end {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%w: reading %s", types.ErrCancelled, r.volume)
		}

		n, err := r.dev.ReadPage(from, data.JournalID, buf)
		if errors.Is(err, ErrCursorExpired) && res.Incremental {
			r.logger.Warn("journal cursor expired, rereading from start")
			from, res.Incremental = data.FirstUSN, false
			continue
		}
		if err != nil {
			return res, fmt.Errorf("%w: %s: %w", types.ErrVolumeAccess, r.volume, err)
		}

		next, records, err := ParsePage(buf[:n])
		if err != nil {
			return res, fmt.Errorf("%w: %s: %w", types.ErrVolumeAccess, r.volume, err)
		}

		for _, rec := range records {
			if err := r.handle(rec, sink, &res); err != nil {
				return res, err
			}
		}

		if len(records) == 0 || next <= from {
			break
		}
		from = next
	}

	res.Next = Cursor{JournalID: data.JournalID, NextUSN: end}
	return res, nil
}

// handle processes one record. Only sink errors are returned; anything
// wrong with the record itself skips it.
func (r *Reader) handle(rec Record, sink Sink, res *Result) error {
	if rec.IsDir() {
		r.dirs[rec.FileReferenceNumber] = dirEntry{parent: rec.ParentFileReferenceNumber, name: rec.FileName}
		delete(r.resolved, rec.FileReferenceNumber)
		return nil
	}

	// A change ends with a close record; a rename also leaves the old name.
	if !rec.Has(ReasonClose) && !rec.Has(ReasonRenameOldName) {
		return nil
	}

	if strings.EqualFold(rec.FileName, RecycleBin) {
		res.Skipped++
		return nil
	}

	parent, err := r.resolveDir(rec.ParentFileReferenceNumber, 0)
	if err != nil {
		res.Skipped++
		r.logger.Debug("unresolved parent", "name", rec.FileName, "parent", rec.ParentFileReferenceNumber, "error", err)
		return nil
	}
	if r.skipped(parent) {
		res.Skipped++
		return nil
	}

	path := filepath.Join(parent, rec.FileName)
	info, err := r.opts.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && rec.Has(ReasonFileDelete|ReasonRenameOldName) {
			res.Removed++
			return sink.Remove(path)
		}
		res.Skipped++
		return nil
	}
	if info.IsDir() {
		return nil
	}

	res.Records++
	return sink.Add(types.FileRecord{
		Path:     path,
		Filename: rec.FileName,
		Size:     info.Size(),
		ModTime:  info.ModTime().Truncate(time.Second),
	})
}

// resolveDir returns the full path of directory frn. The live resolver is
// preferred since journal names may be stale by the time a record is read.
func (r *Reader) resolveDir(frn uint64, depth int) (string, error) {
	if p, ok := r.resolved[frn]; ok {
		return p, nil
	}
	if depth > maxPathDepth {
		return "", fmt.Errorf("directory chain deeper than %d", maxPathDepth)
	}

	if r.resolver != nil {
		if p, err := r.resolver.ResolveDir(frn); err == nil {
			r.resolved[frn] = p
			return p, nil
		}
	}

	d, ok := r.dirs[frn]
	if !ok {
		return "", fmt.Errorf("unknown directory %#x", frn)
	}
	parent, err := r.resolveDir(d.parent, depth+1)
	if err != nil {
		return "", err
	}
	p := filepath.Join(parent, d.name)
	r.resolved[frn] = p
	return p, nil
}

// skipped reports whether any element of dir is in the skip set.
func (r *Reader) skipped(dir string) bool {
	for _, seg := range strings.FieldsFunc(dir, isSeparator) {
		if _, ok := r.skip[strings.ToLower(seg)]; ok {
			return true
		}
	}
	return false
}

func isSeparator(c rune) bool {
	return c == '/' || c == '\\'
}
