package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/seek/pkg/seek/batcher"
	"github.com/jamesainslie/seek/pkg/seek/config"
	"github.com/jamesainslie/seek/pkg/seek/cursor"
	"github.com/jamesainslie/seek/pkg/seek/journal"
	"github.com/jamesainslie/seek/pkg/seek/metrics"
	"github.com/jamesainslie/seek/pkg/seek/store"
	"github.com/jamesainslie/seek/pkg/seek/types"
	"github.com/jamesainslie/seek/pkg/seek/volume"
	"github.com/jamesainslie/seek/pkg/seek/walker"
)

// ErrNothingIndexed is the failure of a session whose every target was skipped.
var ErrNothingIndexed = errors.New("no target could be indexed")

// run executes one session and returns its outcome. Writes use a context
// that ignores cancellation so an in-flight flush always completes.
func (m *Manager) run(ctx context.Context, h *Handle) types.Outcome {
	req := h.Request
	wctx := context.WithoutCancel(ctx)

	m.report(h, types.Progress{Kind: types.ProgressStarted, Message: req.Strategy.String()})

	staging, err := store.NewStaging(wctx, m.opts.CatalogDir)
	if err != nil {
		return types.Outcome{State: types.StateFailed, Err: err}
	}

	size := m.opts.WalkBatch
	if req.Strategy == types.StrategyJournal {
		size = m.opts.JournalBatch
	}
	b := batcher.New(wctx, staging, batcher.Options{
		Size:          size,
		ProgressEvery: m.opts.ProgressEvery,
		OnProgress:    func(p types.Progress) { m.report(h, p) },
		OnFlush:       metrics.ObserveFlush,
	})

	label := store.Label(req)
	sc := &scan{m: m, b: b, staging: staging}
	switch req.Strategy {
	case types.StrategyJournal:
		err = sc.journal(ctx, wctx, label, req.Targets)
	default:
		err = sc.walk(ctx, req.Targets)
	}
	if err == nil {
		err = b.Flush()
	}
	m.logger.Debug("scan finished", "session", h.ID, "flushed", b.Flushed(),
		"batches", b.Batches(), "pending", b.Pending(), "error", err)

	o := types.Outcome{Skipped: sc.skipped}
	switch {
	case errors.Is(err, types.ErrStore):
		o.State, o.Err = types.StateFailed, err
		m.discard(staging)

	case errors.Is(err, types.ErrCancelled):
		o.State = types.StateCancelled
		if m.opts.CancelPolicy == config.CancelPolicyDiscard || b.Flushed() == 0 {
			b.Drop()
			m.discard(staging)
			break
		}
		if n := b.Drop(); n > 0 {
			m.logger.Debug("dropped unflushed records", "records", n)
		}
		o.SnapshotPath, o.Err = staging.Publish(label, m.opts.Now())
		if o.Err != nil {
			o.State = types.StateFailed
		}

	case err != nil:
		o.State, o.Err = types.StateFailed, err
		m.discard(staging)

	case sc.indexed == 0:
		o.State = types.StateFailed
		o.Err = fmt.Errorf("%w: %w", ErrNothingIndexed, joinSkipped(sc.skipped))
		m.discard(staging)

	default:
		o.SnapshotPath, err = staging.Publish(label, m.opts.Now())
		if err != nil {
			o.State, o.Err = types.StateFailed, err
			break
		}
		o.State = types.StateCompleted
		sc.saveCursors(filepath.Base(o.SnapshotPath))
	}

	o.Records = b.Flushed()
	return o
}

func (m *Manager) discard(s *store.Staging) {
	if err := s.Discard(); err != nil {
		m.logger.Error("discarding staging failed", "path", s.Path(), "error", err)
	}
}

func joinSkipped(skipped []types.VolumeError) error {
	errs := make([]error, len(skipped))
	for i := range skipped {
		errs[i] = &skipped[i]
	}
	return errors.Join(errs...)
}

// scan holds the per-session enumeration state.
type scan struct {
	m       *Manager
	b       *batcher.Batcher
	staging *store.Staging

	// indexed counts targets that were enumerated rather than skipped.
	indexed int
	skipped []types.VolumeError
	cursors []cursor.Entry
}

// skip records a per-volume failure and reports it.
func (s *scan) skip(target string, err error) {
	ve := types.NewVolumeError(target, err)
	s.skipped = append(s.skipped, *ve)
	s.m.logger.Warn("skipping target", "target", target, "reason", ve.Reason)
	s.b.Skip(target, ve)
}

// fatal reports whether err must end the session.
func fatal(err error) bool {
	return errors.Is(err, types.ErrStore) || errors.Is(err, types.ErrCancelled)
}

func (s *scan) walk(ctx context.Context, targets []string) error {
	w := walker.New(s.m.opts.Walk)
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: before %s", types.ErrCancelled, target)
		}

		s.b.BeginTarget(target)
		stats, err := w.Walk(ctx, target, s.b.Add)
		if fatal(err) {
			return err
		}
		if err != nil {
			s.skip(target, err)
			continue
		}
		s.indexed++
		s.m.logger.Debug("target walked", "target", target, "files", stats.Files, "skipped", stats.Skipped, "errors", stats.Errors)
	}
	return nil
}

func (s *scan) journal(ctx, wctx context.Context, label string, targets []string) error {
	seeded := s.seed(wctx, label)

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: before %s", types.ErrCancelled, target)
		}

		vol := volume.Normalize(target)
		if !volume.IsDriveRoot(vol) {
			s.skip(target, fmt.Errorf("%w: %s is not a drive root", types.ErrVolumeAccess, target))
			continue
		}
		if sup := s.m.opts.Validate(vol); !sup.Supported {
			s.skip(vol, fmt.Errorf("%w: %s", types.ErrUnsupportedFilesystem, sup.Reason))
			continue
		}

		s.b.BeginTarget(vol)
		err := s.readVolume(ctx, vol, seeded)
		if fatal(err) {
			return err
		}
		if err != nil {
			s.skip(vol, err)
			continue
		}
		s.indexed++
	}
	return nil
}

// seed copies the previous snapshot with the same label into staging and
// returns its name, or "" when the session starts from scratch.
func (s *scan) seed(ctx context.Context, label string) string {
	if !s.m.opts.Incremental || s.m.opts.Cursors == nil {
		return ""
	}
	prev, ok, err := store.LatestSnapshot(s.m.opts.CatalogDir, label)
	if err != nil || !ok {
		return ""
	}
	n, err := s.staging.Seed(ctx, prev.Path)
	if err != nil {
		s.m.logger.Warn("seeding from previous snapshot failed, reading journals from the start", "snapshot", prev.Name, "error", err)
		return ""
	}
	s.m.logger.Info("seeded from previous snapshot", "snapshot", prev.Name, "rows", n)
	return prev.Name
}

func (s *scan) readVolume(ctx context.Context, vol, seeded string) error {
	dev, resolver, err := s.m.opts.Opener(vol)
	if err != nil {
		if errors.Is(err, types.ErrJournalUnavailable) || errors.Is(err, types.ErrVolumeAccess) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", types.ErrVolumeAccess, vol, err)
	}
	defer func() {
		if cerr := dev.Close(); cerr != nil {
			s.m.logger.Debug("closing journal failed", "volume", vol, "error", cerr)
		}
	}()

	r := journal.NewReader(dev, resolver, vol, journal.Options{
		SkipDirs: s.m.opts.Walk.SkipDirs,
		Stat:     s.m.opts.JournalStat,
	})

	var start *journal.Cursor
	if seeded != "" {
		if prev, err := s.m.opts.Cursors.Get(vol); err == nil && strings.EqualFold(prev.Snapshot, seeded) {
			start = prev.Cursor()
		}
	}

	res, err := r.Read(ctx, start, s.b)
	if err != nil {
		return err
	}

	s.m.logger.Info("journal read", "volume", vol, "incremental", res.Incremental,
		"records", res.Records, "removed", res.Removed, "skipped", res.Skipped)
	s.cursors = append(s.cursors, cursor.Entry{
		Volume:    vol,
		JournalID: res.Next.JournalID,
		FirstUSN:  res.Journal.FirstUSN,
		NextUSN:   res.Next.NextUSN,
	})
	return nil
}

// saveCursors stores journal positions once their records are published.
func (s *scan) saveCursors(snapshot string) {
	if s.m.opts.Cursors == nil {
		return
	}
	for _, c := range s.cursors {
		c.Snapshot = snapshot
		if _, err := s.m.opts.Cursors.Advance(c); err != nil {
			s.m.logger.Warn("saving journal cursor failed", "volume", c.Volume, "error", err)
		}
	}
}
