// Package batcher buffers file records between a scanner and the catalog
// store, writing them in fixed-size transactions and reporting progress in
// terms of records that have actually been written.
package batcher

import (
	"context"
	"time"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

// Writer persists batches. store.Staging implements it.
type Writer interface {
	Upsert(ctx context.Context, records []types.FileRecord) error
	Remove(ctx context.Context, paths []string) error
}

// ProgressFunc receives progress updates.
type ProgressFunc func(types.Progress)

// FlushFunc observes each completed flush.
type FlushFunc func(records int, elapsed time.Duration)

// Options configures a Batcher.
type Options struct {
	// Size is the number of buffered records that triggers a flush.
	Size int

	// ProgressEvery is the number of flushed records between progress events.
	ProgressEvery int

	OnProgress ProgressFunc
	OnFlush    FlushFunc
}

// Batcher accumulates records and flushes them to a Writer. It is not safe
// for concurrent use; scanners serialize their callbacks.
type Batcher struct {
	w      Writer
	opts   Options
	ctx    context.Context
	target string

	pending  []types.FileRecord
	removals []string

	flushed  int64
	batches  int64
	reported int64
}

// New returns a Batcher writing to w. Writes use ctx, which should not be the
// session's cancellable context: a flush that has started runs to completion.
func New(ctx context.Context, w Writer, opts Options) *Batcher {
	if opts.Size <= 0 {
		opts.Size = 1
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = opts.Size
	}
	return &Batcher{
		w:       w,
		opts:    opts,
		ctx:     ctx,
		pending: make([]types.FileRecord, 0, opts.Size),
	}
}

// BeginTarget marks the start of a new volume or directory and reports it.
func (b *Batcher) BeginTarget(target string) {
	b.target = target
	b.emit(types.Progress{Kind: types.ProgressTarget, Target: target})
}

// Skip reports a target that was skipped with a reason.
func (b *Batcher) Skip(target string, reason error) {
	b.emit(types.Progress{Kind: types.ProgressSkipped, Target: target, Message: reason.Error()})
}

// Add buffers a record and flushes once the batch is full.
func (b *Batcher) Add(rec types.FileRecord) error {
	b.pending = append(b.pending, rec)
	if len(b.pending) >= b.opts.Size {
		return b.Flush()
	}
	return nil
}

// Remove buffers the deletion of a path. Removals are written with the next
// flush and do not count as progress.
func (b *Batcher) Remove(path string) error {
	b.removals = append(b.removals, path)
	if len(b.removals) >= b.opts.Size {
		return b.Flush()
	}
	return nil
}

// Flush writes everything buffered. Removals are applied before upserts so a
// path deleted and recreated in the same batch survives.
func (b *Batcher) Flush() error {
	if len(b.pending) == 0 && len(b.removals) == 0 {
		return nil
	}

	start := time.Now()
	if err := b.w.Remove(b.ctx, b.removals); err != nil {
		return err
	}
	b.removals = b.removals[:0]

	if err := b.w.Upsert(b.ctx, b.pending); err != nil {
		return err
	}

	n := len(b.pending)
	b.pending = b.pending[:0]
	if n == 0 {
		return nil
	}

	b.flushed += int64(n)
	b.batches++
	if b.opts.OnFlush != nil {
		b.opts.OnFlush(n, time.Since(start))
	}

	every := int64(b.opts.ProgressEvery)
	if b.flushed/every > b.reported/every {
		b.reported = b.flushed
		b.emit(types.Progress{Kind: types.ProgressRecords, Target: b.target})
	}
	return nil
}

// Drop discards buffered records without writing them and returns how many
// were dropped.
func (b *Batcher) Drop() int {
	n := len(b.pending)
	b.pending = b.pending[:0]
	b.removals = b.removals[:0]
	return n
}

// Pending returns the number of buffered records.
func (b *Batcher) Pending() int {
	return len(b.pending)
}

// Flushed returns the number of records written so far.
func (b *Batcher) Flushed() int64 {
	return b.flushed
}

// Batches returns the number of batches written so far.
func (b *Batcher) Batches() int64 {
	return b.batches
}

func (b *Batcher) emit(p types.Progress) {
	if b.opts.OnProgress == nil {
		return
	}
	p.Records = b.flushed
	p.Batches = b.batches
	b.opts.OnProgress(p)
}
