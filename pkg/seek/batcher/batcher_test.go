package batcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

type memWriter struct {
	batches  [][]types.FileRecord
	removed  []string
	failAt   int
	failWith error
}

func (m *memWriter) Upsert(_ context.Context, records []types.FileRecord) error {
	if len(records) == 0 {
		return nil
	}
	if m.failWith != nil && len(m.batches) == m.failAt {
		return m.failWith
	}
	m.batches = append(m.batches, append([]types.FileRecord(nil), records...))
	return nil
}

func (m *memWriter) Remove(_ context.Context, paths []string) error {
	m.removed = append(m.removed, paths...)
	return nil
}

func recs(n int) []types.FileRecord {
	out := make([]types.FileRecord, n)
	for i := range out {
		out[i] = types.FileRecord{Path: fmt.Sprintf("/f/%d", i), Filename: fmt.Sprintf("%d", i)}
	}
	return out
}

func TestBatcher_FlushesAtThreshold(t *testing.T) {
	w := &memWriter{}
	b := New(context.Background(), w, Options{Size: 3})

	for _, r := range recs(7) {
		require.NoError(t, b.Add(r))
	}

	assert.Len(t, w.batches, 2)
	assert.Equal(t, 1, b.Pending())
	assert.Equal(t, int64(6), b.Flushed())

	require.NoError(t, b.Flush())
	assert.Len(t, w.batches, 3)
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, int64(7), b.Flushed())
	assert.Equal(t, int64(3), b.Batches())
}

func TestBatcher_ProgressCountsOnlyFlushedRecords(t *testing.T) {
	var events []types.Progress
	b := New(context.Background(), &memWriter{}, Options{
		Size:          4,
		ProgressEvery: 8,
		OnProgress:    func(p types.Progress) { events = append(events, p) },
	})

	b.BeginTarget("/data")
	for _, r := range recs(19) {
		require.NoError(t, b.Add(r))
	}
	require.NoError(t, b.Flush())

	require.Len(t, events, 3)
	assert.Equal(t, types.ProgressTarget, events[0].Kind)
	assert.Equal(t, "/data", events[0].Target)
	assert.Equal(t, int64(0), events[0].Records)

	assert.Equal(t, types.ProgressRecords, events[1].Kind)
	assert.Equal(t, int64(8), events[1].Records)
	assert.Equal(t, int64(2), events[1].Batches)
	assert.Equal(t, int64(16), events[2].Records)

	for _, e := range events {
		assert.Zero(t, e.Records%4, "progress must only report whole flushed batches")
	}
}

func TestBatcher_TargetChangeReportsProgress(t *testing.T) {
	var events []types.Progress
	b := New(context.Background(), &memWriter{}, Options{
		Size:       10,
		OnProgress: func(p types.Progress) { events = append(events, p) },
	})

	b.BeginTarget(`C:\`)
	require.NoError(t, b.Add(types.FileRecord{Path: "a"}))
	b.BeginTarget(`D:\`)
	b.Skip(`E:\`, errors.New("not NTFS"))

	require.Len(t, events, 3)
	assert.Equal(t, `D:\`, events[1].Target)
	assert.Equal(t, int64(0), events[1].Records, "unflushed records are not progress")
	assert.Equal(t, types.ProgressSkipped, events[2].Kind)
	assert.Equal(t, "not NTFS", events[2].Message)
}

func TestBatcher_Drop(t *testing.T) {
	w := &memWriter{}
	b := New(context.Background(), w, Options{Size: 5})

	for _, r := range recs(12) {
		require.NoError(t, b.Add(r))
	}
	require.NoError(t, b.Remove("/gone"))

	assert.Equal(t, 2, b.Drop())
	require.NoError(t, b.Flush())
	assert.Len(t, w.batches, 2)
	assert.Empty(t, w.removed)
	assert.Equal(t, int64(10), b.Flushed())
}

func TestBatcher_RemovalsFlushWithBatch(t *testing.T) {
	w := &memWriter{}
	b := New(context.Background(), w, Options{Size: 2})

	require.NoError(t, b.Remove("/old"))
	require.NoError(t, b.Add(types.FileRecord{Path: "/new"}))
	assert.Empty(t, w.removed)

	require.NoError(t, b.Flush())
	assert.Equal(t, []string{"/old"}, w.removed)
	assert.Equal(t, int64(1), b.Flushed())
}

func TestBatcher_WriteErrorKeepsBatchPending(t *testing.T) {
	boom := errors.New("disk full")
	w := &memWriter{failAt: 1, failWith: boom}
	b := New(context.Background(), w, Options{Size: 2})

	require.NoError(t, b.Add(types.FileRecord{Path: "1"}))
	require.NoError(t, b.Add(types.FileRecord{Path: "2"}))
	require.NoError(t, b.Add(types.FileRecord{Path: "3"}))
	err := b.Add(types.FileRecord{Path: "4"})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(2), b.Flushed())
	assert.Equal(t, 2, b.Pending())
}

func TestBatcher_OnFlush(t *testing.T) {
	var sizes []int
	b := New(context.Background(), &memWriter{}, Options{
		Size:    3,
		OnFlush: func(n int, d time.Duration) { sizes = append(sizes, n) },
	})
	for _, r := range recs(4) {
		require.NoError(t, b.Add(r))
	}
	require.NoError(t, b.Flush())
	require.NoError(t, b.Flush())

	assert.Equal(t, []int{3, 1}, sizes)
}
