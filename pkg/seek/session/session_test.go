package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/seek/pkg/seek/config"
	"github.com/jamesainslie/seek/pkg/seek/cursor"
	"github.com/jamesainslie/seek/pkg/seek/events"
	"github.com/jamesainslie/seek/pkg/seek/history"
	"github.com/jamesainslie/seek/pkg/seek/journal"
	"github.com/jamesainslie/seek/pkg/seek/journal/journaltest"
	"github.com/jamesainslie/seek/pkg/seek/store"
	"github.com/jamesainslie/seek/pkg/seek/types"
	"github.com/jamesainslie/seek/pkg/seek/volume"
)

const docsFRN = 5

func ntfs(string) volume.Support {
	return volume.Support{Supported: true, FSType: "NTFS"}
}

// fileRecords returns n close records for files in the docs directory.
func fileRecords(n int) []journal.Record {
	recs := make([]journal.Record, n)
	for i := range recs {
		recs[i] = journaltest.File(uint64(100+i), docsFRN, fmt.Sprintf("f%d.txt", i))
	}
	return recs
}

// clock returns a Now func that advances one minute per call.
func clock() func() time.Time {
	t := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

type fixture struct {
	dir     string
	devices map[string]*journaltest.Device
	opts    Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{dir: dir, devices: map[string]*journaltest.Device{}}
	resolver := journaltest.Resolver{docsFRN: `C:\docs`}
	f.opts = Options{
		CatalogDir:    dir,
		JournalBatch:  2,
		WalkBatch:     2,
		ProgressEvery: 2,
		Opener:        journaltest.Opener(f.devices, resolver, types.ErrJournalUnavailable),
		Validate:      ntfs,
		JournalStat:   journaltest.StatAny,
		Preference:    store.NewPreference(dir),
		Now:           clock(),
	}
	return f
}

func (f *fixture) manager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(f.opts)
	t.Cleanup(m.Close)
	return m
}

func run(t *testing.T, m *Manager, req types.ScanRequest) (types.Outcome, []*events.Event) {
	t.Helper()
	sub := m.Subscribe("")
	defer m.Unsubscribe(sub)

	h, err := m.Start(context.Background(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var evs []*events.Event
	for {
		select {
		case ev := <-sub.Events:
			evs = append(evs, ev)
			if ev.Type == events.EventCompleted {
				o, err := h.Wait(ctx)
				require.NoError(t, err)
				return o, evs
			}
		case <-ctx.Done():
			t.Fatal("session did not complete")
		}
	}
}

func journalRequest(targets ...string) types.ScanRequest {
	return types.ScanRequest{Targets: targets, Strategy: types.StrategyJournal, Scope: types.ScopeVolumes}
}

func countRows(t *testing.T, path string) int64 {
	t.Helper()
	c, err := store.OpenCatalog(context.Background(), path)
	require.NoError(t, err)
	defer c.Close()
	n, err := c.Count(context.Background())
	require.NoError(t, err)
	return n
}

func catalogFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), store.SnapshotExt) || strings.Contains(e.Name(), ".db-") {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestWalkDirectoryCompletes(t *testing.T) {
	f := newFixture(t)
	root := filepath.Join(t.TempDir(), "Projects")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	for _, name := range []string{"a.txt", "b.txt", "sub/c.txt", "sub/d.txt", "e.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	hist, err := history.New(filepath.Join(t.TempDir(), "history.json"), 10)
	require.NoError(t, err)
	f.opts.History = hist
	m := f.manager(t)

	o, evs := run(t, m, types.ScanRequest{Targets: []string{root}, Strategy: types.StrategyWalk, Scope: types.ScopeDirectory})

	require.Equal(t, types.StateCompleted, o.State, "err: %v", o.Err)
	assert.Equal(t, int64(5), o.Records)
	assert.True(t, strings.HasSuffix(o.SnapshotPath, "_Dir_Projects.db"))
	assert.Equal(t, int64(5), countRows(t, o.SnapshotPath))
	assert.Positive(t, o.Elapsed)

	// exactly one completion, delivered last
	completed := 0
	for _, ev := range evs {
		if ev.Type == events.EventCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, types.ProgressStarted, evs[0].Progress.Kind)
	assert.Equal(t, types.ProgressTarget, evs[1].Progress.Kind)
	assert.Equal(t, root, evs[1].Progress.Target)

	last, err := f.opts.Preference.Load()
	require.NoError(t, err)
	assert.Equal(t, o.SnapshotPath, last)

	entries, err := hist.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "completed", entries[0].State)
	assert.Equal(t, o.SessionID, entries[0].ID)

	st := m.Status()
	assert.Equal(t, types.StateIdle, st.State)
	assert.Nil(t, st.Session)
	require.NotNil(t, st.Last)
	assert.Equal(t, o.SnapshotPath, st.Last.SnapshotPath)
}

func TestProgressCountsFlushedRecords(t *testing.T) {
	f := newFixture(t)
	f.devices[`C:\`] = journaltest.NewDevice(1, 2, fileRecords(5)...)
	m := f.manager(t)

	o, evs := run(t, m, journalRequest(`C:\`))
	require.Equal(t, types.StateCompleted, o.State, "err: %v", o.Err)

	var counts []int64
	for _, ev := range evs {
		if ev.Type == events.EventProgress && ev.Progress.Kind == types.ProgressRecords {
			counts = append(counts, ev.Progress.Records)
		}
	}
	// batches of 2 are flushed at 2 and 4; the last record goes with the final flush
	assert.Equal(t, []int64{2, 4}, counts)
	assert.Equal(t, int64(5), o.Records)
}

func cancelAfterSecondPage(f *fixture, m *Manager) {
	f.devices[`C:\`].OnRead = func(n int) {
		if n == 2 {
			_ = m.Cancel("")
		}
	}
}

func TestCancelPublishesFlushedBatches(t *testing.T) {
	f := newFixture(t)
	f.devices[`C:\`] = journaltest.NewDevice(1, 2, fileRecords(10)...)
	m := f.manager(t)
	cancelAfterSecondPage(f, m)

	o, _ := run(t, m, journalRequest(`C:\`))

	assert.Equal(t, types.StateCancelled, o.State)
	assert.Equal(t, int64(4), o.Records, "two of five batches were flushed")
	require.True(t, o.Published())
	assert.Equal(t, int64(4), countRows(t, o.SnapshotPath))

	for _, name := range catalogFiles(t, f.dir) {
		assert.False(t, store.IsStagingName(name), "staging left behind: %s", name)
	}
}

func TestCancelDiscardPolicy(t *testing.T) {
	f := newFixture(t)
	f.opts.CancelPolicy = config.CancelPolicyDiscard
	f.devices[`C:\`] = journaltest.NewDevice(1, 2, fileRecords(10)...)
	m := f.manager(t)
	cancelAfterSecondPage(f, m)

	o, _ := run(t, m, journalRequest(`C:\`))

	assert.Equal(t, types.StateCancelled, o.State)
	assert.False(t, o.Published())
	assert.Empty(t, catalogFiles(t, f.dir))

	last, err := f.opts.Preference.Load()
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestConcurrentStartRejected(t *testing.T) {
	f := newFixture(t)
	f.devices[`C:\`] = journaltest.NewDevice(1, 2, fileRecords(4)...)
	release := make(chan struct{})
	entered := make(chan struct{})
	f.devices[`C:\`].OnRead = func(n int) {
		if n == 1 {
			close(entered)
			<-release
		}
	}
	m := f.manager(t)

	h, err := m.Start(context.Background(), journalRequest(`C:\`))
	require.NoError(t, err)
	<-entered

	assert.Equal(t, types.StateRunning, m.Status().State)
	_, err = m.Start(context.Background(), journalRequest(`C:\`))
	assert.ErrorIs(t, err, types.ErrSessionActive)

	close(release)
	o, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StateCompleted, o.State)

	// idle again: a new session may start
	h, err = m.Start(context.Background(), journalRequest(`C:\`))
	require.NoError(t, err)
	_, err = h.Wait(context.Background())
	require.NoError(t, err)
}

func TestDriveLabelsDoNotCollide(t *testing.T) {
	f := newFixture(t)
	f.devices[`C:\`] = journaltest.NewDevice(1, 2, fileRecords(3)...)
	f.devices[`D:\`] = journaltest.NewDevice(2, 2, fileRecords(2)...)
	m := f.manager(t)

	c, _ := run(t, m, journalRequest(`C:\`))
	d, _ := run(t, m, journalRequest(`D:\`))

	require.Equal(t, types.StateCompleted, c.State)
	require.Equal(t, types.StateCompleted, d.State)
	assert.True(t, strings.HasSuffix(c.SnapshotPath, "_Drive_C.db"))
	assert.True(t, strings.HasSuffix(d.SnapshotPath, "_Drive_D.db"))
	assert.NotEqual(t, c.SnapshotPath, d.SnapshotPath)

	_, err := os.Stat(c.SnapshotPath)
	assert.NoError(t, err)
	_, err = os.Stat(d.SnapshotPath)
	assert.NoError(t, err)
}

func TestUnsupportedVolumeSkipped(t *testing.T) {
	f := newFixture(t)
	f.devices[`C:\`] = journaltest.NewDevice(1, 2, fileRecords(3)...)
	f.opts.Validate = func(v string) volume.Support {
		if v == `D:\` {
			return volume.Support{FSType: "FAT32", Reason: "not NTFS"}
		}
		return ntfs(v)
	}
	m := f.manager(t)

	o, evs := run(t, m, journalRequest(`C:\`, `D:\`, "/mnt/data"))

	require.Equal(t, types.StateCompleted, o.State, "err: %v", o.Err)
	assert.True(t, strings.HasSuffix(o.SnapshotPath, "_Drive_C+D+data.db"))
	require.Len(t, o.Skipped, 2)
	assert.Equal(t, `D:\`, o.Skipped[0].Volume)
	assert.ErrorIs(t, &o.Skipped[0], types.ErrUnsupportedFilesystem)
	assert.Equal(t, "/mnt/data", o.Skipped[1].Volume)
	assert.ErrorIs(t, &o.Skipped[1], types.ErrVolumeAccess)

	var skippedEvents int
	for _, ev := range evs {
		if ev.Progress != nil && ev.Progress.Kind == types.ProgressSkipped {
			skippedEvents++
		}
	}
	assert.Equal(t, 2, skippedEvents)
}

func TestJournalUnavailableIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.devices[`C:\`] = journaltest.NewDevice(1, 2, fileRecords(1)...)
	m := f.manager(t)

	o, _ := run(t, m, journalRequest(`C:\`, `E:\`))

	require.Equal(t, types.StateCompleted, o.State)
	require.Len(t, o.Skipped, 1)
	assert.ErrorIs(t, &o.Skipped[0], types.ErrJournalUnavailable)
	assert.True(t, f.devices[`C:\`].Closed())
}

func TestAllTargetsSkippedFails(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)

	o, _ := run(t, m, journalRequest(`E:\`))

	assert.Equal(t, types.StateFailed, o.State)
	assert.ErrorIs(t, o.Err, ErrNothingIndexed)
	assert.ErrorIs(t, o.Err, types.ErrJournalUnavailable)
	assert.False(t, o.Published())
	assert.Empty(t, catalogFiles(t, f.dir))
}

func TestStoreErrorFails(t *testing.T) {
	f := newFixture(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	f.opts.CatalogDir = filepath.Join(blocker, "catalogs")
	f.opts.Preference = nil
	f.devices[`C:\`] = journaltest.NewDevice(1, 2, fileRecords(3)...)
	m := f.manager(t)

	o, _ := run(t, m, journalRequest(`C:\`))

	assert.Equal(t, types.StateFailed, o.State)
	assert.ErrorIs(t, o.Err, types.ErrStore)
	assert.False(t, o.Published())
}

func TestIncrementalResumesFromCursor(t *testing.T) {
	f := newFixture(t)
	cursors, err := cursor.OpenInMemory()
	require.NoError(t, err)
	defer cursors.Close()
	f.opts.Cursors = cursors
	f.opts.Incremental = true
	dev := journaltest.NewDevice(9, 2, fileRecords(6)...)
	f.devices[`C:\`] = dev
	m := f.manager(t)

	first, _ := run(t, m, journalRequest(`C:\`))
	require.Equal(t, types.StateCompleted, first.State)
	reads := dev.Reads()

	saved, err := cursors.Get(`C:\`)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), saved.JournalID)
	assert.Equal(t, dev.Data.NextUSN, saved.NextUSN)
	assert.Equal(t, filepath.Base(first.SnapshotPath), saved.Snapshot)

	second, _ := run(t, m, journalRequest(`C:\`))
	require.Equal(t, types.StateCompleted, second.State)
	assert.NotEqual(t, first.SnapshotPath, second.SnapshotPath)
	assert.Equal(t, reads, dev.Reads(), "nothing new in the journal")
	assert.Equal(t, int64(0), second.Records)
	assert.Equal(t, int64(6), countRows(t, second.SnapshotPath), "rows carried over from the previous snapshot")
}

func TestCancelUnknownSession(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)

	assert.ErrorIs(t, m.Cancel(""), ErrNoSession)
	assert.ErrorIs(t, m.Cancel("nope"), ErrNoSession)
}

func TestStartInvalidRequest(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t)

	_, err := m.Start(context.Background(), types.ScanRequest{})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
	assert.Equal(t, types.StateIdle, m.Status().State)
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir(), CancelPolicy: config.CancelPolicyDiscard}
	cfg.Batch.Journal = 1000
	cfg.Batch.Walk = 5000
	cfg.Progress.Every = 1000
	cfg.Walk.ReservedPrefix = "$"
	cfg.Journal.Incremental = true

	opts := FromConfig(cfg)
	assert.Equal(t, cfg.DataDir, opts.CatalogDir)
	assert.LessOrEqual(t, opts.JournalBatch, 1000)
	assert.Positive(t, opts.Walk.Workers)
	assert.Equal(t, "$", opts.Walk.ReservedPrefix)
	assert.Equal(t, config.CancelPolicyDiscard, opts.CancelPolicy)
	assert.True(t, opts.Incremental)
	assert.NotNil(t, opts.Preference)
}
