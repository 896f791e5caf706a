package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

const rootFRN = 5

var vol = filepath.FromSlash("/vol")

func dir(frn, parent uint64, name string) Record {
	return Record{FileReferenceNumber: frn, ParentFileReferenceNumber: parent, FileName: name,
		FileAttributes: AttrDirectory, Reason: ReasonFileCreate | ReasonClose}
}

func file(frn, parent uint64, name string, reason uint32) Record {
	return Record{FileReferenceNumber: frn, ParentFileReferenceNumber: parent, FileName: name, Reason: reason}
}

func at(elem ...string) string {
	return filepath.Join(append([]string{vol}, elem...)...)
}

func scenario() (*fakeDevice, fakeFS) {
	dev := newFakeDevice(
		dir(20, rootFRN, "docs"),
		dir(21, rootFRN, "$Recycle.Bin"),
		dir(22, rootFRN, "System Volume Information"),
		file(30, 20, "a.txt", ReasonDataExtend),
		file(30, 20, "a.txt", ReasonDataExtend|ReasonClose),
		file(31, 21, "b.txt", ReasonClose),
		file(32, 22, "c.log", ReasonClose),
		file(33, 20, "gone.txt", ReasonFileDelete|ReasonClose),
		file(34, 99, "orphan.txt", ReasonClose),
		file(35, 20, ".hidden", ReasonClose),
		file(36, 20, "old-name.txt", ReasonRenameOldName),
		file(36, 20, "new-name.txt", ReasonRenameNewName|ReasonClose),
	)
	fsys := fakeFS{
		at("docs"):                  {dir: true},
		at("docs", "a.txt"):         {size: 10},
		at("docs", ".hidden"):       {size: 1},
		at("docs", "new-name.txt"):  {size: 4},
		at("$Recycle.Bin", "b.txt"): {size: 2},
	}
	fsys[at("System Volume Information", "c.log")] = fakeInfo{size: 3}
	return dev, fsys
}

func newTestReader(dev Device, fsys fakeFS) *Reader {
	return NewReader(dev, fakeResolver{rootFRN: vol, 20: at("docs")}, vol, Options{
		SkipDirs: []string{"System Volume Information"},
		Stat:     fsys.stat,
	})
}

func TestRead_FiltersAndResolves(t *testing.T) {
	dev, fsys := scenario()
	sink := &memSink{}

	res, err := newTestReader(dev, fsys).Read(context.Background(), nil, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{
		at("docs", "a.txt"),
		at("docs", ".hidden"),
		at("docs", "new-name.txt"),
	}, sink.paths())
	assert.ElementsMatch(t, []string{at("docs", "gone.txt"), at("docs", "old-name.txt")}, sink.removed)

	a := sink.added[0]
	assert.Equal(t, "a.txt", a.Filename)
	assert.Equal(t, int64(10), a.Size)
	assert.Zero(t, a.ModTime.Nanosecond())

	assert.False(t, res.Incremental)
	assert.Equal(t, int64(3), res.Records)
	assert.Equal(t, int64(2), res.Removed)
	assert.Equal(t, Cursor{JournalID: 7, NextUSN: dev.data.NextUSN}, res.Next)
}

func TestRead_NeverYieldsDirectories(t *testing.T) {
	dev := newFakeDevice(
		dir(20, rootFRN, "docs"),
		file(40, rootFRN, "looks-like-file", ReasonClose),
	)
	fsys := fakeFS{at("docs"): {dir: true}, at("looks-like-file"): {dir: true}}
	sink := &memSink{}

	_, err := newTestReader(dev, fsys).Read(context.Background(), nil, sink)
	require.NoError(t, err)
	assert.Empty(t, sink.added)
}

func TestRead_ResolvesThroughJournalDirectories(t *testing.T) {
	dev := newFakeDevice(
		dir(60, rootFRN, "a"),
		dir(61, 60, "b"),
		file(30, 61, "deep.txt", ReasonClose),
	)
	fsys := fakeFS{at("a", "b", "deep.txt"): {size: 1}}
	sink := &memSink{}

	_, err := newTestReader(dev, fsys).Read(context.Background(), nil, sink)
	require.NoError(t, err)
	assert.Equal(t, []string{at("a", "b", "deep.txt")}, sink.paths())
}

func TestRead_CreatesMissingJournal(t *testing.T) {
	dev, fsys := scenario()
	dev.active = false

	_, err := newTestReader(dev, fsys).Read(context.Background(), nil, &memSink{})
	require.NoError(t, err)
	assert.True(t, dev.created)
}

func TestRead_JournalUnavailable(t *testing.T) {
	dev, fsys := scenario()
	dev.active = false
	dev.createErr = errors.New("access denied")

	_, err := newTestReader(dev, fsys).Read(context.Background(), nil, &memSink{})
	assert.ErrorIs(t, err, types.ErrJournalUnavailable)
}

func TestRead_ResumesFromCursor(t *testing.T) {
	dev, fsys := scenario()
	sink := &memSink{}

	// resume after the a.txt records
	start := &Cursor{JournalID: 7, NextUSN: dev.records[5].USN}
	res, err := newTestReader(dev, fsys).Read(context.Background(), start, sink)
	require.NoError(t, err)

	assert.True(t, res.Incremental)
	assert.Equal(t, []string{at("docs", ".hidden"), at("docs", "new-name.txt")}, sink.paths())
}

func TestRead_CursorFromOtherJournalRestarts(t *testing.T) {
	dev, fsys := scenario()
	sink := &memSink{}

	res, err := newTestReader(dev, fsys).Read(context.Background(), &Cursor{JournalID: 1, NextUSN: 150}, sink)
	require.NoError(t, err)
	assert.False(t, res.Incremental)
	assert.Len(t, sink.added, 3)
}

func TestRead_ExpiredCursorRestarts(t *testing.T) {
	dev, fsys := scenario()
	dev.expired = 150
	sink := &memSink{}

	res, err := newTestReader(dev, fsys).Read(context.Background(), &Cursor{JournalID: 7, NextUSN: 150}, sink)
	require.NoError(t, err)
	assert.False(t, res.Incremental)
	assert.Len(t, sink.added, 3)
}

func TestRead_CancelledBetweenPages(t *testing.T) {
	dev, fsys := scenario()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestReader(dev, fsys).Read(ctx, nil, &memSink{})
	assert.ErrorIs(t, err, types.ErrCancelled)
	assert.Zero(t, dev.reads)
}

func TestRead_SinkErrorStops(t *testing.T) {
	dev, fsys := scenario()
	sink := &memSink{failOn: ".hidden"}

	_, err := newTestReader(dev, fsys).Read(context.Background(), nil, sink)
	require.Error(t, err)
	assert.Len(t, sink.added, 1)
}
