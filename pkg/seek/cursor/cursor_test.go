package cursor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/seek/pkg/seek/cursor"
)

func openStore(t *testing.T) *cursor.Store {
	t.Helper()
	s, err := cursor.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)

	_, err := s.Get(`C:\`)
	assert.ErrorIs(t, err, cursor.ErrNotFound)
}

func TestAdvanceAndGet(t *testing.T) {
	s := openStore(t)

	ok, err := s.Advance(cursor.Entry{Volume: `C:\`, JournalID: 7, FirstUSN: 100, NextUSN: 500})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(`c:\`)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.JournalID)
	assert.Equal(t, int64(500), got.NextUSN)
	assert.False(t, got.UpdatedAt.IsZero())

	c := got.Cursor()
	assert.Equal(t, uint64(7), c.JournalID)
	assert.Equal(t, int64(500), c.NextUSN)
}

func TestAdvanceIsMonotonic(t *testing.T) {
	s := openStore(t)

	_, err := s.Advance(cursor.Entry{Volume: `C:\`, JournalID: 7, NextUSN: 500})
	require.NoError(t, err)

	ok, err := s.Advance(cursor.Entry{Volume: `C:\`, JournalID: 7, NextUSN: 300})
	require.NoError(t, err)
	assert.False(t, ok, "older position must not overwrite")

	got, err := s.Get(`C:\`)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.NextUSN)

	ok, err = s.Advance(cursor.Entry{Volume: `C:\`, JournalID: 7, NextUSN: 900})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdvanceNewJournalReplaces(t *testing.T) {
	s := openStore(t)

	_, err := s.Advance(cursor.Entry{Volume: `D:\`, JournalID: 1, NextUSN: 5000})
	require.NoError(t, err)

	ok, err := s.Advance(cursor.Entry{Volume: `D:\`, JournalID: 2, NextUSN: 10})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(`D:\`)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.JournalID)
	assert.Equal(t, int64(10), got.NextUSN)
}

func TestListDeleteReset(t *testing.T) {
	s := openStore(t)

	for _, v := range []string{`D:\`, `C:\`, `E:\`} {
		_, err := s.Advance(cursor.Entry{Volume: v, JournalID: 1, NextUSN: 1})
		require.NoError(t, err)
	}

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, `C:\`, entries[0].Volume)

	require.NoError(t, s.Delete(`D:\`))
	entries, err = s.List()
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, s.Reset())
	entries, err = s.List()
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.NotNil(t, s.GetSchema(), "reset keeps the schema stamp")
}

func TestSchemaStamped(t *testing.T) {
	s, err := cursor.OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	schema := s.GetSchema()
	require.NotNil(t, schema)
	assert.Equal(t, cursor.CurrentSchemaVersion, schema.Version)
}

func TestReopenKeepsCursors(t *testing.T) {
	dir := t.TempDir()
	s, err := cursor.Open(dir)
	require.NoError(t, err)
	_, err = s.Advance(cursor.Entry{Volume: `C:\`, JournalID: 3, NextUSN: 42, Snapshot: "x.db"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = cursor.Open(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(`C:\`)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.NextUSN)
	assert.Equal(t, "x.db", got.Snapshot)
}
