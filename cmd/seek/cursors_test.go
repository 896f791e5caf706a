package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/seek/pkg/seek/cursor"
)

func seedCursors(t *testing.T, volumes ...string) *cursor.Store {
	t.Helper()
	cs, err := cursor.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	for i, v := range volumes {
		_, err := cs.Advance(cursor.Entry{Volume: v, JournalID: 0xabc, NextUSN: int64(100 * (i + 1)),
			Snapshot: "2025-01-02_03-04-05_Drive_C+D.db", UpdatedAt: time.Now()})
		require.NoError(t, err)
	}
	return cs
}

func TestPrintCursors(t *testing.T) {
	cs := seedCursors(t, `C:\`, `D:\`)
	entries, err := cs.List()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printCursors(&buf, entries))
	out := buf.String()
	assert.Contains(t, out, "NEXT USN")
	assert.Contains(t, out, `C:\`)
	assert.Contains(t, out, "0xabc")
	assert.Contains(t, out, "200")
	assert.Contains(t, out, "_Drive_C+D.db")
}

func TestResetCursors(t *testing.T) {
	t.Run("named volumes", func(t *testing.T) {
		cs := seedCursors(t, `C:\`, `D:\`)

		n, err := resetCursors(cs, []string{`c:\`, `Z:\`})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = cs.Get(`C:\`)
		assert.ErrorIs(t, err, cursor.ErrNotFound)
		_, err = cs.Get(`D:\`)
		assert.NoError(t, err)
	})

	t.Run("every volume", func(t *testing.T) {
		cs := seedCursors(t, `C:\`, `D:\`, `E:\`)

		n, err := resetCursors(cs, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		entries, err := cs.List()
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
