package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

func TestSnapshotName(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)
	assert.Equal(t, "2025-01-02_03-04-05_Dir_photos.db", SnapshotName("Dir_photos", at))
}

func TestDriveLabels(t *testing.T) {
	tests := []struct {
		name    string
		volumes []string
		want    string
	}{
		{"single drive", []string{`C:\`}, "Drive_C"},
		{"several drives keep order", []string{`D:\`, `c:\`}, "Drive_D+C"},
		{"unix root", []string{"/"}, "Drive_root"},
		{"mount point", []string{"/mnt/data/"}, "Drive_data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DriveLabel(tt.volumes))
		})
	}
}

func TestSequentialDriveScansDifferOnlyInLabel(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	c := SnapshotName(Label(types.ScanRequest{Targets: []string{`C:\`}}), at)
	d := SnapshotName(Label(types.ScanRequest{Targets: []string{`D:\`}}), at)

	assert.NotEqual(t, c, d)
	assert.Equal(t, "2025-06-01_12-00-00_Drive_C.db", c)
	assert.Equal(t, "2025-06-01_12-00-00_Drive_D.db", d)
}

func TestDirLabel(t *testing.T) {
	assert.Equal(t, "Dir_projects", DirLabel("/home/me/projects"))
	assert.Equal(t, "Dir_projects", DirLabel("/home/me/projects/"))
	assert.Equal(t, "Dir_root", DirLabel("/"))
	assert.Equal(t, "Dir_a_b", DirLabel("/x/a|b"))
	assert.Equal(t, "Dir_projects", Label(types.ScanRequest{Targets: []string{"/home/me/projects"}, Scope: types.ScopeDirectory}))
}

func TestParseSnapshotName(t *testing.T) {
	completed, label, ok := ParseSnapshotName("2025-01-02_03-04-05_Drive_C+D.db")
	require.True(t, ok)
	assert.Equal(t, "Drive_C+D", label)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local), completed)

	for _, name := range []string{
		"file_index.db",
		".staging-1234.db",
		"2025-01-02_03-04-05_.db",
		"2025-13-02_03-04-05_Dir_x.db",
		"2025-01-02_03-04-05_Dir_x.txt",
	} {
		_, _, ok := ParseSnapshotName(name)
		assert.False(t, ok, name)
	}
}

func TestListSnapshots(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"2024-01-01_00-00-00_Drive_C.db",
		"2024-03-01_00-00-00_Dir_docs.db",
		"2024-02-01_00-00-00_Drive_C.db",
		".staging-abc.db",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	snaps, err := ListSnapshots(dir)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "2024-03-01_00-00-00_Dir_docs.db", snaps[0].Name)
	assert.Equal(t, "2024-01-01_00-00-00_Drive_C.db", snaps[2].Name)

	latest, ok, err := LatestSnapshot(dir, "Drive_C")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-02-01_00-00-00_Drive_C.db", latest.Name)

	_, ok, err = LatestSnapshot(dir, "Drive_Z")
	require.NoError(t, err)
	assert.False(t, ok)

	missing, err := ListSnapshots(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestPreference(t *testing.T) {
	dir := t.TempDir()
	p := NewPreference(dir)

	got, err := p.Load()
	require.NoError(t, err)
	assert.Empty(t, got)

	inside := filepath.Join(dir, "2024-01-01_00-00-00_Dir_x.db")
	require.NoError(t, p.Save(inside))
	raw, err := os.ReadFile(filepath.Join(dir, preferenceFile))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01_00-00-00_Dir_x.db\n", string(raw))

	got, err = NewPreference(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, inside, got)

	outside := filepath.Join(t.TempDir(), "file_index.db")
	require.NoError(t, p.Save(outside))
	got, err = p.Load()
	require.NoError(t, err)
	assert.Equal(t, outside, got)

	require.NoError(t, p.Clear())
	got, err = p.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}
