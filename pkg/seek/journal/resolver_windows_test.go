//go:build windows

package journal

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

// fileRef returns the file reference number of dir.
func fileRef(t *testing.T, dir string) uint64 {
	t.Helper()
	name, err := windows.UTF16PtrFromString(dir)
	require.NoError(t, err)
	h, err := windows.CreateFile(name, 0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil, windows.OPEN_EXISTING, windows.FILE_FLAG_BACKUP_SEMANTICS, 0)
	require.NoError(t, err)
	defer windows.CloseHandle(h)

	var info windows.ByHandleFileInformation
	require.NoError(t, windows.GetFileInformationByHandle(h, &info))
	return uint64(info.FileIndexHigh)<<32 | uint64(info.FileIndexLow)
}

func TestResolveDirReturnsDOSPath(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	volume := filepath.VolumeName(dir) + `\`

	_, resolver, err := Open(volume)
	if errors.Is(err, types.ErrVolumeAccess) {
		t.Skipf("volume %s needs elevated access: %v", volume, err)
	}
	require.NoError(t, err)
	defer windows.CloseHandle(resolver.(*winResolver).volume)

	got, err := resolver.ResolveDir(fileRef(t, dir))
	require.NoError(t, err)
	assert.True(t, strings.EqualFold(dir, got), "got %s, want %s", got, dir)
	assert.False(t, strings.HasPrefix(got, `\\?\`))
}
