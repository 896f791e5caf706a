//go:build windows

package journal

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// volumeNameDOS is FILE_NAME_NORMALIZED|VOLUME_NAME_DOS for
// GetFinalPathNameByHandle; x/sys/windows does not export it.
const volumeNameDOS = 0x0

var (
	modkernel32      = windows.NewLazySystemDLL("kernel32.dll")
	procOpenFileByID = modkernel32.NewProc("OpenFileById")
)

// fileIDDescriptor mirrors FILE_ID_DESCRIPTOR with Type = FileIdType.
type fileIDDescriptor struct {
	size   uint32
	typ    uint32
	fileID uint64
	_      [8]byte
}

// winResolver looks directories up by file reference number on an open volume.
type winResolver struct {
	volume windows.Handle
}

func (r *winResolver) ResolveDir(frn uint64) (string, error) {
	desc := fileIDDescriptor{fileID: frn}
	desc.size = uint32(unsafe.Sizeof(desc))

	h, _, callErr := procOpenFileByID.Call(
		uintptr(r.volume),
		uintptr(unsafe.Pointer(&desc)),
		0,
		uintptr(windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE),
		0,
		uintptr(windows.FILE_FLAG_BACKUP_SEMANTICS),
	)
	handle := windows.Handle(h)
	if handle == windows.InvalidHandle {
		return "", fmt.Errorf("opening file id %#x: %w", frn, callErr)
	}
	defer windows.CloseHandle(handle)

	buf := make([]uint16, windows.MAX_LONG_PATH)
	n, err := windows.GetFinalPathNameByHandle(handle, &buf[0], uint32(len(buf)), volumeNameDOS)
	if err != nil {
		return "", fmt.Errorf("resolving file id %#x: %w", frn, err)
	}
	if int(n) > len(buf) {
		return "", fmt.Errorf("resolving file id %#x: path too long", frn)
	}

	path := windows.UTF16ToString(buf[:n])
	path = strings.TrimPrefix(path, `\\?\`)
	if len(path) == 2 && path[1] == ':' {
		path += `\`
	}
	return path, nil
}
