//go:build windows

package walker

import (
	"io/fs"
	"syscall"

	"golang.org/x/sys/windows"
)

const hiddenOrSystem = windows.FILE_ATTRIBUTE_HIDDEN | windows.FILE_ATTRIBUTE_SYSTEM

func isHidden(_ string, fi fs.FileInfo) bool {
	attrs, ok := fi.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return false
	}
	return attrs.FileAttributes&hiddenOrSystem != 0
}
