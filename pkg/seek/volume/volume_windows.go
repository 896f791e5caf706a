//go:build windows

package volume

import (
	"fmt"
	"strings"

	"golang.org/x/sys/windows"

	"github.com/jamesainslie/seek/pkg/seek/logging"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

// List returns the logical drive roots, e.g. `C:\`, `D:\`.
func List() ([]string, error) {
	buf := make([]uint16, 256)
	n, err := windows.GetLogicalDriveStrings(uint32(len(buf)), &buf[0])
	if err != nil {
		return nil, fmt.Errorf("%w: listing drives: %w", types.ErrVolumeAccess, err)
	}
	if int(n) > len(buf) {
		buf = make([]uint16, n)
		if n, err = windows.GetLogicalDriveStrings(uint32(len(buf)), &buf[0]); err != nil {
			return nil, fmt.Errorf("%w: listing drives: %w", types.ErrVolumeAccess, err)
		}
	}

	// The buffer holds NUL-separated roots.
	var roots []string
	start := 0
	for i := 0; i < int(n); i++ {
		if buf[i] == 0 {
			if i > start {
				roots = append(roots, windows.UTF16ToString(buf[start:i]))
			}
			start = i + 1
		}
	}

	logging.Get("volume").Debug("drives listed", "drives", roots)
	return roots, nil
}

// Validate reports whether volume is an NTFS drive root.
func Validate(volume string) Support {
	if !IsDriveRoot(volume) {
		return unsupported("", "%s is not a drive root", volume)
	}
	fsType, _, err := volumeInformation(volume)
	if err != nil {
		return unsupported("", "cannot query %s: %v", volume, err)
	}
	if !strings.EqualFold(fsType, JournalFS) {
		return unsupported(fsType, "%s is %s, change journal requires %s", volume, fsType, JournalFS)
	}
	return Support{Supported: true, FSType: fsType}
}

func volumeInformation(root string) (fsType, label string, err error) {
	rootPtr, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return "", "", err
	}
	var (
		labelBuf = make([]uint16, windows.MAX_PATH+1)
		fsBuf    = make([]uint16, windows.MAX_PATH+1)
		serial   uint32
		maxComp  uint32
		flags    uint32
	)
	err = windows.GetVolumeInformation(rootPtr, &labelBuf[0], uint32(len(labelBuf)),
		&serial, &maxComp, &flags, &fsBuf[0], uint32(len(fsBuf)))
	if err != nil {
		return "", "", err
	}
	return windows.UTF16ToString(fsBuf), windows.UTF16ToString(labelBuf), nil
}

func describe(root string) Info {
	info := Info{Root: root, Kind: "unknown"}
	rootPtr, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return info
	}

	switch windows.GetDriveType(rootPtr) {
	case windows.DRIVE_FIXED:
		info.Kind = "fixed"
	case windows.DRIVE_REMOVABLE:
		info.Kind = "removable"
	case windows.DRIVE_REMOTE:
		info.Kind = "network"
	case windows.DRIVE_CDROM:
		info.Kind = "cdrom"
	case windows.DRIVE_RAMDISK:
		info.Kind = "ramdisk"
	}

	if _, label, err := volumeInformation(root); err == nil {
		info.Label = label
	}

	var free, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(rootPtr, &free, &total, &totalFree); err == nil {
		info.Total, info.Free = total, free
	}
	return info
}
