//go:build !windows

package volume

import (
	"github.com/jamesainslie/seek/pkg/seek/logging"
)

// List returns the filesystem root. Only Windows enumerates drive letters.
func List() ([]string, error) {
	return []string{"/"}, nil
}

// Validate always reports Unsupported: the change journal exists only on
// Windows. FSType is filled in when the platform can report it.
func Validate(volume string) Support {
	fsType, _, _, err := statfs(volume)
	if err != nil {
		logging.Get("volume").Debug("statfs failed", "volume", volume, "error", err)
		return unsupported("", "cannot query %s: %v", volume, err)
	}
	return unsupported(fsType, "change journal requires %s on Windows", JournalFS)
}

func describe(root string) Info {
	info := Info{Root: root, Kind: "fixed"}
	if _, total, free, err := statfs(root); err == nil {
		info.Total, info.Free = total, free
	}
	return info
}
