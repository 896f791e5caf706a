package store

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

const (
	// SnapshotExt is the file extension of catalog snapshots.
	SnapshotExt = ".db"

	stagingPrefix    = ".staging-"
	dirLabelPrefix   = "Dir_"
	driveLabelPrefix = "Drive_"
)

// SnapshotName returns "{completed}_{label}.db" with the completion time
// formatted as 2006-01-02_15-04-05.
func SnapshotName(label string, completed time.Time) string {
	return completed.Format(types.SnapshotTimeFormat) + "_" + label + SnapshotExt
}

// ParseSnapshotName splits a snapshot file name into its completion time and
// label. It reports false for names that are not snapshots.
func ParseSnapshotName(name string) (time.Time, string, bool) {
	if !strings.HasSuffix(name, SnapshotExt) || strings.HasPrefix(name, ".") {
		return time.Time{}, "", false
	}
	n := len(types.SnapshotTimeFormat)
	if len(name) < n+2+len(SnapshotExt) || name[n] != '_' {
		return time.Time{}, "", false
	}
	completed, err := time.ParseInLocation(types.SnapshotTimeFormat, name[:n], time.Local)
	if err != nil {
		return time.Time{}, "", false
	}
	return completed, strings.TrimSuffix(name[n+1:], SnapshotExt), true
}

// Label returns the scan-type label for a request.
func Label(req types.ScanRequest) string {
	if req.Scope == types.ScopeDirectory && len(req.Targets) == 1 {
		return DirLabel(req.Targets[0])
	}
	return DriveLabel(req.Targets)
}

// DirLabel returns "Dir_<name>" for a single-directory scan.
func DirLabel(dir string) string {
	name := filepath.Base(filepath.Clean(dir))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = volumeName(dir)
	}
	return dirLabelPrefix + sanitize(name)
}

// DriveLabel returns "Drive_<A+B>" for a volume scan: drive letters joined
// by '+', in request order.
func DriveLabel(volumes []string) string {
	names := make([]string, 0, len(volumes))
	for _, v := range volumes {
		names = append(names, sanitize(volumeName(v)))
	}
	return driveLabelPrefix + strings.Join(names, "+")
}

// volumeName reduces a volume root to its letter ("C:\" -> "C"). Roots
// without a drive letter use their last path element, or "root" for "/".
func volumeName(v string) string {
	if len(v) >= 2 && v[1] == ':' {
		return strings.ToUpper(v[:1])
	}
	trimmed := strings.TrimRight(v, `/\`)
	if trimmed == "" {
		return "root"
	}
	return filepath.Base(trimmed)
}

// sanitize replaces characters that are not allowed in file names.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, s)
}

// IsStagingName reports whether name is an unpublished staging artifact.
func IsStagingName(name string) bool {
	return strings.HasPrefix(name, stagingPrefix)
}
