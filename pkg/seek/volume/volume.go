// Package volume enumerates the volumes that can be indexed and reports
// whether each supports the change journal strategy.
package volume

import (
	"fmt"
	"strings"
)

// JournalFS is the only filesystem with a change journal.
const JournalFS = "NTFS"

// Support is the result of validating a volume for journal scans.
type Support struct {
	Supported bool   `json:"supported" yaml:"supported"`
	FSType    string `json:"fs_type" yaml:"fs_type"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Info describes a volume for display.
type Info struct {
	Root    string  `json:"root" yaml:"root"`
	Label   string  `json:"label,omitempty" yaml:"label,omitempty"`
	Kind    string  `json:"kind" yaml:"kind"`
	Total   uint64  `json:"total" yaml:"total"`
	Free    uint64  `json:"free" yaml:"free"`
	Journal Support `json:"journal" yaml:"journal"`
}

// Describe returns display information for each listed volume. Volumes that
// cannot be queried are still returned with what is known.
func Describe() ([]Info, error) {
	roots, err := List()
	if err != nil {
		return nil, err
	}
	infos := make([]Info, 0, len(roots))
	for _, r := range roots {
		info := describe(r)
		info.Journal = Validate(r)
		infos = append(infos, info)
	}
	return infos, nil
}

// IsDriveRoot reports whether v looks like a drive root such as `C:\`.
func IsDriveRoot(v string) bool {
	return len(v) == 3 && v[1] == ':' && (v[2] == '\\' || v[2] == '/') && isLetter(v[0])
}

// Normalize turns "c", "c:" or `c:\` into `C:\`. Other values are returned as given.
func Normalize(v string) string {
	s := strings.TrimRight(strings.TrimSpace(v), `\/`)
	switch {
	case len(s) == 1 && isLetter(s[0]):
		return strings.ToUpper(s) + `:\`
	case len(s) == 2 && s[1] == ':' && isLetter(s[0]):
		return strings.ToUpper(s) + `\`
	case s == "" && strings.HasPrefix(strings.TrimSpace(v), "/"):
		return "/"
	}
	return v
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func unsupported(fsType, format string, args ...any) Support {
	return Support{Supported: false, FSType: fsType, Reason: fmt.Sprintf(format, args...)}
}
