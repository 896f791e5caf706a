//go:build !windows && !darwin

package walker

import (
	"io/fs"
	"strings"
)

func isHidden(_ string, fi fs.FileInfo) bool {
	return strings.HasPrefix(fi.Name(), ".")
}
