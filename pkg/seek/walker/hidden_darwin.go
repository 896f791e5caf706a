//go:build darwin

package walker

import (
	"io/fs"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// isHidden honours both the dot convention and the Finder hidden flag.
func isHidden(_ string, fi fs.FileInfo) bool {
	if strings.HasPrefix(fi.Name(), ".") {
		return true
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	return ok && st.Flags&unix.UF_HIDDEN != 0
}
