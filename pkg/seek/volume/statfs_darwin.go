//go:build darwin

package volume

import "golang.org/x/sys/unix"

func statfs(path string) (fsType string, total, free uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return "", 0, 0, err
	}
	bsize := uint64(st.Bsize)
	return unix.ByteSliceToString(st.Fstypename[:]), st.Blocks * bsize, st.Bavail * bsize, nil
}
