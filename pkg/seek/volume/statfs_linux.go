//go:build linux

package volume

import "golang.org/x/sys/unix"

var linuxFSTypes = map[int64]string{
	0xEF53:     "ext4",
	0x58465342: "xfs",
	0x9123683E: "btrfs",
	0x01021994: "tmpfs",
	0x794C7630: "overlay",
	0x5346544E: "ntfs",
	0x7366746E: "ntfs3",
	0x4D44:     "vfat",
	0x6969:     "nfs",
	0xFF534D42: "cifs",
	0x2FC12FC1: "zfs",
	0x65735546: "fuse",
}

func statfs(path string) (fsType string, total, free uint64, err error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return "", 0, 0, err
	}
	fsType = linuxFSTypes[int64(st.Type)]
	if fsType == "" {
		fsType = "unknown"
	}
	bsize := uint64(st.Bsize)
	return fsType, st.Blocks * bsize, st.Bavail * bsize, nil
}
