//go:build unix

package shortcut

import (
	"golang.org/x/sys/unix"
)

// identityOf returns the device and inode of path without following a
// final symlink.
func identityOf(path string) (Identity, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return Identity{}, err
	}

	return Identity{
		Device: uint64(st.Dev), //nolint:unconvert // int32 on darwin
		Inode:  uint64(st.Ino), //nolint:unconvert
	}, nil
}
