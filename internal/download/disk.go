// Package download provides the default disk space probe.
package download

import "syscall"

// StatfsDisk reports free space via statfs.
type StatfsDisk struct{}

// FreeBytes returns the free bytes available to the process on the
// filesystem holding dir.
func (StatfsDisk) FreeBytes(dir string) (int64, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(dir, &st); err != nil {
		return 0, err
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
