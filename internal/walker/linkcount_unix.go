//go:build unix

package walker

import "golang.org/x/sys/unix"

// linkCount returns the hard link count for path. Best-effort: a stat
// failure here reports a count of one rather than surfacing an error,
// since the flag is advisory and the file is hashed either way.
func linkCount(path string) uint64 {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 1
	}
	return uint64(st.Nlink)
}
