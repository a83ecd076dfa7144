//go:build linux

package scan

import (
	"math"

	"golang.org/x/sys/unix"
)

// openFileLimit returns the soft RLIMIT_NOFILE of the process.
func openFileLimit() (uint64, bool) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, false
	}
	if rl.Cur == math.MaxUint64 {
		return 0, false
	}
	return rl.Cur, true
}
