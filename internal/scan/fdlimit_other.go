//go:build !linux

package scan

// openFileLimit is only implemented on Linux.
func openFileLimit() (uint64, bool) {
	return 0, false
}
