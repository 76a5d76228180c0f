//go:build !linux

package memstat

import "runtime"

// Without procfs the Go runtime's view of memory obtained from the OS is the
// closest portable stand-in for RSS.
func residentBytes() (uint64, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Sys, nil
}
