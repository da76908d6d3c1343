//go:build !linux && !windows

package osthread

import "runtime"

// ID returns the goroutine id of the caller. Without a portable thread id
// syscall this is used as a proxy: a goroutine locked to its OS thread is the
// only goroutine that thread ever runs.
func ID() int64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	// Parse "goroutine 123 [running]:"
	var id int64
	for i := len("goroutine "); i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			break
		}
		id = id*10 + int64(b[i]-'0')
	}
	return id
}
