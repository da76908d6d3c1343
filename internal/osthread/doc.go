// Package osthread reports the identity of the OS thread running the caller.
//
// On Linux this is the kernel thread id (gettid) and on Windows the Win32
// thread id. Other platforms have no thread id call in x/sys, so ID returns
// the caller's goroutine id instead. Thread ids reported in scheduler stats
// and execution history are then goroutine ids; for a goroutine locked to its
// thread the two identify the same worker.
//
// The value is only stable while the calling goroutine is locked to its
// thread with runtime.LockOSThread, which is how context workers use it.
package osthread
