//go:build unix || linux || darwin

// Non-blocking flock(2) for the single-instance guard on Unix.
package embedb

import "syscall"

func (l *fileLock) tryLock() error {
	return syscall.Flock(int(l.f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func (l *fileLock) unlock() error {
	return syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
}
