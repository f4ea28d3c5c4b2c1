// Package ioretry retries a syscall wrapper across EINTR, the way every
// blocking call in the kernel pumps must (epoll_wait, read on an inotify
// or fanotify fd).
//
// Adapted from the teacher's internal/unix2.go IgnoringEINTR, which
// existed to retry os-package filesystem calls. Kanshi's engines drive
// golang.org/x/sys/unix directly instead, so the generic retry loop is
// kept but its one caller (a symlink-privilege check for Windows) is not —
// see DESIGN.md for why that caller was dropped.
package ioretry

import "golang.org/x/sys/unix"

// Do calls fn, retrying for as long as it reports EINTR.
func Do[T any](fn func() (T, error)) (T, error) {
	for {
		v, err := fn()
		if err != unix.EINTR {
			return v, err
		}
	}
}
