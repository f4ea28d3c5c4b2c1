package kanshi

import (
	"errors"
	"fmt"
)

// Error taxonomy (spec.md §7). Every engine and the facade return one of
// these (or a FileSystemError wrapping a syscall/IO failure) rather than an
// ad-hoc error string, so hosts can branch with errors.Is/errors.As.
var (
	// ErrInvalidParameter is returned when an option value is not one this
	// platform recognizes (spec.md §4.1, §6).
	ErrInvalidParameter = errors.New("kanshi: invalid parameter")

	// ErrInvalidCommand is reserved for downstream tooling; the core never
	// returns it itself.
	ErrInvalidCommand = errors.New("kanshi: invalid command")

	// ErrStreamClosed is returned by Watch and Start when called after
	// Close. Start does not return it for a closed broadcast channel:
	// publishing to a closed channel is a silent no-op.
	ErrStreamClosed = errors.New("kanshi: stream closed")

	// ErrListenerStarted is returned by Watch when called after Start on a
	// backend that forbids adding roots once running (FSEvents).
	ErrListenerStarted = errors.New("kanshi: listener already started")

	// ErrPTrace is reserved, unused by the core.
	ErrPTrace = errors.New("kanshi: ptrace error")
)

// FileSystemError wraps a kernel syscall failure or path-resolution
// failure, per spec.md §7. Op names the operation that failed (e.g.
// "inotify_add_watch", "fanotify_mark", "lstat") and Path is the
// filesystem path involved, when known.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("kanshi: %s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("kanshi: %s %q: %s", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error { return e.Err }

func newFileSystemError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &FileSystemError{Op: op, Path: path, Err: err}
}
