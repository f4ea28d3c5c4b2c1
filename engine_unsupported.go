//go:build !linux && !darwin

package kanshi

import (
	"fmt"
	"runtime"

	"github.com/carlvoller/kanshi/internal/broadcast"
)

// unsupportedEngine stands in for the reserved Windows backend
// (ReadDirectoryChangesW, spec.md §1) and any other GOOS this module does
// not implement. Like the teacher's backend_other.go, whose constructor
// returns an error, kanshi fails loudly: a caller that selects this
// engine (explicitly or by running on an unsupported GOOS) must be told,
// not led to believe it is watching anything.
type unsupportedEngine struct {
	sender *broadcast.Sender[FileSystemEvent]
}

func newUnsupportedEngine() (*unsupportedEngine, error) {
	return nil, fmt.Errorf("%w: kanshi is not implemented on %s", ErrInvalidParameter, runtime.GOOS)
}

func (e *unsupportedEngine) watch(dir string) error { return errUnsupportedPlatform() }
func (e *unsupportedEngine) start() error           { return errUnsupportedPlatform() }

func (e *unsupportedEngine) subscribe() *broadcast.Subscription[FileSystemEvent] {
	return e.sender.Subscribe()
}

func (e *unsupportedEngine) close() error { return nil }

func errUnsupportedPlatform() error {
	return fmt.Errorf("%w: kanshi is not implemented on %s", ErrInvalidParameter, runtime.GOOS)
}
