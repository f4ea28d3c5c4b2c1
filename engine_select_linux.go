//go:build linux

package kanshi

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/carlvoller/kanshi/internal/capabilities"
)

// selectLinuxEngine implements the Linux half of spec.md §4.1's engine
// selection: an explicit "fanotify"/"inotify" choice, or — absent one —
// fanotify iff the effective UID is 0, else inotify.
func selectLinuxEngine(forced string, filesystemWide bool) (engine, bool, error) {
	switch forced {
	case "fanotify":
		return newFanotifyEngineChecked(filesystemWide)
	case "inotify":
		eng, err := newInotifyEngine()
		return eng, true, err
	case "":
		if unix.Geteuid() == 0 {
			return newFanotifyEngineChecked(filesystemWide)
		}
		eng, err := newInotifyEngine()
		return eng, true, err
	default:
		return nil, false, fmt.Errorf("%w: %q is not a valid engine on linux", ErrInvalidParameter, forced)
	}
}

// newFanotifyEngineChecked gives a caller who force-selects fanotify
// without privilege an actionable error instead of letting fanotify_init
// fail with a bare EPERM.
func newFanotifyEngineChecked(filesystemWide bool) (engine, bool, error) {
	if ok, err := capabilities.HasSysAdmin(); err == nil && !ok {
		return nil, true, fmt.Errorf("%w: fanotify requires CAP_SYS_ADMIN", ErrInvalidParameter)
	}
	eng, err := newFanotifyEngine(filesystemWide)
	return eng, true, err
}
