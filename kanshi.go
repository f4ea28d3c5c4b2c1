// Package kanshi watches filesystem trees and delivers a unified stream
// of change events, abstracting over Linux fanotify, Linux inotify, and
// macOS FSEvents behind one lifecycle and event model.
package kanshi

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/carlvoller/kanshi/internal/broadcast"
)

// debug mirrors the teacher's FSNOTIFY_DEBUG trace switch, gated on an
// environment variable so it costs nothing when unset.
var debug = os.Getenv("KANSHI_DEBUG") != ""

func debugf(format string, args ...any) {
	if !debug {
		return
	}
	fmt.Fprintf(os.Stderr, "KANSHI_DEBUG: %s  "+format+"\n",
		append([]any{time.Now().Format("15:04:05.000000000")}, args...)...)
}

// Options configures New. The zero value selects the platform default
// engine.
type Options struct {
	// ForceEngine overrides engine selection. Accepted values are
	// platform-specific: "fanotify" or "inotify" on Linux, "fsevents" on
	// macOS. Any other value, or a value naming an engine unavailable on
	// the current platform, fails with ErrInvalidParameter (spec.md §4.1,
	// §6).
	ForceEngine string

	// FilesystemWide requests FAN_MARK_FILESYSTEM instead of per-directory
	// marks when the fanotify engine is in use. Ignored otherwise.
	// Requires CAP_SYS_ADMIN; see spec.md §4.4.
	FilesystemWide bool
}

// Kanshi is a single watcher instance, bound to exactly one engine chosen
// at construction (spec.md §4.2).
type Kanshi struct {
	eng engine
	lc  *lifecycle
}

// New selects and constructs the engine named by opts, or the platform
// default when opts.ForceEngine is empty: on Linux, fanotify if the
// effective UID is 0, else inotify; on macOS, FSEvents; elsewhere, New
// fails with ErrInvalidParameter (spec.md §4.1).
func New(opts Options) (*Kanshi, error) {
	eng, allowWatchWhileRunning, err := selectEngine(opts)
	if err != nil {
		return nil, err
	}
	debugf("New(%+v) -> engine selected", opts)
	return &Kanshi{eng: eng, lc: newLifecycle(allowWatchWhileRunning)}, nil
}

// Watch resolves dir to an absolute canonical path and begins monitoring
// it. See spec.md §4.1 for the lifecycle rules governing when this is
// legal.
func (k *Kanshi) Watch(dir string) error {
	if err := k.lc.beginWatch(); err != nil {
		return err
	}
	debugf("Watch(%q)", dir)
	return k.eng.watch(dir)
}

// Start runs the engine's kernel pump until Close is called. It blocks the
// calling goroutine and returns nil on a clean shutdown, or a
// *FileSystemError on a kernel-level failure (spec.md §4.1, §7).
func (k *Kanshi) Start() error {
	if err := k.lc.beginStart(); err != nil {
		return err
	}
	debugf("Start()")
	return k.eng.start()
}

// Subscribe returns a new independent subscriber cursor onto this
// instance's event stream. Events published before Subscribe is called
// are never delivered to it.
func (k *Kanshi) Subscribe() *broadcast.Subscription[FileSystemEvent] {
	return k.eng.subscribe()
}

// Close cancels the cancellation token, releases kernel resources, and
// closes every subscriber. Idempotent: every call after the first returns
// (true, nil) (spec.md §4.1, §8 P4).
func (k *Kanshi) Close() (bool, error) {
	if !k.lc.markClosed() {
		return true, nil
	}
	debugf("Close()")
	if err := k.eng.close(); err != nil {
		return true, err
	}
	return true, nil
}

func selectEngine(opts Options) (engine, bool, error) {
	forced := opts.ForceEngine
	switch runtime.GOOS {
	case "linux":
		return selectLinuxEngine(forced, opts.FilesystemWide)
	case "darwin":
		if forced != "" && forced != "fsevents" {
			return nil, false, fmt.Errorf("%w: %q is not a valid engine on darwin", ErrInvalidParameter, forced)
		}
		return newFSEventsEngine(), false, nil
	default:
		if forced != "" {
			return nil, false, fmt.Errorf("%w: %q is not a valid engine on %s", ErrInvalidParameter, forced, runtime.GOOS)
		}
		eng, err := newUnsupportedEngine()
		return eng, false, err
	}
}
