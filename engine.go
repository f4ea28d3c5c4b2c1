package kanshi

import "github.com/carlvoller/kanshi/internal/broadcast"

// engine is the uniform contract every backend satisfies (spec.md §4.2).
// The facade (kanshi.go) dispatches every Kanshi method call to exactly
// one engine instance, chosen at New time.
type engine interface {
	// watch resolves dir to an absolute canonical path and begins
	// monitoring it. Legal in New/Watching always; legal in Running only
	// for backends that support adding roots after start (inotify,
	// fanotify — not FSEvents, see spec.md §3 "Engine lifecycle state").
	watch(dir string) error

	// start runs the engine's kernel pump until close is called or a
	// kernel-level failure occurs. It blocks the calling goroutine.
	start() error

	// subscribe returns a new independent subscriber cursor onto this
	// engine's broadcast sender.
	subscribe() *broadcast.Subscription[FileSystemEvent]

	// close cancels the engine's token, releases kernel resources, and
	// closes the broadcast sender. It is not idempotent itself: Kanshi.Close
	// calls it at most once.
	close() error
}
