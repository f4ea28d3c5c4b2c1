package kanshi

import "sync"

// lifecycleState is the engine-agnostic state machine every Kanshi
// instance enforces on top of its chosen engine (spec.md §3 "Engine
// lifecycle state", §9).
type lifecycleState int

const (
	stateNew lifecycleState = iota
	stateWatching
	stateRunning
	stateClosed
)

// lifecycle guards the New → Watching → Running → Closed transitions.
// watch is legal in New or Watching always, and in Running too for
// backends that allow adding roots after start (inotify, fanotify); start
// is legal exactly once; close is legal from any state and idempotent.
type lifecycle struct {
	mu                   sync.Mutex
	state                lifecycleState
	allowWatchWhileRunning bool
}

func newLifecycle(allowWatchWhileRunning bool) *lifecycle {
	return &lifecycle{state: stateNew, allowWatchWhileRunning: allowWatchWhileRunning}
}

// beginWatch validates and, on success, advances New → Watching.
func (l *lifecycle) beginWatch() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case stateNew:
		l.state = stateWatching
		return nil
	case stateWatching:
		return nil
	case stateRunning:
		if l.allowWatchWhileRunning {
			return nil
		}
		return ErrListenerStarted
	case stateClosed:
		return ErrStreamClosed
	default:
		return ErrStreamClosed
	}
}

// beginStart validates and, on success, advances to Running. A second call
// while Running is a concurrent-start error (ErrListenerStarted); any call
// after Close returns ErrStreamClosed.
func (l *lifecycle) beginStart() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case stateNew, stateWatching:
		l.state = stateRunning
		return nil
	case stateRunning:
		return ErrListenerStarted
	case stateClosed:
		return ErrStreamClosed
	default:
		return ErrStreamClosed
	}
}

// markClosed transitions to Closed and reports whether this call was the
// one that performed the transition (false if already closed).
func (l *lifecycle) markClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateClosed {
		return false
	}
	l.state = stateClosed
	return true
}
