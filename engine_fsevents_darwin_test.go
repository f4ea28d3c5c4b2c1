//go:build darwin

package kanshi

import (
	"testing"

	"github.com/fsnotify/fsevents"
)

// TestTranslateFSEventPriority covers the first-match priority rule of
// spec.md §4.6: ItemCreated&ItemRemoved coalesces to Delete even though
// both creation and removal flags are set.
func TestTranslateFSEventPriority(t *testing.T) {
	cases := []struct {
		name  string
		flags fsevents.EventFlags
		want  EventType
	}{
		{"create+remove coalesces to delete", fsevents.ItemCreated | fsevents.ItemRemoved, Delete},
		{"create+rename coalesces to move", fsevents.ItemCreated | fsevents.ItemRenamed, Move},
		{"create alone", fsevents.ItemCreated, Create},
		{"remove alone", fsevents.ItemRemoved, Delete},
		{"modify alone", fsevents.ItemModified, Modify},
		{"rename alone", fsevents.ItemRenamed, Move},
		{"no recognised flag", 0, Unknown},
	}
	for _, c := range cases {
		ev := translateFSEvent(fsevents.Event{Path: "/t/a", Flags: c.flags})
		if ev.Type != c.want {
			t.Errorf("%s: Type = %v, want %v", c.name, ev.Type, c.want)
		}
	}
}

func TestTranslateFSEventKind(t *testing.T) {
	dir := translateFSEvent(fsevents.Event{Path: "/t/a", Flags: fsevents.ItemCreated | fsevents.ItemIsDir})
	if dir.Target.Kind != Directory {
		t.Fatalf("Kind = %v, want Directory", dir.Target.Kind)
	}

	file := translateFSEvent(fsevents.Event{Path: "/t/a", Flags: fsevents.ItemCreated})
	if file.Target.Kind != File {
		t.Fatalf("Kind = %v, want File", file.Target.Kind)
	}
}

func TestWatchRejectedAfterStart(t *testing.T) {
	e := newFSEventsEngine()
	e.started = true

	if err := e.watch("/tmp"); err != ErrListenerStarted {
		t.Fatalf("watch() error = %v, want ErrListenerStarted", err)
	}
}
