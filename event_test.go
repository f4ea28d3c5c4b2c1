package kanshi

import (
	"fmt"
	"testing"

	"github.com/carlvoller/kanshi/internal/ztest"
)

func TestEventTypeString(t *testing.T) {
	cases := map[EventType]string{
		Create:    "create",
		Delete:    "delete",
		Modify:    "modify",
		Move:      "move",
		MovedTo:   "moved_to",
		MovedFrom: "moved_from",
		Unknown:   "unknown",
	}
	for in, want := range cases {
		if got := in.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", in, got, want)
		}
	}
}

func TestTargetKindString(t *testing.T) {
	if File.String() != "file" {
		t.Errorf("File.String() = %q, want file", File.String())
	}
	if Directory.String() != "directory" {
		t.Errorf("Directory.String() = %q, want directory", Directory.String())
	}
}

func TestNewMovedToCarriesSourceAsNextPath(t *testing.T) {
	ev := newMovedTo("/t/c", "/t/a", Directory)
	if ev.Type != MovedTo {
		t.Fatalf("Type = %v, want MovedTo", ev.Type)
	}
	if ev.Target.Path != "/t/c" || ev.Target.NextPath != "/t/a" {
		t.Fatalf("Target = %+v, want Path=/t/c NextPath=/t/a", ev.Target)
	}
	if ev.Target.PreviousPath != "" {
		t.Fatalf("PreviousPath = %q, want empty", ev.Target.PreviousPath)
	}
}

func TestNewMovedFromCarriesDestAsPreviousPath(t *testing.T) {
	ev := newMovedFrom("/t/a", "/t/c", Directory)
	if ev.Type != MovedFrom {
		t.Fatalf("Type = %v, want MovedFrom", ev.Type)
	}
	if ev.Target.Path != "/t/a" || ev.Target.PreviousPath != "/t/c" {
		t.Fatalf("Target = %+v, want Path=/t/a PreviousPath=/t/c", ev.Target)
	}
	if ev.Target.NextPath != "" {
		t.Fatalf("NextPath = %q, want empty", ev.Target.NextPath)
	}
}

func TestNewUnresolvedEventHasNilTarget(t *testing.T) {
	ev := newUnresolvedEvent(Unknown)
	if ev.Target != nil {
		t.Fatalf("Target = %+v, want nil", ev.Target)
	}
}

// TestNewEventMatchesLiteral diffs the %+v rendering of a constructed event
// against the rendering of the equivalent struct literal, so a mismatch
// prints a unified diff instead of two single-line dumps.
func TestNewEventMatchesLiteral(t *testing.T) {
	got := fmt.Sprintf("%+v", newEvent(Create, "/t/a", File))
	want := fmt.Sprintf("%+v", FileSystemEvent{
		Type:   Create,
		Target: &Target{Path: "/t/a", Kind: File},
	})
	if d := ztest.Diff(got, want); d != "" {
		t.Error(d)
	}
}

func TestFileSystemErrorUnwrap(t *testing.T) {
	inner := &FileSystemError{Op: "lstat", Path: "/t/a", Err: ErrInvalidParameter}
	if inner.Unwrap() != ErrInvalidParameter {
		t.Fatalf("Unwrap() = %v, want ErrInvalidParameter", inner.Unwrap())
	}
}
