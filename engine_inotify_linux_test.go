//go:build linux

package kanshi

import (
	"testing"
	"time"
	"unsafe"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sys/unix"

	"github.com/carlvoller/kanshi/internal/broadcast"
	"github.com/carlvoller/kanshi/internal/cancel"
)

// newTestInotifyEngine builds an inotifyEngine whose watch maps are
// pre-populated without touching the real inotify syscalls, so drain() can
// be exercised directly against synthetic kernel buffers.
func newTestInotifyEngine(t *testing.T, watches map[uint32]string) *inotifyEngine {
	t.Helper()
	e := &inotifyEngine{
		token:    cancel.New(),
		sender:   broadcast.New[FileSystemEvent](broadcast.DefaultCapacity),
		wdToPath: xsync.NewMapOf[uint32, string](),
		pathToWd: xsync.NewMapOf[string, uint32](),
		cookies:  xsync.NewMapOf[uint32, pendingCookie](),
	}
	for wd, path := range watches {
		e.wdToPath.Store(wd, path)
		e.pathToWd.Store(path, wd)
	}
	return e
}

// encodeInotifyEvent lays out one raw inotify_event record exactly as the
// kernel would, for feeding directly into inotifyEngine.drain.
func encodeInotifyEvent(wd int32, mask, cookie uint32, name string) []byte {
	var nameField []byte
	if name != "" {
		padded := len(name) + 1
		if rem := padded % 4; rem != 0 {
			padded += 4 - rem
		}
		nameField = make([]byte, padded)
		copy(nameField, name)
	}

	buf := make([]byte, unix.SizeofInotifyEvent+len(nameField))
	hdr := (*unix.InotifyEvent)(unsafe.Pointer(&buf[0]))
	hdr.Wd = wd
	hdr.Mask = mask
	hdr.Cookie = cookie
	hdr.Len = uint32(len(nameField))
	copy(buf[unix.SizeofInotifyEvent:], nameField)
	return buf
}

func recvWithTimeout(t *testing.T, sub *broadcast.Subscription[FileSystemEvent]) FileSystemEvent {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("expected an event, got none")
		return FileSystemEvent{}
	}
}

// TestInotifyCookiePairing covers P1: a MOVED_FROM/MOVED_TO pair sharing a
// cookie in one drain call produces exactly one MovedTo and one MovedFrom,
// each carrying the other endpoint.
func TestInotifyCookiePairing(t *testing.T) {
	e := newTestInotifyEngine(t, map[uint32]string{1: "/t"})
	sub := e.subscribe()

	buf := append(
		encodeInotifyEvent(1, unix.IN_MOVED_FROM, 42, "a"),
		encodeInotifyEvent(1, unix.IN_MOVED_TO|unix.IN_ISDIR, 42, "c")...,
	)
	e.drain(buf)

	first := recvWithTimeout(t, sub)
	second := recvWithTimeout(t, sub)

	if first.Type != MovedTo || first.Target.Path != "/t/c" || first.Target.NextPath != "/t/a" {
		t.Fatalf("first event = %+v", first)
	}
	if second.Type != MovedFrom || second.Target.Path != "/t/a" || second.Target.PreviousPath != "/t/c" {
		t.Fatalf("second event = %+v", second)
	}

	select {
	case extra := <-sub.Events():
		t.Fatalf("unexpected extra event: %+v", extra)
	default:
	}
}

// TestInotifyCookieDowngrade covers P2: a MOVED_FROM with no partner by the
// end of a poll cycle downgrades to a single-sided Move, exactly once.
func TestInotifyCookieDowngrade(t *testing.T) {
	e := newTestInotifyEngine(t, map[uint32]string{1: "/t"})
	sub := e.subscribe()

	e.drain(encodeInotifyEvent(1, unix.IN_MOVED_FROM, 7, "gone"))
	e.downgradeUnpairedCookies()

	ev := recvWithTimeout(t, sub)
	if ev.Type != Move || ev.Target.Path != "/t/gone" {
		t.Fatalf("event = %+v, want Move on /t/gone", ev)
	}

	select {
	case extra := <-sub.Events():
		t.Fatalf("unexpected extra event: %+v", extra)
	default:
	}
}

// TestInotifySubtreeRewrite covers P3: after pairing a directory rename,
// every watch-map entry under the old prefix is rewritten to the new one.
func TestInotifySubtreeRewrite(t *testing.T) {
	e := newTestInotifyEngine(t, map[uint32]string{
		1: "/t",
		2: "/t/a",
		3: "/t/a/sub",
	})

	e.pairRename("/t/a", "/t/c", Directory)

	rewritten, ok := e.wdToPath.Load(2)
	if !ok || rewritten != "/t/c" {
		t.Fatalf("wd 2 = %q, ok=%v; want /t/c", rewritten, ok)
	}
	subRewritten, ok := e.wdToPath.Load(3)
	if !ok || subRewritten != "/t/c/sub" {
		t.Fatalf("wd 3 = %q, ok=%v; want /t/c/sub", subRewritten, ok)
	}
}

// TestInotifyCreateEmitsKindFromMask covers P6 for the inotify engine:
// IN_ISDIR on the record, not a stat call, decides target.kind.
func TestInotifyCreateEmitsKindFromMask(t *testing.T) {
	e := newTestInotifyEngine(t, map[uint32]string{1: "/t"})
	sub := e.subscribe()

	// A plain file create: no recursive walk should be attempted since
	// IN_ISDIR is unset.
	e.drain(encodeInotifyEvent(1, unix.IN_CREATE, 0, "b.txt"))

	ev := recvWithTimeout(t, sub)
	if ev.Type != Create || ev.Target.Kind != File || ev.Target.Path != "/t/b.txt" {
		t.Fatalf("event = %+v", ev)
	}
}
