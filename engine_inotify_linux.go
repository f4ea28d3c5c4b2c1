//go:build linux

package kanshi

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sys/unix"

	"github.com/carlvoller/kanshi/internal/broadcast"
	"github.com/carlvoller/kanshi/internal/cancel"
	"github.com/carlvoller/kanshi/internal/maskdebug"
	"github.com/carlvoller/kanshi/internal/poller"
	"github.com/carlvoller/kanshi/internal/walk"
)

// inotifyMask is the fixed set of events kanshi marks every directory with
// (spec.md §4.5).
const inotifyMask = unix.IN_CREATE | unix.IN_MODIFY | unix.IN_MOVE | unix.IN_DELETE | unix.IN_DELETE_SELF

// pendingCookie is one half of an in-flight rename, recorded in cookieMap
// until its partner arrives or the poll cycle ends without one.
type pendingCookie struct {
	path  string
	isDir bool
}

// inotifyEngine is the Linux default backend for unprivileged callers
// (spec.md §4.5). It recursively marks every directory under each watched
// root, pairs MOVED_FROM/MOVED_TO records by cookie into rename events, and
// rewrites its watch-descriptor map when a directory is renamed in place.
type inotifyEngine struct {
	fd      int
	poller  *poller.Poller
	token   *cancel.Token
	sender  *broadcast.Sender[FileSystemEvent]

	wdToPath *xsync.MapOf[uint32, string]
	pathToWd *xsync.MapOf[string, uint32]
	cookies  *xsync.MapOf[uint32, pendingCookie]

	mu      sync.Mutex
	started bool
}

func newInotifyEngine() (*inotifyEngine, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, newFileSystemError("inotify_init1", "", err)
	}

	p, err := poller.New(fd)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &inotifyEngine{
		fd:       fd,
		poller:   p,
		token:    cancel.New(),
		sender:   broadcast.New[FileSystemEvent](broadcast.DefaultCapacity),
		wdToPath: xsync.NewMapOf[uint32, string](),
		pathToWd: xsync.NewMapOf[string, uint32](),
		cookies:  xsync.NewMapOf[uint32, pendingCookie](),
	}, nil
}

func (e *inotifyEngine) watch(dir string) error {
	abs, err := canonicalize(dir)
	if err != nil {
		return newFileSystemError("lstat", dir, err)
	}

	return walk.Dirs(abs, func(path string) error {
		return e.markDir(path)
	})
}

func (e *inotifyEngine) markDir(path string) error {
	wd, err := unix.InotifyAddWatch(e.fd, path, inotifyMask)
	if err != nil {
		return newFileSystemError("inotify_add_watch", path, err)
	}
	e.wdToPath.Store(uint32(wd), path)
	e.pathToWd.Store(path, uint32(wd))
	return nil
}

func (e *inotifyEngine) unmarkSubtree(root string) {
	e.pathToWd.Range(func(path string, wd uint32) bool {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			unix.InotifyRmWatch(e.fd, wd)
			e.pathToWd.Delete(path)
			e.wdToPath.Delete(wd)
		}
		return true
	})
}

func (e *inotifyEngine) start() error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrListenerStarted
	}
	e.started = true
	e.mu.Unlock()

	buf := make([]byte, unix.SizeofInotifyEvent*4096)
	for {
		if e.token.Cancelled() {
			return nil
		}

		ready, err := e.poller.Wait()
		if err != nil {
			return newFileSystemError("epoll_wait", "", err)
		}
		if !ready {
			e.downgradeUnpairedCookies()
			continue
		}

		n, err := unix.Read(e.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			if e.token.Cancelled() {
				return nil
			}
			return newFileSystemError("read", "", err)
		}
		if n == 0 {
			return newFileSystemError("read", "", io.EOF)
		}

		e.drain(buf[:n])
	}
}

func (e *inotifyEngine) drain(buf []byte) {
	var offset uint32
	n := uint32(len(buf))
	for offset <= n-unix.SizeofInotifyEvent {
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		mask := uint32(raw.Mask)
		nameLen := uint32(raw.Len)
		advance := func() { offset += unix.SizeofInotifyEvent + nameLen }

		if mask&unix.IN_Q_OVERFLOW != 0 {
			e.sender.Publish(newUnresolvedEvent(Unknown))
		}
		if mask&unix.IN_IGNORED != 0 {
			advance()
			continue
		}

		parent, _ := e.wdToPath.Load(uint32(raw.Wd))
		if debug {
			debugf("inotify wd=%d mask=%s cookie=%d", raw.Wd, maskdebug.Inotify(mask), raw.Cookie)
		}
		var name string
		if nameLen > 0 {
			raw := (*[unix.PathMax]byte)(unsafe.Pointer(&buf[offset+unix.SizeofInotifyEvent]))[:nameLen:nameLen]
			name = strings.TrimRight(string(raw), "\x00")
		}
		full := parent
		if name != "" {
			full = filepath.Join(parent, name)
		}
		isDir := mask&unix.IN_ISDIR != 0
		kind := File
		if isDir {
			kind = Directory
		}

		if mask&unix.IN_DELETE_SELF != 0 {
			if wd, ok := e.pathToWd.Load(full); ok {
				e.pathToWd.Delete(full)
				e.wdToPath.Delete(wd)
			}
		}

		if raw.Cookie != 0 {
			e.handleCookie(raw.Cookie, mask, full, kind)
			advance()
			continue
		}

		switch {
		case mask&unix.IN_CREATE != 0:
			e.sender.Publish(newEvent(Create, full, kind))
			if isDir {
				if err := walk.Dirs(full, e.markDir); err != nil {
					e.sender.Publish(newUnresolvedEvent(Unknown))
				}
			}
		case mask&unix.IN_DELETE != 0 || mask&unix.IN_DELETE_SELF != 0:
			e.sender.Publish(newEvent(Delete, full, kind))
		case mask&unix.IN_MODIFY != 0:
			e.sender.Publish(newEvent(Modify, full, kind))
		default:
			e.sender.Publish(newUnresolvedEvent(Unknown))
		}
		advance()
	}
}

func (e *inotifyEngine) handleCookie(cookie uint32, mask uint32, full string, kind TargetKind) {
	if mask&unix.IN_MOVED_FROM != 0 {
		if partner, ok := e.cookies.LoadAndDelete(cookie); ok {
			e.pairRename(full, partner.path, kind)
			return
		}
		e.cookies.Store(cookie, pendingCookie{path: full, isDir: kind == Directory})
		return
	}
	if mask&unix.IN_MOVED_TO != 0 {
		if partner, ok := e.cookies.LoadAndDelete(cookie); ok {
			e.pairRename(partner.path, full, kind)
			return
		}
		e.cookies.Store(cookie, pendingCookie{path: full, isDir: kind == Directory})
	}
}

// pairRename emits the MovedFrom/MovedTo pair for an intra-cycle cookie
// match and, for directories, rewrites every descendant watch path from
// source to dest (spec.md §4.5, invariant P3).
func (e *inotifyEngine) pairRename(source, dest string, kind TargetKind) {
	e.sender.Publish(newMovedTo(dest, source, kind))
	e.sender.Publish(newMovedFrom(source, dest, kind))

	if kind != Directory {
		return
	}
	e.pathToWd.Range(func(path string, wd uint32) bool {
		if path == source {
			e.pathToWd.Delete(path)
			e.pathToWd.Store(dest, wd)
			e.wdToPath.Store(wd, dest)
			return true
		}
		if strings.HasPrefix(path, source+string(filepath.Separator)) {
			rewritten := dest + path[len(source):]
			e.pathToWd.Delete(path)
			e.pathToWd.Store(rewritten, wd)
			e.wdToPath.Store(wd, rewritten)
		}
		return true
	})
}

// downgradeUnpairedCookies implements spec.md §4.5's "poll returned no
// events" rule: any cookie still pending at the end of an empty cycle is a
// cross-tree move, downgraded to a single-sided Move.
func (e *inotifyEngine) downgradeUnpairedCookies() {
	var stale []uint32
	e.cookies.Range(func(cookie uint32, pending pendingCookie) bool {
		stale = append(stale, cookie)
		return true
	})
	for _, cookie := range stale {
		pending, ok := e.cookies.LoadAndDelete(cookie)
		if !ok {
			continue
		}
		kind := File
		if pending.isDir {
			kind = Directory
		}
		e.sender.Publish(newEvent(Move, pending.path, kind))

		if _, watched := e.pathToWd.Load(pending.path); watched {
			e.unmarkSubtree(pending.path)
		} else if _, err := os.Lstat(pending.path); err == nil {
			if err := walk.Dirs(pending.path, e.markDir); err != nil {
				e.sender.Publish(newUnresolvedEvent(Unknown))
			}
		}
	}
}

func (e *inotifyEngine) subscribe() *broadcast.Subscription[FileSystemEvent] {
	return e.sender.Subscribe()
}

func (e *inotifyEngine) close() error {
	e.token.Cancel()
	e.poller.Wake()
	e.poller.Close()
	err := unix.Close(e.fd)
	e.sender.Close()
	if err != nil {
		return newFileSystemError("close", "", err)
	}
	return nil
}
