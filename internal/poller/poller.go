// Package poller implements the epoll-based blocking pump shared by the
// inotify and fanotify engines: block until either the watched kernel fd
// has data, or Close requests a wakeup.
//
// It is adapted from the teacher's inotify_poller.go, rewritten against
// golang.org/x/sys/unix (the teacher used the older syscall package
// directly) and generalized to wrap an arbitrary caller-supplied fd rather
// than only an inotify instance, so the fanotify engine can reuse it too.
package poller

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"

	"github.com/carlvoller/kanshi/internal/ioretry"
)

// pollTimeoutMillis bounds how long Wait blocks before reporting an empty
// cycle, so callers observe a "nothing ready" tick once the watched fd has
// been idle that long (spec.md §4.4, needed for the cookie-downgrade
// cadence of §4.5/P2). While the fd stays readable no empty tick occurs.
const pollTimeoutMillis = 16

// Poller blocks a goroutine until the wrapped fd is readable or Wake is
// called, using an epoll instance and a self-pipe for cancellation.
type Poller struct {
	watched int    // the inotify or fanotify fd
	epfd    int    // epoll instance
	pipe    [2]int // pipe[0] read end, pipe[1] write end
}

// New registers fd (an inotify or fanotify instance) with a fresh epoll
// instance alongside a wakeup pipe.
func New(fd int) (*Poller, error) {
	p := &Poller{watched: fd}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	p.epfd = epfd

	if err := unix.Pipe2(p.pipe[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		unix.Close(p.epfd)
		return nil, os.NewSyscallError("pipe2", err)
	}

	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, p.watched, &unix.EpollEvent{
		Fd:     int32(p.watched),
		Events: unix.EPOLLIN,
	}); err != nil {
		p.close()
		return nil, os.NewSyscallError("epoll_ctl", err)
	}

	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, p.pipe[0], &unix.EpollEvent{
		Fd:     int32(p.pipe[0]),
		Events: unix.EPOLLIN,
	}); err != nil {
		p.close()
		return nil, os.NewSyscallError("epoll_ctl", err)
	}

	return p, nil
}

// Wait blocks until the watched fd is readable (returns true, nil), a
// wakeup was requested via Wake (returns false, nil), or pollTimeoutMillis
// elapses with nothing ready (also returns false, nil) — the empty-cycle
// tick callers rely on for periodic bookkeeping.
func (p *Poller) Wait() (bool, error) {
	events := make([]unix.EpollEvent, 8)
	n, err := ioretry.Do(func() (int, error) {
		return unix.EpollWait(p.epfd, events, pollTimeoutMillis)
	})
	if err != nil {
		return false, os.NewSyscallError("epoll_wait", err)
	}
	if n == 0 {
		return false, nil
	}

	var readable, woken bool
	for _, ev := range events[:n] {
		switch int(ev.Fd) {
		case p.watched:
			if ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
				readable = true
			}
		case p.pipe[0]:
			woken = true
			p.drainWake()
		}
	}
	if readable {
		return true, nil
	}
	if woken {
		return false, nil
	}
	return false, errors.New("poller: epoll_wait returned an event on neither registered fd")
}

// Wake unblocks a goroutine currently parked in Wait. Safe to call
// multiple times; idempotent after the Poller is closed.
func (p *Poller) Wake() error {
	_, err := unix.Write(p.pipe[1], []byte{0})
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return os.NewSyscallError("write", err)
	}
	return nil
}

func (p *Poller) drainWake() {
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(p.pipe[0], buf)
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close releases the epoll instance and wakeup pipe. It does not close the
// fd passed to New; the caller owns that.
func (p *Poller) Close() {
	unix.Close(p.pipe[1])
	unix.Close(p.pipe[0])
	unix.Close(p.epfd)
}

func (p *Poller) close() { p.Close() }
