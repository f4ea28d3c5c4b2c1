//go:build linux

package kanshi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/carlvoller/kanshi/internal/broadcast"
	"github.com/carlvoller/kanshi/internal/cancel"
	"github.com/carlvoller/kanshi/internal/maskdebug"
	"github.com/carlvoller/kanshi/internal/poller"
	"github.com/carlvoller/kanshi/internal/procfs"
	"github.com/carlvoller/kanshi/internal/walk"
)

var sizeOfFanotifyEventMetadata = uint32(unsafe.Sizeof(unix.FanotifyEventMetadata{}))

// fanotifyMarkMask is the set of events kanshi marks every directory with
// (spec.md §4.4).
const fanotifyMarkMask = unix.FAN_ONDIR | unix.FAN_CREATE | unix.FAN_MODIFY |
	unix.FAN_DELETE | unix.FAN_DELETE_SELF | unix.FAN_MOVE | unix.FAN_MOVE_SELF

// These fanotify info-record structures are not exposed by
// golang.org/x/sys/unix; they mirror struct fanotify_event_info_fid from
// linux/fanotify.h.
type fanotifyEventInfoHeader struct {
	InfoType uint8
	pad      uint8
	Len      uint16
}

type kernelFSID struct {
	val [2]int32
}

// fanotifyEngine is the privileged Linux backend, selected by default when
// the effective UID is 0 (spec.md §4.1). It marks either individual
// directories or, when FilesystemWide is requested and permitted, an
// entire filesystem in one call, and resolves every record's file handle
// back to a path via open_by_handle_at + /proc/self/fd readlink.
type fanotifyEngine struct {
	fd             int
	poller         *poller.Poller
	token          *cancel.Token
	sender         *broadcast.Sender[FileSystemEvent]
	filesystemWide bool
}

func newFanotifyEngine(filesystemWide bool) (*fanotifyEngine, error) {
	flags := uint(unix.FAN_CLASS_NOTIF | unix.FAN_REPORT_DFID_NAME |
		unix.FAN_UNLIMITED_QUEUE | unix.FAN_UNLIMITED_MARKS | unix.FAN_CLOEXEC)
	eventFlags := uint(unix.O_RDONLY | unix.O_NONBLOCK | unix.O_CLOEXEC)

	fd, err := unix.FanotifyInit(flags, eventFlags)
	if err != nil {
		return nil, newFileSystemError("fanotify_init", "", err)
	}

	p, err := poller.New(fd)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &fanotifyEngine{
		fd:             fd,
		poller:         p,
		token:          cancel.New(),
		sender:         broadcast.New[FileSystemEvent](broadcast.DefaultCapacity),
		filesystemWide: filesystemWide,
	}, nil
}

func (e *fanotifyEngine) watch(dir string) error {
	abs, err := canonicalize(dir)
	if err != nil {
		return newFileSystemError("lstat", dir, err)
	}

	if e.filesystemWide {
		if err := unix.FanotifyMark(e.fd, unix.FAN_MARK_ADD|unix.FAN_MARK_FILESYSTEM,
			fanotifyMarkMask, unix.AT_FDCWD, abs); err != nil {
			return newFileSystemError("fanotify_mark", abs, err)
		}
		return nil
	}

	return walk.Dirs(abs, func(path string) error {
		if err := unix.FanotifyMark(e.fd, unix.FAN_MARK_ADD, fanotifyMarkMask, unix.AT_FDCWD, path); err != nil {
			return newFileSystemError("fanotify_mark", path, err)
		}
		return nil
	})
}

func (e *fanotifyEngine) start() error {
	buf := make([]byte, 4096*sizeOfFanotifyEventMetadata)
	for {
		if e.token.Cancelled() {
			return nil
		}

		ready, err := e.poller.Wait()
		if err != nil {
			return newFileSystemError("epoll_wait", "", err)
		}
		if !ready {
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
		e.drain(buf[:n])
	}
}

func (e *fanotifyEngine) drain(buf []byte) {
	i, n := 0, len(buf)
	for n >= int(sizeOfFanotifyEventMetadata) {
		meta := (*unix.FanotifyEventMetadata)(unsafe.Pointer(&buf[i]))
		if !fanotifyEventOK(meta, n) {
			break
		}

		e.translate(meta, buf, i)

		i += int(meta.Event_len)
		n -= int(meta.Event_len)
	}
}

func fanotifyEventOK(meta *unix.FanotifyEventMetadata, n int) bool {
	return n >= int(sizeOfFanotifyEventMetadata) &&
		meta.Event_len >= sizeOfFanotifyEventMetadata &&
		int(meta.Event_len) <= n
}

// translate resolves one fanotify record's trailing info sub-records to a
// path and publishes the corresponding FileSystemEvent, per the priority
// rule in spec.md §4.4 step 3.
func (e *fanotifyEngine) translate(meta *unix.FanotifyEventMetadata, buf []byte, offset int) {
	if meta.Fd != unix.FAN_NOFD {
		unix.Close(int(meta.Fd))
	}

	resolved, kind, ok := resolveFanotifyPath(meta, buf, offset)

	mask := meta.Mask
	evType := fanotifyMaskToEventType(mask)
	if debug {
		debugf("fanotify mask=%s resolved=%q ok=%v", maskdebug.Fanotify(mask), resolved, ok)
	}

	if !ok {
		e.sender.Publish(newUnresolvedEvent(evType))
		return
	}
	e.sender.Publish(newEvent(evType, resolved, kind))
}

func fanotifyMaskToEventType(mask uint64) EventType {
	switch {
	case mask&unix.FAN_CREATE != 0:
		return Create
	case mask&(unix.FAN_DELETE_SELF|unix.FAN_DELETE) != 0:
		return Delete
	case mask&unix.FAN_MODIFY != 0:
		return Modify
	case mask&(unix.FAN_MOVE_SELF|unix.FAN_MOVED_FROM|unix.FAN_MOVED_TO) != 0:
		return Move
	default:
		return Unknown
	}
}

// resolveFanotifyPath walks the info records following meta, resolving the
// first FID/DFID/DFID_NAME record it finds via open_by_handle_at +
// readlink, per spec.md §4.4 step 2 and the handle→path resolution race
// design note in §9 (treated as a non-fatal "unresolved" path on failure).
func resolveFanotifyPath(meta *unix.FanotifyEventMetadata, buf []byte, offset int) (string, TargetKind, bool) {
	headerSize := int(unsafe.Sizeof(fanotifyEventInfoHeader{}))
	end := offset + int(meta.Event_len)
	infoOffset := offset + int(meta.Metadata_len)
	var header *fanotifyEventInfoHeader
records:
	for {
		if infoOffset+headerSize > end {
			return "", File, false
		}
		header = (*fanotifyEventInfoHeader)(unsafe.Pointer(&buf[infoOffset]))
		switch header.InfoType {
		case unix.FAN_EVENT_INFO_TYPE_FID, unix.FAN_EVENT_INFO_TYPE_DFID, unix.FAN_EVENT_INFO_TYPE_DFID_NAME:
			break records
		}
		if header.Len == 0 {
			return "", File, false
		}
		infoOffset += int(header.Len)
	}

	handle, name, err := parseFileHandle(0, buf, infoOffset, header.InfoType == unix.FAN_EVENT_INFO_TYPE_DFID_NAME)
	if err != nil {
		return "", File, false
	}

	dirPath, err := procfs.ResolveHandle(unix.AT_FDCWD, *handle)
	if err != nil {
		return "", File, false
	}

	isDir := meta.Mask&unix.FAN_ONDIR != 0
	kind := File
	if isDir {
		kind = Directory
	}

	if name == "" || name == "." {
		return dirPath, kind, true
	}
	// The trailing name belongs to a child of dirPath; the record's ONDIR
	// flag then describes that child, not dirPath itself.
	return path.Join(dirPath, name), kind, true
}

func parseFileHandle(metadataLen uint16, buf []byte, offset int, withName bool) (*unix.FileHandle, string, error) {
	headerSize := uint32(unsafe.Sizeof(fanotifyEventInfoHeader{}))
	fsidSize := uint32(unsafe.Sizeof(kernelFSID{}))
	var fhSize uint32
	uint32Size := uint32(unsafe.Sizeof(fhSize))

	j := uint32(offset) + uint32(metadataLen) + headerSize + fsidSize
	if int(j+uint32Size*2) > len(buf) {
		return nil, "", fmt.Errorf("procfs: truncated file handle record")
	}

	fhSize = binary.LittleEndian.Uint32(buf[j : j+uint32Size])
	j += uint32Size
	fhType := int32(binary.LittleEndian.Uint32(buf[j : j+uint32Size]))
	j += uint32Size

	if int(j+fhSize) > len(buf) {
		return nil, "", fmt.Errorf("procfs: truncated file handle bytes")
	}
	handle := unix.NewFileHandle(fhType, buf[j:j+fhSize])
	j += fhSize

	var name string
	if withName {
		end := j
		for end < uint32(len(buf)) && buf[end] != 0 {
			end++
		}
		name = string(buf[j:end])
	}
	return &handle, name, nil
}

func (e *fanotifyEngine) subscribe() *broadcast.Subscription[FileSystemEvent] {
	return e.sender.Subscribe()
}

func (e *fanotifyEngine) close() error {
	e.token.Cancel()
	e.poller.Wake()
	e.poller.Close()
	// FAN_MARK_FLUSH on "/" is best-effort (spec.md §4.4); a failure here
	// must not prevent the fd from being released.
	unix.FanotifyMark(e.fd, unix.FAN_MARK_FLUSH, 0, unix.AT_FDCWD, "/")
	err := unix.Close(e.fd)
	e.sender.Close()
	if err != nil {
		return newFileSystemError("close", "", err)
	}
	return nil
}
