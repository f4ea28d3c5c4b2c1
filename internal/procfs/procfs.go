// Package procfs resolves the opaque file handles fanotify reports (under
// FAN_REPORT_DFID_NAME) back into absolute paths, via open_by_handle_at
// plus a /proc/self/fd readlink.
//
// It is adapted from the teacher's backend_fanotify_event.go
// (getFileHandle/getFileHandleWithName/readFanotifyEvents), which performs
// the identical two-step resolution inline in its read loop. Kanshi pulls
// it out into a standalone helper so engine_fanotify_linux.go can call it
// without also inheriting the teacher's non-FID (kernel < 5.1) code path,
// which spec.md does not require.
package procfs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ResolveHandle opens the file handle fh (obtained from a
// FAN_EVENT_INFO_TYPE_FID/DFID/DFID_NAME record) relative to mountFd and
// returns the absolute path the kernel currently has it linked at.
//
// The returned fd is closed before ResolveHandle returns; only the caller
// needs the path, not an open descriptor.
func ResolveHandle(mountFd int, fh unix.FileHandle) (string, error) {
	fd, err := unix.OpenByHandleAt(mountFd, fh, unix.O_RDONLY)
	if err != nil {
		return "", os.NewSyscallError("open_by_handle_at", err)
	}
	defer unix.Close(fd)

	return readlinkFd(fd)
}

func readlinkFd(fd int) (string, error) {
	procPath := fmt.Sprintf("/proc/self/fd/%d", fd)
	buf := make([]byte, unix.PathMax)
	n, err := unix.Readlink(procPath, buf)
	if err != nil {
		return "", os.NewSyscallError("readlink", err)
	}
	return string(buf[:n]), nil
}
