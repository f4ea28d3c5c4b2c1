// Package maskdebug renders inotify and fanotify event masks as their flag
// names, for KANSHI_DEBUG tracing.
//
// Adapted from the teacher's internal/debug_linux.go Debug function, split
// into one table per kernel API and stripped of the timestamp/os.Stderr
// write so callers can fold the result into their own debugf.
package maskdebug

import (
	"strings"

	"golang.org/x/sys/unix"
)

var inotifyFlags = []struct {
	name string
	bit  uint32
}{
	{"IN_ACCESS", unix.IN_ACCESS},
	{"IN_ATTRIB", unix.IN_ATTRIB},
	{"IN_CLOSE_NOWRITE", unix.IN_CLOSE_NOWRITE},
	{"IN_CLOSE_WRITE", unix.IN_CLOSE_WRITE},
	{"IN_CREATE", unix.IN_CREATE},
	{"IN_DELETE", unix.IN_DELETE},
	{"IN_DELETE_SELF", unix.IN_DELETE_SELF},
	{"IN_IGNORED", unix.IN_IGNORED},
	{"IN_ISDIR", unix.IN_ISDIR},
	{"IN_MODIFY", unix.IN_MODIFY},
	{"IN_MOVED_FROM", unix.IN_MOVED_FROM},
	{"IN_MOVED_TO", unix.IN_MOVED_TO},
	{"IN_MOVE_SELF", unix.IN_MOVE_SELF},
	{"IN_OPEN", unix.IN_OPEN},
	{"IN_Q_OVERFLOW", unix.IN_Q_OVERFLOW},
	{"IN_UNMOUNT", unix.IN_UNMOUNT},
}

// Inotify renders the set bits of an inotify_event mask as "A | B | C".
func Inotify(mask uint32) string {
	var l []string
	for _, f := range inotifyFlags {
		if mask&f.bit == f.bit {
			l = append(l, f.name)
		}
	}
	return strings.Join(l, " | ")
}

var fanotifyFlags = []struct {
	name string
	bit  uint64
}{
	{"FAN_ACCESS", unix.FAN_ACCESS},
	{"FAN_MODIFY", unix.FAN_MODIFY},
	{"FAN_CLOSE_WRITE", unix.FAN_CLOSE_WRITE},
	{"FAN_CLOSE_NOWRITE", unix.FAN_CLOSE_NOWRITE},
	{"FAN_OPEN", unix.FAN_OPEN},
	{"FAN_CREATE", unix.FAN_CREATE},
	{"FAN_DELETE", unix.FAN_DELETE},
	{"FAN_DELETE_SELF", unix.FAN_DELETE_SELF},
	{"FAN_MOVED_FROM", unix.FAN_MOVED_FROM},
	{"FAN_MOVED_TO", unix.FAN_MOVED_TO},
	{"FAN_MOVE_SELF", unix.FAN_MOVE_SELF},
	{"FAN_ONDIR", unix.FAN_ONDIR},
	{"FAN_Q_OVERFLOW", unix.FAN_Q_OVERFLOW},
}

// Fanotify renders the set bits of a fanotify event mask as "A | B | C".
func Fanotify(mask uint64) string {
	var l []string
	for _, f := range fanotifyFlags {
		if mask&f.bit == f.bit {
			l = append(l, f.name)
		}
	}
	return strings.Join(l, " | ")
}
