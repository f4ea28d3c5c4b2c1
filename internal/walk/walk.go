// Package walk enumerates a directory tree for the initial recursive watch
// registration that both the inotify and fanotify engines perform when
// Watch is called on a directory (spec.md §4.1, §4.5).
//
// It is adapted from the teacher's backend_recursive.go AddWith, which
// walks a newly-added tree with filepath.WalkDir and calls the backend's
// Add for every directory found. Kanshi generalizes this into a standalone
// helper both Linux engines share, and adds visited-inode tracking so a
// symlink or bind-mount cycle cannot recurse forever.
package walk

import (
	"io/fs"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Dirs walks root and calls visit once for every directory found,
// including root itself (if root is itself a directory). It does not
// follow symlinks — matching inotify/fanotify, which never watch through
// a symlink implicitly.
//
// visit returning an error aborts the walk and Dirs returns that error.
func Dirs(root string, visit func(path string) error) error {
	seen := make(map[devIno]struct{})
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		var st unix.Stat_t
		if err := unix.Lstat(path, &st); err != nil {
			return err
		}
		key := devIno{dev: uint64(st.Dev), ino: st.Ino}
		if _, dup := seen[key]; dup {
			return filepath.SkipDir
		}
		seen[key] = struct{}{}
		return visit(path)
	})
}

type devIno struct {
	dev uint64
	ino uint64
}

// IsDir reports whether path names a directory, without following a
// trailing symlink to a directory as one (lstat semantics). Used by
// engines translating a raw kernel record to decide Target.Kind.
func IsDir(path string) (bool, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return false, err
	}
	return st.Mode&unix.S_IFMT == unix.S_IFDIR, nil
}
