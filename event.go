package kanshi

import "fmt"

// EventType is the platform-neutral kind of change a FileSystemEvent
// describes.
type EventType int

const (
	// Create indicates a new file or directory appeared.
	Create EventType = iota
	// Delete indicates a file, directory, or a watched root itself was removed.
	Delete
	// Modify indicates a file's contents changed. Attribute-only changes
	// (permissions, ownership, timestamps) are not reported by any engine.
	Modify
	// Move indicates a rename whose other endpoint lies outside the watched
	// tree (or, on fanotify, any rename at all — see engine_fanotify_linux.go).
	Move
	// MovedTo is the destination side of an intra-tree rename. Target.NextPath
	// holds the source path.
	MovedTo
	// MovedFrom is the source side of an intra-tree rename. Target.PreviousPath
	// holds the destination path.
	MovedFrom
	// Unknown is emitted for masks this module does not recognize, and for
	// kernel queue overflow (see DESIGN.md, "Overflow discriminant").
	Unknown
)

func (t EventType) String() string {
	switch t {
	case Create:
		return "create"
	case Delete:
		return "delete"
	case Modify:
		return "modify"
	case Move:
		return "move"
	case MovedTo:
		return "moved_to"
	case MovedFrom:
		return "moved_from"
	case Unknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// TargetKind distinguishes a regular file from a directory.
type TargetKind int

const (
	// File is a regular file, symlink, or other non-directory entry.
	File TargetKind = iota
	// Directory is a directory entry.
	Directory
)

func (k TargetKind) String() string {
	if k == Directory {
		return "directory"
	}
	return "file"
}

// Target describes the filesystem object an event concerns. PreviousPath is
// only populated for MovedFrom events, NextPath only for MovedTo events,
// each carrying the other endpoint of the rename (spec.md §3, §6).
type Target struct {
	Path         string
	Kind         TargetKind
	PreviousPath string
	NextPath     string
}

// FileSystemEvent is a single, platform-neutral filesystem change
// notification. It is a plain value type: copying it is always safe.
type FileSystemEvent struct {
	Type   EventType
	Target *Target
}

func (e FileSystemEvent) String() string {
	if e.Target == nil {
		return fmt.Sprintf("%s: <unresolved>", e.Type)
	}
	switch e.Type {
	case MovedTo:
		return fmt.Sprintf("%s: %s (from %s)", e.Type, e.Target.Path, e.Target.NextPath)
	case MovedFrom:
		return fmt.Sprintf("%s: %s (to %s)", e.Type, e.Target.Path, e.Target.PreviousPath)
	default:
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Target.Path, e.Target.Kind)
	}
}

// newEvent/newUnresolvedEvent/newMovedTo/newMovedFrom are small
// constructors used by every engine's
// translation stage so the construction rules in spec.md §4.3 live in one
// place rather than being re-derived per backend.

func newEvent(t EventType, path string, kind TargetKind) FileSystemEvent {
	return FileSystemEvent{Type: t, Target: &Target{Path: path, Kind: kind}}
}

func newUnresolvedEvent(t EventType) FileSystemEvent {
	return FileSystemEvent{Type: t, Target: nil}
}

func newMovedTo(destPath, sourcePath string, kind TargetKind) FileSystemEvent {
	return FileSystemEvent{
		Type: MovedTo,
		Target: &Target{
			Path:     destPath,
			Kind:     kind,
			NextPath: sourcePath,
		},
	}
}

func newMovedFrom(sourcePath, destPath string, kind TargetKind) FileSystemEvent {
	return FileSystemEvent{
		Type: MovedFrom,
		Target: &Target{
			Path:         sourcePath,
			Kind:         kind,
			PreviousPath: destPath,
		},
	}
}
