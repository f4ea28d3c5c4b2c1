//go:build linux

package kanshi

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"
)

func TestFanotifyMaskToEventTypePriority(t *testing.T) {
	cases := []struct {
		mask uint64
		want EventType
	}{
		{unix.FAN_CREATE, Create},
		{unix.FAN_CREATE | unix.FAN_MODIFY, Create}, // Create outranks Modify
		{unix.FAN_DELETE_SELF, Delete},
		{unix.FAN_DELETE, Delete},
		{unix.FAN_MODIFY, Modify},
		{unix.FAN_MOVE_SELF, Move},
		{unix.FAN_MOVED_FROM, Move},
		{unix.FAN_MOVED_TO, Move},
		{unix.FAN_ACCESS, Unknown},
	}
	for _, c := range cases {
		if got := fanotifyMaskToEventType(c.mask); got != c.want {
			t.Errorf("fanotifyMaskToEventType(%#x) = %v, want %v", c.mask, got, c.want)
		}
	}
}

func TestFanotifyEventOK(t *testing.T) {
	size := sizeOfFanotifyEventMetadata
	meta := unix.FanotifyEventMetadata{Event_len: size, Vers: unix.FANOTIFY_METADATA_VERSION}

	if !fanotifyEventOK(&meta, int(size)) {
		t.Fatal("expected a minimal well-formed record to be OK")
	}

	tooShort := unix.FanotifyEventMetadata{Event_len: size - 1}
	if fanotifyEventOK(&tooShort, int(size)) {
		t.Fatal("expected a record shorter than the header to be rejected")
	}

	overrunning := unix.FanotifyEventMetadata{Event_len: size + 100}
	if fanotifyEventOK(&overrunning, int(size)) {
		t.Fatal("expected a record claiming more bytes than available to be rejected")
	}
}

// TestParseFileHandleWithName builds a synthetic metadata+info-record
// buffer the way the kernel would for a FAN_EVENT_INFO_TYPE_DFID_NAME
// record, and checks parseFileHandle recovers the handle bytes and
// trailing name.
func TestParseFileHandleWithName(t *testing.T) {
	metadataLen := uint16(sizeOfFanotifyEventMetadata)
	headerSize := int(unsafe.Sizeof(fanotifyEventInfoHeader{}))
	fsidSize := int(unsafe.Sizeof(kernelFSID{}))

	handleBytes := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	name := "child.txt"

	buf := make([]byte, int(metadataLen)+headerSize+fsidSize+4+4+len(handleBytes)+len(name)+1)
	j := int(metadataLen) + headerSize + fsidSize
	binary.LittleEndian.PutUint32(buf[j:], uint32(len(handleBytes)))
	j += 4
	binary.LittleEndian.PutUint32(buf[j:], 0) // handle_type
	j += 4
	copy(buf[j:], handleBytes)
	j += len(handleBytes)
	copy(buf[j:], name)

	handle, gotName, err := parseFileHandle(metadataLen, buf, 0, true)
	if err != nil {
		t.Fatalf("parseFileHandle error: %v", err)
	}
	if gotName != name {
		t.Fatalf("name = %q, want %q", gotName, name)
	}
	if string(handle.Bytes()) != string(handleBytes) {
		t.Fatalf("handle bytes = %v, want %v", handle.Bytes(), handleBytes)
	}
}
