// Package capabilities checks the calling process's Linux capability set,
// used to produce an actionable error when the fanotify engine is
// force-selected without the privilege it needs.
//
// Adapted from the teacher's internal/capabilities_linux.go, which probed
// CAP_SYS_ADMIN to decide whether permission-mediating (FAN_CLASS_CONTENT)
// fanotify groups were available. Kanshi only needs the CAP_SYS_ADMIN
// check itself; the kernel-version-gated group-creation logic that
// consumed it belonged to a mode (content permission events) this module
// excludes as a Non-goal, so it is not carried over.
package capabilities

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

type capabilityV1 struct {
	header unix.CapUserHeader
	data   unix.CapUserData
}

type capabilityV3 struct {
	header unix.CapUserHeader
	datap  [2]unix.CapUserData
}

// HasSysAdmin reports whether the calling process currently holds
// CAP_SYS_ADMIN in its effective set — the capability fanotify's
// FAN_MARK_FILESYSTEM and FAN_UNLIMITED_* flags require in practice, even
// though the kernel's own check is against the privileged-user namespace.
func HasSysAdmin() (bool, error) {
	var header unix.CapUserHeader
	if err := unix.Capget(&header, nil); err != nil {
		return false, errors.New("capabilities: unable to probe capability version")
	}

	switch header.Version {
	case unix.LINUX_CAPABILITY_VERSION_1:
		header.Pid = int32(os.Getpid())
		var data unix.CapUserData
		if err := unix.Capget(&header, &data); err != nil {
			return false, err
		}
		v1 := capabilityV1{header: header, data: data}
		return v1.isSet(unix.CAP_SYS_ADMIN), nil
	default:
		header.Pid = int32(os.Getpid())
		var datap [2]unix.CapUserData
		if err := unix.Capget(&header, &datap[0]); err != nil {
			return false, err
		}
		v3 := capabilityV3{header: header, datap: datap}
		return v3.isSet(unix.CAP_SYS_ADMIN), nil
	}
}

func (v1 *capabilityV1) isSet(capability int) bool {
	return (1<<uint(capability))&v1.data.Effective != 0
}

func (v3 *capabilityV3) isSet(capability int) bool {
	i := uint(0)
	bit := capability
	if bit > 31 {
		i = 1
		bit %= 32
	}
	return (1<<uint(bit))&v3.datap[i].Effective != 0
}
