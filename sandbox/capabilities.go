// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"os"

	"golang.org/x/sys/unix"
)

// Capabilities describes what isolation the current process can perform.
type Capabilities struct {
	// Root is true when the effective UID is 0.
	Root bool

	// ChrootPermitted is true when CAP_SYS_CHROOT is in the effective
	// capability set.
	ChrootPermitted bool
}

// DetectCapabilities inspects the current process.
func DetectCapabilities() *Capabilities {
	return &Capabilities{
		Root:            os.Geteuid() == 0,
		ChrootPermitted: hasEffectiveCapability(unix.CAP_SYS_CHROOT),
	}
}

// CanIsolate reports whether mode can succeed in this process.
func (c *Capabilities) CanIsolate(mode Mode) bool {
	return c.SkipReason(mode) == ""
}

// SkipReason returns a human-readable reason why mode is unavailable, or
// the empty string if it is available.
func (c *Capabilities) SkipReason(mode Mode) string {
	if mode == ModeChroot && !c.ChrootPermitted {
		return "CAP_SYS_CHROOT not in the effective capability set"
	}
	return ""
}

// hasEffectiveCapability reads the effective set with capget(2).
func hasEffectiveCapability(capability int) bool {
	header := unix.CapUserHeader{Version: unix.LINUX_CAPABILITY_VERSION_3}
	var data [2]unix.CapUserData
	if err := unix.Capget(&header, &data[0]); err != nil {
		return false
	}
	word, bit := capability/32, uint(capability%32)
	return data[word].Effective&(1<<bit) != 0
}
