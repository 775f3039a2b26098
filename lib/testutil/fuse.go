// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// fusermountBinaries are the helpers go-fuse mounts and unmounts
// through, in the order it tries them.
var fusermountBinaries = []string{"fusermount3", "fusermount"}

// RequireFUSE skips the test unless /dev/fuse can be opened and a
// fusermount helper is installed.
func RequireFUSE(t *testing.T) {
	t.Helper()
	device, err := os.OpenFile("/dev/fuse", os.O_RDWR, 0)
	if err != nil {
		t.Skipf("skipping: /dev/fuse not available: %v", err)
	}
	device.Close()

	if _, found := findFusermount(); !found {
		t.Skipf("skipping: none of %v found in PATH", fusermountBinaries)
	}
}

func findFusermount() (string, bool) {
	for _, name := range fusermountBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}

// Mountpoint creates an empty directory for a test mount. It lives
// under t.TempDir, so it is removed when the test completes; the test
// must unmount before then.
func Mountpoint(t *testing.T) string {
	t.Helper()
	mountpoint := filepath.Join(t.TempDir(), "mount")
	if err := os.Mkdir(mountpoint, 0o755); err != nil {
		t.Fatalf("creating mountpoint: %v", err)
	}
	return mountpoint
}
