// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// recorder captures Fatalf instead of stopping the test.
type recorder struct {
	message string
}

func (r *recorder) Helper() {}

func (r *recorder) Fatalf(format string, args ...any) {
	r.message = fmt.Sprintf(format, args...)
}

func TestRequireClosed(t *testing.T) {
	closed := make(chan struct{})
	close(closed)
	var passing recorder
	RequireClosed(&passing, closed, time.Second, "closed channel")
	if passing.message != "" {
		t.Errorf("closed channel reported failure: %s", passing.message)
	}

	var failing recorder
	RequireClosed(&failing, make(chan struct{}), time.Millisecond, "waiting for %s", "server")
	if !strings.Contains(failing.message, "waiting for server") {
		t.Errorf("timeout message = %q", failing.message)
	}
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		args []any
		want string
	}{
		{nil, "(no message)"},
		{[]any{"plain"}, "plain"},
		{[]any{42}, "42"},
		{[]any{"%s=%d", "n", 3}, "n=3"},
	}
	for _, test := range tests {
		if got := formatMessage(test.args); got != test.want {
			t.Errorf("formatMessage(%v) = %q, want %q", test.args, got, test.want)
		}
	}
}

func TestMountpointIsEmptyDirectory(t *testing.T) {
	mountpoint := Mountpoint(t)
	if !strings.HasSuffix(mountpoint, "/mount") {
		t.Errorf("mountpoint = %q", mountpoint)
	}
}

func TestFindFusermount(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PATH", dir)
	if path, found := findFusermount(); found {
		t.Fatalf("found %q in an empty PATH", path)
	}

	helper := filepath.Join(dir, "fusermount")
	if err := os.WriteFile(helper, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("writing helper: %v", err)
	}
	path, found := findFusermount()
	if !found || path != helper {
		t.Errorf("findFusermount() = %q, %v; want %q", path, found, helper)
	}
}
