// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for gitfs packages.
//
// [RequireFUSE] skips a test when the kernel FUSE device is not
// accessible, and [Mountpoint] creates an empty directory to mount on.
// Tests that exercise a real mount call both; everything else in the
// repository is tested without the kernel.
//
// [RequireClosed] encapsulates the timeout safety valve pattern
// (select with time.After fallback) so that individual tests do not
// need direct time.After calls. It guards waits on goroutines such as
// a FUSE server draining after unmount.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no gitfs-internal dependencies.
package testutil
