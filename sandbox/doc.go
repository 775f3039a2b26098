// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox confines the serving process's view of the host
// filesystem to a single directory before it answers any request.
//
// The central type is [Isolator]. [New] returns one for a [Mode]:
// [ModeChroot] changes the process root to the target directory and
// moves the working directory into it; [ModeNone] leaves the process
// where it is and exists only as an explicit operator opt-out.
//
// Isolation is one-way. After Isolate returns successfully every path
// the process opens is resolved inside the target, so callers must
// finish anything that needs the host view (mounting, locating
// helper binaries) first and re-open their resources through the root
// Isolate returns.
//
// A chroot is a filesystem-view boundary, not a privilege boundary: a
// process that keeps CAP_SYS_CHROOT can leave it. [Capabilities]
// reports whether the current process is able to chroot at all so the
// caller can fail with a useful message before mounting.
package sandbox
