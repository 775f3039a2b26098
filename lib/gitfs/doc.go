// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gitfs serves a single git tree as a read-only FUSE filesystem.
//
// [Filesystem] is the protocol-independent core. It answers
// path-addressed requests (Getattr, Readlink) and handle-addressed ones
// (Open, Readdir, Read, Release) against the tree chosen at mount time.
// Paths are resolved by descending the tree one component at a time;
// nothing is cached between requests except the mounted root tree.
// Besides the tree's own entries the root carries read-only ID files,
// ".<program>-tree-id" and, when the tree came from a commit,
// ".<program>-commit-id". A real entry of the same name hides them.
//
// Git file modes map onto POSIX ones: regular, executable and the
// legacy group-writable mode keep their stored bits, symlinks read as
// S_IFLNK|0777, and submodules do not exist.
//
// [Mount] binds a Filesystem to go-fuse. The kernel mount is made
// first, then [Filesystem.Init] confines the process with a
// sandbox.Isolator and re-opens the repository inside the new root,
// and only then does the server start answering requests. Dispatch is
// single-threaded; Filesystem has no internal locking.
//
// Errors carry github.com/jmgilman/go/errors codes and are translated
// to errno values by [Errno].
package gitfs
