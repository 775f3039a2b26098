// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// gitfs mounts a single tree of a git repository as a read-only FUSE
// filesystem:
//
//	gitfs [options] repo-path mountpoint
//
// The repository is opened and the revision resolved before anything
// is mounted, so a bad path or revision fails without touching the
// mountpoint. After the kernel mount the process confines itself to
// the repository's git directory (see package sandbox), re-opens the
// object database inside it, and only then starts answering requests.
// The process stays in the foreground until the filesystem is
// unmounted or it receives SIGINT or SIGTERM.
//
// Exit status is 0 after a clean unmount or for --help and --version,
// and 1 for every failure.
package main
