// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gitstore opens a git repository's object store and resolves
// revision specifiers to the tree gitfs mounts.
//
// A Repository is opened once in the host's unrestricted view to
// resolve the revision (branch, tag, symbolic ref, full or abbreviated
// hash, or a revision expression such as HEAD~2). Resolution yields a
// [Resolution]: the tree, the commit it came from (if any) and the
// timestamp the filesystem reports for every entry.
//
// After the serving process isolates itself to the repository
// directory, the object store is opened again with [OpenObjects] and
// the tree is looked up by its ID. Live go-git handles (pack file
// descriptors in particular) do not survive the change of root.
//
// Storage is go-git's filesystem storage over a go-billy osfs root
// with the default LRU object cache. The storage is not safe for
// concurrent use by multiple goroutines; gitfs serves callbacks
// serially.
package gitstore
