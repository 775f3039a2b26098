// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Entry is the result of a path lookup: exactly one of *Directory,
// *File or *Synthetic.
type Entry interface {
	entry()
}

// Directory is a tree. The root directory borrows the mounted tree;
// every other directory carries a tree loaded for this lookup.
type Directory struct {
	Tree *object.Tree
	root bool
}

// IsRoot reports whether the directory is the mount root.
func (d *Directory) IsRoot() bool { return d.root }

// File is a blob together with the mode stored in its parent tree.
type File struct {
	Name string
	Blob *object.Blob
	Mode filemode.FileMode
}

// IsRegular reports whether the file has regular-file content. That
// covers the plain, executable and group-writable legacy modes;
// go-git's own FileMode.IsRegular leaves out executables.
func (f *File) IsRegular() bool {
	return f.Mode.IsFile() && f.Mode != filemode.Symlink
}

// IsSymlink reports whether the blob holds a symlink target.
func (f *File) IsSymlink() bool { return f.Mode == filemode.Symlink }

// Synthetic is a read-only root-level file not backed by the object
// store. Content is never modified after the table is built.
type Synthetic struct {
	Name    string
	Content []byte
}

func (*Directory) entry() {}
func (*File) entry()      {}
func (*Synthetic) entry() {}
