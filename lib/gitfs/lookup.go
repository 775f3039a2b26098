// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// lookup resolves an absolute path against the mounted tree. Real
// entries shadow synthetic ones of the same name.
func (f *Filesystem) lookup(path string) (Entry, error) {
	entry, err := f.walk(path)
	if err == nil || !isNotFound(err) {
		return entry, err
	}
	if synthetic, ok := f.synthetic.lookupPath(path); ok {
		return synthetic, nil
	}
	return nil, err
}

// walk descends the tree one component at a time.
func (f *Filesystem) walk(path string) (Entry, error) {
	if f.root == nil {
		return nil, ioError("%s: filesystem is not mounted", path)
	}

	components := splitPath(path)
	if len(components) == 0 {
		return &Directory{Tree: f.root, root: true}, nil
	}

	tree := f.root
	for i, name := range components {
		last := i == len(components)-1

		child, ok := findEntry(tree, name)
		if !ok {
			return nil, notFound(path)
		}

		switch {
		case child.Mode == filemode.Dir:
			subtree, err := f.repo.Tree(child.Hash)
			if err != nil {
				return nil, err
			}
			if last {
				return &Directory{Tree: subtree}, nil
			}
			tree = subtree

		case child.Mode.IsFile() && last:
			blob, err := f.repo.Blob(child.Hash)
			if err != nil {
				return nil, err
			}
			return &File{Name: child.Name, Blob: blob, Mode: child.Mode}, nil

		default:
			// Submodules, unknown modes and files used as directories.
			return nil, notFound(path)
		}
	}
	return nil, notFound(path)
}

// splitPath drops the leading slash and any empty components.
func splitPath(path string) []string {
	var components []string
	for _, component := range strings.Split(path, "/") {
		if component != "" {
			components = append(components, component)
		}
	}
	return components
}

func findEntry(tree *object.Tree, name string) (object.TreeEntry, bool) {
	for _, entry := range tree.Entries {
		if entry.Name == name {
			return entry, true
		}
	}
	return object.TreeEntry{}, false
}

// listable reports whether an entry appears in directory listings, and
// its type bits.
func listable(mode filemode.FileMode) (uint32, bool) {
	switch {
	case mode == filemode.Dir:
		return modeDir, true
	case mode == filemode.Symlink:
		return modeSymlink, true
	case mode.IsFile():
		return modeRegular, true
	default:
		return 0, false
	}
}
