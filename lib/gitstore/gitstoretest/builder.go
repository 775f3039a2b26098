// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gitstoretest builds git object stores for tests without
// shelling out to git. Objects are encoded with go-git and written
// straight into a storer, either in memory or into a bare repository
// on disk.
//
//	builder := gitstoretest.NewMemory(t)
//	tree := builder.Files(map[string]gitstoretest.File{
//	    "README":      {Content: "hello\n"},
//	    "bin/run":     {Content: "#!/bin/sh\n", Mode: filemode.Executable},
//	    "docs/latest": {Content: "v1", Mode: filemode.Symlink},
//	})
//	commit := builder.Commit(tree, gitstoretest.Epoch)
//	builder.SetBranch("main", commit)
package gitstoretest

import (
	"sort"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Epoch is a fixed commit timestamp for tests.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// DefaultBranch is the branch HEAD points at in every builder.
const DefaultBranch = "main"

// Builder writes objects and references into a storer.
type Builder struct {
	t      testing.TB
	dir    string
	Storer storage.Storer
}

// File describes a file for Files. A zero Mode means filemode.Regular.
type File struct {
	Content string
	Mode    filemode.FileMode
}

// NewMemory returns a Builder over an in-memory storage with HEAD
// pointing at refs/heads/main.
func NewMemory(t testing.TB) *Builder {
	t.Helper()
	builder := &Builder{t: t, Storer: memory.NewStorage()}
	builder.pointHEAD()
	return builder
}

// NewBare initializes a bare repository in dir and returns a Builder
// writing loose objects into it.
func NewBare(t testing.TB, dir string) *Builder {
	t.Helper()
	repo, err := gogit.PlainInit(dir, true)
	if err != nil {
		t.Fatalf("PlainInit(%s): %v", dir, err)
	}
	builder := &Builder{t: t, dir: dir, Storer: repo.Storer}
	builder.pointHEAD()
	return builder
}

// Path returns the repository directory of a NewBare builder, or the
// empty string for an in-memory one.
func (b *Builder) Path() string {
	return b.dir
}

func (b *Builder) pointHEAD() {
	b.t.Helper()
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(DefaultBranch))
	if err := b.Storer.SetReference(head); err != nil {
		b.t.Fatalf("setting HEAD: %v", err)
	}
}

// Blob stores content as a blob.
func (b *Builder) Blob(content string) plumbing.Hash {
	b.t.Helper()
	encoded := b.Storer.NewEncodedObject()
	encoded.SetType(plumbing.BlobObject)
	writer, err := encoded.Writer()
	if err != nil {
		b.t.Fatalf("blob writer: %v", err)
	}
	if _, err := writer.Write([]byte(content)); err != nil {
		b.t.Fatalf("writing blob: %v", err)
	}
	if err := writer.Close(); err != nil {
		b.t.Fatalf("closing blob writer: %v", err)
	}
	return b.set(encoded)
}

// Tree stores a tree with the given entries, sorted in git order.
func (b *Builder) Tree(entries ...object.TreeEntry) plumbing.Hash {
	b.t.Helper()
	sorted := append([]object.TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return sortKey(sorted[i]) < sortKey(sorted[j])
	})
	return b.encode(&object.Tree{Entries: sorted})
}

// sortKey orders directories as if their name ended in "/", which is
// how git sorts tree entries.
func sortKey(entry object.TreeEntry) string {
	if entry.Mode == filemode.Dir {
		return entry.Name + "/"
	}
	return entry.Name
}

// Files builds a nested tree from slash-separated paths and returns
// the root tree ID.
func (b *Builder) Files(files map[string]File) plumbing.Hash {
	b.t.Helper()

	children := make(map[string]map[string]File)
	var entries []object.TreeEntry
	for path, file := range files {
		name, rest, nested := strings.Cut(path, "/")
		if nested {
			if children[name] == nil {
				children[name] = make(map[string]File)
			}
			children[name][rest] = file
			continue
		}
		mode := file.Mode
		if mode == filemode.Empty {
			mode = filemode.Regular
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: mode, Hash: b.Blob(file.Content)})
	}
	for name, nested := range children {
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: b.Files(nested)})
	}
	return b.Tree(entries...)
}

// Commit stores a commit of tree at when with the given parents.
func (b *Builder) Commit(tree plumbing.Hash, when time.Time, parents ...plumbing.Hash) plumbing.Hash {
	b.t.Helper()
	signature := object.Signature{Name: "Test User", Email: "test@example.com", When: when}
	return b.encode(&object.Commit{
		Author:       signature,
		Committer:    signature,
		Message:      "test commit\n",
		TreeHash:     tree,
		ParentHashes: parents,
	})
}

// Tag stores an annotated tag pointing at target and creates
// refs/tags/<name> for it.
func (b *Builder) Tag(name string, target plumbing.Hash, targetType plumbing.ObjectType) plumbing.Hash {
	b.t.Helper()
	id := b.encode(&object.Tag{
		Name:       name,
		Tagger:     object.Signature{Name: "Test User", Email: "test@example.com", When: Epoch},
		Message:    "tag " + name + "\n",
		TargetType: targetType,
		Target:     target,
	})
	b.SetReference(plumbing.NewTagReferenceName(name), id)
	return id
}

// SetBranch points refs/heads/<name> at id.
func (b *Builder) SetBranch(name string, id plumbing.Hash) {
	b.t.Helper()
	b.SetReference(plumbing.NewBranchReferenceName(name), id)
}

// SetReference points an arbitrary reference at id.
func (b *Builder) SetReference(name plumbing.ReferenceName, id plumbing.Hash) {
	b.t.Helper()
	if err := b.Storer.SetReference(plumbing.NewHashReference(name, id)); err != nil {
		b.t.Fatalf("setting %s: %v", name, err)
	}
}

type encoder interface {
	Encode(plumbing.EncodedObject) error
}

func (b *Builder) encode(value encoder) plumbing.Hash {
	b.t.Helper()
	encoded := b.Storer.NewEncodedObject()
	if err := value.Encode(encoded); err != nil {
		b.t.Fatalf("encoding %T: %v", value, err)
	}
	return b.set(encoded)
}

func (b *Builder) set(encoded plumbing.EncodedObject) plumbing.Hash {
	b.t.Helper()
	id, err := b.Storer.SetEncodedObject(encoded)
	if err != nil {
		b.t.Fatalf("storing %s: %v", encoded.Type(), err)
	}
	return id
}
