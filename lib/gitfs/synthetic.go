// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/bureau-foundation/gitfs/lib/gitstore"
)

// SyntheticTable is an ordered set of root-level files that do not
// exist in the object store. It is filled once before mounting and
// only read afterwards.
type SyntheticTable struct {
	entries []*Synthetic
}

// TreeIDName returns the name of the file holding the mounted tree ID.
func TreeIDName(program string) string {
	return "." + program + "-tree-id"
}

// CommitIDName returns the name of the file holding the commit ID.
func CommitIDName(program string) string {
	return "." + program + "-commit-id"
}

// NewIDTable returns the table of ID files for a resolution: the tree
// ID always, the commit ID only when the revision went through a commit.
func NewIDTable(program string, resolution *gitstore.Resolution) *SyntheticTable {
	table := &SyntheticTable{}
	table.Add(TreeIDName(program), idContent(resolution.TreeID))
	if resolution.HasCommit() {
		table.Add(CommitIDName(program), idContent(resolution.CommitID))
	}
	return table
}

func idContent(id plumbing.Hash) []byte {
	return []byte(id.String() + "\n")
}

// Add appends an entry. Adding a name twice replaces the content and
// keeps its position.
func (t *SyntheticTable) Add(name string, content []byte) {
	for _, existing := range t.entries {
		if existing.Name == name {
			existing.Content = content
			return
		}
	}
	t.entries = append(t.entries, &Synthetic{Name: name, Content: content})
}

// Len returns the number of entries. A nil table is empty.
func (t *SyntheticTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the entries in insertion order.
func (t *SyntheticTable) Entries() []*Synthetic {
	if t == nil {
		return nil
	}
	return t.entries
}

// lookupPath matches exactly "/<name>".
func (t *SyntheticTable) lookupPath(path string) (*Synthetic, bool) {
	name, ok := strings.CutPrefix(path, "/")
	if !ok || t == nil {
		return nil, false
	}
	for _, entry := range t.entries {
		if entry.Name == name {
			return entry, true
		}
	}
	return nil, false
}

func (t *SyntheticTable) clear() {
	if t == nil {
		return
	}
	for _, entry := range t.entries {
		entry.Content = nil
	}
	t.entries = nil
}
