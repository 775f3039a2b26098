// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/bureau-foundation/gitfs/lib/gitstore"
)

func TestIDNames(t *testing.T) {
	if got := TreeIDName("gitfs"); got != ".gitfs-tree-id" {
		t.Errorf("TreeIDName = %q", got)
	}
	if got := CommitIDName("mygit"); got != ".mygit-commit-id" {
		t.Errorf("CommitIDName = %q", got)
	}
}

func TestNewIDTable(t *testing.T) {
	tree := plumbing.NewHash("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	commit := plumbing.NewHash("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	withCommit := NewIDTable("gitfs", &gitstore.Resolution{TreeID: tree, CommitID: commit, Time: time.Now()})
	entries := withCommit.Entries()
	if len(entries) != 2 {
		t.Fatalf("commit table has %d entries, want 2", len(entries))
	}
	if entries[0].Name != ".gitfs-tree-id" || string(entries[0].Content) != tree.String()+"\n" {
		t.Errorf("first entry = %s %q", entries[0].Name, entries[0].Content)
	}
	if entries[1].Name != ".gitfs-commit-id" || string(entries[1].Content) != commit.String()+"\n" {
		t.Errorf("second entry = %s %q", entries[1].Name, entries[1].Content)
	}

	treeOnly := NewIDTable("gitfs", &gitstore.Resolution{TreeID: tree})
	if treeOnly.Len() != 1 || treeOnly.Entries()[0].Name != ".gitfs-tree-id" {
		t.Errorf("tree table = %v", treeOnly.Entries())
	}
}

func TestSyntheticTableLookupPath(t *testing.T) {
	table := &SyntheticTable{}
	table.Add("one", []byte("1"))
	table.Add("two", []byte("2"))
	table.Add("one", []byte("uno"))

	if table.Len() != 2 {
		t.Fatalf("Len = %d, want 2", table.Len())
	}
	if table.Entries()[0].Name != "one" || string(table.Entries()[0].Content) != "uno" {
		t.Errorf("re-added entry moved or kept old content: %+v", table.Entries()[0])
	}

	tests := []struct {
		path string
		want bool
	}{
		{"/one", true},
		{"/two", true},
		{"one", false},
		{"//one", false},
		{"/one/", false},
		{"/dir/one", false},
		{"/three", false},
	}
	for _, test := range tests {
		if _, ok := table.lookupPath(test.path); ok != test.want {
			t.Errorf("lookupPath(%q) = %v, want %v", test.path, ok, test.want)
		}
	}

	var empty *SyntheticTable
	if empty.Len() != 0 || empty.Entries() != nil {
		t.Error("nil table is not empty")
	}
	if _, ok := empty.lookupPath("/one"); ok {
		t.Error("nil table matched a path")
	}
}
