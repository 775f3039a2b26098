// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gitstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/gitfs/lib/git"
)

var gitIdentity = []string{
	"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@test.local",
	"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@test.local",
	"GIT_AUTHOR_DATE=2025-01-01T00:00:00Z", "GIT_COMMITTER_DATE=2025-01-01T00:00:00Z",
	"GIT_CONFIG_NOSYSTEM=1", "HOME=/nonexistent",
}

// gitScript runs each command in repo, failing the test on error.
func gitScript(t *testing.T, repo *git.Repository, commands ...[]string) {
	t.Helper()
	for _, args := range commands {
		if _, err := repo.Run(context.Background(), args...); err != nil {
			t.Fatalf("%v", err)
		}
	}
}

// cliRepository builds, with the git binary, a repository holding two
// commits on main, an annotated tag, packed objects and a linked
// worktree on branch side. It returns the main worktree and the linked
// worktree.
func cliRepository(t *testing.T) (*git.Repository, *git.Repository) {
	t.Helper()
	if !git.Available() {
		t.Skip("skipping: git not installed")
	}

	dir := t.TempDir()
	primary := git.NewRepository(filepath.Join(dir, "main"), gitIdentity...)
	if err := os.Mkdir(primary.Dir(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(primary.Dir(), "README"), "first\n")
	gitScript(t, primary,
		[]string{"init", "--quiet", "--initial-branch=main"},
		[]string{"add", "README"},
		[]string{"commit", "--quiet", "-m", "first"},
		[]string{"tag", "-a", "-m", "release", "v1"},
	)
	writeFile(t, filepath.Join(primary.Dir(), "README"), "second\n")
	writeFile(t, filepath.Join(primary.Dir(), "bin", "tool"), "#!/bin/sh\n")
	gitScript(t, primary,
		[]string{"add", "README", "bin/tool"},
		[]string{"commit", "--quiet", "-m", "second"},
		[]string{"gc", "--quiet"},
	)

	linked := git.NewRepository(filepath.Join(dir, "linked"), gitIdentity...)
	gitScript(t, primary, []string{"worktree", "add", "--quiet", "-b", "side", linked.Dir(), "v1"})
	writeFile(t, filepath.Join(linked.Dir(), "SIDE"), "side\n")
	gitScript(t, linked,
		[]string{"add", "SIDE"},
		[]string{"commit", "--quiet", "-m", "side"},
	)
	return primary, linked
}

func TestResolveMatchesGitCLI(t *testing.T) {
	primary, _ := cliRepository(t)
	ctx := context.Background()

	repo, err := Open(primary.Dir(), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer repo.Close()

	head, err := primary.RevParse(ctx, "HEAD")
	if err != nil {
		t.Fatalf("rev-parse HEAD: %v", err)
	}
	firstTree, err := primary.TreeOf(ctx, "v1")
	if err != nil {
		t.Fatalf("rev-parse v1^{tree}: %v", err)
	}

	for _, rev := range []string{"HEAD", "main", "v1", "HEAD~1", "main^", "side", head, head[:7], firstTree} {
		want, err := primary.TreeOf(ctx, rev)
		if err != nil {
			t.Fatalf("git tree of %s: %v", rev, err)
		}
		resolution, err := repo.Resolve(rev)
		if err != nil {
			t.Errorf("Resolve(%s): %v", rev, err)
			continue
		}
		if resolution.TreeID.String() != want {
			t.Errorf("Resolve(%s) tree = %s, git says %s", rev, resolution.TreeID, want)
		}
	}
}

func TestOpenLinkedWorktreeMatchesGitCLI(t *testing.T) {
	primary, linked := cliRepository(t)
	ctx := context.Background()

	repo, err := Open(linked.Dir(), Options{})
	if err != nil {
		t.Fatalf("Open(linked): %v", err)
	}
	defer repo.Close()

	want, err := linked.TreeOf(ctx, "HEAD")
	if err != nil {
		t.Fatalf("git tree of linked HEAD: %v", err)
	}
	resolution, err := repo.Resolve("")
	if err != nil {
		t.Fatalf("Resolve(HEAD): %v", err)
	}
	if resolution.TreeID.String() != want {
		t.Errorf("linked HEAD tree = %s, git says %s", resolution.TreeID, want)
	}

	common, err := filepath.EvalSymlinks(filepath.Join(primary.Dir(), ".git"))
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	objectsDir, err := filepath.EvalSymlinks(repo.ObjectsDir())
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	if objectsDir != common {
		t.Errorf("ObjectsDir = %s, want the common directory %s", objectsDir, common)
	}

	// The isolated view sees packed and loose objects alike.
	isolated, err := OpenObjects(repo.ObjectsDir(), Options{})
	if err != nil {
		t.Fatalf("OpenObjects: %v", err)
	}
	defer isolated.Close()
	if _, err := isolated.Tree(resolution.TreeID); err != nil {
		t.Errorf("tree %s not reachable through the object database: %v", resolution.TreeID, err)
	}
}
