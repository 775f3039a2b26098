// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testIdentity pins author and committer so commits are reproducible.
var testIdentity = []string{
	"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@test.local",
	"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@test.local",
	"GIT_AUTHOR_DATE=2025-01-01T00:00:00Z", "GIT_COMMITTER_DATE=2025-01-01T00:00:00Z",
	"GIT_CONFIG_NOSYSTEM=1", "HOME=/nonexistent",
}

func requireGit(t *testing.T) {
	t.Helper()
	if !Available() {
		t.Skip("skipping: git not installed")
	}
}

// initRepo creates a working tree with one commit on main.
func initRepo(t *testing.T) *Repository {
	t.Helper()
	requireGit(t)

	dir := t.TempDir()
	repo := NewRepository(dir, testIdentity...)
	ctx := context.Background()
	if _, err := repo.Run(ctx, "init", "--quiet", "--initial-branch=main"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("test\n"), 0o644); err != nil {
		t.Fatalf("write README: %v", err)
	}
	if _, err := repo.Run(ctx, "add", "README"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := repo.Run(ctx, "commit", "--quiet", "-m", "initial"); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return repo
}

func TestRepositoryRevParse(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	ctx := context.Background()

	commit, err := repo.RevParse(ctx, "HEAD")
	if err != nil {
		t.Fatalf("RevParse(HEAD): %v", err)
	}
	if len(commit) != 40 {
		t.Errorf("RevParse(HEAD) = %q, want a full object ID", commit)
	}

	tree, err := repo.TreeOf(ctx, "main")
	if err != nil {
		t.Fatalf("TreeOf(main): %v", err)
	}
	if tree == commit || len(tree) != 40 {
		t.Errorf("TreeOf(main) = %q, commit %q", tree, commit)
	}
}

func TestRepositoryRevParseUnknown(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)

	if _, err := repo.RevParse(context.Background(), "no-such-branch"); err == nil {
		t.Fatal("RevParse succeeded for an unknown revision")
	}
}

func TestRepositoryRunErrorNamesDirectory(t *testing.T) {
	t.Parallel()
	requireGit(t)

	dir := filepath.Join(t.TempDir(), "absent")
	_, err := NewRepository(dir).Run(context.Background(), "status")
	if err == nil {
		t.Fatal("Run succeeded in a nonexistent directory")
	}
	if !strings.Contains(err.Error(), dir) {
		t.Errorf("error = %v, want to contain repository dir %q", err, dir)
	}
}

func TestRepositoryDir(t *testing.T) {
	if got := NewRepository("/some/dir").Dir(); got != "/some/dir" {
		t.Errorf("Dir() = %q", got)
	}
}
