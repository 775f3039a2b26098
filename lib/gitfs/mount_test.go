// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"testing"
	"time"

	"github.com/bureau-foundation/gitfs/lib/gitstore"
	"github.com/bureau-foundation/gitfs/lib/gitstore/gitstoretest"
	"github.com/bureau-foundation/gitfs/lib/testutil"
	"github.com/bureau-foundation/gitfs/sandbox"
)

// testMount mounts standardFiles at a fresh mountpoint without
// isolation. The mount is removed when the test ends.
func testMount(t *testing.T) (string, *fixture) {
	t.Helper()
	testutil.RequireFUSE(t)

	f := newFixture(t, standardFiles, "", nil)
	mountpoint := testutil.Mountpoint(t)

	server, err := Mount(f.fs, MountOptions{
		Mountpoint: mountpoint,
		FsName:     "test-repository",
		Program:    testProgram,
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	t.Cleanup(func() {
		drained := make(chan struct{})
		go func() {
			server.Wait()
			close(drained)
		}()
		if err := server.Unmount(); err != nil {
			t.Errorf("Unmount: %v", err)
		}
		testutil.RequireClosed(t, drained, 10*time.Second, "server draining after unmount")
	})
	return mountpoint, f
}

func TestMountListsRoot(t *testing.T) {
	mountpoint, _ := testMount(t)

	entries, err := os.ReadDir(mountpoint)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var got []string
	for _, entry := range entries {
		got = append(got, entry.Name())
	}
	want := []string{".gitfs-commit-id", ".gitfs-tree-id", "README", "bin", "docs", "legacy"}
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entries = %v, want %v", got, want)
			break
		}
	}
}

func TestMountReadsFiles(t *testing.T) {
	mountpoint, f := testMount(t)

	content, err := os.ReadFile(filepath.Join(mountpoint, "docs", "guide.md"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(content, []byte("# Guide\n")) {
		t.Errorf("guide.md = %q", content)
	}

	commitID, err := os.ReadFile(filepath.Join(mountpoint, ".gitfs-commit-id"))
	if err != nil {
		t.Fatalf("ReadFile commit-id: %v", err)
	}
	if string(commitID) != f.commit.String()+"\n" {
		t.Errorf("commit-id = %q", commitID)
	}
}

func TestMountModesAndTimes(t *testing.T) {
	mountpoint, _ := testMount(t)

	info, err := os.Stat(filepath.Join(mountpoint, "bin", "run"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o755 || !info.Mode().IsRegular() {
		t.Errorf("bin/run mode = %v", info.Mode())
	}
	if !info.ModTime().Equal(gitstoretest.Epoch) {
		t.Errorf("bin/run mtime = %v, want %v", info.ModTime(), gitstoretest.Epoch)
	}

	link, err := os.Lstat(filepath.Join(mountpoint, "docs", "latest"))
	if err != nil {
		t.Fatalf("Lstat: %v", err)
	}
	if link.Mode()&os.ModeSymlink == 0 {
		t.Errorf("docs/latest mode = %v, want a symlink", link.Mode())
	}
	target, err := os.Readlink(filepath.Join(mountpoint, "docs", "latest"))
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != "guide.md" {
		t.Errorf("docs/latest -> %q, want guide.md", target)
	}
}

func TestMountErrnos(t *testing.T) {
	mountpoint, _ := testMount(t)

	if _, err := os.Stat(filepath.Join(mountpoint, "vendor")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Stat(vendor) = %v, want not-exist for a submodule", err)
	}

	_, err := os.OpenFile(filepath.Join(mountpoint, "README"), os.O_WRONLY, 0)
	if !errors.Is(err, syscall.EROFS) && !errors.Is(err, syscall.EACCES) {
		t.Errorf("open for writing = %v, want EROFS or EACCES", err)
	}

	if err := os.WriteFile(filepath.Join(mountpoint, "new"), []byte("x"), 0o644); err == nil {
		t.Error("creating a file on the read-only mount succeeded")
	}
}

// mountExpectingInitFailure mounts filesystem, which must fail Init,
// and checks that Mount returns promptly with a sandbox error and
// leaves nothing mounted.
func mountExpectingInitFailure(t *testing.T, filesystem *Filesystem) {
	t.Helper()
	mountpoint := testutil.Mountpoint(t)

	var (
		server *Server
		err    error
	)
	returned := make(chan struct{})
	go func() {
		server, err = Mount(filesystem, MountOptions{Mountpoint: mountpoint, Program: testProgram})
		close(returned)
	}()
	testutil.RequireClosed(t, returned, 10*time.Second, "Mount returning after failed init")

	if err == nil {
		server.Unmount()
		server.Wait()
		t.Fatal("Mount succeeded although Init failed")
	}
	if !IsSandboxError(err) {
		t.Errorf("Mount error %v is not a sandbox error", err)
	}

	entries, err := os.ReadDir(mountpoint)
	if err != nil {
		t.Fatalf("ReadDir after failed mount: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("mountpoint still shows %d entries after failed init", len(entries))
	}
}

func TestMountIsolationFailureUnmounts(t *testing.T) {
	testutil.RequireFUSE(t)

	f := newFixture(t, standardFiles, "", func(options *Options) {
		options.Isolator = failingIsolator{}
	})
	mountExpectingInitFailure(t, f.fs)
}

func TestMountReopenFailureAfterIsolationUnmounts(t *testing.T) {
	testutil.RequireFUSE(t)

	builder := gitstoretest.NewBare(t, t.TempDir())
	tree := builder.Files(standardFiles)
	builder.SetBranch(gitstoretest.DefaultBranch, builder.Commit(tree, gitstoretest.Epoch))
	repo, err := gitstore.Open(builderPath(t, builder), gitstore.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	resolution, err := repo.Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	isolator, err := sandbox.New(sandbox.ModeNone, nil)
	if err != nil {
		t.Fatalf("sandbox.New: %v", err)
	}

	isolated := false
	filesystem, err := New(Options{
		Program:    testProgram,
		Repository: repo,
		Resolution: resolution,
		Isolator:   isolator,
		Reopen: func(string) (*gitstore.Repository, error) {
			isolated = true
			return gitstore.OpenObjects(t.TempDir(), gitstore.Options{})
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(filesystem.Destroy)

	mountExpectingInitFailure(t, filesystem)
	if !isolated {
		t.Error("Init failed before the isolator returned")
	}
}

func TestMountRequiresOptions(t *testing.T) {
	f := newFixture(t, standardFiles, "", nil)
	if _, err := Mount(f.fs, MountOptions{Program: testProgram}); err == nil {
		t.Error("Mount without a mountpoint succeeded")
	}
	if _, err := Mount(f.fs, MountOptions{Mountpoint: t.TempDir()}); err == nil {
		t.Error("Mount without a program name succeeded")
	}
}
