// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gitstore

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/filesystem/dotgit"
	platformerrors "github.com/jmgilman/go/errors"

	"github.com/bureau-foundation/gitfs/lib/clock"
)

// DefaultRevision is resolved when no revision is given.
const DefaultRevision = "HEAD"

// Options configures a Repository.
type Options struct {
	// Clock stamps trees mounted without a commit. If nil, defaults
	// to clock.Real().
	Clock clock.Clock

	// Logger receives diagnostic messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// Repository is an opened git object store.
type Repository struct {
	// path is the directory the repository was opened from (worktree
	// or bare directory).
	path string

	// gitDir holds HEAD and per-worktree refs. objectsDir holds the
	// object database; it differs from gitDir only for linked
	// worktrees, where it is the common directory.
	gitDir     string
	objectsDir string

	storer storage.Storer
	repo   *gogit.Repository
	closer func() error

	clock  clock.Clock
	logger *slog.Logger
}

// Open opens the repository at path. path may be a worktree whose
// .git is a directory, a linked worktree whose .git is a "gitdir:"
// pointer file, or a bare repository.
func Open(path string, options Options) (*Repository, error) {
	options.applyDefaults()

	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, platformerrors.Wrapf(err, platformerrors.CodeInvalidInput, "resolving repository path %q", path)
	}
	info, err := os.Stat(absolute)
	if err != nil {
		return nil, platformerrors.Wrapf(err, platformerrors.CodeNotFound, "repository path %s", absolute)
	}
	if !info.IsDir() {
		return nil, platformerrors.Newf(platformerrors.CodeInvalidInput, "repository path %s is not a directory", absolute)
	}

	gitDir, err := locateGitDir(absolute)
	if err != nil {
		return nil, err
	}
	objectsDir, err := locateCommonDir(gitDir)
	if err != nil {
		return nil, err
	}

	var root billy.Filesystem = osfs.New(gitDir)
	if objectsDir != gitDir {
		root = dotgit.NewRepositoryFilesystem(osfs.New(gitDir), osfs.New(objectsDir))
	}
	fsStorage := filesystem.NewStorage(root, cache.NewObjectLRUDefault())

	repo, err := gogit.Open(fsStorage, nil)
	if err != nil {
		fsStorage.Close()
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, platformerrors.Wrapf(err, platformerrors.CodeNotFound, "no git repository at %s", absolute)
		}
		return nil, platformerrors.Wrapf(err, CodeIO, "opening repository at %s", absolute)
	}

	options.Logger.Debug("repository opened",
		"path", absolute,
		"git_dir", gitDir,
		"objects_dir", objectsDir,
	)

	return &Repository{
		path:       absolute,
		gitDir:     gitDir,
		objectsDir: objectsDir,
		storer:     fsStorage,
		repo:       repo,
		closer:     fsStorage.Close,
		clock:      options.Clock,
		logger:     options.Logger,
	}, nil
}

// OpenObjects opens only the object database rooted at dir. It is
// used after isolation, when dir is the new filesystem root and only
// lookups by ID are needed. Revision resolution is unavailable on the
// result.
func OpenObjects(dir string, options Options) (*Repository, error) {
	options.applyDefaults()

	info, err := os.Stat(filepath.Join(dir, "objects"))
	if err != nil || !info.IsDir() {
		return nil, platformerrors.Newf(CodeIO, "no object database under %s", dir)
	}

	fsStorage := filesystem.NewStorage(osfs.New(dir), cache.NewObjectLRUDefault())
	return &Repository{
		path:       dir,
		gitDir:     dir,
		objectsDir: dir,
		storer:     fsStorage,
		closer:     fsStorage.Close,
		clock:      options.Clock,
		logger:     options.Logger,
	}, nil
}

// New wraps an existing go-git storer, such as an in-memory storage.
// The storer must contain HEAD.
func New(storer storage.Storer, options Options) (*Repository, error) {
	options.applyDefaults()

	repo, err := gogit.Open(storer, nil)
	if err != nil {
		return nil, platformerrors.Wrap(err, CodeIO, "opening repository storage")
	}
	return &Repository{
		storer: storer,
		repo:   repo,
		clock:  options.Clock,
		logger: options.Logger,
	}, nil
}

// Path returns the directory the repository was opened from.
func (r *Repository) Path() string {
	return r.path
}

// ObjectsDir returns the directory holding the object database. This
// is the isolation target: after chroot into it, OpenObjects("/")
// reaches every object the mount can serve.
func (r *Repository) ObjectsDir() string {
	return r.objectsDir
}

// Tree loads the tree with the given ID.
func (r *Repository) Tree(id plumbing.Hash) (*object.Tree, error) {
	tree, err := object.GetTree(r.storer, id)
	if err != nil {
		return nil, platformerrors.Wrapf(err, CodeIO, "loading tree %s", id)
	}
	return tree, nil
}

// Blob loads the blob with the given ID.
func (r *Repository) Blob(id plumbing.Hash) (*object.Blob, error) {
	blob, err := object.GetBlob(r.storer, id)
	if err != nil {
		return nil, platformerrors.Wrapf(err, CodeIO, "loading blob %s", id)
	}
	return blob, nil
}

// Close releases open pack files. The Repository must not be used
// afterwards. Close is idempotent.
func (r *Repository) Close() error {
	if r.closer == nil {
		return nil
	}
	closer := r.closer
	r.closer = nil
	r.repo = nil
	r.storer = nil
	return closer()
}

// locateGitDir returns the git directory for a worktree or bare
// repository at path.
func locateGitDir(path string) (string, error) {
	dotGit := filepath.Join(path, gogit.GitDirName)
	info, err := os.Stat(dotGit)
	switch {
	case err == nil && info.IsDir():
		return dotGit, nil
	case err == nil:
		return readGitDirPointer(dotGit)
	case errors.Is(err, os.ErrNotExist):
		// Bare repository: the object database lives in path itself.
		return path, nil
	default:
		return "", platformerrors.Wrapf(err, CodeIO, "inspecting %s", dotGit)
	}
}

// readGitDirPointer parses a ".git" file of the form "gitdir: <path>".
func readGitDirPointer(pointerPath string) (string, error) {
	target, err := readFirstLine(pointerPath)
	if err != nil {
		return "", platformerrors.Wrapf(err, CodeIO, "reading %s", pointerPath)
	}
	const prefix = "gitdir: "
	if !strings.HasPrefix(target, prefix) {
		return "", platformerrors.Newf(platformerrors.CodeInvalidInput, "%s is not a gitdir pointer", pointerPath)
	}
	gitDir := strings.TrimPrefix(target, prefix)
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(filepath.Dir(pointerPath), gitDir)
	}
	return filepath.Clean(gitDir), nil
}

// locateCommonDir follows a linked worktree's "commondir" file to the
// directory holding shared objects and refs. Ordinary git directories
// have no commondir and are their own common directory.
func locateCommonDir(gitDir string) (string, error) {
	commonPath := filepath.Join(gitDir, "commondir")
	target, err := readFirstLine(commonPath)
	if errors.Is(err, os.ErrNotExist) {
		return gitDir, nil
	}
	if err != nil {
		return "", platformerrors.Wrapf(err, CodeIO, "reading %s", commonPath)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(gitDir, target)
	}
	return filepath.Clean(target), nil
}

func readFirstLine(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%s is empty", path)
	}
	return strings.TrimSpace(scanner.Text()), nil
}
