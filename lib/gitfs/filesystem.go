// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	platformerrors "github.com/jmgilman/go/errors"

	"github.com/bureau-foundation/gitfs/lib/gitstore"
	"github.com/bureau-foundation/gitfs/sandbox"
)

// DefaultMaxBlobSize bounds the size of a blob read into memory at open.
const DefaultMaxBlobSize int64 = 1 << 30

// DirectorySize is the st_size reported for every directory.
const DirectorySize = 4096

const (
	modeDir     = syscall.S_IFDIR
	modeRegular = syscall.S_IFREG
	modeSymlink = syscall.S_IFLNK
)

// Options configures a Filesystem.
type Options struct {
	// Program names the synthetic ID files (".<program>-tree-id").
	// Required unless NoIDFiles is set.
	Program string

	// Repository is the opened object store. The Filesystem takes
	// ownership and closes it on Destroy or when Init replaces it.
	Repository *gitstore.Repository

	// Resolution is the tree to serve.
	Resolution *gitstore.Resolution

	// NoIDFiles suppresses the synthetic ID files at the root.
	NoIDFiles bool

	// MaxBlobSize bounds blobs read at open; larger blobs fail with
	// CodeNoMemory. Zero means DefaultMaxBlobSize.
	MaxBlobSize int64

	// Isolator confines the process during Init. If nil, Init keeps
	// the repository it was given.
	Isolator sandbox.Isolator

	// Reopen opens the object database at the root Isolate returned.
	// If nil, defaults to gitstore.OpenObjects.
	Reopen func(root string) (*gitstore.Repository, error)

	// Logger receives lifecycle messages. If nil, a default
	// error-level logger writing to stderr is used.
	Logger *slog.Logger
}

// Attr is the metadata reported for an entry.
type Attr struct {
	Mode  uint32
	Size  uint64
	Nlink uint32
	UID   uint32
	GID   uint32

	// Time is used for atime, mtime and ctime alike.
	Time time.Time
}

// DirEntry is one line of a directory listing. Mode carries only the
// file type bits.
type DirEntry struct {
	Name string
	Mode uint32
}

// FillFunc receives a listing entry and the offset at which to resume
// after it. Returning false stops the listing.
type FillFunc func(entry DirEntry, next uint64) bool

// Filesystem serves one resolved tree. It holds all per-mount state;
// nothing is global. Methods are not safe for concurrent use: the
// FUSE server dispatches requests one at a time.
type Filesystem struct {
	repo      *gitstore.Repository
	root      *object.Tree
	treeID    plumbing.Hash
	time      time.Time
	synthetic *SyntheticTable

	maxBlobSize int64
	uid, gid    uint32

	isolator sandbox.Isolator
	reopen   func(root string) (*gitstore.Repository, error)
	logger   *slog.Logger

	destroyed bool
}

// New returns a Filesystem serving options.Resolution.
func New(options Options) (*Filesystem, error) {
	if options.Repository == nil {
		return nil, platformerrors.New(platformerrors.CodeInvalidInput, "gitfs: Repository is required")
	}
	if options.Resolution == nil || options.Resolution.Tree == nil {
		return nil, platformerrors.New(platformerrors.CodeInvalidInput, "gitfs: Resolution with a tree is required")
	}
	if options.Program == "" && !options.NoIDFiles {
		return nil, platformerrors.New(platformerrors.CodeInvalidInput, "gitfs: Program is required for ID files")
	}
	if options.MaxBlobSize == 0 {
		options.MaxBlobSize = DefaultMaxBlobSize
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}

	synthetic := &SyntheticTable{}
	if !options.NoIDFiles {
		synthetic = NewIDTable(options.Program, options.Resolution)
	}

	logger := options.Logger
	reopen := options.Reopen
	if reopen == nil {
		reopen = func(root string) (*gitstore.Repository, error) {
			return gitstore.OpenObjects(root, gitstore.Options{Logger: logger})
		}
	}

	return &Filesystem{
		repo:        options.Repository,
		root:        options.Resolution.Tree,
		treeID:      options.Resolution.TreeID,
		time:        options.Resolution.Time,
		synthetic:   synthetic,
		maxBlobSize: options.MaxBlobSize,
		uid:         uint32(os.Getuid()),
		gid:         uint32(os.Getgid()),
		isolator:    options.Isolator,
		reopen:      reopen,
		logger:      logger,
	}, nil
}

// Init confines the process and re-opens the repository inside the new
// root. It runs after the kernel mount and before the first request is
// served. Any error is fatal to the session.
func (f *Filesystem) Init() error {
	if f.isolator == nil {
		return nil
	}

	objectsDir := f.repo.ObjectsDir()
	root, err := f.isolator.Isolate(objectsDir)
	if err != nil {
		return platformerrors.Wrapf(err, CodeSandbox, "isolating to %s", objectsDir)
	}

	// Pack files opened through the host view are closed; everything
	// from here on is read through the confined root.
	if err := f.repo.Close(); err != nil {
		f.logger.Warn("closing repository before re-open", "error", err)
	}
	f.repo = nil
	f.root = nil

	repo, err := f.reopen(root)
	if err != nil {
		return platformerrors.Wrapf(err, CodeSandbox, "re-opening repository at %s", root)
	}
	tree, err := repo.Tree(f.treeID)
	if err != nil {
		repo.Close()
		return platformerrors.Wrapf(err, CodeSandbox, "re-resolving tree %s", f.treeID)
	}

	f.repo = repo
	f.root = tree
	f.logger.Info("repository re-opened in sandbox",
		"mode", string(f.isolator.Mode()),
		"root", root,
		"tree", f.treeID.String(),
	)
	return nil
}

// Destroy releases the tree, the repository and the synthetic files.
// Calling it more than once is a no-op.
func (f *Filesystem) Destroy() {
	if f.destroyed {
		return
	}
	f.destroyed = true

	f.root = nil
	f.synthetic.clear()
	if f.repo != nil {
		if err := f.repo.Close(); err != nil {
			f.logger.Warn("closing repository", "error", err)
		}
		f.repo = nil
	}
}

// Getattr reports an entry's metadata.
func (f *Filesystem) Getattr(path string) (Attr, error) {
	entry, err := f.lookup(path)
	if err != nil {
		return Attr{}, err
	}
	return f.attr(entry), nil
}

func (f *Filesystem) attr(entry Entry) Attr {
	attr := Attr{UID: f.uid, GID: f.gid, Time: f.time, Nlink: 1}
	switch typed := entry.(type) {
	case *Directory:
		attr.Mode = modeDir | 0o755
		attr.Size = DirectorySize
		attr.Nlink = 2
	case *File:
		attr.Size = uint64(typed.Blob.Size)
		if typed.IsSymlink() {
			attr.Mode = modeSymlink | 0o777
		} else {
			// Git modes use the POSIX type and permission layout.
			attr.Mode = uint32(typed.Mode)
		}
	case *Synthetic:
		attr.Mode = modeRegular | 0o444
		attr.Size = uint64(len(typed.Content))
	}
	return attr
}

// Readdir lists a directory handle from offset. Entry i of the tree
// resumes at i+1; entries that are never listed still use their slot,
// so offsets stay stable across calls. The root's synthetic files
// follow the tree entries.
func (f *Filesystem) Readdir(handle *Handle, offset uint64, fill FillFunc) error {
	directory, ok := handle.Entry().(*Directory)
	if !ok {
		return ioError("readdir on a handle that is not a directory")
	}

	entries := directory.Tree.Entries
	count := uint64(len(entries))
	for index := offset; index < count; index++ {
		child := entries[index]
		mode, ok := listable(child.Mode)
		if !ok {
			continue
		}
		if !fill(DirEntry{Name: child.Name, Mode: mode}, index+1) {
			return nil
		}
	}

	if !directory.IsRoot() {
		return nil
	}
	for position, synthetic := range f.synthetic.Entries() {
		index := count + uint64(position)
		if index < offset {
			continue
		}
		if shadowsSynthetic(directory.Tree, synthetic.Name) {
			continue
		}
		if !fill(DirEntry{Name: synthetic.Name, Mode: modeRegular}, index+1) {
			return nil
		}
	}
	return nil
}

// shadowsSynthetic reports whether the tree lists an entry called
// name. Entries that are never listed, such as submodules, are also
// invisible to lookup, so the synthetic file stays reachable.
func shadowsSynthetic(tree *object.Tree, name string) bool {
	child, ok := findEntry(tree, name)
	if !ok {
		return false
	}
	_, listed := listable(child.Mode)
	return listed
}

// Read copies file content at offset into dest. Reads at or past the
// end return 0; reads overlapping the end are truncated.
func (f *Filesystem) Read(handle *Handle, dest []byte, offset int64) (int, error) {
	var content []byte
	switch typed := handle.Entry().(type) {
	case *File:
		if !typed.IsRegular() {
			return 0, ioError("read on %s: not a regular file", typed.Name)
		}
		content = handle.content
	case *Synthetic:
		content = typed.Content
	default:
		return 0, ioError("read on a handle that is not a file")
	}

	if offset < 0 {
		return 0, ioError("read at negative offset %d", offset)
	}
	if offset >= int64(len(content)) {
		return 0, nil
	}
	return copy(dest, content[offset:]), nil
}

// Readlink copies a symlink's target into buf followed by a NUL byte.
// Targets longer than len(buf)-1 are truncated. The returned count
// excludes the NUL.
func (f *Filesystem) Readlink(path string, buf []byte) (int, error) {
	entry, err := f.lookup(path)
	if err != nil {
		return 0, err
	}
	file, ok := entry.(*File)
	if !ok || !file.IsSymlink() {
		return 0, ioError("%s: not a symbolic link", path)
	}
	if len(buf) == 0 {
		return 0, nil
	}

	target, err := f.readBlob(file.Blob)
	if err != nil {
		return 0, err
	}
	n := copy(buf[:len(buf)-1], target)
	buf[n] = 0
	return n, nil
}

// IsSandboxError reports whether err came from Init.
func IsSandboxError(err error) bool {
	return platformerrors.GetCode(err) == CodeSandbox
}
