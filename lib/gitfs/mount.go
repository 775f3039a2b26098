// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// DefaultCacheTimeout is how long the kernel caches entries, negative
// lookups and attributes. The tree never changes while mounted.
const DefaultCacheTimeout = 24 * time.Hour

// linkCapacity is the buffer offered to Readlink, including the NUL.
const linkCapacity = 4096

// readdirBatch is how many entries a directory stream fetches per
// Readdir call.
const readdirBatch = 64

// MountOptions configures the FUSE mount of a Filesystem.
type MountOptions struct {
	// Mountpoint is the directory to mount on. It must exist.
	Mountpoint string

	// FsName is the mount source shown in /proc/mounts, normally the
	// repository path.
	FsName string

	// Program becomes the filesystem type label "fuse.<Program>".
	Program string

	// CacheTimeout is the kernel entry, negative and attribute cache
	// lifetime. Zero means DefaultCacheTimeout.
	CacheTimeout time.Duration

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// ExtraOptions are passed to the kernel mount after the fixed
	// read-only policy options.
	ExtraOptions []string

	// Debug enables go-fuse protocol tracing.
	Debug bool

	// Logger receives diagnostic messages. If nil, a default
	// error-level logger writing to stderr is used.
	Logger *slog.Logger
}

// Server is a mounted, serving Filesystem.
type Server struct {
	server     *fuse.Server
	filesystem *Filesystem
	mountpoint string
	logger     *slog.Logger
}

// Mount mounts filesystem, runs its Init, and starts serving. If Init
// fails the mount is removed before any request is answered and the
// Init error is returned. The caller must eventually call Wait.
func Mount(filesystem *Filesystem, options MountOptions) (*Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Program == "" {
		return nil, fmt.Errorf("program name is required")
	}
	if options.CacheTimeout == 0 {
		options.CacheTimeout = DefaultCacheTimeout
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	root := &node{filesystem: filesystem, path: "/", logger: options.Logger}

	timeout := options.CacheTimeout
	rawFS := gofuse.NewNodeFS(root, &gofuse.Options{
		EntryTimeout:    &timeout,
		AttrTimeout:     &timeout,
		NegativeTimeout: &timeout,
	})

	mountOptions := fuse.MountOptions{
		FsName:         options.FsName,
		Name:           options.Program,
		Options:        append([]string{"ro", "default_permissions"}, options.ExtraOptions...),
		AllowOther:     options.AllowOther,
		SingleThreaded: true,
		Debug:          options.Debug,
	}

	// The kernel mount happens here, while fusermount is still
	// reachable on the host filesystem.
	server, err := fuse.NewServer(rawFS, options.Mountpoint, &mountOptions)
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	if err := filesystem.Init(); err != nil {
		abandon(server, filesystem, options.Mountpoint, options.Logger)
		return nil, err
	}

	go server.Serve()
	if err := server.WaitMount(); err != nil {
		server.Unmount()
		filesystem.Destroy()
		return nil, fmt.Errorf("waiting for mount at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("git tree mounted",
		"mountpoint", options.Mountpoint,
		"source", options.FsName,
		"tree", filesystem.treeID.String(),
	)
	return &Server{
		server:     server,
		filesystem: filesystem,
		mountpoint: options.Mountpoint,
		logger:     options.Logger,
	}, nil
}

// abandon tears down a mount whose Init failed. Unmount waits for the
// serve loop, so the loop runs until the kernel lets go; requests in
// between fail with EIO. When isolation succeeded before the failure,
// fusermount is out of reach and the mount is left for the operator;
// the filesystem is then not destroyed, since the loop still uses it.
func abandon(server *fuse.Server, filesystem *Filesystem, mountpoint string, logger *slog.Logger) {
	go server.Serve()
	if err := server.Unmount(); err != nil {
		logger.Error("cannot unmount after failed init",
			"mountpoint", mountpoint,
			"error", err,
			"hint", "detach it with fusermount -u "+mountpoint,
		)
		return
	}
	filesystem.Destroy()
}

// Wait blocks until the filesystem is unmounted, then destroys it.
func (s *Server) Wait() {
	s.server.Wait()
	s.filesystem.Destroy()
	s.logger.Info("git tree unmounted", "mountpoint", s.mountpoint)
}

// Unmount asks the kernel to detach the mount. Serving stops once the
// kernel has released it; Wait then returns.
func (s *Server) Unmount() error {
	if err := s.server.Unmount(); err != nil {
		return fmt.Errorf("unmounting %s: %w", s.mountpoint, err)
	}
	return nil
}

// node is any path in the mounted tree. All behaviour is delegated to
// the Filesystem by path.
type node struct {
	gofuse.Inode
	filesystem *Filesystem
	path       string
	logger     *slog.Logger
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeReadlinker = (*node)(nil)

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	childPath := path.Join(n.path, name)
	attr, err := n.filesystem.Getattr(childPath)
	if err != nil {
		return nil, n.errno("lookup", childPath, err)
	}
	fillAttr(&out.Attr, attr)

	child := &node{filesystem: n.filesystem, path: childPath, logger: n.logger}
	return n.NewInode(ctx, child, gofuse.StableAttr{Mode: attr.Mode & syscall.S_IFMT}), 0
}

func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.filesystem.Getattr(n.path)
	if err != nil {
		return n.errno("getattr", n.path, err)
	}
	fillAttr(&out.Attr, attr)
	return 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	handle, err := n.filesystem.Open(n.path)
	if err != nil {
		return nil, n.errno("opendir", n.path, err)
	}
	return &dirStream{node: n, handle: handle}, 0
}

func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC|syscall.O_APPEND) != 0 {
		return nil, 0, syscall.EROFS
	}
	handle, err := n.filesystem.Open(n.path)
	if err != nil {
		return nil, 0, n.errno("open", n.path, err)
	}
	// Content is immutable, so the kernel page cache stays valid
	// across opens.
	return &fileHandle{node: n, handle: handle}, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	buf := make([]byte, linkCapacity)
	count, err := n.filesystem.Readlink(n.path, buf)
	if err != nil {
		return nil, n.errno("readlink", n.path, err)
	}
	return buf[:count], 0
}

// errno logs err at a level matching its severity and maps it.
func (n *node) errno(operation, path string, err error) syscall.Errno {
	errno := Errno(err)
	if errno == syscall.ENOENT {
		n.logger.Debug(operation+" failed", "path", path, "error", err)
	} else {
		n.logger.Error(operation+" failed", "path", path, "error", err)
	}
	return errno
}

// fileHandle owns a Handle from open to release.
type fileHandle struct {
	node   *node
	handle *Handle
}

var _ gofuse.FileReader = (*fileHandle)(nil)
var _ gofuse.FileReleaser = (*fileHandle)(nil)

func (h *fileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	count, err := h.node.filesystem.Read(h.handle, dest, off)
	if err != nil {
		return nil, h.node.errno("read", h.node.path, err)
	}
	return fuse.ReadResultData(dest[:count]), 0
}

func (h *fileHandle) Release(ctx context.Context) syscall.Errno {
	h.node.filesystem.Release(h.handle)
	return 0
}

// dirStream pages through Filesystem.Readdir, holding one directory
// Handle for the lifetime of the stream.
type dirStream struct {
	node    *node
	handle  *Handle
	offset  uint64
	pending []fuse.DirEntry
	done    bool
	err     syscall.Errno
}

func (s *dirStream) HasNext() bool {
	s.fill()
	return len(s.pending) > 0 || s.err != 0
}

func (s *dirStream) Next() (fuse.DirEntry, syscall.Errno) {
	s.fill()
	if s.err != 0 {
		errno := s.err
		s.err = 0
		return fuse.DirEntry{}, errno
	}
	if len(s.pending) == 0 {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.pending[0]
	s.pending = s.pending[1:]
	return entry, 0
}

func (s *dirStream) Close() {
	s.node.filesystem.Release(s.handle)
}

func (s *dirStream) fill() {
	if len(s.pending) > 0 || s.done {
		return
	}
	count := 0
	err := s.node.filesystem.Readdir(s.handle, s.offset, func(entry DirEntry, next uint64) bool {
		s.pending = append(s.pending, fuse.DirEntry{Name: entry.Name, Mode: entry.Mode})
		s.offset = next
		count++
		return count < readdirBatch
	})
	if err != nil {
		s.err = s.node.errno("readdir", s.node.path, err)
		s.done = true
		return
	}
	if count < readdirBatch {
		s.done = true
	}
}

func fillAttr(out *fuse.Attr, attr Attr) {
	out.Mode = attr.Mode
	out.Size = attr.Size
	out.Blocks = (attr.Size + 511) / 512
	out.Nlink = attr.Nlink
	out.Owner = fuse.Owner{Uid: attr.UID, Gid: attr.GID}
	out.SetTimes(&attr.Time, &attr.Time, &attr.Time)
}
