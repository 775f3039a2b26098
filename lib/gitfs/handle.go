// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"io"

	"github.com/go-git/go-git/v5/plumbing/object"
	platformerrors "github.com/jmgilman/go/errors"

	"github.com/bureau-foundation/gitfs/lib/gitstore"
)

// Handle is the state of one open file or directory. Every Open returns
// a fresh Handle; handles are never shared between opens.
type Handle struct {
	entry Entry

	// content is a file's blob, read in full at open.
	content []byte

	released bool
}

// Entry returns the entry the handle was opened on, or nil after
// Release.
func (h *Handle) Entry() Entry {
	return h.entry
}

// Open looks up path and materializes what later calls on the handle
// need. A file's blob is read completely here.
func (f *Filesystem) Open(path string) (*Handle, error) {
	entry, err := f.lookup(path)
	if err != nil {
		return nil, err
	}

	handle := &Handle{entry: entry}
	if file, ok := entry.(*File); ok {
		handle.content, err = f.readBlob(file.Blob)
		if err != nil {
			return nil, err
		}
	}
	return handle, nil
}

// Release drops everything the handle owns. The mounted root tree is
// only borrowed and stays with the Filesystem. Releasing twice is a
// no-op.
func (f *Filesystem) Release(handle *Handle) {
	if handle == nil || handle.released {
		return
	}
	handle.released = true
	handle.entry = nil
	handle.content = nil
}

// readBlob loads a blob into memory, refusing blobs over the configured
// limit.
func (f *Filesystem) readBlob(blob *object.Blob) ([]byte, error) {
	if f.maxBlobSize > 0 && blob.Size > f.maxBlobSize {
		return nil, platformerrors.Newf(CodeNoMemory,
			"blob %s is %d bytes, over the %d byte limit", blob.Hash, blob.Size, f.maxBlobSize)
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, platformerrors.Wrapf(err, gitstore.CodeIO, "opening blob %s", blob.Hash)
	}
	defer reader.Close()

	content := make([]byte, blob.Size)
	if _, err := io.ReadFull(reader, content); err != nil {
		return nil, platformerrors.Wrapf(err, gitstore.CodeIO, "reading blob %s", blob.Hash)
	}
	return content, nil
}
