// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gitfs

import (
	"syscall"

	platformerrors "github.com/jmgilman/go/errors"

	"github.com/bureau-foundation/gitfs/lib/gitstore"
)

// Error codes surfaced by filesystem operations in addition to
// platformerrors.CodeNotFound and the object store's gitstore.CodeIO.
const (
	// CodeNoMemory marks a blob too large to materialize in memory.
	CodeNoMemory platformerrors.ErrorCode = "NO_MEMORY"

	// CodeReadOnly marks an attempted modification.
	CodeReadOnly platformerrors.ErrorCode = "READ_ONLY"

	// CodeSandbox marks a failure to isolate, re-open the repository
	// or re-resolve the tree during Init. Fatal to the session.
	CodeSandbox platformerrors.ErrorCode = "SANDBOX_FAILED"
)

// Errno maps an operation error to the errno returned to the kernel.
// Unclassified errors are I/O errors.
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	switch platformerrors.GetCode(err) {
	case platformerrors.CodeNotFound:
		return syscall.ENOENT
	case CodeNoMemory:
		return syscall.ENOMEM
	case CodeReadOnly:
		return syscall.EROFS
	default:
		return syscall.EIO
	}
}

func notFound(path string) error {
	return platformerrors.Newf(platformerrors.CodeNotFound, "%s: no such entry", path)
}

func ioError(format string, args ...any) error {
	return platformerrors.Newf(gitstore.CodeIO, format, args...)
}

func isNotFound(err error) bool {
	return platformerrors.GetCode(err) == platformerrors.CodeNotFound
}
