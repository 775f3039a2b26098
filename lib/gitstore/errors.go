// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gitstore

import (
	platformerrors "github.com/jmgilman/go/errors"
)

// Error codes specific to the object store. Not-found conditions use
// platformerrors.CodeNotFound and bad input platformerrors.CodeInvalidInput.
const (
	// CodeResolution marks a revision that does not resolve to a
	// commit or tree. Fatal before mount.
	CodeResolution platformerrors.ErrorCode = "RESOLUTION_FAILED"

	// CodeIO marks an object the store claims exists but cannot be
	// loaded (corrupt or incomplete object store).
	CodeIO platformerrors.ErrorCode = "IO_ERROR"
)

// IsResolutionError reports whether err is a revision resolution failure.
func IsResolutionError(err error) bool {
	return platformerrors.GetCode(err) == CodeResolution
}
