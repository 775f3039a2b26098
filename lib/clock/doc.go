// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable wall-clock for testability.
//
// Production code accepts a Clock instead of calling time.Now
// directly. In production, Real() provides the standard library
// behavior. In tests, Fake() provides a clock that stands still until
// Advance or Set is called, so timestamps derived from "now" (for
// example the modification time of a tree mounted without a commit)
// are deterministic.
package clock
