// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the optional gitfs configuration file.
//
// The file is named by the --config flag or, failing that, the
// GITFS_CONFIG environment variable (via [Load]). There is no search
// path and no ~/.config discovery: with neither set, [Default] applies.
// Command-line options are layered over the loaded values by the
// caller.
//
// Files ending in .json or .jsonc are parsed as JSON with comments and
// trailing commas; anything else is YAML. Unknown keys are errors in
// both formats. Loaded values are checked with [Config.Validate].
//
// This package depends on no other gitfs packages.
package config
