// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for gitfs.
//
// The commit is taken from the VCS stamp go build embeds. Builds
// without one can set it via -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/gitfs/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
)

// Version is the semantic version. This is set manually for releases.
var Version = "0.1.0-dev"

// GitCommit overrides the embedded VCS revision when set.
var GitCommit = ""

// shortCommit is the length of a printed commit hash.
const shortCommit = 12

// Commit returns the build's commit, suffixed "-dirty" for builds from
// a modified worktree, or "unknown".
func Commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return commitFromSettings(info.Settings)
}

func commitFromSettings(settings []debug.BuildSetting) string {
	var revision, modified string
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		}
	}
	if revision == "" {
		return "unknown"
	}
	if len(revision) > shortCommit {
		revision = revision[:shortCommit]
	}
	if modified == "true" {
		revision += "-dirty"
	}
	return revision
}

// Fprint writes the --version report for program to w.
func Fprint(w io.Writer, program string) {
	fmt.Fprintf(w, "%s %s (%s)\n  Go: %s\n  Platform: %s/%s\n",
		program, Version, Commit(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
