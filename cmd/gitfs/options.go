// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/gitfs/lib/config"
	"github.com/bureau-foundation/gitfs/sandbox"
)

// options is the parsed command line.
type options struct {
	repoPath   string
	mountpoint string
	configPath string

	help    bool
	version bool
	debug   bool

	// revision is meaningful only when revisionSet.
	revision    string
	revisionSet bool

	noOIDFiles bool
	sandbox    string
	allowOther bool

	// fuseOptions are -o options gitfs does not interpret.
	fuseOptions []string

	// warnings are reported once the logger exists.
	warnings []string
}

func newFlagSet(program string, parsed *options, mountOptions *[]string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(program, pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVarP(&parsed.debug, "debug", "d", false, "log debug messages and trace FUSE requests")
	flagSet.BoolVarP(&parsed.help, "help", "h", false, "show help")
	flagSet.BoolVar(&parsed.version, "version", false, "print version information")
	flagSet.Var(&revisionFlag{parsed: parsed}, "rev", "revision to mount (default HEAD)")
	flagSet.StringVar(&parsed.configPath, "config", "", "configuration file (default $"+config.EnvironmentVariable+")")
	flagSet.StringArrayVarP(mountOptions, "option", "o", nil, "mount option; repeatable, comma-separated")

	// FUSE's own command-line flags. gitfs always serves in the
	// foreground on a single thread, so both are already in effect.
	flagSet.BoolP("foreground", "f", false, "serve in the foreground (always on)")
	flagSet.BoolP("single-threaded", "s", false, "serve on one thread (always on)")
	return flagSet
}

// parseArgs parses args (without the program name). Help and version
// requests return before positional arguments are checked.
func parseArgs(program string, args []string) (*options, error) {
	parsed := &options{}
	var mountOptions []string
	flagSet := newFlagSet(program, parsed, &mountOptions)

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			parsed.help = true
			return parsed, nil
		}
		return nil, argumentError("%v", err)
	}
	if parsed.help || parsed.version {
		return parsed, nil
	}

	for _, group := range mountOptions {
		for _, option := range strings.Split(group, ",") {
			if err := parsed.applyMountOption(option); err != nil {
				return nil, err
			}
		}
	}

	positional := flagSet.Args()
	switch {
	case len(positional) < 2:
		return nil, argumentError("expected a repository path and a mountpoint")
	case len(positional) > 2:
		return nil, argumentError("unexpected argument: %s", positional[2])
	}
	parsed.repoPath, parsed.mountpoint = positional[0], positional[1]
	return parsed, nil
}

// applyMountOption interprets one -o option. Options gitfs does not
// know are kept for the kernel mount.
func (o *options) applyMountOption(option string) error {
	name, value, hasValue := strings.Cut(option, "=")
	switch name {
	case "":
		return nil
	case "rev":
		if err := o.setRevision(value); err != nil {
			return argumentError("-o rev: %v", err)
		}
	case "rw", "ro":
		o.warnings = append(o.warnings, fmt.Sprintf("ignoring -o %s: the mount is always read-only", name))
	case "no-oid-files":
		o.noOIDFiles = true
	case "debug":
		o.debug = true
	case "allow_other":
		o.allowOther = true
	case "sandbox":
		if _, err := sandbox.ParseMode(value); err != nil || !hasValue || value == "" {
			return argumentError("-o sandbox must be %q or %q", sandbox.ModeChroot, sandbox.ModeNone)
		}
		o.sandbox = value
	default:
		o.fuseOptions = append(o.fuseOptions, option)
	}
	return nil
}

// setRevision records the revision. Both --rev and -o rev land here,
// and together they may name at most one.
func (o *options) setRevision(value string) error {
	if o.revisionSet {
		return errors.New("the revision may only be given once")
	}
	if value == "" {
		return errors.New("requires a revision")
	}
	o.revision, o.revisionSet = value, true
	return nil
}

// revisionFlag is the pflag.Value behind --rev.
type revisionFlag struct {
	parsed *options
}

func (f *revisionFlag) String() string {
	if f.parsed == nil {
		return ""
	}
	return f.parsed.revision
}

func (f *revisionFlag) Set(value string) error { return f.parsed.setRevision(value) }

func (f *revisionFlag) Type() string { return "string" }

// apply layers command-line values over a loaded configuration.
func (o *options) apply(cfg *config.Config) error {
	if o.revisionSet {
		cfg.Revision = o.revision
	}
	if o.debug {
		cfg.Debug = true
	}
	if o.noOIDFiles {
		cfg.OIDFiles = false
	}
	if o.sandbox != "" {
		cfg.Sandbox = o.sandbox
	}
	if o.allowOther {
		cfg.AllowOther = true
	}
	cfg.MountOptions = append(cfg.MountOptions, o.fuseOptions...)
	return cfg.Validate()
}

func argumentError(format string, args ...any) error {
	return platformerrors.Newf(platformerrors.CodeInvalidInput, format, args...)
}

func printHelp(w io.Writer, program string) {
	fmt.Fprintf(w, `%[1]s mounts one git tree as a read-only filesystem.

Usage:
  %[1]s [options] repo-path mountpoint

The tree is HEAD's unless --rev names another commit, tree, branch,
tag, abbreviated hash or revision expression (main~2). The mount root
also holds .%[1]s-tree-id and, for commits, .%[1]s-commit-id.

Before serving, %[1]s confines itself to the repository's git
directory with chroot(2), which needs CAP_SYS_CHROOT. Pass
-o sandbox=none to run without confinement.

Options:
  -d, --debug           log debug messages and trace FUSE requests
  -h, --help            show this help
      --version         print version information
      --rev=REV         revision to mount (default HEAD)
      --config=FILE     configuration file (default $%[2]s)
  -f, -s                accepted for FUSE compatibility; gitfs always
                        serves in the foreground on one thread
  -o OPT[,OPT...]       mount options:
       rev=REV          same as --rev (at most one revision in total)
       no-oid-files     omit the tree-id and commit-id files
       sandbox=MODE     chroot (default) or none
       debug            same as --debug
       allow_other      let other users access the mount
       ro, rw           accepted and ignored; the mount is read-only
       other            passed to the FUSE mount

Unmount with fusermount -u mountpoint, or send SIGINT or SIGTERM.
`, program, config.EnvironmentVariable)
}
