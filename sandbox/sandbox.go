// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Mode selects an isolation strategy.
type Mode string

const (
	// ModeChroot confines the process to the target with chroot(2).
	ModeChroot Mode = "chroot"

	// ModeNone performs no isolation.
	ModeNone Mode = "none"
)

// DefaultMode is used when no mode is configured.
const DefaultMode = ModeChroot

// ParseMode validates a mode name. The empty string means DefaultMode.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case "":
		return DefaultMode, nil
	case ModeChroot, ModeNone:
		return Mode(name), nil
	default:
		return "", fmt.Errorf("unknown sandbox mode %q (want %q or %q)", name, ModeChroot, ModeNone)
	}
}

// Isolator restricts the process's filesystem view to a directory.
type Isolator interface {
	// Isolate confines the process to dir and returns the path under
	// which dir is reachable afterwards.
	Isolate(dir string) (string, error)

	// Mode reports the strategy this isolator implements.
	Mode() Mode
}

// New returns the Isolator for mode. A nil logger discards output.
func New(mode Mode, logger *slog.Logger) (Isolator, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	switch mode {
	case ModeChroot:
		return &chrootIsolator{logger: logger}, nil
	case ModeNone:
		return &noIsolation{logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown sandbox mode %q", mode)
	}
}

// chrootIsolator implements ModeChroot.
type chrootIsolator struct {
	logger *slog.Logger
}

func (c *chrootIsolator) Mode() Mode { return ModeChroot }

func (c *chrootIsolator) Isolate(dir string) (string, error) {
	absolute, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving sandbox root %q: %w", dir, err)
	}

	if err := unix.Chroot(absolute); err != nil {
		if err == unix.EPERM {
			return "", fmt.Errorf("chroot to %s: %w (CAP_SYS_CHROOT is required; use sandbox=none to disable isolation)", absolute, err)
		}
		return "", fmt.Errorf("chroot to %s: %w", absolute, err)
	}
	// Without the chdir the working directory would still point outside
	// the new root.
	if err := unix.Chdir("/"); err != nil {
		return "", fmt.Errorf("chdir to new root: %w", err)
	}

	c.logger.Info("filesystem view confined", "root", absolute)
	return "/", nil
}

// noIsolation implements ModeNone.
type noIsolation struct {
	logger *slog.Logger
}

func (n *noIsolation) Mode() Mode { return ModeNone }

func (n *noIsolation) Isolate(dir string) (string, error) {
	absolute, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving sandbox root %q: %w", dir, err)
	}
	n.logger.Warn("filesystem isolation disabled, the whole host filesystem stays visible", "root", absolute)
	return absolute, nil
}
