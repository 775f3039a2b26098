// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	platformerrors "github.com/jmgilman/go/errors"

	"github.com/bureau-foundation/gitfs/lib/config"
	"github.com/bureau-foundation/gitfs/lib/gitfs"
	"github.com/bureau-foundation/gitfs/lib/gitstore"
	"github.com/bureau-foundation/gitfs/lib/process"
	"github.com/bureau-foundation/gitfs/lib/version"
	"github.com/bureau-foundation/gitfs/sandbox"
)

func main() {
	program := filepath.Base(os.Args[0])
	if err := run(program, os.Args[1:]); err != nil {
		process.Fatal(program, err)
	}
}

func run(program string, args []string) error {
	parsed, err := parseArgs(program, args)
	if err != nil {
		return fmt.Errorf("%w (see --help)", err)
	}
	if parsed.help {
		printHelp(os.Stdout, program)
		return nil
	}
	if parsed.version {
		version.Fprint(os.Stdout, program)
		return nil
	}

	cfg, err := config.Load(parsed.configPath)
	if err != nil {
		return err
	}
	if err := parsed.apply(cfg); err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.Debug).With("program", program)
	for _, warning := range parsed.warnings {
		logger.Warn(warning)
	}

	isolator, err := newIsolator(cfg.Sandbox, logger)
	if err != nil {
		return err
	}

	if err := checkMountpoint(parsed.mountpoint); err != nil {
		return err
	}

	repo, err := gitstore.Open(parsed.repoPath, gitstore.Options{Logger: logger})
	if err != nil {
		return err
	}
	resolution, err := repo.Resolve(cfg.Revision)
	if err != nil {
		repo.Close()
		return err
	}
	logger.Info("revision resolved",
		"repository", repo.Path(),
		"revision", cfg.Revision,
		"tree", resolution.TreeID.String(),
		"commit", commitString(resolution),
	)

	filesystem, err := gitfs.New(gitfs.Options{
		Program:     program,
		Repository:  repo,
		Resolution:  resolution,
		NoIDFiles:   !cfg.OIDFiles,
		MaxBlobSize: cfg.MaxBlobSize,
		Isolator:    isolator,
		Logger:      logger,
	})
	if err != nil {
		repo.Close()
		return err
	}

	server, err := gitfs.Mount(filesystem, gitfs.MountOptions{
		Mountpoint:   parsed.mountpoint,
		FsName:       repo.Path(),
		Program:      program,
		CacheTimeout: time.Duration(cfg.CacheTimeout),
		AllowOther:   cfg.AllowOther,
		ExtraOptions: cfg.MountOptions,
		Debug:        cfg.Debug,
		Logger:       logger,
	})
	if err != nil {
		if gitfs.IsSandboxError(err) {
			logger.Error("initialization failed", "error", err)
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, stop, server, parsed.mountpoint, logger)
}

// mounted is the part of *gitfs.Server that serve drives.
type mounted interface {
	Wait()
	Unmount() error
}

// serve blocks until the mount goes away, either by an external
// unmount or by one requested when ctx is cancelled. If that request
// fails, as it does once chroot hides fusermount, serving continues
// until the operator detaches the mount; restoreSignals is called so
// a second signal terminates the process.
func serve(ctx context.Context, restoreSignals func(), server mounted, mountpoint string, logger *slog.Logger) error {
	unmounted := make(chan struct{})
	go func() {
		server.Wait()
		close(unmounted)
	}()

	select {
	case <-unmounted:
		return nil
	case <-ctx.Done():
	}

	logger.Info("signal received, unmounting", "mountpoint", mountpoint)
	if err := server.Unmount(); err != nil {
		restoreSignals()
		logger.Warn("cannot unmount, still serving until detached",
			"mountpoint", mountpoint,
			"error", err,
			"hint", "detach it with fusermount -u "+mountpoint,
		)
	}
	<-unmounted
	return nil
}

func newIsolator(name string, logger *slog.Logger) (sandbox.Isolator, error) {
	mode, err := sandbox.ParseMode(name)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidInput, "sandbox mode")
	}
	if reason := sandbox.DetectCapabilities().SkipReason(mode); reason != "" {
		return nil, platformerrors.Newf(gitfs.CodeSandbox,
			"cannot isolate with %s: %s (run with CAP_SYS_CHROOT or pass -o sandbox=none)", mode, reason)
	}
	return sandbox.New(mode, logger)
}

func checkMountpoint(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return platformerrors.Wrapf(err, platformerrors.CodeNotFound, "mountpoint %s", path)
	}
	if !info.IsDir() {
		return platformerrors.Newf(platformerrors.CodeInvalidInput, "mountpoint %s is not a directory", path)
	}
	return nil
}

func commitString(resolution *gitstore.Resolution) string {
	if !resolution.HasCommit() {
		return ""
	}
	return resolution.CommitID.String()
}
