// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package git runs the git CLI against a repository directory. gitfs
// itself reads repositories through go-git; this package exists so
// tests can build repositories with real git (worktrees, packs,
// annotated tags) and compare gitfs's answers with git's own. Every
// command targets a specific directory via the -C flag, which is
// injected by all Repository methods.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Available reports whether a git binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Repository is a git working tree or git directory. There is no
// default directory; callers always say which repository they mean.
type Repository struct {
	dir string
	env []string
}

// NewRepository returns a Repository targeting dir. env entries
// ("NAME=value") are added to every command's environment.
func NewRepository(dir string, env ...string) *Repository {
	return &Repository{dir: dir, env: env}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command in the repository and returns stdout.
// Stderr is captured separately and included in error messages on
// failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr
	if len(r.env) > 0 {
		command.Env = append(command.Environ(), r.env...)
	}

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// RevParse returns the object ID git resolves rev to.
func (r *Repository) RevParse(ctx context.Context, rev string) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "--verify", "--quiet", rev)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// TreeOf returns the ID of the tree rev peels to.
func (r *Repository) TreeOf(ctx context.Context, rev string) (string, error) {
	return r.RevParse(ctx, rev+"^{tree}")
}
