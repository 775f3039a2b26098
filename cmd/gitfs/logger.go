// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// newLogger writes human-readable text to a terminal and JSON
// otherwise.
func newLogger(output *os.File, debug bool) *slog.Logger {
	return slog.New(newHandler(output, term.IsTerminal(int(output.Fd())), debug))
}

func newHandler(output io.Writer, terminal, debug bool) slog.Handler {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		options.Level = slog.LevelDebug
	}
	if terminal {
		return slog.NewTextHandler(output, options)
	}
	return slog.NewJSONHandler(output, options)
}
