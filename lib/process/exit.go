// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// ExitCode returns the process exit status for err: 0 for nil, 1
// otherwise. Every failure gitfs reports, from argument errors to a
// failed Init, exits 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// Report writes "program: error: err" to w when err is non-nil and
// returns the exit status for err.
func Report(w io.Writer, program string, err error) int {
	code := ExitCode(err)
	if err != nil {
		fmt.Fprintf(w, "%s: error: %v\n", program, err)
	}
	return code
}

// Fatal writes "program: error: err" to stderr and exits with the status for
// err. Use it in main() for errors from run() where the structured
// logger may not be initialized.
func Fatal(program string, err error) {
	os.Exit(Report(os.Stderr, program, err))
}
