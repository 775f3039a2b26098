// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"wrapped", fmt.Errorf("outer: %w", errors.New("inner")), 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ExitCode(test.err); got != test.want {
				t.Errorf("ExitCode() = %d, want %d", got, test.want)
			}
		})
	}
}

func TestReport(t *testing.T) {
	var buffer bytes.Buffer
	if code := Report(&buffer, "gitfs", nil); code != 0 || buffer.Len() != 0 {
		t.Fatalf("Report(nil) = %d, wrote %q", code, buffer.String())
	}
	if code := Report(&buffer, "gitfs", errors.New("no repository")); code != 1 {
		t.Fatalf("Report(err) = %d, want 1", code)
	}
	if got, want := buffer.String(), "gitfs: error: no repository\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
