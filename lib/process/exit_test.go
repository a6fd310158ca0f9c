// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestExitCode(t *testing.T) {
	notExecutable := filepath.Join(t.TempDir(), "script")
	if err := os.WriteFile(notExecutable, []byte("#!/bin/sh\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: 0},
		{name: "exit status", err: exec.Command("/bin/sh", "-c", "exit 42").Run(), want: 42},
		{name: "signal", err: exec.Command("/bin/sh", "-c", "kill -TERM $$").Run(), want: 143},
		{name: "not found", err: exec.Command("logregator-no-such-command").Run(), want: ExitNotFound},
		{name: "not executable", err: exec.Command(notExecutable).Run(), want: ExitCannotStart},
		{name: "other", err: errors.New("broken pipe"), want: ExitFailure},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ExitCode(test.err); got != test.want {
				t.Errorf("ExitCode(%v) = %d, want %d", test.err, got, test.want)
			}
		})
	}
}
