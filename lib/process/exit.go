// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Exit codes used when a child's own code is not available, following
// the shell's conventions.
const (
	// ExitFailure is a generic failure of the wrapper itself.
	ExitFailure = 1

	// ExitCannotStart means the command was found but could not be
	// started.
	ExitCannotStart = 126

	// ExitNotFound means the command was not found.
	ExitNotFound = 127
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run() where no logger may be available.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(ExitFailure)
}

// ExitCode returns the exit code a wrapper should report for err, the
// result of running a child with exec.Cmd.Run or Wait. A nil error is
// 0. A child killed by a signal yields 128 plus the signal number.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return 128 + int(status.Signal())
		}
		return exitErr.ExitCode()
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return ExitNotFound
	}
	if errors.Is(err, os.ErrPermission) {
		return ExitCannotStart
	}
	return ExitFailure
}
