// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logregator

import (
	"context"
	"os"
	"os/exec"
	"strings"
)

// Command is exec.Command followed by PrepareCommand.
func Command(name string, args ...string) *exec.Cmd {
	cmd := exec.Command(name, args...)
	PrepareCommand(cmd)
	return cmd
}

// CommandContext is exec.CommandContext followed by PrepareCommand.
func CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	PrepareCommand(cmd)
	return cmd
}

// PrepareCommand sets HandleEnv in cmd's environment so that a child
// calling Bind sends its records to this process's aggregation
// session. A process that is itself bound passes its parent's handle
// on, so grandchildren reach the same session. When there is nothing
// to bind to, any inherited value is removed.
//
// The handle is read when PrepareCommand is called: a command prepared
// while a scope is active and started after it exits binds to a closed
// transport and its records are dropped.
//
// A nil cmd.Env is first populated from os.Environ, as exec.Cmd would.
func PrepareCommand(cmd *exec.Cmd) {
	env := cmd.Env
	if env == nil {
		env = os.Environ()
	}
	env = withoutHandle(env)
	if token, ok := inheritableHandle(); ok {
		env = append(env, HandleEnv+"="+token)
	}
	cmd.Env = env
}

// inheritableHandle prefers this process's own session over the one it
// is bound to.
func inheritableHandle() (string, bool) {
	if token, ok := ActiveHandle(); ok {
		return token, true
	}
	if binding := currentBinding.Load(); binding != nil {
		return binding.token, true
	}
	return "", false
}

func withoutHandle(env []string) []string {
	prefix := HandleEnv + "="
	kept := make([]string, 0, len(env)+1)
	for _, entry := range env {
		if !strings.HasPrefix(entry, prefix) {
			kept = append(kept, entry)
		}
	}
	return kept
}
