// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/logregator/lib/process"
	"github.com/bureau-foundation/logregator/lib/version"
)

const usage = `usage: logregator <command> [arguments]

commands:
  run [flags] [--] COMMAND [ARGS...]  run COMMAND with its logs aggregated
  cat FILE                            print a log file, decompressing .zst
  handle [TOKEN]                      decode a transport handle
  version                             print version information

Run "logregator run --help" for the flags of run.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return process.ExitFailure
	}

	var err error
	switch args[0] {
	case "run":
		return runCommand(args[1:], stderr, newCommandLogger())
	case "cat":
		err = catCommand(args[1:], stdout)
	case "handle":
		err = handleCommand(args[1:], stdout)
	case "version", "--version":
		version.Fprint(stdout, "logregator")
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
	default:
		fmt.Fprintf(stderr, "logregator: unknown command %q\n\n%s", args[0], usage)
		return process.ExitFailure
	}
	if err != nil {
		fmt.Fprintf(stderr, "logregator %s: %v\n", args[0], err)
		return process.ExitFailure
	}
	return 0
}

// newCommandLogger returns the logger for logregator's own operational
// messages. It writes to stderr directly and is never aggregated. When
// stderr is a terminal it uses text output, otherwise JSON.
func newCommandLogger() *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
