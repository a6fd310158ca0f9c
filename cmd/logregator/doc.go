// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// logregator runs a command under an aggregation scope, so that the
// log records of the command and of every process it starts end up in
// one sink: the console, a file, or both.
//
//	logregator run --file build.log -- make all
//
// The command receives the scope's transport handle in the
// LOGREGATOR_HANDLE environment variable. Programs that call
// logregator.Bind at startup send their records to the sink, tagged
// with their pid; programs that don't are unaffected and write to
// their own stdout and stderr as usual. logregator exits with the
// command's exit code. SIGINT, SIGTERM, SIGHUP, and SIGQUIT are
// forwarded to the command.
//
// Settings come from a YAML or JSONC file (--config, or the file named
// by LOGREGATOR_CONFIG), and flags override them.
//
// Other subcommands:
//
//	logregator cat FILE        print a log file, decompressing .zst files
//	logregator handle [TOKEN]  decode a transport handle (default: $LOGREGATOR_HANDLE)
//	logregator version         print version information
package main
