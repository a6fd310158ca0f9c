// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for logregator binaries:
//
//   - Fatal error reporting to stderr for failures that happen before
//     a sink logger exists, or after it has been closed.
//   - Translating the error of a finished child process into the exit
//     code a wrapper should return.
//
// Everything else a binary reports goes through package logging.
package process
