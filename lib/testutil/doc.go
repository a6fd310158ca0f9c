// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for logregator
// packages.
//
// [SocketDir] creates a temporary directory in /tmp suitable for Unix
// domain sockets, whose paths are limited to 108 bytes (sun_path in
// sockaddr_un).
//
// [RequireReceive] and [RequireClosed] wait on a channel with a
// wall-clock timeout so that a hung goroutine fails the test instead
// of stalling it. Together with [Eventually] they are the only place
// in the test suite where real timeouts are used.
//
// [Eventually] polls a condition for asynchronous effects that have no
// channel to wait on, such as a record written to a file by a
// collector goroutine.
//
// [Buffer] is a goroutine-safe bytes.Buffer for capturing handler
// output written from several goroutines.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, such as unique logger names in a process-wide
// registry.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no logregator-internal dependencies.
package testutil
