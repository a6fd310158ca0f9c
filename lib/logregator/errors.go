// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logregator

import "errors"

var (
	// ErrClosed is returned by Transport.Receive once the transport is
	// closed and every buffered record has been received.
	ErrClosed = errors.New("logregator: transport closed")

	// ErrNoSink is returned when entering a scope that has no sink.
	ErrNoSink = errors.New("logregator: scope has no sink")

	// ErrAlreadyActive is returned when entering a scope that is
	// already active.
	ErrAlreadyActive = errors.New("logregator: scope already active")

	// ErrNotActive is returned when exiting a scope that is not active.
	ErrNotActive = errors.New("logregator: scope not active")

	// ErrRestore means the logging configuration in effect before a
	// scope or binding could not be put back: something replaced the
	// interception point in the meantime. Records may now be going
	// somewhere unexpected, so this error is always returned to the
	// caller rather than swallowed.
	ErrRestore = errors.New("logregator: previous logging configuration could not be restored")

	// ErrInterceptionChanged is returned when the interception point
	// changes between taking a snapshot and installing over it.
	ErrInterceptionChanged = errors.New("logregator: interception point changed during installation")

	// ErrLogtorNoOutput is returned by NewLogtor when console output is
	// disabled and no file is given.
	ErrLogtorNoOutput = errors.New("logregator: a filename is required when console output is disabled")

	// ErrInvalidHandle is returned when a transport handle cannot be
	// decoded.
	ErrInvalidHandle = errors.New("logregator: invalid transport handle")

	// ErrAlreadyBound is returned by Bind when the process is already
	// bound to a parent's transport.
	ErrAlreadyBound = errors.New("logregator: process already bound")
)
