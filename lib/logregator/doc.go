// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logregator aggregates the log records of a process, and of
// the processes it starts, into a single sink logger for the duration
// of a scope.
//
// Code that logs does not know about aggregation. It logs through
// package logging as usual:
//
//	log := logging.Get("worker")
//	log.Info("started", "jobs", n)
//
// A caller that wants everything in one place opens a scope around the
// work:
//
//	sink := logging.ConsoleLogger("build", logging.Info)
//	err := logregator.Run(ctx, sink, nil, func(ctx context.Context) error {
//	    cmd := logregator.CommandContext(ctx, "./worker")
//	    return cmd.Run()
//	})
//
// While the scope is active every record emitted in the process is
// captured at the process-wide interception point of package logging
// and sent through a Transport to a Collector, which hands it to the
// sink. Records keep their original logger name, level, time, process
// and goroutine. The sink's level still applies.
//
// # Child processes
//
// Commands built with Command, CommandContext, or PrepareCommand
// receive the transport's Handle in the LOGREGATOR_HANDLE environment
// variable. A child that calls Bind at startup connects to the
// transport over a Unix socket, authenticates with the handle's token,
// and from then on sends its records to the parent instead of logging
// them locally. A child started after the scope has ended finds no
// handle, or a handle to a closed transport, and drops its records.
//
// # Nesting
//
// Scopes nest. The outermost active scope owns the session; scopes
// entered inside it only increase the depth, and their sinks receive
// nothing. The logging configuration is captured when the first scope
// is entered and restored exactly once, when the last one exits.
//
// # Failures
//
// Logging never fails the code that logs. Records that cannot be
// queued are dropped and counted. Records the sink fails to handle are
// reported to logging.Fallback. A collector that cannot finish within
// the join timeout is abandoned with a warning. The one failure that
// is returned is ErrRestore: the configuration in effect before the
// scope could not be put back.
package logregator
