// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging provides named, hierarchical loggers whose records
// can be diverted wholesale through a single process-wide interception
// point.
//
// Loggers are identified by dot-separated names and created on first
// use:
//
//	log := logging.Get("worker.fetch")
//	log.Info("fetched", "url", url, "bytes", n)
//
// A record travels from the emitting logger up through its ancestors,
// handed to every slog.Handler attached along the way until a logger
// with propagation disabled is reached. Levels are inherited the same
// way: a logger whose level is NotSet uses its nearest ancestor's.
//
// Every emission first consults the interception point (see Intercept).
// While an Interceptor is installed, enabled records go to it instead
// of the handler chain. Package logregator uses this to aggregate the
// records of a whole process tree into one sink logger without
// touching any individual logger.
//
// Records are plain values (see Record) that carry everything needed
// to render them elsewhere, including the originating process and
// goroutine. Logger.Handle renders a record that was emitted somewhere
// else as if it had been emitted locally.
//
// Failures of the logging machinery itself never reach the code that
// logs. They are reported to the Fallback slog.Logger.
package logging
