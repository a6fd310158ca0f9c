// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"log/slog"
	"os"
	"sync/atomic"
)

var fallback atomic.Pointer[slog.Logger]

func init() {
	fallback.Store(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// Fallback returns the logger that receives failures of the logging
// machinery itself: handler write errors, sink delivery failures,
// collector timeouts. It writes straight to its own slog handler and
// never passes through loggers of this package, so it cannot be
// intercepted or loop back into the pipeline that failed.
func Fallback() *slog.Logger {
	return fallback.Load()
}

// SetFallback replaces the fallback logger and returns the previous
// one. A nil logger is ignored.
func SetFallback(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return fallback.Load()
	}
	return fallback.Swap(logger)
}
