// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ConsoleHandler returns a LineHandler on stderr at level, colored
// when stderr is a terminal and NO_COLOR is not set.
func ConsoleHandler(level Level) *LineHandler {
	return NewLineHandler(os.Stderr, &LineOptions{
		Level: level,
		Color: term.IsTerminal(int(os.Stderr.Fd())) && !termenv.EnvNoColor(),
	})
}

// ConsoleLogger returns the named logger configured to print records
// at level or above to stderr. Existing handlers are replaced.
func ConsoleLogger(name string, level Level) *Logger {
	return Configure(name, level, ConsoleHandler(level))
}

// FileLogger returns the named logger configured to write records at
// level or above to the file at path; see OpenFile for mode. Existing
// handlers are replaced. Call CloseHandlers on the logger to release
// the file.
func FileLogger(name, path, mode string, level Level) (*Logger, error) {
	file, err := OpenFile(path, mode, &LineOptions{Level: level})
	if err != nil {
		return nil, err
	}
	return Configure(name, level, file), nil
}

// FileAndConsoleLogger combines FileLogger and ConsoleLogger.
func FileAndConsoleLogger(name, path, mode string, level Level) (*Logger, error) {
	file, err := OpenFile(path, mode, &LineOptions{Level: level})
	if err != nil {
		return nil, err
	}
	return Configure(name, level, file, ConsoleHandler(level)), nil
}

// DiscardLogger returns the named logger with a handler that drops
// everything, stopping propagation. Useful for silencing a subsystem.
func DiscardLogger(name string) *Logger {
	logger := Configure(name, NotSet, slog.DiscardHandler)
	logger.SetPropagate(false)
	return logger
}

// String implements fmt.Stringer for debugging output.
func (l *Logger) String() string {
	return fmt.Sprintf("Logger(%s, %s)", l.name, l.EffectiveLevel())
}
