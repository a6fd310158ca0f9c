// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logregator

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/logregator/lib/config"
	"github.com/bureau-foundation/logregator/lib/logging"
)

// DefaultLogtorName is the sink logger name used when none is given.
const DefaultLogtorName = "LOGTOR"

// LogtorOptions describes the sink a Logtor builds.
type LogtorOptions struct {
	// Filename is an optional file to write to. See logging.OpenFile.
	Filename string

	// Mode is the file mode, "a" (the default) or "w".
	Mode string

	// Level is the sink's level. The zero value is logging.Info.
	Level logging.Level

	// Console selects console output. When nil the console is used
	// exactly when no Filename is given. It cannot be false without a
	// Filename.
	Console *bool

	// Name is the sink logger's name. Defaults to DefaultLogtorName.
	Name string

	// Scope configures the scope itself.
	Scope *Options
}

// Logtor is a Scope delivering to a sink it builds itself: a logger
// writing to the console, a file, or both.
//
//	logtor, err := logregator.NewLogtor(logregator.LogtorOptions{Filename: "run.log"})
//	if err != nil {
//	    return err
//	}
//	defer logtor.Close()
//	if err := logtor.Enter(); err != nil {
//	    return err
//	}
//	defer logtor.Exit()
type Logtor struct {
	*Scope
	logger *logging.Logger
}

// NewLogtor configures the sink logger and returns an inactive scope
// delivering to it. The named logger's existing handlers are replaced.
func NewLogtor(options LogtorOptions) (*Logtor, error) {
	name := options.Name
	if name == "" {
		name = DefaultLogtorName
	}
	console := options.Filename == ""
	if options.Console != nil {
		console = *options.Console
	}

	var logger *logging.Logger
	var err error
	switch {
	case options.Filename == "":
		if !console {
			return nil, ErrLogtorNoOutput
		}
		logger = logging.ConsoleLogger(name, options.Level)
	case console:
		logger, err = logging.FileAndConsoleLogger(name, options.Filename, options.Mode, options.Level)
	default:
		logger, err = logging.FileLogger(name, options.Filename, options.Mode, options.Level)
	}
	if err != nil {
		return nil, err
	}
	return &Logtor{Scope: New(logger, options.Scope), logger: logger}, nil
}

// FromConfig builds a Logtor from a validated configuration.
func FromConfig(cfg *config.Config) (*Logtor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	level, _ := cfg.SinkLevel()
	linger, _ := cfg.LingerDuration()
	joinTimeout, _ := cfg.JoinTimeoutDuration()
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	return NewLogtor(LogtorOptions{
		Filename: cfg.Sink.File,
		Mode:     cfg.Sink.Mode,
		Level:    level,
		Console:  cfg.Sink.Console,
		Name:     cfg.Sink.Name,
		Scope: &Options{
			JoinTimeout: joinTimeout,
			Annotate:    cfg.Scope.Annotate,
			Transport: TransportOptions{
				Capacity:        cfg.Transport.Capacity,
				SocketDirectory: cfg.Transport.SocketDirectory,
				Linger:          linger,
			},
		},
	})
}

// Logger returns the sink logger.
func (l *Logtor) Logger() *logging.Logger {
	return l.logger
}

// Close exits the scope if it is still active and closes the sink's
// files. The sink logger stays registered but can no longer write to
// them.
func (l *Logtor) Close() error {
	var exitErr error
	if l.State() == Active {
		exitErr = l.Exit()
		if errors.Is(exitErr, ErrNotActive) {
			exitErr = nil
		}
	}
	return errors.Join(exitErr, l.logger.CloseHandlers())
}
