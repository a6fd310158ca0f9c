// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/logregator/lib/config"
	"github.com/bureau-foundation/logregator/lib/logregator"
	"github.com/bureau-foundation/logregator/lib/process"
)

// runOptions is the parsed command line of "logregator run".
type runOptions struct {
	config  *config.Config
	command []string
}

// parseRunArgs parses the flags of "logregator run" and merges them
// over the configuration file. Flag parsing stops at the first
// non-flag argument so that the command's own flags are left alone.
func parseRunArgs(args []string, stderr io.Writer) (*runOptions, error) {
	var configPath, level, file, mode, name string
	var console, annotate bool
	var joinTimeout time.Duration

	flagSet := pflag.NewFlagSet("logregator run", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&level, "level", "", "sink level: trace, debug, info, warning, error, critical")
	flagSet.StringVar(&file, "file", "", "write the aggregated log to this file (.zst compresses it)")
	flagSet.StringVar(&mode, "mode", "", `file mode: "a" appends, "w" truncates`)
	flagSet.BoolVar(&console, "console", false, "also write to stderr (the default when no file is given)")
	flagSet.StringVar(&name, "name", "", "sink logger name")
	flagSet.DurationVar(&joinTimeout, "join-timeout", 0, "how long to wait for remaining records at exit")
	flagSet.BoolVar(&annotate, "annotate", false, "prefix messages with the sink name and origin pid")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "usage: logregator run [flags] [--] COMMAND [ARGS...]\n\nflags:\n%s", flagSet.FlagUsages())
	}

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	command := flagSet.Args()
	if len(command) == 0 {
		return nil, errors.New("no command specified")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if flagSet.Changed("level") {
		cfg.Sink.Level = level
	}
	if flagSet.Changed("file") {
		cfg.Sink.File = file
	}
	if flagSet.Changed("mode") {
		cfg.Sink.Mode = mode
	}
	if flagSet.Changed("console") {
		cfg.Sink.Console = &console
	}
	if flagSet.Changed("name") {
		cfg.Sink.Name = name
	}
	if flagSet.Changed("join-timeout") {
		cfg.Scope.JoinTimeout = joinTimeout.String()
	}
	if flagSet.Changed("annotate") {
		cfg.Scope.Annotate = annotate
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &runOptions{config: cfg, command: command}, nil
}

// loadConfig reads the file named by --config or LOGREGATOR_CONFIG,
// falling back to the defaults when neither is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv(config.EnvVar) != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// runCommand implements "logregator run". It returns the command's
// exit code, or a code of its own when the command could not be run.
func runCommand(args []string, stderr io.Writer, logger *slog.Logger) int {
	options, err := parseRunArgs(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "logregator run: %v\n", err)
		return process.ExitFailure
	}

	logtor, err := logregator.FromConfig(options.config)
	if err != nil {
		fmt.Fprintf(stderr, "logregator run: %v\n", err)
		return process.ExitFailure
	}
	defer func() {
		if err := logtor.Close(); err != nil {
			logger.Error("closing the sink failed", "error", err)
		}
	}()
	if err := logtor.Enter(); err != nil {
		fmt.Fprintf(stderr, "logregator run: %v\n", err)
		return process.ExitFailure
	}

	code := runChild(context.Background(), options.command, logger)

	if err := logtor.Exit(); err != nil {
		logger.Error("ending the aggregation scope failed", "error", err)
	}
	stats := logtor.Stats()
	logger.Debug("aggregation finished",
		"command", options.command[0],
		"exit_code", code,
		"delivered", stats.Delivered,
		"filtered", stats.Filtered,
		"failed", stats.Failed,
		"dropped", stats.Dropped,
	)
	return code
}

// runChild runs command with inherited stdio, forwarding termination
// signals to it, and returns its exit code.
func runChild(ctx context.Context, command []string, logger *slog.Logger) int {
	child := logregator.CommandContext(ctx, command[0], command[1:]...)
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr

	if err := child.Start(); err != nil {
		logger.Error("starting command failed", "command", command[0], "error", err)
		return process.ExitCode(err)
	}

	signals := make(chan os.Signal, 4)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer signal.Stop(signals)
	go forwardSignals(signals, child.Process)

	err := child.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		logger.Error("waiting for command failed", "command", command[0], "error", err)
	}
	return process.ExitCode(err)
}

// forwardSignals relays signals to the child. Delivery errors mean the
// child has already exited.
func forwardSignals(signals <-chan os.Signal, child *os.Process) {
	for sig := range signals {
		if sysSig, ok := sig.(syscall.Signal); ok {
			_ = child.Signal(sysSig)
		}
	}
}
