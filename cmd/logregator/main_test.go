// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/bureau-foundation/logregator/lib/config"
	"github.com/bureau-foundation/logregator/lib/logging"
	"github.com/bureau-foundation/logregator/lib/logregator"
	"github.com/bureau-foundation/logregator/lib/testutil"
)

func TestParseRunArgs(t *testing.T) {
	t.Setenv(config.EnvVar, "")

	tests := []struct {
		name        string
		args        []string
		wantCommand []string
		wantErr     bool
		check       func(t *testing.T, cfg *config.Config)
	}{
		{
			name:    "no command",
			args:    []string{"--level", "debug"},
			wantErr: true,
		},
		{
			name:    "only separator",
			args:    []string{"--"},
			wantErr: true,
		},
		{
			name:        "defaults",
			args:        []string{"make", "all"},
			wantCommand: []string{"make", "all"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Sink.Name != logregator.DefaultLogtorName || cfg.Sink.Level != "info" {
					t.Errorf("sink = %+v", cfg.Sink)
				}
			},
		},
		{
			name:        "command flags are left alone",
			args:        []string{"--level", "warning", "ls", "-la", "--color"},
			wantCommand: []string{"ls", "-la", "--color"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Sink.Level != "warning" {
					t.Errorf("level = %q", cfg.Sink.Level)
				}
			},
		},
		{
			name: "all flags",
			args: []string{
				"--file", "/tmp/run.log", "--mode", "w", "--console", "--name", "BUILD",
				"--join-timeout", "2s", "--annotate", "--", "--version",
			},
			wantCommand: []string{"--version"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Sink.File != "/tmp/run.log" || cfg.Sink.Mode != "w" || cfg.Sink.Name != "BUILD" {
					t.Errorf("sink = %+v", cfg.Sink)
				}
				if cfg.Sink.Console == nil || !*cfg.Sink.Console {
					t.Error("console not enabled")
				}
				if cfg.Scope.JoinTimeout != "2s" || !cfg.Scope.Annotate {
					t.Errorf("scope = %+v", cfg.Scope)
				}
			},
		},
		{
			name:    "invalid mode",
			args:    []string{"--mode", "x", "true"},
			wantErr: true,
		},
		{
			name:    "no output",
			args:    []string{"--console=false", "true"},
			wantErr: true,
		},
		{
			name:    "invalid level",
			args:    []string{"--level", "loud", "true"},
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var stderr bytes.Buffer
			options, err := parseRunArgs(test.args, &stderr)
			if test.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(options.command, test.wantCommand) {
				t.Errorf("command = %q, want %q", options.command, test.wantCommand)
			}
			if test.check != nil {
				test.check(t, options.config)
			}
		})
	}
}

func TestParseRunArgsConfigFile(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	directory := t.TempDir()
	t.Setenv("RUN_LOG_DIR", directory)
	path := filepath.Join(directory, "logregator.yaml")
	content := `
sink:
  name: CI
  level: debug
  file: ${RUN_LOG_DIR}/ci.log
scope:
  annotate: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	var stderr bytes.Buffer
	options, err := parseRunArgs([]string{"--config", path, "--level", "error", "true"}, &stderr)
	if err != nil {
		t.Fatalf("parseRunArgs: %v", err)
	}
	sink := options.config.Sink
	if sink.Name != "CI" || sink.Level != "error" || sink.File != filepath.Join(directory, "ci.log") {
		t.Errorf("sink = %+v", sink)
	}
	if !options.config.Scope.Annotate {
		t.Error("annotate from the file was lost")
	}
}

func TestRunReturnsChildExitCode(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	path := filepath.Join(t.TempDir(), "run.log")

	code := run([]string{
		"run", "--file", path, "--console=false", "--name", testutil.UniqueID("run"),
		"--", "/bin/sh", "-c", "exit 3",
	}, &bytes.Buffer{}, &bytes.Buffer{})
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	if logregator.SessionActive() {
		t.Error("aggregation still active after run")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("sink file was not created: %v", err)
	}

	code = run([]string{"run", "--name", testutil.UniqueID("run"), "--", "logregator-no-such-command"},
		&bytes.Buffer{}, &bytes.Buffer{})
	if code != 127 {
		t.Errorf("exit code for a missing command = %d, want 127", code)
	}
}

func TestRunDispatch(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 1 || !strings.Contains(stderr.String(), "usage") {
		t.Errorf("no arguments: code %d, stderr %q", code, stderr.String())
	}

	stderr.Reset()
	if code := run([]string{"frobnicate"}, &stdout, &stderr); code != 1 || !strings.Contains(stderr.String(), "frobnicate") {
		t.Errorf("unknown command: code %d, stderr %q", code, stderr.String())
	}

	if code := run([]string{"version"}, &stdout, &stderr); code != 0 || !strings.HasPrefix(stdout.String(), "logregator ") {
		t.Errorf("version: code %d, stdout %q", code, stdout.String())
	}
}

func TestCatCommand(t *testing.T) {
	directory := t.TempDir()
	lines := "2026-03-01 12:00:00 app INFO first\n2026-03-01 12:00:01 app INFO second\n"

	plain := filepath.Join(directory, "run.log")
	if err := os.WriteFile(plain, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}

	compressed := filepath.Join(directory, "run.log.zst")
	file, err := os.Create(compressed)
	if err != nil {
		t.Fatal(err)
	}
	encoder, err := zstd.NewWriter(file)
	if err != nil {
		t.Fatal(err)
	}
	encoder.Write([]byte(lines))
	if err := encoder.Close(); err != nil {
		t.Fatal(err)
	}
	file.Close()

	for _, path := range []string{plain, compressed} {
		var stdout bytes.Buffer
		if err := catCommand([]string{path}, &stdout); err != nil {
			t.Fatalf("cat %s: %v", path, err)
		}
		if stdout.String() != lines {
			t.Errorf("cat %s printed %q", path, stdout.String())
		}
	}

	if err := catCommand([]string{filepath.Join(directory, "missing.log")}, &bytes.Buffer{}); err == nil {
		t.Error("cat of a missing file succeeded")
	}
	if err := catCommand(nil, &bytes.Buffer{}); err == nil {
		t.Error("cat without a file succeeded")
	}
}

func TestCatReadsSinkOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sink.log.zst")
	logger, err := logging.FileLogger(testutil.UniqueID("sink"), path, "w", logging.Info)
	if err != nil {
		t.Fatalf("FileLogger: %v", err)
	}
	logger.SetPropagate(false)
	logger.Info("compressed record")
	if err := logger.CloseHandlers(); err != nil {
		t.Fatalf("CloseHandlers: %v", err)
	}

	var stdout bytes.Buffer
	if err := catCommand([]string{path}, &stdout); err != nil {
		t.Fatalf("cat: %v", err)
	}
	if !strings.Contains(stdout.String(), "INFO compressed record") {
		t.Errorf("cat printed %q", stdout.String())
	}
}

func TestHandleCommand(t *testing.T) {
	token, err := logregator.Handle{
		Network: "unix",
		Address: "/tmp/logregator-abc/transport.sock",
		Session: "abc",
		Token:   []byte("secret"),
		Level:   logging.Warning,
	}.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var stdout bytes.Buffer
	if err := handleCommand([]string{token}, &stdout); err != nil {
		t.Fatalf("handle: %v", err)
	}
	for _, want := range []string{"session:  abc", "unix:/tmp/logregator-abc/transport.sock", "WARNING", "cbor:"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("output lacks %q:\n%s", want, stdout.String())
		}
	}

	t.Setenv(logregator.HandleEnv, token)
	stdout.Reset()
	if err := handleCommand(nil, &stdout); err != nil || !strings.Contains(stdout.String(), "abc") {
		t.Errorf("handle from the environment: %v\n%s", err, stdout.String())
	}

	if err := handleCommand([]string{"garbage!"}, &bytes.Buffer{}); err == nil {
		t.Error("handle accepted an invalid token")
	}
}
