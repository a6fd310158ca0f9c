// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logregator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"testing"

	"github.com/bureau-foundation/logregator/lib/logging"
	"github.com/bureau-foundation/logregator/lib/process"
)

// childEnv makes the test binary act as a child process instead of
// running tests. Its value selects what the child does.
const childEnv = "LOGREGATOR_TEST_CHILD"

func TestMain(m *testing.M) {
	if mode := os.Getenv(childEnv); mode != "" {
		if err := runChild(mode); err != nil {
			process.Fatal(err)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func runChild(mode string) error {
	binding, err := Bind(nil)
	if err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	log := logging.Get("child")
	switch mode {
	case "emit":
		log.Info("d")
		log.Debug("child debug")
	case "sequence":
		for n := range 100 {
			log.Info("sequence", "n", n)
		}
	case "reserved":
		log.Info("started worker", "pid", 42, "logger", "custom", "exception", "text")
	case "grandchild":
		log.Info("from child")
		cmd := childCommand("emit")
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("grandchild: %w", err)
		}
	default:
		return fmt.Errorf("unknown child mode %q", mode)
	}
	if err := binding.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// childCommand re-executes the test binary as a child in mode.
func childCommand(mode string) *exec.Cmd {
	cmd := Command(os.Args[0], "-test.run=^$")
	cmd.Env = append(cmd.Env, childEnv+"="+mode)
	return cmd
}

func runChildProcess(t *testing.T, cmd *exec.Cmd) {
	t.Helper()
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("child process failed: %v\n%s", err, output)
	}
}

// recordingSink is a Sink that keeps what it is handed.
type recordingSink struct {
	name  string
	level logging.Level

	mu      sync.Mutex
	records []logging.Record

	// handle, when set, runs before the record is kept and can fail
	// or panic.
	handle func(logging.Record) error
}

func newRecordingSink(name string, level logging.Level) *recordingSink {
	return &recordingSink{name: name, level: level}
}

func (s *recordingSink) Name() string                  { return s.name }
func (s *recordingSink) EffectiveLevel() logging.Level { return s.level }

func (s *recordingSink) Handle(record logging.Record) error {
	if s.handle != nil {
		if err := s.handle(record); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *recordingSink) snapshot() []logging.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]logging.Record(nil), s.records...)
}

func (s *recordingSink) messages() []string {
	var messages []string
	for _, record := range s.snapshot() {
		messages = append(messages, record.Message)
	}
	return messages
}

// runScope runs body inside a scope delivering to sink and fails the
// test if the scope reports an error.
func runScope(t *testing.T, sink Sink, options *Options, body func()) {
	t.Helper()
	err := Run(context.Background(), sink, options, func(context.Context) error {
		body()
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
}
