// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"strings"
	"sync"
	"testing"
)

type capturingInterceptor struct {
	mu      sync.Mutex
	records []Record
	accept  func(Record) bool
}

func (c *capturingInterceptor) Intercept(record Record) bool {
	if c.accept != nil && !c.accept(record) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
	return true
}

func (c *capturingInterceptor) snapshot() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.records...)
}

// installInterceptor installs interceptor for the rest of the test.
func installInterceptor(t *testing.T, interceptor Interceptor) {
	t.Helper()
	previous := Interception()
	installed, ok := Intercept(previous, interceptor)
	if !ok {
		t.Fatal("Intercept failed on a fresh snapshot")
	}
	t.Cleanup(func() {
		if !RestoreInterception(installed, previous) {
			t.Error("RestoreInterception failed")
		}
	})
}

func TestInterceptionDivertsEnabledRecords(t *testing.T) {
	logger, output := newBufferedLogger(t, Info)
	interceptor := &capturingInterceptor{}
	installInterceptor(t, interceptor)

	logger.Debug("below level")
	logger.Info("captured", "key", "value")

	records := interceptor.snapshot()
	if len(records) != 1 {
		t.Fatalf("intercepted %d records, want 1", len(records))
	}
	record := records[0]
	if record.LoggerName != logger.Name() || record.Level != Info || record.Message != "captured" {
		t.Errorf("intercepted %+v", record)
	}
	if !record.IsLocal() {
		t.Errorf("ProcessID = %d, want this process", record.ProcessID)
	}
	if record.GoroutineID == 0 {
		t.Error("GoroutineID was not recorded")
	}
	if !strings.Contains(record.Source, "intercept_test.go:") {
		t.Errorf("Source = %q, want this file", record.Source)
	}
	if output.String() != "" {
		t.Errorf("intercepted record reached local handlers: %q", output.String())
	}
}

func TestInterceptorCanDecline(t *testing.T) {
	logger, output := newBufferedLogger(t, Info)
	interceptor := &capturingInterceptor{
		accept: func(record Record) bool { return record.Message != "keep local" },
	}
	installInterceptor(t, interceptor)

	logger.Info("keep local")
	logger.Info("take")

	if got := interceptor.snapshot(); len(got) != 1 || got[0].Message != "take" {
		t.Errorf("intercepted %v, want only \"take\"", got)
	}
	if !strings.Contains(output.String(), "keep local") {
		t.Errorf("declined record did not reach local handlers: %q", output.String())
	}
}

func TestInterceptRejectsStaleSnapshot(t *testing.T) {
	stale := Interception()
	installInterceptor(t, &capturingInterceptor{})

	if _, ok := Intercept(stale, &capturingInterceptor{}); ok {
		t.Error("Intercept succeeded on a stale snapshot")
	}
	if _, ok := Intercept(InterceptionState{}, &capturingInterceptor{}); ok {
		t.Error("Intercept succeeded on the zero state")
	}
}

func TestRestoreDetectsReplacement(t *testing.T) {
	original := Interception()
	first, ok := Intercept(original, &capturingInterceptor{})
	if !ok {
		t.Fatal("first Intercept failed")
	}
	second, ok := Intercept(first, &capturingInterceptor{})
	if !ok {
		t.Fatal("second Intercept failed")
	}

	if RestoreInterception(first, original) {
		t.Error("restoring an installation that was replaced succeeded")
	}
	if Interception().Interceptor() != second.Interceptor() {
		t.Error("failed restore changed the interception point")
	}

	if !RestoreInterception(second, first) || !RestoreInterception(first, original) {
		t.Fatal("unwinding in order failed")
	}
	if Interception().Interceptor() != nil {
		t.Error("interception point not empty after unwinding")
	}
}

func TestSlogBridgeIsIntercepted(t *testing.T) {
	logger, _ := newBufferedLogger(t, Info)
	interceptor := &capturingInterceptor{}
	installInterceptor(t, interceptor)

	logger.Slog().Warn("via slog", "n", 1)

	records := interceptor.snapshot()
	if len(records) != 1 || records[0].Level != Warning || records[0].LoggerName != logger.Name() {
		t.Fatalf("intercepted %+v", records)
	}
	if len(records[0].Attrs) != 1 || records[0].Attrs[0] != (Attr{Key: "n", Value: int64(1)}) {
		t.Errorf("attrs = %+v", records[0].Attrs)
	}
}
