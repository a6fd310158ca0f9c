// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"log/slog"
	"testing"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{NotSet, "NOTSET"},
		{Trace, "TRACE"},
		{Debug, "DEBUG"},
		{Info, "INFO"},
		{Warning, "WARNING"},
		{Error, "ERROR"},
		{Critical, "CRITICAL"},
		{Info + 2, "INFO+2"},
		{Trace - 1, "TRACE-1"},
		{Critical + 5, "CRITICAL+5"},
	}
	for _, test := range tests {
		if got := test.level.String(); got != test.want {
			t.Errorf("Level(%d).String() = %q, want %q", int(test.level), got, test.want)
		}
	}
}

func TestLevelMatchesSlog(t *testing.T) {
	pairs := map[Level]slog.Level{
		Debug:   slog.LevelDebug,
		Info:    slog.LevelInfo,
		Warning: slog.LevelWarn,
		Error:   slog.LevelError,
	}
	for level, want := range pairs {
		if got := level.Slog(); got != want {
			t.Errorf("%s.Slog() = %v, want %v", level, got, want)
		}
	}
	if !(Trace < Debug && Error < Critical) {
		t.Error("Trace and Critical must extend the slog range")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"info", Info},
		{"INFO", Info},
		{" Warning ", Warning},
		{"warn", Warning},
		{"fatal", Critical},
		{"critical", Critical},
		{"trace", Trace},
		{"notset", NotSet},
		{"debug+1", Debug + 1},
		{"error-2", Error - 2},
		{"12", Critical},
		{"-8", Trace},
	}
	for _, test := range tests {
		got, err := ParseLevel(test.input)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", test.input, got, test.want)
		}
	}
}

func TestParseLevelRejects(t *testing.T) {
	for _, input := range []string{"", "loud", "info+x", "notset+1"} {
		if _, err := ParseLevel(input); err == nil {
			t.Errorf("ParseLevel(%q) succeeded, want error", input)
		}
	}
}

func TestLevelTextRoundtrip(t *testing.T) {
	for _, level := range []Level{Trace, Debug, Info + 1, Warning, Error, Critical} {
		text, err := level.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%s): %v", level, err)
		}
		var decoded Level
		if err := decoded.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if decoded != level {
			t.Errorf("text roundtrip of %s gave %s", level, decoded)
		}
	}
}
