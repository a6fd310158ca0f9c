// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Level is the severity of a record. Numeric values line up with
// log/slog so a Level converts to slog.Level without a lookup table:
// Trace and Critical extend slog's four levels by one step in each
// direction.
type Level int

const (
	// NotSet on a logger means "use the nearest ancestor's level".
	// It is never the level of a record.
	NotSet   Level = -16
	Trace    Level = -8
	Debug    Level = Level(slog.LevelDebug)
	Info     Level = Level(slog.LevelInfo)
	Warning  Level = Level(slog.LevelWarn)
	Error    Level = Level(slog.LevelError)
	Critical Level = 12
)

// String returns the canonical upper-case name. Levels between the
// named ones render as "NAME+n" like slog does.
func (l Level) String() string {
	switch {
	case l == NotSet:
		return "NOTSET"
	case l < Debug:
		return levelName("TRACE", l-Trace)
	case l < Info:
		return levelName("DEBUG", l-Debug)
	case l < Warning:
		return levelName("INFO", l-Info)
	case l < Error:
		return levelName("WARNING", l-Warning)
	case l < Critical:
		return levelName("ERROR", l-Error)
	default:
		return levelName("CRITICAL", l-Critical)
	}
}

func levelName(base string, offset Level) string {
	if offset == 0 {
		return base
	}
	return fmt.Sprintf("%s%+d", base, int(offset))
}

// Slog converts the level to the equivalent slog.Level.
func (l Level) Slog() slog.Level {
	return slog.Level(l)
}

// MarshalText renders the level name, so levels read naturally in
// YAML, JSON, and CBOR.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts anything ParseLevel accepts.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel parses a level name (case-insensitive, with an optional
// "+n"/"-n" offset) or a decimal number. WARN and FATAL are accepted
// as aliases of WARNING and CRITICAL.
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "" {
		return NotSet, fmt.Errorf("logging: empty level")
	}
	if number, err := strconv.Atoi(name); err == nil {
		return Level(number), nil
	}

	var offset int
	if index := strings.IndexAny(name, "+-"); index > 0 {
		value, err := strconv.Atoi(name[index:])
		if err != nil {
			return NotSet, fmt.Errorf("logging: invalid level %q: %w", s, err)
		}
		offset = value
		name = name[:index]
	}

	var base Level
	switch name {
	case "NOTSET":
		if offset != 0 {
			return NotSet, fmt.Errorf("logging: invalid level %q", s)
		}
		return NotSet, nil
	case "TRACE":
		base = Trace
	case "DEBUG":
		base = Debug
	case "INFO":
		base = Info
	case "WARNING", "WARN":
		base = Warning
	case "ERROR":
		base = Error
	case "CRITICAL", "FATAL":
		base = Critical
	default:
		return NotSet, fmt.Errorf("logging: unknown level %q", s)
	}
	return base + Level(offset), nil
}
