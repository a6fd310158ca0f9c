// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"context"
	"log/slog"
	"os"
)

// Slog returns a *slog.Logger whose records flow through l exactly as
// if they had been emitted with l's own methods: same level check,
// same interception point, same handlers. Libraries that accept a
// *slog.Logger can be handed one of these and will be aggregated along
// with everything else.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(&bridgeHandler{logger: l})
}

type bridgeHandler struct {
	logger *Logger
	prefix string
	attrs  []Attr
}

func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.Enabled(Level(level))
}

func (h *bridgeHandler) Handle(_ context.Context, converted slog.Record) error {
	stamp := converted.Time
	if stamp.IsZero() {
		stamp = timeSource.Load().clock.Now()
	}
	attrs := append([]Attr(nil), h.attrs...)
	converted.Attrs(func(attr slog.Attr) bool {
		attrs = appendAttr(attrs, h.prefix, attr)
		return true
	})
	if len(attrs) == 0 {
		attrs = nil
	}
	h.logger.publish(Record{
		LoggerName:  h.logger.name,
		Level:       Level(converted.Level),
		Message:     converted.Message,
		Attrs:       attrs,
		Time:        stamp,
		ProcessID:   os.Getpid(),
		GoroutineID: goroutineID(),
		Source:      sourceOf(converted.PC),
	})
	return nil
}

func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	derived.attrs = append([]Attr(nil), h.attrs...)
	for _, attr := range attrs {
		derived.attrs = appendAttr(derived.attrs, h.prefix, attr)
	}
	return &derived
}

func (h *bridgeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := *h
	if h.prefix == "" {
		derived.prefix = name
	} else {
		derived.prefix = h.prefix + "." + name
	}
	return &derived
}
