// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/logregator/lib/clock"
)

// RootName is the name of the root logger.
const RootName = "root"

// Logger is a named node in the logger hierarchy. Names are
// dot-separated; "a.b" is a child of "a", and every top-level name is
// a child of the root. Loggers are created on first use by Get and live
// for the rest of the process.
//
// All methods are safe for concurrent use.
type Logger struct {
	name      string
	parent    *Logger
	level     atomic.Int64
	propagate atomic.Bool

	mu       sync.RWMutex
	handlers []slog.Handler
}

var registry = struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}{
	loggers: make(map[string]*Logger),
}

var root = newLogger(RootName, nil, Warning)

var timeSource atomic.Pointer[clockBox]

type clockBox struct {
	clock clock.Clock
}

func init() {
	timeSource.Store(&clockBox{clock: clock.Real()})
}

// SetClock replaces the clock that stamps records. Tests use it to make
// rendered output deterministic. It returns the previous clock.
func SetClock(c clock.Clock) clock.Clock {
	return timeSource.Swap(&clockBox{clock: c}).clock
}

func newLogger(name string, parent *Logger, level Level) *Logger {
	logger := &Logger{name: name, parent: parent}
	logger.level.Store(int64(level))
	logger.propagate.Store(true)
	return logger
}

// Root returns the root logger. Its default level is Warning.
func Root() *Logger {
	return root
}

// Get returns the logger with the given dot-separated name, creating
// it and any missing ancestors. The empty name and RootName both
// return the root logger.
func Get(name string) *Logger {
	if name == "" || name == RootName {
		return root
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return lookup(name)
}

// lookup must be called with registry.mu held.
func lookup(name string) *Logger {
	if logger, ok := registry.loggers[name]; ok {
		return logger
	}
	parent := root
	if index := strings.LastIndexByte(name, '.'); index > 0 {
		parent = lookup(name[:index])
	}
	logger := newLogger(name, parent, NotSet)
	registry.loggers[name] = logger
	return logger
}

// Configure returns the named logger with its level set to level. If
// any handlers are given they replace the logger's existing handlers.
func Configure(name string, level Level, handlers ...slog.Handler) *Logger {
	logger := Get(name)
	if len(handlers) > 0 {
		logger.SetHandlers(handlers...)
	}
	logger.SetLevel(level)
	return logger
}

// Name returns the logger's full dotted name.
func (l *Logger) Name() string {
	return l.name
}

// Parent returns the parent logger, or nil for the root.
func (l *Logger) Parent() *Logger {
	return l.parent
}

// Child returns the logger named "<l.Name()>.<suffix>".
func (l *Logger) Child(suffix string) *Logger {
	if l == root {
		return Get(suffix)
	}
	return Get(l.name + "." + suffix)
}

// Level returns the logger's own level, which may be NotSet.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

// SetLevel sets the logger's own level. NotSet makes the logger
// inherit from its ancestors.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int64(level))
}

// EffectiveLevel returns the first level that is set walking from l
// up to the root.
func (l *Logger) EffectiveLevel() Level {
	for current := l; current != nil; current = current.parent {
		if level := current.Level(); level != NotSet {
			return level
		}
	}
	return NotSet
}

// Enabled reports whether a record at level would be emitted.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.EffectiveLevel()
}

// Propagates reports whether records continue to ancestor handlers.
func (l *Logger) Propagates() bool {
	return l.propagate.Load()
}

// SetPropagate controls whether records handled by l continue to its
// ancestors' handlers. Loggers propagate by default.
func (l *Logger) SetPropagate(propagate bool) {
	l.propagate.Store(propagate)
}

// Handlers returns a copy of the logger's own handlers.
func (l *Logger) Handlers() []slog.Handler {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]slog.Handler(nil), l.handlers...)
}

// SetHandlers replaces the logger's handlers.
func (l *Logger) SetHandlers(handlers ...slog.Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append([]slog.Handler(nil), handlers...)
}

// AddHandler appends a handler.
func (l *Logger) AddHandler(handler slog.Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, handler)
}

// RemoveHandler removes every occurrence of handler and reports
// whether anything was removed. Handlers of non-comparable types can
// only be removed with SetHandlers.
func (l *Logger) RemoveHandler(handler slog.Handler) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.handlers[:0]
	removed := false
	for _, existing := range l.handlers {
		if sameHandler(existing, handler) {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	for index := len(kept); index < len(l.handlers); index++ {
		l.handlers[index] = nil
	}
	l.handlers = kept
	return removed
}

func sameHandler(a, b slog.Handler) bool {
	typeA, typeB := reflect.TypeOf(a), reflect.TypeOf(b)
	if typeA != typeB || typeA == nil || !typeA.Comparable() {
		return false
	}
	return a == b
}

// CloseHandlers closes every handler of l that implements io.Closer.
// Handlers stay attached; a closed LineHandler rejects further writes.
func (l *Logger) CloseHandlers() error {
	var errs []error
	for _, handler := range l.Handlers() {
		if closer, ok := handler.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Trace logs msg at Trace. args are slog-style key/value pairs.
func (l *Logger) Trace(msg string, args ...any) { l.emit(Trace, msg, args, "") }

// Debug logs msg at Debug.
func (l *Logger) Debug(msg string, args ...any) { l.emit(Debug, msg, args, "") }

// Info logs msg at Info.
func (l *Logger) Info(msg string, args ...any) { l.emit(Info, msg, args, "") }

// Warning logs msg at Warning.
func (l *Logger) Warning(msg string, args ...any) { l.emit(Warning, msg, args, "") }

// Error logs msg at Error.
func (l *Logger) Error(msg string, args ...any) { l.emit(Error, msg, args, "") }

// Critical logs msg at Critical.
func (l *Logger) Critical(msg string, args ...any) { l.emit(Critical, msg, args, "") }

// Log logs msg at an arbitrary level.
func (l *Logger) Log(level Level, msg string, args ...any) { l.emit(level, msg, args, "") }

// Logf formats the message with fmt.Sprintf. Formatting happens only
// when the level is enabled.
func (l *Logger) Logf(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	l.emit(level, fmt.Sprintf(format, args...), nil, "")
}

// Tracef logs a formatted message at Trace.
func (l *Logger) Tracef(format string, args ...any) {
	if !l.Enabled(Trace) {
		return
	}
	l.emit(Trace, fmt.Sprintf(format, args...), nil, "")
}

// Debugf logs a formatted message at Debug.
func (l *Logger) Debugf(format string, args ...any) {
	if !l.Enabled(Debug) {
		return
	}
	l.emit(Debug, fmt.Sprintf(format, args...), nil, "")
}

// Infof logs a formatted message at Info.
func (l *Logger) Infof(format string, args ...any) {
	if !l.Enabled(Info) {
		return
	}
	l.emit(Info, fmt.Sprintf(format, args...), nil, "")
}

// Warningf logs a formatted message at Warning.
func (l *Logger) Warningf(format string, args ...any) {
	if !l.Enabled(Warning) {
		return
	}
	l.emit(Warning, fmt.Sprintf(format, args...), nil, "")
}

// Errorf logs a formatted message at Error.
func (l *Logger) Errorf(format string, args ...any) {
	if !l.Enabled(Error) {
		return
	}
	l.emit(Error, fmt.Sprintf(format, args...), nil, "")
}

// Criticalf logs a formatted message at Critical.
func (l *Logger) Criticalf(format string, args ...any) {
	if !l.Enabled(Critical) {
		return
	}
	l.emit(Critical, fmt.Sprintf(format, args...), nil, "")
}

// Exception logs msg at Error with err and the current goroutine's
// stack attached as the record's exception text.
func (l *Logger) Exception(err error, msg string, args ...any) {
	if !l.Enabled(Error) {
		return
	}
	exception := "<nil>"
	if err != nil {
		exception = fmt.Sprintf("%+v", err)
	}
	exception += "\n\n" + strings.TrimRight(string(debug.Stack()), "\n")
	l.emit(Error, msg, args, exception)
}

// emit is the common tail of the emission methods. It must be called
// directly by the exported method so the caller's frame is at a fixed
// depth.
func (l *Logger) emit(level Level, msg string, args []any, exception string) {
	if !l.Enabled(level) {
		return
	}
	var pcs [1]uintptr
	// Skip runtime.Callers, emit, and the exported method.
	runtime.Callers(3, pcs[:])
	l.publish(Record{
		LoggerName:  l.name,
		Level:       level,
		Message:     msg,
		Attrs:       attrsFromArgs(args),
		Time:        timeSource.Load().clock.Now(),
		ProcessID:   os.Getpid(),
		GoroutineID: goroutineID(),
		Exception:   exception,
		Source:      sourceOf(pcs[0]),
	})
}

// publish offers record to the interception point and falls back to
// the local handler chain. It never fails and never panics: logging
// must not break the code that logs.
func (l *Logger) publish(record Record) {
	defer func() {
		if recovered := recover(); recovered != nil {
			Fallback().Error("panic while emitting log record",
				"logger", record.LoggerName,
				"panic", fmt.Sprint(recovered),
			)
		}
	}()
	if interceptor := currentInterceptor(); interceptor != nil && interceptor.Intercept(record) {
		return
	}
	if err := l.dispatch(record); err != nil {
		Fallback().Error("log handler failed",
			"logger", record.LoggerName,
			"error", err,
		)
	}
}

// Handle delivers record to l's handlers and, while propagation
// allows, to its ancestors' handlers, as if l had emitted it. It
// bypasses both the level check and the interception point; this is
// the entry point an aggregation collector redelivers through.
func (l *Logger) Handle(record Record) error {
	return l.dispatch(record)
}

func (l *Logger) dispatch(record Record) error {
	ctx := withRecord(context.Background(), &record)
	converted := record.slogRecord()
	level := record.Level.Slog()

	var errs []error
	found := false
	for current := l; current != nil; current = current.parent {
		for _, handler := range current.Handlers() {
			found = true
			if !handler.Enabled(ctx, level) {
				continue
			}
			if err := handler.Handle(ctx, converted.Clone()); err != nil {
				errs = append(errs, fmt.Errorf("handler of %q: %w", current.name, err))
			}
		}
		if !current.Propagates() {
			break
		}
	}
	if !found {
		if handler := lastResort(); handler.Enabled(ctx, level) {
			if err := handler.Handle(ctx, converted); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

var lastResort = sync.OnceValue(func() slog.Handler {
	return NewLineHandler(os.Stderr, &LineOptions{Level: Warning})
})
