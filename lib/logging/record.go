// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// Record is one captured log event. It is a self-describing value:
// everything a handler needs to reproduce the original emission is in
// the record itself, which is what lets a record cross a process
// boundary and be rendered by a logger that never saw the call.
//
// Records use cbor struct tags: they are the payload of the
// aggregation transport and are never serialized as JSON.
type Record struct {
	LoggerName  string    `cbor:"logger"`
	Level       Level     `cbor:"level"`
	Message     string    `cbor:"message"`
	Attrs       []Attr    `cbor:"attrs,omitempty"`
	Time        time.Time `cbor:"time"`
	ProcessID   int       `cbor:"pid"`
	GoroutineID uint64    `cbor:"goroutine,omitempty"`

	// Exception is the rendered error and stack trace for records
	// emitted through Logger.Exception. Empty otherwise.
	Exception string `cbor:"exception,omitempty"`

	// Source is "file:line function" of the call site, when known.
	Source string `cbor:"source,omitempty"`
}

// Attr is one structured argument of a record. Values are normalized
// to bool, int64, uint64, float64, or string when the record is built
// so that they survive serialization unchanged.
type Attr struct {
	Key   string `cbor:"k"`
	Value any    `cbor:"v"`
}

// IsLocal reports whether the record was emitted by this process.
func (r Record) IsLocal() bool {
	return r.ProcessID == os.Getpid()
}

// slogRecord builds the slog.Record handed to output handlers. The
// logger name, the originating pid (for records from other processes),
// and the exception travel as attributes so that stock slog handlers
// render them; LineHandler reads the Record from the context instead.
func (r Record) slogRecord() slog.Record {
	converted := slog.NewRecord(r.Time, r.Level.Slog(), r.Message, 0)
	if r.LoggerName != "" {
		converted.AddAttrs(slog.String(LoggerKey, r.LoggerName))
	}
	for _, attr := range r.Attrs {
		converted.AddAttrs(slog.Any(attr.Key, attr.Value))
	}
	if !r.IsLocal() {
		converted.AddAttrs(slog.Int(ProcessKey, r.ProcessID))
	}
	if r.Exception != "" {
		converted.AddAttrs(slog.String(ExceptionKey, r.Exception))
	}
	return converted
}

// Attribute keys added by slogRecord.
const (
	LoggerKey    = "logger"
	ProcessKey   = "pid"
	ExceptionKey = "exception"
)

type recordContextKey struct{}

func withRecord(ctx context.Context, record *Record) context.Context {
	return context.WithValue(ctx, recordContextKey{}, record)
}

// RecordFromContext returns the Record being handled, for slog
// handlers that want the full record rather than its slog rendering.
func RecordFromContext(ctx context.Context) (*Record, bool) {
	record, ok := ctx.Value(recordContextKey{}).(*Record)
	return record, ok
}

// attrsFromArgs turns slog-style key/value arguments into Attrs.
func attrsFromArgs(args []any) []Attr {
	if len(args) == 0 {
		return nil
	}
	var record slog.Record
	record.Add(args...)
	attrs := make([]Attr, 0, record.NumAttrs())
	record.Attrs(func(attr slog.Attr) bool {
		attrs = appendAttr(attrs, "", attr)
		return true
	})
	return attrs
}

// appendAttr flattens groups into dotted keys and normalizes values.
func appendAttr(attrs []Attr, prefix string, attr slog.Attr) []Attr {
	value := attr.Value.Resolve()
	key := attr.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if value.Kind() == slog.KindGroup {
		groupPrefix := key
		if attr.Key == "" {
			groupPrefix = prefix
		}
		for _, member := range value.Group() {
			attrs = appendAttr(attrs, groupPrefix, member)
		}
		return attrs
	}
	if attr.Key == "" {
		return attrs
	}
	return append(attrs, Attr{Key: key, Value: normalizeValue(value)})
}

func normalizeValue(value slog.Value) any {
	switch value.Kind() {
	case slog.KindBool:
		return value.Bool()
	case slog.KindInt64:
		return value.Int64()
	case slog.KindUint64:
		return value.Uint64()
	case slog.KindFloat64:
		return value.Float64()
	case slog.KindString:
		return value.String()
	case slog.KindDuration:
		return value.Duration().String()
	case slog.KindTime:
		return value.Time().Format(time.RFC3339Nano)
	default:
		switch concrete := value.Any().(type) {
		case error:
			return concrete.Error()
		case fmt.Stringer:
			return concrete.String()
		default:
			return fmt.Sprint(concrete)
		}
	}
}

// sourceOf renders the call site at pc as "file:line function".
func sourceOf(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	if frame.File == "" {
		return ""
	}
	return frame.File + ":" + strconv.Itoa(frame.Line) + " " + frame.Function
}

var stackBuffers = sync.Pool{
	New: func() any {
		buffer := make([]byte, 64)
		return &buffer
	},
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID parses the current goroutine's id out of the first line
// of its stack trace ("goroutine 4707 [running]:"). Go deliberately
// has no API for this; it is recorded only so that aggregated records
// carry the same identity a thread id would in other runtimes.
func goroutineID() uint64 {
	bufferPointer := stackBuffers.Get().(*[]byte)
	defer stackBuffers.Put(bufferPointer)
	buffer := *bufferPointer
	buffer = buffer[:runtime.Stack(buffer, false)]
	buffer = bytes.TrimPrefix(buffer, goroutinePrefix)
	end := bytes.IndexByte(buffer, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(buffer[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
