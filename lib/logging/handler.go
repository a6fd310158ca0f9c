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
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/klauspost/compress/zstd"
	"github.com/muesli/termenv"
)

// TimeFormat is the timestamp layout of LineHandler output.
const TimeFormat = "2006-01-02 15:04:05"

// ErrHandlerClosed is returned by a LineHandler after Close.
var ErrHandlerClosed = errors.New("logging: handler closed")

// LineOptions configures a LineHandler.
type LineOptions struct {
	// Level is the minimum level written. The zero value is Info.
	Level Level

	// Color renders the level name with a per-level terminal color.
	Color bool
}

// LineHandler is a slog.Handler that writes one human-readable line
// per record:
//
//	2026-03-01 12:00:00 worker.fetch INFO fetched url=https://example.com pid=4242
//
// The pid attribute appears only for records that came from another
// process. Exception text follows on tab-indented lines. When the
// handler is used through a Logger, the name, pid and exception come
// from the Record carried in the context and every user attribute is
// written as is. Stock slog callers get the "logger", "pid" and
// "exception" attributes interpreted when they have the expected kind.
type LineHandler struct {
	output *lineOutput
	level  Level
	color  bool
	prefix string
	attrs  []Attr
}

// lineOutput is shared by a handler and every handler derived from it
// with WithAttrs/WithGroup.
type lineOutput struct {
	mu     sync.Mutex
	writer io.Writer
	closer func() error
	closed bool
}

// NewLineHandler returns a handler writing to w. Closing the handler
// does not close w.
func NewLineHandler(w io.Writer, options *LineOptions) *LineHandler {
	if options == nil {
		options = &LineOptions{}
	}
	return &LineHandler{
		output: &lineOutput{writer: w},
		level:  options.Level,
		color:  options.Color,
	}
}

// OpenFile returns a handler writing to the file at path. mode is "a"
// to append (the default when empty) or "w" to truncate. A path ending
// in ".zst" is written as a zstd stream, flushed after every record so
// the file is readable while it grows. Close the handler to release
// the file.
func OpenFile(path, mode string, options *LineOptions) (*LineHandler, error) {
	flags := os.O_WRONLY | os.O_CREATE
	switch mode {
	case "", "a":
		flags |= os.O_APPEND
	case "w":
		flags |= os.O_TRUNC
	default:
		return nil, fmt.Errorf("logging: invalid file mode %q (want \"a\" or \"w\")", mode)
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: opening %s: %w", path, err)
	}

	handler := NewLineHandler(file, options)
	handler.output.closer = file.Close
	if strings.HasSuffix(path, ".zst") {
		encoder, err := zstd.NewWriter(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("logging: creating zstd writer for %s: %w", path, err)
		}
		handler.output.writer = &flushingEncoder{encoder: encoder}
		handler.output.closer = func() error {
			return errors.Join(encoder.Close(), file.Close())
		}
	}
	return handler, nil
}

type flushingEncoder struct {
	encoder *zstd.Encoder
}

func (f *flushingEncoder) Write(p []byte) (int, error) {
	n, err := f.encoder.Write(p)
	if err != nil {
		return n, err
	}
	return n, f.encoder.Flush()
}

// Close releases the underlying file, if the handler owns one. It is
// idempotent.
func (h *LineHandler) Close() error {
	h.output.mu.Lock()
	defer h.output.mu.Unlock()
	if h.output.closed {
		return nil
	}
	h.output.closed = true
	if h.output.closer != nil {
		return h.output.closer()
	}
	return nil
}

// Level returns the handler's minimum level.
func (h *LineHandler) Level() Level {
	return h.level
}

// Enabled implements slog.Handler.
func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return Level(level) >= h.level
}

// WithAttrs implements slog.Handler.
func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	derived.attrs = append([]Attr(nil), h.attrs...)
	for _, attr := range attrs {
		derived.attrs = appendAttr(derived.attrs, h.prefix, attr)
	}
	return &derived
}

// WithGroup implements slog.Handler.
func (h *LineHandler) WithGroup(name string) slog.Handler {
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

// Handle implements slog.Handler.
func (h *LineHandler) Handle(ctx context.Context, converted slog.Record) error {
	var builder strings.Builder
	builder.WriteString(converted.Time.Format(TimeFormat))

	var name, exception string
	var pid int
	var rest []Attr
	if record, fromLogger := RecordFromContext(ctx); fromLogger {
		// User attributes are written as given, whatever their keys.
		name = record.LoggerName
		exception = record.Exception
		if !record.IsLocal() {
			pid = record.ProcessID
		}
		for _, attr := range record.Attrs {
			if h.prefix != "" {
				attr.Key = h.prefix + "." + attr.Key
			}
			rest = append(rest, attr)
		}
	} else {
		converted.Attrs(func(attr slog.Attr) bool {
			if h.prefix == "" && h.reserved(attr, &name, &pid, &exception) {
				return true
			}
			rest = appendAttr(rest, h.prefix, attr)
			return true
		})
	}

	if name != "" {
		builder.WriteByte(' ')
		builder.WriteString(name)
	}
	builder.WriteByte(' ')
	builder.WriteString(h.renderLevel(Level(converted.Level)))
	builder.WriteByte(' ')
	builder.WriteString(converted.Message)
	for _, attr := range h.attrs {
		writeAttr(&builder, attr)
	}
	for _, attr := range rest {
		writeAttr(&builder, attr)
	}
	if pid != 0 {
		writeAttr(&builder, Attr{Key: ProcessKey, Value: int64(pid)})
	}
	if exception != "" {
		for _, line := range strings.Split(exception, "\n") {
			builder.WriteString("\n\t")
			builder.WriteString(line)
		}
	}
	builder.WriteByte('\n')

	h.output.mu.Lock()
	defer h.output.mu.Unlock()
	if h.output.closed {
		return ErrHandlerClosed
	}
	_, err := io.WriteString(h.output.writer, builder.String())
	return err
}

// reserved consumes the attributes slogRecord adds, for callers that
// use the handler through plain slog. An attribute whose value has the
// wrong kind is not consumed and renders like any other.
func (h *LineHandler) reserved(attr slog.Attr, name *string, pid *int, exception *string) bool {
	value := attr.Value.Resolve()
	switch attr.Key {
	case LoggerKey:
		if value.Kind() == slog.KindString && *name == "" {
			*name = value.String()
			return true
		}
	case ProcessKey:
		switch value.Kind() {
		case slog.KindInt64:
			*pid = int(value.Int64())
			return true
		case slog.KindUint64:
			*pid = int(value.Uint64())
			return true
		}
	case ExceptionKey:
		if value.Kind() == slog.KindString {
			*exception = value.String()
			return true
		}
	}
	return false
}

func writeAttr(builder *strings.Builder, attr Attr) {
	builder.WriteByte(' ')
	builder.WriteString(attr.Key)
	builder.WriteByte('=')
	value := fmt.Sprint(attr.Value)
	if needsQuoting(value) {
		value = strconv.Quote(value)
	}
	builder.WriteString(value)
}

func needsQuoting(value string) bool {
	if value == "" {
		return true
	}
	for _, r := range value {
		if unicode.IsSpace(r) || r == '"' || r == '=' || !unicode.IsPrint(r) {
			return true
		}
	}
	return false
}

var levelColors = map[Level]lipgloss.Color{
	Trace:    lipgloss.Color("8"),
	Debug:    lipgloss.Color("6"),
	Info:     lipgloss.Color("2"),
	Warning:  lipgloss.Color("3"),
	Error:    lipgloss.Color("1"),
	Critical: lipgloss.Color("9"),
}

func (h *LineHandler) renderLevel(level Level) string {
	name := level.String()
	if !h.color {
		return name
	}
	color, ok := levelColors[level]
	if !ok {
		return name
	}
	return stderrRenderer().NewStyle().Foreground(color).Bold(level >= Error).Render(name)
}

// stderrRenderer detects the color profile of stderr, where console
// output goes, rather than lipgloss's default of stdout.
var stderrRenderer = sync.OnceValue(func() *lipgloss.Renderer {
	return lipgloss.NewRenderer(os.Stderr, termenv.WithColorCache(true))
})
