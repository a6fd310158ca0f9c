// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/logregator/lib/clock"
	"github.com/bureau-foundation/logregator/lib/logging"
)

// DefaultJoinTimeout bounds how long the outermost Exit waits for the
// collector to deliver what is left in the transport.
const DefaultJoinTimeout = 5 * time.Second

// State is the lifecycle state of a Scope.
type State int32

const (
	Inactive State = iota
	Activating
	Active
	Deactivating
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Activating:
		return "activating"
	case Active:
		return "active"
	case Deactivating:
		return "deactivating"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Options configures a Scope. The zero value is usable.
type Options struct {
	// JoinTimeout bounds the wait for the collector on the outermost
	// Exit. A collector still running when it expires is abandoned
	// and the records it had not delivered are lost. Defaults to
	// DefaultJoinTimeout.
	JoinTimeout time.Duration

	// Annotate prefixes delivered messages with the sink name and the
	// originating pid. See CollectorOptions.
	Annotate bool

	// Transport configures the session's transport. Its Level is
	// always the sink's level; Clock and Logger default to the ones
	// below.
	Transport TransportOptions

	// Clock times the join. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives operational messages about aggregation itself.
	// Defaults to logging.Fallback(). It must not be a logger of
	// package logging: those are what the scope intercepts.
	Logger *slog.Logger
}

// Stats describes the traffic of an aggregation session.
type Stats struct {
	CollectorStats

	// Dropped counts records this process failed to hand to the
	// transport, and remote records lost at close.
	Dropped uint64
}

// Scope aggregates every record emitted in this process, and in child
// processes started with Command or PrepareCommand, into one sink for
// as long as it is active.
//
// Scopes nest. The first scope to become active starts an aggregation
// session: a transport, a collector delivering to that scope's sink,
// and the interception of every logger in the process. Scopes entered
// while a session is running join it. Their sinks receive nothing; all
// records keep going to the outermost sink until the last active scope
// exits, which ends the session and restores the logging configuration
// that was in effect before the first Enter.
//
// Enter and Exit are safe to call from any goroutine. A Scope can be
// entered again after it has exited.
type Scope struct {
	sink    Sink
	options Options

	state   atomic.Int32
	session atomic.Pointer[session]
	depth   atomic.Int32
}

// session is the running machinery shared by all active scopes.
type session struct {
	sink        Sink
	transport   *Transport
	collector   *Collector
	installer   *installer
	cancel      context.CancelFunc
	token       string
	joinTimeout time.Duration
	clock       clock.Clock
	logger      *slog.Logger
}

// active is the process-wide aggregation state. The stack holds the
// active scopes in entry order; session is non-nil exactly while the
// stack is not empty.
var active struct {
	mu      sync.Mutex
	stack   []*Scope
	session *session
}

// New returns an inactive scope delivering to sink.
func New(sink Sink, options *Options) *Scope {
	scope := &Scope{sink: sink}
	if options != nil {
		scope.options = *options
	}
	return scope
}

// Run enters a scope, runs body, and exits the scope however body
// returns. Errors from body and Exit are joined.
func Run(ctx context.Context, sink Sink, options *Options, body func(ctx context.Context) error) (err error) {
	scope := New(sink, options)
	if err := scope.Enter(); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, scope.Exit())
	}()
	return body(ctx)
}

// Enter activates the scope, starting an aggregation session if none
// is running.
func (s *Scope) Enter() error {
	if isNilSink(s.sink) {
		return ErrNoSink
	}

	active.mu.Lock()
	defer active.mu.Unlock()

	if !s.state.CompareAndSwap(int32(Inactive), int32(Activating)) {
		return ErrAlreadyActive
	}
	if active.session == nil {
		started, err := startSession(s.sink, &s.options)
		if err != nil {
			s.state.Store(int32(Inactive))
			return err
		}
		active.session = started
	}
	active.stack = append(active.stack, s)
	s.session.Store(active.session)
	s.depth.Store(int32(len(active.stack)))
	s.state.Store(int32(Active))
	return nil
}

// Exit deactivates the scope. When it is the last active scope the
// session ends: children can no longer bind, the transport is closed,
// the collector is given JoinTimeout to deliver what is left, and the
// logging configuration is restored. A returned ErrRestore means the
// restoration failed; the scope is inactive regardless.
func (s *Scope) Exit() error {
	active.mu.Lock()
	defer active.mu.Unlock()

	if !s.state.CompareAndSwap(int32(Active), int32(Deactivating)) {
		return ErrNotActive
	}
	defer s.state.Store(int32(Inactive))

	if index := slices.Index(active.stack, s); index >= 0 {
		active.stack = slices.Delete(active.stack, index, index+1)
	}
	s.depth.Store(0)
	if len(active.stack) > 0 {
		return nil
	}
	ending := active.session
	active.session = nil
	return ending.stop()
}

// State returns the scope's lifecycle state.
func (s *Scope) State() State {
	return State(s.state.Load())
}

// Depth returns the number of scopes that were active when s was
// entered, s included: 1 for the scope that started the session. It
// is 0 while s is inactive.
func (s *Scope) Depth() int {
	return int(s.depth.Load())
}

// Sink returns the sink the scope was created with. Only the outermost
// active scope's sink receives records.
func (s *Scope) Sink() Sink {
	return s.sink
}

// Stats returns the counters of the session s joined most recently.
// They remain readable after the scope exits.
func (s *Scope) Stats() Stats {
	joined := s.session.Load()
	if joined == nil {
		return Stats{}
	}
	return Stats{
		CollectorStats: joined.collector.Stats(),
		Dropped:        joined.transport.Dropped(),
	}
}

// SessionActive reports whether an aggregation session is running in this
// process.
func SessionActive() bool {
	active.mu.Lock()
	defer active.mu.Unlock()
	return active.session != nil
}

// ActiveHandle returns the encoded handle of the running session, the
// value a child process finds in HandleEnv.
func ActiveHandle() (string, bool) {
	active.mu.Lock()
	defer active.mu.Unlock()
	if active.session == nil {
		return "", false
	}
	return active.session.token, true
}

func startSession(sink Sink, options *Options) (*session, error) {
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Fallback()
	}
	joinTimeout := options.JoinTimeout
	if joinTimeout <= 0 {
		joinTimeout = DefaultJoinTimeout
	}

	// The level is read before installation lowers the root's level,
	// which a sink without a level of its own would inherit.
	level := sink.EffectiveLevel()

	transportOptions := options.Transport
	transportOptions.Level = level
	if transportOptions.Clock == nil {
		transportOptions.Clock = clk
	}
	if transportOptions.Logger == nil {
		transportOptions.Logger = logger
	}
	transport, err := NewTransport(&transportOptions)
	if err != nil {
		return nil, err
	}
	token, err := transport.Handle().Encode()
	if err != nil {
		transport.Close()
		return nil, err
	}

	in, err := install(transport, level, sink.Name())
	if err != nil {
		transport.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	collector := NewCollector(transport, sink, &CollectorOptions{
		Annotate: options.Annotate,
		Logger:   logger,
	})
	go collector.Run(ctx)

	logger.Debug("aggregation session started",
		"session", transport.Session(),
		"sink", sink.Name(),
		"level", level,
	)
	return &session{
		sink:        sink,
		transport:   transport,
		collector:   collector,
		installer:   in,
		cancel:      cancel,
		token:       token,
		joinTimeout: joinTimeout,
		clock:       clk,
		logger:      logger,
	}, nil
}

// stop tears the session down. It runs with active.mu held, after the
// session has been unpublished so no new child can be given its handle.
func (s *session) stop() error {
	if err := s.transport.Close(); err != nil {
		s.logger.Warn("closing transport failed",
			"session", s.transport.Session(),
			"error", err,
		)
	}

	select {
	case <-s.collector.Done():
	case <-s.clock.After(s.joinTimeout):
		s.logger.Warn("collector did not finish in time, abandoning undelivered records",
			"session", s.transport.Session(),
			"sink", s.sink.Name(),
			"timeout", s.joinTimeout,
		)
	}
	s.cancel()

	restoreErr := s.installer.uninstall()

	stats := s.collector.Stats()
	s.logger.Debug("aggregation session ended",
		"session", s.transport.Session(),
		"delivered", stats.Delivered,
		"filtered", stats.Filtered,
		"failed", stats.Failed,
		"dropped", s.transport.Dropped(),
	)
	return restoreErr
}

// isNilSink catches typed nils such as a nil *logging.Logger.
func isNilSink(sink Sink) bool {
	if sink == nil {
		return true
	}
	value := reflect.ValueOf(sink)
	switch value.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return value.IsNil()
	}
	return false
}
