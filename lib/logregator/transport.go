// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logregator

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/logregator/lib/clock"
	"github.com/bureau-foundation/logregator/lib/codec"
	"github.com/bureau-foundation/logregator/lib/logging"
	"github.com/bureau-foundation/logregator/lib/netutil"
)

const (
	// DefaultCapacity is the default number of records a transport or
	// producer buffers before dropping.
	DefaultCapacity = 4096

	// DefaultLinger is how long Transport.Close waits for connected
	// producers to finish sending.
	DefaultLinger = time.Second

	// helloTimeout bounds how long an accepted connection may take to
	// authenticate. A well-behaved producer sends hello immediately
	// after connecting.
	helloTimeout = 10 * time.Second

	socketName = "transport.sock"
)

// TransportOptions configures a Transport. The zero value is usable.
type TransportOptions struct {
	// Capacity is the size of the inbox. Defaults to DefaultCapacity.
	Capacity int

	// SocketDirectory is where the per-session socket directory is
	// created. Defaults to os.TempDir().
	SocketDirectory string

	// Linger is how long Close waits for connected producers to
	// finish. Defaults to DefaultLinger.
	Linger time.Duration

	// Level is advertised to producers in the handle.
	Level logging.Level

	// Clock times the linger. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives operational messages. Defaults to
	// logging.Fallback().
	Logger *slog.Logger
}

// Transport is a multi-producer, single-consumer FIFO of records.
//
// Producers in this process call Send. Producers in other processes
// connect to the transport's Unix socket using its Handle (see
// DialProducer). Exactly one consumer calls Receive.
//
// Records from one producer are received in the order they were sent.
// Records from different producers interleave arbitrarily.
type Transport struct {
	clock  clock.Clock
	logger *slog.Logger
	linger time.Duration

	handle    Handle
	directory string
	listener  net.Listener

	// mu orders Send against the close of inbox. Send holds it shared;
	// Close takes it exclusively to close the channel.
	mu     sync.RWMutex
	closed bool
	inbox  chan logging.Record

	// closing is closed when remote readers must stop waiting for
	// room in the inbox.
	closing    chan struct{}
	acceptDone chan struct{}
	readers    sync.WaitGroup

	connectionsMu sync.Mutex
	connections   map[net.Conn]struct{}

	dropped  atomic.Uint64
	rejected atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// NewTransport creates a transport and starts accepting producer
// connections.
func NewTransport(options *TransportOptions) (*Transport, error) {
	if options == nil {
		options = &TransportOptions{}
	}
	capacity := options.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	linger := options.Linger
	if linger <= 0 {
		linger = DefaultLinger
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Fallback()
	}
	parent := options.SocketDirectory
	if parent == "" {
		parent = os.TempDir()
	}

	session := uuid.NewString()
	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("generating transport token: %w", err)
	}

	directory := filepath.Join(parent, "logregator-"+session)
	if err := os.Mkdir(directory, 0o700); err != nil {
		return nil, fmt.Errorf("creating transport directory: %w", err)
	}
	socketPath := filepath.Join(directory, socketName)
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		os.RemoveAll(directory)
		return nil, fmt.Errorf("listening on %s: %w", socketPath, err)
	}

	t := &Transport{
		clock:  clk,
		logger: logger,
		linger: linger,
		handle: Handle{
			Network: "unix",
			Address: socketPath,
			Session: session,
			Token:   token,
			Level:   options.Level,
		},
		directory:   directory,
		listener:    listener,
		inbox:       make(chan logging.Record, capacity),
		closing:     make(chan struct{}),
		acceptDone:  make(chan struct{}),
		connections: make(map[net.Conn]struct{}),
	}
	go t.accept()
	return t, nil
}

// Handle returns the handle producers in other processes use to reach
// this transport.
func (t *Transport) Handle() Handle {
	return t.handle
}

// Session returns the session id of the transport.
func (t *Transport) Session() string {
	return t.handle.Session
}

// Send enqueues record without blocking. It returns false, and counts
// the record as dropped, if the inbox is full or the transport is
// closed.
func (t *Transport) Send(record logging.Record) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		t.dropped.Add(1)
		return false
	}
	select {
	case t.inbox <- record:
		return true
	default:
		t.dropped.Add(1)
		return false
	}
}

// deliver enqueues a record read from a remote producer. Unlike Send
// it waits for room: the wait stalls only the reader goroutine, and
// with it the producer's own socket, which is where a slow consumer's
// backpressure belongs.
func (t *Transport) deliver(record logging.Record) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		t.dropped.Add(1)
		return false
	}
	select {
	case t.inbox <- record:
		return true
	case <-t.closing:
		t.dropped.Add(1)
		return false
	}
}

// Receive returns the next record. It blocks until a record is
// available, the transport is closed and drained (ErrClosed), or ctx
// is done.
func (t *Transport) Receive(ctx context.Context) (logging.Record, error) {
	select {
	case record, ok := <-t.inbox:
		if !ok {
			return logging.Record{}, ErrClosed
		}
		return record, nil
	case <-ctx.Done():
		return logging.Record{}, ctx.Err()
	}
}

// Dropped returns the number of records discarded because the inbox
// was full or the transport was closed.
func (t *Transport) Dropped() uint64 {
	return t.dropped.Load()
}

// Rejected returns the number of producer connections refused for
// failing authentication.
func (t *Transport) Rejected() uint64 {
	return t.rejected.Load()
}

// Close stops the transport. It stops accepting connections, gives
// connected producers up to the linger period to finish, then closes
// the inbox. Records already in the inbox remain receivable. Close is
// idempotent and safe to call concurrently with Send.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		listenerErr := t.listener.Close()
		if errors.Is(listenerErr, net.ErrClosed) {
			listenerErr = nil
		}
		<-t.acceptDone

		readersDone := make(chan struct{})
		go func() {
			t.readers.Wait()
			close(readersDone)
		}()
		select {
		case <-readersDone:
		case <-t.clock.After(t.linger):
			count := t.closeConnections()
			t.logger.Debug("closing lingering producer connections",
				"session", t.handle.Session,
				"connections", count,
			)
		}
		close(t.closing)
		<-readersDone

		t.mu.Lock()
		t.closed = true
		close(t.inbox)
		t.mu.Unlock()

		t.closeErr = errors.Join(listenerErr, os.RemoveAll(t.directory))
	})
	return t.closeErr
}

func (t *Transport) accept() {
	defer close(t.acceptDone)
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			t.logger.Error("transport accept failed",
				"session", t.handle.Session,
				"error", err,
			)
			continue
		}
		t.connectionsMu.Lock()
		t.connections[conn] = struct{}{}
		t.connectionsMu.Unlock()

		t.readers.Add(1)
		go func() {
			defer t.readers.Done()
			defer t.forget(conn)
			t.read(conn)
		}()
	}
}

func (t *Transport) forget(conn net.Conn) {
	t.connectionsMu.Lock()
	delete(t.connections, conn)
	t.connectionsMu.Unlock()
	conn.Close()
}

func (t *Transport) closeConnections() int {
	t.connectionsMu.Lock()
	defer t.connectionsMu.Unlock()
	for conn := range t.connections {
		conn.Close()
	}
	return len(t.connections)
}

// read authenticates one producer connection and delivers its records
// until the producer disconnects.
func (t *Transport) read(conn net.Conn) {
	decoder := codec.NewDecoder(conn)

	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	var greeting hello
	if err := decoder.Decode(&greeting); err != nil {
		if !errors.Is(err, io.EOF) {
			t.reject(conn, "unreadable hello", err)
		}
		return
	}
	if greeting.Session != t.handle.Session || subtle.ConstantTimeCompare(greeting.Token, t.handle.Token) != 1 {
		t.reject(conn, "bad credentials", nil)
		return
	}
	if peer, ok := peerProcessID(conn); ok && peer != greeting.ProcessID {
		t.reject(conn, fmt.Sprintf("claimed pid %d but peer is %d", greeting.ProcessID, peer), nil)
		return
	}
	conn.SetReadDeadline(time.Time{})

	t.logger.Debug("producer connected",
		"session", t.handle.Session,
		"pid", greeting.ProcessID,
	)

	for {
		var record logging.Record
		if err := decoder.Decode(&record); err != nil {
			if !netutil.IsExpectedCloseError(err) {
				t.logger.Warn("producer stream ended abnormally",
					"session", t.handle.Session,
					"pid", greeting.ProcessID,
					"error", err,
				)
			}
			return
		}
		if record.ProcessID == 0 {
			record.ProcessID = greeting.ProcessID
		}
		if !t.deliver(record) {
			return
		}
	}
}

func (t *Transport) reject(conn net.Conn, reason string, err error) {
	t.rejected.Add(1)
	attrs := []any{"session", t.handle.Session, "reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	t.logger.Warn("rejected producer connection", attrs...)
}
