// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logregator

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/logregator/lib/clock"
	"github.com/bureau-foundation/logregator/lib/codec"
	"github.com/bureau-foundation/logregator/lib/logging"
	"github.com/bureau-foundation/logregator/lib/netutil"
)

const (
	// DefaultFlushTimeout bounds how long RemoteProducer.Close waits
	// for queued records to be written.
	DefaultFlushTimeout = 2 * time.Second

	// DefaultDialTimeout bounds the connection to the parent's
	// transport.
	DefaultDialTimeout = 5 * time.Second
)

// ProducerOptions configures a RemoteProducer. The zero value is
// usable.
type ProducerOptions struct {
	// Capacity is the size of the send queue. Defaults to
	// DefaultCapacity.
	Capacity int

	// FlushTimeout bounds Close. Defaults to DefaultFlushTimeout.
	FlushTimeout time.Duration

	// DialTimeout bounds the connection attempt. Defaults to
	// DefaultDialTimeout.
	DialTimeout time.Duration

	// Clock times the flush. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives operational messages. Defaults to
	// logging.Fallback().
	Logger *slog.Logger
}

// RemoteProducer sends records to a transport in another process. Send
// never blocks: records are queued and written by a single goroutine,
// which preserves their order. When the queue is full, or the
// connection is gone, records are dropped.
//
// A producer whose transport cannot be reached is still usable; it
// drops everything. This is the expected state of a child that starts
// after its parent's aggregation scope has ended.
type RemoteProducer struct {
	clock        clock.Clock
	logger       *slog.Logger
	flushTimeout time.Duration
	session      string

	conn   net.Conn
	writer *bufio.Writer

	mu     sync.RWMutex
	closed bool
	queue  chan logging.Record

	done chan struct{}

	sent    atomic.Uint64
	dropped atomic.Uint64

	closeOnce sync.Once
}

// DialProducer connects to the transport described by handle and
// authenticates. A connection failure is logged and yields a producer
// that drops everything.
func DialProducer(handle Handle, options *ProducerOptions) *RemoteProducer {
	if options == nil {
		options = &ProducerOptions{}
	}
	capacity := options.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	flushTimeout := options.FlushTimeout
	if flushTimeout <= 0 {
		flushTimeout = DefaultFlushTimeout
	}
	dialTimeout := options.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Fallback()
	}

	p := &RemoteProducer{
		clock:        clk,
		logger:       logger,
		flushTimeout: flushTimeout,
		session:      handle.Session,
		queue:        make(chan logging.Record, capacity),
		done:         make(chan struct{}),
	}

	conn, err := p.connect(handle, dialTimeout)
	if err != nil {
		logger.Debug("transport unreachable, dropping records",
			"session", handle.Session,
			"error", err,
		)
		p.closed = true
		close(p.done)
		return p
	}
	p.conn = conn
	p.writer = bufio.NewWriter(conn)
	go p.write()
	return p
}

func (p *RemoteProducer) connect(handle Handle, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout(handle.Network, handle.Address, timeout)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", handle.Address, err)
	}
	greeting := hello{
		Session:   handle.Session,
		Token:     handle.Token,
		ProcessID: os.Getpid(),
	}
	conn.SetWriteDeadline(time.Now().Add(timeout))
	if err := codec.NewEncoder(conn).Encode(greeting); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending hello: %w", err)
	}
	conn.SetWriteDeadline(time.Time{})
	return conn, nil
}

// Connected reports whether the producer reached its transport.
func (p *RemoteProducer) Connected() bool {
	return p.conn != nil
}

// Send queues record without blocking and reports whether it was
// accepted.
func (p *RemoteProducer) Send(record logging.Record) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return false
	}
	select {
	case p.queue <- record:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Sent returns the number of records written to the transport.
func (p *RemoteProducer) Sent() uint64 {
	return p.sent.Load()
}

// Dropped returns the number of records discarded.
func (p *RemoteProducer) Dropped() uint64 {
	return p.dropped.Load()
}

// write drains the queue onto the connection. After the first write
// error the rest of the queue is counted as dropped.
func (p *RemoteProducer) write() {
	defer close(p.done)
	encoder := codec.NewEncoder(p.writer)
	broken := false
	for record := range p.queue {
		if broken {
			p.dropped.Add(1)
			continue
		}
		err := encoder.Encode(record)
		// Flush when the queue is momentarily empty so records reach
		// the parent promptly without a syscall per record under load.
		if err == nil && len(p.queue) == 0 {
			err = p.writer.Flush()
		}
		if err != nil {
			broken = true
			p.dropped.Add(1)
			level := slog.LevelWarn
			if netutil.IsExpectedCloseError(err) {
				level = slog.LevelDebug
			}
			p.logger.Log(context.Background(), level, "transport connection lost, dropping records",
				"session", p.session,
				"error", err,
			)
			continue
		}
		p.sent.Add(1)
	}
	if !broken {
		p.writer.Flush()
	}
}

// Close stops accepting records, waits up to the flush timeout for the
// queue to be written, and disconnects. Records still queued when the
// timeout expires are lost. Close is idempotent.
func (p *RemoteProducer) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		wasClosed := p.closed
		p.closed = true
		if !wasClosed {
			close(p.queue)
		}
		p.mu.Unlock()

		if p.conn == nil {
			return
		}
		select {
		case <-p.done:
		case <-p.clock.After(p.flushTimeout):
			p.logger.Warn("flush timed out, abandoning queued records",
				"session", p.session,
				"queued", len(p.queue),
			)
			// Closing the connection unblocks a stalled write.
			p.conn.Close()
			<-p.done
		}
		p.conn.Close()
	})
	return nil
}
