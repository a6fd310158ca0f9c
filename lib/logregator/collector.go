// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/bureau-foundation/logregator/lib/logging"
)

// Sink is the logger aggregated records are delivered to.
// *logging.Logger implements it.
type Sink interface {
	// Name identifies the sink. Records this process emits through a
	// logger of the same name are not aggregated; they reach the sink
	// directly.
	Name() string

	// EffectiveLevel is the sink's minimum level. Records below it are
	// not delivered.
	EffectiveLevel() logging.Level

	// Handle accepts a record as if the sink had emitted it.
	Handle(record logging.Record) error
}

// Source is the consuming side of a transport.
type Source interface {
	Receive(ctx context.Context) (logging.Record, error)
}

// CollectorOptions configures a Collector. The zero value is usable.
type CollectorOptions struct {
	// Annotate prefixes each delivered message with the sink's name,
	// and the originating pid for records from other processes:
	// "[sink PID 4242] - message". Without it the pid is carried only
	// as a record attribute.
	Annotate bool

	// Logger receives delivery failures. Defaults to
	// logging.Fallback().
	Logger *slog.Logger
}

// CollectorStats counts what a collector did with the records it
// received.
type CollectorStats struct {
	Delivered uint64
	Filtered  uint64
	Failed    uint64
}

// Collector drains a Source into a Sink.
type Collector struct {
	source   Source
	sink     Sink
	annotate bool
	logger   *slog.Logger
	done     chan struct{}

	delivered atomic.Uint64
	filtered  atomic.Uint64
	failed    atomic.Uint64
}

// NewCollector returns a collector that is not yet running.
func NewCollector(source Source, sink Sink, options *CollectorOptions) *Collector {
	if options == nil {
		options = &CollectorOptions{}
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Fallback()
	}
	return &Collector{
		source:   source,
		sink:     sink,
		annotate: options.Annotate,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Run delivers records until the source is closed and drained, which
// returns nil, or ctx is done, which returns ctx.Err(). A failure to
// deliver one record is reported and does not stop the collector. Run
// must be called at most once.
func (c *Collector) Run(ctx context.Context) error {
	defer close(c.done)
	for {
		record, err := c.source.Receive(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
		c.deliver(record)
	}
}

// Done is closed when Run returns.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

// Stats returns the collector's counters.
func (c *Collector) Stats() CollectorStats {
	return CollectorStats{
		Delivered: c.delivered.Load(),
		Filtered:  c.filtered.Load(),
		Failed:    c.failed.Load(),
	}
}

func (c *Collector) deliver(record logging.Record) {
	local := record.IsLocal()
	if record.Level < c.sink.EffectiveLevel() || (local && record.LoggerName == c.sink.Name()) {
		c.filtered.Add(1)
		return
	}
	if c.annotate {
		record.Message = c.annotation(record, local) + record.Message
	}
	if err := c.handle(record); err != nil {
		c.failed.Add(1)
		c.logger.Error("delivering aggregated record failed",
			"sink", c.sink.Name(),
			"logger", record.LoggerName,
			"pid", record.ProcessID,
			"error", err,
		)
		return
	}
	c.delivered.Add(1)
}

func (c *Collector) annotation(record logging.Record, local bool) string {
	if local {
		return "[" + c.sink.Name() + "] - "
	}
	return "[" + c.sink.Name() + " PID " + strconv.Itoa(record.ProcessID) + "] - "
}

// handle calls the sink, converting a panic into an error.
func (c *Collector) handle(record logging.Record) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("sink panicked: %v", recovered)
		}
	}()
	return c.sink.Handle(record)
}
