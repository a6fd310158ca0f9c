// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logregator

import (
	"fmt"
	"sync/atomic"

	"github.com/bureau-foundation/logregator/lib/logging"
)

// Sender accepts records without blocking. Transport and
// RemoteProducer are Senders.
type Sender interface {
	Send(record logging.Record) bool
}

// installer is the interceptor that diverts a process's records into a
// Sender. It is installed on the process-wide interception point, so
// no individual logger is touched.
type installer struct {
	sender Sender

	// level is the sink's level when aggregation started. Records
	// below it would be filtered by the sink anyway and are discarded
	// here without being shipped.
	level logging.Level

	// bypass names a logger whose records stay local: the sink itself,
	// whose records need no aggregation.
	bypass string

	previous  logging.InterceptionState
	installed logging.InterceptionState
	rootLevel logging.Level

	// retired is set when uninstall found the interception point
	// replaced.
	retired atomic.Bool
}

// install snapshots the logging configuration and diverts every
// emission into sender. The root logger's level is lowered to Trace
// while installed so that records reach the interceptor regardless of
// the root's own threshold; loggers with explicit levels still filter
// as usual.
func install(sender Sender, level logging.Level, bypass string) (*installer, error) {
	in := &installer{
		sender:    sender,
		level:     level,
		bypass:    bypass,
		previous:  logging.Interception(),
		rootLevel: logging.Root().Level(),
	}
	installed, ok := logging.Intercept(in.previous, in)
	if !ok {
		return nil, ErrInterceptionChanged
	}
	in.installed = installed
	if in.rootLevel > logging.Trace {
		logging.Root().SetLevel(logging.Trace)
	}
	return in, nil
}

// Intercept implements logging.Interceptor.
func (in *installer) Intercept(record logging.Record) bool {
	if in.bypass != "" && record.LoggerName == in.bypass {
		return false
	}
	if record.Level >= in.level {
		in.sender.Send(record)
	}
	return true
}

// uninstall puts back the snapshot taken by install. When the
// interception point has been replaced, ErrRestore is returned and
// the interception point is left alone. If the replacement is another
// installer, such as a scope entered inside a bound child, the root
// level is left alone too: this installer is marked retired and the
// one above unwinds through it when it is uninstalled.
func (in *installer) uninstall() error {
	if !logging.RestoreInterception(in.installed, in.previous) {
		if _, stacked := logging.Interception().Interceptor().(*installer); stacked {
			in.retired.Store(true)
		} else {
			logging.Root().SetLevel(in.rootLevel)
		}
		return fmt.Errorf("%w: the interception point was replaced while records were being aggregated", ErrRestore)
	}
	rootLevel := in.rootLevel
	for below := in.previous; ; {
		retired, ok := below.Interceptor().(*installer)
		if !ok || !retired.retired.Load() || !logging.RestoreInterception(retired.installed, retired.previous) {
			break
		}
		rootLevel = retired.rootLevel
		below = retired.previous
	}
	logging.Root().SetLevel(rootLevel)
	return nil
}
