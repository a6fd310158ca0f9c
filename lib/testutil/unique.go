// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. Loggers live in a process-wide
// registry for the life of the test binary, so tests that configure
// levels or handlers name their loggers with UniqueID to stay
// independent of each other.
//
//	name := testutil.UniqueID("worker")    // "worker-1", "worker-2", ...
//	log := logging.Get(name + ".fetch")
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
