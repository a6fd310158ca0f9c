// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction.
//
// Code that stamps records or waits on a deadline takes a Clock
// instead of calling time.Now or time.After directly. Production code
// uses Real(). Tests use Fake(), whose time stands still until
// Advance is called, so timeouts fire exactly when the test says so
// and rendered timestamps are reproducible:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	scope := logregator.New(sink, &logregator.Options{Clock: c})
//	// ... start something that waits ...
//	c.WaitForTimers(1)          // it is now waiting
//	c.Advance(5 * time.Second)  // its deadline passes
package clock
