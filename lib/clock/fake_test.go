// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"testing"
	"time"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	c := Fake(start)
	if !c.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", c.Now(), start)
	}
	c.Advance(90 * time.Second)
	if want := start.Add(90 * time.Second); !c.Now().Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", c.Now(), want)
	}
}

func TestFakeClockAfterFiresOnAdvance(t *testing.T) {
	c := Fake(start)
	channel := c.After(5 * time.Second)

	c.Advance(4 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	c.Advance(time.Second)
	select {
	case fired := <-channel:
		if want := start.Add(5 * time.Second); !fired.Equal(want) {
			t.Errorf("fired at %v, want %v", fired, want)
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d after firing, want 0", c.PendingCount())
	}
}

func TestFakeClockAfterNonPositive(t *testing.T) {
	c := Fake(start)
	for _, d := range []time.Duration{0, -time.Second} {
		select {
		case <-c.After(d):
		default:
			t.Errorf("After(%v) was not immediately ready", d)
		}
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", c.PendingCount())
	}
}

func TestFakeClockFiresOnlyExpired(t *testing.T) {
	c := Fake(start)
	short := c.After(time.Second)
	long := c.After(time.Minute)

	c.Advance(2 * time.Second)
	select {
	case <-short:
	default:
		t.Error("short waiter did not fire")
	}
	select {
	case <-long:
		t.Error("long waiter fired early")
	default:
	}
	if c.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want 1", c.PendingCount())
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	c := Fake(start)
	done := make(chan struct{})
	go func() {
		<-c.After(time.Second)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("waiter goroutine did not wake")
	}
}

func TestFakeClockConcurrentAccess(t *testing.T) {
	c := Fake(start)
	var waitGroup sync.WaitGroup
	for range 10 {
		waitGroup.Add(2)
		go func() {
			defer waitGroup.Done()
			c.After(time.Millisecond)
		}()
		go func() {
			defer waitGroup.Done()
			_ = c.Now()
		}()
	}
	waitGroup.Wait()
	c.Advance(time.Second)
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", c.PendingCount())
	}
}

func TestClocksImplementClock(t *testing.T) {
	var _ Clock = Fake(start)
	var _ Clock = Real()
}
