// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import "sync/atomic"

// Interceptor diverts records away from the local handler chain.
// Intercept is called synchronously on the emitting goroutine for
// every enabled record, so it must be safe for concurrent use, must
// not block, and must not log through this package. Returning true
// means the record was consumed and local handlers are skipped.
type Interceptor interface {
	Intercept(record Record) bool
}

// interceptionSlot boxes an Interceptor so that the interception
// point can be compared-and-swapped by identity.
type interceptionSlot struct {
	interceptor Interceptor
}

// emptySlot is the identity of "nothing installed".
var emptySlot = &interceptionSlot{}

// interception is the single process-wide indirection every emission
// consults. Individual loggers are never rewired.
var interception atomic.Pointer[interceptionSlot]

func init() {
	interception.Store(emptySlot)
}

// InterceptionState is an opaque snapshot of the interception point.
// The zero value is not a valid state; obtain one from Interception
// or Intercept.
type InterceptionState struct {
	slot *interceptionSlot
}

// Interceptor returns the interceptor of the snapshot, or nil.
func (s InterceptionState) Interceptor() Interceptor {
	if s.slot == nil {
		return nil
	}
	return s.slot.interceptor
}

// Interception returns the current state of the interception point.
func Interception() InterceptionState {
	return InterceptionState{slot: interception.Load()}
}

// Intercept installs interceptor if the interception point is still
// in state previous. It returns the newly installed state, or false
// if another installation happened since previous was taken.
func Intercept(previous InterceptionState, interceptor Interceptor) (InterceptionState, bool) {
	if previous.slot == nil || interceptor == nil {
		return InterceptionState{}, false
	}
	installed := &interceptionSlot{interceptor: interceptor}
	if !interception.CompareAndSwap(previous.slot, installed) {
		return InterceptionState{}, false
	}
	return InterceptionState{slot: installed}, true
}

// RestoreInterception puts previous back, provided the point is still
// in state installed. A false return means something replaced the
// installation in the meantime and the pipeline was left untouched.
func RestoreInterception(installed, previous InterceptionState) bool {
	if installed.slot == nil || previous.slot == nil {
		return false
	}
	return interception.CompareAndSwap(installed.slot, previous.slot)
}

func currentInterceptor() Interceptor {
	return interception.Load().interceptor
}
