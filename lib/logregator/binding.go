// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logregator

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
)

// currentBinding is the binding of this process, if any.
var currentBinding atomic.Pointer[Binding]

// Binding connects a child process's logging to its parent's
// aggregation session.
type Binding struct {
	handle    Handle
	token     string
	producer  *RemoteProducer
	installer *installer

	closeOnce sync.Once
	closeErr  error
}

// Bind diverts every record this process emits to the aggregation
// session named by HandleEnv. It returns a nil *Binding and no error
// when the variable is unset; every Binding method accepts a nil
// receiver. Call it first thing in main and close it on the way out:
//
//	binding, err := logregator.Bind(nil)
//	if err != nil {
//	    process.Fatal(err)
//	}
//	defer binding.Close()
//
// A transport that cannot be reached, because the parent's scope has
// already ended, is not an error: the binding drops every record.
func Bind(options *ProducerOptions) (*Binding, error) {
	token := os.Getenv(HandleEnv)
	if token == "" {
		return nil, nil
	}
	handle, err := DecodeHandle(token)
	if err != nil {
		return nil, err
	}

	binding := &Binding{handle: handle, token: token}
	if !currentBinding.CompareAndSwap(nil, binding) {
		return nil, ErrAlreadyBound
	}

	binding.producer = DialProducer(handle, options)
	binding.installer, err = install(binding.producer, handle.Level, "")
	if err != nil {
		binding.producer.Close()
		currentBinding.CompareAndSwap(binding, nil)
		return nil, err
	}
	return binding, nil
}

// Handle returns the parent's transport handle.
func (b *Binding) Handle() Handle {
	if b == nil {
		return Handle{}
	}
	return b.handle
}

// Connected reports whether the parent's transport was reached.
func (b *Binding) Connected() bool {
	if b == nil {
		return false
	}
	return b.producer.Connected()
}

// Dropped returns the number of records that could not be sent.
func (b *Binding) Dropped() uint64 {
	if b == nil {
		return 0
	}
	return b.producer.Dropped()
}

// Close restores the logging configuration and flushes queued records
// to the parent. It is idempotent.
func (b *Binding) Close() error {
	if b == nil {
		return nil
	}
	b.closeOnce.Do(func() {
		restoreErr := b.installer.uninstall()
		b.closeErr = errors.Join(restoreErr, b.producer.Close())
		currentBinding.CompareAndSwap(b, nil)
	})
	return b.closeErr
}
