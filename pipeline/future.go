// Copyright (c) 2025, Atomvis. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"errors"
	"sync"
)

// Future is the shared result of an asynchronous pipeline evaluation.
// Multiple callers requesting overlapping time windows receive the same
// Future, so a computation happens at most once. A Future resolves
// exactly once, either with a [FlowState] or with an error;
// cancellation is reported as [context.Canceled] on the error channel,
// never as a panic.
type Future struct {
	done      chan struct{}
	mu        sync.Mutex
	finished  bool
	state     FlowState
	err       error
	callbacks []func(FlowState, error)
}

// Promise is the producing side of a [Future].
type Promise struct {
	fut *Future
}

// NewPromise returns a new unresolved promise/future pair.
func NewPromise() *Promise {
	return &Promise{fut: &Future{done: make(chan struct{})}}
}

// Future returns the consuming side of the promise.
func (p *Promise) Future() *Future { return p.fut }

// Fulfill resolves the future with the given state. It panics if the
// promise has already been resolved.
func (p *Promise) Fulfill(state FlowState) { p.fut.resolve(state, nil) }

// Fail resolves the future with the given error. It panics if the
// promise has already been resolved.
func (p *Promise) Fail(err error) { p.fut.resolve(FlowState{}, err) }

// StateFuture returns an already-resolved future holding the given
// state.
func StateFuture(state FlowState) *Future {
	f := &Future{done: make(chan struct{}), finished: true, state: state}
	close(f.done)
	return f
}

// FailedFuture returns an already-resolved future holding the given
// error.
func FailedFuture(err error) *Future {
	f := &Future{done: make(chan struct{}), finished: true, err: err}
	close(f.done)
	return f
}

func (f *Future) resolve(state FlowState, err error) {
	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		panic("pipeline: future resolved twice")
	}
	f.finished = true
	f.state = state
	f.err = err
	cbs := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()
	close(f.done)
	for _, cb := range cbs {
		cb(state, err)
	}
}

// Done returns a channel that is closed when the future resolves.
func (f *Future) Done() <-chan struct{} { return f.done }

// Finished reports whether the future has resolved.
func (f *Future) Finished() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished
}

// Canceled reports whether the future resolved with a cancellation.
func (f *Future) Canceled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished && errors.Is(f.err, context.Canceled)
}

// Result blocks until the future resolves and returns its state or
// error.
func (f *Future) Result() (FlowState, error) {
	<-f.done
	return f.state, f.err
}

// OnDone registers a continuation invoked once the future resolves.
// If the future has already resolved, the continuation runs
// immediately on the calling goroutine; otherwise it runs on the
// goroutine that resolves the future.
func (f *Future) OnDone(cb func(state FlowState, err error)) {
	f.mu.Lock()
	if !f.finished {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	state, err := f.state, f.err
	f.mu.Unlock()
	cb(state, err)
}

// Then returns a future resolving with fn applied to this future's
// state. Errors bypass fn and propagate to the returned future.
func Then(f *Future, fn func(state FlowState) (FlowState, error)) *Future {
	p := NewPromise()
	f.OnDone(func(state FlowState, err error) {
		if err != nil {
			p.Fail(err)
			return
		}
		out, err := fn(state)
		if err != nil {
			p.Fail(err)
		} else {
			p.Fulfill(out)
		}
	})
	return p.Future()
}

// ThenFuture returns a future chained through fn, which is invoked with
// this future's outcome (state or error) and returns the next future in
// the chain. fn is always invoked, including on error, so it can
// implement error post-processing.
func ThenFuture(f *Future, fn func(state FlowState, err error) *Future) *Future {
	p := NewPromise()
	f.OnDone(func(state FlowState, err error) {
		next := fn(state, err)
		next.OnDone(func(state FlowState, err error) {
			if err != nil {
				p.Fail(err)
			} else {
				p.Fulfill(state)
			}
		})
	})
	return p.Future()
}
