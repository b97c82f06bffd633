// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package seqexec

import "github.com/alitto/pond/v2"

// Dispatcher submits a runnable for eventual execution on some thread.
//
// seqexec makes no assumption about ordering across separate Submit calls,
// and activates the work loop at most once per transition out of idleness
// (see queue.append and the work loop's batch-exhaustion resubmission): a
// Dispatcher implementation never needs to reject a submission to protect
// against double-activation, because seqexec guarantees it never issues
// overlapping ones for the same executor.
//
// A Dispatcher that fails to ever run a submitted fn stalls that
// executor's queue permanently; seqexec does not retry or fail over.
type Dispatcher interface {
	Submit(fn func())
}

// PondDispatcher adapts a [pond.Pool] to the Dispatcher contract.
type PondDispatcher struct {
	pool pond.Pool
}

// NewPondDispatcher wraps pool as a Dispatcher.
func NewPondDispatcher(pool pond.Pool) *PondDispatcher {
	return &PondDispatcher{pool: pool}
}

// Submit enqueues fn on the wrapped pool.
func (d *PondDispatcher) Submit(fn func()) {
	d.pool.Submit(fn)
}

// DispatcherFunc adapts a plain func(func()) to the Dispatcher interface,
// the same way http.HandlerFunc adapts a function to http.Handler.
type DispatcherFunc func(fn func())

// Submit calls f(fn).
func (f DispatcherFunc) Submit(fn func()) {
	f(fn)
}
