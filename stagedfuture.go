// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package seqexec

import (
	"context"
	"sync"
)

// future is a single-value async result, resolved at most once. It is the
// building block StagedFuture composes twice: once for acceptance, once for
// the task's result.
type future[T any] struct {
	mu        sync.Mutex
	done      bool
	value     T
	err       error
	waiters   []chan struct{}
	callbacks []func(T, error)
}

func newFuture[T any]() *future[T] {
	return &future[T]{}
}

// resolve settles f exactly once. Subsequent calls panic: a double-resolve
// is a programming error, not a runtime condition callers should recover
// from.
func (f *future[T]) resolve(value T, err error) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		panic("seqexec: signal resolved more than once")
	}
	f.done = true
	f.value = value
	f.err = err
	waiters := f.waiters
	f.waiters = nil
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
	for _, cb := range callbacks {
		cb(value, err)
	}
}

func (f *future[T]) isDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// onComplete registers cb to run once f resolves. If f is already resolved,
// cb runs inline on the calling goroutine.
func (f *future[T]) onComplete(cb func(T, error)) {
	f.mu.Lock()
	if f.done {
		value, err := f.value, f.err
		f.mu.Unlock()
		cb(value, err)
		return
	}
	f.callbacks = append(f.callbacks, cb)
	f.mu.Unlock()
}

// await blocks until f resolves or ctx is done, whichever comes first.
func (f *future[T]) await(ctx context.Context) (T, error) {
	f.mu.Lock()
	if f.done {
		value, err := f.value, f.err
		f.mu.Unlock()
		return value, err
	}
	ch := make(chan struct{})
	f.waiters = append(f.waiters, ch)
	f.mu.Unlock()

	select {
	case <-ch:
		f.mu.Lock()
		value, err := f.value, f.err
		f.mu.Unlock()
		return value, err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// StagedFuture is the two-stage asynchronous value a caller receives from a
// result-bearing submission: acceptance resolves first, when the task
// crosses into the executor's admitted window (or is rejected outright),
// and result resolves second, when the task's body finishes running.
//
// Acceptance failure always causes result to fail with the same cause —
// a task that is never admitted never runs, so there is nothing else result
// could report.
type StagedFuture[T any] struct {
	acceptance *future[*future[T]]
	result     *future[T]

	// owner is the executor this future was produced by, when it was
	// produced by an executor at all (constructor-built futures used in
	// tests leave it nil). AwaitResult uses it to detect a task body
	// re-entrantly blocking on its own executor's output.
	owner *Executor
}

// newPendingStagedFuture builds a StagedFuture with both stages unresolved,
// for work the caller is about to submit to an executor.
func newPendingStagedFuture[T any]() *StagedFuture[T] {
	return &StagedFuture[T]{
		acceptance: newFuture[*future[T]](),
		result:     newFuture[T](),
	}
}

// newAlreadyAcceptedStagedFuture builds a StagedFuture whose acceptance is
// already resolved, useful for synthetic staged values in tests and for
// chaining a downstream executor's StagedFuture into an outer task's.
func newAlreadyAcceptedStagedFuture[T any](result *future[T]) *StagedFuture[T] {
	sf := &StagedFuture[T]{
		acceptance: newFuture[*future[T]](),
		result:     result,
	}
	sf.acceptance.resolve(result, nil)
	return sf
}

// newRejectedStagedFuture builds a StagedFuture whose acceptance has already
// failed with cause; result fails with the same cause immediately.
func newRejectedStagedFuture[T any](cause error) *StagedFuture[T] {
	sf := newPendingStagedFuture[T]()
	sf.rejectAcceptance(cause)
	return sf
}

// acceptAdmission resolves acceptance successfully, exposing result for
// waiters. Called by the work loop when a node crosses into the admitted
// window.
func (sf *StagedFuture[T]) acceptAdmission() {
	sf.acceptance.resolve(sf.result, nil)
}

// rejectAcceptance resolves acceptance with a failure and immediately fails
// result with the same cause: a task that is never admitted never runs, so
// there is nothing else result could report.
func (sf *StagedFuture[T]) rejectAcceptance(cause error) {
	sf.acceptance.resolve(nil, cause)
	sf.result.resolve(*new(T), cause)
}

// IsAccepted reports whether this task's acceptance signal has resolved
// (successfully or not).
func (sf *StagedFuture[T]) IsAccepted() bool {
	return sf.acceptance.isDone()
}

// OnAccept registers cb to run when acceptance resolves. cb receives the
// acceptance error, nil on success.
func (sf *StagedFuture[T]) OnAccept(cb func(err error)) {
	sf.acceptance.onComplete(func(_ *future[T], err error) {
		cb(err)
	})
}

// OnComplete registers cb to run when result resolves.
func (sf *StagedFuture[T]) OnComplete(cb func(T, error)) {
	sf.result.onComplete(cb)
}

// AwaitAccept blocks until acceptance resolves or ctx is done.
func (sf *StagedFuture[T]) AwaitAccept(ctx context.Context) error {
	_, err := sf.acceptance.await(ctx)
	return err
}

// AwaitResult blocks until result resolves or ctx is done.
//
// Unlike a fixed "ready at most this long" duration, ctx carries its own
// deadline, so there is no internally tracked remaining-time value that
// needs to be decremented across retries.
func (sf *StagedFuture[T]) AwaitResult(ctx context.Context) (T, error) {
	if sf.owner != nil && sf.owner.loop.running.Load() {
		panic(ErrReentrantWait)
	}
	return sf.result.await(ctx)
}

// AsyncResult is the single value a shapeFuture task's channel delivers.
type AsyncResult[T any] struct {
	Value T
	Err   error
}

// adaptStagedFuture narrows a *StagedFuture[any] produced by the internal,
// non-generic Task machinery back into a typed *StagedFuture[T] at the
// public API boundary, the same way pond's TypedSubmit narrows a boxed
// Future[any] at its call site.
func adaptStagedFuture[T any](sf *StagedFuture[any]) *StagedFuture[T] {
	out := newPendingStagedFuture[T]()
	sf.acceptance.onComplete(func(_ *future[any], err error) {
		if err != nil {
			out.rejectAcceptance(err)
			return
		}
		out.acceptAdmission()
	})
	sf.result.onComplete(func(v any, err error) {
		if out.result.isDone() {
			// rejectAcceptance above already resolved this via the
			// acceptance callback; sf's own result resolves with the same
			// cause right behind it and must not resolve out a second time.
			return
		}
		if err != nil {
			out.result.resolve(*new(T), err)
			return
		}
		tv, _ := v.(T)
		out.result.resolve(tv, nil)
	})
	return out
}

// adaptStagedFutureToAny is adaptStagedFuture's mirror image, boxing a
// typed StagedFuture into the internal any-typed representation so a
// downstream executor's output can be chained through Task.thunkStaged.
func adaptStagedFutureToAny[T any](sf *StagedFuture[T]) *StagedFuture[any] {
	out := newPendingStagedFuture[any]()
	sf.acceptance.onComplete(func(_ *future[T], err error) {
		if err != nil {
			out.rejectAcceptance(err)
			return
		}
		out.acceptAdmission()
	})
	sf.result.onComplete(func(v T, err error) {
		if out.result.isDone() {
			return
		}
		out.result.resolve(v, err)
	})
	return out
}

// Map returns a StagedFuture whose acceptance mirrors sf's and whose result
// is f applied to sf's result, once sf's result resolves successfully.
func Map[T, U any](sf *StagedFuture[T], f func(T) U) *StagedFuture[U] {
	mapped := newPendingStagedFuture[U]()
	sf.acceptance.onComplete(func(_ *future[T], err error) {
		if err != nil {
			mapped.rejectAcceptance(err)
			return
		}
		mapped.acceptAdmission()
	})
	sf.result.onComplete(func(v T, err error) {
		if mapped.result.isDone() {
			return
		}
		if err != nil {
			mapped.result.resolve(*new(U), err)
			return
		}
		mapped.result.resolve(f(v), nil)
	})
	return mapped
}
