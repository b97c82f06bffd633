// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package seqexec

import "context"

// Executor is a sequential executor with bounded backpressure: many
// goroutines may submit work concurrently, but the work itself runs one
// item at a time, in FIFO order, on whatever thread the configured
// Dispatcher provides.
//
// Submission never blocks. A caller instead gets back a signal for
// acceptance (did this item make it into the bounded admitted window) and,
// separately, a signal for the eventual result.
type Executor struct {
	q    *queue
	loop *workLoop
}

// New creates an Executor with the given admitted-window capacity and
// Dispatcher. bufLen must be >= 1; New panics with ErrBufLenInvalid
// otherwise, since an executor that can never admit anything is a
// programming error, not a runtime condition.
func New(bufLen int, dispatcher Dispatcher, opts ...Option) *Executor {
	if bufLen < 1 {
		panic(ErrBufLenInvalid)
	}
	var cfg execConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	q := newQueue(bufLen)
	loop := newWorkLoop(q, dispatcher, cfg.batchBudget, cfg.panicHandler)
	return &Executor{q: q, loop: loop}
}

// enqueue is the shared internal entry point every public submission
// variant routes through: link task's node onto the queue and activate
// the work loop if this submission is the one that wakes it from idle.
func (e *Executor) enqueue(task *Task) *StagedFuture[any] {
	task.sf.owner = e
	n := &node{task: task}
	if e.q.append(n) {
		e.loop.activate()
	}
	return task.sf
}

// EnqueueFireAndForget submits fn for eventual execution. The caller does
// not observe acceptance or result; fn still runs at most once and still
// occupies a window slot until it completes.
func EnqueueFireAndForget(e *Executor, fn func()) {
	t := newTask(shapeSync, modeFireAndForget)
	t.thunkSync = func() (any, error) {
		fn()
		return nil, nil
	}
	e.enqueue(t)
}

// EnqueueStaged submits fn and returns its StagedFuture immediately,
// without blocking the caller. The caller may inspect acceptance and
// result independently, at its own pace.
func EnqueueStaged[T any](e *Executor, fn func() (T, error)) *StagedFuture[T] {
	t := newTask(shapeSync, modeResultBearing)
	t.thunkSync = func() (any, error) {
		return fn()
	}
	return adaptStagedFuture[T](e.enqueue(t))
}

// EnqueueAwaitResult submits fn and blocks the calling goroutine until its
// result resolves (or ctx is done). It is equivalent to calling
// EnqueueStaged followed by AwaitResult, offered as a convenience for the
// common case where a caller wants both in one call.
func EnqueueAwaitResult[T any](ctx context.Context, e *Executor, fn func() (T, error)) (T, error) {
	return EnqueueStaged(e, fn).AwaitResult(ctx)
}

// EnqueueFuture submits a task whose body kicks off asynchronous work and
// hands back a channel delivering exactly one AsyncResult, without
// blocking the work loop while that work is outstanding. The returned
// StagedFuture's result resolves once start's channel delivers.
func EnqueueFuture[T any](e *Executor, start func() <-chan AsyncResult[T]) *StagedFuture[T] {
	t := newTask(shapeFuture, modeResultBearing)
	t.thunkFuture = boxAsyncStart(start)
	return adaptStagedFuture[T](e.enqueue(t))
}

// EnqueueFutureFireAndForget is EnqueueFuture without a retained result
// handle: the async work still runs and still occupies a slot until its
// channel delivers, but nothing observes acceptance or result.
func EnqueueFutureFireAndForget[T any](e *Executor, start func() <-chan AsyncResult[T]) {
	t := newTask(shapeFuture, modeFireAndForget)
	t.thunkFuture = boxAsyncStart(start)
	e.enqueue(t)
}

// EnqueueStagedChain submits a task whose body itself submits to a
// downstream executor (or any other StagedFuture-returning operation),
// wiring this task's result to the downstream one's. The task keeps its
// slot in e until the downstream result resolves, so a slow downstream
// executor holds back admission into e. This task's acceptance resolves
// when it is admitted into e; it is not tied to the downstream acceptance.
func EnqueueStagedChain[T any](e *Executor, start func() *StagedFuture[T]) *StagedFuture[T] {
	t := newTask(shapeStaged, modeResultBearing)
	t.thunkStaged = func() *StagedFuture[any] {
		return adaptStagedFutureToAny(start())
	}
	return adaptStagedFuture[T](e.enqueue(t))
}

// EnqueueStagedChainFireAndForget is EnqueueStagedChain without a retained
// result handle.
func EnqueueStagedChainFireAndForget[T any](e *Executor, start func() *StagedFuture[T]) {
	t := newTask(shapeStaged, modeFireAndForget)
	t.thunkStaged = func() *StagedFuture[any] {
		return adaptStagedFutureToAny(start())
	}
	e.enqueue(t)
}

func boxAsyncStart[T any](start func() <-chan AsyncResult[T]) func() <-chan asyncResult {
	return func() <-chan asyncResult {
		userCh := start()
		boxed := make(chan asyncResult, 1)
		go func() {
			r := <-userCh
			boxed <- asyncResult{value: r.Value, err: r.Err}
		}()
		return boxed
	}
}
