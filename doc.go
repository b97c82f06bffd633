// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package seqexec provides a sequential executor with bounded backpressure.
//
// An Executor serializes a stream of work onto a single logical worker
// while accepting submissions from any number of concurrent producers.
// Submission never blocks: a producer instead learns, via two independent
// signals, whether its work was admitted into a bounded window and,
// separately, when it completed.
//
// # Quick Start
//
//	pool := pond.NewPool(8)
//	exec := seqexec.New(64, seqexec.NewPondDispatcher(pool))
//
//	seqexec.EnqueueFireAndForget(exec, func() {
//	    log.Println("ran")
//	})
//
//	result, err := seqexec.EnqueueAwaitResult(ctx, exec, func() (int, error) {
//	    return computeSomething()
//	})
//
// # Backpressure
//
// bufLen bounds how many tasks may be admitted (queued-but-not-yet-
// finished, or in flight asynchronously) at once. A submission beyond that
// bound is not an error: it is accepted onto the intake list immediately
// (submission never blocks), but its acceptance signal stays pending until
// an earlier task frees a slot.
//
//	sf := seqexec.EnqueueStaged(exec, func() (int, error) { return 1, nil })
//	if !sf.IsAccepted() {
//	    // still queued behind a full window — not a failure, just pending
//	}
//	sf.OnAccept(func(err error) {
//	    // fires once this task crosses into the admitted window
//	})
//
// # Completion Shapes
//
// Three ways a task's body can produce its value, all exposed as
// dedicated Enqueue* functions since Go does not support generic methods:
//
//	EnqueueStaged / EnqueueAwaitResult / EnqueueFireAndForget  - runs inline
//	EnqueueFuture / EnqueueFutureFireAndForget                 - hands back a channel
//	EnqueueStagedChain / EnqueueStagedChainFireAndForget       - submits downstream
//
// The staged-chain shape propagates backpressure along the chain: a task
// that itself submits to a second executor keeps its slot occupied in the
// first executor until the second executor's result resolves. The outer
// StagedFuture's acceptance reports admission into the first executor
// only; it is not tied to admission at the far end of the chain.
//
// # Error Handling
//
// A task's own failure — its thunk returning a non-nil error — resolves
// that task's result signal and never poisons the executor; other tasks
// keep running normally. Admission-window overflow is not an error at
// all, only a pending acceptance signal (see above). Constructing an
// Executor with bufLen < 1, or a task body re-entrantly blocking on its
// own executor's result, are programming errors and panic immediately
// rather than surfacing as retryable failures. A Dispatcher that never
// runs a submitted activation stalls that executor's queue permanently;
// seqexec does not retry or fail over.
//
// # Ordering
//
// Execution is strict FIFO by admission order: task N+1 never starts
// before task N has started, nor, when task N is synchronous, before its
// result resolves; an asynchronous task stays in flight, holding its
// slot, while later tasks run. Acceptance is FIFO by which producer
// won the tail append race, not by submission wall-clock time. At most
// one goroutine ever runs a given Executor's work loop at once.
//
// # Race Detection
//
// The intake list and admitted-window cursors use atomic CAS with
// explicit acquire/release ordering to coordinate producers and the work
// loop without locks. Go's race detector tracks explicit synchronization
// primitives, not happens-before relationships established purely through
// atomic operations on separate variables, so it can report false
// positives on this package's concurrent stress tests. Tests incompatible
// with race detection skip themselves when RaceEnabled is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives
// with explicit memory ordering, [code.hybscloud.com/spin] for CPU pause
// instructions on the intake list's bounded spin-park, and
// [github.com/alitto/pond/v2] for the default production Dispatcher.
package seqexec
