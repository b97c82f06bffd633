// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package seqexec

import (
	"context"
	"testing"
	"time"
)

// newManualAsync returns a start function for EnqueueFuture/EnqueueFutureFireAndForget
// and a resolve function the test calls to deliver that task's value on
// its own schedule, simulating external async work (an RPC, a timer).
func newManualAsync[T any]() (start func() <-chan AsyncResult[T], resolve func(T, error)) {
	ch := make(chan AsyncResult[T], 1)
	start = func() <-chan AsyncResult[T] { return ch }
	resolve = func(v T, err error) { ch <- AsyncResult[T]{Value: v, Err: err} }
	return
}

// TestScenarioBackpressureGate: bufLen=3, 4 sync tasks submitted before the
// dispatcher ever runs. The first 3 are admitted immediately (acceptance
// resolves purely from bookkeeping, no execution needed); the 4th stays
// pending until a slot frees. Draining the single activation then admits
// and runs the 4th too.
func TestScenarioBackpressureGate(t *testing.T) {
	d := &stepDispatcher{}
	e := New(3, d)

	var counter int
	sfs := make([]*StagedFuture[int], 4)
	for i := range sfs {
		sfs[i] = EnqueueStaged(e, func() (int, error) {
			counter++
			return counter, nil
		})
	}

	for i := 0; i < 3; i++ {
		if !sfs[i].IsAccepted() {
			t.Fatalf("task %d: expected accepted before drain, was pending", i)
		}
	}
	if sfs[3].IsAccepted() {
		t.Fatalf("task 3: expected pending before drain, was accepted")
	}

	d.runAll()

	for i := range sfs {
		if !sfs[i].IsAccepted() {
			t.Fatalf("task %d: expected accepted after drain", i)
		}
	}
	if counter != 4 {
		t.Fatalf("counter = %d, want 4", counter)
	}
}

// TestScenarioSingleActivationDrain: bufLen=3, 3 sync tasks. All 3 fit in
// the window on arrival, so one dispatcher activation drains them all in
// FIFO order with no resubmission.
func TestScenarioSingleActivationDrain(t *testing.T) {
	d := &stepDispatcher{}
	e := New(3, d)

	var results []int
	for i := 1; i <= 3; i++ {
		v := i
		EnqueueFireAndForget(e, func() { results = append(results, v) })
	}

	if n := d.queueLen(); n != 1 {
		t.Fatalf("queue length before drain = %d, want 1", n)
	}

	d.runAll()

	if got := d.Activations(); got != 1 {
		t.Fatalf("activations = %d, want 1", got)
	}
	if len(results) != 3 || results[0] != 1 || results[1] != 2 || results[2] != 3 {
		t.Fatalf("results = %v, want [1 2 3]", results)
	}
}

// TestScenarioStarvationGuard: a batch budget smaller than the total task
// count forces the work loop to yield the dispatcher thread and resubmit
// itself partway through, rather than monopolizing it indefinitely. With
// 1050 tasks and a budget of 525, exactly two activations are needed.
func TestScenarioStarvationGuard(t *testing.T) {
	d := &stepDispatcher{}
	e := New(50, d, WithBatchBudget(525))

	const total = 1050
	var counter int
	for i := 0; i < total; i++ {
		EnqueueFireAndForget(e, func() { counter++ })
	}

	d.runAll()

	if got := d.Activations(); got != 2 {
		t.Fatalf("activations = %d, want 2", got)
	}
	if counter != total {
		t.Fatalf("counter = %d, want %d", counter, total)
	}
}

// TestScenarioAsyncSlotOccupancy: bufLen=2, 2 async tasks occupy both
// slots until their children resolve. 2 more submissions stay pending
// until those children resolve and free the slots.
func TestScenarioAsyncSlotOccupancy(t *testing.T) {
	d := &stepDispatcher{}
	e := New(2, d)

	start1, resolve1 := newManualAsync[int]()
	start2, resolve2 := newManualAsync[int]()
	sf1 := EnqueueFuture(e, start1)
	sf2 := EnqueueFuture(e, start2)
	d.runAll()

	if !sf1.IsAccepted() || !sf2.IsAccepted() {
		t.Fatalf("first two async tasks should be accepted immediately")
	}

	start3, _ := newManualAsync[int]()
	start4, _ := newManualAsync[int]()
	sf3 := EnqueueFuture(e, start3)
	sf4 := EnqueueFuture(e, start4)

	// No dispatcher run here: the window is already full and neither
	// child has resolved, so draining now would block on the one
	// suspension point with nothing to ever wake it. Acceptance for a
	// window-blocked task is decided at append time regardless, so the
	// check below needs no drain to be meaningful.
	if sf3.IsAccepted() || sf4.IsAccepted() {
		t.Fatalf("third and fourth async tasks should still be pending")
	}

	resolve1(1, nil)
	resolve2(2, nil)
	d.runAll()

	retryWithTimeout(t, time.Second, func() bool {
		return sf3.IsAccepted() && sf4.IsAccepted()
	}, "third and fourth tasks should become accepted once children resolve")
}

// TestScenarioMixedResume: bufLen=3, 6 async tasks. The first 3 are
// accepted on arrival; the 4th through 6th stay pending. Resolving 2 of
// the first 3 children frees exactly 2 slots, admitting exactly 2 of the
// previously-pending tasks.
func TestScenarioMixedResume(t *testing.T) {
	d := &stepDispatcher{}
	e := New(3, d)

	starts := make([]func() <-chan AsyncResult[int], 6)
	resolves := make([]func(int, error), 6)
	sfs := make([]*StagedFuture[int], 6)
	for i := range starts {
		starts[i], resolves[i] = newManualAsync[int]()
	}
	for i := 0; i < 3; i++ {
		sfs[i] = EnqueueFuture(e, starts[i])
	}
	// Draining now is safe: no task waits behind the 3 admitted ones, and a
	// shapeFuture task's run only starts its goroutine, it never blocks the loop.
	d.runAll()
	for i := 3; i < 6; i++ {
		sfs[i] = EnqueueFuture(e, starts[i])
	}
	// No drain here: the window is now full and none of the first 3
	// children has resolved, so the loop would suspend with nothing to
	// wake it.

	for i := 0; i < 3; i++ {
		if !sfs[i].IsAccepted() {
			t.Fatalf("task %d: expected accepted", i)
		}
	}
	for i := 3; i < 6; i++ {
		if sfs[i].IsAccepted() {
			t.Fatalf("task %d: expected pending", i)
		}
	}

	resolves[0](0, nil)
	resolves[1](1, nil)
	d.runAll()

	retryWithTimeout(t, time.Second, func() bool {
		accepted := 0
		for i := 3; i < 6; i++ {
			if sfs[i].IsAccepted() {
				accepted++
			}
		}
		return accepted == 2
	}, "exactly two previously-pending tasks should become accepted")
}

// TestScenarioSyncAfterAsyncPruning: bufLen=2, one task that never
// resolves permanently pins a single slot. Sync tasks submitted behind it
// still make progress through the one remaining slot, each releasing it
// the instant it completes, letting the next sync task in — demonstrating
// that window occupancy, not arrival order or task shape, governs
// acceptance, and that a stalled async task prunes capacity without
// starving everything behind it.
func TestScenarioSyncAfterAsyncPruning(t *testing.T) {
	d := &stepDispatcher{}
	e := New(2, d)

	start1, _ := newManualAsync[int]() // deliberately left unresolved
	sfAsync := EnqueueFuture(e, start1)

	var ran []int
	sf2 := EnqueueStaged(e, func() (int, error) { ran = append(ran, 2); return 2, nil })
	sf3 := EnqueueStaged(e, func() (int, error) { ran = append(ran, 3); return 3, nil })
	sf4 := EnqueueStaged(e, func() (int, error) { ran = append(ran, 4); return 4, nil })
	sf5 := EnqueueStaged(e, func() (int, error) { ran = append(ran, 5); return 5, nil })

	// Before any drain: only the async task and sf2 fit in the 2-slot
	// window; sf3..sf5 stay pending.
	if !sfAsync.IsAccepted() || !sf2.IsAccepted() {
		t.Fatalf("expected the async task and sf2 accepted immediately")
	}
	if sf3.IsAccepted() || sf4.IsAccepted() || sf5.IsAccepted() {
		t.Fatalf("expected sf3..sf5 pending before drain")
	}

	d.runAll()

	// Each sync task resolves synchronously and releases its own slot the
	// instant it completes, so the single slot not pinned by the async
	// task cycles through sf2..sf5 within the one activation.
	for _, sf := range []*StagedFuture[int]{sfAsync, sf2, sf3, sf4, sf5} {
		if !sf.IsAccepted() {
			t.Fatalf("expected every task accepted once the free slot has cycled through")
		}
	}
	if len(ran) != 4 || ran[0] != 2 || ran[1] != 3 || ran[2] != 4 || ran[3] != 5 {
		t.Fatalf("ran = %v, want [2 3 4 5]", ran)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := sfAsync.AwaitResult(ctx); err == nil {
		t.Fatalf("expected a deadline error awaiting a result that never resolves")
	}
}
