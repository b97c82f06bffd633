// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package seqexec

import "sync/atomic"

// defaultBatchBudget bounds how many admitted nodes a single activation
// drains before yielding the dispatcher thread back and resubmitting
// itself. Without a budget, one pathologically deep queue on a small
// dispatcher pool could starve every other executor sharing it.
const defaultBatchBudget = 200

// workLoop is the cooperative, single-consumer driver over a queue. A
// given workLoop's run is never executing on two goroutines at once: the
// queue's activated flag (set by append's empty-to-non-empty transition,
// by an async completion waking an idle loop, or by batch-exhaustion
// resubmission) guarantees at most one outstanding dispatcher submission.
type workLoop struct {
	q            *queue
	dispatcher   Dispatcher
	batchBudget  int
	panicHandler func(any)

	// asyncDone carries nodes whose shapeFuture/shapeStaged task has
	// resolved, for the loop to release their slot and extend the window.
	// Buffered generously since producers of these events never block on
	// send order, only on eventual delivery.
	asyncDone chan *node

	// running is true for the duration of run() on whichever goroutine the
	// dispatcher happened to invoke it on. Exactly one goroutine can make
	// it true at a time (the activated CAS in queue guarantees a single
	// outstanding activation), which is what makes the re-entrancy check
	// in StagedFuture.AwaitResult sound without true goroutine-local state.
	running atomic.Bool
}

func newWorkLoop(q *queue, dispatcher Dispatcher, batchBudget int, panicHandler func(any)) *workLoop {
	if batchBudget <= 0 {
		batchBudget = defaultBatchBudget
	}
	return &workLoop{
		q:            q,
		dispatcher:   dispatcher,
		batchBudget:  batchBudget,
		panicHandler: panicHandler,
		asyncDone:    make(chan *node, 1024),
	}
}

// activate submits run to the dispatcher. Executor.enqueue calls it when
// append reports the empty-to-non-empty transition; run's own
// batch-exhaustion path resubmits run directly.
func (l *workLoop) activate() {
	l.dispatcher.Submit(l.run)
}

// run drains the admitted window in strict FIFO order until either the
// queue is genuinely empty (deactivating), the in-flight window is full
// with nothing left to run synchronously (the exactly-one suspension
// point, blocking on an async completion), or the batch budget is
// exhausted (yielding, and resubmitting itself if work remains).
func (l *workLoop) run() {
	l.running.Store(true)
	defer l.running.Store(false)

	processed := 0
	for {
		l.drainCompletionsNonBlocking()

		n, ok := l.q.nextToRun()
		if !ok {
			if l.q.hasUnadmittedWork() {
				// The window is full: nodes exist beyond head but none
				// have been admitted. Nothing synchronous is available,
				// so block on the one suspension point until an in-flight
				// async task frees a slot.
				l.running.Store(false)
				l.drainOneBlocking()
				l.running.Store(true)
				continue
			}
			l.q.deactivate()
			// Re-check after deactivating: a producer's append may have
			// raced it, appending a node that couldn't be admitted (the
			// window was still full at that instant) and so saw the
			// activated CAS fail, leaving nobody responsible for waking
			// this loop back up. hasUnadmittedWork must be rechecked here
			// too, not just nextToRun: that node is invisible to
			// nextToRun until admitted, but it still needs this loop
			// alive to eventually drain the in-flight completion that
			// admits it. Reclaiming activation and falling through lets
			// the normal nextToRun/hasUnadmittedWork dispatch above route
			// to drainOneBlocking for it.
			if _, ok := l.q.nextToRun(); ok || l.q.hasUnadmittedWork() {
				if l.q.activated.CompareAndSwapAcqRel(false, true) {
					continue
				}
			}
			return
		}

		l.runNode(n)
		l.q.advanceHead(n)
		processed++

		if processed >= l.batchBudget {
			l.q.deactivate()
			// Resubmit only when work remains; otherwise finish like the
			// drained path above, where a later append reactivates the loop.
			if _, ok := l.q.nextToRun(); ok || l.q.hasUnadmittedWork() {
				if l.q.activated.CompareAndSwapAcqRel(false, true) {
					l.dispatcher.Submit(l.run)
				}
			}
			return
		}
	}
}

// runNode dispatches execution by completion shape.
func (l *workLoop) runNode(n *node) {
	switch n.task.shape {
	case shapeSync:
		l.runSyncNode(n)
	case shapeFuture:
		l.runFutureNode(n)
	case shapeStaged:
		l.runStagedNode(n)
	}
}

// runSyncNode executes n's thunk inline and releases its slot immediately,
// since a sync task's completion is known by the time runSync returns.
func (l *workLoop) runSyncNode(n *node) {
	l.invokeSync(n)
	l.q.releaseSlot()
	l.q.tryAdmit()
}

func (l *workLoop) invokeSync(n *node) {
	if l.panicHandler == nil {
		n.task.runSync()
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.panicHandler(r)
			n.task.resolve(nil, &PanicError{Value: r})
		}
	}()
	n.task.runSync()
}

// runFutureNode starts n's async thunk and hands the work loop's monitor
// goroutine the job of reporting completion, without blocking the loop. A
// panic from the thunk itself (not from the async work it kicks off, which
// reports failure through its channel like any other result) is recovered
// the same way a sync task's panic is, when a PanicHandler is configured;
// since no monitor goroutine gets spawned in that case, this releases the
// slot inline instead of going through asyncDone.
func (l *workLoop) runFutureNode(n *node) {
	ch, ok := l.startAsync(n)
	if !ok {
		l.q.releaseSlot()
		l.q.tryAdmit()
		return
	}
	go func() {
		res := <-ch
		n.task.resolve(res.value, res.err)
		l.asyncDone <- n
	}()
}

func (l *workLoop) startAsync(n *node) (ch <-chan asyncResult, ok bool) {
	if l.panicHandler == nil {
		return n.task.startAsync(), true
	}
	defer func() {
		if r := recover(); r != nil {
			l.panicHandler(r)
			n.task.resolve(nil, &PanicError{Value: r})
			ch, ok = nil, false
		}
	}()
	return n.task.startAsync(), true
}

// runStagedNode starts n's downstream submission and chains this task's
// result to the downstream StagedFuture's result, propagating backpressure
// end-to-end: this task's slot stays occupied until the downstream result
// resolves, exactly like a shapeFuture task's in-flight window. A panic
// from starting the downstream submission is handled the same way
// runFutureNode handles one from starting async work.
func (l *workLoop) runStagedNode(n *node) {
	inner, ok := l.startStaged(n)
	if !ok {
		l.q.releaseSlot()
		l.q.tryAdmit()
		return
	}
	inner.result.onComplete(func(v any, err error) {
		n.task.resolve(v, err)
		l.asyncDone <- n
	})
}

func (l *workLoop) startStaged(n *node) (sf *StagedFuture[any], ok bool) {
	if l.panicHandler == nil {
		return n.task.startStaged(), true
	}
	defer func() {
		if r := recover(); r != nil {
			l.panicHandler(r)
			n.task.resolve(nil, &PanicError{Value: r})
			sf, ok = nil, false
		}
	}()
	return n.task.startStaged(), true
}

// drainCompletionsNonBlocking releases and re-admits for every async
// completion already waiting, without blocking.
func (l *workLoop) drainCompletionsNonBlocking() {
	for {
		select {
		case <-l.asyncDone:
			l.q.releaseSlot()
			l.q.tryAdmit()
		default:
			return
		}
	}
}

// drainOneBlocking is the work loop's single blocking point: it waits for
// at least one async completion, then drains any further ones already
// queued up behind it.
func (l *workLoop) drainOneBlocking() {
	<-l.asyncDone
	l.q.releaseSlot()
	l.q.tryAdmit()
	l.drainCompletionsNonBlocking()
}
