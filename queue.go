// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package seqexec

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// queue is the bounded MPSC intake: an intrusive, singly-linked list of
// nodes with three cursors.
//
//   - tail is the CAS-append point. Any goroutine may race to extend it.
//   - head is the work loop's read cursor: the last node it has fully
//     consumed. Only the work loop ever advances it, but producers read it
//     to recognize an empty queue, so it is atomic.
//   - admitted is the boundary of the admitted window: nodes between head
//     and admitted have had their acceptance signal resolved and are
//     eligible for the work loop to run. Both producers (tryAdmit after
//     each append) and the work loop (tryAdmit after releasing a slot)
//     advance it.
//
// occupied tracks count(head..admitted) plus in-flight async tasks as one
// quantity; occupied <= bufLen is the capacity invariant behind the
// admitted-window definition.
type queue struct {
	_        pad
	tail     atomic.Pointer[node]
	_        pad
	head     atomic.Pointer[node]
	_        pad
	admitted atomix.Pointer[node]
	_        pad
	occupied atomix.Int64
	_        pad
	activated atomix.Bool
	bufLen    int64
}

func newQueue(bufLen int) *queue {
	sentinel := &node{}
	q := &queue{bufLen: int64(bufLen)}
	q.tail.Store(sentinel)
	q.head.Store(sentinel)
	q.admitted.Store(sentinel)
	return q
}

// append links n onto the tail of the list (wait-free for the winning
// producer, lock-free overall: a loser simply retries after helping).
//
// It reports mustActivate = true when the caller is responsible for
// submitting the work loop to the dispatcher: the single transition from a
// fully-drained queue (nothing left for the loop to consume) to a
// non-empty one. Exactly one producer observes that transition, because
// only one producer can win the CAS that links directly after the node the
// loop had drained up to.
func (q *queue) append(n *node) (mustActivate bool) {
	sw := spin.Wait{}
	for {
		tailNode := q.tail.Load()
		next := tailNode.next.Load()
		if next == nil {
			if tailNode.next.CompareAndSwap(nil, n) {
				q.tail.CompareAndSwap(tailNode, n)
				wasEmpty := q.head.Load() == tailNode
				q.tryAdmit()
				if wasEmpty && q.activated.CompareAndSwapAcqRel(false, true) {
					return true
				}
				return false
			}
			// lost the CAS: do not retry blindly, re-read the (now
			// presumably advanced) tail and help below.
		} else {
			// a producer linked a node but hasn't advanced tail yet; help.
			q.tail.CompareAndSwap(tailNode, next)
		}
		sw.Once()
	}
}

// tryAdmit extends the admitted window as far as available capacity and
// already-appended nodes allow. Every producer calls it right after
// linking its own node, and the work loop calls it after releasing a
// slot; either can end up admitting nodes appended by someone else
// entirely (a producer's own node may already sit past bufLen and get
// admitted later by a completion it never learns about directly, and a
// slot the loop frees may be claimed by a producer racing concurrently)
// — this is cooperative helping expressed as one shared CAS loop instead
// of separate producer and consumer paths.
func (q *queue) tryAdmit() {
	for {
		admittedNode := q.admitted.Load()
		next := admittedNode.next.Load()
		if next == nil {
			// Nothing left to admit right now. Still perform a CAS of
			// admitted to itself: not a no-op, but a release/acquire
			// barrier that forces the next producer's or the loop's read
			// of admitted to observe this goroutine's prior writes rather
			// than a stale pointer, guarding against a lost-wakeup race
			// with a concurrent append or slot release.
			q.admitted.CompareAndSwapAcqRel(admittedNode, admittedNode)
			return
		}
		occ := q.occupied.LoadAcquire()
		if occ >= q.bufLen {
			return
		}
		if !q.occupied.CompareAndSwapAcqRel(occ, occ+1) {
			continue // lost the counter race; re-read and retry
		}
		if !q.admitted.CompareAndSwapAcqRel(admittedNode, next) {
			// Claimed a slot but lost the pointer race to a concurrent
			// admitter; give the slot back and retry from fresh state.
			q.occupied.AddAcqRel(-1)
			continue
		}
		next.task.sf.acceptAdmission()
	}
}

// releaseSlot returns one occupied slot to the window, for a task whose
// result has just resolved (synchronously, or asynchronously from
// in-flight work). It does not itself advance admitted; callers follow up
// with tryAdmit once they're ready to let a new node in.
func (q *queue) releaseSlot() {
	q.occupied.AddAcqRel(-1)
}

// nextToRun returns the node after head, spin-parking briefly if a
// producer has claimed the tail slot but not yet published next (the
// "spin on node.next" case), and reports false when no admitted node lies
// beyond head; unadmitted nodes may still follow (see hasUnadmittedWork).
func (q *queue) nextToRun() (*node, bool) {
	head := q.head.Load()
	admittedNode := q.admitted.Load()
	if head == admittedNode {
		return nil, false
	}
	sw := spin.Wait{}
	for {
		next := head.next.Load()
		if next != nil {
			return next, true
		}
		sw.Once()
	}
}

// hasUnadmittedWork reports whether any node exists beyond head, whether
// or not it has been admitted yet. The work loop uses this to distinguish
// "genuinely empty, safe to deactivate" from "full window, must block on
// an async completion before more can be admitted".
func (q *queue) hasUnadmittedWork() bool {
	return q.head.Load() != q.tail.Load()
}

// advanceHead marks n as consumed by the work loop. Only the work loop
// calls this, so a plain store suffices; the field is atomic only so
// producers' emptiness check in append observes it promptly.
func (q *queue) advanceHead(n *node) {
	q.head.Store(n)
}

// deactivate clears the activation flag, making the work loop eligible to
// be resubmitted by the next producer append or async completion. Callers
// re-check for work after calling this and reclaim the flag by CAS if any
// appeared, to avoid a missed wakeup.
func (q *queue) deactivate() {
	q.activated.StoreRelease(false)
}
