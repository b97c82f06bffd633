// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package seqexec

import "sync/atomic"

// completionShape identifies how a task's body produces its value.
type completionShape uint8

const (
	// shapeSync tasks compute their value inline, on the work loop goroutine.
	shapeSync completionShape = iota
	// shapeFuture tasks kick off async work and hand back a channel that
	// delivers exactly one value, without blocking the work loop.
	shapeFuture
	// shapeStaged tasks submit to a downstream executor and hand back its
	// *StagedFuture[any], chaining this task's result to that executor's.
	shapeStaged
)

// submissionMode identifies whether a caller retains a handle to the result.
type submissionMode uint8

const (
	// modeFireAndForget callers discard the result signal; the task still
	// runs and still occupies a window slot until its result resolves.
	modeFireAndForget submissionMode = iota
	// modeResultBearing callers hold a *StagedFuture and await it.
	modeResultBearing
)

// asyncResult is the single value delivered by a shapeFuture task's channel.
type asyncResult struct {
	value any
	err   error
}

// Task is a uniform, non-generic handle for one unit of submitted work.
//
// Every Task carries exactly one acceptance signal and one result signal
// (both held in sf), resolved at most once each, with acceptance always
// resolving no later than result. The six concrete kinds — three
// completion shapes crossed with two submission modes — collapse to the
// (shape, mode) pair below instead of a trait-mixin family;
// workLoop.runNode switches on shape, and mode only records whether the
// caller kept a result handle.
type Task struct {
	shape completionShape
	mode  submissionMode

	thunkSync   func() (any, error)
	thunkFuture func() <-chan asyncResult
	thunkStaged func() *StagedFuture[any]

	sf *StagedFuture[any]

	ran atomic.Bool
}

func newTask(shape completionShape, mode submissionMode) *Task {
	return &Task{shape: shape, mode: mode, sf: newPendingStagedFuture[any]()}
}

// runSync executes a shapeSync task exactly once and resolves its result.
// Callers must only invoke this for tasks with shape == shapeSync.
func (t *Task) runSync() {
	if !t.ran.CompareAndSwap(false, true) {
		panic("seqexec: task executed more than once")
	}
	v, err := t.thunkSync()
	t.sf.result.resolve(v, err)
}

// startAsync invokes a shapeFuture task's thunk exactly once and returns the
// channel the work loop should wait on for its eventual value. Callers must
// only invoke this for tasks with shape == shapeFuture.
func (t *Task) startAsync() <-chan asyncResult {
	if !t.ran.CompareAndSwap(false, true) {
		panic("seqexec: task executed more than once")
	}
	return t.thunkFuture()
}

// startStaged invokes a shapeStaged task's thunk exactly once and returns
// the downstream *StagedFuture[any] this task's result is chained to.
// Callers must only invoke this for tasks with shape == shapeStaged.
func (t *Task) startStaged() *StagedFuture[any] {
	if !t.ran.CompareAndSwap(false, true) {
		panic("seqexec: task executed more than once")
	}
	return t.thunkStaged()
}

// resolve settles this task's result signal directly (used by shapeFuture
// and shapeStaged once their async source delivers, and by the work loop
// when a PanicHandler recovers a panic from the task's thunk).
func (t *Task) resolve(v any, err error) {
	t.sf.result.resolve(v, err)
}
