// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package seqexec

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrBufLenInvalid is the panic value when New is called with bufLen < 1.
// This is a programming error, not a runtime condition: unlike a full
// admitted window (which is ordinary backpressure, not an error at all),
// an invalid bufLen can never be satisfied by retrying.
var ErrBufLenInvalid = errors.New("seqexec: bufLen must be >= 1")

// ErrReentrantWait is the panic value when a task body blocks on
// AwaitResult for a StagedFuture produced by the very executor currently
// running that task body. The work loop is single-consumer: if it blocks
// waiting on its own eventual output, nothing will ever run to produce
// that output. This is fatal and not recoverable by retrying.
var ErrReentrantWait = errors.New("seqexec: task body blocked on its own executor's result")

// ErrExecutorStalled indicates the configured Dispatcher did not run a
// submitted activation. Unlike a task's own failure (reported through its
// result signal without affecting other tasks), a dispatcher failure is
// fatal to the whole executor: its queue has no way to make progress and
// seqexec does not attempt automatic recovery.
var ErrExecutorStalled = errors.New("seqexec: dispatcher failed to run the work loop")

// PanicError wraps a recovered panic value from a task body, when the
// executor is configured with a PanicHandler. Without a PanicHandler,
// panics are not recovered and propagate out of the work loop via the
// Dispatcher, consistent with fatal host errors.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("seqexec: task panicked: %v", e.Value)
}

// IsSemantic reports whether err from a StagedFuture's result is a control
// flow signal from the task's own body rather than an executor-level
// failure. Unlike lfq, seqexec never returns iox.ErrWouldBlock here (a
// pending acceptance is reported through IsAccepted, not an error), so this
// exists for task bodies that themselves return semantic errors from
// another iox-based collaborator and want a caller to classify them the
// same way across the whole call chain. Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition (nil,
// or a semantic control-flow signal). Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
