// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package seqexec

// execConfig holds New's optional tuning knobs. Unlike the multi-shape
// queue family this package's teacher offers, seqexec has exactly one
// product shape, so a single functional-option slice replaces a fluent
// Builder: there is no algorithm-selection decision for a Builder to make.
type execConfig struct {
	batchBudget  int
	panicHandler func(any)
}

// Option configures an Executor at construction time.
type Option func(*execConfig)

// WithBatchBudget overrides the default 200-task batch budget: the number
// of admitted nodes one activation drains before yielding the dispatcher
// thread back and resubmitting itself.
func WithBatchBudget(n int) Option {
	return func(c *execConfig) {
		c.batchBudget = n
	}
}

// WithPanicHandler configures a hook invoked when a task's thunk panics —
// whether the task runs synchronously, starts async work, or starts a
// downstream staged submission. Without one, panics propagate out of the
// work loop via the Dispatcher, consistent with fatal host errors. With
// one, the panic is recovered, reported to the hook, and the task's
// result resolves with a *PanicError wrapping the recovered value.
func WithPanicHandler(h func(any)) Option {
	return func(c *execConfig) {
		c.panicHandler = h
	}
}

// pad is cache line padding to prevent false sharing between the queue's
// independently-updated cursors and counters.
type pad [64]byte
