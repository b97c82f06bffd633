// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package seqexec

import "sync"

// stepDispatcher is a Dispatcher that records submissions instead of
// running them, so tests can assert exact activation counts and drive the
// work loop one activation at a time, using a small hand-written test
// double rather than a mocking framework.
type stepDispatcher struct {
	mu          sync.Mutex
	pending     []func()
	activations int
}

func (d *stepDispatcher) Submit(fn func()) {
	d.mu.Lock()
	d.pending = append(d.pending, fn)
	d.activations++
	d.mu.Unlock()
}

// runAll runs every pending submission, including ones a running
// submission itself enqueues (batch-exhaustion resubmission, or an
// activation racing a deactivate), until none remain.
func (d *stepDispatcher) runAll() {
	for {
		d.mu.Lock()
		if len(d.pending) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.pending[0]
		d.pending = d.pending[1:]
		d.mu.Unlock()
		fn()
	}
}

// runOne runs exactly one pending submission, if any, reporting whether it did.
func (d *stepDispatcher) runOne() bool {
	d.mu.Lock()
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return false
	}
	fn := d.pending[0]
	d.pending = d.pending[1:]
	d.mu.Unlock()
	fn()
	return true
}

func (d *stepDispatcher) queueLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *stepDispatcher) Activations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activations
}
