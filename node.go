// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package seqexec

import "sync/atomic"

// node is a single intake-queue entry.
//
// next is published exactly once: a producer that wins the tail CAS sets it
// from nil to a non-nil pointer, and it never changes again. Readers (the
// work loop, and helping producers) may therefore spin on next without
// additional synchronization once they hold a pointer to its owning node.
type node struct {
	task *Task
	next atomic.Pointer[node]
}
