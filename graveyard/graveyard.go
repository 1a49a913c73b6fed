// Copyright (c) 2018 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package graveyard implements the shared liveness vector workers and the
// pool use to coordinate self-termination. The global shutdown slot and
// every worker's slot live in one vector behind one lock. IsAlive and
// ShuttingDown each take that read lock on their own, so a caller that
// calls both reads two separate snapshots, not one.
package graveyard

import (
	"github.com/ChaosStudyGroup/thread-pool/internal/xdebug"
	"github.com/ChaosStudyGroup/thread-pool/internal/xsync"
)

// Alive and Dead are the two values a slot can hold. Any non-Dead value is
// treated as alive, but Alive is the canonical one this package writes.
const (
	Alive int32 = 0
	Dead  int32 = -1
)

// Global is the reserved index of the pool-wide shutdown slot.
const Global = 0

// Graveyard is a liveness vector indexed by worker id. Index 0 is the global
// shutdown slot: when Graveyard[0] == Dead, the pool is shutting down.
type Graveyard struct {
	mu   xsync.DebugRWMutex
	rows []int32
}

// New returns a Graveyard with the global slot and `workers` worker slots,
// all alive. When DEBUG_POOL=1, the shared lock is instrumented so a
// deadlock or a write starved by readers shows up as a stack trace instead
// of a silent hang.
func New(workers int) *Graveyard {
	if xdebug.Enabled() {
		xsync.EnableMutexDebugging()
	}
	rows := make([]int32, workers+1)
	return &Graveyard{rows: rows}
}

// Len reports the number of slots currently allocated (including slot 0).
func (g *Graveyard) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rows)
}

// Grow appends `n` alive slots, for worker ids that did not exist yet.
func (g *Graveyard) Grow(n int) {
	if n <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 0; i < n; i++ {
		g.rows = append(g.rows, Alive)
	}
}

// EnsureLen grows the vector so index `id` is valid, if it isn't already.
func (g *Graveyard) EnsureLen(id int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for len(g.rows) <= id {
		g.rows = append(g.rows, Alive)
	}
}

// IsAlive reports whether worker `id`'s own slot is alive: it has a valid
// slot and that slot is not Dead. Deliberately independent of the global
// shutdown slot -- a worker that is individually alive but globally
// shutting down still drains remaining work, per the Checking-state rules
// in the worker state machine (see ShuttingDown).
func (g *Graveyard) IsAlive(id int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if id >= len(g.rows) {
		return false
	}
	return g.rows[id] != Dead
}

// ShuttingDown reports whether the global slot has been marked Dead, without
// regard to any individual worker's slot.
func (g *Graveyard) ShuttingDown() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rows[Global] == Dead
}

// Kill marks worker `id`'s slot Dead if `id` indexes a valid slot. Killing
// id 0 marks the whole pool as shutting down; it does not by itself mark
// any other worker's slot Dead (workers individually retire once they
// observe both conditions in Settling/Checking, per spec).
func (g *Graveyard) Kill(id int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id < len(g.rows) {
		g.rows[id] = Dead
	}
}

// KillSelf marks worker `id`'s own slot Dead, leaving the global slot
// untouched. Used when a worker discovers it is its own termination target.
func (g *Graveyard) KillSelf(id int) {
	g.Kill(id)
}
