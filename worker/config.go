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

// Package worker implements the single-goroutine polling state machine: the
// hard core of the pool. Each Worker owns exactly one goroutine and consumes
// from two shared channels without starving either, coordinating its own
// retirement through a shared graveyard.
package worker

import (
	"go.uber.org/atomic"
)

// Hooks are optional lifecycle callbacks fired around a worker's spawn and
// drop. They run synchronously on the caller's goroutine (not the worker's)
// and must never submit work back to the same pool -- reentrancy into the
// pool from inside a hook is not supported.
type Hooks struct {
	BeforeStart func(id int)
	AfterStart  func(id int)
	BeforeDrop  func(id int)
	AfterDrop   func(id int)
}

func (h Hooks) callBeforeStart(id int) {
	if h.BeforeStart != nil {
		h.BeforeStart(id)
	}
}

func (h Hooks) callAfterStart(id int) {
	if h.AfterStart != nil {
		h.AfterStart(id)
	}
}

func (h Hooks) callBeforeDrop(id int) {
	if h.BeforeDrop != nil {
		h.BeforeDrop(id)
	}
}

func (h Hooks) callAfterDrop(id int) {
	if h.AfterDrop != nil {
		h.AfterDrop(id)
	}
}

// Config is immutable once a worker is spawned.
type Config struct {
	// Name is an optional, human-readable label for the worker. It is stored
	// only; the worker does not read it (Go has no native named-goroutine
	// concept).
	Name string

	// StackSize is stored only; the worker does not read it, and goroutine
	// stacks are always sized by the Go runtime.
	StackSize int

	// Privileged workers never self-purge on idle.
	Privileged bool

	// MaxIdle is a pool-wide shared budget: once an unprivileged worker has
	// been idle at least this long, it retires. 0 disables self-purging.
	MaxIdle *atomic.Duration
}
