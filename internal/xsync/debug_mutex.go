// Copyright (c) 2017 Uber Technologies, Inc.
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

// Package xsync provides a debuggable RWMutex used by the graveyard, whose
// single lock is read by every worker on every iteration of its polling
// loop and written by Kill/Grow -- exactly the kind of hot, shared lock
// worth instrumenting when DEBUG_POOL is set.
package xsync

import (
	"bytes"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// DebugRWMutex is a sync.RWMutex that, when debugging is enabled, tracks
// its owner and panics if a writer shows up while contention crosses
// mutexContentionTrigger concurrent readers.
type DebugRWMutex struct {
	m sync.RWMutex
	r int64 // number of current readers
}

// Lock locks the mutex for writing.
func (m *DebugRWMutex) Lock() {
	if mutexDebuggingFlag &&
		atomic.LoadInt64(&m.r) >= int64(mutexContentionTrigger) {
		panic("xsync: contention @ " + traceback(callstack(0)))
	}

	m.m.Lock()
	track(m, lock)
}

// Unlock unlocks the mutex for writing.
func (m *DebugRWMutex) Unlock() {
	track(m, unlock)
	m.m.Unlock()
}

// RLock locks the mutex for reading.
func (m *DebugRWMutex) RLock() {
	m.m.RLock()
	track(m, rlock)
}

// RUnlock undoes a single RLock call.
func (m *DebugRWMutex) RUnlock() {
	track(m, runlock)
	m.m.RUnlock()
}

// RLocker returns a Locker implemented via RLock/RUnlock.
func (m *DebugRWMutex) RLocker() sync.Locker {
	return (*rlocker)(m)
}

type rlocker DebugRWMutex

func (r *rlocker) Lock()   { (*DebugRWMutex)(r).RLock() }
func (r *rlocker) Unlock() { (*DebugRWMutex)(r).RUnlock() }

const stackDepth = 16

var (
	mutexDebuggingFlag     bool
	mutexContentionTrigger = 10
)

// EnableMutexDebugging turns mutex debugging on for every DebugRWMutex in
// the process.
func EnableMutexDebugging() {
	mutexDebuggingFlag = true
}

// DisableMutexDebugging turns mutex debugging off.
func DisableMutexDebugging() {
	mutexDebuggingFlag = false
}

// SetMutexContentionTrigger sets the minimum number of concurrent readers
// that must be held for a write-lock attempt to panic instead of block.
func SetMutexContentionTrigger(n int) {
	mutexContentionTrigger = n
}

type mutexOp int

const (
	lock mutexOp = iota
	unlock
	rlock
	runlock
)

type lockInfo struct {
	ts time.Time
	cs []uintptr
}

var locks struct {
	sync.Mutex
	m map[*DebugRWMutex]lockInfo
}

func init() {
	locks.m = make(map[*DebugRWMutex]lockInfo)
}

func track(m *DebugRWMutex, op mutexOp) {
	if !mutexDebuggingFlag {
		return
	}

	switch op {
	case lock:
		locks.Lock()
		locks.m[m] = lockInfo{time.Now(), callstack(1)}
		locks.Unlock()
	case unlock:
		locks.Lock()
		delete(locks.m, m)
		locks.Unlock()
	case rlock:
		atomic.AddInt64(&m.r, +1)
	case runlock:
		atomic.AddInt64(&m.r, -1)
	}
}

func callstack(skip int) []uintptr {
	r := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, r)
	return r[:n]
}

func traceback(l []uintptr) string {
	var (
		b    = new(bytes.Buffer)
		n    runtime.Frame
		more = len(l) != 0
	)

	for f := runtime.CallersFrames(l); more; {
		n, more = f.Next()
		fmt.Fprintf(b, "%s:%d\n\t%s\n", n.File, n.Line, n.Function)
	}

	return b.String()
}

// DumpLocks returns a description of every currently write-locked
// DebugRWMutex being tracked.
func DumpLocks() []string {
	var r []string

	locks.Lock()
	for m, l := range locks.m {
		r = append(r, fmt.Sprintf("%p @ %s\n%s", m, time.Since(l.ts), traceback(l.cs)))
	}
	locks.Unlock()

	return r
}
