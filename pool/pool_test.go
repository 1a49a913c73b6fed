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

package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteRunsAllJobs(t *testing.T) {
	defer leaktest.Check(t)()

	p := New(4, Config{})
	defer p.Close()

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	var mu sync.Mutex
	ran := 0
	for i := 0; i < n; i++ {
		require.NoError(t, p.Execute(func() {
			mu.Lock()
			ran++
			mu.Unlock()
			wg.Done()
		}))
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not all jobs completed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, n, ran)
}

func TestPriorityJobsPreferredOverNormal(t *testing.T) {
	defer leaktest.Check(t)()

	// A single worker pool makes ordering deterministic enough to observe
	// the priority bias: flood the normal queue first, then submit a
	// priority job and confirm it is not stuck behind every normal job.
	p := New(1, Config{QueueSize: 64})
	defer p.Close()

	var mu sync.Mutex
	var order []string

	block := make(chan struct{})
	require.NoError(t, p.Execute(func() { <-block }))

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Execute(func() {
			mu.Lock()
			order = append(order, "normal")
			mu.Unlock()
		}))
	}

	done := make(chan struct{})
	require.NoError(t, p.ExecuteWithPriority(func() {
		mu.Lock()
		order = append(order, "priority")
		mu.Unlock()
		close(done)
	}))

	close(block)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("priority job never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, order)
	idx := -1
	for i, v := range order {
		if v == "priority" {
			idx = i
			break
		}
	}
	require.NotEqual(t, -1, idx)
	assert.Less(t, idx, len(order)-1, "priority job should not be the very last job to run")
}

func TestKillWorkerExcludesItFromFutureWork(t *testing.T) {
	defer leaktest.Check(t)()

	p := New(3, Config{})
	defer p.Close()

	id, ok := p.LastWorkerID()
	require.True(t, ok)
	p.KillWorker(id)

	assert.Equal(t, 2, p.Size())

	last, ok := p.LastWorkerID()
	require.True(t, ok)
	assert.NotEqual(t, id, last)
}

func TestResizeGrowsAndShrinks(t *testing.T) {
	defer leaktest.Check(t)()

	p := New(2, Config{})
	defer p.Close()

	p.Resize(5)
	assert.Equal(t, 5, p.Size())

	p.Resize(2)
	require.Eventually(t, func() bool { return p.Size() == 2 }, time.Second, 10*time.Millisecond)
}

func TestCloseDrainsQueuedWork(t *testing.T) {
	defer leaktest.Check(t)()

	p := New(2, Config{})

	const n = 20
	var mu sync.Mutex
	ran := 0
	for i := 0; i < n; i++ {
		require.NoError(t, p.Execute(func() {
			mu.Lock()
			ran++
			mu.Unlock()
		}))
	}

	require.NoError(t, p.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, n, ran)
}

func TestForceCloseAbandonsBlockedWork(t *testing.T) {
	defer leaktest.Check(t)()

	p := New(1, Config{QueueSize: 4})

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, p.Execute(func() {
		close(started)
		<-release
	}))
	<-started

	// Queue more work that would never get a chance to run before a
	// graceful close, since the lone worker is blocked in the job above.
	queuedRan := 0
	for i := 0; i < 3; i++ {
		_ = p.Execute(func() { queuedRan++ })
	}

	done := make(chan struct{})
	go func() {
		p.ForceClose()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("force close returned before its blocked worker could exit")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("force close never returned")
	}

	assert.True(t, p.IsForceClosed())
	assert.Equal(t, 0, queuedRan)

	err := p.Execute(func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestIdleWorkersSelfPurgeWithoutLoad(t *testing.T) {
	defer leaktest.Check(t)()

	p := New(4, Config{MaxIdle: 30 * time.Millisecond})
	defer p.Close()

	require.Eventually(t, func() bool {
		return p.Size() < 4
	}, time.Second, 10*time.Millisecond, "idle workers never self-purged")
}

func TestAutoAdjustGrowsUnderSustainedPressure(t *testing.T) {
	defer leaktest.Check(t)()

	p := New(1, Config{QueueSize: 8})
	defer p.Close()

	block := make(chan struct{})
	require.NoError(t, p.Execute(func() { <-block }))
	for i := 0; i < 4; i++ {
		_ = p.Execute(func() {})
	}

	p.AutoAdjust()
	p.AutoAdjust()

	assert.Greater(t, p.Size(), 1)
	close(block)
}

func TestExecuteAfterCloseReturnsErrPoolClosed(t *testing.T) {
	defer leaktest.Check(t)()

	p := New(1, Config{})
	require.NoError(t, p.Close())

	err := p.Execute(func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)

	err = p.ExecuteWithPriority(func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}
