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
	"time"
)

// Stats is the snapshot of pool pressure signals AutoAdjustFunc consults.
type Stats struct {
	Size          int
	PriorityDepth int
	NormalDepth   int
	MaxIdle       time.Duration
}

// AutoAdjustFunc is the pluggable auto-scale policy. The concrete policy is
// deliberately left to the implementer (spec section 4.4's Open Question);
// this type is how a caller supplies one. Shrinkage is left to workers'
// idle self-purge (see the worker package) -- a policy only needs to decide
// whether and how much to grow.
type AutoAdjustFunc func(stats Stats, target Observer)

// DefaultAutoAdjustPolicy grows the pool by one worker if either queue's
// depth exceeds the current worker count for two consecutive observations.
// It relies entirely on idle self-purging (worker package, section 4.1) for
// shrinkage, per the suggested default in spec section 4.4.
func DefaultAutoAdjustPolicy() AutoAdjustFunc {
	overloadedStreak := 0
	return func(stats Stats, target Observer) {
		overloaded := stats.PriorityDepth > stats.Size || stats.NormalDepth > stats.Size
		if !overloaded {
			overloadedStreak = 0
			return
		}
		overloadedStreak++
		if overloadedStreak >= 2 {
			target.Extend(1)
			overloadedStreak = 0
		}
	}
}

// autoScaler is the supervisory goroutine per spec section 4.4: it sleeps
// for a configured period, floor-clamped to 1s for a single pool, then
// calls AutoAdjust. Reconfiguring the period stops and restarts it.
type autoScaler struct {
	mu      sync.Mutex
	pool    *Pool
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

func newAutoScaler(p *Pool) *autoScaler {
	return &autoScaler{pool: p}
}

func (a *autoScaler) start(period time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		a.stopLocked()
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.running = true

	stopCh := a.stopCh
	doneCh := a.doneCh
	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				a.pool.AutoAdjust()
				if scope := a.pool.cfg.Instrument.MetricsScope(); scope != nil {
					scope.SubScope("autoscale").Counter("ticks").Inc(1)
				}
			}
		}
	}()
}

func (a *autoScaler) stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *autoScaler) stopLocked() {
	if !a.running {
		return
	}
	close(a.stopCh)
	<-a.doneCh
	a.running = false
}
