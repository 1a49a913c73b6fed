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

// Package pool implements ThreadPool: the component that owns the workers,
// the two message channels, the graveyard, and the shared max-idle budget,
// and exposes submission, resizing, and shutdown.
package pool

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"

	xerrors "github.com/ChaosStudyGroup/thread-pool/errors"
	"github.com/ChaosStudyGroup/thread-pool/graveyard"
	"github.com/ChaosStudyGroup/thread-pool/instrument"
	"github.com/ChaosStudyGroup/thread-pool/internal/xdebug"
	"github.com/ChaosStudyGroup/thread-pool/message"
	"github.com/ChaosStudyGroup/thread-pool/worker"
)

const (
	defaultQueueSize = 256

	// autoscaleFloor is the minimum period a single pool's auto-scaler will
	// accept, per spec section 4.4.
	autoscaleFloor = 1 * time.Second
)

// ErrPoolClosed is returned by Execute/ExecuteWithPriority once the pool's
// channels have been closed by Close or ForceClose.
var ErrPoolClosed = xerrors.NewRetryableError(errClosed{})

type errClosed struct{}

func (errClosed) Error() string { return "thread pool: channel closed, pool is shutting down" }

// Config configures a Pool at construction time.
type Config struct {
	// QueueSize sizes each of the priority and normal channels. Defaults to
	// 256 if <= 0.
	QueueSize int

	// MaxIdle is the shared self-purge budget handed to every unprivileged
	// worker. Zero disables idle self-purging pool-wide.
	MaxIdle time.Duration

	// WorkerName, if set, is recorded on every worker's Config.Name.
	WorkerName string

	// Privileged marks every worker spawned by this pool as privileged
	// (never self-purges). Individual worker privilege cannot currently be
	// varied within one pool, matching the original's one-config-per-pool
	// model.
	Privileged bool

	// Hooks are the lifecycle callbacks fired around each worker's spawn
	// and drop.
	Hooks worker.Hooks

	// AutoAdjustFunc overrides the default auto-scale policy. See
	// DefaultAutoAdjustPolicy.
	AutoAdjustFunc AutoAdjustFunc

	// Instrument supplies the logger/metrics/report-interval ambient
	// options. Defaults to instrument.NewOptions() if nil.
	Instrument instrument.Options

	// ReportRuntimeMetrics starts a goroutine-count/heap/GC metrics reporter
	// alongside the pool, ticking at Instrument.ReportInterval().
	ReportRuntimeMetrics bool
}

func (c Config) withDefaults() Config {
	out := c
	if out.QueueSize <= 0 {
		out.QueueSize = defaultQueueSize
	}
	if out.Instrument == nil {
		out.Instrument = instrument.NewOptions()
	}
	if out.AutoAdjustFunc == nil {
		out.AutoAdjustFunc = DefaultAutoAdjustPolicy()
	}
	return out
}

// Pool is a fixed-or-elastic worker thread pool. Zero value is not usable;
// construct with New.
type Pool struct {
	mu      sync.Mutex
	workers []*worker.Worker
	lastID  atomic.Int64

	priority chan message.Message
	normal   chan message.Message

	graveyard   *graveyard.Graveyard
	maxIdle     *atomic.Duration
	forcedClose *atomic.Bool
	closing     atomic.Bool

	cfg Config

	autoScale atomic.Bool
	scaler    *autoScaler

	runtimeMetrics *instrument.RuntimeMetricsReporter
}

// New creates a Pool with `size` workers (clamped to at least 1).
func New(size int, cfg Config) *Pool {
	if size < 1 {
		size = 1
	}
	cfg = cfg.withDefaults()

	p := &Pool{
		priority:    make(chan message.Message, cfg.QueueSize),
		normal:      make(chan message.Message, cfg.QueueSize),
		graveyard:   graveyard.New(0),
		maxIdle:     atomic.NewDuration(cfg.MaxIdle),
		forcedClose: atomic.NewBool(false),
		cfg:         cfg,
	}
	p.scaler = newAutoScaler(p)

	if cfg.ReportRuntimeMetrics {
		p.runtimeMetrics = instrument.StartReportingRuntimeMetrics(
			cfg.Instrument.MetricsScope(), cfg.Instrument.ReportInterval())
	}

	p.Extend(size)

	return p
}

func (p *Pool) workerConfig() worker.Config {
	return worker.Config{
		Name:       p.cfg.WorkerName,
		Privileged: p.cfg.Privileged,
		MaxIdle:    p.maxIdle,
	}
}

func (p *Pool) deps() worker.Deps {
	return worker.Deps{
		Priority:    p.priority,
		Normal:      p.normal,
		Graveyard:   p.graveyard,
		ForcedClose: p.forcedClose,
		Logger:      p.cfg.Instrument.Logger(),
		Instrument:  p.cfg.Instrument,
	}
}

// Execute submits a job onto the normal queue.
func (p *Pool) Execute(job message.Job) error {
	return p.submit(job, false)
}

// ExecuteWithPriority submits a job onto the priority queue.
func (p *Pool) ExecuteWithPriority(job message.Job) error {
	return p.submit(job, true)
}

func (p *Pool) submit(job message.Job, prioritized bool) (err error) {
	ch := p.normal
	if prioritized {
		ch = p.priority
	}

	defer func() {
		if r := recover(); r != nil {
			err = ErrPoolClosed
			if xdebug.Enabled() {
				p.cfg.Instrument.Logger().Debugw("submit to closed channel", "prioritized", prioritized, "recover", r)
			}
		}
	}()

	ch <- message.NewJob(job)
	return nil
}

// Extend grows the pool by `n` workers, assigning ids last+1..last+n.
func (p *Pool) Extend(n int) {
	if n <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	start := int(p.lastID.Load()) + 1
	p.graveyard.Grow(n)

	cfg := p.workerConfig()
	deps := p.deps()
	for i := 0; i < n; i++ {
		id := start + i
		w := worker.New(id, cfg, p.cfg.Hooks, deps)
		p.workers = append(p.workers, w)
		go p.watchRetire(w)
	}
	p.lastID.Store(int64(start + n - 1))
}

// watchRetire waits for a worker to exit on its own -- an idle self-purge,
// not a targeted KillWorker/Resize/Close, which already remove their
// targets via reap -- and prunes it from p.workers so Size() (and the Stats
// AutoAdjust sees) reflects workers that voluntarily retired. Safe to race
// with reap: removeWorker is a no-op once a worker is no longer present.
func (p *Pool) watchRetire(w *worker.Worker) {
	<-w.Done()
	p.removeWorker(w.ID())
}

func (p *Pool) removeWorker(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, w := range p.workers {
		if w.ID() == id {
			p.workers = append(p.workers[:i], p.workers[i+1:]...)
			return
		}
	}
}

// Resize sets the worker count to exactly `n` (clamped to at least 1),
// extending or targeting the highest-id workers for termination as needed.
func (p *Pool) Resize(n int) {
	if n < 1 {
		n = 1
	}

	current := p.Size()
	switch {
	case n > current:
		p.Extend(n - current)
	case n < current:
		ids := p.highestIDs(current - n)
		for _, id := range ids {
			p.sendTerminate(id)
		}
		go p.reap(ids)
	}
}

// KillWorker targets a specific worker for termination and blocks until it
// has retired.
func (p *Pool) KillWorker(id int) {
	p.sendTerminate(id)
	p.reap([]int{id})
}

func (p *Pool) sendTerminate(id int) {
	defer func() { recover() }() //nolint:errcheck
	p.priority <- message.Terminate(id)
}

// reap joins and removes the given worker ids once they have retired.
func (p *Pool) reap(ids []int) {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	p.mu.Lock()
	var toJoin []*worker.Worker
	var keep []*worker.Worker
	for _, w := range p.workers {
		if want[w.ID()] {
			toJoin = append(toJoin, w)
		} else {
			keep = append(keep, w)
		}
	}
	p.workers = keep
	p.mu.Unlock()

	for _, w := range toJoin {
		w.Retire()
	}
}

func (p *Pool) highestIDs(n int) []int {
	p.mu.Lock()
	ids := make([]int, len(p.workers))
	for i, w := range p.workers {
		ids[i] = w.ID()
	}
	p.mu.Unlock()

	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	if n > len(ids) {
		n = len(ids)
	}
	return ids[:n]
}

// Close sends Terminate(0) once per live worker and waits for every worker
// to drain its queues and exit.
func (p *Pool) Close() error {
	return p.close(false)
}

// ForceClose marks the pool as forced, then behaves as Close: workers
// observe the flag and exit at their next Checking transition regardless of
// queue state, abandoning anything still queued.
func (p *Pool) ForceClose() error {
	return p.close(true)
}

func (p *Pool) close(forced bool) error {
	if !p.closing.CAS(false, true) {
		return nil
	}
	if forced {
		p.forcedClose.Store(true)
	}

	p.scaler.stop()
	if p.runtimeMetrics != nil {
		p.runtimeMetrics.Stop()
	}

	p.mu.Lock()
	n := len(p.workers)
	p.mu.Unlock()

	for i := 0; i < n; i++ {
		p.sendTerminate(graveyard.Global)
	}

	p.mu.Lock()
	toJoin := p.workers
	p.workers = nil
	p.mu.Unlock()

	var errs xerrors.MultiError
	for _, w := range toJoin {
		w.Retire()
	}

	close(p.priority)
	close(p.normal)

	return errs.FinalError()
}

// IsForceClosed reports whether ForceClose has been called on this pool.
func (p *Pool) IsForceClosed() bool {
	return p.forcedClose.Load()
}

// Size returns the current number of live workers.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// FirstWorkerID returns the lowest live worker id, if any.
func (p *Pool) FirstWorkerID() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.workers) == 0 {
		return 0, false
	}
	return p.workers[0].ID(), true
}

// LastWorkerID returns the highest live worker id, if any.
func (p *Pool) LastWorkerID() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.workers) == 0 {
		return 0, false
	}
	return p.workers[len(p.workers)-1].ID(), true
}

// NextWorkerID returns the id of the worker immediately after `current` in
// insertion order, if any.
func (p *Pool) NextWorkerID(current int) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	found := false
	for _, w := range p.workers {
		if found {
			return w.ID(), true
		}
		if w.ID() == current {
			found = true
		}
	}
	return 0, false
}

// ToggleAutoScale enables or disables the periodic auto-scaler goroutine.
func (p *Pool) ToggleAutoScale(enabled bool) {
	p.ToggleAutoScaleWithPeriod(enabled, 0)
}

// ToggleAutoScaleWithPeriod enables or disables the auto-scaler, using
// `period` (floor-clamped to 1s) when enabling with period > 0. A period
// <= 0 when enabling always means 10s; a previously configured period is
// not reused.
func (p *Pool) ToggleAutoScaleWithPeriod(enabled bool, period time.Duration) {
	if !enabled {
		p.autoScale.Store(false)
		p.scaler.stop()
		return
	}

	if period <= 0 {
		period = 10 * time.Second
	}
	if period < autoscaleFloor {
		period = autoscaleFloor
	}

	p.autoScale.Store(true)
	p.scaler.start(period)
}

// AutoAdjust runs one auto-scale policy evaluation immediately, regardless
// of whether the periodic supervisory goroutine is running.
func (p *Pool) AutoAdjust() {
	p.cfg.AutoAdjustFunc(Stats{
		Size:          p.Size(),
		PriorityDepth: len(p.priority),
		NormalDepth:   len(p.normal),
		MaxIdle:       p.maxIdle.Load(),
	}, p)
}

// Observer is the target surface AutoAdjustFunc mutates.
type Observer interface {
	Size() int
	Extend(n int)
}

var _ Observer = (*Pool)(nil)
