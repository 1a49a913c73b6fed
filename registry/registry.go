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

// Package registry is the process-wide, named multi-pool collaborator: a
// single keyed collection of pools that callers dispatch into by name
// instead of holding their own *pool.Pool. Init is the only way to create
// it; it may run once, and again only after Close or ForceClose has torn
// the registry down.
package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ChaosStudyGroup/thread-pool/instrument"
	"github.com/ChaosStudyGroup/thread-pool/internal/xdebug"
	"github.com/ChaosStudyGroup/thread-pool/message"
	"github.com/ChaosStudyGroup/thread-pool/pool"
)

// autoscaleFloor is the minimum auto-adjustment period accepted by the
// registry -- 5s, a larger floor than a single pool's 1s, since one
// supervisory goroutine here fans out over every registered pool.
const autoscaleFloor = 5 * time.Second

const defaultAutoAdjustPeriod = 10 * time.Second

var (
	mu    sync.Mutex
	once  sync.Once
	store *registry
)

type registry struct {
	pools   map[string]*pool.Pool
	closing bool

	opts instrument.Options

	autoAdjustPeriod time.Duration
	autoAdjustStop   chan struct{}
	autoAdjustDone   chan struct{}
	autoAdjustSet    map[string]struct{}

	reportVersion bool
	versionRpt    instrument.VersionReporter
	reportBuild   bool
	buildRpt      instrument.Reporter
}

// Option configures Init.
type Option func(*registry)

// WithInstrument supplies the logger/metrics options shared by every pool
// the registry creates.
func WithInstrument(opts instrument.Options) Option {
	return func(r *registry) { r.opts = opts }
}

// WithVersionReporting starts an instrument.VersionReporter for the
// lifetime of the registry -- a process typically only wants one of these,
// making the registry (rather than any individual pool) its natural home.
func WithVersionReporting() Option {
	return func(r *registry) { r.reportVersion = true }
}

// WithBuildReporting starts an instrument.Reporter emitting this process's
// build metadata (revision, branch, build date) for the registry's
// lifetime.
func WithBuildReporting() Option {
	return func(r *registry) { r.reportBuild = true }
}

// Init creates the process-wide registry with one pool per entry in sizes
// (name -> worker count). Calling Init a second time panics, the direct
// analogue of the original's `assert!(!Pool::is_some(), ...)` -- a second
// caller silently losing its configuration is worse than a loud failure.
func Init(sizes map[string]int, opts ...Option) {
	if len(sizes) == 0 {
		return
	}

	mu.Lock()
	if store != nil {
		mu.Unlock()
		panic("registry: Init called more than once")
	}
	mu.Unlock()

	once.Do(func() {
		r := &registry{
			pools:         make(map[string]*pool.Pool, len(sizes)),
			autoAdjustSet: make(map[string]struct{}),
		}
		for _, opt := range opts {
			opt(r)
		}
		if r.opts == nil {
			r.opts = instrument.NewOptions()
		}

		for name, size := range sizes {
			if name == "" || size <= 0 {
				continue
			}
			r.pools[name] = pool.New(size, pool.Config{Instrument: r.opts})
		}

		if r.reportVersion {
			r.versionRpt = instrument.NewVersionReporter(r.opts)
			_ = r.versionRpt.Start()
		}
		if r.reportBuild {
			r.buildRpt = instrument.NewBuildReporter(r.opts)
			_ = r.buildRpt.Start()
		}

		mu.Lock()
		store = r
		mu.Unlock()
	})
}

func current() *registry {
	mu.Lock()
	defer mu.Unlock()
	return store
}

func logger() *zap.SugaredLogger {
	r := current()
	if r == nil || r.opts == nil {
		return zap.NewNop().Sugar()
	}
	return r.opts.Logger()
}

// RunWith dispatches job to the named pool's normal queue. If the registry
// has never been initialized, or has already been closed, the job instead
// runs on a detached goroutine (the original's "pool has been poisoned"
// fallback) so a caller's work is never silently dropped. Dispatching to an
// unknown name is a documented no-op.
func RunWith(name string, job message.Job) {
	r := current()
	if r == nil {
		go job()
		if xdebug.Enabled() {
			logger().Warnw("registry not initialized, running job detached", "name", name)
		}
		return
	}

	mu.Lock()
	closing := r.closing
	p, ok := r.pools[name]
	mu.Unlock()

	if closing {
		if xdebug.Enabled() {
			logger().Warnw("registry is closing, dropping job", "name", name)
		}
		return
	}
	if !ok {
		return
	}

	if err := p.Execute(job); err != nil && xdebug.Enabled() {
		logger().Warnw("job submission failed", "name", name, "error", err)
	}
}

// RunWithPriority is the priority-queue analogue of RunWith.
func RunWithPriority(name string, job message.Job) {
	r := current()
	if r == nil {
		go job()
		if xdebug.Enabled() {
			logger().Warnw("registry not initialized, running priority job detached", "name", name)
		}
		return
	}

	mu.Lock()
	closing := r.closing
	p, ok := r.pools[name]
	mu.Unlock()

	if closing || !ok {
		return
	}

	if err := p.ExecuteWithPriority(job); err != nil && xdebug.Enabled() {
		logger().Warnw("priority job submission failed", "name", name, "error", err)
	}
}

// AddPool inserts a new named pool, or resizes an existing one to size if
// the name is already registered. Runs detached, matching the original's
// thread::spawn wrapping so callers never block on worker spawn.
func AddPool(name string, size int) {
	if name == "" || size <= 0 {
		return
	}
	go func() {
		mu.Lock()
		r := store
		mu.Unlock()
		if r == nil {
			return
		}

		mu.Lock()
		existing, ok := r.pools[name]
		mu.Unlock()
		if ok {
			existing.Resize(size)
			return
		}

		p := pool.New(size, pool.Config{Instrument: r.opts})
		mu.Lock()
		r.pools[name] = p
		mu.Unlock()
	}()
}

// RemovePool closes and removes a named pool. Runs detached.
func RemovePool(name string) {
	if name == "" {
		return
	}
	go func() {
		mu.Lock()
		r := store
		if r == nil {
			mu.Unlock()
			return
		}
		p, ok := r.pools[name]
		if ok {
			delete(r.pools, name)
		}
		mu.Unlock()

		if ok {
			p.Close()
		}
	}()
}

// ResizePool resizes a named pool in place. Runs detached.
func ResizePool(name string, size int) {
	if name == "" {
		return
	}
	go func() {
		mu.Lock()
		r := store
		if r == nil {
			mu.Unlock()
			return
		}
		p, ok := r.pools[name]
		mu.Unlock()
		if ok {
			p.Resize(size)
		}
	}()
}

// Close gracefully closes every registered pool and tears down the
// registry, allowing a subsequent Init.
func Close() error {
	return shutdown(false)
}

// ForceClose force-closes every registered pool and tears down the
// registry, allowing a subsequent Init.
func ForceClose() error {
	return shutdown(true)
}

func shutdown(forced bool) error {
	mu.Lock()
	r := store
	if r == nil {
		mu.Unlock()
		return nil
	}
	r.closing = true
	stop := r.autoAdjustStop
	done := r.autoAdjustDone
	store = nil
	once = sync.Once{}
	mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if r.versionRpt != nil {
		_ = r.versionRpt.Close()
	}
	if r.buildRpt != nil {
		_ = r.buildRpt.Stop()
	}

	for _, p := range r.pools {
		if forced {
			p.ForceClose()
		} else {
			p.Close()
		}
	}
	return nil
}

// TogglePoolAutoMode enables or disables the auto-scaler for a single named
// pool, lazily starting (or stopping) the registry's shared supervisory
// goroutine as the first pool opts in or the last opts out.
func TogglePoolAutoMode(name string, enabled bool) {
	mu.Lock()
	r := store
	if r == nil {
		mu.Unlock()
		return
	}
	p, ok := r.pools[name]
	if !ok {
		mu.Unlock()
		return
	}
	if len(r.autoAdjustSet) == 0 && !enabled {
		mu.Unlock()
		return
	}

	p.ToggleAutoScale(false) // per-pool scaler stays off; the registry drives it instead.

	var launch bool
	var period time.Duration
	if enabled {
		r.autoAdjustSet[name] = struct{}{}
		launch = len(r.autoAdjustSet) == 1
		period = r.autoAdjustPeriod
	} else {
		delete(r.autoAdjustSet, name)
	}
	stopIfEmpty := !enabled && len(r.autoAdjustSet) == 0
	mu.Unlock()

	if enabled && launch {
		if period <= 0 {
			period = defaultAutoAdjustPeriod
		}
		StartAutoAdjustment(period)
	}
	if stopIfEmpty {
		StopAutoAdjustment()
	}
}

// IsPoolInAutoMode reports whether name is currently registered for
// registry-driven auto-adjustment.
func IsPoolInAutoMode(name string) bool {
	mu.Lock()
	defer mu.Unlock()
	if store == nil {
		return false
	}
	_, ok := store.autoAdjustSet[name]
	return ok
}

// StartAutoAdjustment launches the registry's single supervisory goroutine,
// which calls AutoAdjust on every pool registered via TogglePoolAutoMode
// once per period (floor-clamped to 5s). Starting while already running
// restarts with the new period.
func StartAutoAdjustment(period time.Duration) {
	mu.Lock()
	r := store
	if r == nil {
		mu.Unlock()
		return
	}
	if len(r.autoAdjustSet) == 0 {
		mu.Unlock()
		return
	}
	if r.autoAdjustStop != nil {
		set := r.autoAdjustSet
		mu.Unlock()
		StopAutoAdjustment()
		mu.Lock()
		r = store
		if r == nil {
			mu.Unlock()
			return
		}
		r.autoAdjustSet = set
	}

	if period < autoscaleFloor {
		period = autoscaleFloor
	}
	r.autoAdjustPeriod = period

	stop := make(chan struct{})
	done := make(chan struct{})
	r.autoAdjustStop = stop
	r.autoAdjustDone = done
	mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
}

func tick() {
	mu.Lock()
	r := store
	if r == nil {
		mu.Unlock()
		return
	}
	targets := make([]*pool.Pool, 0, len(r.autoAdjustSet))
	for name := range r.autoAdjustSet {
		if p, ok := r.pools[name]; ok {
			targets = append(targets, p)
		}
	}
	scope := r.opts.MetricsScope()
	mu.Unlock()

	for _, p := range targets {
		p.AutoAdjust()
	}
	if scope != nil {
		scope.SubScope("registry").Counter("autoadjust_ticks").Inc(1)
	}
}

// StopAutoAdjustment halts the registry's supervisory goroutine, if
// running, and clears the auto-adjust registration set.
func StopAutoAdjustment() {
	mu.Lock()
	r := store
	if r == nil {
		mu.Unlock()
		return
	}
	stop := r.autoAdjustStop
	done := r.autoAdjustDone
	r.autoAdjustStop = nil
	r.autoAdjustDone = nil
	r.autoAdjustPeriod = 0
	if len(r.autoAdjustSet) > 0 {
		r.autoAdjustSet = make(map[string]struct{})
	}
	mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// ResetAutoAdjustmentPeriod stops any running supervisory goroutine and, if
// period is non-nil, starts a new one at that period.
func ResetAutoAdjustmentPeriod(period *time.Duration) {
	if period != nil {
		StartAutoAdjustment(*period)
		return
	}
	StopAutoAdjustment()
}

// Registry is the interface a hosting service should depend on instead of
// calling this package's functions directly, so tests can inject
// registry_mock.go's MockRegistry instead of touching real process-wide
// state.
type Registry interface {
	RunWith(name string, job message.Job)
	RunWithPriority(name string, job message.Job)
	AddPool(name string, size int)
	RemovePool(name string)
	ResizePool(name string, size int)
	Close() error
	ForceClose() error
	TogglePoolAutoMode(name string, enabled bool)
	IsPoolInAutoMode(name string) bool
	StartAutoAdjustment(period time.Duration)
	StopAutoAdjustment()
	ResetAutoAdjustmentPeriod(period *time.Duration)
}

// Default is the Registry implementation that delegates to this package's
// process-wide singleton functions.
type Default struct{}

// RunWith delegates to the package-level RunWith.
func (Default) RunWith(name string, job message.Job) { RunWith(name, job) }

// RunWithPriority delegates to the package-level RunWithPriority.
func (Default) RunWithPriority(name string, job message.Job) { RunWithPriority(name, job) }

// AddPool delegates to the package-level AddPool.
func (Default) AddPool(name string, size int) { AddPool(name, size) }

// RemovePool delegates to the package-level RemovePool.
func (Default) RemovePool(name string) { RemovePool(name) }

// ResizePool delegates to the package-level ResizePool.
func (Default) ResizePool(name string, size int) { ResizePool(name, size) }

// Close delegates to the package-level Close.
func (Default) Close() error { return Close() }

// ForceClose delegates to the package-level ForceClose.
func (Default) ForceClose() error { return ForceClose() }

// TogglePoolAutoMode delegates to the package-level TogglePoolAutoMode.
func (Default) TogglePoolAutoMode(name string, enabled bool) { TogglePoolAutoMode(name, enabled) }

// IsPoolInAutoMode delegates to the package-level IsPoolInAutoMode.
func (Default) IsPoolInAutoMode(name string) bool { return IsPoolInAutoMode(name) }

// StartAutoAdjustment delegates to the package-level StartAutoAdjustment.
func (Default) StartAutoAdjustment(period time.Duration) { StartAutoAdjustment(period) }

// StopAutoAdjustment delegates to the package-level StopAutoAdjustment.
func (Default) StopAutoAdjustment() { StopAutoAdjustment() }

// ResetAutoAdjustmentPeriod delegates to the package-level
// ResetAutoAdjustmentPeriod.
func (Default) ResetAutoAdjustmentPeriod(period *time.Duration) { ResetAutoAdjustmentPeriod(period) }

var _ Registry = Default{}

// reset is a test-only escape hatch clearing process-wide state between
// test cases.
func reset() {
	mu.Lock()
	store = nil
	once = sync.Once{}
	mu.Unlock()
}
