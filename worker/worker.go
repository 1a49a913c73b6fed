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

package worker

import (
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/ChaosStudyGroup/thread-pool/graveyard"
	"github.com/ChaosStudyGroup/thread-pool/instrument"
	"github.com/ChaosStudyGroup/thread-pool/message"
)

// parkQuantum is how long a single polling round waits on a channel before
// re-checking whether it should yield to the other queue. Sixteen rounds of
// this is the long-park budget, the direct analogue of the original
// implementation's 16ms recv_timeout.
const parkQuantum = 1 * time.Millisecond

const (
	// ShortParkingRounds bounds a skippable poll: a worker that can move on
	// to the other queue gives up quickly.
	ShortParkingRounds = 4
	// LongParkingRounds bounds a poll the worker is biased towards: it waits
	// much longer before coming up empty.
	LongParkingRounds = 16
)

// maxConsecutivePriorityJobs is how many priority jobs a worker, whatever
// its role, may run back-to-back before it is forced to yield to the
// normal queue, if the normal queue has work waiting.
const maxConsecutivePriorityJobs = 4

// mustYield is the pri_run_count sentinel meaning "skip the priority probe
// entirely this iteration."
const mustYield = 255

// role is a worker's polling bias, determined by id mod 3.
type role uint8

const (
	rolePriorityBiased role = iota
	roleNormalBiased
	roleFluid
)

func roleOf(id int) role {
	switch id % 3 {
	case 0:
		return rolePriorityBiased
	case 1:
		return roleNormalBiased
	default:
		return roleFluid
	}
}

// Worker is a single goroutine running the polling state machine described
// by the pool's concurrency protocol. Construct with New; wait for exit with
// Done.
type Worker struct {
	id    int
	hooks Hooks
	done  chan struct{}
}

// Deps are the shared collaborators every worker needs: the two queues, the
// graveyard, and the pool-wide forced-close flag.
type Deps struct {
	Priority    chan message.Message
	Normal      chan message.Message
	Graveyard   *graveyard.Graveyard
	ForcedClose *atomic.Bool
	Logger      *zap.SugaredLogger

	// Instrument, if set, receives an invariant-violation metric whenever a
	// job panics -- submitted jobs are never supposed to do that, so it is
	// treated as a signal worth alerting on rather than routine failure.
	Instrument instrument.Options
}

// New spawns a worker goroutine with the given id, configuration, and
// shared dependencies. BeforeStart/AfterStart hooks run synchronously on the
// calling goroutine around the spawn, per spec.
func New(id int, cfg Config, hooks Hooks, deps Deps) *Worker {
	hooks.callBeforeStart(id)

	w := &Worker{
		id:    id,
		hooks: hooks,
		done:  make(chan struct{}),
	}

	go w.run(cfg, deps)

	hooks.callAfterStart(id)

	return w
}

// ID returns the worker's id.
func (w *Worker) ID() int {
	return w.id
}

// Done returns a channel closed once the worker's goroutine has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Retire blocks until the worker's goroutine has exited, running
// BeforeDrop/AfterDrop hooks around the wait -- the Go analogue of joining
// the original's thread handle.
func (w *Worker) Retire() {
	w.hooks.callBeforeDrop(w.id)
	<-w.done
	w.hooks.callAfterDrop(w.id)
}

// courier carries what a single polling round observed across from Polling
// into Settling.
type courier struct {
	job     message.Job
	hasJob  bool
	target  int
	hasKill bool
	disconn bool
}

func (w *Worker) run(cfg Config, deps Deps) {
	defer close(w.done)

	my := roleOf(w.id)
	priRunCount := 0

	var since time.Time
	unprivileged := !cfg.Privileged
	if unprivileged {
		since = time.Now()
	}

	log := deps.Logger
	if log != nil {
		log.Debugw("worker starting", "id", w.id, "privileged", cfg.Privileged)
	}

	for {
		// ── Checking ─────────────────────────────────────────────────────
		if !deps.Graveyard.IsAlive(w.id) {
			return
		}
		if deps.Graveyard.ShuttingDown() {
			forced := deps.ForcedClose != nil && deps.ForcedClose.Load()
			if forced || (queueEmpty(deps.Priority) && queueEmpty(deps.Normal)) {
				return
			}
			// Otherwise fall through and keep draining.
		}

		// ── Polling ──────────────────────────────────────────────────────
		c := w.poll(deps, my, &priRunCount)
		if c.disconn {
			return
		}

		// ── Executing ────────────────────────────────────────────────────
		// A panicking job is not isolated back to the submitter: it
		// terminates this worker, the same as a panicking thread in the
		// original implementation. The process itself must survive, so the
		// panic is recovered and logged here rather than left to crash it.
		var idle time.Duration
		var idleKnown bool
		if c.hasJob {
			if !runJob(c.job, log, w.id, deps.Instrument) {
				deps.Graveyard.Kill(w.id)
				return
			}
			if unprivileged {
				idle = 0
				idleKnown = true
				since = time.Now()
			}
		} else if unprivileged {
			idle = time.Since(since)
			idleKnown = true
		}

		// ── Settling ─────────────────────────────────────────────────────
		if c.hasKill {
			target := c.target
			if target < deps.Graveyard.Len() {
				deps.Graveyard.Kill(target)
			}
			forced := deps.ForcedClose != nil && deps.ForcedClose.Load()
			if target == graveyard.Global && forced {
				return
			}
			if target == w.id {
				return
			}
		}

		if idleKnown && unprivileged {
			maxIdle := cfg.MaxIdle.Load()
			if maxIdle > 0 && idle >= maxIdle {
				deps.Graveyard.Kill(w.id)
				return
			}
		}
	}
}

// poll implements the two-queue polling discipline (spec section 4.2): one
// third of workers long-park on the priority queue, one third long-park on
// the normal queue, and the remaining third short-park on both and
// alternate quickly. pri_run_count forces any priority-leaning worker to
// yield after four consecutive priority jobs once the normal queue has work
// waiting, preventing indefinite starvation without global coordination.
func (w *Worker) poll(deps Deps, my role, priRunCount *int) courier {
	if *priRunCount < mustYield {
		canSkip := my != rolePriorityBiased
		msg, ok, disconn := fetch(deps.Priority, func() bool { return queueEmpty(deps.Normal) }, canSkip)
		if disconn {
			return courier{disconn: true}
		}
		if ok {
			c := unpack(msg)
			if c.hasJob {
				*priRunCount++
				if *priRunCount >= maxConsecutivePriorityJobs && !queueEmpty(deps.Normal) {
					*priRunCount = mustYield
				}
			}
			return c
		}
		// timed out; fall through to normal queue this round.
	} else {
		*priRunCount = 0
	}

	// Inverted relative to the priority-queue poll: normal-biased workers
	// long-park here (canSkip=false) while fluid and priority-biased
	// workers short-park and bounce back to re-check priority.
	canSkip := my != roleNormalBiased
	msg, ok, disconn := fetch(deps.Normal, func() bool { return queueEmpty(deps.Priority) }, canSkip)
	if disconn {
		return courier{disconn: true}
	}
	if ok {
		*priRunCount = 0
		return unpack(msg)
	}

	return courier{}
}

// runJob executes a job, recovering a panic so it terminates only this
// worker rather than the process. Returns false if the job panicked.
func runJob(job message.Job, log *zap.SugaredLogger, id int, opts instrument.Options) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if log != nil {
				log.Errorw("job panicked, worker retiring", "id", id, "panic", r)
			}
			if opts != nil {
				instrument.EmitInvariantViolation(opts)
			}
		}
	}()
	job()
	return true
}

func unpack(msg message.Message) courier {
	switch msg.Kind() {
	case message.KindNewJob:
		return courier{job: msg.Job(), hasJob: true}
	case message.KindTerminate:
		return courier{target: msg.Target(), hasKill: true}
	default:
		return courier{}
	}
}

// fetch polls `main` for up to ROUNDS rounds (four if canSkip, sixteen
// otherwise), yielding early to let the caller probe the other queue if
// canSkip and the other queue is observed non-empty. Returns the received
// message, whether one was received, and whether the channel is known
// closed (disconnected).
func fetch(main chan message.Message, sideEmpty func() bool, canSkip bool) (message.Message, bool, bool) {
	rounds := LongParkingRounds
	if canSkip {
		rounds = ShortParkingRounds
	}

	for round := 0; round < rounds; round++ {
		select {
		case msg, ok := <-main:
			if !ok {
				return message.Message{}, false, true
			}
			return msg, true, false
		default:
		}

		if canSkip && !sideEmpty() {
			return message.Message{}, false, false
		}

		select {
		case msg, ok := <-main:
			if !ok {
				return message.Message{}, false, true
			}
			return msg, true, false
		case <-time.After(parkQuantum):
		}
	}

	return message.Message{}, false, false
}

func queueEmpty(ch chan message.Message) bool {
	return len(ch) == 0
}
