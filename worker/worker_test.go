package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"

	"github.com/ChaosStudyGroup/thread-pool/graveyard"
	"github.com/ChaosStudyGroup/thread-pool/instrument"
	"github.com/ChaosStudyGroup/thread-pool/message"
)

func newDeps(gy *graveyard.Graveyard, priBuf, normBuf int) Deps {
	return Deps{
		Priority:    make(chan message.Message, priBuf),
		Normal:      make(chan message.Message, normBuf),
		Graveyard:   gy,
		ForcedClose: atomic.NewBool(false),
	}
}

func newCfg(maxIdle time.Duration, privileged bool) Config {
	return Config{MaxIdle: atomic.NewDuration(maxIdle), Privileged: privileged}
}

func TestWorkerRunsJobsFromBothQueues(t *testing.T) {
	defer leaktest.Check(t)()

	gy := graveyard.New(1)
	deps := newDeps(gy, 4, 4)
	w := New(1, newCfg(0, true), Hooks{}, deps)

	var mu sync.Mutex
	var ran []string

	deps.Normal <- message.NewJob(func() {
		mu.Lock()
		ran = append(ran, "normal")
		mu.Unlock()
	})
	deps.Priority <- message.NewJob(func() {
		mu.Lock()
		ran = append(ran, "priority")
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ran) == 2
	}, time.Second, time.Millisecond)

	gy.Kill(graveyard.Global)
	<-w.Done()
}

func TestWorkerSelfRetiresOnOwnKill(t *testing.T) {
	defer leaktest.Check(t)()

	gy := graveyard.New(1)
	deps := newDeps(gy, 1, 1)
	w := New(1, newCfg(0, true), Hooks{}, deps)

	deps.Priority <- message.Terminate(1)

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not retire after targeted termination")
	}
	assert.False(t, gy.IsAlive(1))
}

func TestWorkerDrainsBeforeGracefulClose(t *testing.T) {
	defer leaktest.Check(t)()

	gy := graveyard.New(1)
	deps := newDeps(gy, 1, 4)
	w := New(1, newCfg(0, true), Hooks{}, deps)

	var ran int
	for i := 0; i < 3; i++ {
		deps.Normal <- message.NewJob(func() { ran++ })
	}
	deps.Priority <- message.Terminate(graveyard.Global)

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not drain and retire")
	}
	assert.Equal(t, 3, ran)
}

func TestWorkerForceCloseAbandonsQueuedWork(t *testing.T) {
	defer leaktest.Check(t)()

	gy := graveyard.New(1)
	deps := newDeps(gy, 1, 4)
	deps.ForcedClose.Store(true)

	// Queue work and the forced terminate before the worker starts: its
	// first poll takes the terminate from the priority queue and exits.
	ran := 0
	for i := 0; i < 3; i++ {
		deps.Normal <- message.NewJob(func() { ran++ })
	}
	deps.Priority <- message.Terminate(graveyard.Global)

	w := New(1, newCfg(0, true), Hooks{}, deps)

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not force-exit")
	}
	assert.Equal(t, 0, ran)
}

func TestWorkerSelfPurgesOnIdle(t *testing.T) {
	defer leaktest.Check(t)()

	gy := graveyard.New(1)
	deps := newDeps(gy, 1, 1)
	w := New(1, newCfg(20*time.Millisecond, false), Hooks{}, deps)

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("unprivileged idle worker never self-purged")
	}
	assert.False(t, gy.IsAlive(1))
}

func TestPrivilegedWorkerNeverSelfPurges(t *testing.T) {
	defer leaktest.Check(t)()

	gy := graveyard.New(1)
	deps := newDeps(gy, 1, 1)
	w := New(1, newCfg(10*time.Millisecond, true), Hooks{}, deps)

	select {
	case <-w.Done():
		t.Fatal("privileged worker self-purged but must not")
	case <-time.After(100 * time.Millisecond):
	}

	gy.Kill(graveyard.Global)
	<-w.Done()
}

func TestWorkerRetiresOnPanickingJobAndReportsInvariantViolation(t *testing.T) {
	defer leaktest.Check(t)()

	gy := graveyard.New(1)
	deps := newDeps(gy, 1, 1)
	scope := tally.NewTestScope("", nil)
	deps.Instrument = instrument.NewOptions().SetMetricsScope(scope)

	w := New(1, newCfg(0, true), Hooks{}, deps)

	deps.Normal <- message.NewJob(func() { panic("boom") })

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not retire after its job panicked")
	}
	assert.False(t, gy.IsAlive(1))

	require.Eventually(t, func() bool {
		counters := scope.Snapshot().Counters()
		c, ok := counters["system-invariant-violated+"]
		return ok && c.Value() == 1
	}, time.Second, time.Millisecond)
}

func TestHooksFireAroundSpawnAndRetire(t *testing.T) {
	defer leaktest.Check(t)()

	var mu sync.Mutex
	var events []string
	record := func(name string) func(int) {
		return func(id int) {
			mu.Lock()
			events = append(events, name)
			mu.Unlock()
		}
	}

	gy := graveyard.New(1)
	deps := newDeps(gy, 1, 1)
	hooks := Hooks{
		BeforeStart: record("before-start"),
		AfterStart:  record("after-start"),
		BeforeDrop:  record("before-drop"),
		AfterDrop:   record("after-drop"),
	}
	w := New(1, newCfg(0, true), hooks, deps)

	gy.Kill(graveyard.Global)
	w.Retire()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"before-start", "after-start", "before-drop", "after-drop"}, events)
}
