package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teardown(t *testing.T) {
	t.Cleanup(func() {
		Close()
		reset()
	})
}

func TestInitDispatchesByName(t *testing.T) {
	defer leaktest.Check(t)()
	teardown(t)

	Init(map[string]int{"fast": 2, "slow": 1})

	var mu sync.Mutex
	seen := map[string]int{}

	var wg sync.WaitGroup
	wg.Add(2)
	RunWith("fast", func() {
		mu.Lock()
		seen["fast"]++
		mu.Unlock()
		wg.Done()
	})
	RunWith("slow", func() {
		mu.Lock()
		seen["slow"]++
		mu.Unlock()
		wg.Done()
	})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("jobs never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, seen["fast"])
	assert.Equal(t, 1, seen["slow"])
}

func TestRunWithUnknownNameIsNoOp(t *testing.T) {
	defer leaktest.Check(t)()
	teardown(t)

	Init(map[string]int{"fast": 1})

	ran := false
	RunWith("does-not-exist", func() { ran = true })
	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran)
}

func TestRunWithFallsBackWhenUninitialized(t *testing.T) {
	defer leaktest.Check(t)()
	reset()

	done := make(chan struct{})
	RunWith("anything", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("uninitialized registry did not fall back to a detached goroutine")
	}
}

func TestInitTwiceImmediatelyPanics(t *testing.T) {
	teardown(t)
	Init(map[string]int{"fast": 1})

	assert.Panics(t, func() {
		Init(map[string]int{"other": 1})
	})
}

func TestAddRemoveResizePool(t *testing.T) {
	defer leaktest.Check(t)()
	teardown(t)

	Init(map[string]int{"fast": 1})

	AddPool("extra", 2)
	require.Eventually(t, func() bool {
		done := make(chan struct{})
		RunWith("extra", func() { close(done) })
		select {
		case <-done:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, time.Second, 10*time.Millisecond)

	ResizePool("extra", 3)
	RemovePool("extra")

	require.Eventually(t, func() bool {
		ran := false
		RunWith("extra", func() { ran = true })
		time.Sleep(20 * time.Millisecond)
		return !ran
	}, time.Second, 10*time.Millisecond)
}

func TestAutoModeTogglesSupervisoryGoroutine(t *testing.T) {
	teardown(t)

	Init(map[string]int{"fast": 1})
	assert.False(t, IsPoolInAutoMode("fast"))

	TogglePoolAutoMode("fast", true)
	assert.True(t, IsPoolInAutoMode("fast"))

	TogglePoolAutoMode("fast", false)
	assert.False(t, IsPoolInAutoMode("fast"))
}

func TestCloseIsIdempotentAndAllowsReInit(t *testing.T) {
	defer leaktest.Check(t)()
	reset()

	Init(map[string]int{"fast": 1})
	require.NoError(t, Close())
	require.NoError(t, Close())

	Init(map[string]int{"fast": 1})
	require.NoError(t, Close())
	reset()
}
