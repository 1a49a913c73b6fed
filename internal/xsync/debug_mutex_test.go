package xsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugRWMutex(t *testing.T) {
	EnableMutexDebugging()
	defer DisableMutexDebugging()

	m := &DebugRWMutex{}

	assert.Empty(t, DumpLocks())

	m.Lock()
	assert.NotEmpty(t, DumpLocks())

	m.Unlock()
	assert.Empty(t, DumpLocks())

	m.RLock()
	assert.Empty(t, DumpLocks())

	m.RUnlock()
	assert.Empty(t, DumpLocks())
}

func TestDebugRWMutexContentionTriggerPanics(t *testing.T) {
	EnableMutexDebugging()
	defer DisableMutexDebugging()
	defer SetMutexContentionTrigger(10)
	SetMutexContentionTrigger(1)

	m := &DebugRWMutex{}
	m.RLock()
	defer m.RUnlock()

	assert.Panics(t, func() {
		m.Lock()
	})
}
