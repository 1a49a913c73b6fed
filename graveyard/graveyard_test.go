package graveyard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAllAlive(t *testing.T) {
	g := New(3)
	require.Equal(t, 4, g.Len())
	for id := 0; id <= 3; id++ {
		assert.True(t, g.IsAlive(id))
	}
}

func TestKillIndividual(t *testing.T) {
	g := New(3)
	g.Kill(2)
	assert.False(t, g.IsAlive(2))
	assert.True(t, g.IsAlive(1))
	assert.True(t, g.IsAlive(3))
	assert.False(t, g.ShuttingDown())
}

func TestKillGlobalMarksShuttingDown(t *testing.T) {
	g := New(3)
	g.Kill(Global)
	assert.True(t, g.ShuttingDown())
	// Individual workers are not retroactively marked dead by the global kill;
	// they observe ShuttingDown() themselves during Checking and decide to
	// drain or retire based on queue state and forced-close.
	assert.True(t, g.IsAlive(1))
}

func TestOutOfRangeIsDefensivelyDead(t *testing.T) {
	g := New(1)
	assert.False(t, g.IsAlive(5))
}

func TestGrowAndEnsureLen(t *testing.T) {
	g := New(1)
	g.Grow(2)
	require.Equal(t, 4, g.Len())
	assert.True(t, g.IsAlive(3))

	g.EnsureLen(10)
	assert.True(t, g.IsAlive(10))
}

func TestDeadIsTerminal(t *testing.T) {
	g := New(1)
	g.Kill(1)
	assert.False(t, g.IsAlive(1))
	// Growing or ensuring length never resurrects an existing slot.
	g.Grow(1)
	assert.False(t, g.IsAlive(1))
}
