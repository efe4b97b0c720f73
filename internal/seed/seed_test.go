package seed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	t.Run("offsets are distinct", func(t *testing.T) {
		seen := make(map[uint64]Component)
		for _, c := range Components() {
			prev, dup := seen[c.Offset()]
			require.False(t, dup, "%s shares offset with %s", c, prev)
			seen[c.Offset()] = c
		}
	})

	t.Run("adds the component offset", func(t *testing.T) {
		assert.Equal(t, uint64(42+0x1000), Derive(42, ComponentAmount))
		assert.Equal(t, uint64(42+0x5000), Derive(42, ComponentIdentifier))
	})

	t.Run("wraps on overflow", func(t *testing.T) {
		got := Derive(math.MaxUint64, ComponentAmount)
		assert.Equal(t, uint64(0x1000-1), got)
	})
}

func TestNewRand(t *testing.T) {
	t.Run("same seed and stream replay", func(t *testing.T) {
		a := NewRand(42, 0)
		b := NewRand(42, 0)
		for range 100 {
			require.Equal(t, a.Uint64(), b.Uint64())
		}
	})

	t.Run("streams diverge", func(t *testing.T) {
		a := NewRand(42, 0)
		b := NewRand(42, 1)
		same := 0
		for range 100 {
			if a.Uint64() == b.Uint64() {
				same++
			}
		}
		assert.Zero(t, same)
	})
}

func TestStream(t *testing.T) {
	assert.Equal(t, uint64(0), Stream(0, 0))
	assert.Equal(t, uint64(1<<16|3), Stream(1, 3))
	assert.NotEqual(t, Stream(1, 0), Stream(0, 1))
}

func TestComponentString(t *testing.T) {
	assert.Equal(t, "amount", ComponentAmount.String())
	assert.Equal(t, "anomaly", ComponentAnomaly.String())
	assert.Equal(t, "component(99)", Component(99).String())
}
