package domain

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRing(t *testing.T) {
	t.Run("valid square", func(t *testing.T) {
		ring, ok := ValidateRing([]orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}})

		require.True(t, ok)
		assert.Len(t, ring, 5)
		assert.Equal(t, ring[0], ring[len(ring)-1])
	})

	t.Run("open ring is closed", func(t *testing.T) {
		ring, ok := ValidateRing([]orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}})

		require.True(t, ok)
		assert.Len(t, ring, 5)
		assert.Equal(t, ring[0], ring[len(ring)-1])
	})

	t.Run("too few points", func(t *testing.T) {
		_, ok := ValidateRing([]orb.Point{{0, 0}, {1, 1}})
		assert.False(t, ok)
	})

	t.Run("repeated vertices collapse below three distinct", func(t *testing.T) {
		_, ok := ValidateRing([]orb.Point{{0, 0}, {1, 1}, {0, 0}, {1, 1}})
		assert.False(t, ok)
	})

	t.Run("zero area spike", func(t *testing.T) {
		_, ok := ValidateRing([]orb.Point{{0, 0}, {1, 0}, {2, 0}})
		assert.False(t, ok)
	})

	t.Run("bowtie self-intersection", func(t *testing.T) {
		_, ok := ValidateRing([]orb.Point{{0, 0}, {1, 1}, {1, 0}, {0, 1}})
		assert.False(t, ok)
	})

	t.Run("near-circular tank footprint", func(t *testing.T) {
		// An octagon, roughly how mappers trace a round tank.
		ring, ok := ValidateRing([]orb.Point{
			{1, 0}, {0.7, 0.7}, {0, 1}, {-0.7, 0.7},
			{-1, 0}, {-0.7, -0.7}, {0, -1}, {0.7, -0.7},
		})

		require.True(t, ok)
		assert.Len(t, ring, 9)
	})

	t.Run("input slice is not mutated", func(t *testing.T) {
		coords := []orb.Point{{0, 0}, {1, 0}, {1, 1}}
		_, ok := ValidateRing(coords)

		require.True(t, ok)
		assert.Len(t, coords, 3)
	})
}

func TestRingSelfIntersects(t *testing.T) {
	tests := []struct {
		name   string
		ring   orb.Ring
		expect bool
	}{
		{
			"simple square",
			orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}},
			false,
		},
		{
			"bowtie",
			orb.Ring{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}},
			true,
		},
		{
			"edge crossing through interior",
			orb.Ring{{0, 0}, {2, 0}, {2, 2}, {1, -1}, {0, 2}, {0, 0}},
			true,
		},
		{
			"concave but simple",
			orb.Ring{{0, 0}, {2, 0}, {2, 2}, {1, 1}, {0, 2}, {0, 0}},
			false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, ringSelfIntersects(tc.ring))
		})
	}
}
