package openrouter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyRotatorTrimsAndValidates(t *testing.T) {
	r, err := NewKeyRotator([]string{" sk-a ", "", "sk-b", "  "})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Size())

	_, err = NewKeyRotator(nil)
	require.Error(t, err)
	_, err = NewKeyRotator([]string{"", "   "})
	require.Error(t, err)
}

func TestNextBalancesUsage(t *testing.T) {
	r, err := NewKeyRotator([]string{"sk-a", "sk-b", "sk-c"})
	require.NoError(t, err)

	for i := 0; i < 300; i++ {
		k := r.Next()
		assert.NotEmpty(t, k)
	}

	usage := r.Usage()
	min, max := usage[0], usage[0]
	for _, c := range usage[1:] {
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	assert.LessOrEqual(t, max-min, 1, "usage counters drifted: %v", usage)
}

func TestNextAvoidsImmediateRepeat(t *testing.T) {
	r, err := NewKeyRotator([]string{"sk-a", "sk-b", "sk-c"})
	require.NoError(t, err)

	prev := r.Next()
	for i := 0; i < 100; i++ {
		k := r.Next()
		assert.NotEqual(t, prev, k)
		prev = k
	}
}

func TestNextSingleKeyPool(t *testing.T) {
	r, err := NewKeyRotator([]string{"sk-only"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Equal(t, "sk-only", r.Next())
	}
	assert.Equal(t, []int{5}, r.Usage())
}

func TestNextDeterministicTieBreak(t *testing.T) {
	r, err := NewKeyRotator([]string{"sk-a", "sk-b", "sk-c"})
	require.NoError(t, err)
	r.intn = func(int) int { return 0 }

	// all counters equal, no last yet: first candidate wins
	assert.Equal(t, "sk-a", r.Next())
	// sk-a now excluded as last-used, sk-b is first remaining minimum
	assert.Equal(t, "sk-b", r.Next())
	// sk-c is the sole remaining minimum
	assert.Equal(t, "sk-c", r.Next())
	assert.Equal(t, []int{1, 1, 1}, r.Usage())
}
