package randutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsDeterministic(t *testing.T) {
	a, b := New(42), New(42)
	for range 10 {
		require.Equal(t, a.Uint64(), b.Uint64())
	}
	assert.NotEqual(t, New(1).Uint64(), New(2).Uint64())
}

func TestSample(t *testing.T) {
	rng := New(7)
	items := []string{"a", "b", "c", "d", "e"}

	got := Sample(rng, items, 3)
	require.Len(t, got, 3)
	seen := map[string]bool{}
	for _, s := range got {
		assert.Contains(t, items, s)
		assert.False(t, seen[s], "duplicate %q", s)
		seen[s] = true
	}

	assert.Len(t, Sample(rng, items, 10), len(items))
	assert.Nil(t, Sample(rng, items, 0))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, items, "input must not be reordered")
}

func TestChildIsReproducible(t *testing.T) {
	a, b := Child(New(9)), Child(New(9))
	assert.Equal(t, a.Uint64(), b.Uint64())
}
