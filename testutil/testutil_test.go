package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSizes(t *testing.T) {
	rng := NewRNG(4711)

	sizes := rng.Sizes(64, 16, 32)

	assert.Len(t, sizes, 64)
	for _, s := range sizes {
		assert.GreaterOrEqual(t, s, int64(16))
		assert.LessOrEqual(t, s, int64(32))
	}
}

func TestSizes_Deterministic(t *testing.T) {
	a := NewRNG(42).Sizes(16, 1, 1<<20)
	b := NewRNG(42).Sizes(16, 1, 1<<20)

	assert.Equal(t, a, b)

	rng := NewRNG(42)
	first := rng.Sizes(16, 1, 1<<20)
	rng.Reset()
	assert.Equal(t, first, rng.Sizes(16, 1, 1<<20))
}

func TestZipfSizes(t *testing.T) {
	rng := NewRNG(4711)

	sizes := rng.ZipfSizes(1000, 8, 1.5)

	counts := map[int64]int{}
	for _, s := range sizes {
		assert.GreaterOrEqual(t, s, int64(64))
		assert.LessOrEqual(t, s, int64(64<<7))
		counts[s]++
	}
	assert.Greater(t, counts[64], counts[64<<7])
}

func TestSum(t *testing.T) {
	assert.Equal(t, int64(0), Sum(nil))
	assert.Equal(t, int64(6), Sum([]int64{1, 2, 3}))
}

func TestCollectUntil(t *testing.T) {
	calls := 0
	CollectUntil(t, time.Second, func() bool {
		calls++
		return calls >= 3
	})
	assert.GreaterOrEqual(t, calls, 3)
}
