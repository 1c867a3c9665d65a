package testutil

import (
	"math"
	"math/rand"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed))
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Size returns a request size uniformly distributed in [minSize, maxSize].
func (r *RNG) Size(minSize, maxSize int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sizeLocked(minSize, maxSize)
}

func (r *RNG) sizeLocked(minSize, maxSize int64) int64 {
	if maxSize <= minSize {
		return minSize
	}
	return minSize + r.rand.Int63n(maxSize-minSize+1)
}

// Sizes returns n request sizes uniformly distributed in [minSize, maxSize].
func (r *RNG) Sizes(n int, minSize, maxSize int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	sizes := make([]int64, n)
	for i := range sizes {
		sizes[i] = r.sizeLocked(minSize, maxSize)
	}
	return sizes
}

// Zipf returns a Zipfian-distributed value in [0, n).
// P(k) ∝ 1/k^s where s is the skew parameter.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// ZipfSizes returns n power-of-two request sizes drawn from classes size
// classes (64 bytes and up), with small classes dominating for s > 1.
func (r *RNG) ZipfSizes(n, classes int, s float64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	sizes := make([]int64, n)
	for i := range sizes {
		sizes[i] = int64(64) << r.zipfLocked(classes, s)
	}
	return sizes
}

// FillBytes fills dst with pseudo-random bytes.
func (r *RNG) FillBytes(dst []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = r.rand.Read(dst)
}

// Sum returns the sum of sizes.
func Sum(sizes []int64) int64 {
	var total int64
	for _, s := range sizes {
		total += s
	}
	return total
}

// CollectUntil runs the garbage collector until cond holds, failing the test
// after timeout. Cleanups run asynchronously, so a single GC is not enough.
func CollectUntil(t testing.TB, timeout time.Duration, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		runtime.GC()
		return cond()
	}, timeout, 5*time.Millisecond)
}
