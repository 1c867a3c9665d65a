package collector

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// owner carries a pointer so it is never batched by the tiny allocator.
type owner struct {
	name *string
	pad  [48]byte
}

func newOwner(name string) *owner {
	return &owner{name: &name}
}

type recorder struct {
	mu    sync.Mutex
	seen  map[int]int
	total atomic.Int64
}

func newRecorder() *recorder {
	return &recorder{seen: make(map[int]int)}
}

func (r *recorder) reclaim(res int, size int64) error {
	r.mu.Lock()
	r.seen[res]++
	r.mu.Unlock()
	r.total.Add(size)
	return nil
}

func (r *recorder) count(res int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[res]
}

// registerDetached registers an owner that is unreachable once this returns.
//
//go:noinline
func registerDetached(t *testing.T, c *Collector[owner, int], res int, size int64) {
	t.Helper()
	_, err := c.Register(newOwner("detached"), res, size)
	require.NoError(t, err)
}

func collectUntil(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		runtime.GC()
		return cond()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCollector_ReclaimsUnreachable(t *testing.T) {
	rec := newRecorder()
	c := New[owner](rec.reclaim)
	defer c.Close()

	registerDetached(t, c, 1, 100)
	registerDetached(t, c, 2, 50)

	collectUntil(t, func() bool { return c.Reclaimed() == 2 })

	assert.Equal(t, 1, rec.count(1))
	assert.Equal(t, 1, rec.count(2))
	assert.Equal(t, int64(150), rec.total.Load())
	assert.Zero(t, c.Tracked())
}

func TestCollector_ReachableNotReclaimed(t *testing.T) {
	rec := newRecorder()
	c := New[owner](rec.reclaim)
	defer c.Close()

	o := newOwner("alive")
	reg, err := c.Register(o, 7, 10)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		runtime.GC()
	}
	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, rec.count(7))
	assert.Equal(t, uint64(1), c.Tracked())
	assert.False(t, reg.Claimed())
	runtime.KeepAlive(o)
}

func TestCollector_Unregister(t *testing.T) {
	rec := newRecorder()
	c := New[owner](rec.reclaim)
	defer c.Close()

	o := newOwner("manual")
	reg, err := c.Register(o, 3, 30)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Resource())
	assert.Equal(t, int64(30), reg.Size())

	assert.True(t, c.Unregister(reg))
	assert.False(t, c.Unregister(reg), "second unregister must be a no-op")
	assert.Zero(t, c.Tracked())

	runtime.KeepAlive(o)
	o = nil
	for i := 0; i < 3; i++ {
		runtime.GC()
	}
	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, rec.count(3), "unregistered resources are never reclaimed by the sweeper")
}

func TestCollector_FailureIsolation(t *testing.T) {
	var reported []error
	var mu sync.Mutex

	var freed atomic.Int64
	reclaim := func(res int, size int64) error {
		switch res {
		case 1:
			panic("boom")
		case 2:
			return errors.New("release failed")
		}
		freed.Add(size)
		return nil
	}

	c := New[owner](reclaim, WithErrorHandler(func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}), WithName("test"))
	defer c.Close()

	registerDetached(t, c, 1, 10)
	registerDetached(t, c, 2, 20)
	registerDetached(t, c, 3, 30)
	registerDetached(t, c, 4, 40)

	collectUntil(t, func() bool { return c.Reclaimed() == 4 })

	assert.Equal(t, int64(70), freed.Load())
	assert.Equal(t, uint64(2), c.Failures())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 2)
}

func TestCollector_WaitReclaimCoolDown(t *testing.T) {
	t.Run("returns once a reclamation completes", func(t *testing.T) {
		rec := newRecorder()
		c := New[owner](rec.reclaim)
		defer c.Close()

		registerDetached(t, c, 9, 90)

		require.Eventually(t, func() bool {
			return c.WaitReclaimCoolDown(context.Background(), 200*time.Millisecond) || c.Reclaimed() == 1
		}, 5*time.Second, time.Millisecond)
		assert.Equal(t, 1, rec.count(9))
	})

	t.Run("times out with nothing to reclaim", func(t *testing.T) {
		c := New[owner](newRecorder().reclaim)
		defer c.Close()

		start := time.Now()
		ok := c.WaitReclaimCoolDown(context.Background(), 50*time.Millisecond)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		c := New[owner](newRecorder().reclaim)
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, c.WaitReclaimCoolDown(ctx, time.Minute))
	})

	t.Run("zero timeout does not wait", func(t *testing.T) {
		c := New[owner](newRecorder().reclaim)
		defer c.Close()

		assert.False(t, c.WaitReclaimCoolDown(context.Background(), 0))
	})
}

func TestWaitAny(t *testing.T) {
	quiet := New[owner](newRecorder().reclaim)
	defer quiet.Close()

	rec := newRecorder()
	busy := New[owner](rec.reclaim)
	defer busy.Close()

	registerDetached(t, busy, 5, 5)

	require.Eventually(t, func() bool {
		return WaitAny(context.Background(), 200*time.Millisecond, quiet, busy) || busy.Reclaimed() == 1
	}, 5*time.Second, time.Millisecond)

	assert.False(t, WaitAny(context.Background(), time.Second))
}

func TestCollector_CloseDrains(t *testing.T) {
	rec := newRecorder()
	c := New[owner](rec.reclaim)

	o := newOwner("late")
	_, err := c.Register(o, 11, 11)
	require.NoError(t, err)

	c.Close()

	_, err = c.Register(newOwner("rejected"), 12, 12)
	assert.ErrorIs(t, err, ErrClosed)

	// Still tracked, the sweeper must keep running.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Wait(ctx), context.DeadlineExceeded)

	runtime.KeepAlive(o)
	o = nil

	collectUntil(t, func() bool { return rec.count(11) == 1 })

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	require.NoError(t, c.Wait(ctx2))
}

func TestCollector_CloseIdle(t *testing.T) {
	c := New[owner](newRecorder().reclaim)
	c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

func TestCollector_RegisterNil(t *testing.T) {
	c := New[owner](newRecorder().reclaim)
	defer c.Close()

	_, err := c.Register(nil, 1, 1)
	assert.ErrorIs(t, err, ErrNilObject)
}
