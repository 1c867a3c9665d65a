package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/time/rate"
)

var (
	// ErrClosed is returned when registering with a closed collector.
	ErrClosed = errors.New("collector: closed")
	// ErrNilObject is returned when registering a nil owner.
	ErrNilObject = errors.New("collector: nil object")
)

// ReclaimFunc releases one resource. It runs at most once per registration.
type ReclaimFunc[R any] func(res R, size int64) error

// Option configures a Collector.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	onError func(error)
	name    string
	limit   rate.Limit
	burst   int
}

// WithLogger sets the logger used for reclaim diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithErrorHandler installs a callback receiving every reclaim failure on the
// sweeper goroutine. The handler must not block.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithName tags log lines with a collector name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogRate bounds how many reclaim failures per second reach the logger.
// The error handler is never throttled.
func WithLogRate(limit rate.Limit, burst int) Option {
	return func(o *options) {
		o.limit = limit
		o.burst = burst
	}
}

// Registration is the collector's record of one tracked resource.
// It never references the owner object, so holding it does not keep the owner alive.
type Registration[R any] struct {
	id      uint64
	res     R
	size    int64
	claimed atomic.Bool
	cleanup runtime.Cleanup
}

// ID returns the registration id.
func (r *Registration[R]) ID() uint64 { return r.id }

// Resource returns the tracked resource.
func (r *Registration[R]) Resource() R { return r.res }

// Size returns the recorded size of the resource.
func (r *Registration[R]) Size() int64 { return r.size }

// Claimed reports whether the registration was reclaimed or unregistered.
func (r *Registration[R]) Claimed() bool { return r.claimed.Load() }

// Collector reclaims resources whose owners became unreachable.
//
// Owners of type T are watched with runtime.AddCleanup. When the garbage
// collector finds an owner unreachable, its registration is queued and a
// dedicated sweeper goroutine invokes the reclaim callback. The sweeper is
// the only goroutine running callbacks for collected owners; a callback
// that fails or panics is reported and the rest of the batch proceeds.
type Collector[T any, R any] struct {
	reclaim ReclaimFunc[R]
	opts    options
	logger  *slog.Logger
	limiter *rate.Limiter

	mu      sync.Mutex
	tracked *roaring64.Bitmap
	queue   []*Registration[R]
	closing bool

	nextID    atomic.Uint64
	reclaimed atomic.Uint64
	failures  atomic.Uint64

	coolMu sync.Mutex
	cool   chan struct{} // closed after every completed batch, then replaced

	wake chan struct{}
	done chan struct{}
}

// New creates a collector and starts its sweeper goroutine.
func New[T any, R any](reclaim ReclaimFunc[R], optFns ...Option) *Collector[T, R] {
	o := options{
		logger: slog.Default(),
		limit:  rate.Every(time.Second),
		burst:  10,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	logger := o.logger
	if o.name != "" {
		logger = logger.With("collector", o.name)
	}

	c := &Collector[T, R]{
		reclaim: reclaim,
		opts:    o,
		logger:  logger,
		limiter: rate.NewLimiter(o.limit, o.burst),
		tracked: roaring64.New(),
		cool:    make(chan struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	go c.run()

	return c
}

// Register tracks res, owned by obj. Once obj is unreachable the collector
// schedules reclamation of res.
func (c *Collector[T, R]) Register(obj *T, res R, size int64) (*Registration[R], error) {
	if obj == nil {
		return nil, ErrNilObject
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return nil, ErrClosed
	}

	reg := &Registration[R]{
		id:   c.nextID.Add(1),
		res:  res,
		size: size,
	}
	c.tracked.Add(reg.id)
	reg.cleanup = runtime.AddCleanup(obj, c.retire, reg)

	return reg, nil
}

// Unregister stops tracking reg without reclaiming it. It reports false if
// reg was already reclaimed or unregistered. The caller takes over the
// resource's lifetime.
func (c *Collector[T, R]) Unregister(reg *Registration[R]) bool {
	if reg == nil || !reg.claimed.CompareAndSwap(false, true) {
		return false
	}
	reg.cleanup.Stop()

	c.mu.Lock()
	c.tracked.Remove(reg.id)
	c.mu.Unlock()

	c.signal()
	return true
}

// retire runs on the runtime's cleanup goroutine. It must not block.
func (c *Collector[T, R]) retire(reg *Registration[R]) {
	if reg.claimed.Load() {
		return
	}
	c.mu.Lock()
	c.queue = append(c.queue, reg)
	c.mu.Unlock()
	c.signal()
}

func (c *Collector[T, R]) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Collector[T, R]) run() {
	defer close(c.done)

	for range c.wake {
		for {
			batch := c.take()
			if len(batch) == 0 {
				break
			}
			n := 0
			for _, reg := range batch {
				if c.reclaimOne(reg) {
					n++
				}
			}
			if n > 0 {
				c.broadcast()
			}
		}
		if c.drained() {
			return
		}
	}
}

func (c *Collector[T, R]) take() []*Registration[R] {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := c.queue
	c.queue = nil
	return batch
}

func (c *Collector[T, R]) drained() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing && c.tracked.IsEmpty() && len(c.queue) == 0
}

// reclaimOne runs the callback for reg unless it was claimed elsewhere.
func (c *Collector[T, R]) reclaimOne(reg *Registration[R]) (ok bool) {
	if !reg.claimed.CompareAndSwap(false, true) {
		return false
	}

	c.mu.Lock()
	c.tracked.Remove(reg.id)
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			c.report(reg, fmt.Errorf("collector: reclaim panicked: %v", r))
		}
		c.reclaimed.Add(1)
		ok = true
	}()

	if err := c.reclaim(reg.res, reg.size); err != nil {
		c.report(reg, err)
	}
	return true
}

func (c *Collector[T, R]) report(reg *Registration[R], err error) {
	c.failures.Add(1)
	if c.opts.onError != nil {
		c.opts.onError(err)
	}
	if c.limiter.Allow() {
		c.logger.Warn("reclaim failed", "id", reg.id, "size", reg.size, "error", err)
	}
}

func (c *Collector[T, R]) broadcast() {
	c.coolMu.Lock()
	close(c.cool)
	c.cool = make(chan struct{})
	c.coolMu.Unlock()
}

// CoolDown returns a channel that is closed when the next batch of
// reclamations completes.
func (c *Collector[T, R]) CoolDown() <-chan struct{} {
	c.coolMu.Lock()
	defer c.coolMu.Unlock()
	return c.cool
}

// WaitReclaimCoolDown requests a garbage collection and blocks until at least
// one reclamation completes, the timeout elapses or ctx is done. It reports
// whether a reclamation was observed. The wait is advisory: it may return
// having freed nothing.
func (c *Collector[T, R]) WaitReclaimCoolDown(ctx context.Context, timeout time.Duration) bool {
	return WaitAny(ctx, timeout, c)
}

// Tracked returns the number of registered resources not yet reclaimed.
func (c *Collector[T, R]) Tracked() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracked.GetCardinality()
}

// Reclaimed returns how many resources the sweeper has reclaimed.
func (c *Collector[T, R]) Reclaimed() uint64 {
	return c.reclaimed.Load()
}

// Failures returns how many reclaim callbacks failed or panicked.
func (c *Collector[T, R]) Failures() uint64 {
	return c.failures.Load()
}

// Close stops accepting registrations. Resources still tracked are reclaimed
// as their owners become unreachable; the sweeper exits once none are left.
func (c *Collector[T, R]) Close() {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	c.signal()
}

// Wait blocks until the sweeper exited or ctx is done.
func (c *Collector[T, R]) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
