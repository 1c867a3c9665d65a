package sysmem

import (
	"time"
)

// DefaultReclaimTimeout bounds the cool-down wait of active reclaim.
const DefaultReclaimTimeout = 100 * time.Millisecond

type options struct {
	freshPool       bool
	activeReclaim   bool
	reclaimTimeout  time.Duration
	logger          *Logger
	metrics         MetricsObserver
	chunkReclaimer  ChunkReclaimer
	bufferReclaimer BufferReclaimer
	onReclaimError  func(error)
}

func defaultOptions() options {
	return options{
		freshPool:      true,
		activeReclaim:  true,
		reclaimTimeout: DefaultReclaimTimeout,
		logger:         NoopLogger(),
		metrics:        NoopMetricsObserver{},
	}
}

// Option configures an allocator at construction. Configuration is only ever
// passed explicitly; nothing is read from the environment or from files.
type Option func(*options)

// WithFreshPool records the "fresh pool" flag. It is reserved: a volatile
// pool is always fresh, so the value has no effect.
func WithFreshPool(fresh bool) Option {
	return func(o *options) {
		o.freshPool = fresh
	}
}

// WithActiveReclaim enables or disables the cool-down wait performed before
// failing a request that exceeds capacity. Enabled by default.
func WithActiveReclaim(enabled bool) Option {
	return func(o *options) {
		o.activeReclaim = enabled
	}
}

// WithReclaimTimeout sets the bound of the cool-down wait.
// If timeout <= 0, DefaultReclaimTimeout is used.
func WithReclaimTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout <= 0 {
			timeout = DefaultReclaimTimeout
		}
		o.reclaimTimeout = timeout
	}
}

// WithLogger configures the logger. Pass nil to disable logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsObserver configures an observer for allocation, reclamation and
// backpressure events. Pass nil to disable metrics.
//
// Example with BasicMetricsObserver:
//
//	metrics := &sysmem.BasicMetricsObserver{}
//	pool, _ := sysmem.New(1<<30, sysmem.WithMetricsObserver(metrics))
func WithMetricsObserver(m MetricsObserver) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsObserver{}
		}
		o.metrics = m
	}
}

// WithChunkReclaimer installs a reclaimer override for chunks.
func WithChunkReclaimer(r ChunkReclaimer) Option {
	return func(o *options) {
		o.chunkReclaimer = r
	}
}

// WithBufferReclaimer installs a reclaimer override for buffers.
func WithBufferReclaimer(r BufferReclaimer) Option {
	return func(o *options) {
		o.bufferReclaimer = r
	}
}

// WithReclaimErrorHandler receives every *ReclaimError raised while
// reclaiming collected holders. It runs on a collector goroutine and must
// not block.
func WithReclaimErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onReclaimError = fn
	}
}
