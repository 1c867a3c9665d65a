package sysmem

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/hupe1980/sysmem/internal/collector"
	"github.com/hupe1980/sysmem/internal/conv"
	"github.com/hupe1980/sysmem/internal/ledger"
	"github.com/hupe1980/sysmem/internal/mmap"
)

// Allocator is the surface shared by the allocator family. Volatile and
// persistent implementations differ only in what Sync does.
type Allocator interface {
	CreateChunk(size int64, autoReclaim bool) (*ChunkHolder, error)
	CreateBuffer(size int64, autoReclaim bool) (*BufferHolder, error)
	ResizeChunk(h *ChunkHolder, newSize int64) (*ChunkHolder, error)
	ResizeBuffer(h *BufferHolder, newSize int64) (*BufferHolder, error)

	Sync(addr uintptr, length int64, autodetect bool) error
	SyncChunk(h *ChunkHolder) error
	SyncBuffer(h *BufferHolder) error
	SyncAll() error

	EnableActiveGC(timeout time.Duration)
	DisableActiveGC()

	Capacity() int64
	UsedBytes() int64
	Close() error
}

var _ Allocator = (*SysAllocator)(nil)

// SysAllocator hands out native memory from the process heap of the
// operating system, bounded by a fixed capacity.
//
// Holders created with autoReclaim are tracked by a collector: once a holder
// becomes unreachable its memory is released on a collector goroutine.
// When a request does not fit and active reclaim is enabled, the allocator
// forces one garbage collection and waits up to the reclaim timeout for a
// reclamation before failing with ErrCapacityExceeded.
//
// All methods are safe for concurrent use.
type SysAllocator struct {
	ledger  *ledger.Ledger
	chunks  *collector.Collector[ChunkHolder, *Chunk]
	buffers *collector.Collector[BufferHolder, *Buffer]

	activeReclaim  atomic.Bool
	reclaimTimeout atomic.Int64 // time.Duration

	chunkReclaimer  atomic.Pointer[ChunkReclaimer]
	bufferReclaimer atomic.Pointer[BufferReclaimer]

	nextID atomic.Uint64
	closed atomic.Bool

	freshPool      bool
	logger         *Logger
	metrics        MetricsObserver
	onReclaimError func(error)
}

// New creates an allocator for a pool of capacity bytes.
func New(capacity int64, optFns ...Option) (*SysAllocator, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	l, err := ledger.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	a := &SysAllocator{
		ledger:         l,
		freshPool:      o.freshPool,
		logger:         o.logger.WithCapacity(capacity),
		metrics:        o.metrics,
		onReclaimError: o.onReclaimError,
	}
	a.activeReclaim.Store(o.activeReclaim)
	a.reclaimTimeout.Store(int64(o.reclaimTimeout))
	if o.chunkReclaimer != nil {
		a.SetChunkReclaimer(o.chunkReclaimer)
	}
	if o.bufferReclaimer != nil {
		a.SetBufferReclaimer(o.bufferReclaimer)
	}

	a.chunks = collector.New[ChunkHolder](
		func(c *Chunk, _ int64) error { return a.reclaimChunk(c, false) },
		collector.WithLogger(a.logger.Logger),
		collector.WithName(string(KindChunk)),
		collector.WithErrorHandler(o.onReclaimError),
	)
	a.buffers = collector.New[BufferHolder](
		func(b *Buffer, _ int64) error { return a.reclaimBuffer(b, false) },
		collector.WithLogger(a.logger.Logger),
		collector.WithName(string(KindBuffer)),
		collector.WithErrorHandler(o.onReclaimError),
	)

	a.logger.Debug("allocator created", "active_reclaim", o.activeReclaim, "reclaim_timeout", o.reclaimTimeout)

	return a, nil
}

// CreateChunk allocates a chunk of size bytes.
func (a *SysAllocator) CreateChunk(size int64, autoReclaim bool) (*ChunkHolder, error) {
	return a.CreateChunkContext(context.Background(), size, autoReclaim)
}

// CreateChunkContext is CreateChunk with a context bounding the cool-down wait.
func (a *SysAllocator) CreateChunkContext(ctx context.Context, size int64, autoReclaim bool) (h *ChunkHolder, err error) {
	start := time.Now()
	defer func() {
		a.metrics.OnAllocate(KindChunk, size, time.Since(start), err)
		a.logger.LogAllocate(ctx, KindChunk, size, err)
	}()

	n, err := a.admit(ctx, KindChunk, size)
	if err != nil {
		return nil, err
	}

	m, err := mmap.MapAnon(n)
	if err != nil {
		a.ledger.Cancel(size)
		return nil, fmt.Errorf("%w: chunk of %d bytes: %v", ErrHostAllocation, size, err)
	}

	c := newChunk(a.nextID.Add(1), m, size)
	h = &ChunkHolder{alloc: a, chunk: c}
	if err := a.commit(c.id, size, m); err != nil {
		return nil, err
	}

	if autoReclaim {
		reg, err := a.chunks.Register(h, c, size)
		if err != nil {
			a.rollback(c.id, m)
			return nil, a.registerError(err)
		}
		h.reg = reg
	}

	a.metrics.OnUsage(a.ledger.Used(), a.ledger.Capacity())

	return h, nil
}

// CreateBuffer allocates a buffer of size bytes with position 0 and limit size.
func (a *SysAllocator) CreateBuffer(size int64, autoReclaim bool) (*BufferHolder, error) {
	return a.CreateBufferContext(context.Background(), size, autoReclaim)
}

// CreateBufferContext is CreateBuffer with a context bounding the cool-down wait.
func (a *SysAllocator) CreateBufferContext(ctx context.Context, size int64, autoReclaim bool) (h *BufferHolder, err error) {
	start := time.Now()
	defer func() {
		a.metrics.OnAllocate(KindBuffer, size, time.Since(start), err)
		a.logger.LogAllocate(ctx, KindBuffer, size, err)
	}()

	n, err := a.admit(ctx, KindBuffer, size)
	if err != nil {
		return nil, err
	}

	m, err := mmap.MapAnon(n)
	if err != nil {
		a.ledger.Cancel(size)
		return nil, fmt.Errorf("%w: buffer of %d bytes: %v", ErrHostAllocation, size, err)
	}

	b := newBuffer(a.nextID.Add(1), m)
	h = &BufferHolder{alloc: a, buffer: b}
	if err := a.commit(b.id, size, m); err != nil {
		return nil, err
	}

	if autoReclaim {
		reg, err := a.buffers.Register(h, b, size)
		if err != nil {
			a.rollback(b.id, m)
			return nil, a.registerError(err)
		}
		h.reg = reg
	}

	a.metrics.OnUsage(a.ledger.Used(), a.ledger.Capacity())

	return h, nil
}

// ResizeChunk moves the contents of h into a chunk of newSize bytes and
// returns its new holder. The new holder is auto-reclaimed iff h was.
//
// Resize is atomic: on any error h is left untouched and stays valid.
// On success h is retired and every further use of it fails with
// ErrUseAfterReclaim.
func (a *SysAllocator) ResizeChunk(h *ChunkHolder, newSize int64) (*ChunkHolder, error) {
	return a.ResizeChunkContext(context.Background(), h, newSize)
}

// ResizeChunkContext is ResizeChunk with a context bounding the cool-down wait.
func (a *SysAllocator) ResizeChunkContext(ctx context.Context, h *ChunkHolder, newSize int64) (nh *ChunkHolder, err error) {
	if err := a.owns(h != nil, h != nil && h.alloc == a); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	defer runtime.KeepAlive(h)

	old := h.chunk
	if old.Reclaimed() {
		return nil, ErrUseAfterReclaim
	}

	start := time.Now()
	defer func() {
		a.metrics.OnResize(KindChunk, old.size, newSize, time.Since(start), err)
		a.logger.LogAllocate(ctx, KindChunk, newSize, err)
	}()

	n, err := a.admit(ctx, KindChunk, newSize)
	if err != nil {
		return nil, err
	}

	m, err := old.mapping.Remap(n)
	if err != nil {
		a.ledger.Cancel(newSize)
		return nil, fmt.Errorf("%w: resize chunk %d -> %d bytes: %v", ErrHostAllocation, old.size, newSize, err)
	}

	// The memory moved; retire the old chunk without freeing it.
	old.retire()
	registered := h.reg != nil && a.chunks.Unregister(h.reg)
	a.ledger.Release(old.id)

	c := newChunk(a.nextID.Add(1), m, newSize)
	nh = &ChunkHolder{alloc: a, chunk: c}
	if err := a.commit(c.id, newSize, m); err != nil {
		return nil, err
	}

	if registered {
		reg, err := a.chunks.Register(nh, c, newSize)
		if err != nil {
			a.rollback(c.id, m)
			return nil, a.registerError(err)
		}
		nh.reg = reg
	}

	a.metrics.OnUsage(a.ledger.Used(), a.ledger.Capacity())

	return nh, nil
}

// ResizeBuffer moves the contents of h into a buffer of newSize bytes.
// Position and limit are kept where they still fit: a position beyond
// newSize becomes 0 and a limit beyond newSize becomes newSize.
//
// Like ResizeChunk, the resize is atomic.
func (a *SysAllocator) ResizeBuffer(h *BufferHolder, newSize int64) (*BufferHolder, error) {
	return a.ResizeBufferContext(context.Background(), h, newSize)
}

// ResizeBufferContext is ResizeBuffer with a context bounding the cool-down wait.
func (a *SysAllocator) ResizeBufferContext(ctx context.Context, h *BufferHolder, newSize int64) (nh *BufferHolder, err error) {
	if err := a.owns(h != nil, h != nil && h.alloc == a); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	defer runtime.KeepAlive(h)

	old := h.buffer
	if old.Reclaimed() {
		return nil, ErrUseAfterReclaim
	}

	start := time.Now()
	defer func() {
		a.metrics.OnResize(KindBuffer, old.Size(), newSize, time.Since(start), err)
		a.logger.LogAllocate(ctx, KindBuffer, newSize, err)
	}()

	n, err := a.admit(ctx, KindBuffer, newSize)
	if err != nil {
		return nil, err
	}

	m, err := old.mapping.Remap(n)
	if err != nil {
		a.ledger.Cancel(newSize)
		return nil, fmt.Errorf("%w: resize buffer %d -> %d bytes: %v", ErrHostAllocation, old.capacity, newSize, err)
	}

	old.retire()
	registered := h.reg != nil && a.buffers.Unregister(h.reg)
	a.ledger.Release(old.id)

	b := newBuffer(a.nextID.Add(1), m)
	b.position, b.limit = preservedWindow(old.position, old.limit, n)
	nh = &BufferHolder{alloc: a, buffer: b}
	if err := a.commit(b.id, newSize, m); err != nil {
		return nil, err
	}

	if registered {
		reg, err := a.buffers.Register(nh, b, newSize)
		if err != nil {
			a.rollback(b.id, m)
			return nil, a.registerError(err)
		}
		nh.reg = reg
	}

	a.metrics.OnUsage(a.ledger.Used(), a.ledger.Capacity())

	return nh, nil
}

// Sync is not supported: volatile memory has no backing media.
func (a *SysAllocator) Sync(addr uintptr, length int64, autodetect bool) error {
	return ErrUnsupportedOperation
}

// SyncChunk is not supported.
func (a *SysAllocator) SyncChunk(h *ChunkHolder) error {
	return ErrUnsupportedOperation
}

// SyncBuffer is not supported.
func (a *SysAllocator) SyncBuffer(h *BufferHolder) error {
	return ErrUnsupportedOperation
}

// SyncAll is not supported.
func (a *SysAllocator) SyncAll() error {
	return ErrUnsupportedOperation
}

// EnableActiveGC turns on the cool-down wait for requests that do not fit,
// bounded by timeout. A timeout <= 0 keeps active reclaim on but makes the
// wait return immediately.
func (a *SysAllocator) EnableActiveGC(timeout time.Duration) {
	a.reclaimTimeout.Store(int64(timeout))
	a.activeReclaim.Store(true)
}

// DisableActiveGC makes requests that do not fit fail immediately.
func (a *SysAllocator) DisableActiveGC() {
	a.activeReclaim.Store(false)
}

// ActiveGC reports whether active reclaim is enabled and its timeout.
func (a *SysAllocator) ActiveGC() (bool, time.Duration) {
	return a.activeReclaim.Load(), time.Duration(a.reclaimTimeout.Load())
}

// SetChunkReclaimer installs r as the chunk reclaimer override. Pass nil to
// restore the default release.
func (a *SysAllocator) SetChunkReclaimer(r ChunkReclaimer) {
	if r == nil {
		a.chunkReclaimer.Store(nil)
		return
	}
	a.chunkReclaimer.Store(&r)
}

// SetBufferReclaimer installs r as the buffer reclaimer override. Pass nil to
// restore the default release.
func (a *SysAllocator) SetBufferReclaimer(r BufferReclaimer) {
	if r == nil {
		a.bufferReclaimer.Store(nil)
		return
	}
	a.bufferReclaimer.Store(&r)
}

// Capacity returns the pool capacity in bytes.
func (a *SysAllocator) Capacity() int64 { return a.ledger.Capacity() }

// UsedBytes returns the bytes currently accounted to live resources.
func (a *SysAllocator) UsedBytes() int64 { return a.ledger.Used() }

// Available returns the bytes that may still be allocated.
func (a *SysAllocator) Available() int64 { return a.ledger.Available() }

// FreshPool reports the construction flag. A volatile pool is always fresh.
func (a *SysAllocator) FreshPool() bool { return a.freshPool }

// Close stops the allocator: create and resize fail with ErrClosed
// afterwards. Holders that are still referenced stay valid; they can be
// destroyed explicitly or are reclaimed once unreachable. Close is idempotent.
func (a *SysAllocator) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	a.chunks.Close()
	a.buffers.Close()

	a.logger.Info("allocator closed", "used", a.ledger.Used(), "live", a.ledger.Entries())
	return nil
}

// WaitDrained blocks until both collectors exited after Close, which happens
// once every auto-reclaimed holder was reclaimed, or ctx is done.
func (a *SysAllocator) WaitDrained(ctx context.Context) error {
	if !a.closed.Load() {
		return errors.New("sysmem: WaitDrained before Close")
	}
	if err := a.chunks.Wait(ctx); err != nil {
		return err
	}
	return a.buffers.Wait(ctx)
}

// admit validates a request and reserves size bytes, waiting for one
// cool-down when the pool is full and active reclaim is enabled.
func (a *SysAllocator) admit(ctx context.Context, kind ResourceKind, size int64) (int, error) {
	if a.closed.Load() {
		return 0, ErrClosed
	}
	if size <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	n, err := conv.Int64ToInt(size)
	if err != nil {
		return 0, fmt.Errorf("%w: %d: %v", ErrInvalidSize, size, err)
	}
	if err := a.reserve(ctx, kind, size); err != nil {
		return 0, err
	}
	return n, nil
}

func (a *SysAllocator) reserve(ctx context.Context, kind ResourceKind, size int64) error {
	if a.ledger.Reserve(size) == nil {
		return nil
	}

	capacity := a.ledger.Capacity()
	// A request larger than the pool can never be satisfied by reclamation.
	if !a.activeReclaim.Load() || size > capacity {
		return capacityError(kind, size, a.ledger.Used(), capacity)
	}

	start := time.Now()
	timeout := time.Duration(a.reclaimTimeout.Load())
	collector.WaitAny(ctx, timeout, a.chunks, a.buffers)

	err := a.ledger.Reserve(size)
	waited := time.Since(start)
	a.metrics.OnBackpressure(kind, size, waited, err == nil)
	a.logger.LogBackpressure(ctx, kind, size, waited, err == nil)
	if err != nil {
		return capacityError(kind, size, a.ledger.Used(), capacity)
	}
	return nil
}

// commit records a fresh mapping in the ledger. Ids are never reused, so a
// failure means the ledger is corrupt; the mapping is freed.
func (a *SysAllocator) commit(id uint64, size int64, m *mmap.Mapping) error {
	if err := a.ledger.Commit(id, size); err != nil {
		a.ledger.Cancel(size)
		_ = m.Close()
		return err
	}
	return nil
}

func (a *SysAllocator) rollback(id uint64, m *mmap.Mapping) {
	a.ledger.Release(id)
	_ = m.Close()
}

func (a *SysAllocator) registerError(err error) error {
	if errors.Is(err, collector.ErrClosed) {
		return ErrClosed
	}
	return err
}

func (a *SysAllocator) owns(present, same bool) error {
	if !present {
		return fmt.Errorf("%w: nil holder", ErrUseAfterReclaim)
	}
	if !same {
		return ErrForeignHolder
	}
	return nil
}

// reclaimChunk takes c out of the pool exactly once. The ledger entry is
// released before the memory, then the override, if any, may claim it.
func (a *SysAllocator) reclaimChunk(c *Chunk, explicit bool) error {
	if !c.retire() {
		return nil
	}
	a.ledger.Release(c.id)

	var handled bool
	var err error
	if p := a.chunkReclaimer.Load(); p != nil {
		handled, err = offer(func() bool { return (*p).ReclaimChunk(c, c.size) })
	}
	if !handled {
		err = errors.Join(err, c.mapping.Close())
	}

	return a.finishReclaim(KindChunk, c.addr, c.size, explicit, err)
}

func (a *SysAllocator) reclaimBuffer(b *Buffer, explicit bool) error {
	if !b.retire() {
		return nil
	}
	a.ledger.Release(b.id)

	var handled bool
	var err error
	if p := a.bufferReclaimer.Load(); p != nil {
		handled, err = offer(func() bool { return (*p).ReclaimBuffer(b, b.Size()) })
	}
	if !handled {
		err = errors.Join(err, b.mapping.Close())
	}

	return a.finishReclaim(KindBuffer, b.addr, b.Size(), explicit, err)
}

func (a *SysAllocator) finishReclaim(kind ResourceKind, addr uintptr, size int64, explicit bool, err error) error {
	if err != nil {
		err = &ReclaimError{Kind: kind, Address: addr, Size: size, cause: err}
	}
	a.metrics.OnReclaim(kind, size, explicit, err)
	a.metrics.OnUsage(a.ledger.Used(), a.ledger.Capacity())

	// Failures of collected holders are logged by the collector, rate limited.
	if explicit || err == nil {
		a.logger.LogReclaim(context.Background(), kind, addr, size, err)
	}
	return err
}

// offer hands a reclaimed resource to an override. A panic counts as not
// handled.
func offer(fn func() bool) (handled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			handled = false
			err = fmt.Errorf("reclaimer panicked: %v", r)
		}
	}()
	return fn(), nil
}
