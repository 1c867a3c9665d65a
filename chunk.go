package sysmem

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/sysmem/internal/collector"
	"github.com/hupe1980/sysmem/internal/mmap"
)

// AccessPattern hints the kernel how chunk memory will be accessed.
type AccessPattern = mmap.AccessPattern

// Access patterns accepted by Chunk.Advise.
const (
	AccessDefault    = mmap.AccessDefault
	AccessSequential = mmap.AccessSequential
	AccessRandom     = mmap.AccessRandom
	AccessWillNeed   = mmap.AccessWillNeed
	AccessDontNeed   = mmap.AccessDontNeed
)

// Chunk is a raw region of native memory: an address and a size, nothing more.
type Chunk struct {
	mapping *mmap.Mapping
	id      uint64
	addr    uintptr
	size    int64
	retired atomic.Bool
}

func newChunk(id uint64, m *mmap.Mapping, size int64) *Chunk {
	return &Chunk{
		mapping: m,
		id:      id,
		addr:    m.Addr(),
		size:    size,
	}
}

// Address returns the native base address of the chunk.
func (c *Chunk) Address() uintptr { return c.addr }

// Size returns the size of the chunk in bytes.
func (c *Chunk) Size() int64 { return c.size }

// Bytes returns the chunk memory, or nil once the memory was released.
func (c *Chunk) Bytes() []byte { return c.mapping.Bytes() }

// Advise passes an access hint for the chunk memory to the kernel. The hint
// is advisory; platforms without one ignore it.
func (c *Chunk) Advise(pattern AccessPattern) error {
	if c.retired.Load() {
		return ErrUseAfterReclaim
	}
	return c.mapping.Advise(pattern)
}

// Reclaimed reports whether the chunk left the pool.
func (c *Chunk) Reclaimed() bool { return c.retired.Load() }

// Release frees the memory of a reclaimed chunk. It is meant for
// ChunkReclaimer implementations that kept a chunk; live chunks are released
// through their holder.
func (c *Chunk) Release() error {
	if !c.retired.Load() {
		return ErrLiveResource
	}
	return c.mapping.Close()
}

func (c *Chunk) retire() bool {
	return c.retired.CompareAndSwap(false, true)
}

// ChunkHolder owns one chunk until it is destroyed, resized or collected.
//
// Memory returned by Bytes is valid only while the holder is reachable: once
// an auto-reclaimed holder is garbage, the chunk may be freed at any time.
// Use runtime.KeepAlive(holder) after the last access to the bytes.
type ChunkHolder struct {
	mu    sync.Mutex
	alloc *SysAllocator
	chunk *Chunk
	reg   *collector.Registration[*Chunk]
}

// Chunk returns the held chunk.
func (h *ChunkHolder) Chunk() (*Chunk, error) {
	if h.chunk.Reclaimed() {
		return nil, ErrUseAfterReclaim
	}
	return h.chunk, nil
}

// Bytes returns the chunk memory.
func (h *ChunkHolder) Bytes() ([]byte, error) {
	if h.chunk.Reclaimed() {
		return nil, ErrUseAfterReclaim
	}
	return h.chunk.Bytes(), nil
}

// Address returns the native address of the chunk.
func (h *ChunkHolder) Address() (uintptr, error) {
	if h.chunk.Reclaimed() {
		return 0, ErrUseAfterReclaim
	}
	return h.chunk.addr, nil
}

// Size returns the chunk size in bytes.
func (h *ChunkHolder) Size() int64 { return h.chunk.size }

// IsLive reports whether the chunk is still owned by this holder.
func (h *ChunkHolder) IsLive() bool { return !h.chunk.Reclaimed() }

// IsRegistered reports whether the holder is tracked for automatic reclamation.
func (h *ChunkHolder) IsRegistered() bool { return h.reg != nil && !h.reg.Claimed() }

// Allocator returns the allocator that created the holder.
func (h *ChunkHolder) Allocator() Allocator { return h.alloc }

// Destroy reclaims the chunk now. A second Destroy returns ErrUseAfterReclaim.
func (h *ChunkHolder) Destroy() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer runtime.KeepAlive(h)

	if h.chunk.Reclaimed() {
		return ErrUseAfterReclaim
	}
	if h.reg != nil {
		h.alloc.chunks.Unregister(h.reg)
	}
	return h.alloc.reclaimChunk(h.chunk, true)
}
