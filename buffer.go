package sysmem

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/sysmem/internal/collector"
	"github.com/hupe1980/sysmem/internal/mmap"
)

// Buffer is a native byte range with a position/limit view window,
// 0 <= position <= limit <= capacity.
//
// Like a direct byte buffer, a Buffer is not safe for concurrent mutation of
// its window.
type Buffer struct {
	mapping  *mmap.Mapping
	id       uint64
	addr     uintptr
	capacity int
	position int
	limit    int
	retired  atomic.Bool
}

func newBuffer(id uint64, m *mmap.Mapping) *Buffer {
	return &Buffer{
		mapping:  m,
		id:       id,
		addr:     m.Addr(),
		capacity: m.Size(),
		limit:    m.Size(),
	}
}

// Address returns the native base address of the buffer.
func (b *Buffer) Address() uintptr { return b.addr }

// Capacity returns the size of the buffer in bytes.
func (b *Buffer) Capacity() int { return b.capacity }

// Size returns the capacity as the pool accounts it.
func (b *Buffer) Size() int64 { return int64(b.capacity) }

// Position returns the index of the next byte to be read or written.
func (b *Buffer) Position() int { return b.position }

// Limit returns the index of the first byte that should not be read or written.
func (b *Buffer) Limit() int { return b.limit }

// Remaining returns limit - position.
func (b *Buffer) Remaining() int { return b.limit - b.position }

// SetPosition moves the position; it must lie within [0, limit].
func (b *Buffer) SetPosition(pos int) error {
	if pos < 0 || pos > b.limit {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidPosition, pos, b.limit)
	}
	b.position = pos
	return nil
}

// SetLimit moves the limit; it must lie within [0, capacity]. A position
// beyond the new limit is pulled back to it.
func (b *Buffer) SetLimit(limit int) error {
	if limit < 0 || limit > b.capacity {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidLimit, limit, b.capacity)
	}
	b.limit = limit
	if b.position > limit {
		b.position = limit
	}
	return nil
}

// Clear resets the window to the whole buffer.
func (b *Buffer) Clear() {
	b.position = 0
	b.limit = b.capacity
}

// Flip sets the limit to the current position and rewinds the position.
func (b *Buffer) Flip() {
	b.limit = b.position
	b.position = 0
}

// Bytes returns the whole buffer memory regardless of the window, or nil
// once the memory was released.
func (b *Buffer) Bytes() []byte { return b.mapping.Bytes() }

// Window returns the bytes between position and limit.
func (b *Buffer) Window() []byte {
	data := b.mapping.Bytes()
	if data == nil {
		return nil
	}
	return data[b.position:b.limit]
}

// Reclaimed reports whether the buffer left the pool.
func (b *Buffer) Reclaimed() bool { return b.retired.Load() }

// Release frees the memory of a reclaimed buffer. It is meant for
// BufferReclaimer implementations that kept a buffer.
func (b *Buffer) Release() error {
	if !b.retired.Load() {
		return ErrLiveResource
	}
	return b.mapping.Close()
}

func (b *Buffer) retire() bool {
	return b.retired.CompareAndSwap(false, true)
}

// preservedWindow computes the window of a buffer resized to newSize: a
// position or limit that still fits is kept, otherwise the position falls
// back to 0 and the limit to newSize.
func preservedWindow(position, limit, newSize int) (int, int) {
	if position > newSize {
		position = 0
	}
	if limit > newSize {
		limit = newSize
	}
	return position, limit
}

// BufferHolder owns one buffer until it is destroyed, resized or collected.
//
// Memory returned by Bytes is valid only while the holder is reachable.
type BufferHolder struct {
	mu     sync.Mutex
	alloc  *SysAllocator
	buffer *Buffer
	reg    *collector.Registration[*Buffer]
}

// Buffer returns the held buffer.
func (h *BufferHolder) Buffer() (*Buffer, error) {
	if h.buffer.Reclaimed() {
		return nil, ErrUseAfterReclaim
	}
	return h.buffer, nil
}

// Bytes returns the whole buffer memory.
func (h *BufferHolder) Bytes() ([]byte, error) {
	if h.buffer.Reclaimed() {
		return nil, ErrUseAfterReclaim
	}
	return h.buffer.Bytes(), nil
}

// Size returns the buffer capacity in bytes.
func (h *BufferHolder) Size() int64 { return h.buffer.Size() }

// IsLive reports whether the buffer is still owned by this holder.
func (h *BufferHolder) IsLive() bool { return !h.buffer.Reclaimed() }

// IsRegistered reports whether the holder is tracked for automatic reclamation.
func (h *BufferHolder) IsRegistered() bool { return h.reg != nil && !h.reg.Claimed() }

// Allocator returns the allocator that created the holder.
func (h *BufferHolder) Allocator() Allocator { return h.alloc }

// Destroy reclaims the buffer now. A second Destroy returns ErrUseAfterReclaim.
func (h *BufferHolder) Destroy() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer runtime.KeepAlive(h)

	if h.buffer.Reclaimed() {
		return ErrUseAfterReclaim
	}
	if h.reg != nil {
		h.alloc.buffers.Unregister(h.reg)
	}
	return h.alloc.reclaimBuffer(h.buffer, true)
}
