package sysmem

// ResourceKind distinguishes chunks from buffers in logs and metrics.
type ResourceKind string

const (
	// KindChunk tags raw chunk resources.
	KindChunk ResourceKind = "chunk"
	// KindBuffer tags buffer resources.
	KindBuffer ResourceKind = "buffer"
)

// ChunkReclaimer can take over the release of reclaimed chunks, e.g. to pool
// and reuse native memory.
//
// ReclaimChunk is called once per reclaimed chunk, after the chunk left the
// pool's accounting. Returning true transfers ownership of the memory to the
// reclaimer, which must eventually call Chunk.Release. Returning false lets
// the allocator free the memory. A panic counts as false and is reported as
// a *ReclaimError.
type ChunkReclaimer interface {
	ReclaimChunk(c *Chunk, size int64) bool
}

// ChunkReclaimerFunc adapts a function to ChunkReclaimer.
type ChunkReclaimerFunc func(c *Chunk, size int64) bool

// ReclaimChunk implements ChunkReclaimer.
func (f ChunkReclaimerFunc) ReclaimChunk(c *Chunk, size int64) bool { return f(c, size) }

// BufferReclaimer is the buffer counterpart of ChunkReclaimer.
type BufferReclaimer interface {
	ReclaimBuffer(b *Buffer, size int64) bool
}

// BufferReclaimerFunc adapts a function to BufferReclaimer.
type BufferReclaimerFunc func(b *Buffer, size int64) bool

// ReclaimBuffer implements BufferReclaimer.
func (f BufferReclaimerFunc) ReclaimBuffer(b *Buffer, size int64) bool { return f(b, size) }
