// Package mmap provides anonymous memory mappings used as native, off-heap
// storage.
//
// # Overview
//
// Memory handed out by the allocator must live outside the Go heap so that
// its lifetime is governed by explicit reclamation rather than by the garbage
// collector. Each Mapping owns exactly one OS region:
//
//	m, err := mmap.MapAnon(4096)
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//
//	// Resize, possibly moving the region
//	m, err = m.Remap(8192)
//
// # Platform Support
//
//   - Linux: mmap(2), mremap(2) with MREMAP_MAYMOVE, madvise(2)
//   - Other Unix (macOS, BSD): mmap(2); Remap maps, copies and unmaps
//   - Windows: VirtualAlloc/VirtualFree; Remap maps, copies and frees
//
// # Thread Safety
//
// Close is idempotent and protected by atomic operations. Remap must not race
// with Close on the same mapping, and callers must ensure no goroutine touches
// Bytes() after the mapping was closed or moved.
package mmap
