package mmap

import (
	"sync/atomic"
	"unsafe"
)

// Mapping is an anonymous, read-write region of memory outside the Go heap.
// It owns the underlying byte slice and is responsible for unmapping it.
type Mapping struct {
	data   []byte
	size   int
	closed atomic.Bool
	// unmap is the platform-specific function to release the memory.
	unmap func([]byte) error
}

// MapAnon reserves size bytes of zeroed, private memory from the OS.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	data, unmapFunc, err := osMapAnon(size)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:  data,
		size:  size,
		unmap: unmapFunc,
	}, nil
}

// Remap resizes the mapping to newSize bytes and returns the mapping that now
// owns the memory. Contents up to min(old, new) are preserved and grown bytes
// are zero. The address may change.
//
// On success the receiver is closed without releasing anything; the memory
// belongs to the returned Mapping. On failure the receiver is left untouched.
// Remap must not race with Close on the same mapping.
func (m *Mapping) Remap(newSize int) (*Mapping, error) {
	if newSize <= 0 {
		return nil, ErrInvalidSize
	}
	if m.closed.Load() {
		return nil, ErrClosed
	}

	data, unmapFunc, err := osRemap(m.data, m.unmap, newSize)
	if err != nil {
		return nil, err
	}

	m.closed.Store(true)
	m.data = nil

	return &Mapping{
		data:  data,
		size:  newSize,
		unmap: unmapFunc,
	}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil // Already closed or moved by Remap
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}

// Closed reports whether the mapping was closed or moved.
func (m *Mapping) Closed() bool {
	return m.closed.Load()
}

// Bytes returns the underlying byte slice.
// Warning: The slice is valid only until Close() or Remap() is called.
// Accessing the slice afterwards results in undefined behavior (likely a crash).
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Addr returns the base address of the mapping, or 0 once it is closed.
func (m *Mapping) Addr() uintptr {
	if m.closed.Load() || len(m.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(m.data))) //nolint:gosec // address is used as an identity only
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return osAdvise(m.data, pattern)
}
