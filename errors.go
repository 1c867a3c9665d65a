package sysmem

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is returned when a request would exceed the pool
	// capacity even after one reclamation cool-down.
	ErrCapacityExceeded = errors.New("sysmem: capacity exceeded")

	// ErrHostAllocation is returned when the operating system refuses to
	// allocate or reallocate native memory.
	ErrHostAllocation = errors.New("sysmem: host allocation failed")

	// ErrUnsupportedOperation is returned by every sync call: this allocator
	// is volatile and has no media to flush to.
	ErrUnsupportedOperation = errors.New("sysmem: operation not supported by volatile allocator")

	// ErrUseAfterReclaim is returned when a holder is used after its resource
	// was reclaimed.
	ErrUseAfterReclaim = errors.New("sysmem: use after reclaim")

	// ErrClosed is returned when creating or resizing on a closed allocator.
	ErrClosed = errors.New("sysmem: allocator closed")

	// ErrInvalidSize is returned for non-positive sizes or sizes the
	// platform cannot address.
	ErrInvalidSize = errors.New("sysmem: invalid size")

	// ErrInvalidCapacity is returned when an allocator is created with a
	// non-positive capacity.
	ErrInvalidCapacity = errors.New("sysmem: invalid capacity")

	// ErrForeignHolder is returned when a holder is passed to an allocator
	// that did not create it.
	ErrForeignHolder = errors.New("sysmem: holder belongs to another allocator")

	// ErrLiveResource is returned when Release is called on a resource that
	// was not reclaimed yet.
	ErrLiveResource = errors.New("sysmem: resource is still live")

	// ErrInvalidPosition is returned when a buffer position is outside [0, limit].
	ErrInvalidPosition = errors.New("sysmem: invalid buffer position")

	// ErrInvalidLimit is returned when a buffer limit is outside [0, capacity].
	ErrInvalidLimit = errors.New("sysmem: invalid buffer limit")
)

// ReclaimError describes a failure while reclaiming one resource.
//
// Reclaim errors never reach allocation callers: the ledger is updated
// regardless and the error is delivered to the reclaim error handler and the
// logger. Destroy returns it to the caller of an explicit reclamation.
//
// The original underlying error can be accessed via errors.Unwrap.
type ReclaimError struct {
	Kind    ResourceKind
	Address uintptr
	Size    int64
	cause   error
}

func (e *ReclaimError) Error() string {
	return fmt.Sprintf("sysmem: reclaim %s %#x (%d bytes): %v", e.Kind, e.Address, e.Size, e.cause)
}

func (e *ReclaimError) Unwrap() error { return e.cause }

func capacityError(kind ResourceKind, size, used, capacity int64) error {
	return fmt.Errorf("%w: %s of %d bytes, %d of %d in use", ErrCapacityExceeded, kind, size, used, capacity)
}
