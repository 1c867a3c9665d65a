// Package ledger implements the capacity accounting of a memory pool.
//
// The ledger combines three pieces of state, all owned by one pool instance:
//
//   - Ceiling: a weighted semaphore sized to the pool capacity (fail-fast)
//   - Used: an atomic counter of committed bytes
//   - Sizes: a concurrent resource id → size table
//
// Resources are keyed by an allocator-assigned id rather than by address:
// a region moved by a resize may have its old address handed out again
// before the old entry is released.
//
// # Usage
//
//	l, _ := ledger.New(1 << 20)
//
//	if err := l.Reserve(4096); err != nil {
//	    // ErrCapacityExceeded - caller decides whether to wait for reclamation
//	}
//	if err := l.Commit(id, 4096); err != nil { ... }
//
//	// later, exactly once per id
//	size, ok := l.Release(id)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Each id is committed and
// released only by the goroutine handling that resource, so races across
// different keys are benign.
package ledger
