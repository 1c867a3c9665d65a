package ledger

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/cpu"
)

var (
	// ErrCapacityExceeded is returned when a reservation would exceed the capacity.
	ErrCapacityExceeded = errors.New("ledger: capacity exceeded")
	// ErrInvalidCapacity is returned when the ledger is created with a non-positive capacity.
	ErrInvalidCapacity = errors.New("ledger: invalid capacity")
	// ErrDuplicateEntry is returned when an id is committed twice.
	ErrDuplicateEntry = errors.New("ledger: duplicate entry")
)

// Ledger is the single source of truth for how much of a pool is occupied.
//
// Space moves through two steps: Reserve claims bytes against the capacity
// ceiling, then Commit binds the reservation to the id of the resource that
// now occupies it. Release undoes a commit exactly once per id;
// Cancel undoes a reservation that was never committed.
type Ledger struct {
	capacity int64

	// ceiling holds reserved and committed bytes; TryAcquire makes
	// check-and-reserve a single atomic step.
	ceiling *semaphore.Weighted

	_       cpu.CacheLinePad
	used    atomic.Int64
	_       cpu.CacheLinePad
	entries atomic.Int64

	sizes sync.Map // resource id -> int64
}

// New creates a ledger for a pool of capacity bytes.
func New(capacity int64) (*Ledger, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Ledger{
		capacity: capacity,
		ceiling:  semaphore.NewWeighted(capacity),
	}, nil
}

// Reserve attempts to claim size bytes.
// Non-blocking - callers control wait/backoff policy.
func (l *Ledger) Reserve(size int64) error {
	if size <= 0 {
		return nil
	}
	if !l.ceiling.TryAcquire(size) {
		return ErrCapacityExceeded
	}
	return nil
}

// Cancel returns a reservation that was never committed.
func (l *Ledger) Cancel(size int64) {
	if size <= 0 {
		return
	}
	l.ceiling.Release(size)
}

// Commit records size bytes under id and adds them to the used counter.
// The bytes must have been reserved before.
func (l *Ledger) Commit(id uint64, size int64) error {
	if _, loaded := l.sizes.LoadOrStore(id, size); loaded {
		return fmt.Errorf("%w: %d", ErrDuplicateEntry, id)
	}
	l.used.Add(size)
	l.entries.Add(1)
	return nil
}

// Release removes the entry for id and frees its bytes. It reports the
// recorded size and whether an entry existed; a second Release for the same
// id is a no-op.
func (l *Ledger) Release(id uint64) (int64, bool) {
	v, ok := l.sizes.LoadAndDelete(id)
	if !ok {
		return 0, false
	}
	size := v.(int64)
	l.used.Add(-size)
	l.entries.Add(-1)
	if size > 0 {
		l.ceiling.Release(size)
	}
	return size, true
}

// SizeOf returns the size recorded for id.
func (l *Ledger) SizeOf(id uint64) (int64, bool) {
	v, ok := l.sizes.Load(id)
	if !ok {
		return 0, false
	}
	return v.(int64), true
}

// Fits reports whether size more bytes would currently fit under the capacity.
// The answer is advisory; only Reserve is authoritative.
func (l *Ledger) Fits(size int64) bool {
	return l.used.Load()+size <= l.capacity
}

// Used returns the committed bytes.
func (l *Ledger) Used() int64 {
	return l.used.Load()
}

// Capacity returns the configured ceiling in bytes.
func (l *Ledger) Capacity() int64 {
	return l.capacity
}

// Available returns capacity minus committed bytes.
func (l *Ledger) Available() int64 {
	avail := l.capacity - l.used.Load()
	if avail < 0 {
		return 0
	}
	return avail
}

// Entries returns the number of committed entries.
func (l *Ledger) Entries() int64 {
	return l.entries.Load()
}

// Range calls fn for every committed entry until fn returns false.
func (l *Ledger) Range(fn func(id uint64, size int64) bool) {
	l.sizes.Range(func(k, v any) bool {
		return fn(k.(uint64), v.(int64))
	})
}
