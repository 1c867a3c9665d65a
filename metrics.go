package sysmem

import (
	"sync/atomic"
	"time"
)

// MetricsObserver defines an interface for observing allocator activity.
// Implement this interface to integrate with monitoring systems; package
// metric provides a Prometheus implementation.
//
// Callbacks may run concurrently and, for reclamation of collected holders,
// on a collector goroutine. They must not block.
type MetricsObserver interface {
	// OnAllocate is called after each create call.
	OnAllocate(kind ResourceKind, size int64, duration time.Duration, err error)

	// OnResize is called after each resize call.
	OnResize(kind ResourceKind, oldSize, newSize int64, duration time.Duration, err error)

	// OnReclaim is called after a resource was reclaimed. explicit is true
	// for Destroy and false for collected holders.
	OnReclaim(kind ResourceKind, size int64, explicit bool, err error)

	// OnBackpressure is called after a cool-down wait. satisfied reports
	// whether the request fit afterwards.
	OnBackpressure(kind ResourceKind, size int64, waited time.Duration, satisfied bool)

	// OnUsage reports the pool occupancy after it changed.
	OnUsage(used, capacity int64)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
// Use this when metrics collection is not needed.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnAllocate(ResourceKind, int64, time.Duration, error)      {}
func (NoopMetricsObserver) OnResize(ResourceKind, int64, int64, time.Duration, error) {}
func (NoopMetricsObserver) OnReclaim(ResourceKind, int64, bool, error)                {}
func (NoopMetricsObserver) OnBackpressure(ResourceKind, int64, time.Duration, bool)   {}
func (NoopMetricsObserver) OnUsage(int64, int64)                                      {}

// BasicMetricsObserver provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsObserver struct {
	AllocateCount      atomic.Int64
	AllocateErrors     atomic.Int64
	AllocateBytes      atomic.Int64
	AllocateTotalNanos atomic.Int64
	ResizeCount        atomic.Int64
	ResizeErrors       atomic.Int64
	ReclaimCount       atomic.Int64
	ReclaimExplicit    atomic.Int64
	ReclaimErrors      atomic.Int64
	ReclaimBytes       atomic.Int64
	BackpressureWaits  atomic.Int64
	BackpressureMisses atomic.Int64
	UsedBytes          atomic.Int64
	PeakUsedBytes      atomic.Int64
}

// OnAllocate implements MetricsObserver.
func (b *BasicMetricsObserver) OnAllocate(kind ResourceKind, size int64, duration time.Duration, err error) {
	b.AllocateCount.Add(1)
	b.AllocateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AllocateErrors.Add(1)
		return
	}
	b.AllocateBytes.Add(size)
}

// OnResize implements MetricsObserver.
func (b *BasicMetricsObserver) OnResize(kind ResourceKind, oldSize, newSize int64, duration time.Duration, err error) {
	b.ResizeCount.Add(1)
	if err != nil {
		b.ResizeErrors.Add(1)
	}
}

// OnReclaim implements MetricsObserver.
func (b *BasicMetricsObserver) OnReclaim(kind ResourceKind, size int64, explicit bool, err error) {
	b.ReclaimCount.Add(1)
	b.ReclaimBytes.Add(size)
	if explicit {
		b.ReclaimExplicit.Add(1)
	}
	if err != nil {
		b.ReclaimErrors.Add(1)
	}
}

// OnBackpressure implements MetricsObserver.
func (b *BasicMetricsObserver) OnBackpressure(kind ResourceKind, size int64, waited time.Duration, satisfied bool) {
	b.BackpressureWaits.Add(1)
	if !satisfied {
		b.BackpressureMisses.Add(1)
	}
}

// OnUsage implements MetricsObserver.
func (b *BasicMetricsObserver) OnUsage(used, capacity int64) {
	b.UsedBytes.Store(used)
	for {
		peak := b.PeakUsedBytes.Load()
		if used <= peak || b.PeakUsedBytes.CompareAndSwap(peak, used) {
			return
		}
	}
}
