// Package sysmem provides a capacity-bounded allocator for volatile native
// memory.
//
// Memory is obtained from the operating system outside the Go heap and handed
// out as raw chunks or as buffers with a position/limit window. Every byte is
// accounted against a fixed capacity.
//
// # Quick Start
//
//	pool, _ := sysmem.New(64 << 20)
//	defer pool.Close()
//
//	h, err := pool.CreateChunk(4096, true)
//	if err != nil {
//	    // errors.Is(err, sysmem.ErrCapacityExceeded) when the pool is full
//	}
//	data, _ := h.Bytes()
//	copy(data, payload)
//	_ = h.Destroy()
//
// # Reclamation
//
// A holder created with autoReclaim is tracked by a collector. When the
// holder becomes unreachable the garbage collector reports it and the
// collector releases the memory and its accounting on a background
// goroutine. Holders can always be destroyed explicitly; each resource is
// reclaimed exactly once.
//
// With active reclaim (the default), a request that does not fit forces a
// garbage collection and waits up to the reclaim timeout for a reclamation
// before failing:
//
//	pool, _ := sysmem.New(1<<30,
//	    sysmem.WithReclaimTimeout(250*time.Millisecond),
//	)
//	pool.DisableActiveGC() // fail fast instead
//
// Byte slices obtained from a holder are only valid while the holder is
// reachable. Keep the holder alive (runtime.KeepAlive) until the last access.
//
// # Resizing
//
// ResizeChunk and ResizeBuffer move the contents into a region of the new
// size and return a new holder. A failed resize leaves the old holder intact;
// a successful one retires it.
//
// # Persistence
//
// The allocator is volatile. Sync, SyncChunk, SyncBuffer and SyncAll always
// return ErrUnsupportedOperation.
//
// # Observability
//
// WithLogger accepts a *Logger wrapping log/slog; WithMetricsObserver accepts
// any MetricsObserver. Package metric provides a Prometheus implementation.
package sysmem
