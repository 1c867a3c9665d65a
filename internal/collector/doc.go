// Package collector implements deferred reclamation of native resources.
//
// A resource is registered together with the Go object that owns it. When
// the owner becomes unreachable, runtime.AddCleanup queues the registration
// and a sweeper goroutine invokes the reclaim callback:
//
//	c := collector.New[Holder, *Chunk](func(ch *Chunk, size int64) error {
//	    return ch.free()
//	})
//	reg, _ := c.Register(holder, chunk, size)
//
//	// Manual lifetime instead
//	if c.Unregister(reg) { chunk.free() }
//
// # Backpressure
//
// WaitReclaimCoolDown forces a garbage collection and waits, bounded by a
// timeout, for the next reclamation batch. Allocators use it once before
// failing a request that exceeds capacity.
//
// # Guarantees
//
//   - Each registration is reclaimed or unregistered at most once.
//   - Callbacks for collected owners run on the sweeper, never on the caller.
//   - A failing or panicking callback is reported (error handler, rate-limited
//     log) and does not affect other resources in the batch.
//   - After Close the sweeper keeps draining until nothing is tracked.
package collector
