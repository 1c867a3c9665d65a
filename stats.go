package sysmem

import "fmt"

// Stats contains runtime statistics for the allocator.
type Stats struct {
	Capacity       int64
	UsedBytes      int64
	AvailableBytes int64
	LiveResources  int64  // ledger entries
	TrackedChunks  uint64 // auto-reclaimed chunks not yet collected
	TrackedBuffers uint64
	Reclaimed      uint64 // reclamations run by the collectors
	ReclaimFailed  uint64
	ActiveReclaim  bool
	Closed         bool
}

// Stats returns the current allocator statistics.
func (a *SysAllocator) Stats() Stats {
	// No lock needed: every source is atomic or internally synchronized.
	active, _ := a.ActiveGC()
	return Stats{
		Capacity:       a.ledger.Capacity(),
		UsedBytes:      a.ledger.Used(),
		AvailableBytes: a.ledger.Available(),
		LiveResources:  a.ledger.Entries(),
		TrackedChunks:  a.chunks.Tracked(),
		TrackedBuffers: a.buffers.Tracked(),
		Reclaimed:      a.chunks.Reclaimed() + a.buffers.Reclaimed(),
		ReclaimFailed:  a.chunks.Failures() + a.buffers.Failures(),
		ActiveReclaim:  active,
		Closed:         a.closed.Load(),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("used=%d/%d live=%d tracked=%d/%d reclaimed=%d failed=%d active=%t closed=%t",
		s.UsedBytes, s.Capacity, s.LiveResources, s.TrackedChunks, s.TrackedBuffers,
		s.Reclaimed, s.ReclaimFailed, s.ActiveReclaim, s.Closed)
}
