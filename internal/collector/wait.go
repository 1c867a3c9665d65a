package collector

import (
	"context"
	"runtime"
	"time"
)

// CoolDowner exposes the completion signal of a reclamation pipeline.
type CoolDowner interface {
	CoolDown() <-chan struct{}
}

// WaitAny is WaitReclaimCoolDown over several collectors: it forces one
// garbage collection and returns true as soon as any of them completes a
// reclamation batch. A single bounded attempt; it never retries.
func WaitAny(ctx context.Context, timeout time.Duration, cs ...CoolDowner) bool {
	if len(cs) == 0 || timeout <= 0 {
		return false
	}

	// Capture the signals before collecting so a batch finishing during GC is seen.
	signals := make([]<-chan struct{}, 0, len(cs))
	for _, c := range cs {
		signals = append(signals, c.CoolDown())
	}

	runtime.GC()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if len(signals) == 1 {
		select {
		case <-signals[0]:
			return true
		case <-ctx.Done():
			return false
		}
	}

	fired := make(chan struct{}, len(signals))
	for _, s := range signals {
		go func(s <-chan struct{}) {
			select {
			case <-s:
				fired <- struct{}{}
			case <-ctx.Done():
			}
		}(s)
	}

	select {
	case <-fired:
		return true
	case <-ctx.Done():
		return false
	}
}
