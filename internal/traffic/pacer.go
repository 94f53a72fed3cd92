package traffic

import (
	"context"
	"sync"
	"time"
)

// DefaultMinRequestInterval is the default spacing between outbound provider
// requests (at most 4 requests per second).
const DefaultMinRequestInterval = 250 * time.Millisecond

// Pacer enforces a minimum interval between outbound requests to an external
// API. It is a per-adapter-instance monotonic clock check-and-sleep, not a
// token bucket: requests are never queued or batched, only delayed.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewPacer creates a pacer with the given minimum interval.
// A zero or negative interval falls back to DefaultMinRequestInterval.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = DefaultMinRequestInterval
	}
	return &Pacer{interval: interval}
}

// Wait blocks until at least the configured interval has elapsed since the
// previous call, then records the current time. Concurrent callers are
// serialized so the spacing holds across them. Returns early with the
// context error if ctx is cancelled while waiting.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if wait := p.interval - time.Since(p.last); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	p.last = time.Now()
	return nil
}
