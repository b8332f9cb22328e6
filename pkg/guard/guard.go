package guard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultTimeout bounds how long an in-flight fingerprint blocks repeats.
	DefaultTimeout = 30 * time.Second
	// DefaultSweepInterval is the cadence of the janitor pass that clears
	// entries whose completion hook never fired.
	DefaultSweepInterval = 60 * time.Second
)

// Guard is the process-local duplicate-request lock. It tracks the
// fingerprints of requests currently executing and rejects an identical
// request that arrives before the first one finishes or times out. It is a
// best-effort optimization: transactional state checks remain the
// correctness mechanism for concurrent mutations.
type Guard struct {
	mu       sync.Mutex
	inflight map[string]time.Time
	timeout  time.Duration
	now      func() time.Time
}

// New builds a guard with the given in-flight timeout.
func New(timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Guard{
		inflight: make(map[string]time.Time),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Fingerprint derives a stable key from the configured request parts.
// Empty parts are kept so that the same preset always hashes the same shape.
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Acquire registers the fingerprint when nothing identical is in flight.
// When a live entry exists it returns ok=false plus how long the caller
// should wait before retrying.
func (g *Guard) Acquire(key string) (retryAfter time.Duration, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if startedAt, exists := g.inflight[key]; exists {
		age := now.Sub(startedAt)
		if age < g.timeout {
			return g.timeout - age, false
		}
		// stale entry from a request whose completion hook never fired
	}
	g.inflight[key] = now
	return 0, true
}

// Release removes the fingerprint. Always invoked on request completion,
// whether the handler succeeded, failed, or the client went away.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, key)
}

// Sweep drops entries older than the timeout and reports how many were removed.
func (g *Guard) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	removed := 0
	for key, startedAt := range g.inflight {
		if now.Sub(startedAt) >= g.timeout {
			delete(g.inflight, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of registered fingerprints.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}

// Run sweeps on a fixed cadence until the context is canceled. onSweep, when
// provided, observes the number of entries removed per pass.
func (g *Guard) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := g.Sweep()
			if onSweep != nil {
				onSweep(removed)
			}
		}
	}
}
