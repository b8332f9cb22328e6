package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(timeout time.Duration) (*Guard, *time.Time) {
	g := New(timeout)
	current := time.Now()
	g.now = func() time.Time { return current }
	return g, &current
}

func TestAcquireRejectsDuplicateWithinTimeout(t *testing.T) {
	g, _ := newTestGuard(30 * time.Second)
	key := Fingerprint("POST", "/api/v1/negotiations", "user-1", "body-hash")

	_, ok := g.Acquire(key)
	require.True(t, ok)

	retryAfter, ok := g.Acquire(key)
	require.False(t, ok)
	assert.Equal(t, 30*time.Second, retryAfter)
}

func TestAcquireAfterRelease(t *testing.T) {
	g, _ := newTestGuard(30 * time.Second)
	key := Fingerprint("POST", "/api/v1/negotiations", "user-1")

	_, ok := g.Acquire(key)
	require.True(t, ok)
	g.Release(key)

	_, ok = g.Acquire(key)
	assert.True(t, ok)
}

func TestAcquireReplacesStaleEntry(t *testing.T) {
	g, current := newTestGuard(30 * time.Second)
	key := Fingerprint("POST", "/x")

	_, ok := g.Acquire(key)
	require.True(t, ok)

	*current = current.Add(31 * time.Second)
	_, ok = g.Acquire(key)
	assert.True(t, ok, "stale entry should not block a fresh request")
}

func TestRetryAfterShrinksWithAge(t *testing.T) {
	g, current := newTestGuard(30 * time.Second)
	key := Fingerprint("POST", "/y")

	_, ok := g.Acquire(key)
	require.True(t, ok)

	*current = current.Add(10 * time.Second)
	retryAfter, ok := g.Acquire(key)
	require.False(t, ok)
	assert.Equal(t, 20*time.Second, retryAfter)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	g, current := newTestGuard(30 * time.Second)

	_, ok := g.Acquire("old")
	require.True(t, ok)

	*current = current.Add(31 * time.Second)
	_, ok = g.Acquire("fresh")
	require.True(t, ok)

	removed := g.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, g.Len())

	_, ok = g.Acquire("old")
	assert.True(t, ok)
}

func TestFingerprintIsStableAndDistinct(t *testing.T) {
	a := Fingerprint("POST", "/api/v1/negotiations", "user-1")
	b := Fingerprint("POST", "/api/v1/negotiations", "user-1")
	c := Fingerprint("POST", "/api/v1/negotiations", "user-2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
