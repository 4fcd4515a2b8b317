package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives a bucket's refill deterministically.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeBucket(rate float64, burst int) (*Bucket, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewBucket(rate, burst)
	b.now = clock.now
	b.lastUpdate = clock.now()
	return b, clock
}

func TestNewBucket(t *testing.T) {
	t.Parallel()

	stats := NewBucket(50, 10).Stats()
	assert.Equal(t, 50.0, stats.Rate)
	assert.Equal(t, 10.0, stats.Max)
	assert.InDelta(t, 10, stats.Available, 0.1)

	// Zero burst holds one second of tokens.
	assert.Equal(t, 25.0, NewBucket(25, 0).Stats().Max)

	// Slow rates still allow one request.
	assert.Equal(t, 1.0, NewBucket(0.5, 0).Stats().Max)
}

func TestAllow(t *testing.T) {
	t.Parallel()
	b, clock := newFakeBucket(2, 2)

	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())

	clock.advance(250 * time.Millisecond)
	assert.False(t, b.Allow(), "half a token is not enough")

	clock.advance(250 * time.Millisecond)
	assert.True(t, b.Allow())

	clock.advance(10 * time.Second)
	assert.Equal(t, 2.0, b.Available(), "refill is capped at the burst")
}

func TestWait_Immediate(t *testing.T) {
	t.Parallel()
	b := NewBucket(1, 3)

	start := time.Now()
	for range 3 {
		require.NoError(t, b.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWait_SpacesConcurrentWaiters(t *testing.T) {
	t.Parallel()
	b := NewBucket(20, 1)

	start := time.Now()
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Wait(context.Background()))
		}()
	}
	wg.Wait()

	// One token up front, then four more at 50ms intervals.
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}

func TestWait_Cancelled(t *testing.T) {
	t.Parallel()
	b := NewBucket(0.1, 1)
	require.True(t, b.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The reservation was returned.
	assert.InDelta(t, 0, b.Available(), 0.01)

	done, stop := context.WithCancel(context.Background())
	stop()
	assert.ErrorIs(t, b.Wait(done), context.Canceled)
}
