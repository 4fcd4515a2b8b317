// Package ratelimit provides the token bucket that paces probe requests and
// throttles the practice target.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Bucket is a token bucket. It is safe for concurrent use.
//
// Wait reserves a token even when none is available yet, so the balance may
// go negative; concurrent waiters are then spaced 1/rate apart instead of all
// waking at once.
type Bucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	rate       float64 // tokens per second
	lastUpdate time.Time
	now        func() time.Time
}

// BucketStats contains token bucket statistics.
type BucketStats struct {
	Available float64 `json:"available"`
	Max       float64 `json:"max"`
	Rate      float64 `json:"rate"`
}

// NewBucket creates a bucket refilled at rate tokens per second holding at
// most burst tokens. A burst <= 0 holds one second of tokens, and never less
// than one. The bucket starts full. rate must be positive.
func NewBucket(rate float64, burst int) *Bucket {
	maxTokens := float64(burst)
	if maxTokens <= 0 {
		maxTokens = max(rate, 1)
	}
	b := &Bucket{
		tokens:    maxTokens,
		maxTokens: maxTokens,
		rate:      rate,
		now:       time.Now,
	}
	b.lastUpdate = b.now()
	return b
}

// refill adds tokens based on elapsed time. Caller must hold b.mu.
func (b *Bucket) refill() {
	now := b.now()
	b.tokens += now.Sub(b.lastUpdate).Seconds() * b.rate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastUpdate = now
}

// Allow consumes a token if one is available.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// reserve takes a token and returns how long the caller must wait for it.
func (b *Bucket) reserve() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	b.tokens--
	if b.tokens >= 0 {
		return 0
	}
	return time.Duration(-b.tokens / b.rate * float64(time.Second))
}

// Wait blocks until a token is available or ctx is done. A cancelled wait
// returns its reservation.
func (b *Bucket) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := b.reserve()
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		b.mu.Lock()
		b.tokens++
		b.mu.Unlock()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Available returns the current balance including time-based refill. It is
// negative while waiters hold reservations.
func (b *Bucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	return b.tokens
}

// Stats returns the current bucket statistics.
func (b *Bucket) Stats() BucketStats {
	return BucketStats{
		Available: b.Available(),
		Max:       b.maxTokens,
		Rate:      b.rate,
	}
}
