// Package ratelimit provides token-bucket rate limiting for the admin
// surface.
//
// Two levels are offered: Bucket is a single token bucket for pacing one
// caller (the CLI watch command uses it to pace stream reconnects), and
// PerIPLimiter tracks an independent bucket per client IP for HTTP
// middleware duty in front of the admin API.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Bucket is a token bucket. It refills continuously at a fixed rate up to
// its burst capacity and is safe for concurrent use.
type Bucket struct {
	mu     sync.Mutex
	tokens float64
	burst  float64
	rate   float64 // tokens per second
	last   time.Time
}

// NewBucket returns a bucket refilling at rate tokens per second with the
// given burst capacity. A non-positive burst defaults to the rate. The
// bucket starts full.
func NewBucket(rate float64, burst int) *Bucket {
	b := float64(burst)
	if b <= 0 {
		b = rate
	}
	return &Bucket{tokens: b, burst: b, rate: rate, last: time.Now()}
}

// refill credits tokens for the time elapsed since the last update.
// Callers must hold mu.
func (b *Bucket) refill(now time.Time) {
	b.tokens += now.Sub(b.last).Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.last = now
}

// Allow consumes one token if one is available.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(time.Now())
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Wait blocks until a token can be consumed or ctx ends.
func (b *Bucket) Wait(ctx context.Context) error {
	b.mu.Lock()
	b.refill(time.Now())
	if b.tokens >= 1 {
		b.tokens--
		b.mu.Unlock()
		return nil
	}
	wait := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
	b.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		// The token that accrued during the wait is the one consumed.
		b.mu.Lock()
		b.tokens = 0
		b.last = time.Now()
		b.mu.Unlock()
		return nil
	}
}

// Available reports the tokens currently available, including refill since
// the last consumption.
func (b *Bucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(time.Now())
	return b.tokens
}

// Reset refills the bucket to burst capacity.
func (b *Bucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = b.burst
	b.last = time.Now()
}
