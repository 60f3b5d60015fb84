package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

// ErrLimited is returned when no token becomes available within the
// bounded wait. The orchestrator treats it as a per-provider failure.
var ErrLimited = errors.New("rate limit exceeded for provider")

// DefaultMaxWait bounds how long Acquire blocks for a token before
// failing fast.
const DefaultMaxWait = 250 * time.Millisecond

type bucket struct {
	mu      sync.Mutex
	tokens  float64
	lastRef time.Time
}

// Limiter gates outbound provider calls with one token bucket per
// provider. Capacity equals the provider's per-minute limit; refill runs
// at rpm/60 tokens per second.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	maxWait time.Duration
	now     func() time.Time
}

func New() *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		maxWait: DefaultMaxWait,
		now:     time.Now,
	}
}

// NewWithWait builds a limiter with an explicit bounded wait.
func NewWithWait(maxWait time.Duration) *Limiter {
	l := New()
	l.maxWait = maxWait
	return l
}

func (l *Limiter) bucketFor(providerID string, capacity float64) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[providerID]
	if b == nil {
		b = &bucket{tokens: capacity, lastRef: l.now()}
		l.buckets[providerID] = b
	}
	return b
}

// Acquire takes one token for the provider, waiting up to the bounded
// maximum. rpm <= 0 disables limiting for that provider.
func (l *Limiter) Acquire(ctx context.Context, providerID string, rpm int) error {
	if rpm <= 0 {
		return nil
	}

	capacity := float64(rpm)
	rate := capacity / 60.0
	b := l.bucketFor(providerID, capacity)

	wait, ok := b.take(capacity, rate, l.now())
	if ok {
		return nil
	}
	if wait > l.maxWait {
		return ErrLimited
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if _, ok := b.take(capacity, rate, l.now()); ok {
		return nil
	}
	// Another caller consumed the refill during our wait.
	return ErrLimited
}

// take refills lazily and attempts to consume one token. When empty it
// returns the wait needed for the next token.
func (b *bucket) take(capacity, rate float64, now time.Time) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.lastRef).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(capacity, b.tokens+elapsed*rate)
		b.lastRef = now
	}

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return 0, true
	}

	needed := 1.0 - b.tokens
	return time.Duration(needed / rate * float64(time.Second)), false
}
