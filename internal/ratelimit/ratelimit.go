// Package ratelimit provides token bucket rate limiting, per bucket and per
// key (client IP).
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// noRefillRetry is reported by RetryAfter when a bucket never refills.
const noRefillRetry = time.Hour

// Limiter is a token bucket: it holds up to burst tokens, gains refillRate
// tokens per second and spends one per allowed request.
// It is safe for concurrent use.
type Limiter struct {
	mu         sync.Mutex
	now        func() time.Time
	tokens     float64
	burst      float64
	refillRate float64
	updated    time.Time
}

// New creates a full bucket.
func New(burst, refillRate float64) *Limiter {
	return newWithClock(burst, refillRate, time.Now)
}

func newWithClock(burst, refillRate float64, now func() time.Time) *Limiter {
	return &Limiter{
		now:        now,
		tokens:     burst,
		burst:      burst,
		refillRate: refillRate,
		updated:    now(),
	}
}

// advance credits the tokens earned since the last update. Caller holds mu.
func (l *Limiter) advance() {
	t := l.now()
	if elapsed := t.Sub(l.updated).Seconds(); elapsed > 0 {
		l.tokens = math.Min(l.burst, l.tokens+elapsed*l.refillRate)
	}
	l.updated = t
}

// Allow spends a token if one is available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance()
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// RetryAfter is the wait until the next token, rounded up to whole seconds
// for the Retry-After header. Zero means a request would be allowed now.
func (l *Limiter) RetryAfter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance()
	switch {
	case l.tokens >= 1:
		return 0
	case l.refillRate <= 0:
		return noRefillRetry
	}
	return time.Duration(math.Ceil((1-l.tokens)/l.refillRate)) * time.Second
}

// Available returns the current token count.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance()
	return l.tokens
}

// IsFull reports whether the bucket is back at burst, which means its client
// has been idle long enough to be forgotten.
func (l *Limiter) IsFull() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advance()
	return l.tokens >= l.burst
}
