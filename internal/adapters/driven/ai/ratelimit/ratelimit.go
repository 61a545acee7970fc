// Package ratelimit throttles calls to AI providers.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBackoff is used when a provider rejects a call without saying
// when to retry.
const DefaultBackoff = 30 * time.Second

// Limiter is a token bucket shared by every caller of one provider, with a
// backoff window set after the provider reports a rate limit.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// New creates a limiter allowing requestsPerSecond sustained calls.
// A burst of one keeps concurrent workers from stampeding the provider.
func New(requestsPerSecond float64) *Limiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// Wait blocks until a call can be made, honouring any backoff window.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	wait := l.retryAt.Sub(l.now())
	l.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// Backoff delays every caller until retryAfter has passed.
// A non-positive duration uses DefaultBackoff.
func (l *Limiter) Backoff(retryAfter time.Duration) {
	if l == nil {
		return
	}
	if retryAfter <= 0 {
		retryAfter = DefaultBackoff
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if at := l.now().Add(retryAfter); at.After(l.retryAt) {
		l.retryAt = at
	}
}

// RetryAt returns the end of the current backoff window.
func (l *Limiter) RetryAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retryAt
}
