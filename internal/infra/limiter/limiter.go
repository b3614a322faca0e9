// Package limiter bounds concurrent calls to external generation APIs with
// a semaphore plus a token-bucket rate limit.
package limiter

import (
	"context"

	"golang.org/x/time/rate"
)

type Limiter struct {
	semaphore   chan struct{}
	rateLimiter *rate.Limiter
}

// New builds a limiter allowing maxConcurrent in-flight calls at
// ratePerSecond sustained throughput. Sub-1/s rates are valid; burst is
// pinned to at least one so a single call can always proceed.
func New(maxConcurrent int, ratePerSecond float64) *Limiter {
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		semaphore:   make(chan struct{}, maxConcurrent),
		rateLimiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	if err := l.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	select {
	case l.semaphore <- struct{}{}:
		return func() { <-l.semaphore }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
