package limiter

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Gate bounds both the number of in-flight model calls and the per-minute
// request rate, process-wide. It is passed by reference into every
// component that issues external calls; there is no ambient singleton, so
// tests can substitute a permissive gate.
type Gate struct {
	limiter *rate.Limiter
	slots   *semaphore.Weighted
}

// New creates a Gate allowing up to maxConcurrent in-flight calls and
// callsPerMinute requests per minute. The burst is kept small so a newly
// started run cannot front-load a minute's worth of requests.
func New(maxConcurrent, callsPerMinute int) *Gate {
	burst := callsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &Gate{
		limiter: rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), burst),
		slots:   semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Unlimited returns a Gate that never blocks, for tests.
func Unlimited() *Gate {
	return &Gate{
		limiter: rate.NewLimiter(rate.Inf, 1),
		slots:   semaphore.NewWeighted(1 << 30),
	}
}

// Acquire blocks until both a concurrency slot and a rate token are
// available, or the context is done. Callers must Release the returned
// slot exactly once. The semaphore is FIFO, so waiting callers are served
// in arrival order.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	if err := g.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring call slot: %w", err)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		g.slots.Release(1)
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return func() { g.slots.Release(1) }, nil
}
