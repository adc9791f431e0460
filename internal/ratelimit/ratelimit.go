// Package ratelimit wraps golang.org/x/time/rate for throttling
// outbound RPC calls against rate-limited endpoints.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with the small surface the venue clients
// need.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond with the given
// burst. A burst below 1 is raised to 1.
func New(requestsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether an event may happen now without blocking.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Tokens returns the number of currently available tokens.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}
