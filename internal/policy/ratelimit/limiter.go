// Package ratelimit implements a token bucket pacer for calls to rate-limited
// upstream services such as the relevance classifier.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/ocean-news/internal/metrics"
)

// Limiter spaces calls so that at most Burst happen back to back and the
// rest are released one per Interval.
type Limiter struct {
	limiter *rate.Limiter
}

// Config holds rate limiter configuration.
type Config struct {
	// Interval between tokens. Zero or negative disables pacing.
	Interval time.Duration
	Burst    int
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Inf
	if cfg.Interval > 0 {
		r = rate.Every(cfg.Interval)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(r, burst)}
}

// Unlimited returns a Limiter that never waits.
func Unlimited() *Limiter {
	return New(Config{})
}

// Wait blocks until a token is available, respecting the context.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	// Measuring the whole Wait call is a good proxy for the delay introduced
	// by the limiter; an immediately available token costs ~0.
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveClassifierPacing(d)
	}
	return nil
}
