package ratelimiter

import (
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket implements the RateLimiter interface on top of rate.Limiter.
// It allows for bursts of requests up to the bucket's capacity.
type TokenBucket struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewTokenBucket creates a new TokenBucket that starts full.
// rate: the number of tokens to generate per second.
// capacity: the maximum number of tokens (burst size).
func NewTokenBucket(r float64, capacity int) *TokenBucket {
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(r), capacity),
		now:     time.Now,
	}
}

// Allow consumes one token if one is available at the current time.
func (tb *TokenBucket) Allow() bool {
	return tb.limiter.AllowN(tb.now(), 1)
}
