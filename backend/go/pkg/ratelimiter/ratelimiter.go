package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is the interface for rate limiting.
// It defines a single method, Allow, which returns true if a request is allowed,
// and false otherwise.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// KeyedRateLimiter limits each key (typically a client address) independently.
type KeyedRateLimiter interface {
	AllowKey(key string) bool
}

// Keyed hands out one limiter per key, created lazily.
// Token bucket keys get a rate.Limiter of their own driven by the Keyed clock;
// other algorithms come from factory.
// Limiters idle for longer than idleTTL are dropped on the next sweep.
type Keyed struct {
	factory   func() RateLimiter
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	mutex     sync.Mutex
	limiters  map[string]*keyedEntry
	lastSweep time.Time
}

type keyedEntry struct {
	limiter  RateLimiter
	lastSeen time.Time
}

// NewKeyed creates a Keyed limiter whose per-key limiters are built by factory.
func NewKeyed(factory func() RateLimiter, idleTTL time.Duration) *Keyed {
	return &Keyed{
		factory:   factory,
		idleTTL:   idleTTL,
		now:       time.Now,
		limiters:  make(map[string]*keyedEntry),
		lastSweep: time.Now(),
	}
}

// NewKeyedTokenBucket creates a Keyed limiter that gives every key a token bucket
// refilling at r tokens per second with room for burst tokens.
func NewKeyedTokenBucket(r float64, burst int, idleTTL time.Duration) *Keyed {
	k := NewKeyed(nil, idleTTL)
	k.limit = rate.Limit(r)
	k.burst = burst
	return k
}

// AllowKey reports whether a request for key is allowed.
func (k *Keyed) AllowKey(key string) bool {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	now := k.now()
	if k.idleTTL > 0 && now.Sub(k.lastSweep) > k.idleTTL {
		for id, e := range k.limiters {
			if now.Sub(e.lastSeen) > k.idleTTL {
				delete(k.limiters, id)
			}
		}
		k.lastSweep = now
	}

	e, ok := k.limiters[key]
	if !ok {
		e = &keyedEntry{limiter: k.newLimiter()}
		k.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.Allow()
}

func (k *Keyed) newLimiter() RateLimiter {
	if k.factory != nil {
		return k.factory()
	}
	return &TokenBucket{limiter: rate.NewLimiter(k.limit, k.burst), now: func() time.Time { return k.now() }}
}

// Len returns the number of tracked keys.
func (k *Keyed) Len() int {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	return len(k.limiters)
}
