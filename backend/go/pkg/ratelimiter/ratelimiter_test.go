package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestTokenBucketBurstAndRefill(t *testing.T) {
	c := &clock{t: time.Unix(100, 0)}
	tb := NewTokenBucket(2, 3)
	tb.now = c.now

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "burst request %d", i)
	}
	assert.False(t, tb.Allow())

	c.t = c.t.Add(500 * time.Millisecond)
	assert.True(t, tb.Allow(), "one token refilled after half a second at 2/s")
	assert.False(t, tb.Allow())

	c.t = c.t.Add(time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow())
	}
	assert.False(t, tb.Allow(), "refill is capped at capacity")
}

func TestFixedWindowCounter(t *testing.T) {
	c := &clock{t: time.Unix(100, 0)}
	fw := NewFixedWindowCounter(2, time.Minute)
	fw.now = c.now
	fw.windowStart = c.t

	assert.True(t, fw.Allow())
	assert.True(t, fw.Allow())
	assert.False(t, fw.Allow())

	c.t = c.t.Add(61 * time.Second)
	assert.True(t, fw.Allow())
}

func TestKeyedIsolatesKeysAndSweeps(t *testing.T) {
	c := &clock{t: time.Unix(100, 0)}
	k := NewKeyed(func() RateLimiter { return NewFixedWindowCounter(1, time.Hour) }, time.Minute)
	k.now = c.now
	k.lastSweep = c.t

	assert.True(t, k.AllowKey("10.0.0.1"))
	assert.False(t, k.AllowKey("10.0.0.1"))
	assert.True(t, k.AllowKey("10.0.0.2"))
	assert.Equal(t, 2, k.Len())

	c.t = c.t.Add(2 * time.Minute)
	assert.True(t, k.AllowKey("10.0.0.3"))
	assert.Equal(t, 1, k.Len(), "idle keys are dropped")
}

func TestKeyedTokenBucket(t *testing.T) {
	c := &clock{t: time.Unix(100, 0)}
	k := NewKeyedTokenBucket(1, 2, time.Minute)
	k.now = c.now
	k.lastSweep = c.t

	assert.True(t, k.AllowKey("10.0.0.1"))
	assert.True(t, k.AllowKey("10.0.0.1"))
	assert.False(t, k.AllowKey("10.0.0.1"), "burst of two is spent")
	assert.True(t, k.AllowKey("10.0.0.2"), "each client has its own bucket")

	c.t = c.t.Add(time.Second)
	assert.True(t, k.AllowKey("10.0.0.1"), "refills on the keyed clock")
	assert.False(t, k.AllowKey("10.0.0.1"))

	c.t = c.t.Add(2 * time.Minute)
	assert.True(t, k.AllowKey("10.0.0.3"))
	assert.Equal(t, 1, k.Len(), "idle buckets are dropped")
}
