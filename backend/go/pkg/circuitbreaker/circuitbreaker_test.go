package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fail() (interface{}, error) { return nil, errBoom }
func ok() (interface{}, error)   { return "ok", nil }

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTripsAfterThreshold(t *testing.T) {
	cb := New(3, 1, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(fail)
		assert.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, Open, cb.State())

	_, err := cb.Execute(ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(2, 1, time.Minute)
	_, _ = cb.Execute(fail)
	_, _ = cb.Execute(ok)
	_, _ = cb.Execute(fail)
	assert.Equal(t, Closed, cb.State())
}

func TestHalfOpenRecovery(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := New(1, 2, 10*time.Second,
		WithClock(clock.Now),
		WithStateChange(func(from, to State) { transitions = append(transitions, from.String()+">"+to.String()) }),
	)

	_, _ = cb.Execute(fail)
	require.Equal(t, Open, cb.State())

	clock.Advance(11 * time.Second)
	res, err := cb.Execute(ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, HalfOpen, cb.State())

	_, _ = cb.Execute(ok)
	assert.Equal(t, Closed, cb.State())
	assert.Equal(t, []string{"Closed>Open", "Open>Half-Open", "Half-Open>Closed"}, transitions)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := New(1, 1, time.Second, WithClock(clock.Now))
	_, _ = cb.Execute(fail)
	clock.Advance(2 * time.Second)
	_, _ = cb.Execute(fail)
	assert.Equal(t, Open, cb.State())
}

func TestFailurePredicate(t *testing.T) {
	ignored := errors.New("client mistake")
	cb := New(1, 1, time.Minute, WithFailurePredicate(func(err error) bool { return !errors.Is(err, ignored) }))

	_, err := cb.Execute(func() (interface{}, error) { return nil, ignored })
	assert.ErrorIs(t, err, ignored, "ignored errors are still returned")
	assert.Equal(t, Closed, cb.State())

	_, _ = cb.Execute(fail)
	assert.Equal(t, Open, cb.State())
}
