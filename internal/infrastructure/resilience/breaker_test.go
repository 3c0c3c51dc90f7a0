package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	b := NewBreaker("engine", 3, time.Minute)

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Do(func() error { return nil }))
	}
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker("engine", 3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(func() error { return errBoom }), errBoom)
	}
	assert.Equal(t, BreakerOpen, b.State())

	err := b.Do(func() error { return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	b := NewBreaker("engine", 3, time.Minute)

	b.Do(func() error { return errBoom })
	b.Do(func() error { return errBoom })
	require.NoError(t, b.Do(func() error { return nil }))
	b.Do(func() error { return errBoom })
	b.Do(func() error { return errBoom })

	assert.Equal(t, BreakerClosed, b.State())
}

func TestHalfOpenProbe(t *testing.T) {
	b := NewBreaker("engine", 1, 10*time.Millisecond)

	b.Do(func() error { return errBoom })
	require.Equal(t, BreakerOpen, b.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, BreakerHalfOpen, b.State())

	// Successful probe closes the breaker
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker("engine", 1, 10*time.Millisecond)

	b.Do(func() error { return errBoom })
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, BreakerHalfOpen, b.State())

	b.Do(func() error { return errBoom })
	assert.Equal(t, BreakerOpen, b.State())
}
