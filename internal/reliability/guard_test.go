package reliability

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastSettings() Settings {
	return Settings{Name: "test", Attempts: 3, CallTimeout: time.Second}
}

func TestGuard_RetriesTransientFailure(t *testing.T) {
	g := NewGuard(fastSettings())

	var calls int32
	err := g.Do(context.Background(), func(context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls)
}

func TestGuard_PermanentErrorIsNotRetried(t *testing.T) {
	g := NewGuard(fastSettings())
	sentinel := errors.New("400 bad request")

	var calls int32
	err := g.Do(context.Background(), func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return Permanent(sentinel)
	})
	assert.ErrorIs(t, err, sentinel)
	assert.EqualValues(t, 1, calls)
	assert.False(t, g.Open())
}

func TestGuard_ThrottleHonorsRetryAfter(t *testing.T) {
	g := NewGuard(fastSettings())

	var calls int32
	start := time.Now()
	err := g.Do(context.Background(), func(context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return &ThrottleError{RetryAfter: 20 * time.Millisecond, Cause: errors.New("429")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestGuard_OpensAfterConsecutiveFailures(t *testing.T) {
	var opened atomic.Bool
	s := fastSettings()
	s.Attempts = 1
	s.Failures = 2
	s.Timeout = time.Minute
	s.OnStateChange = func(_ string, open bool) {
		if open {
			opened.Store(true)
		}
	}
	g := NewGuard(s)

	boom := func(context.Context) error { return errors.New("503") }
	require.Error(t, g.Do(context.Background(), boom))
	require.Error(t, g.Do(context.Background(), boom))
	assert.True(t, g.Open())
	assert.True(t, opened.Load())

	var called bool
	err := g.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, IsCircuitOpen(err))
	assert.False(t, called)
}

func TestGuard_AttemptGetsDeadline(t *testing.T) {
	s := fastSettings()
	s.CallTimeout = 50 * time.Millisecond
	g := NewGuard(s)

	err := g.Do(context.Background(), func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestExecute_ReturnsValue(t *testing.T) {
	g := NewGuard(fastSettings())

	v, err := Execute(context.Background(), g, func(context.Context) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, true, v["ok"])
}

func TestGuard_RateLimitRespectsContext(t *testing.T) {
	s := fastSettings()
	s.RateLimit = 0.001
	s.Burst = 1
	g := NewGuard(s)

	require.NoError(t, g.Do(context.Background(), func(context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.Do(ctx, func(context.Context) error { return nil })
	assert.Error(t, err)
}
