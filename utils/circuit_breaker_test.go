package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrongtrongJ/eventeer/internal/status"
)

func newTestBreaker(threshold int) (*CircuitBreaker, *time.Time) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("test", CircuitConfig{
		Threshold:    threshold,
		Timeout:      60 * time.Second,
		ResetTimeout: 30 * time.Second,
	})
	cb.now = func() time.Time { return clock }
	return cb, &clock
}

func failingCall() (any, error) {
	return nil, errors.New("downstream unavailable")
}

func TestCircuitBreakerStartsClosed(t *testing.T) {
	cb, _ := newTestBreaker(3)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.FailureCount())

	result, err := cb.Execute(context.Background(), func() (any, error) {
		return "ok", nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3)

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(context.Background(), failingCall, nil)
		require.Error(t, err)
		assert.Equal(t, StateClosed, cb.State())
	}

	_, err := cb.Execute(context.Background(), failingCall, nil)
	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, 3, cb.FailureCount())
}

func TestCircuitBreakerShortCircuitsWhileOpen(t *testing.T) {
	cb, clock := newTestBreaker(3)

	for i := 0; i < 3; i++ {
		cb.Execute(context.Background(), failingCall, nil)
	}
	require.Equal(t, StateOpen, cb.State())

	// Before the reset window elapses the wrapped function must not run.
	*clock = clock.Add(10 * time.Second)

	called := false
	result, err := cb.Execute(context.Background(), func() (any, error) {
		called = true
		return "real", nil
	}, func() (any, error) {
		return "fallback", nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "fallback", result)
}

func TestCircuitBreakerOpenWithoutFallback(t *testing.T) {
	cb, _ := newTestBreaker(1)

	cb.Execute(context.Background(), failingCall, nil)
	require.Equal(t, StateOpen, cb.State())

	_, err := cb.Execute(context.Background(), func() (any, error) {
		return "real", nil
	}, nil)
	assert.ErrorIs(t, err, status.ErrCircuitOpen)
}

func TestCircuitBreakerHalfOpenAfterResetTimeout(t *testing.T) {
	cb, clock := newTestBreaker(3)

	for i := 0; i < 3; i++ {
		cb.Execute(context.Background(), failingCall, nil)
	}
	require.Equal(t, StateOpen, cb.State())

	*clock = clock.Add(31 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())

	// One successful trial call closes the circuit and clears the count.
	result, err := cb.Execute(context.Background(), func() (any, error) {
		return "recovered", nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.FailureCount())
}

func TestCircuitBreakerTrialFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(3)

	for i := 0; i < 3; i++ {
		cb.Execute(context.Background(), failingCall, nil)
	}
	*clock = clock.Add(31 * time.Second)
	require.Equal(t, StateHalfOpen, cb.State())

	result, err := cb.Execute(context.Background(), failingCall, func() (any, error) {
		return "fallback", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", result)
	assert.Equal(t, StateOpen, cb.State())

	// The new OPEN interval starts from the trial failure.
	*clock = clock.Add(10 * time.Second)
	assert.Equal(t, StateOpen, cb.State())
	*clock = clock.Add(21 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestCircuitBreakerSingleHalfOpenTrial(t *testing.T) {
	cb, clock := newTestBreaker(3)

	for i := 0; i < 3; i++ {
		cb.Execute(context.Background(), failingCall, nil)
	}
	*clock = clock.Add(31 * time.Second)
	require.Equal(t, StateHalfOpen, cb.State())

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	// First half-open caller starts a trial and blocks mid-call.
	go func() {
		defer close(done)
		cb.Execute(context.Background(), func() (any, error) {
			close(started)
			<-release
			return "recovered", nil
		}, nil)
	}()
	<-started

	// A second caller while the trial is in flight must not reach the
	// dependency; it short-circuits to the fallback.
	called := false
	result, err := cb.Execute(context.Background(), func() (any, error) {
		called = true
		return "real", nil
	}, func() (any, error) {
		return "fallback", nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "fallback", result)

	close(release)
	<-done

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.FailureCount())

	// The gate is released once the trial settles.
	result, err = cb.Execute(context.Background(), func() (any, error) {
		return "ok", nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestCircuitBreakerSuccessDecaysFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(5)

	cb.Execute(context.Background(), failingCall, nil)
	cb.Execute(context.Background(), failingCall, nil)
	assert.Equal(t, 2, cb.FailureCount())

	cb.Execute(context.Background(), func() (any, error) { return nil, nil }, nil)
	assert.Equal(t, 1, cb.FailureCount())
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitRegistryReturnsSameBreaker(t *testing.T) {
	registry := NewCircuitRegistry(CircuitConfig{
		Threshold:    5,
		Timeout:      60 * time.Second,
		ResetTimeout: 30 * time.Second,
	})

	first := registry.Get("payment-gateway")
	second := registry.Get("payment-gateway")
	assert.Same(t, first, second)

	other := registry.Get("notifications")
	assert.NotSame(t, first, other)
}

func TestCircuitRegistryOverrides(t *testing.T) {
	registry := NewCircuitRegistry(CircuitConfig{
		Threshold:    5,
		Timeout:      60 * time.Second,
		ResetTimeout: 30 * time.Second,
	})

	cb := registry.Get("flaky", CircuitConfig{Threshold: 1})
	assert.Equal(t, 1, cb.config.Threshold)
	assert.Equal(t, 60*time.Second, cb.config.Timeout)

	cb.Execute(context.Background(), failingCall, nil)
	assert.Equal(t, StateOpen, cb.State())

	states := registry.Snapshot()
	assert.Equal(t, StateOpen, states["flaky"])
}

func TestCircuitRegistryExecute(t *testing.T) {
	registry := NewCircuitRegistry(CircuitConfig{
		Threshold:    5,
		Timeout:      60 * time.Second,
		ResetTimeout: 30 * time.Second,
	})

	result, err := registry.Execute(context.Background(), "search", func() (any, error) {
		return 42, nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, StateClosed, registry.Get("search").State())
}
