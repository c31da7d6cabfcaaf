package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker() *CircuitBreaker {
	return NewCircuitBreaker("test", Config{
		MaxRequests:      2,
		Timeout:          50 * time.Millisecond,
		FailureThreshold: 3,
		SuccessThreshold: 2,
	})
}

var errFail = errors.New("downstream failure")

func fail(cb *CircuitBreaker) error {
	return cb.Execute(context.Background(), func() error { return errFail })
}

func succeed(cb *CircuitBreaker) error {
	return cb.Execute(context.Background(), func() error { return nil })
}

func TestExecute_PassesThroughWhenClosed(t *testing.T) {
	cb := newTestBreaker()

	require.NoError(t, succeed(cb))
	assert.ErrorIs(t, fail(cb), errFail)
	assert.Equal(t, StateClosed, cb.State())
}

func TestExecute_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, fail(cb), errFail)
	}
	assert.Equal(t, StateOpen, cb.State())

	// While open, calls are rejected without running the operation.
	ran := false
	err := cb.Execute(context.Background(), func() error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, ran)
}

func TestExecute_SuccessResetsFailureStreak(t *testing.T) {
	cb := newTestBreaker()

	require.ErrorIs(t, fail(cb), errFail)
	require.ErrorIs(t, fail(cb), errFail)
	require.NoError(t, succeed(cb))
	require.ErrorIs(t, fail(cb), errFail)
	require.ErrorIs(t, fail(cb), errFail)

	assert.Equal(t, StateClosed, cb.State())
}

func TestExecute_HalfOpenThenCloses(t *testing.T) {
	cb := newTestBreaker()

	for i := 0; i < 3; i++ {
		fail(cb)
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, succeed(cb))
	require.NoError(t, succeed(cb))
	assert.Equal(t, StateClosed, cb.State())
}

func TestExecute_HalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker()

	for i := 0; i < 3; i++ {
		fail(cb)
	}
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	require.ErrorIs(t, fail(cb), errFail)
	assert.Equal(t, StateOpen, cb.State())
}

func TestExecute_ContextAlreadyCancelled(t *testing.T) {
	cb := newTestBreaker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := cb.Execute(ctx, func() error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestExecute_PanicCountsAsFailure(t *testing.T) {
	cb := newTestBreaker()

	for i := 0; i < 3; i++ {
		assert.Panics(t, func() {
			cb.Execute(context.Background(), func() error { panic("boom") })
		})
	}
	assert.Equal(t, StateOpen, cb.State())
}
