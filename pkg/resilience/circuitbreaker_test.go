package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFail = errors.New("fail")

func failing(context.Context) error { return errFail }
func ok(context.Context) error      { return nil }

func TestBreakerStartsClosed(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerDefaults(t *testing.T) {
	b := NewBreaker(BreakerOpts{})
	assert.Equal(t, DefaultBreakerOpts.FailThreshold, b.opts.FailThreshold)
	assert.Equal(t, DefaultBreakerOpts.Timeout, b.opts.Timeout)
	assert.Equal(t, DefaultBreakerOpts.HalfOpenMax, b.opts.HalfOpenMax)
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Call(ctx, failing), errFail)
	}
	require.Equal(t, StateOpen, b.State())

	called := false
	err := b.Call(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerResetsOnSuccess(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 3, Timeout: time.Second})
	ctx := context.Background()

	_ = b.Call(ctx, failing)
	_ = b.Call(ctx, failing)
	require.NoError(t, b.Call(ctx, ok))

	_ = b.Call(ctx, failing)
	_ = b.Call(ctx, failing)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpen(t *testing.T) {
	now := time.Now()
	var transitions []State
	b := NewBreaker(BreakerOpts{
		FailThreshold: 1,
		Timeout:       10 * time.Second,
		OnStateChange: func(s State) { transitions = append(transitions, s) },
	})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_ = b.Call(ctx, failing)
	require.Equal(t, StateOpen, b.State())

	now = now.Add(11 * time.Second)
	require.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Call(ctx, ok))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 2, Timeout: time.Second})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_ = b.Call(ctx, failing)
	_ = b.Call(ctx, failing)
	now = now.Add(2 * time.Second)
	require.Equal(t, StateHalfOpen, b.State())

	_ = b.Call(ctx, failing)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerHalfOpenLimitsProbes(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Second, HalfOpenMax: 1})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_ = b.Call(ctx, failing)
	now = now.Add(2 * time.Second)

	release := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- b.Call(ctx, func(context.Context) error { <-release; return nil })
	}()

	// Wait for the probe to be admitted.
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.halfOpenCount == 1
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, b.Call(ctx, ok), ErrCircuitOpen)
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Call(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
}

func TestDo(t *testing.T) {
	b := NewBreaker(BreakerOpts{FailThreshold: 1, Timeout: time.Minute})
	ctx := context.Background()

	v, err := Do(ctx, b, func(context.Context) (string, error) { return "hi", nil })
	require.NoError(t, err)
	assert.Equal(t, "hi", v)

	_, err = Do(ctx, b, func(context.Context) (string, error) { return "", errFail })
	assert.ErrorIs(t, err, errFail)

	_, err = Do(ctx, b, func(context.Context) (string, error) { return "x", nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
