package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func captureSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	orig := sleep
	var delays []time.Duration
	sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	t.Cleanup(func() { sleep = orig })
	return &delays
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	delays := captureSleeps(t)

	p := Policy{
		MaxRetries:      10,
		BaseDelay:       time.Second,
		MaxDelay:        32 * time.Second,
		ExponentialBase: 2.0,
	}

	attempts := 0
	err := Do(context.Background(), p, func() error {
		attempts++
		if attempts <= 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 4, attempts)
	require.Len(t, *delays, 3)

	for i := 1; i < len(*delays); i++ {
		require.GreaterOrEqual(t, (*delays)[i], (*delays)[i-1])
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	captureSleeps(t)

	p := Policy{
		MaxRetries:      4,
		BaseDelay:       time.Second,
		MaxDelay:        32 * time.Second,
		ExponentialBase: 2.0,
	}

	wantErr := errors.New("persistent failure")
	attempts := 0
	err := Do(context.Background(), p, func() error {
		attempts++
		return wantErr
	})

	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 5, attempts, "MaxRetries+1 total attempts")
}

func TestDoWithResult(t *testing.T) {
	captureSleeps(t)

	p := Policy{MaxRetries: 2, BaseDelay: time.Millisecond, ExponentialBase: 2.0}

	calls := 0
	got, err := DoWithResult(context.Background(), p, func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("flaky")
		}
		return "value", nil
	})

	require.NoError(t, err)
	require.Equal(t, "value", got)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, DefaultPolicy(), func() error {
		return errors.New("never retried")
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestDelayForCapsAtMaxDelay(t *testing.T) {
	p := Policy{
		BaseDelay:       time.Second,
		MaxDelay:        32 * time.Second,
		ExponentialBase: 2.0,
	}

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		32 * time.Second,
		32 * time.Second,
	}

	for i, w := range want {
		require.Equal(t, w, p.delayFor(i+1), "retry %d", i+1)
	}
}

func TestDelayForJitterBounds(t *testing.T) {
	p := Policy{
		BaseDelay:       time.Second,
		MaxDelay:        32 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}

	for i := 0; i < 100; i++ {
		d := p.delayFor(3)
		require.GreaterOrEqual(t, d, 2*time.Second)
		require.LessOrEqual(t, d, 6*time.Second)
	}
}
