package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Policy controls exponential backoff for fallible remote calls. An
// operation is attempted MaxRetries+1 times in total; once retries are
// exhausted the last error is returned to the caller.
type Policy struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool
	Logger          *zap.Logger
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      10,
		BaseDelay:       time.Second,
		MaxDelay:        32 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
		Logger:          zap.NewNop(),
	}
}

// sleep is a hook so tests can observe delays without waiting them out.
var sleep = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func Do(ctx context.Context, p Policy, operation func() error) error {
	if p.BaseDelay == 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = 32 * time.Second
	}
	if p.ExponentialBase == 0 {
		p.ExponentialBase = 2.0
	}

	var lastErr error

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 0 && p.Logger != nil {
				p.Logger.Info("Operation succeeded after retry",
					zap.Int("attempt", attempt+1),
				)
			}
			return nil
		}

		if attempt == p.MaxRetries {
			if p.Logger != nil {
				p.Logger.Error("Max retries exceeded",
					zap.Int("max_retries", p.MaxRetries),
					zap.Error(lastErr),
				)
			}
			return lastErr
		}

		delay := p.delayFor(attempt + 1)

		if p.Logger != nil {
			p.Logger.Warn("Operation failed, retrying",
				zap.Error(lastErr),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", p.MaxRetries),
				zap.Duration("delay", delay),
			)
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func DoWithResult[T any](ctx context.Context, p Policy, operation func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func() error {
		var err error
		result, err = operation()
		return err
	})
	return result, err
}

// delayFor computes the backoff before the given retry (1-based):
// min(base * expBase^(retry-1), max), scaled by a uniform factor in
// [0.5, 1.5] when jitter is enabled.
func (p Policy) delayFor(retry int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.ExponentialBase, float64(retry-1))
	d = math.Min(d, float64(p.MaxDelay))
	if p.Jitter {
		d *= 0.5 + rand.Float64()
	}
	return time.Duration(d)
}
