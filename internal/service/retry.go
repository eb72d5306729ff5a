package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/repobrief/internal/domain"
	"github.com/timmy/repobrief/internal/logger"
)

// RetryPolicy retries an operation with exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy allows 3 attempts starting at 200ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// permanent errors are returned without another attempt.
func permanent(err error) bool {
	return errors.Is(err, domain.ErrJobNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Do runs fn until it succeeds, fails permanently, attempts run out, or ctx ends.
// Parameters:
//   - ctx: bounds the waits between attempts.
//   - op: operation name for logs.
//   - fn: the operation.
// Returns:
//   - error: nil on success; otherwise the last error wrapped with domain.ErrPersistence.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	var last error
	for i := 0; i < attempts; i++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if permanent(err) {
			return err
		}
		last = err
		if i == attempts-1 {
			break
		}

		logger.With(logger.Fields{logger.FieldAttempt: i + 1}).Warn(ctx, "%s failed, retrying in %s: %v", op, delay, err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %s: %v", domain.ErrPersistence, op, last)
		case <-timer.C:
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %v", domain.ErrPersistence, op, attempts, last)
}
