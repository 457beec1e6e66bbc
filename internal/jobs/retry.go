package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/logger"
	"github.com/cloo-solutions/docqa/internal/metrics"
)

const (
	// MaxRetries is the maximum number of attempts for a failed service call
	MaxRetries = 3

	// DefaultBackoff is the delay before the second attempt; later attempts wait proportionally longer.
	DefaultBackoff = 500 * time.Millisecond
)

// RetryPolicy repeats calls that fail with a retryable service error.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy returns the policy used for embedding and completion calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: MaxRetries,
		Backoff:     DefaultBackoff,
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempts are exhausted. The wait before attempt n is (n-1) * Backoff.
func (p RetryPolicy) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * p.Backoff
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: %w (last error: %v)", name, ctx.Err(), err)
			case <-time.After(wait):
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !domain.IsRetryable(err) || ctx.Err() != nil {
			return err
		}

		var svcErr *domain.ServiceError
		if errors.As(err, &svcErr) {
			metrics.ServiceRetriesTotal.WithLabelValues(svcErr.Service, string(svcErr.Kind)).Inc()
		}

		if attempt < attempts {
			logger.FromContext(ctx).Warn("retrying service call",
				zap.String("call", name),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Error(err),
			)
		}
	}

	return fmt.Errorf("%s: max retries exceeded: %w", name, err)
}
