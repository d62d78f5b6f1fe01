package db

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
)

const (
	defaultRetryAttempts = 5
	defaultRetryBase     = 25 * time.Millisecond
	maxRetryDelay        = 500 * time.Millisecond
)

// RetryPolicy bounds optimistic transaction retries.
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	// OnRetry is invoked before each re-run with the attempt that just failed.
	OnRetry func(attempt int, err error)
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = defaultRetryAttempts
	}
	if p.Base <= 0 {
		p.Base = defaultRetryBase
	}
	return p
}

// RunWithRetry re-runs fn while it fails with a retryable conflict. Once the
// attempts are exhausted the conflict surfaces as CONCURRENT_MODIFICATION.
// Any other error is returned untouched on first occurrence.
func RunWithRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	policy = policy.normalized()

	backoff := retry.NewExponential(policy.Base)
	backoff = retry.WithCappedDuration(maxRetryDelay, backoff)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(uint64(policy.Attempts-1), backoff)

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if policy.OnRetry != nil && attempt < policy.Attempts {
			policy.OnRetry(attempt, err)
		}
		return retry.RetryableError(err)
	})
	if err != nil && IsRetryable(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConcurrentModification, err, "concurrent update, retries exhausted")
	}
	return err
}
