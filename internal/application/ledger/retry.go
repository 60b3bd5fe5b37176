package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rai1001/ChefOsv2-sub002/internal/domain/shared"
)

// RetryPolicy bounds the optimistic concurrency retry loop
type RetryPolicy struct {
	// MaxAttempts counts the first try; 1 disables retries
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    200 * time.Millisecond,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.MaxInterval = p.MaxDelay
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1)), ctx)
}

// retryOnConflict runs op until it succeeds, fails with anything other than
// a version conflict, or the policy runs out. Exhaustion is reported as
// shared.ErrConcurrencyExhausted.
func retryOnConflict(ctx context.Context, policy RetryPolicy, op func(attempt int) error, notify func(err error, wait time.Duration)) error {
	policy = policy.normalized()
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := op(attempt)
		if err == nil {
			return nil
		}
		if errors.Is(err, shared.ErrVersionConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy.backOff(ctx), notify)

	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrVersionConflict) {
		return shared.Errorf(shared.ErrConcurrencyExhausted,
			"gave up after %d attempts: %s", attempt, err.Error())
	}
	return err
}
