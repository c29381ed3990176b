// Package retry runs remote calls with bounded exponential backoff. Only
// errors classified as transient are retried.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"storefront/internal/shoperr"
)

type Policy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Jitter is the randomization factor applied to each delay, 0 to 1.
	Jitter float64
}

func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second, Jitter: 0.5}
}

// None never retries.
var None = Policy{}

// Notify is told about each failed attempt that will be retried.
type Notify func(err error, wait time.Duration)

// Do calls op until it succeeds, returns a non-retryable error, runs out of
// retries or ctx ends. The last error is returned.
func Do(ctx context.Context, p Policy, op func(context.Context) error, notify Notify) error {
	var last error
	attempt := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		last = err
		if !shoperr.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, wait time.Duration) { notify(err, wait) }
	}
	err := backoff.RetryNotify(attempt, p.backOff(ctx), onRetry)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) && last != nil {
		return last
	}
	return err
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	if p.MaxRetries <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		b.InitialInterval = p.BaseDelay
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxRetries)), ctx)
}
