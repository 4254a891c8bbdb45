// Package resilience provides reliability patterns for external calls:
// bounded exponential retry for persistence writes and a circuit breaker
// for bus publishes.
package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds the exponential backoff applied to persistence writes.
type RetryPolicy struct {
	MaxTries uint
	BaseWait time.Duration
}

// Retry runs op with bounded exponential backoff. It returns nil on the
// first success, the last error once MaxTries attempts are exhausted, or
// the context error if ctx is cancelled first.
func Retry(ctx context.Context, p RetryPolicy, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	if p.BaseWait > 0 {
		bo.InitialInterval = p.BaseWait
	}

	_, err := backoff.Retry(ctx,
		func() (struct{}, error) { return struct{}{}, op() },
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(p.MaxTries),
	)
	return err
}

// Permanent marks err as not retryable: Retry stops immediately and
// returns it. The original error stays reachable through errors.Is.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
