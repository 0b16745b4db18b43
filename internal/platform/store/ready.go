package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// waitReady pings until it succeeds, backing off between attempts
// ctx ending stops the loop with ctx.Err()
func waitReady(ctx context.Context, attempts int, timeout time.Duration, ping func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 150 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return ping(pctx)
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx))
}
