// Package repokit holds the seams repositories are written against
package repokit

import (
	"context"

	perr "syncengine/internal/platform/errors"
	"syncengine/internal/platform/store"
)

type (
	// Queryer is the read and write surface a bound repo runs on
	Queryer = store.RowQuerier

	// TxRunner is a Queryer that can also open transactions
	TxRunner = store.TxRunner
)

// Binder binds a repo to a Queryer, a pool or an open tx
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a constructor to Binder
type BindFunc[T any] func(Queryer) T

// Bind calls f
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// TxRetry runs fn in a transaction, retrying up to retries more times
// while the failure is transient contention such as a deadlock or serialization abort
func TxRetry(ctx context.Context, db TxRunner, retries int, fn func(Queryer) error) error {
	for attempt := 0; ; attempt++ {
		err := db.Tx(ctx, fn)
		if err == nil || attempt >= retries || !perr.IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
}
