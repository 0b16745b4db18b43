package store

import (
	"context"
	"errors"
	"time"

	"syncengine/internal/platform/logger"
	"syncengine/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func openPG(ctx context.Context, app string, cfg PGConfig, log logger.Logger) (TxRunner, error) {
	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.URL,
		MaxConns: cfg.MaxConns,
		AppName:  app,
	})
	if err != nil {
		return nil, err
	}

	retries := cfg.ConnectRetries
	if retries <= 0 {
		retries = 20
	}
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	// ping the pool directly so boot retries stay out of the query log
	if err := waitReady(ctx, retries, timeout, p.Pool.Ping); err != nil {
		p.Close()
		return nil, err
	}

	return &pgAdapter{
		pgQuerier: pgQuerier{q: p.Pool, trace: pg.LogTracer(log, cfg.LogSQL), slow: slowAfter(cfg.SlowQueryMs)},
		p:         p,
	}, nil
}

// slowAfter turns a millisecond setting into a threshold, negative disables
func slowAfter(ms int) time.Duration {
	if ms < 0 {
		return -1
	}
	return time.Duration(ms) * time.Millisecond
}

// pgxConn is what *pgxpool.Pool and pgx.Tx share
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgQuerier is a RowQuerier over pgx that reports each statement to trace
type pgQuerier struct {
	q     pgxConn
	trace pg.QueryTracer
	slow  time.Duration
}

func (t pgQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := t.q.Exec(ctx, sql, args...)
	t.report(ctx, sql, args, start, err)
	return ct, err
}

// Query reports once the result set is open, iteration is not timed
func (t pgQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := t.q.Query(ctx, sql, args...)
	t.report(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return pgRows{rs}, nil
}

// QueryRow reports after Scan so the scan error is seen
func (t pgQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	r := t.q.QueryRow(ctx, sql, args...)
	return rowFunc(func(dst ...any) error {
		err := r.Scan(dst...)
		t.report(ctx, sql, args, start, err)
		return err
	})
}

func (t pgQuerier) report(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if t.trace == nil {
		return
	}
	d := time.Since(start)
	t.trace.OnQuery(ctx, pg.QueryEvent{
		SQL:     sql,
		Args:    args,
		Elapsed: d,
		Err:     err,
		Slow:    t.slow >= 0 && d >= t.slow,
	})
}

type pgAdapter struct {
	pgQuerier
	p *pg.PG
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil || a.p == nil {
		return errors.New("pg: not open")
	}
	return a.p.Pool.Ping(ctx)
}

func (a *pgAdapter) Close() error {
	a.p.Close()
	return nil
}

func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	return pgx.BeginFunc(ctx, a.p.Pool, func(tx pgx.Tx) error {
		return fn(pgQuerier{q: tx, trace: a.trace, slow: a.slow})
	})
}

type rowFunc func(dst ...any) error

func (f rowFunc) Scan(dst ...any) error { return f(dst...) }

type pgRows struct{ pgx.Rows }

func (r pgRows) Columns() []string {
	fds := r.FieldDescriptions()
	out := make([]string, len(fds))
	for i, fd := range fds {
		out[i] = fd.Name
	}
	return out
}
