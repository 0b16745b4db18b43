package store

import (
	"context"
	"errors"
	"fmt"

	"syncengine/internal/platform/store/ch"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

func openCH(_ context.Context, cfg CHConfig) (Clickhouse, error) {
	c, err := ch.Open(ch.Config{
		URL:        cfg.URL,
		ClientName: cfg.ClientName,
		ClientTag:  cfg.ClientTag,
		MaxConns:   cfg.MaxConns,
	})
	if err != nil {
		return nil, err
	}
	return &chAdapter{c: c}, nil
}

// chAdapter is the Clickhouse seam over a native connection
type chAdapter struct{ c *ch.CH }

// Insert takes [][]any, one inner slice per row in column order
func (a *chAdapter) Insert(ctx context.Context, table string, data any) error {
	rows, ok := data.([][]any)
	if !ok {
		return fmt.Errorf("store: clickhouse insert wants [][]any, got %T", data)
	}
	return a.c.Insert(ctx, table, rows)
}

func (a *chAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := a.c.Conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRows{r}, nil
}

func (a *chAdapter) Exec(ctx context.Context, sql string, args ...any) error {
	return a.c.Conn.Exec(ctx, sql, args...)
}

func (a *chAdapter) Ping(ctx context.Context) error {
	if a.c == nil || a.c.Conn == nil {
		return errors.New("ch: not open")
	}
	return a.c.Conn.Ping(ctx)
}

func (a *chAdapter) Close() error { return a.c.Close() }

// chRows drops the Close error, the seam mirrors pgx where Close returns nothing
type chRows struct{ driver.Rows }

func (r chRows) Close() { _ = r.Rows.Close() }
