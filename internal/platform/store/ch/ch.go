// Package ch opens clickhouse-go v2 native connections
package ch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures the connection
type Config struct {
	URL string
	// ClientName and ClientTag show up in system.query_log
	ClientName string
	ClientTag  string

	MaxConns    int
	DialTimeout time.Duration
}

// CH is a native connection
type CH struct {
	Conn driver.Conn
}

// open is swapped in tests
var open = clickhouse.Open

// Open parses the dsn, the server is not contacted until first use
func Open(cfg Config) (*CH, error) {
	if cfg.URL == "" {
		return nil, errors.New("ch: empty url")
	}
	opts, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ch: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		opts.MaxOpenConns = cfg.MaxConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	opts.ClientInfo = ClientInfo(cfg.ClientName, cfg.ClientTag)

	conn, err := open(opts)
	if err != nil {
		return nil, err
	}
	return &CH{Conn: conn}, nil
}

// Insert sends rows to table as one batch, an empty slice is a no-op
func (c *CH) Insert(ctx context.Context, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	b, err := c.Conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := b.Append(r...); err != nil {
			_ = b.Abort()
			return err
		}
	}
	return b.Send()
}

// Close is safe on a nil connection
func (c *CH) Close() error {
	if c == nil || c.Conn == nil {
		return nil
	}
	return c.Conn.Close()
}
