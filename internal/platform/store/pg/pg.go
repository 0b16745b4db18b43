// Package pg opens pgx pools and logs the statements run on them
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the pool
type Config struct {
	URL      string
	MaxConns int32
	// AppName becomes application_name in pg_stat_activity
	AppName string
}

// PG owns a pool
type PG struct {
	Pool *pgxpool.Pool
}

// newPool is swapped in tests
var newPool = pgxpool.NewWithConfig

// Open builds the pool, connections are dialed on first use
func Open(ctx context.Context, cfg Config) (*PG, error) {
	if cfg.URL == "" {
		return nil, errors.New("pg: empty url")
	}
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("pg: parse url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.AppName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	}
	pool, err := newPool(ctx, pc)
	if err != nil {
		return nil, err
	}
	return &PG{Pool: pool}, nil
}

// Close is safe on nil and repeated calls
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
