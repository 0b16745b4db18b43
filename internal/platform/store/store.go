// Package store opens the postgres, clickhouse and redis backends behind small seams
package store

import (
	"context"
	"errors"
	"fmt"

	"syncengine/internal/platform/logger"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Store holds whichever backends were enabled, the rest stay nil
type Store struct {
	Log logger.Logger

	PG  TxRunner
	CH  Clickhouse
	RDS redis.UniversalClient
}

// Option customizes Open
type Option func(*Store)

// WithLogger sets the logger backends report through
func WithLogger(l logger.Logger) Option { return func(s *Store) { s.Log = l } }

// Open dials every enabled backend
// a failure closes whatever was already opened
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{Log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}

	var err error
	if cfg.PG.Enabled {
		if s.PG, err = openPG(ctx, cfg.AppName, cfg.PG, s.Log); err != nil {
			return nil, fmt.Errorf("store: postgres: %w", err)
		}
	}
	if cfg.CH.Enabled {
		if cfg.CH.ClientName == "" {
			cfg.CH.ClientName = cfg.AppName
		}
		if s.CH, err = openCH(ctx, cfg.CH); err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("store: clickhouse: %w", err)
		}
	}
	if cfg.RDS.Enabled {
		if s.RDS, err = openRDS(ctx, cfg.RDS); err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("store: redis: %w", err)
		}
	}
	return s, nil
}

type probe struct {
	name string
	ping func(context.Context) error
}

func (s *Store) probes() []probe {
	var out []probe
	if p, ok := s.PG.(Pinger); ok {
		out = append(out, probe{"pg", p.Ping})
	}
	if p, ok := s.CH.(Pinger); ok {
		out = append(out, probe{"ch", p.Ping})
	}
	if s.RDS != nil {
		out = append(out, probe{"redis", func(ctx context.Context) error { return s.RDS.Ping(ctx).Err() }})
	}
	return out
}

// Guard pings every open backend concurrently and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("store: nil")
	}
	ps := s.probes()
	errs := make([]error, len(ps))
	var g errgroup.Group
	for i, p := range ps {
		g.Go(func() error {
			if err := p.ping(ctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", p.name, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Close releases redis, clickhouse then postgres
func (s *Store) Close(context.Context) error {
	var errs []error
	if s.RDS != nil {
		errs = append(errs, s.RDS.Close())
	}
	if s.CH != nil {
		errs = append(errs, s.CH.Close())
	}
	if c, ok := s.PG.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
