package store

import (
	"context"
	"time"

	"syncengine/internal/platform/store/rds"

	"github.com/redis/go-redis/v9"
)

func openRDS(ctx context.Context, cfg RedisConfig) (redis.UniversalClient, error) {
	c, err := rds.New(rds.Config{
		URL:      cfg.URL,
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err != nil {
		return nil, err
	}
	retries := cfg.ConnectRetries
	if retries <= 0 {
		retries = 5
	}
	ping := func(ctx context.Context) error { return c.Ping(ctx).Err() }
	if err := waitReady(ctx, retries, 2*time.Second, ping); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
