// Package rds builds go-redis v9 clients
package rds

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Config configures the client, URL wins over Addr
type Config struct {
	URL      string
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Options resolves cfg into go-redis options
func Options(cfg Config) (*redis.Options, error) {
	var opt *redis.Options
	switch {
	case cfg.URL != "":
		o, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("rds: parse url: %w", err)
		}
		opt = o
	case cfg.Addr != "":
		opt = &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("rds: url or addr required")
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	return opt, nil
}

// New builds a client without contacting the server
func New(cfg Config) (*redis.Client, error) {
	opt, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}
