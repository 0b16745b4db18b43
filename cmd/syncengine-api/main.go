// @title         Sync Engine API
// @version       0.1.0
// @description   Admin endpoints for derived metrics, search indexes and watermarks

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"syncengine/internal/core/version"
	"syncengine/internal/platform/config"
	"syncengine/internal/platform/logger"
	phttp "syncengine/internal/platform/net/http"
	"syncengine/internal/platform/store"

	"syncengine/internal/services/api"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	opts := logger.FromEnv()
	if opts.Service == "" {
		opts.Service = "syncengine-api"
	}
	logger.Init(opts)
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// clickhouse and redis are optional, without them entity metric caches are disabled
	st, err := store.Open(ctx, store.FromConfig(root, "syncengine-api", "api", 4, 500), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// http server (reads CORE_API_PORT, CORE_API_SHUTDOWN_TIMEOUT)
	srv := phttp.NewServer(apiCfg)

	api.Mount(srv.Router(), api.Options{
		Config:         root,
		Store:          st,
		Logger:         l,
		EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
	})

	l.Info().Str("build", version.Info().String()).Msg("syncengine api")
	if err := srv.Run(ctx); err != nil {
		l.Error().Err(err).Msg("http server stopped")
	}
}
