package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"syncengine/internal/core/version"
	"syncengine/internal/modkit"
	"syncengine/internal/modkit/module"
	"syncengine/internal/platform/config"
	"syncengine/internal/platform/logger"
	"syncengine/internal/platform/store"

	emapidom "syncengine/internal/services/api/entitymetrics/domain"
	pipemod "syncengine/internal/services/pipeline/module"
	"syncengine/internal/services/pipeline/worker"
)

func main() {
	root := config.New()

	opts := logger.FromEnv()
	if opts.Service == "" {
		opts.Service = "syncengine-worker"
	}
	logger.Init(opts)
	l := logger.Get()

	// Flags
	var (
		fMode  = flag.String("mode", "worker", "worker mode: worker | once | migrate | reset | refresh-rank | warm | flush")
		fIndex = flag.String("index", "", "search index name (reset)")
		fJob   = flag.String("job", "", "metrics job name (refresh-rank)")
		fType  = flag.String("type", "", "entity type (warm, flush)")
		fIDs   = flag.String("ids", "", "comma-separated entity ids (warm)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.FromConfig(root, "syncengine-worker", "worker", 8, 2000), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// Shared deps
	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		RDS: st.RDS,
		Log: *l,
	}

	pipe := pipemod.New(deps)
	module.Register(pipe.Name(), pipe.Ports())
	ports := module.MustPortsOf[pipemod.Ports](pipe)

	l.Info().Str("mode", *fMode).Str("build", version.Info().String()).Msg("syncengine worker")

	switch *fMode {
	case "worker", "once":
		tasks := worker.MetricTasks(ports.Metrics.Processors)
		tasks = append(tasks, worker.SearchTasks(ports.Search.Processors)...)
		w := worker.New(worker.FromConfig(root), tasks...)
		if *fMode == "once" {
			if err := w.Tick(ctx); err != nil {
				l.Fatal().Err(err).Msg("worker tick failed")
			}
			return
		}
		if err := w.Run(ctx); err != nil {
			l.Fatal().Err(err).Msg("worker failed")
		}

	case "migrate":
		if err := ports.Migrate(ctx); err != nil {
			l.Fatal().Err(err).Msg("migrate failed")
		}

	case "reset":
		if *fIndex == "" {
			l.Panic().Msg("reset mode: -index is required")
		}
		proc, err := ports.Search.Processor(*fIndex)
		if err != nil {
			l.Fatal().Err(err).Msg("reset: unknown index")
		}
		res, err := proc.Reset(ctx)
		if err != nil {
			l.Fatal().Err(err).Str("index", *fIndex).Msg("reset failed")
		}
		l.Info().Str("index", *fIndex).Dur("elapsed", res.Elapsed).Int64("cleared", res.Cleared).Msg("reset done")

	case "refresh-rank":
		if *fJob == "" {
			l.Panic().Msg("refresh-rank mode: -job is required")
		}
		proc, err := ports.Metrics.Processor(*fJob)
		if err != nil {
			l.Fatal().Err(err).Msg("refresh-rank: unknown job")
		}
		res, err := proc.ForceRefreshRank(ctx)
		if err != nil {
			l.Fatal().Err(err).Str("job", *fJob).Msg("refresh-rank failed")
		}
		l.Info().Str("job", res.JobKey).Dur("elapsed", res.Elapsed).Msg("refresh-rank done")

	case "warm", "flush":
		cache, ok := ports.Caches.Cache(*fType)
		if !ok {
			l.Panic().Str("type", *fType).Msg("no cache for -type (needs clickhouse and redis)")
		}
		if *fMode == "flush" {
			n, err := cache.Flush(ctx)
			if err != nil {
				l.Fatal().Err(err).Msg("flush failed")
			}
			l.Info().Str("type", *fType).Int("removed", n).Msg("flush done")
			return
		}
		ids, err := emapidom.ParseIDs(*fIDs)
		if err != nil {
			l.Panic().Err(err).Msg("warm mode: bad -ids")
		}
		if err := cache.Refresh(ctx, ids...); err != nil {
			l.Fatal().Err(err).Msg("warm failed")
		}
		l.Info().Str("type", *fType).Int("ids", len(ids)).Msg("warm done")

	default:
		l.Panic().Str("mode", *fMode).Msg("unknown -mode (expected: worker | once | migrate | reset | refresh-rank | warm | flush)")
	}
}
