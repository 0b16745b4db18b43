// Package worker drives the scheduled pipeline: metric aggregation, rank refresh and search updates
package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"syncengine/internal/platform/config"
	"syncengine/internal/platform/logger"
	mdom "syncengine/internal/services/metrics/domain"
	sidom "syncengine/internal/services/searchindex/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of scheduled work
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Options tune the loop
type Options struct {
	Tick        time.Duration
	Concurrency int
}

// FromConfig reads CORE_WORKER_TICK (default 15s) and CORE_WORKER_CONCURRENCY (default 4)
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_WORKER_")
	return Options{
		Tick:        c.MayDuration("TICK", 15*time.Second),
		Concurrency: c.MayInt("CONCURRENCY", 4),
	}
}

// Worker runs every task once per tick
type Worker struct {
	ID    string
	Tasks []Task
	Opts  Options
}

// New returns a worker with a fresh owner id
func New(opts Options, tasks ...Task) *Worker {
	if opts.Tick <= 0 {
		opts.Tick = 15 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Worker{ID: uuid.NewString(), Tasks: tasks, Opts: opts}
}

// MetricTasks builds one task per processor, aggregation then rank refresh
// rank refresh has its own watermark and runs even when aggregation fails
func MetricTasks(procs map[string]mdom.Port) []Task {
	out := make([]Task, 0, len(procs))
	for _, name := range sortedKeys(procs) {
		p := procs[name]
		out = append(out, Task{Name: "metrics:" + name, Run: func(ctx context.Context) error {
			res, uerr := p.Update(ctx)
			if uerr == nil {
				logRun(ctx, "update", res)
			}
			rank, rerr := p.RefreshRank(ctx)
			if rerr == nil {
				logRun(ctx, "rank", rank)
			}
			return errors.Join(uerr, rerr)
		}})
	}
	return out
}

// SearchTasks builds one task per index processor
func SearchTasks(procs map[string]sidom.Port) []Task {
	out := make([]Task, 0, len(procs))
	for _, name := range sortedKeys(procs) {
		p := procs[name]
		out = append(out, Task{Name: "search:" + name, Run: func(ctx context.Context) error {
			res, err := p.Update(ctx)
			if err != nil {
				return err
			}
			logger.C(ctx).Debug().Bool("ran", res.Ran).Msg("worker: task done")
			return nil
		}})
	}
	return out
}

func logRun(ctx context.Context, step string, r mdom.RunResult) {
	logger.C(ctx).Debug().Str("step", step).Bool("ran", r.Ran).Msg("worker: task done")
}

// Tick runs all tasks once, bounded by Concurrency
// a failing task does not stop the others, errors are joined
func (w *Worker) Tick(ctx context.Context) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(w.Opts.Concurrency)
	for _, t := range w.Tasks {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			tctx := logger.WithTask(ctx, t.Name, w.ID)
			if err := t.Run(tctx); err != nil {
				logger.C(tctx).Error().Err(err).Msg("worker: task failed")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Run ticks immediately and then every Opts.Tick until ctx is done
func (w *Worker) Run(ctx context.Context) error {
	l := logger.C(ctx)
	l.Info().Str("owner", w.ID).Int("tasks", len(w.Tasks)).Dur("tick", w.Opts.Tick).Msg("worker: starting")

	t := time.NewTicker(w.Opts.Tick)
	defer t.Stop()
	for {
		_ = w.Tick(ctx)
		select {
		case <-ctx.Done():
			l.Info().Str("owner", w.ID).Msg("worker: stopping")
			return nil
		case <-t.C:
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
