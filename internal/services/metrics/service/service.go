// Package service implements the watermark gated metric processor
package service

import (
	"context"
	"time"

	"syncengine/internal/modkit/repokit"
	perr "syncengine/internal/platform/errors"
	"syncengine/internal/platform/logger"
	"syncengine/internal/platform/store"
	mdom "syncengine/internal/services/metrics/domain"
	"syncengine/internal/services/metrics/rank"
	wmdom "syncengine/internal/services/watermark/domain"
)

// RankConfig enables rank refresh for a job
type RankConfig struct {
	rank.Config
	// RefreshInterval defaults to an hour and never runs more often than UpdateInterval
	RefreshInterval time.Duration
	// Refresher replaces the default blue-green rebuild
	Refresher mdom.RankRefresher
}

// Config controls one metric job
type Config struct {
	Name           string
	UpdateInterval time.Duration
	// Location decides calendar days for the day hook, default UTC
	Location *time.Location
	Rank     *RankConfig
}

// Processor owns one named periodic metric job
type Processor struct {
	DB     repokit.TxRunner
	CH     store.Clickhouse
	WM     wmdom.Port
	Binder repokit.Binder[mdom.QueueRepo]
	Agg    mdom.Aggregator
	Cfg    Config

	now func() time.Time
}

var _ mdom.Port = (*Processor)(nil)

// New constructs a processor, ch may be nil for jobs that never read analytics
func New(
	db repokit.TxRunner,
	ch store.Clickhouse,
	wm wmdom.Port,
	binder repokit.Binder[mdom.QueueRepo],
	agg mdom.Aggregator,
	cfg Config,
) *Processor {
	if db == nil {
		panic("metrics.Processor requires a non nil TxRunner")
	}
	if wm == nil {
		panic("metrics.Processor requires a watermark store")
	}
	if binder == nil {
		panic("metrics.Processor requires a non nil Queue binder")
	}
	if agg == nil {
		panic("metrics.Processor requires an Aggregator")
	}
	if cfg.Name == "" {
		panic("metrics.Processor requires a job name")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Rank != nil {
		r := *cfg.Rank
		if r.RefreshInterval <= 0 {
			r.RefreshInterval = time.Hour
		}
		if r.RefreshInterval < cfg.UpdateInterval {
			r.RefreshInterval = cfg.UpdateInterval
		}
		cfg.Rank = &r
	}
	return &Processor{DB: db, CH: ch, WM: wm, Binder: binder, Agg: agg, Cfg: cfg, now: time.Now}
}

// Name returns the job key
func (p *Processor) Name() string { return p.Cfg.Name }

func (p *Processor) rankKey() string { return "rank:" + p.Cfg.Rank.Table }

func (p *Processor) queue() mdom.QueueRepo { return p.Binder.Bind(p.DB) }

// Update runs the aggregation body when UpdateInterval has elapsed since the watermark
// the watermark moves to the run start only after a successful, uncanceled run
func (p *Processor) Update(ctx context.Context) (mdom.RunResult, error) {
	res := mdom.RunResult{JobKey: p.Cfg.Name}
	l := logger.C(ctx).With().Str("mod", "metrics").Str("job", p.Cfg.Name).Logger()

	last, err := p.WM.Get(ctx, p.Cfg.Name)
	if err != nil {
		return res, err
	}
	now := p.now()
	if now.Sub(last) < p.Cfg.UpdateInterval {
		l.Debug().Time("last", last).Msg("metrics: not due, skip")
		return res, nil
	}

	rc := mdom.RunContext{PG: p.DB, CH: p.CH, JobKey: p.Cfg.Name, LastUpdatedAt: last}

	if dc, ok := p.Agg.(mdom.DayClearer); ok && p.firstOfDay(last, now) {
		rc.RunStartedAt = now
		if err := dc.ClearDay(ctx, rc); err != nil {
			l.Error().Err(err).Msg("metrics: clear day failed")
			return res, err
		}
		res.ClearedDay = true
		l.Info().Msg("metrics: day cleared")
	}

	started := p.now()
	rc.RunStartedAt = started
	res.StartedAt = started

	queued, err := p.queue().Pending(ctx, p.Cfg.Name, started)
	if err != nil {
		return res, perr.FromPostgres(err, "metrics: load queue")
	}
	rc.Queued = queued
	res.Queued = len(queued)

	l.Info().Time("since", last).Int("queued", len(queued)).Msg("metrics: update start")
	if err := p.Agg.Update(ctx, rc); err != nil {
		l.Error().Err(err).Msg("metrics: update failed, watermark kept")
		return res, err
	}
	if err := ctx.Err(); err != nil {
		l.Warn().Err(err).Msg("metrics: canceled, watermark kept")
		return res, err
	}

	if _, err := p.WM.Set(ctx, p.Cfg.Name, started); err != nil {
		return res, err
	}
	res.Ran = true

	purged, err := p.queue().Purge(ctx, p.Cfg.Name, started)
	if err != nil {
		// entries stay queued and get recomputed next run
		l.Warn().Err(err).Msg("metrics: queue purge failed")
	}
	res.Purged = purged
	res.Elapsed = p.now().Sub(started)

	l.Info().Dur("elapsed", res.Elapsed).Int64("purged", purged).Msg("metrics: update done")
	return res, nil
}

// firstOfDay reports whether now falls on a later calendar day than last
func (p *Processor) firstOfDay(last, now time.Time) bool {
	ly, lm, ld := last.In(p.Cfg.Location).Date()
	ny, nm, nd := now.In(p.Cfg.Location).Date()
	return ly != ny || lm != nm || ld != nd
}

// RefreshRank rebuilds the rank table when its own interval has elapsed
func (p *Processor) RefreshRank(ctx context.Context) (mdom.RunResult, error) {
	if p.Cfg.Rank == nil {
		return mdom.RunResult{JobKey: p.Cfg.Name}, nil
	}
	res := mdom.RunResult{JobKey: p.rankKey()}
	last, err := p.WM.Get(ctx, p.rankKey())
	if err != nil {
		return res, err
	}
	if p.now().Sub(last) < p.Cfg.Rank.RefreshInterval {
		logger.C(ctx).Debug().Str("job", p.rankKey()).Msg("metrics: rank not due, skip")
		return res, nil
	}
	return p.refreshRank(ctx, last)
}

// ForceRefreshRank rebuilds the rank table regardless of the interval
func (p *Processor) ForceRefreshRank(ctx context.Context) (mdom.RunResult, error) {
	if p.Cfg.Rank == nil {
		return mdom.RunResult{JobKey: p.Cfg.Name}, perr.InvalidArgf("metrics: job %s has no rank table", p.Cfg.Name)
	}
	last, err := p.WM.Get(ctx, p.rankKey())
	if err != nil {
		return mdom.RunResult{JobKey: p.rankKey()}, err
	}
	return p.refreshRank(ctx, last)
}

func (p *Processor) refreshRank(ctx context.Context, last time.Time) (mdom.RunResult, error) {
	key := p.rankKey()
	started := p.now()
	res := mdom.RunResult{JobKey: key, StartedAt: started}
	l := logger.C(ctx).With().Str("mod", "metrics").Str("job", key).Logger()

	var err error
	if r := p.Cfg.Rank.Refresher; r != nil {
		err = r.RefreshRank(ctx, mdom.RunContext{PG: p.DB, CH: p.CH, JobKey: key, LastUpdatedAt: last, RunStartedAt: started})
	} else {
		err = rank.Rebuild(ctx, p.DB, p.Cfg.Rank.Config)
	}
	if err != nil {
		l.Error().Err(err).Msg("metrics: rank refresh failed")
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if _, err := p.WM.Set(ctx, key, started); err != nil {
		return res, err
	}
	res.Ran = true
	res.Elapsed = p.now().Sub(started)
	l.Info().Dur("elapsed", res.Elapsed).Msg("metrics: rank refreshed")
	return res, nil
}

// QueueUpdate flags ids for recompute on the next run
func (p *Processor) QueueUpdate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	return perr.FromPostgres(p.queue().Enqueue(ctx, p.Cfg.Name, ids, p.now()), "metrics: queue update")
}
