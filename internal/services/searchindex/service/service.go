// Package service implements the search index update processor
package service

import (
	"context"
	"time"

	"syncengine/internal/core/taskpool"
	"syncengine/internal/modkit/repokit"
	perr "syncengine/internal/platform/errors"
	"syncengine/internal/platform/logger"
	sidom "syncengine/internal/services/searchindex/domain"
	wmdom "syncengine/internal/services/watermark/domain"

	"golang.org/x/time/rate"
)

// DefaultBatchSize is the largest batch handed to ApplyBatch
const DefaultBatchSize = 500

// SwapSuffix names the rebuild target of an index
const SwapSuffix = "_NEW"

// Config controls one search index
type Config struct {
	IndexName      string
	PrimaryKey     string
	UpdateInterval time.Duration
	// BatchSize defaults to DefaultBatchSize
	BatchSize int
	// DrainLimit caps queue items drained per Update, zero drains everything
	DrainLimit int
	// BatchesPerSecond paces ApplyBatch calls, zero disables pacing
	BatchesPerSecond float64
}

// Processor keeps one search index in sync
type Processor struct {
	DB      repokit.TxRunner
	WM      wmdom.Port
	Binder  repokit.Binder[sidom.QueueRepo]
	Engine  sidom.Engine
	Indexer sidom.Indexer
	Cfg     Config

	limiter *rate.Limiter
	now     func() time.Time
}

var _ sidom.Port = (*Processor)(nil)

// New constructs a processor, panics on missing collaborators
func New(
	db repokit.TxRunner,
	wm wmdom.Port,
	binder repokit.Binder[sidom.QueueRepo],
	engine sidom.Engine,
	indexer sidom.Indexer,
	cfg Config,
) *Processor {
	if db == nil {
		panic("searchindex.Processor requires a non nil TxRunner")
	}
	if wm == nil {
		panic("searchindex.Processor requires a watermark store")
	}
	if binder == nil {
		panic("searchindex.Processor requires a non nil Queue binder")
	}
	if engine == nil {
		panic("searchindex.Processor requires an Engine")
	}
	if indexer == nil {
		panic("searchindex.Processor requires an Indexer")
	}
	if cfg.IndexName == "" {
		panic("searchindex.Processor requires an index name")
	}
	if cfg.PrimaryKey == "" {
		cfg.PrimaryKey = "id"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	p := &Processor{DB: db, WM: wm, Binder: binder, Engine: engine, Indexer: indexer, Cfg: cfg, now: time.Now}
	if cfg.BatchesPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.BatchesPerSecond), 1)
	}
	return p
}

// Name returns the logical index name
func (p *Processor) Name() string { return p.Cfg.IndexName }

func (p *Processor) jobKey() string { return "search:" + p.Cfg.IndexName }

func (p *Processor) swapName() string { return p.Cfg.IndexName + SwapSuffix }

func (p *Processor) queue() sidom.QueueRepo { return p.Binder.Bind(p.DB) }

// Update runs the incremental hook and drains the pending queue when due
func (p *Processor) Update(ctx context.Context) (sidom.RunResult, error) {
	res := sidom.RunResult{IndexName: p.Cfg.IndexName}
	l := logger.C(ctx).With().Str("mod", "searchindex").Str("index", p.Cfg.IndexName).Logger()

	last, err := p.WM.Get(ctx, p.jobKey())
	if err != nil {
		return res, err
	}
	if p.now().Sub(last) < p.Cfg.UpdateInterval {
		l.Debug().Time("last", last).Msg("searchindex: not due, skip")
		return res, nil
	}

	started := p.now()
	res.StartedAt = started
	l.Info().Time("since", last).Msg("searchindex: update start")

	if err := p.Indexer.Update(ctx, sidom.UpdateContext{
		IndexName:     p.Cfg.IndexName,
		LastUpdatedAt: last,
		RunStartedAt:  started,
		Sync:          p.UpdateSync,
	}); err != nil {
		l.Error().Err(err).Msg("searchindex: update hook failed, watermark kept")
		return res, err
	}

	drained, err := p.drain(ctx, started)
	res.Drained = drained
	if err != nil {
		l.Error().Err(err).Msg("searchindex: drain failed, watermark kept")
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if _, err := p.WM.Set(ctx, p.jobKey(), started); err != nil {
		return res, err
	}
	res.Ran = true
	res.Elapsed = p.now().Sub(started)
	l.Info().Dur("elapsed", res.Elapsed).Int("drained", drained).Msg("searchindex: update done")
	return res, nil
}

// drain applies queued items from before the run and removes them
// items re-queued during the run keep their newer row
func (p *Processor) drain(ctx context.Context, before time.Time) (int, error) {
	items, err := p.queue().Pending(ctx, p.Cfg.IndexName, before, p.Cfg.DrainLimit)
	if err != nil {
		return 0, perr.FromPostgres(err, "searchindex: load queue")
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err := p.UpdateSync(ctx, items); err != nil {
		return 0, err
	}
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	if _, err := p.queue().Remove(ctx, p.Cfg.IndexName, ids, before); err != nil {
		return len(items), perr.FromPostgres(err, "searchindex: remove drained")
	}
	return len(items), nil
}

// Reset rebuilds the index into the swap target and swaps it in
// queries on the live name see the old documents until the swap
func (p *Processor) Reset(ctx context.Context) (sidom.RunResult, error) {
	live, swap := p.Cfg.IndexName, p.swapName()
	started := p.now()
	res := sidom.RunResult{IndexName: live, StartedAt: started}
	l := logger.C(ctx).With().Str("mod", "searchindex").Str("index", live).Logger()
	l.Info().Msg("searchindex: reset start")

	steps := []struct {
		name string
		fn   func() error
	}{
		{"ensure live", func() error { return p.Engine.EnsureIndex(ctx, live, p.Cfg.PrimaryKey) }},
		{"drop stale swap", func() error { return p.Engine.DeleteIndex(ctx, swap) }},
		{"create swap", func() error { return p.Engine.EnsureIndex(ctx, swap, p.Cfg.PrimaryKey) }},
		{"setup swap", func() error { return p.Indexer.Setup(ctx, p.Engine, swap) }},
		{"populate swap", func() error { return p.Indexer.Populate(ctx, p.Engine, swap) }},
		{"swap", func() error { return p.Engine.SwapIndexes(ctx, live, swap) }},
		{"drop old", func() error { return p.Engine.DeleteIndex(ctx, swap) }},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.fn(); err != nil {
			l.Error().Err(err).Str("step", s.name).Msg("searchindex: reset failed")
			return res, perr.Wrapf(err, perr.ErrorCodeUnavailable, "searchindex: reset %s", s.name)
		}
	}

	cleared, err := p.queue().Clear(ctx, live, started)
	if err != nil {
		return res, perr.FromPostgres(err, "searchindex: clear queue")
	}
	res.Cleared = cleared

	if _, err := p.WM.Set(ctx, p.jobKey(), started); err != nil {
		return res, err
	}
	res.Ran = true
	res.Elapsed = p.now().Sub(started)
	l.Info().Dur("elapsed", res.Elapsed).Int64("cleared", cleared).Msg("searchindex: reset done")
	return res, nil
}

// UpdateSync applies items to the live index in batches
// a repeated id keeps its last action
func (p *Processor) UpdateSync(ctx context.Context, items []sidom.Item) error {
	items = coalesce(items)
	for _, chunk := range taskpool.Chunk(items, p.Cfg.BatchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err := p.Indexer.ApplyBatch(ctx, p.Engine, p.Cfg.IndexName, partition(chunk)); err != nil {
			return err
		}
	}
	return nil
}

// QueueUpdate records items for the next drain
func (p *Processor) QueueUpdate(ctx context.Context, items []sidom.Item) error {
	if len(items) == 0 {
		return nil
	}
	return perr.FromPostgres(p.queue().Enqueue(ctx, p.Cfg.IndexName, items, p.now()), "searchindex: queue update")
}

func coalesce(items []sidom.Item) []sidom.Item {
	last := make(map[int64]int, len(items))
	for i, it := range items {
		last[it.ID] = i
	}
	if len(last) == len(items) {
		return items
	}
	out := make([]sidom.Item, 0, len(last))
	for i, it := range items {
		if last[it.ID] == i {
			out = append(out, it)
		}
	}
	return out
}

func partition(items []sidom.Item) sidom.Batch {
	var b sidom.Batch
	for _, it := range items {
		if it.Action.Normalize() == sidom.ActionDelete {
			b.DeleteIDs = append(b.DeleteIDs, it.ID)
		} else {
			b.UpdateIDs = append(b.UpdateIDs, it.ID)
		}
	}
	return b
}
