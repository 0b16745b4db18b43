// Package module wires one metric processor per entity type as a modkit.Module
package module

import (
	"context"

	"syncengine/internal/modkit"
	"syncengine/internal/modkit/httpkit"
	"syncengine/internal/modkit/repokit"
	perr "syncengine/internal/platform/errors"

	emdom "syncengine/internal/services/entitymetrics/domain"
	"syncengine/internal/services/metrics/aggregator"
	mdom "syncengine/internal/services/metrics/domain"
	mrepo "syncengine/internal/services/metrics/repo"
	mservice "syncengine/internal/services/metrics/service"
	wmrepo "syncengine/internal/services/watermark/repo"
	wmservice "syncengine/internal/services/watermark/service"
)

// CacheSource resolves entity metrics caches, entitymetrics module Ports satisfies it
type CacheSource interface {
	Cache(entityType string) (emdom.Port, bool)
}

// Ports exported by the metrics module
type Ports struct {
	// Processors is keyed by job name, which is the entity type
	Processors map[string]mdom.Port
	Migrate    func(ctx context.Context) error
}

// Processor returns the processor for job
func (p Ports) Processor(job string) (mdom.Port, error) {
	proc, ok := p.Processors[job]
	if !ok {
		return nil, perr.NotFoundf("metrics: unknown job %q", job)
	}
	return proc, nil
}

// Module implements modkit.Module for metric processors
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New builds processors from deps.Cfg
// pass modkit.WithPorts(CacheSource) to refresh caches after aggregation
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	o := FromConfig(deps.Cfg)
	b := modkit.Build(opts...)
	caches, _ := b.Ports.(CacheSource)

	m := &Module{deps: deps, ports: Ports{Processors: map[string]mdom.Port{}}}
	if deps.PG == nil {
		deps.Log.Warn().Msg("metrics: postgres missing, processors disabled")
		return m
	}

	wm := wmservice.New(repokit.TxRunner(deps.PG), wmrepo.NewPG())
	queue := mrepo.NewPG()
	var aggs []*aggregator.EntityAggregator

	for _, job := range o.Jobs {
		var inv aggregator.Invalidator
		if caches != nil {
			if c, ok := caches.Cache(job.EntityType); ok {
				inv = c
			}
		}
		agg := aggregator.New(aggregator.Config{
			EntityType:  job.EntityType,
			Columns:     aggregator.DefaultColumns(job.Metrics...),
			ChunkSize:   o.ChunkSize,
			Concurrency: o.Concurrency,
		}, inv)
		aggs = append(aggs, agg)

		cfg := mservice.Config{Name: job.EntityType, UpdateInterval: o.UpdateInterval, Location: o.Location}
		if job.Rank != nil {
			cfg.Rank = &mservice.RankConfig{Config: *job.Rank, RefreshInterval: job.RefreshInterval}
		}
		m.ports.Processors[job.EntityType] = mservice.New(deps.PG, deps.CH, wm, queue, agg, cfg)
	}

	m.ports.Migrate = func(ctx context.Context) error {
		if err := wm.Migrate(ctx); err != nil {
			return err
		}
		if err := perr.FromPostgres(queue.Bind(deps.PG).Migrate(ctx), "metrics: migrate queue"); err != nil {
			return err
		}
		for _, a := range aggs {
			if err := a.Migrate(ctx, deps.PG); err != nil {
				return err
			}
		}
		return nil
	}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "metrics" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op, the api module queues updates through Ports
func (m *Module) MountRoutes(_ httpkit.Router) {}
