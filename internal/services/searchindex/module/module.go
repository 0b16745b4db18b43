// Package module wires one search index processor per configured index as a modkit.Module
package module

import (
	"context"

	"syncengine/internal/adapters/search/memsearch"
	"syncengine/internal/modkit"
	"syncengine/internal/modkit/httpkit"
	"syncengine/internal/modkit/repokit"
	perr "syncengine/internal/platform/errors"

	sidom "syncengine/internal/services/searchindex/domain"
	"syncengine/internal/services/searchindex/indexer"
	sirepo "syncengine/internal/services/searchindex/repo"
	siservice "syncengine/internal/services/searchindex/service"
	wmrepo "syncengine/internal/services/watermark/repo"
	wmservice "syncengine/internal/services/watermark/service"
)

// Ports exported by the searchindex module
type Ports struct {
	Processors map[string]sidom.Port
	Migrate    func(ctx context.Context) error
}

// Processor returns the processor for index
func (p Ports) Processor(index string) (sidom.Port, error) {
	proc, ok := p.Processors[index]
	if !ok {
		return nil, perr.NotFoundf("searchindex: unknown index %q", index)
	}
	return proc, nil
}

// Module implements modkit.Module for search indexes
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New builds processors from deps.Cfg
// pass modkit.WithPorts(sidom.Engine) to target a real engine, the in-process one is used otherwise
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	o := FromConfig(deps.Cfg)
	b := modkit.Build(opts...)

	m := &Module{deps: deps, ports: Ports{Processors: map[string]sidom.Port{}}}
	if deps.PG == nil {
		deps.Log.Warn().Msg("searchindex: postgres missing, processors disabled")
		return m
	}
	engine, ok := b.Ports.(sidom.Engine)
	if !ok || engine == nil {
		deps.Log.Warn().Msg("searchindex: no engine configured, using in-process index")
		engine = memsearch.New()
	}

	wm := wmservice.New(repokit.TxRunner(deps.PG), wmrepo.NewPG())
	queue := sirepo.NewPG()
	for _, ix := range o.Indexes {
		src := indexer.NewSQL(deps.PG, ix.Source)
		m.ports.Processors[ix.Name] = siservice.New(deps.PG, wm, queue, engine, src, siservice.Config{
			IndexName:        ix.Name,
			PrimaryKey:       src.Cfg.PrimaryKey,
			UpdateInterval:   o.UpdateInterval,
			BatchSize:        o.BatchSize,
			DrainLimit:       o.DrainLimit,
			BatchesPerSecond: o.BatchesPerSecond,
		})
	}

	m.ports.Migrate = func(ctx context.Context) error {
		if err := wm.Migrate(ctx); err != nil {
			return err
		}
		return perr.FromPostgres(queue.Bind(deps.PG).Migrate(ctx), "searchindex: migrate queue")
	}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "searchindex" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op, the api module reaches processors through Ports
func (m *Module) MountRoutes(_ httpkit.Router) {}
