// Package module composes the watermark store, caches and processors into one modkit.Module
package module

import (
	"context"

	"syncengine/internal/adapters/search/meili"
	"syncengine/internal/modkit"
	"syncengine/internal/modkit/httpkit"
	mod "syncengine/internal/modkit/module"

	emmod "syncengine/internal/services/entitymetrics/module"
	metricsmod "syncengine/internal/services/metrics/module"
	sidom "syncengine/internal/services/searchindex/domain"
	simod "syncengine/internal/services/searchindex/module"
	wmdom "syncengine/internal/services/watermark/domain"
	wmmod "syncengine/internal/services/watermark/module"
)

// Ports exported by the pipeline
type Ports struct {
	Watermarks wmdom.Port
	Caches     emmod.Ports
	Metrics    metricsmod.Ports
	Search     simod.Ports
	// Migrate creates every table the configured modules own
	Migrate func(ctx context.Context) error
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	mods  []mod.Module
	ports Ports
}

// New wires modules leaves first, deps.PG is required
// a search engine passed with modkit.WithPorts(sidom.Engine) wins over SERVICE_MEILI_URL
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	if deps.PG == nil {
		panic("pipeline requires postgres")
	}
	b := modkit.Build(opts...)

	wm := wmmod.New(deps)
	caches := emmod.New(deps)
	cachePorts := mod.MustPortsOf[emmod.Ports](caches)
	metrics := metricsmod.New(deps, modkit.WithPorts(cachePorts))

	var searchOpts []modkit.Option
	if e, ok := b.Ports.(sidom.Engine); ok {
		searchOpts = append(searchOpts, modkit.WithPorts(e))
	} else if mc := meili.FromConfig(deps.Cfg); mc.URL != "" {
		e, err := meili.New(mc)
		if err != nil {
			panic("pipeline: " + err.Error())
		}
		deps.Log.Info().Str("url", mc.URL).Msg("pipeline: meilisearch engine")
		searchOpts = append(searchOpts, modkit.WithPorts[sidom.Engine](e))
	}
	search := simod.New(deps, searchOpts...)

	m := &Module{deps: deps, mods: []mod.Module{wm, caches, metrics, search}}
	m.ports = Ports{
		Watermarks: mod.MustPortsOf[wmmod.Ports](wm).Store,
		Caches:     cachePorts,
		Metrics:    mod.MustPortsOf[metricsmod.Ports](metrics),
		Search:     mod.MustPortsOf[simod.Ports](search),
	}
	wmMigrator := mod.MustPortsOf[wmmod.Ports](wm).Migrator
	m.ports.Migrate = func(ctx context.Context) error {
		steps := []func(context.Context) error{
			wmMigrator.Migrate,
			m.ports.Caches.Migrate,
			m.ports.Metrics.Migrate,
			m.ports.Search.Migrate,
		}
		for _, step := range steps {
			if step == nil {
				continue
			}
			if err := step(ctx); err != nil {
				return err
			}
		}
		return nil
	}
	for _, sub := range m.mods {
		mod.Register(sub.Name(), sub.Ports())
	}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "pipeline" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op, the api mounts its own modules over these ports
func (m *Module) MountRoutes(_ httpkit.Router) {}
