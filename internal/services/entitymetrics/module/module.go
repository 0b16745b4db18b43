// Package module wires the entity metrics caches as a modkit.Module
package module

import (
	"context"

	"syncengine/internal/modkit"
	"syncengine/internal/modkit/httpkit"

	"syncengine/internal/services/entitymetrics/bundles"
	"syncengine/internal/services/entitymetrics/cache"
	emdom "syncengine/internal/services/entitymetrics/domain"
	emrepo "syncengine/internal/services/entitymetrics/repo"
)

// Ports exported by the entity metrics module
type Ports struct {
	// Caches is keyed by entity type
	Caches map[string]emdom.Port
	// Migrate creates the analytics events table, nil without clickhouse
	Migrate func(ctx context.Context) error
}

// Cache returns the cache for entityType
func (p Ports) Cache(entityType string) (emdom.Port, bool) {
	c, ok := p.Caches[entityType]
	return c, ok
}

// Module implements modkit.Module for entity metrics
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs one cache per configured entity type
// without redis or clickhouse the module exports no caches
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)
	m := &Module{deps: deps, ports: Ports{Caches: map[string]emdom.Port{}}}

	if deps.CH == nil || deps.RDS == nil {
		deps.Log.Warn().Bool("ch", deps.CH != nil).Bool("redis", deps.RDS != nil).
			Msg("entitymetrics: backends missing, caches disabled")
		return m
	}

	src := emrepo.NewClickHouse(deps.CH)
	m.ports.Migrate = src.Migrate

	for _, t := range opts.Types {
		co := opts.Cache
		co.EntityType = t
		m.ports.Caches[t] = build(deps, src, co, opts)
	}
	return m
}

func build(deps modkit.Deps, src emdom.Source, co cache.Options, opts Options) emdom.Port {
	switch co.EntityType {
	case "Image":
		return cache.New(deps.RDS, src, bundles.ImageFrom, co)
	case "Model":
		c := cache.New(deps.RDS, src, bundles.ModelFrom, co)
		if opts.ModelStatus && deps.PG != nil {
			c.WithExtra(emrepo.StatusFetcher(deps.PG, "Model"))
		}
		return c
	default:
		return cache.New(deps.RDS, src, bundles.GenericFrom, co)
	}
}

// Name returns the module name
func (m *Module) Name() string { return "entitymetrics" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op, the api module serves the caches through Ports
func (m *Module) MountRoutes(_ httpkit.Router) {}
