// Package module mounts the meta endpoints
package module

import (
	"context"
	"time"

	"syncengine/internal/modkit"
	"syncengine/internal/modkit/httpkit"
	"syncengine/internal/platform/store"

	metahttp "syncengine/internal/services/api/meta/http"
)

// New mounts health, readiness, version and service info
// readiness probes postgres, clickhouse and redis, whichever deps carries
// pass a metahttp.Inventory with modkit.WithPorts to describe the pipeline
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("meta"), modkit.WithPrefix("/meta")}, opts...)...)

	d := metahttp.Deps{
		ServiceName: "syncengine-api",
		StartedAt:   time.Now(),
		Checks: []metahttp.Check{
			{Name: "pg", Ping: pingOf(deps.PG)},
			{Name: "ch", Ping: pingOf(deps.CH)},
			{Name: "redis"},
		},
	}
	if deps.RDS != nil {
		d.Checks[2].Ping = func(ctx context.Context) error { return deps.RDS.Ping(ctx).Err() }
	}
	if inv, ok := b.Ports.(metahttp.Inventory); ok {
		d.Inventory = inv
	}
	return b.Routed(func(r httpkit.Router) { metahttp.Register(r, d) })
}

func pingOf(v any) func(context.Context) error {
	if p, ok := v.(store.Pinger); ok {
		return p.Ping
	}
	return nil
}
