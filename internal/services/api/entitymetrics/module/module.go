// Package module mounts the entity metric cache endpoints
package module

import (
	"syncengine/internal/modkit"
	"syncengine/internal/modkit/httpkit"

	"syncengine/internal/services/api/entitymetrics/domain"
	emhttp "syncengine/internal/services/api/entitymetrics/http"
)

// New needs modkit.WithPorts with a domain.Resolver over the caches
func New(_ modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("api-entitymetrics"), modkit.WithPrefix("/entity-metrics")}, opts...)...)

	res, ok := b.Ports.(domain.Resolver)
	if !ok {
		panic("api entitymetrics module requires a cache Resolver port")
	}
	return b.Routed(func(r httpkit.Router) { emhttp.Register(r, res) })
}
