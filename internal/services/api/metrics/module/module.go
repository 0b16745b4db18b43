// Package module mounts the metric queue endpoints
package module

import (
	"syncengine/internal/modkit"
	"syncengine/internal/modkit/httpkit"

	"syncengine/internal/services/api/metrics/domain"
	metricshttp "syncengine/internal/services/api/metrics/http"
)

// New needs modkit.WithPorts with a domain.Resolver over the metric processors
func New(_ modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("api-metrics"), modkit.WithPrefix("/metrics")}, opts...)...)

	res, ok := b.Ports.(domain.Resolver)
	if !ok {
		panic("api metrics module requires a processor Resolver port")
	}
	return b.Routed(func(r httpkit.Router) { metricshttp.Register(r, res) })
}
