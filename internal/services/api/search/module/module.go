// Package module mounts the search index endpoints
package module

import (
	"syncengine/internal/modkit"
	"syncengine/internal/modkit/httpkit"

	"syncengine/internal/services/api/search/domain"
	searchhttp "syncengine/internal/services/api/search/http"
)

// New needs modkit.WithPorts with a domain.Resolver over the index processors
func New(_ modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("api-search"), modkit.WithPrefix("/search")}, opts...)...)

	res, ok := b.Ports.(domain.Resolver)
	if !ok {
		panic("api search module requires a processor Resolver port")
	}
	return b.Routed(func(r httpkit.Router) { searchhttp.Register(r, res) })
}
