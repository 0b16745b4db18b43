// Package module mounts the watermark admin endpoints
package module

import (
	"syncengine/internal/modkit"
	"syncengine/internal/modkit/httpkit"

	wmhttp "syncengine/internal/services/api/watermarks/http"
	wmdom "syncengine/internal/services/watermark/domain"
)

// New needs modkit.WithPorts with the watermark store
func New(_ modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("api-watermarks"), modkit.WithPrefix("/watermarks")}, opts...)...)

	res, ok := b.Ports.(wmdom.Port)
	if !ok {
		panic("api watermarks module requires a watermark store port")
	}
	return b.Routed(func(r httpkit.Router) { wmhttp.Register(r, res) })
}
