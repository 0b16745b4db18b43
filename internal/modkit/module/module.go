// Package module is the module contract plus the port lookup helpers used during bootstrap
package module

import (
	phttp "syncengine/internal/platform/net/http"
)

// Module can mount routes and exposes a port set for other modules
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
