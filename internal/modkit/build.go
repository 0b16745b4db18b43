package modkit

import (
	"net/http"

	"syncengine/internal/modkit/httpkit"
	str "syncengine/internal/platform/strings"
)

// Built is the result of applying options
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Ports  any
}

// Build applies opts in order, later options win
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	return b
}

// Routed is a module that only mounts routes under its prefix
type Routed struct {
	name     string
	prefix   string
	mw       []func(http.Handler) http.Handler
	register func(httpkit.Router)
}

// Routed turns b into a route only module, register attaches the endpoints
// it panics when the name or prefix is missing
func (b Built) Routed(register func(httpkit.Router)) *Routed {
	return &Routed{
		name:     str.MustString(b.Name, "module name"),
		prefix:   str.MustPrefix(b.Prefix),
		mw:       append([]func(http.Handler) http.Handler(nil), b.Mw...),
		register: register,
	}
}

// MountRoutes mounts the module under its prefix
func (m *Routed) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		rr.Use(m.mw...)
		m.register(rr)
	})
}

// Name is the module name
func (m *Routed) Name() string { return m.name }

// Prefix is the normalized route prefix
func (m *Routed) Prefix() string { return m.prefix }

// Ports is nil, route only modules export nothing
func (m *Routed) Ports() any { return nil }
