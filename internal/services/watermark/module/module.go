// Package module wires the watermark store as a modkit.Module
package module

import (
	"syncengine/internal/modkit"
	"syncengine/internal/modkit/httpkit"
	"syncengine/internal/modkit/repokit"

	wmdom "syncengine/internal/services/watermark/domain"
	wmrepo "syncengine/internal/services/watermark/repo"
	wmservice "syncengine/internal/services/watermark/service"
)

// Ports exported by the watermark module
type Ports struct {
	Store wmdom.Port
	// Migrator creates the backing table, used by the worker's migrate mode
	Migrator *wmservice.Service
}

// Module implements modkit.Module for watermarks
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the module on deps.PG
func New(deps modkit.Deps) *Module {
	svc := wmservice.New(repokit.TxRunner(deps.PG), wmrepo.NewPG())
	return &Module{deps: deps, ports: Ports{Store: svc, Migrator: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return "watermark" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op, the admin API reads watermarks through Ports
func (m *Module) MountRoutes(_ httpkit.Router) {}
