// Package api provides the HTTP API for the sync engine
package api

import (
	"maps"
	"slices"

	"syncengine/internal/platform/config"
	"syncengine/internal/platform/logger"
	phttp "syncengine/internal/platform/net/http"
	"syncengine/internal/platform/store"

	"syncengine/internal/modkit"
	"syncengine/internal/modkit/httpkit"
	"syncengine/internal/modkit/module"
	"syncengine/internal/modkit/swaggerkit"

	"syncengine/internal/services/api/docs"
	emapi "syncengine/internal/services/api/entitymetrics/module"
	metahttp "syncengine/internal/services/api/meta/http"
	metamod "syncengine/internal/services/api/meta/module"
	metricsapi "syncengine/internal/services/api/metrics/module"
	searchapi "syncengine/internal/services/api/search/module"
	wmapi "syncengine/internal/services/api/watermarks/module"
	pipemod "syncengine/internal/services/pipeline/module"
	wmdom "syncengine/internal/services/watermark/domain"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
		RDS: opt.Store.RDS,
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	// the pipeline owns processors and caches, the api modules only resolve them
	pipe := pipemod.New(deps)
	ports := module.MustPortsOf[pipemod.Ports](pipe)

	public := []module.Module{
		pipe,
		metamod.New(deps, modkit.WithPorts(inventory(ports))),
	}
	admin := []module.Module{
		metricsapi.New(deps, modkit.WithPorts(ports.Metrics)),
		searchapi.New(deps, modkit.WithPorts(ports.Search)),
		emapi.New(deps, modkit.WithPorts(ports.Caches)),
		wmapi.New(deps, modkit.WithPorts[wmdom.Port](ports.Watermarks)),
	}

	// CORE_API_ADMIN_TOKEN puts the admin modules behind a shared bearer token
	token := opt.Config.Prefix("CORE_API_").MayString("ADMIN_TOKEN", "")
	if token == "" {
		deps.Log.Warn().Msg("api: CORE_API_ADMIN_TOKEN unset, admin routes are open")
	}

	swaggerkit.Mount(r, opt.EnableSwagger, docs.SwaggerInfo.ReadDoc)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	mount := func(rr httpkit.Router, mods []module.Module) {
		for _, m := range mods {
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(rr)
		}
	}
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		mount(api, public)
		if token == "" {
			mount(api, admin)
			return
		}
		httpkit.Protected(api, httpkit.AdminToken(token), func(pr httpkit.Router) { mount(pr, admin) })
	})
}

// inventory names what the pipeline was configured with, sorted for stable output
func inventory(p pipemod.Ports) metahttp.Inventory {
	return metahttp.Inventory{
		MetricJobs:    slices.Sorted(maps.Keys(p.Metrics.Processors)),
		SearchIndexes: slices.Sorted(maps.Keys(p.Search.Processors)),
		Caches:        slices.Sorted(maps.Keys(p.Caches.Caches)),
	}
}
