// Package http provides http transport for entity metrics caches
package http

import (
	stdhttp "net/http"

	"syncengine/internal/modkit/httpkit"
	perr "syncengine/internal/platform/errors"
	"syncengine/internal/services/api/entitymetrics/domain"
	emdom "syncengine/internal/services/entitymetrics/domain"
)

// Register mounts entity metrics endpoints on the given router
func Register(r httpkit.Router, res domain.Resolver) {
	h := &handlers{res: res}
	httpkit.Get(r, "/{type}", h.fetch)
	httpkit.PostJSON[domain.IDsInput](r, "/{type}/bust", h.bust)
	httpkit.PostJSON[domain.IDsInput](r, "/{type}/refresh", h.refresh)
}

type handlers struct{ res domain.Resolver }

func (h *handlers) cache(r *stdhttp.Request) (emdom.Port, string, error) {
	typ := httpkit.Param(r, "type")
	c, ok := h.res.Cache(typ)
	if !ok {
		return nil, typ, perr.NotFoundf("entity metrics: unknown type %q", typ)
	}
	return c, typ, nil
}

// swagger:route GET /entity-metrics/{type} EntityMetrics entityMetricsFetch
// @Summary Cached metric bundles, populated on miss
// @Tags EntityMetrics
// @Produce json
// @Param type path string true "Entity type" example(Image)
// @Param ids query string true "Comma separated ids" example(1,2)
// @Success 200 {object} domain.FetchResult "ok"
// @Router /entity-metrics/{type} [get]
func (h *handlers) fetch(r *stdhttp.Request) (any, error) {
	c, typ, err := h.cache(r)
	if err != nil {
		return nil, err
	}
	ids, err := domain.ParseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		return nil, err
	}
	out, err := c.Lookup(r.Context(), ids...)
	if err != nil {
		return nil, err
	}
	return domain.FetchResult{Type: typ, Bundles: out}, nil
}

// swagger:route POST /entity-metrics/{type}/bust EntityMetrics entityMetricsBust
// @Summary Drop cached bundles so the next read repopulates
// @Tags EntityMetrics
// @Accept json
// @Produce json
// @Param type path string true "Entity type" example(Image)
// @Param payload body domain.IDsInput true "Entity ids"
// @Success 200 {object} domain.Ack "ok"
// @Router /entity-metrics/{type}/bust [post]
func (h *handlers) bust(r *stdhttp.Request, in domain.IDsInput) (any, error) {
	c, typ, err := h.cache(r)
	if err != nil {
		return nil, err
	}
	if err := c.Bust(r.Context(), in.IDs...); err != nil {
		return nil, err
	}
	return domain.Ack{Type: typ, Count: len(in.IDs)}, nil
}

// swagger:route POST /entity-metrics/{type}/refresh EntityMetrics entityMetricsRefresh
// @Summary Reload bundles from the analytics store
// @Tags EntityMetrics
// @Accept json
// @Produce json
// @Param type path string true "Entity type" example(Image)
// @Param payload body domain.IDsInput true "Entity ids"
// @Success 200 {object} domain.Ack "ok"
// @Router /entity-metrics/{type}/refresh [post]
func (h *handlers) refresh(r *stdhttp.Request, in domain.IDsInput) (any, error) {
	c, typ, err := h.cache(r)
	if err != nil {
		return nil, err
	}
	if err := c.Refresh(r.Context(), in.IDs...); err != nil {
		return nil, err
	}
	return domain.Ack{Type: typ, Count: len(in.IDs)}, nil
}
