// Package http provides http transport for search index updates
package http

import (
	stdhttp "net/http"

	"syncengine/internal/modkit/httpkit"
	"syncengine/internal/services/api/search/domain"
)

// Register mounts search endpoints on the given router
func Register(r httpkit.Router, res domain.Resolver) {
	h := &handlers{res: res}
	httpkit.PostJSON[domain.ItemsInput](r, "/{index}/queue", h.queue)
	httpkit.PostJSON[domain.ItemsInput](r, "/{index}/sync", h.sync)
}

type handlers struct{ res domain.Resolver }

// swagger:route POST /search/{index}/queue Search searchQueue
// @Summary Queue items for the next index update
// @Tags Search
// @Accept json
// @Produce json
// @Param index path string true "Index name" example(images)
// @Param payload body domain.ItemsInput true "Items"
// @Success 200 {object} domain.ItemsResult "ok"
// @Router /search/{index}/queue [post]
func (h *handlers) queue(r *stdhttp.Request, in domain.ItemsInput) (any, error) {
	index := httpkit.Param(r, "index")
	p, err := h.res.Processor(index)
	if err != nil {
		return nil, err
	}
	if err := p.QueueUpdate(r.Context(), in.Items); err != nil {
		return nil, err
	}
	return domain.ItemsResult{Index: index, Accepted: len(in.Items)}, nil
}

// swagger:route POST /search/{index}/sync Search searchSync
// @Summary Apply items to the live index now
// @Tags Search
// @Accept json
// @Produce json
// @Param index path string true "Index name" example(images)
// @Param payload body domain.ItemsInput true "Items"
// @Success 200 {object} domain.ItemsResult "ok"
// @Router /search/{index}/sync [post]
func (h *handlers) sync(r *stdhttp.Request, in domain.ItemsInput) (any, error) {
	index := httpkit.Param(r, "index")
	p, err := h.res.Processor(index)
	if err != nil {
		return nil, err
	}
	if err := p.UpdateSync(r.Context(), in.Items); err != nil {
		return nil, err
	}
	return domain.ItemsResult{Index: index, Accepted: len(in.Items)}, nil
}
