// Package http provides http transport for metric queues
package http

import (
	stdhttp "net/http"

	"syncengine/internal/modkit/httpkit"
	"syncengine/internal/services/api/metrics/domain"
)

// Register mounts metric endpoints on the given router
func Register(r httpkit.Router, res domain.Resolver) {
	h := &handlers{res: res}
	httpkit.PostJSON[domain.QueueInput](r, "/{job}/queue", h.queue)
}

type handlers struct{ res domain.Resolver }

// swagger:route POST /metrics/{job}/queue Metrics metricsQueue
// @Summary Queue entities for the next aggregation run
// @Tags Metrics
// @Accept json
// @Produce json
// @Param job path string true "Entity type" example(Image)
// @Param payload body domain.QueueInput true "Entity ids"
// @Success 200 {object} domain.QueueResult "ok"
// @Router /metrics/{job}/queue [post]
func (h *handlers) queue(r *stdhttp.Request, in domain.QueueInput) (any, error) {
	job := httpkit.Param(r, "job")
	p, err := h.res.Processor(job)
	if err != nil {
		return nil, err
	}
	if err := p.QueueUpdate(r.Context(), in.IDs...); err != nil {
		return nil, err
	}
	return domain.QueueResult{Job: job, Queued: len(in.IDs)}, nil
}
