// Package http provides watermark admin endpoints
package http

import (
	stdhttp "net/http"

	"syncengine/internal/modkit/httpkit"
	"syncengine/internal/platform/logger"
	"syncengine/internal/services/api/watermarks/domain"
	wmdom "syncengine/internal/services/watermark/domain"
)

// Register mounts watermark endpoints on the given router
func Register(r httpkit.Router, store wmdom.Port) {
	h := &handlers{store: store}
	httpkit.Get(r, "/", h.list)
	httpkit.PutJSON[domain.ForceInput](r, "/{job}", h.force)
	httpkit.Delete(r, "/{job}", h.delete)
}

type handlers struct{ store wmdom.Port }

// swagger:route GET /watermarks Watermarks watermarksList
// @Summary Last successful run start per job
// @Tags Watermarks
// @Produce json
// @Success 200 {array} wmdom.Watermark "ok"
// @Router /watermarks [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	out, err := h.store.List(r.Context())
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []wmdom.Watermark{}
	}
	return out, nil
}

// swagger:route PUT /watermarks/{job} Watermarks watermarksForce
// @Summary Overwrite a job watermark
// @Tags Watermarks
// @Accept json
// @Produce json
// @Param job path string true "Job key" example(search:images)
// @Param payload body domain.ForceInput true "New value"
// @Success 200 {object} domain.JobAck "ok"
// @Router /watermarks/{job} [put]
func (h *handlers) force(r *stdhttp.Request, in domain.ForceInput) (any, error) {
	job := httpkit.Param(r, "job")
	if err := h.store.Force(r.Context(), job, in.LastRunAt); err != nil {
		return nil, err
	}
	logger.C(r.Context()).Info().Str("job", job).Time("last_run_at", in.LastRunAt).Str("by", httpkit.User(r)).Msg("watermark forced")
	return domain.JobAck{JobKey: job}, nil
}

// swagger:route DELETE /watermarks/{job} Watermarks watermarksDelete
// @Summary Drop a job watermark so the next run starts from epoch
// @Tags Watermarks
// @Produce json
// @Param job path string true "Job key" example(Image)
// @Success 200 {object} domain.JobAck "ok"
// @Router /watermarks/{job} [delete]
func (h *handlers) delete(r *stdhttp.Request) (any, error) {
	job := httpkit.Param(r, "job")
	if err := h.store.Delete(r.Context(), job); err != nil {
		return nil, err
	}
	return domain.JobAck{JobKey: job}, nil
}
