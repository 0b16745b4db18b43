// Package http serves liveness, readiness and build info
package http

import (
	"context"
	"net/http"
	"time"

	"syncengine/internal/core/version"
	"syncengine/internal/modkit/httpkit"

	"golang.org/x/sync/errgroup"
)

// Check is one readiness probe, a nil Ping reports the backend as skipped
type Check struct {
	Name string
	Ping func(context.Context) error
}

// Inventory lists what the pipeline was configured with
type Inventory struct {
	MetricJobs    []string `json:"metricJobs"    example:"Image,Post"`
	SearchIndexes []string `json:"searchIndexes" example:"images"`
	Caches        []string `json:"caches"        example:"Image"`
}

// Deps are the handler dependencies
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Checks      []Check
	Inventory   Inventory
	// Timeout bounds each ping, 2s when zero
	Timeout time.Duration
}

type handlers struct{ Deps }

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.Timeout <= 0 {
		d.Timeout = 2 * time.Second
	}
	h := &handlers{d}
	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"      example:"true"`
	Service string `json:"service" example:"syncengine-api"`
	Now     string `json:"now"     example:"2025-09-03T13:05:00Z"`
}

// ReadyCheck is the outcome of one probe
type ReadyCheck struct {
	Name   string `json:"name"            example:"pg"`
	Status string `json:"status"          example:"ok" enums:"ok,fail,skipped"`
	Error  string `json:"error,omitempty" example:"dial tcp 127.0.0.1:5432: connect: connection refused"`
	Millis int64  `json:"ms"              example:"3"`
}

// ReadyResponse is fail when any probe failed and degraded when one was skipped
type ReadyResponse struct {
	Status string       `json:"status" example:"ok" enums:"ok,degraded,fail"`
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2025-09-03T13:05:00Z"`
}

// ServiceResponse reports uptime and the configured pipeline
type ServiceResponse struct {
	Name      string    `json:"name"    example:"syncengine-api"`
	Started   string    `json:"started" example:"2025-09-03T13:00:00Z"`
	UptimeSec int64     `json:"uptime"  example:"300"`
	Inventory Inventory `json:"inventory"`
}

// @Summary Liveness
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /meta/health [get]
func (h *handlers) health(*http.Request) (any, error) {
	return HealthResponse{OK: true, Service: h.ServiceName, Now: stamp(time.Now())}, nil
}

// @Summary Readiness, pings every configured backend
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse
// @Failure 503 {object} ReadyResponse "a backend is down"
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	out := make([]ReadyCheck, len(h.Checks))
	var g errgroup.Group
	for i, c := range h.Checks {
		g.Go(func() error {
			out[i] = h.probe(r.Context(), c)
			return nil
		})
	}
	_ = g.Wait()

	resp := ReadyResponse{Status: "ok", Checks: out, Now: stamp(time.Now())}
	for _, c := range out {
		if c.Status == "fail" {
			resp.Status = "fail"
			break
		}
		if c.Status == "skipped" {
			resp.Status = "degraded"
		}
	}
	if resp.Status == "fail" {
		return httpkit.Status(http.StatusServiceUnavailable, resp), nil
	}
	return resp, nil
}

func (h *handlers) probe(ctx context.Context, c Check) ReadyCheck {
	if c.Ping == nil {
		return ReadyCheck{Name: c.Name, Status: "skipped"}
	}
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	start := time.Now()
	err := c.Ping(ctx)
	rc := ReadyCheck{Name: c.Name, Status: "ok", Millis: time.Since(start).Milliseconds()}
	if err != nil {
		rc.Status, rc.Error = "fail", err.Error()
	}
	return rc
}

// @Summary Build info
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo
// @Router /meta/version [get]
func (h *handlers) version(*http.Request) (any, error) { return version.Info(), nil }

// @Summary Uptime and configured jobs, indexes and caches
// @Tags Meta
// @Produce json
// @Success 200 {object} ServiceResponse
// @Router /meta/service [get]
func (h *handlers) service(*http.Request) (any, error) {
	return ServiceResponse{
		Name:      h.ServiceName,
		Started:   stamp(h.StartedAt),
		UptimeSec: int64(time.Since(h.StartedAt) / time.Second),
		Inventory: h.Inventory,
	}, nil
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }
