package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"syncengine/internal/platform/net/middleware"
)

// CommonStack is the middleware every API scope gets
func CommonStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.LogContext,
		middleware.RealIP(),
		middleware.RecoverJSON,
		middleware.AccessLog(500 * time.Millisecond),
		middleware.NoCache(),
		middleware.CORS(middleware.CORSOptions{}),
		middleware.Compress(flate.BestSpeed),
		middleware.Heartbeat("/health"),
		middleware.StripSlashes(),
		middleware.Timeout(30 * time.Second),
	}
}

// MountAPIV1 mounts a /api/v1 scope with mw and lets mount register on it
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route("/api/v1", func(api Router) {
		api.Use(mw...)
		mount(api)
	})
}
