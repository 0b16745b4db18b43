package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"syncengine/internal/platform/config"
	"syncengine/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// Server owns the chi mux and the listener
type Server struct {
	mux *chi.Mux
	srv *http.Server
	// drain bounds graceful shutdown
	drain time.Duration
}

// NewServer reads PORT and SHUTDOWN_TIMEOUT from cfg
func NewServer(cfg config.Conf) *Server {
	m := chi.NewRouter()
	return &Server{
		mux:   m,
		drain: cfg.MayDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		srv: &http.Server{
			Addr:              listenAddr(cfg.MayString("PORT", "4000")),
			Handler:           m,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// listenAddr accepts a bare port or host:port
func listenAddr(v string) string {
	if strings.Contains(v, ":") {
		return v
	}
	return ":" + v
}

// Router is the module facing view of the mux
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Handler serves the mounted routes
func (s *Server) Handler() http.Handler { return s.mux }

// Addr is the configured listen address
func (s *Server) Addr() string { return s.srv.Addr }

// Run serves until ctx is done, then drains in flight requests
func (s *Server) Run(ctx context.Context) error {
	l := logger.Named("http")
	errc := make(chan error, 1)
	go func() {
		l.Info().Str("addr", s.srv.Addr).Msg("http: listening")
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), s.drain)
	defer cancel()
	l.Info().Dur("drain", s.drain).Msg("http: shutting down")
	return s.srv.Shutdown(sctx)
}
