package modkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"syncengine/internal/modkit/httpkit"
	phttp "syncengine/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func TestBuild_LaterOptionsWin(t *testing.T) {
	mw := func(next http.Handler) http.Handler { return next }
	b := Build(WithName("api-metrics"), WithPrefix("/metrics"), WithName("custom"), WithMiddlewares(mw, mw), WithPorts(7))
	if b.Name != "custom" || b.Prefix != "/metrics" || len(b.Mw) != 2 || b.Ports != 7 {
		t.Fatalf("%+v", b)
	}
}

func TestRouted(t *testing.T) {
	tag := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Module", "search")
			next.ServeHTTP(w, r)
		})
	}
	m := Build(WithName("api-search"), WithPrefix("search/"), WithMiddlewares(tag)).Routed(func(r httpkit.Router) {
		httpkit.Get(r, "/{index}", func(r *http.Request) (any, error) { return httpkit.Param(r, "index"), nil })
	})

	if m.Name() != "api-search" || m.Prefix() != "/search" || m.Ports() != nil {
		t.Fatalf("name %q prefix %q", m.Name(), m.Prefix())
	}

	mux := chi.NewRouter()
	var mod Module = m
	mod.MountRoutes(phttp.AdaptChi(mux))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/search/images", nil))
	if rr.Code != 200 || rr.Header().Get("X-Module") != "search" {
		t.Fatalf("code %d headers %v", rr.Code, rr.Header())
	}
}

func TestRouted_RequiresNameAndPrefix(t *testing.T) {
	for _, b := range []Built{{Prefix: "/x"}, {Name: "x"}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%+v should panic", b)
				}
			}()
			b.Routed(func(httpkit.Router) {})
		}()
	}
}
