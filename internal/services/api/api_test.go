package api

import (
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"syncengine/internal/modkit/module"
	"syncengine/internal/platform/config"
	phttp "syncengine/internal/platform/net/http"
	"syncengine/internal/platform/store"
	"syncengine/internal/platform/testkit/sqlfake"

	"github.com/go-chi/chi/v5"
)

func mountTestAPI(t *testing.T) (*chi.Mux, *sqlfake.DB) {
	t.Helper()
	t.Setenv("CORE_METRICS_JOBS", "Image")
	t.Setenv("CORE_SEARCH_INDEXES", "images")
	t.Setenv("SERVICE_MEILI_URL", "")
	t.Setenv("CORE_API_ADMIN_TOKEN", "tok")
	module.Reset()
	t.Cleanup(module.Reset)

	db := sqlfake.New()
	mux := chi.NewRouter()
	Mount(phttp.AdaptChi(mux), Options{
		Config: config.New(),
		Store:  &store.Store{PG: db},
	})
	return mux, db
}

func do(mux *chi.Mux, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestMount_PublicMetaAndProtectedAdmin(t *testing.T) {
	mux, db := mountTestAPI(t)

	if rec := do(mux, stdhttp.MethodGet, "/api/v1/meta/health", "", ""); rec.Code != stdhttp.StatusOK {
		t.Fatalf("health = %d %s", rec.Code, rec.Body)
	}

	body := `{"ids":[1,2]}`
	if rec := do(mux, stdhttp.MethodPost, "/api/v1/metrics/Image/queue", "", body); rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("no token = %d %s", rec.Code, rec.Body)
	}
	if rec := do(mux, stdhttp.MethodPost, "/api/v1/metrics/Image/queue", "wrong", body); rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("bad token = %d %s", rec.Code, rec.Body)
	}
	if len(db.Matching("INSERT INTO metric_update_queue")) != 0 {
		t.Fatalf("unauthorized request reached the queue")
	}

	rec := do(mux, stdhttp.MethodPost, "/api/v1/metrics/Image/queue", "tok", body)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("queue = %d %s", rec.Code, rec.Body)
	}
	if len(db.Matching("INSERT INTO metric_update_queue")) != 1 {
		t.Fatalf("queue insert not issued")
	}

	if rec := do(mux, stdhttp.MethodPost, "/api/v1/metrics/Nope/queue", "tok", body); rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("unknown job = %d %s", rec.Code, rec.Body)
	}
}

func TestMount_RegistersPipelinePorts(t *testing.T) {
	mountTestAPI(t)
	for _, name := range []string{"pipeline", "watermark", "entitymetrics", "metrics", "searchindex"} {
		if _, ok := module.PortsAs[any](name); !ok {
			t.Fatalf("module %q not registered", name)
		}
	}
}

func TestMount_ServiceListsPipeline(t *testing.T) {
	mux, _ := mountTestAPI(t)

	rec := do(mux, stdhttp.MethodGet, "/api/v1/meta/service", "", "")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("service = %d %s", rec.Code, rec.Body)
	}
	for _, want := range []string{`"metricJobs":["Image"]`, `"searchIndexes":["images"]`} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("missing %s in %s", want, rec.Body)
		}
	}
}
