package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "syncengine/internal/platform/errors"
	phttp "syncengine/internal/platform/net/http"
	mdom "syncengine/internal/services/metrics/domain"

	"github.com/go-chi/chi/v5"
)

type fakeProc struct {
	mdom.Port
	queued []int64
}

func (f *fakeProc) QueueUpdate(_ context.Context, ids ...int64) error {
	f.queued = append(f.queued, ids...)
	return nil
}

type fakeResolver map[string]*fakeProc

func (f fakeResolver) Processor(job string) (mdom.Port, error) {
	if p, ok := f[job]; ok {
		return p, nil
	}
	return nil, perr.NotFoundf("unknown job %q", job)
}

func serve(t *testing.T, res fakeResolver, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), res)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestQueue(t *testing.T) {
	t.Parallel()

	img := &fakeProc{}
	rec := serve(t, fakeResolver{"Image": img}, stdhttp.MethodPost, "/Image/queue", `{"ids":[3,4]}`)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if len(img.queued) != 2 || img.queued[0] != 3 {
		t.Fatalf("queued = %v", img.queued)
	}
	if !strings.Contains(rec.Body.String(), `"queued":2`) {
		t.Fatalf("body = %s", rec.Body)
	}
}

func TestQueue_Errors(t *testing.T) {
	t.Parallel()

	res := fakeResolver{"Image": &fakeProc{}}
	cases := []struct {
		name, path, body string
		want             int
	}{
		{"unknown job", "/Post/queue", `{"ids":[1]}`, stdhttp.StatusNotFound},
		{"empty ids", "/Image/queue", `{"ids":[]}`, stdhttp.StatusBadRequest},
		{"non positive id", "/Image/queue", `{"ids":[0]}`, stdhttp.StatusBadRequest},
		{"bad json", "/Image/queue", `{"ids":`, stdhttp.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, res, stdhttp.MethodPost, tc.path, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d want %d body=%s", rec.Code, tc.want, rec.Body)
			}
		})
	}
}
