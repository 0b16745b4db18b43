package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "syncengine/internal/platform/errors"
	phttp "syncengine/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func bearer(v string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if v != "" {
		r.Header.Set("Authorization", v)
	}
	return r
}

func TestPort_Parse(t *testing.T) {
	p := NewPortFunc(func(tok string) (string, error) {
		if tok != "good" {
			return "", perr.New(perr.ErrorCodeUnknown, "nope")
		}
		return "ops", nil
	})

	for _, h := range []string{"", "Basic good", "Bearer", "Bearer   ", "good"} {
		if _, err := p.Parse(bearer(h)); !perr.IsCode(err, perr.ErrorCodeUnauthorized) {
			t.Errorf("%q: got %v", h, err)
		}
	}
	if _, err := p.Parse(bearer("Bearer bad")); !perr.IsCode(err, perr.ErrorCodeUnauthorized) {
		t.Fatalf("parser errors are unauthorized, got %v", err)
	}
	for _, h := range []string{"Bearer good", "  bearer   good  ", "BEARER good"} {
		if c, err := p.Parse(bearer(h)); err != nil || c != "ops" {
			t.Errorf("%q: got %q %v", h, c, err)
		}
	}
	if _, err := (&Port{}).Parse(bearer("Bearer good")); err == nil {
		t.Fatal("nil parser should reject")
	}
}

func TestAdminToken(t *testing.T) {
	if c, err := AdminToken("s3cret").Parse(bearer("Bearer s3cret")); err != nil || c != "admin" {
		t.Fatalf("got %q %v", c, err)
	}
	if _, err := AdminToken("s3cret").Parse(bearer("Bearer s3cre")); err == nil {
		t.Fatal("prefix of the token must not pass")
	}
	if _, err := AdminToken("").Parse(bearer("Bearer x")); err == nil {
		t.Fatal("empty token accepts nothing")
	}
}

func mount(token string) *chi.Mux {
	mux := chi.NewRouter()
	r := phttp.AdaptChi(mux)
	MountAPIV1(r, CommonStack(), func(api Router) {
		Get(api, "/open", func(r *http.Request) (any, error) { return User(r), nil })
		Protected(api, AdminToken(token), func(pr Router) {
			pr.Route("/jobs", func(jr Router) {
				Delete(jr, "/{job}", func(r *http.Request) (any, error) { return User(r) + ":" + Param(r, "job"), nil })
			})
		})
	})
	return mux
}

func TestProtected(t *testing.T) {
	mux := mount("tok")
	call := func(method, path, auth string) (int, string) {
		req := httptest.NewRequest(method, path, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		var env phttp.Envelope
		_ = json.Unmarshal(rr.Body.Bytes(), &env)
		s, _ := env.Data.(string)
		return rr.Code, s
	}

	if code, who := call(http.MethodGet, "/api/v1/open", ""); code != 200 || who != "anonymous" {
		t.Fatalf("open %d %q", code, who)
	}
	if code, _ := call(http.MethodDelete, "/api/v1/jobs/Image", ""); code != http.StatusUnauthorized {
		t.Fatalf("nested route should inherit auth, got %d", code)
	}
	if code, got := call(http.MethodDelete, "/api/v1/jobs/Image", "Bearer tok"); code != 200 || got != "admin:Image" {
		t.Fatalf("authorized %d %q", code, got)
	}
}

func TestCommonStack_RequestIDAndSlashes(t *testing.T) {
	mux := mount("tok")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/open/", nil))
	if rr.Code != 200 {
		t.Fatalf("trailing slash should be stripped, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"request_id":"`) {
		t.Fatalf("request id missing: %s", rr.Body.String())
	}
	if rr.Header().Get("Cache-Control") == "" {
		t.Fatal("no-cache headers missing")
	}
}

func TestPostJSON_PutJSON(t *testing.T) {
	type in struct {
		IDs []int64 `json:"ids" validate:"required,min=1"`
	}
	mux := chi.NewRouter()
	r := phttp.AdaptChi(mux)
	PostJSON(r, "/q", func(_ *http.Request, b in) (any, error) { return len(b.IDs), nil })
	PutJSON(r, "/q", func(_ *http.Request, b in) (any, error) { return Status(http.StatusAccepted, len(b.IDs)), nil })
	Post(r, "/flush", func(*http.Request) (any, error) { return "flushed", nil })

	for _, tc := range []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/q", `{"ids":[4,5]}`, 200},
		{http.MethodPut, "/q", `{"ids":[4]}`, 202},
		{http.MethodPost, "/q", `{"ids":[]}`, 400},
		{http.MethodPost, "/flush", ``, 200},
	} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)))
		if rr.Code != tc.want {
			t.Errorf("%s %s: %d want %d (%s)", tc.method, tc.path, rr.Code, tc.want, rr.Body.String())
		}
	}
}
