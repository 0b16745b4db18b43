package httpkit

import (
	"crypto/subtle"
	"net/http"
	"strings"

	perr "syncengine/internal/platform/errors"
	pnet "syncengine/internal/platform/net"
	phttp "syncengine/internal/platform/net/http"
	"syncengine/internal/platform/net/middleware"
)

// TokenFunc resolves a bearer token to a caller name
type TokenFunc func(token string) (caller string, err error)

// Port implements middleware.AuthPort over the Authorization header
type Port struct{ parse TokenFunc }

// NewPortFunc builds a Port from a token parser
func NewPortFunc(fn TokenFunc) *Port { return &Port{parse: fn} }

// AdminToken accepts exactly one shared bearer token and names the caller "admin"
// an empty token accepts nothing
func AdminToken(token string) *Port {
	want := []byte(token)
	return NewPortFunc(func(raw string) (string, error) {
		if len(want) == 0 || subtle.ConstantTimeCompare([]byte(raw), want) != 1 {
			return "", perr.Unauthorizedf("invalid bearer token")
		}
		return "admin", nil
	})
}

// Parse reads "Bearer <token>", the scheme is case insensitive
func (p *Port) Parse(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", perr.Unauthorizedf("missing bearer token")
	}
	if p.parse == nil {
		return "", perr.Unauthorizedf("invalid bearer token")
	}
	caller, err := p.parse(token)
	if err != nil {
		return "", perr.Unauthorizedf("invalid bearer token")
	}
	return caller, nil
}

// Protected registers fn's routes behind p
func Protected(r Router, p middleware.AuthPort, fn func(Router)) {
	r.Group(func(g Router) {
		g.Use(middleware.Auth(p, phttp.JSON))
		fn(g)
	})
}

// User returns the caller resolved by Protected, "anonymous" on open routes
func User(r *http.Request) string {
	if c := pnet.Caller(r.Context()); c != "" {
		return c
	}
	return "anonymous"
}
