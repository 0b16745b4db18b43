package middleware

import (
	"net/http"

	pnet "syncengine/internal/platform/net"
)

// AuthPort resolves the caller of a request
type AuthPort interface {
	Parse(r *http.Request) (caller string, err error)
}

// Auth rejects requests the port cannot resolve, write renders the error envelope
// a nil port lets everything through
func Auth(p AuthPort, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if p == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := p.Parse(r)
			if err != nil {
				status, body := pnet.Error(err, pnet.RequestID(r.Context()))
				write(w, status, body)
				return
			}
			next.ServeHTTP(w, r.WithContext(pnet.WithCaller(r.Context(), caller)))
		})
	}
}
