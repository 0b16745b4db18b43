// Package net holds transport neutral request context and envelope helpers
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey uint8

const keyCaller ctxKey = iota

// WithCaller records the authenticated caller on ctx
func WithCaller(ctx context.Context, caller string) context.Context {
	if caller == "" {
		return ctx
	}
	return context.WithValue(ctx, keyCaller, caller)
}

// Caller returns the authenticated caller, empty on open routes
func Caller(ctx context.Context) string {
	s, _ := ctx.Value(keyCaller).(string)
	return s
}

// RequestID returns the id chi's RequestID middleware put on ctx
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }
