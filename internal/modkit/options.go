package modkit

import "net/http"

// Option adjusts how a module is built
type Option func(*Built)

// WithName overrides the module name used in logs and the registry
func WithName(name string) Option { return func(b *Built) { b.Name = name } }

// WithPrefix overrides the route prefix
func WithPrefix(prefix string) Option { return func(b *Built) { b.Prefix = prefix } }

// WithMiddlewares appends middleware run in front of the module's routes
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) { b.Mw = append(b.Mw, mw...) }
}

// WithPorts hands a module the ports it depends on, the module asserts the type it needs
func WithPorts[T any](p T) Option { return func(b *Built) { b.Ports = p } }
