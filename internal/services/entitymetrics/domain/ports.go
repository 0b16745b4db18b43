// Package domain defines entity metrics types, ports and transform helpers
package domain

import "context"

// Metrics is the raw metric name to value map stored per entity
// nil means no metrics were ever observed for the entity
type Metrics map[string]int64

// Extra is caller supplied per-id data merged into a bundle
type Extra map[string]any

// Source computes metrics for ids from the analytics store
// ids without any events are simply missing from the result
type Source interface {
	Load(ctx context.Context, entityType string, ids []int64) (map[int64]Metrics, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, entityType string, ids []int64) (map[int64]Metrics, error)

// Load calls f
func (f SourceFunc) Load(ctx context.Context, entityType string, ids []int64) (map[int64]Metrics, error) {
	return f(ctx, entityType, ids)
}

// ExtraFetcher loads additional per-id data in bulk
type ExtraFetcher func(ctx context.Context, ids []int64) (map[int64]Extra, error)

// Port is the type-erased cache surface used by the API and other modules
type Port interface {
	EntityType() string
	Lookup(ctx context.Context, ids ...int64) (map[int64]any, error)
	Bust(ctx context.Context, ids ...int64) error
	Refresh(ctx context.Context, ids ...int64) error
	Flush(ctx context.Context) (int, error)
}
