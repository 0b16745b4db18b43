// Package domain defines the metric processor contracts
package domain

import (
	"context"
	"time"

	"syncengine/internal/platform/store"
)

// RunContext is what an aggregation hook sees for one run
type RunContext struct {
	PG store.TxRunner
	CH store.Clickhouse

	JobKey string
	// LastUpdatedAt is the watermark before this run, Epoch on first run
	LastUpdatedAt time.Time
	// RunStartedAt becomes the new watermark on success
	RunStartedAt time.Time
	// Queued lists ids flagged for forced recompute before RunStartedAt
	Queued []int64
}

// Aggregator runs the aggregation body of a metric job
type Aggregator interface {
	Update(ctx context.Context, rc RunContext) error
}

// DayClearer resets per-day state, called before the first aggregation of a new day
// an Aggregator opts in by also implementing it
type DayClearer interface {
	ClearDay(ctx context.Context, rc RunContext) error
}

// RankRefresher replaces the default blue-green rank rebuild
type RankRefresher interface {
	RefreshRank(ctx context.Context, rc RunContext) error
}

// AggregatorFunc adapts a function to Aggregator
type AggregatorFunc func(ctx context.Context, rc RunContext) error

// Update calls f
func (f AggregatorFunc) Update(ctx context.Context, rc RunContext) error { return f(ctx, rc) }

// RunResult reports what a processor call did
type RunResult struct {
	JobKey    string        `json:"job_key"`
	Ran       bool          `json:"ran"`
	StartedAt time.Time     `json:"started_at,omitzero"`
	Elapsed   time.Duration `json:"elapsed"`
	// ClearedDay is set when the day hook ran
	ClearedDay bool  `json:"cleared_day"`
	Queued     int   `json:"queued"`
	Purged     int64 `json:"purged"`
}

// Port is the surface other modules and binaries use
type Port interface {
	Name() string
	Update(ctx context.Context) (RunResult, error)
	RefreshRank(ctx context.Context) (RunResult, error)
	ForceRefreshRank(ctx context.Context) (RunResult, error)
	QueueUpdate(ctx context.Context, ids ...int64) error
}

// QueueRepo persists forced recompute requests
type QueueRepo interface {
	Enqueue(ctx context.Context, jobKey string, ids []int64, at time.Time) error
	Pending(ctx context.Context, jobKey string, before time.Time) ([]int64, error)
	Purge(ctx context.Context, jobKey string, before time.Time) (int64, error)
	Migrate(ctx context.Context) error
}
