// Package domain defines the search index processor contracts
package domain

import (
	"context"
	"time"
)

// Action is what a pending item asks for
type Action string

// Actions, the zero value means update
const (
	ActionUpdate Action = "Update"
	ActionDelete Action = "Delete"
)

// Normalize maps the zero value to ActionUpdate
func (a Action) Normalize() Action {
	if a == ActionDelete {
		return ActionDelete
	}
	return ActionUpdate
}

// Item is one pending change
type Item struct {
	ID     int64  `json:"id" validate:"required,gt=0"`
	Action Action `json:"action,omitempty" validate:"omitempty,oneof=Update Delete"`
}

// Batch is what ApplyBatch receives
type Batch struct {
	UpdateIDs []int64
	DeleteIDs []int64
}

// Size is the number of ids in the batch
func (b Batch) Size() int { return len(b.UpdateIDs) + len(b.DeleteIDs) }

// Document is one search engine document
type Document map[string]any

// Settings are applied to a fresh index
type Settings struct {
	Searchable []string
	Filterable []string
	Sortable   []string
}

// Engine is the search engine contract
type Engine interface {
	// EnsureIndex creates the index when missing
	EnsureIndex(ctx context.Context, name, primaryKey string) error
	// DeleteIndex removes the index, a missing index is not an error
	DeleteIndex(ctx context.Context, name string) error
	// SwapIndexes atomically exchanges the contents of a and b
	SwapIndexes(ctx context.Context, a, b string) error
	Configure(ctx context.Context, name string, s Settings) error
	Upsert(ctx context.Context, name string, docs []Document) error
	Delete(ctx context.Context, name string, ids []int64) error
}

// UpdateContext is what the incremental hook sees
type UpdateContext struct {
	IndexName     string
	LastUpdatedAt time.Time
	RunStartedAt  time.Time
	// Sync pushes items through the batching path into the live index
	Sync func(ctx context.Context, items []Item) error
}

// Indexer supplies the caller owned hooks
type Indexer interface {
	// Setup initializes a fresh index, settings and such
	Setup(ctx context.Context, engine Engine, index string) error
	// Update is the incremental hook run on every eligible tick
	Update(ctx context.Context, uc UpdateContext) error
	// Populate fills index with every document
	Populate(ctx context.Context, engine Engine, index string) error
	// ApplyBatch upserts and deletes one batch in index
	ApplyBatch(ctx context.Context, engine Engine, index string, b Batch) error
}

// RunResult reports what a processor call did
type RunResult struct {
	IndexName string        `json:"index_name"`
	Ran       bool          `json:"ran"`
	StartedAt time.Time     `json:"started_at,omitzero"`
	Elapsed   time.Duration `json:"elapsed"`
	Drained   int           `json:"drained"`
	Cleared   int64         `json:"cleared"`
}

// Port is the surface other modules and binaries use
type Port interface {
	Name() string
	Update(ctx context.Context) (RunResult, error)
	Reset(ctx context.Context) (RunResult, error)
	UpdateSync(ctx context.Context, items []Item) error
	QueueUpdate(ctx context.Context, items []Item) error
}

// QueueRepo persists pending items per index
type QueueRepo interface {
	// Enqueue upserts items, the latest action per id wins
	Enqueue(ctx context.Context, index string, items []Item, at time.Time) error
	// Pending lists items queued before the cutoff, limit <= 0 means all
	Pending(ctx context.Context, index string, before time.Time, limit int) ([]Item, error)
	// Remove deletes the given ids that were queued before the cutoff
	Remove(ctx context.Context, index string, ids []int64, before time.Time) (int64, error)
	// Clear deletes everything queued before the cutoff
	Clear(ctx context.Context, index string, before time.Time) (int64, error)
	Migrate(ctx context.Context) error
}
