// Package domain defines watermark types and ports
package domain

import (
	"context"
	"time"
)

// Epoch is returned for jobs that have never completed a run
var Epoch = time.Unix(0, 0).UTC()

// Watermark is the last successful run start recorded for a job
type Watermark struct {
	JobKey    string    `json:"job_key"`
	LastRunAt time.Time `json:"last_run_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Port is what processors and the admin API use
type Port interface {
	// Get returns the stored watermark or Epoch when the job has none
	Get(ctx context.Context, jobKey string) (time.Time, error)

	// Set stores t only if it is later than the stored value
	// advanced is false when a newer value was already present
	Set(ctx context.Context, jobKey string, t time.Time) (advanced bool, err error)

	// Force overwrites the stored value, even backwards
	Force(ctx context.Context, jobKey string, t time.Time) error

	// Delete removes the job's watermark so the next run starts from Epoch
	Delete(ctx context.Context, jobKey string) error

	// List returns all watermarks ordered by job key
	List(ctx context.Context) ([]Watermark, error)
}

// Repo is the storage surface behind Port
type Repo interface {
	Get(ctx context.Context, jobKey string) (t time.Time, found bool, err error)
	SetIfNewer(ctx context.Context, jobKey string, t time.Time) (bool, error)
	Upsert(ctx context.Context, jobKey string, t time.Time) error
	Delete(ctx context.Context, jobKey string) error
	List(ctx context.Context) ([]Watermark, error)
	Migrate(ctx context.Context) error
}
