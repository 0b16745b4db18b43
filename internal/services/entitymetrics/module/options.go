package module

import (
	"time"

	"syncengine/internal/platform/config"
	"syncengine/internal/services/entitymetrics/cache"
)

// Options for the entity metrics module
type Options struct {
	Types       []string
	ModelStatus bool
	Cache       cache.Options
}

// FromConfig fills options from environment
// CORE_ENTITYMETRICS_TYPES (default "Image,Model") lists the entity types served
// CORE_ENTITYMETRICS_TTL (default 0) expires bundles, zero keeps them until busted
// CORE_ENTITYMETRICS_LOCK_TTL (default 30s) bounds a crashed populator's lock
// CORE_ENTITYMETRICS_LOCK_WAIT (default 3s) is how long callers wait on another populator
// CORE_ENTITYMETRICS_ALLOW_FLUSH (default false) enables SCAN based flush
// CORE_ENTITYMETRICS_MODEL_STATUS (default false) merges "Model".status into model bundles
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_ENTITYMETRICS_")
	return Options{
		Types:       c.MayCSV("TYPES", []string{"Image", "Model"}),
		ModelStatus: c.MayBool("MODEL_STATUS", false),
		Cache: cache.Options{
			KeyPrefix:           c.MayString("KEY_PREFIX", "entitymetrics"),
			TTL:                 c.MayDuration("TTL", 0),
			LockTTL:             c.MayDuration("LOCK_TTL", 30*time.Second),
			LockWait:            c.MayDuration("LOCK_WAIT", 3*time.Second),
			LockPoll:            c.MayDuration("LOCK_POLL", 50*time.Millisecond),
			PopulateBatch:       c.MayInt("POPULATE_BATCH", 500),
			PopulateConcurrency: c.MayInt("POPULATE_CONCURRENCY", 4),
			AllowFlush:          c.MayBool("ALLOW_FLUSH", false),
		},
	}
}
