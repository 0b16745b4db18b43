package module

import (
	"strings"
	"time"

	"syncengine/internal/platform/config"
	sidom "syncengine/internal/services/searchindex/domain"
	"syncengine/internal/services/searchindex/indexer"
)

// IndexOptions configure one index and its source table
type IndexOptions struct {
	Name   string
	Source indexer.Config
}

// Options for the searchindex module
type Options struct {
	UpdateInterval   time.Duration
	BatchSize        int
	DrainLimit       int
	BatchesPerSecond float64
	Indexes          []IndexOptions
}

// FromConfig fills options from environment
// CORE_SEARCH_INDEXES (default "images") lists index names
// CORE_SEARCH_UPDATE_INTERVAL (1m), _BATCH_SIZE (500), _DRAIN_LIMIT (0, all), _BATCHES_PER_SECOND (0, unpaced)
// per index under CORE_SEARCH_<NAME>_: TABLE (default the name), COLUMNS, ID_COLUMN,
// UPDATED_COLUMN, SEARCHABLE, FILTERABLE, SORTABLE, PAGE_SIZE, CONCURRENCY
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_SEARCH_")
	o := Options{
		UpdateInterval:   c.MayDuration("UPDATE_INTERVAL", time.Minute),
		BatchSize:        c.MayInt("BATCH_SIZE", 500),
		DrainLimit:       c.MayInt("DRAIN_LIMIT", 0),
		BatchesPerSecond: c.MayFloat64("BATCHES_PER_SECOND", 0),
	}
	for _, name := range c.MayCSV("INDEXES", []string{"images"}) {
		ic := c.Prefix(strings.ToUpper(name) + "_")
		cols := ic.MayCSV("COLUMNS", nil)
		o.Indexes = append(o.Indexes, IndexOptions{
			Name: name,
			Source: indexer.Config{
				Table:         ic.MayString("TABLE", name),
				IDColumn:      ic.MayString("ID_COLUMN", "id"),
				UpdatedColumn: ic.MayString("UPDATED_COLUMN", "updatedAt"),
				Columns:       cols,
				PageSize:      ic.MayInt("PAGE_SIZE", 1000),
				UpsertBatch:   ic.MayInt("UPSERT_BATCH", indexer.MaxUpsertBatch),
				Concurrency:   ic.MayInt("CONCURRENCY", 2),
				Settings: sidom.Settings{
					Searchable: ic.MayCSV("SEARCHABLE", cols),
					Filterable: ic.MayCSV("FILTERABLE", nil),
					Sortable:   ic.MayCSV("SORTABLE", nil),
				},
			},
		})
	}
	return o
}
