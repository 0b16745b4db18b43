// Package repo loads raw entity metrics from the analytics store
package repo

import (
	"context"

	"syncengine/internal/platform/store"
	emdom "syncengine/internal/services/entitymetrics/domain"
)

// EventsTable holds one row per metric event
const EventsTable = "entity_metric_events"

const loadSQL = `
	SELECT entity_id, metric_type, toInt64(sum(metric_value)) AS total
	FROM ` + EventsTable + `
	WHERE entity_type = ? AND has(?, entity_id)
	GROUP BY entity_id, metric_type`

// EventsDDL creates the events table, used by the worker's migrate mode
const EventsDDL = `
	CREATE TABLE IF NOT EXISTS ` + EventsTable + ` (
		entity_type  LowCardinality(String),
		entity_id    Int64,
		user_id      Int64,
		metric_type  LowCardinality(String),
		metric_value Int64,
		created_at   DateTime64(3, 'UTC')
	)
	ENGINE = MergeTree
	ORDER BY (entity_type, entity_id, metric_type, created_at)`

// ClickHouse is a Source that sums events per entity and metric
type ClickHouse struct {
	ch store.Clickhouse
}

var _ emdom.Source = (*ClickHouse)(nil)

// NewClickHouse returns a Source over ch
func NewClickHouse(ch store.Clickhouse) *ClickHouse {
	if ch == nil {
		panic("entitymetrics.ClickHouse requires a clickhouse seam")
	}
	return &ClickHouse{ch: ch}
}

// Load returns metrics for ids, entities with no events are absent from the map
func (c *ClickHouse) Load(ctx context.Context, entityType string, ids []int64) (map[int64]emdom.Metrics, error) {
	out := make(map[int64]emdom.Metrics, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := c.ch.Query(ctx, loadSQL, entityType, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     int64
			metric string
			total  int64
		)
		if err := rows.Scan(&id, &metric, &total); err != nil {
			return nil, err
		}
		m, ok := out[id]
		if !ok {
			m = emdom.Metrics{}
			out[id] = m
		}
		m[metric] = total
	}
	return out, rows.Err()
}

// Migrate creates the events table
func (c *ClickHouse) Migrate(ctx context.Context) error {
	return c.ch.Exec(ctx, EventsDDL)
}
