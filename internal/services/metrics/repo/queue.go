// Package repo provides the forced recompute queue on postgres
package repo

import (
	"context"
	"time"

	"syncengine/internal/modkit/repokit"
	mdom "syncengine/internal/services/metrics/domain"
)

// DDL creates the queue table
const DDL = `
CREATE TABLE IF NOT EXISTS metric_update_queue (
	job_key   text        NOT NULL,
	entity_id bigint      NOT NULL,
	queued_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (job_key, entity_id)
)`

type queries struct{ q repokit.Queryer }

// NewPG returns a binder for the postgres queue
func NewPG() repokit.Binder[mdom.QueueRepo] { return pgBinder{} }

type pgBinder struct{}

func (pgBinder) Bind(q repokit.Queryer) mdom.QueueRepo { return &queries{q: q} }

func (r *queries) Migrate(ctx context.Context) error {
	_, err := r.q.Exec(ctx, DDL)
	return err
}

// Enqueue upserts ids, a repeat request moves queued_at forward
func (r *queries) Enqueue(ctx context.Context, jobKey string, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO metric_update_queue (job_key, entity_id, queued_at)
		SELECT $1, id, $3 FROM unnest($2::bigint[]) AS id
		ON CONFLICT (job_key, entity_id) DO UPDATE
		   SET queued_at = GREATEST(metric_update_queue.queued_at, EXCLUDED.queued_at)`,
		jobKey, ids, at.UTC(),
	)
	return err
}

// Pending lists ids queued strictly before the cutoff
func (r *queries) Pending(ctx context.Context, jobKey string, before time.Time) ([]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT entity_id FROM metric_update_queue
		 WHERE job_key = $1 AND queued_at < $2
		 ORDER BY entity_id`,
		jobKey, before.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Purge deletes entries queued before the cutoff, later requests survive for the next run
func (r *queries) Purge(ctx context.Context, jobKey string, before time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM metric_update_queue WHERE job_key = $1 AND queued_at < $2`, jobKey, before.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
