// Package repo provides the pending search update queue on postgres
package repo

import (
	"context"
	"time"

	"syncengine/internal/modkit/repokit"
	sidom "syncengine/internal/services/searchindex/domain"
)

// DDL creates the queue table
const DDL = `
CREATE TABLE IF NOT EXISTS search_index_update_queue (
	index_name text        NOT NULL,
	entity_id  bigint      NOT NULL,
	action     text        NOT NULL DEFAULT 'Update',
	queued_at  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (index_name, entity_id)
)`

type queries struct{ q repokit.Queryer }

// NewPG returns a binder for the postgres queue
func NewPG() repokit.Binder[sidom.QueueRepo] { return pgBinder{} }

type pgBinder struct{}

func (pgBinder) Bind(q repokit.Queryer) sidom.QueueRepo { return &queries{q: q} }

func (r *queries) Migrate(ctx context.Context) error {
	_, err := r.q.Exec(ctx, DDL)
	return err
}

// Enqueue upserts by (index, id); the newest action replaces the old one
func (r *queries) Enqueue(ctx context.Context, index string, items []sidom.Item, at time.Time) error {
	if len(items) == 0 {
		return nil
	}
	// a repeated id in one statement would hit the same row twice, keep the last
	last := make(map[int64]int, len(items))
	for i, it := range items {
		last[it.ID] = i
	}
	ids := make([]int64, 0, len(last))
	actions := make([]string, 0, len(last))
	for i, it := range items {
		if last[it.ID] != i {
			continue
		}
		ids = append(ids, it.ID)
		actions = append(actions, string(it.Action.Normalize()))
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO search_index_update_queue (index_name, entity_id, action, queued_at)
		SELECT $1, u.id, u.action, $4
		  FROM unnest($2::bigint[], $3::text[]) AS u(id, action)
		ON CONFLICT (index_name, entity_id) DO UPDATE
		   SET action = EXCLUDED.action, queued_at = EXCLUDED.queued_at`,
		index, ids, actions, at.UTC(),
	)
	return err
}

func (r *queries) Pending(ctx context.Context, index string, before time.Time, limit int) ([]sidom.Item, error) {
	sql := `
		SELECT entity_id, action FROM search_index_update_queue
		 WHERE index_name = $1 AND queued_at < $2
		 ORDER BY queued_at, entity_id`
	args := []any{index, before.UTC()}
	if limit > 0 {
		sql += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sidom.Item
	for rows.Next() {
		var (
			id     int64
			action string
		)
		if err := rows.Scan(&id, &action); err != nil {
			return nil, err
		}
		out = append(out, sidom.Item{ID: id, Action: sidom.Action(action).Normalize()})
	}
	return out, rows.Err()
}

func (r *queries) Remove(ctx context.Context, index string, ids []int64, before time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.q.Exec(ctx, `
		DELETE FROM search_index_update_queue
		 WHERE index_name = $1 AND entity_id = ANY($2) AND queued_at < $3`,
		index, ids, before.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *queries) Clear(ctx context.Context, index string, before time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM search_index_update_queue WHERE index_name = $1 AND queued_at < $2`, index, before.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
