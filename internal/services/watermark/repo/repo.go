// Package repo provides the postgres watermark repository
package repo

import (
	"context"
	"time"

	"syncengine/internal/modkit/repokit"
	"syncengine/internal/platform/store"
	wmdom "syncengine/internal/services/watermark/domain"
)

// DDL creates the watermark table
const DDL = `
CREATE TABLE IF NOT EXISTS job_watermarks (
	job_key     text PRIMARY KEY,
	last_run_at timestamptz NOT NULL,
	updated_at  timestamptz NOT NULL DEFAULT now()
)`

type queries struct{ q repokit.Queryer }

// NewPG returns a binder for the postgres repo
func NewPG() repokit.Binder[wmdom.Repo] { return pgBinder{} }

type pgBinder struct{}

func (pgBinder) Bind(q repokit.Queryer) wmdom.Repo { return &queries{q: q} }

func (r *queries) Migrate(ctx context.Context) error {
	_, err := r.q.Exec(ctx, DDL)
	return err
}

func (r *queries) Get(ctx context.Context, jobKey string) (time.Time, bool, error) {
	var t time.Time
	err := r.q.QueryRow(ctx, `SELECT last_run_at FROM job_watermarks WHERE job_key = $1`, jobKey).Scan(&t)
	if err != nil {
		if store.IsNoRows(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}

// SetIfNewer only writes when t is strictly later than the stored value
// a stale writer affects zero rows
func (r *queries) SetIfNewer(ctx context.Context, jobKey string, t time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO job_watermarks (job_key, last_run_at, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (job_key) DO UPDATE
		   SET last_run_at = EXCLUDED.last_run_at,
		       updated_at  = now()
		 WHERE job_watermarks.last_run_at < EXCLUDED.last_run_at`,
		jobKey, t.UTC(),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *queries) Upsert(ctx context.Context, jobKey string, t time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO job_watermarks (job_key, last_run_at, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (job_key) DO UPDATE
		   SET last_run_at = EXCLUDED.last_run_at,
		       updated_at  = now()`,
		jobKey, t.UTC(),
	)
	return err
}

func (r *queries) Delete(ctx context.Context, jobKey string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM job_watermarks WHERE job_key = $1`, jobKey)
	return err
}

func (r *queries) List(ctx context.Context) ([]wmdom.Watermark, error) {
	return store.Many(ctx, r.q, func(row store.Row) (wmdom.Watermark, error) {
		var w wmdom.Watermark
		if err := row.Scan(&w.JobKey, &w.LastRunAt, &w.UpdatedAt); err != nil {
			return w, err
		}
		w.LastRunAt = w.LastRunAt.UTC()
		w.UpdatedAt = w.UpdatedAt.UTC()
		return w, nil
	}, `SELECT job_key, last_run_at, updated_at FROM job_watermarks ORDER BY job_key`)
}
