package repo

import (
	"context"

	"syncengine/internal/platform/store"
	emdom "syncengine/internal/services/entitymetrics/domain"

	"github.com/jackc/pgx/v5"
)

// StatusFetcher returns an ExtraFetcher that reads a status column from a Postgres table
// the table name is quoted, ids missing from the table get no extra
func StatusFetcher(q store.RowQuerier, table string) emdom.ExtraFetcher {
	sql := `SELECT id, status FROM ` + pgx.Identifier{table}.Sanitize() + ` WHERE id = ANY($1)`
	return func(ctx context.Context, ids []int64) (map[int64]emdom.Extra, error) {
		out := make(map[int64]emdom.Extra, len(ids))
		if len(ids) == 0 {
			return out, nil
		}
		rows, err := q.Query(ctx, sql, ids)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id     int64
				status string
			)
			if err := rows.Scan(&id, &status); err != nil {
				return nil, err
			}
			out[id] = emdom.Extra{"status": status}
		}
		return out, rows.Err()
	}
}
