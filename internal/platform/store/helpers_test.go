package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"syncengine/internal/platform/config"
	"syncengine/internal/platform/store"
	"syncengine/internal/platform/testkit/sqlfake"

	"github.com/jackc/pgx/v5"
)

func TestIsNoRows(t *testing.T) {
	for _, err := range []error{pgx.ErrNoRows, sql.ErrNoRows, fmt.Errorf("load: %w", pgx.ErrNoRows)} {
		if !store.IsNoRows(err) {
			t.Errorf("IsNoRows(%v) = false", err)
		}
	}
	if store.IsNoRows(errors.New("other")) || store.IsNoRows(nil) {
		t.Error("false positive")
	}
}

func TestScalar(t *testing.T) {
	db := sqlfake.New().On("count(*)", sqlfake.Result{Rows: [][]any{{int64(42)}}})

	n, err := store.Scalar[int64](context.Background(), db, `SELECT count(*) FROM metric_update_queue`)
	if err != nil || n != 42 {
		t.Fatalf("n %d err %v", n, err)
	}
	if _, err := store.Scalar[int64](context.Background(), db, `SELECT last_run_at FROM job_watermarks`); !store.IsNoRows(err) {
		t.Fatalf("missing row err = %v", err)
	}
}

func TestMany(t *testing.T) {
	db := sqlfake.New().On("FROM job_watermarks", sqlfake.Result{
		Cols: []string{"job_key"},
		Rows: [][]any{{"metrics:Image"}, {"search:images"}},
	})
	keys, err := store.Many(context.Background(), db, func(r store.Row) (string, error) {
		var s string
		return s, r.Scan(&s)
	}, `SELECT job_key FROM job_watermarks`)
	if err != nil || len(keys) != 2 || keys[1] != "search:images" {
		t.Fatalf("keys %v err %v", keys, err)
	}

	boom := errors.New("scan")
	_, err = store.Many(context.Background(), db, func(store.Row) (string, error) { return "", boom }, `SELECT job_key FROM job_watermarks`)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("SERVICE_PGSQL_DBURL", "postgres://app@db/app")
	t.Setenv("SERVICE_PGSQL_SLOW_MS", "250")
	t.Setenv("SERVICE_CLICKHOUSE_DBURL", "")
	t.Setenv("SERVICE_REDIS_URL", "redis://cache:6379/1")

	cfg := store.FromConfig(config.New(), "syncengine-worker", "worker", 8, 2000)
	if !cfg.PG.Enabled || cfg.PG.URL != "postgres://app@db/app" || cfg.PG.MaxConns != 8 || cfg.PG.SlowQueryMs != 250 {
		t.Fatalf("pg = %+v", cfg.PG)
	}
	if cfg.CH.Enabled {
		t.Fatal("clickhouse enabled without a url")
	}
	if !cfg.RDS.Enabled || cfg.RDS.PoolSize != 10 {
		t.Fatalf("redis = %+v", cfg.RDS)
	}
	if cfg.CH.ClientTag != "worker" || cfg.AppName != "syncengine-worker" {
		t.Fatalf("names = %q %q", cfg.AppName, cfg.CH.ClientTag)
	}
}
