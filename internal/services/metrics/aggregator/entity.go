// Package aggregator ships a table driven clickhouse to postgres metric aggregator
package aggregator

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"syncengine/internal/core/taskpool"
	"syncengine/internal/modkit/repokit"
	perr "syncengine/internal/platform/errors"
	"syncengine/internal/platform/logger"
	"syncengine/internal/platform/store"
	emrepo "syncengine/internal/services/entitymetrics/repo"
	mdom "syncengine/internal/services/metrics/domain"

	"github.com/jackc/pgx/v5"
)

// Timeframe names a rolling window
type Timeframe string

// Timeframes written for every entity
const (
	Day     Timeframe = "Day"
	Week    Timeframe = "Week"
	Month   Timeframe = "Month"
	Year    Timeframe = "Year"
	AllTime Timeframe = "AllTime"
)

var windows = []struct {
	tf  Timeframe
	dur time.Duration
}{
	{Day, 24 * time.Hour},
	{Week, 7 * 24 * time.Hour},
	{Month, 30 * 24 * time.Hour},
	{Year, 365 * 24 * time.Hour},
}

// Timeframes lists every timeframe in write order
func Timeframes() []Timeframe { return []Timeframe{Day, Week, Month, Year, AllTime} }

// Column maps an analytics metric to a postgres column
type Column struct {
	Metric string
	Column string
}

// Config describes one entity's metric table
type Config struct {
	EntityType string
	// Table defaults to EntityType + "Metric"
	Table string
	// IDColumn defaults to lowerFirst(EntityType) + "Id"
	IDColumn string
	Columns  []Column
	// ChunkSize bounds ids per upsert, default 500
	// it is lowered so one upsert stays within maxBindParams
	ChunkSize int
	// Concurrency bounds chunks in flight, default 2
	Concurrency int
}

// Invalidator is told which ids were recomputed
// the entity metrics cache Port satisfies it
type Invalidator interface {
	Refresh(ctx context.Context, ids ...int64) error
}

// EntityAggregator recomputes per timeframe sums for changed and queued entities
type EntityAggregator struct {
	cfg Config
	inv Invalidator
}

var (
	_ mdom.Aggregator = (*EntityAggregator)(nil)
	_ mdom.DayClearer = (*EntityAggregator)(nil)
)

// New returns an aggregator, inv may be nil
func New(cfg Config, inv Invalidator) *EntityAggregator {
	if cfg.EntityType == "" {
		panic("aggregator.EntityAggregator requires an EntityType")
	}
	if len(cfg.Columns) == 0 {
		panic("aggregator.EntityAggregator requires at least one column")
	}
	if cfg.Table == "" {
		cfg.Table = cfg.EntityType + "Metric"
	}
	if cfg.IDColumn == "" {
		cfg.IDColumn = lowerFirst(cfg.EntityType) + "Id"
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	if limit := maxBindParams / (len(Timeframes()) * (2 + len(cfg.Columns))); cfg.ChunkSize > limit {
		cfg.ChunkSize = max(limit, 1)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	return &EntityAggregator{cfg: cfg, inv: inv}
}

// DefaultColumns maps every known metric to a "<metric>Count" column
func DefaultColumns(metrics ...string) []Column {
	out := make([]Column, len(metrics))
	for i, m := range metrics {
		out[i] = Column{Metric: m, Column: lowerFirst(m) + "Count"}
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func ident(s string) string { return pgx.Identifier{s}.Sanitize() }

// DDL creates the metric table
func (a *EntityAggregator) DDL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + ident(a.cfg.Table) + " (\n")
	b.WriteString("\t" + ident(a.cfg.IDColumn) + " bigint NOT NULL,\n")
	b.WriteString("\t\"timeframe\" text NOT NULL,\n")
	for _, c := range a.cfg.Columns {
		b.WriteString("\t" + ident(c.Column) + " bigint NOT NULL DEFAULT 0,\n")
	}
	b.WriteString("\t\"updatedAt\" timestamptz NOT NULL DEFAULT now(),\n")
	b.WriteString("\tPRIMARY KEY (" + ident(a.cfg.IDColumn) + ", \"timeframe\")\n)")
	return b.String()
}

// Migrate creates the metric table
func (a *EntityAggregator) Migrate(ctx context.Context, db store.RowQuerier) error {
	_, err := db.Exec(ctx, a.DDL())
	return perr.FromPostgresf(err, "aggregator: migrate %s", a.cfg.Table)
}

// Update recomputes every entity with events since the watermark plus the queued ids
func (a *EntityAggregator) Update(ctx context.Context, rc mdom.RunContext) error {
	if rc.CH == nil || rc.PG == nil {
		return perr.Unavailablef("aggregator: %s needs clickhouse and postgres", a.cfg.EntityType)
	}
	l := logger.C(ctx).With().Str("mod", "aggregator").Str("entity", a.cfg.EntityType).Logger()

	changed, err := a.changedSince(ctx, rc.CH, rc.LastUpdatedAt)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "aggregator: changed ids")
	}
	ids := union(changed, rc.Queued)
	if len(ids) == 0 {
		l.Debug().Msg("aggregator: nothing changed")
		return nil
	}

	chunks := taskpool.Chunk(ids, a.cfg.ChunkSize)
	errs := taskpool.Each(ctx, a.cfg.Concurrency, chunks, func(ctx context.Context, chunk []int64) error {
		return a.apply(ctx, rc, chunk)
	})
	if err := errors.Join(errs...); err != nil {
		return err
	}
	l.Info().Int("ids", len(ids)).Int("chunks", len(chunks)).Msg("aggregator: applied")

	if a.inv != nil {
		if err := a.inv.Refresh(ctx, ids...); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnavailable, "aggregator: cache refresh")
		}
	}
	return nil
}

// ClearDay zeroes the Day rows so yesterday's counts never leak into today
func (a *EntityAggregator) ClearDay(ctx context.Context, rc mdom.RunContext) error {
	if rc.PG == nil {
		return perr.Unavailablef("aggregator: %s needs postgres", a.cfg.EntityType)
	}
	sets := make([]string, 0, len(a.cfg.Columns)+1)
	for _, c := range a.cfg.Columns {
		sets = append(sets, ident(c.Column)+" = 0")
	}
	sets = append(sets, `"updatedAt" = now()`)
	_, err := rc.PG.Exec(ctx,
		"UPDATE "+ident(a.cfg.Table)+" SET "+strings.Join(sets, ", ")+` WHERE "timeframe" = $1`,
		string(Day),
	)
	return perr.FromPostgresf(err, "aggregator: clear day %s", a.cfg.Table)
}

func (a *EntityAggregator) changedSince(ctx context.Context, ch store.Clickhouse, since time.Time) ([]int64, error) {
	rows, err := ch.Query(ctx, `
		SELECT DISTINCT entity_id
		FROM `+emrepo.EventsTable+`
		WHERE entity_type = ? AND created_at >= ?`,
		a.cfg.EntityType, since.UTC(),
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

func (a *EntityAggregator) metrics() []string {
	out := make([]string, len(a.cfg.Columns))
	for i, c := range a.cfg.Columns {
		out[i] = c.Metric
	}
	return out
}

// sums holds per timeframe totals keyed by entity and metric
type sums map[int64]map[Timeframe]map[string]int64

func (s sums) add(id int64, tf Timeframe, metric string, v int64) {
	byTF, ok := s[id]
	if !ok {
		byTF = map[Timeframe]map[string]int64{}
		s[id] = byTF
	}
	m, ok := byTF[tf]
	if !ok {
		m = map[string]int64{}
		byTF[tf] = m
	}
	m[metric] = v
}

func (a *EntityAggregator) load(ctx context.Context, ch store.Clickhouse, at time.Time, ids []int64) (sums, error) {
	args := make([]any, 0, len(windows)+3)
	for _, w := range windows {
		args = append(args, at.Add(-w.dur).UTC())
	}
	args = append(args, a.cfg.EntityType, ids, a.metrics())

	rows, err := ch.Query(ctx, `
		SELECT entity_id, metric_type,
		       toInt64(sumIf(metric_value, created_at >= ?)) AS day,
		       toInt64(sumIf(metric_value, created_at >= ?)) AS week,
		       toInt64(sumIf(metric_value, created_at >= ?)) AS month,
		       toInt64(sumIf(metric_value, created_at >= ?)) AS year,
		       toInt64(sum(metric_value))                    AS all_time
		FROM `+emrepo.EventsTable+`
		WHERE entity_type = ? AND has(?, entity_id) AND has(?, metric_type)
		GROUP BY entity_id, metric_type`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := sums{}
	for rows.Next() {
		var (
			id                              int64
			metric                          string
			day, week, month, year, allTime int64
		)
		if err := rows.Scan(&id, &metric, &day, &week, &month, &year, &allTime); err != nil {
			return nil, err
		}
		out.add(id, Day, metric, day)
		out.add(id, Week, metric, week)
		out.add(id, Month, metric, month)
		out.add(id, Year, metric, year)
		out.add(id, AllTime, metric, allTime)
	}
	return out, rows.Err()
}

// apply loads one chunk and upserts every timeframe row for it
// ids with no events get zero rows so stale counts are overwritten
func (a *EntityAggregator) apply(ctx context.Context, rc mdom.RunContext, ids []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := a.load(ctx, rc.CH, rc.RunStartedAt, ids)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "aggregator: load chunk")
	}

	sql, args := a.upsert(ids, data)
	// concurrent chunks can deadlock on shared index pages
	err = repokit.TxRetry(ctx, rc.PG, upsertRetries, func(q repokit.Queryer) error {
		_, err := q.Exec(ctx, sql, args...)
		return err
	})
	return perr.FromPostgresf(err, "aggregator: upsert %s", a.cfg.Table)
}

const upsertRetries = 2

// maxBindParams is the most parameters Postgres accepts in one statement
const maxBindParams = 65535

func (a *EntityAggregator) upsert(ids []int64, data sums) (string, []any) {
	cols := []string{ident(a.cfg.IDColumn), `"timeframe"`}
	updates := make([]string, 0, len(a.cfg.Columns)+1)
	for _, c := range a.cfg.Columns {
		cols = append(cols, ident(c.Column))
		updates = append(updates, ident(c.Column)+" = EXCLUDED."+ident(c.Column))
	}
	updates = append(updates, `"updatedAt" = now()`)

	tfs := Timeframes()
	perRow := 2 + len(a.cfg.Columns)
	args := make([]any, 0, len(ids)*len(tfs)*perRow)
	values := make([]string, 0, len(ids)*len(tfs))
	ph := make([]string, perRow)

	for _, id := range ids {
		for _, tf := range tfs {
			m := data[id][tf]
			args = append(args, id, string(tf))
			for _, c := range a.cfg.Columns {
				args = append(args, m[c.Metric])
			}
			base := len(args) - perRow
			for i := range ph {
				ph[i] = "$" + strconv.Itoa(base+i+1)
			}
			values = append(values, "("+strings.Join(ph, ", ")+")")
		}
	}

	sql := "INSERT INTO " + ident(a.cfg.Table) + " (" + strings.Join(cols, ", ") + ")\n" +
		"VALUES " + strings.Join(values, ",\n       ") + "\n" +
		"ON CONFLICT (" + ident(a.cfg.IDColumn) + `, "timeframe") DO UPDATE SET ` + strings.Join(updates, ", ")
	return sql, args
}

func union(a, b []int64) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, list := range [][]int64{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
