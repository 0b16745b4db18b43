// Package indexer ships a table driven Postgres source for search indexes
package indexer

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"syncengine/internal/core/taskpool"
	perr "syncengine/internal/platform/errors"
	"syncengine/internal/platform/logger"
	"syncengine/internal/platform/store"
	sidom "syncengine/internal/services/searchindex/domain"

	"github.com/jackc/pgx/v5"
	"golang.org/x/text/unicode/norm"
)

// Config describes the source table of one index
type Config struct {
	Table string
	// IDColumn defaults to "id"
	IDColumn string
	// UpdatedColumn drives incremental updates, defaults to "updatedAt"
	UpdatedColumn string
	// Columns are copied into documents under their own names
	Columns []string
	// PrimaryKey is the document field holding the id, defaults to "id"
	PrimaryKey string
	Settings   sidom.Settings
	// PageSize is the rows read per keyset page during Populate
	PageSize int
	// UpsertBatch is the documents sent per engine upsert, at most MaxUpsertBatch
	UpsertBatch int
	Concurrency int
}

// MaxUpsertBatch caps documents per engine write
const MaxUpsertBatch = 500

// SQL reads documents straight from a Postgres table
type SQL struct {
	DB  store.RowQuerier
	Cfg Config

	selectSQL string
}

var _ sidom.Indexer = (*SQL)(nil)

// NewSQL constructs the indexer, panics on a nil DB or an empty table
func NewSQL(db store.RowQuerier, cfg Config) *SQL {
	if db == nil {
		panic("indexer.SQL requires a non nil RowQuerier")
	}
	if cfg.Table == "" {
		panic("indexer.SQL requires a table")
	}
	if cfg.IDColumn == "" {
		cfg.IDColumn = "id"
	}
	if cfg.UpdatedColumn == "" {
		cfg.UpdatedColumn = "updatedAt"
	}
	if cfg.PrimaryKey == "" {
		cfg.PrimaryKey = "id"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	if cfg.UpsertBatch <= 0 || cfg.UpsertBatch > MaxUpsertBatch {
		cfg.UpsertBatch = MaxUpsertBatch
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	cols := []string{ident(cfg.IDColumn)}
	for _, c := range cfg.Columns {
		cols = append(cols, ident(c))
	}
	return &SQL{
		DB:        db,
		Cfg:       cfg,
		selectSQL: fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), ident(cfg.Table)),
	}
}

func ident(s string) string { return pgx.Identifier{s}.Sanitize() }

// Setup applies the configured settings
func (s *SQL) Setup(ctx context.Context, e sidom.Engine, index string) error {
	return e.Configure(ctx, index, s.Cfg.Settings)
}

// Update pushes rows touched since the last run through the live batching path
func (s *SQL) Update(ctx context.Context, uc sidom.UpdateContext) error {
	ids, err := s.ChangedSince(ctx, uc.LastUpdatedAt)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	items := make([]sidom.Item, len(ids))
	for i, id := range ids {
		items[i] = sidom.Item{ID: id, Action: sidom.ActionUpdate}
	}
	logger.C(ctx).Debug().Str("index", uc.IndexName).Int("changed", len(ids)).Msg("indexer: changed rows")
	return uc.Sync(ctx, items)
}

// Populate walks the table in id order one keyset page at a time and upserts every document
func (s *SQL) Populate(ctx context.Context, e sidom.Engine, index string) error {
	id := ident(s.Cfg.IDColumn)
	q := s.selectSQL + fmt.Sprintf(" WHERE %s > $1 ORDER BY %s LIMIT $2", id, id)

	last := int64(math.MinInt64)
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		docs, err := s.query(ctx, q, last, s.Cfg.PageSize)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			break
		}
		ids := slices.Sorted(maps.Keys(docs))
		errs := taskpool.Each(ctx, s.Cfg.Concurrency, taskpool.Chunk(ids, s.Cfg.UpsertBatch), func(ctx context.Context, chunk []int64) error {
			out := make([]sidom.Document, len(chunk))
			for i, id := range chunk {
				out[i] = docs[id]
			}
			return e.Upsert(ctx, index, out)
		})
		if err := errors.Join(errs...); err != nil {
			return err
		}
		total += len(ids)
		if len(ids) < s.Cfg.PageSize {
			break
		}
		last = ids[len(ids)-1]
	}
	logger.C(ctx).Debug().Str("index", index).Int("docs", total).Msg("indexer: populated")
	return nil
}

// ApplyBatch upserts documents that still exist and deletes the rest
func (s *SQL) ApplyBatch(ctx context.Context, e sidom.Engine, index string, b sidom.Batch) error {
	del := append([]int64(nil), b.DeleteIDs...)
	if len(b.UpdateIDs) > 0 {
		found, err := s.DocsByIDs(ctx, b.UpdateIDs)
		if err != nil {
			return err
		}
		docs := make([]sidom.Document, 0, len(found))
		for _, id := range b.UpdateIDs {
			if d, ok := found[id]; ok {
				docs = append(docs, d)
			} else {
				del = append(del, id)
			}
		}
		if len(docs) > 0 {
			if err := e.Upsert(ctx, index, docs); err != nil {
				return err
			}
		}
	}
	if len(del) == 0 {
		return nil
	}
	return e.Delete(ctx, index, del)
}

// DocsByIDs loads documents keyed by id, absent ids are missing from the map
func (s *SQL) DocsByIDs(ctx context.Context, ids []int64) (map[int64]sidom.Document, error) {
	return s.query(ctx, s.selectSQL+fmt.Sprintf(" WHERE %s = ANY($1)", ident(s.Cfg.IDColumn)), ids)
}

// ChangedSince lists ids updated at or after since
func (s *SQL) ChangedSince(ctx context.Context, since time.Time) ([]int64, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s >= $1 ORDER BY 1",
		ident(s.Cfg.IDColumn), ident(s.Cfg.Table), ident(s.Cfg.UpdatedColumn))
	rows, err := s.DB.Query(ctx, q, since)
	if err != nil {
		return nil, perr.FromPostgresf(err, "indexer: changed rows of %s", s.Cfg.Table)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, perr.FromPostgres(err, "indexer: scan id")
		}
		out = append(out, id)
	}
	return out, perr.FromPostgres(rows.Err(), "indexer: iterate changed rows")
}

func (s *SQL) query(ctx context.Context, q string, args ...any) (map[int64]sidom.Document, error) {
	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, perr.FromPostgresf(err, "indexer: load %s", s.Cfg.Table)
	}
	defer rows.Close()

	out := map[int64]sidom.Document{}
	for rows.Next() {
		vals := make([]any, len(s.Cfg.Columns)+1)
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, perr.FromPostgres(err, "indexer: scan document")
		}
		id, ok := toInt64(vals[0])
		if !ok {
			return nil, perr.InvalidArgf("indexer: %s.%s is not an integer id", s.Cfg.Table, s.Cfg.IDColumn)
		}
		doc := sidom.Document{s.Cfg.PrimaryKey: id}
		for i, c := range s.Cfg.Columns {
			doc[c] = clean(vals[i+1])
		}
		out[id] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "indexer: iterate documents")
	}
	return out, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case int16:
		return int64(n), true
	}
	return 0, false
}

// clean puts text into NFC so composed and decomposed input match the same tokens
func clean(v any) any {
	switch t := v.(type) {
	case string:
		return norm.NFC.String(t)
	case []byte:
		return norm.NFC.String(string(t))
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = norm.NFC.String(s)
		}
		return out
	}
	return v
}
