// Package rank rebuilds denormalized rank tables with a blue-green swap
package rank

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"syncengine/internal/modkit/repokit"
	perr "syncengine/internal/platform/errors"
	"syncengine/internal/platform/logger"

	"github.com/jackc/pgx/v5"
)

// ErrInvalidRank is wrapped by every validation failure
var ErrInvalidRank = errors.New("rank: invalid rank table config")

// maxIdent is the postgres identifier limit, longer names are silently truncated
const maxIdent = 63

// Index is a secondary index on the rank table
// Name is suffixed to the table name, constraint and index names are unique per schema
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Config describes one rank table
type Config struct {
	// Table is the live table name readers query
	Table string
	// LiveView is the view or table the rebuild copies from, default Table + "_Live"
	LiveView   string
	PrimaryKey []string
	Indexes    []Index
}

func (c Config) view() string {
	if c.LiveView != "" {
		return c.LiveView
	}
	return c.Table + "_Live"
}

func (c Config) shadow() string { return c.Table + "_New" }

func pkName(table string) string { return "pk_" + table }

func indexName(table, idx string) string { return table + "_" + idx }

// Validate checks names before any DDL runs
func (c Config) Validate() error {
	bad := func(format string, a ...any) error {
		return perr.Wrap(ErrInvalidRank, perr.ErrorCodeInvalidArgument, fmt.Sprintf(format, a...))
	}
	if strings.TrimSpace(c.Table) == "" {
		return bad("rank: table name required")
	}
	if len(c.PrimaryKey) == 0 {
		return bad("rank: %s has no primary key", c.Table)
	}
	names := []string{c.Table, c.view(), c.shadow(), pkName(c.shadow())}
	names = append(names, c.PrimaryKey...)
	seen := map[string]bool{}
	for _, ix := range c.Indexes {
		if ix.Name == "" || len(ix.Columns) == 0 {
			return bad("rank: %s index needs a name and columns", c.Table)
		}
		if seen[ix.Name] {
			return bad("rank: %s duplicate index %q", c.Table, ix.Name)
		}
		seen[ix.Name] = true
		names = append(names, indexName(c.shadow(), ix.Name))
		names = append(names, ix.Columns...)
	}
	for _, n := range names {
		if n == "" || strings.ContainsRune(n, 0) {
			return bad("rank: %s has an empty or invalid identifier", c.Table)
		}
		if len(n) > maxIdent {
			return bad("rank: identifier %q exceeds %d bytes", n, maxIdent)
		}
	}
	return nil
}

func ident(name string) string { return pgx.Identifier{name}.Sanitize() }

func columns(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = ident(c)
	}
	return strings.Join(q, ", ")
}

// Plan returns the build and swap statements for cfg
// build runs outside a transaction, swap runs in one
func Plan(c Config) (build, swap []string, err error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	live, shadow := c.Table, c.shadow()

	build = []string{
		// a failed earlier attempt may have left the shadow behind
		"DROP TABLE IF EXISTS " + ident(shadow),
		"CREATE TABLE " + ident(shadow) + " AS SELECT * FROM " + ident(c.view()),
		"ALTER TABLE " + ident(shadow) + " ADD CONSTRAINT " + ident(pkName(shadow)) + " PRIMARY KEY (" + columns(c.PrimaryKey) + ")",
	}
	for _, ix := range c.Indexes {
		kw := "CREATE INDEX "
		if ix.Unique {
			kw = "CREATE UNIQUE INDEX "
		}
		build = append(build, kw+ident(indexName(shadow, ix.Name))+" ON "+ident(shadow)+" ("+columns(ix.Columns)+")")
	}

	swap = []string{
		"DROP TABLE IF EXISTS " + ident(live),
		"ALTER TABLE " + ident(shadow) + " RENAME TO " + ident(live),
		"ALTER TABLE " + ident(live) + " RENAME CONSTRAINT " + ident(pkName(shadow)) + " TO " + ident(pkName(live)),
	}
	for _, ix := range c.Indexes {
		swap = append(swap, "ALTER INDEX "+ident(indexName(shadow, ix.Name))+" RENAME TO "+ident(indexName(live, ix.Name)))
	}
	return build, swap, nil
}

// Rebuild copies the live view into a shadow table and swaps it in
// readers of Table see the old or the new rows, never an empty table
func Rebuild(ctx context.Context, db repokit.TxRunner, c Config) error {
	build, swap, err := Plan(c)
	if err != nil {
		return err
	}
	l := logger.C(ctx).With().Str("mod", "rank").Str("table", c.Table).Logger()
	l.Info().Msg("rank: rebuild start")

	for _, stmt := range build {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := db.Exec(ctx, stmt); err != nil {
			return perr.FromPostgresf(err, "rank: build %s", c.Table)
		}
	}

	if err := repokit.TxRetry(ctx, db, swapRetries, func(q repokit.Queryer) error {
		for _, stmt := range swap {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return perr.FromPostgresf(err, "rank: swap %s", c.Table)
	}

	l.Info().Msg("rank: rebuild swapped")
	return nil
}

// the swap takes ACCESS EXCLUSIVE locks and can lose a lock_timeout race with readers
const swapRetries = 2
