// Package sqlfake is a scripted store.TxRunner for repository tests
package sqlfake

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"syncengine/internal/platform/store"

	"github.com/jackc/pgx/v5"
)

// Call is one recorded statement
type Call struct {
	SQL  string
	Args []any
	InTx bool
}

// Result is what a scripted handler returns for a statement
type Result struct {
	Cols     []string
	Rows     [][]any
	Affected int64
	Err      error
}

// Handler answers a statement, ok=false falls through to the next handler
type Handler func(sql string, args []any) (Result, bool)

// DB records every statement and answers from handlers in registration order
// unmatched statements succeed with no rows and zero affected
type DB struct {
	mu       sync.Mutex
	calls    []Call
	handlers []Handler
	inTx     bool

	// TxErr makes Tx fail before running fn
	TxErr error
	// Commits and Rollbacks count finished transactions
	Commits, Rollbacks int
}

var _ store.TxRunner = (*DB)(nil)

// New returns an empty DB
func New() *DB { return &DB{} }

// On registers a handler for statements containing substr
func (d *DB) On(substr string, r Result) *DB {
	return d.Handle(func(sql string, _ []any) (Result, bool) {
		return r, strings.Contains(sql, substr)
	})
}

// Handle registers a custom handler
func (d *DB) Handle(h Handler) *DB {
	d.mu.Lock()
	d.handlers = append(d.handlers, h)
	d.mu.Unlock()
	return d
}

// Calls returns a copy of the recorded statements
func (d *DB) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Matching returns recorded statements containing substr
func (d *DB) Matching(substr string) []Call {
	var out []Call
	for _, c := range d.Calls() {
		if strings.Contains(c.SQL, substr) {
			out = append(out, c)
		}
	}
	return out
}

func (d *DB) answer(sql string, args []any) Result {
	d.mu.Lock()
	d.calls = append(d.calls, Call{SQL: sql, Args: args, InTx: d.inTx})
	hs := append([]Handler(nil), d.handlers...)
	d.mu.Unlock()

	for _, h := range hs {
		if r, ok := h(sql, args); ok {
			return r
		}
	}
	return Result{}
}

// Exec implements store.RowQuerier
func (d *DB) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	r := d.answer(sql, args)
	if r.Err != nil {
		return Tag{}, r.Err
	}
	return Tag{N: r.Affected}, nil
}

// Query implements store.RowQuerier
func (d *DB) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	r := d.answer(sql, args)
	if r.Err != nil {
		return nil, r.Err
	}
	return NewRows(r.Cols, r.Rows), nil
}

// QueryRow implements store.RowQuerier
func (d *DB) QueryRow(_ context.Context, sql string, args ...any) store.Row {
	r := d.answer(sql, args)
	if r.Err != nil {
		return errRow{err: r.Err}
	}
	if len(r.Rows) == 0 {
		return errRow{err: pgx.ErrNoRows}
	}
	return valueRow{vals: r.Rows[0]}
}

// Tx runs fn against the same DB and counts the outcome
func (d *DB) Tx(_ context.Context, fn func(q store.RowQuerier) error) error {
	if d.TxErr != nil {
		return d.TxErr
	}
	d.mu.Lock()
	d.inTx = true
	d.mu.Unlock()

	err := fn(d)

	d.mu.Lock()
	d.inTx = false
	if err != nil {
		d.Rollbacks++
	} else {
		d.Commits++
	}
	d.mu.Unlock()
	return err
}

// Tag is a CommandTag with a fixed affected count
type Tag struct{ N int64 }

func (t Tag) String() string      { return "OK " + strconv.FormatInt(t.N, 10) }
func (t Tag) RowsAffected() int64 { return t.N }

// Rows is an in memory result set
type Rows struct {
	cols []string
	data [][]any
	i    int
	err  error
}

// NewRows builds Rows from columns and values
func NewRows(cols []string, data [][]any) *Rows {
	return &Rows{cols: cols, data: data}
}

func (r *Rows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.i == 0 || r.i > len(r.data) {
		return errors.New("sqlfake: scan without row")
	}
	return assign(r.data[r.i-1], dest)
}

func (r *Rows) Err() error        { return r.err }
func (r *Rows) Close()            {}
func (r *Rows) Columns() []string { return r.cols }

type valueRow struct{ vals []any }

func (v valueRow) Scan(dest ...any) error { return assign(v.vals, dest) }

type errRow struct{ err error }

func (e errRow) Scan(...any) error { return e.err }

// assign copies src values into dest pointers with light conversion
func assign(src []any, dest []any) error {
	if len(dest) > len(src) {
		return fmt.Errorf("sqlfake: %d dest for %d values", len(dest), len(src))
	}
	for i, d := range dest {
		if p, ok := d.(*any); ok {
			*p = src[i]
			continue
		}
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("sqlfake: dest %d is not a pointer", i)
		}
		target := dv.Elem()
		if src[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		sv := reflect.ValueOf(src[i])
		switch {
		case sv.Type().AssignableTo(target.Type()):
			target.Set(sv)
		case sv.Type().ConvertibleTo(target.Type()) && !isTime(target.Type()):
			target.Set(sv.Convert(target.Type()))
		default:
			return fmt.Errorf("sqlfake: cannot assign %T to %s", src[i], target.Type())
		}
	}
	return nil
}

func isTime(t reflect.Type) bool { return t == reflect.TypeOf(time.Time{}) }
