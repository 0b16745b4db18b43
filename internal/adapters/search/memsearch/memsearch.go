// Package memsearch is an in-process search engine for local runs and tests
package memsearch

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	perr "syncengine/internal/platform/errors"
	sidom "syncengine/internal/services/searchindex/domain"
)

type index struct {
	primaryKey string
	settings   sidom.Settings
	docs       map[string]sidom.Document
}

// Engine keeps indexes in memory, every operation is atomic
type Engine struct {
	mu      sync.RWMutex
	indexes map[string]*index
}

var _ sidom.Engine = (*Engine)(nil)

// New returns an empty engine
func New() *Engine { return &Engine{indexes: map[string]*index{}} }

// EnsureIndex creates name when missing
func (e *Engine) EnsureIndex(_ context.Context, name, primaryKey string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.indexes[name]; !ok {
		e.indexes[name] = &index{primaryKey: primaryKey, docs: map[string]sidom.Document{}}
	}
	return nil
}

// DeleteIndex drops name, missing is fine
func (e *Engine) DeleteIndex(_ context.Context, name string) error {
	e.mu.Lock()
	delete(e.indexes, name)
	e.mu.Unlock()
	return nil
}

// SwapIndexes exchanges a and b under one lock
func (e *Engine) SwapIndexes(_ context.Context, a, b string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ia, okA := e.indexes[a]
	ib, okB := e.indexes[b]
	if !okA || !okB {
		return perr.NotFoundf("memsearch: swap %s/%s: index missing", a, b)
	}
	e.indexes[a], e.indexes[b] = ib, ia
	return nil
}

// Configure stores settings on name
func (e *Engine) Configure(_ context.Context, name string, s sidom.Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ix, ok := e.indexes[name]
	if !ok {
		return perr.NotFoundf("memsearch: index %s not found", name)
	}
	ix.settings = s
	return nil
}

// Upsert replaces documents by primary key
func (e *Engine) Upsert(_ context.Context, name string, docs []sidom.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ix, ok := e.indexes[name]
	if !ok {
		// engines like meilisearch create indexes on first write
		ix = &index{primaryKey: "id", docs: map[string]sidom.Document{}}
		e.indexes[name] = ix
	}
	for _, d := range docs {
		key, ok := docKey(d[ix.primaryKey])
		if !ok {
			return perr.InvalidArgf("memsearch: document without %s", ix.primaryKey)
		}
		ix.docs[key] = d
	}
	return nil
}

// Delete removes documents by id
func (e *Engine) Delete(_ context.Context, name string, ids []int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ix, ok := e.indexes[name]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(ix.docs, strconv.FormatInt(id, 10))
	}
	return nil
}

// Get returns one document
func (e *Engine) Get(name string, id int64) (sidom.Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ix, ok := e.indexes[name]
	if !ok {
		return nil, false
	}
	d, ok := ix.docs[strconv.FormatInt(id, 10)]
	return d, ok
}

// IDs lists document ids in name, sorted
func (e *Engine) IDs(name string) []int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ix, ok := e.indexes[name]
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(ix.docs))
	for k := range ix.docs {
		if id, err := strconv.ParseInt(k, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Exists reports whether name exists
func (e *Engine) Exists(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.indexes[name]
	return ok
}

// SettingsOf returns the settings applied to name
func (e *Engine) SettingsOf(name string) sidom.Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if ix, ok := e.indexes[name]; ok {
		return ix.settings
	}
	return sidom.Settings{}
}

func docKey(v any) (string, bool) {
	switch id := v.(type) {
	case int64:
		return strconv.FormatInt(id, 10), true
	case int:
		return strconv.Itoa(id), true
	case int32:
		return strconv.FormatInt(int64(id), 10), true
	case string:
		return id, id != ""
	case nil:
		return "", false
	default:
		return fmt.Sprint(id), true
	}
}
