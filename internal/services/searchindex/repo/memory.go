package repo

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"syncengine/internal/modkit/repokit"
	sidom "syncengine/internal/services/searchindex/domain"
)

// NewMemory returns a binder over one shared in-process queue, the Queryer is ignored
func NewMemory() repokit.Binder[sidom.QueueRepo] {
	return &memBinder{m: &memQueue{items: map[string]map[int64]entry{}}}
}

type memBinder struct{ m *memQueue }

func (b *memBinder) Bind(repokit.Queryer) sidom.QueueRepo { return b.m }

type entry struct {
	action sidom.Action
	at     time.Time
}

type memQueue struct {
	mu    sync.Mutex
	items map[string]map[int64]entry
}

func (m *memQueue) Migrate(context.Context) error { return nil }

func (m *memQueue) Enqueue(_ context.Context, index string, items []sidom.Item, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.items[index]
	if q == nil {
		q = map[int64]entry{}
		m.items[index] = q
	}
	for _, it := range items {
		q[it.ID] = entry{action: it.Action.Normalize(), at: at}
	}
	return nil
}

func (m *memQueue) Pending(_ context.Context, index string, before time.Time, limit int) ([]sidom.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type row struct {
		id int64
		e  entry
	}
	var rows []row
	for id, e := range m.items[index] {
		if e.at.Before(before) {
			rows = append(rows, row{id, e})
		}
	}
	slices.SortFunc(rows, func(a, b row) int {
		if c := a.e.at.Compare(b.e.at); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]sidom.Item, len(rows))
	for i, r := range rows {
		out[i] = sidom.Item{ID: r.id, Action: r.e.action}
	}
	return out, nil
}

func (m *memQueue) Remove(_ context.Context, index string, ids []int64, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if e, ok := m.items[index][id]; ok && e.at.Before(before) {
			delete(m.items[index], id)
			n++
		}
	}
	return n, nil
}

func (m *memQueue) Clear(_ context.Context, index string, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.items[index] {
		if e.at.Before(before) {
			delete(m.items[index], id)
			n++
		}
	}
	return n, nil
}
