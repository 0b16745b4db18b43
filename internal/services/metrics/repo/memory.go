package repo

import (
	"context"
	"slices"
	"sync"
	"time"

	"syncengine/internal/modkit/repokit"
	mdom "syncengine/internal/services/metrics/domain"
)

// NewMemory returns a binder over one shared in-process queue, the Queryer is ignored
func NewMemory() repokit.Binder[mdom.QueueRepo] {
	return &memBinder{m: &memQueue{items: map[string]map[int64]time.Time{}}}
}

type memBinder struct{ m *memQueue }

func (b *memBinder) Bind(repokit.Queryer) mdom.QueueRepo { return b.m }

type memQueue struct {
	mu    sync.Mutex
	items map[string]map[int64]time.Time
}

func (m *memQueue) Migrate(context.Context) error { return nil }

func (m *memQueue) Enqueue(_ context.Context, jobKey string, ids []int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.items[jobKey]
	if job == nil {
		job = map[int64]time.Time{}
		m.items[jobKey] = job
	}
	for _, id := range ids {
		if prev, ok := job[id]; !ok || at.After(prev) {
			job[id] = at
		}
	}
	return nil
}

func (m *memQueue) Pending(_ context.Context, jobKey string, before time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for id, at := range m.items[jobKey] {
		if at.Before(before) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *memQueue) Purge(_ context.Context, jobKey string, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, at := range m.items[jobKey] {
		if at.Before(before) {
			delete(m.items[jobKey], id)
			n++
		}
	}
	return n, nil
}
