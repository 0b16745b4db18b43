package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"syncengine/internal/modkit/repokit"
	wmdom "syncengine/internal/services/watermark/domain"
)

// NewMemory returns a binder over a process-local map
// every Bind shares the same map, the Queryer is ignored
func NewMemory() repokit.Binder[wmdom.Repo] {
	return &memRepo{m: map[string]wmdom.Watermark{}}
}

type memRepo struct {
	mu sync.Mutex
	m  map[string]wmdom.Watermark
}

func (r *memRepo) Bind(repokit.Queryer) wmdom.Repo { return r }

func (r *memRepo) Migrate(context.Context) error { return nil }

func (r *memRepo) Get(_ context.Context, jobKey string) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.m[jobKey]
	return w.LastRunAt, ok, nil
}

func (r *memRepo) SetIfNewer(_ context.Context, jobKey string, t time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.m[jobKey]; ok && !w.LastRunAt.Before(t) {
		return false, nil
	}
	r.m[jobKey] = wmdom.Watermark{JobKey: jobKey, LastRunAt: t.UTC(), UpdatedAt: time.Now().UTC()}
	return true, nil
}

func (r *memRepo) Upsert(_ context.Context, jobKey string, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[jobKey] = wmdom.Watermark{JobKey: jobKey, LastRunAt: t.UTC(), UpdatedAt: time.Now().UTC()}
	return nil
}

func (r *memRepo) Delete(_ context.Context, jobKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, jobKey)
	return nil
}

func (r *memRepo) List(context.Context) ([]wmdom.Watermark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wmdom.Watermark, 0, len(r.m))
	for _, w := range r.m {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobKey < out[j].JobKey })
	return out, nil
}
