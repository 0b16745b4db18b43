package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	perr "syncengine/internal/platform/errors"
	emdom "syncengine/internal/services/entitymetrics/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type bundle struct {
	ID     int64
	Views  *int64
	Rating emdom.Rating
	Name   string
	Empty  bool
}

func toBundle(id int64, m emdom.Metrics, extra emdom.Extra) bundle {
	b := bundle{ID: id, Views: emdom.MetricOrNull(m, emdom.MetricView), Rating: emdom.CalculateRating(m), Empty: m == nil}
	if n, ok := extra["name"].(string); ok {
		b.Name = n
	}
	return b
}

// countingSource serves fixed metrics and counts loads per id
type countingSource struct {
	mu    sync.Mutex
	data  map[int64]emdom.Metrics
	loads map[int64]int
	delay time.Duration
	err   error
}

func newSource(data map[int64]emdom.Metrics) *countingSource {
	return &countingSource{data: data, loads: map[int64]int{}}
}

func (s *countingSource) Load(_ context.Context, _ string, ids []int64) (map[int64]emdom.Metrics, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := map[int64]emdom.Metrics{}
	for _, id := range ids {
		s.loads[id]++
		if m, ok := s.data[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (s *countingSource) count(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads[id]
}

func (s *countingSource) set(id int64, m emdom.Metrics) {
	s.mu.Lock()
	s.data[id] = m
	s.mu.Unlock()
}

func setup(t *testing.T, src emdom.Source, opts Options) (*Cache[bundle], *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	if opts.EntityType == "" {
		opts.EntityType = "Image"
	}
	return New(rdb, src, toBundle, opts), mr, rdb
}

func TestFetch_PopulatesOnceThenReadsCache(t *testing.T) {
	t.Parallel()

	src := newSource(map[int64]emdom.Metrics{1: {emdom.MetricView: 10, emdom.MetricThumbsUp: 3, emdom.MetricThumbsDown: 1}})
	c, mr, _ := setup(t, src, Options{})
	ctx := context.Background()

	got, err := c.Fetch(ctx, 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	b := got[1]
	if b.Views == nil || *b.Views != 10 || *b.Rating.Rating != 3.75 {
		t.Fatalf("bundle = %+v", b)
	}
	if !mr.Exists("entitymetrics:Image:1") {
		t.Fatalf("bundle key not written")
	}
	if _, err := c.Fetch(ctx, 1, 1); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if n := src.count(1); n != 1 {
		t.Fatalf("source loads = %d, want 1", n)
	}
	if ttl := mr.TTL("entitymetrics:Image:1"); ttl != 0 {
		t.Fatalf("bundle should not expire by default, ttl=%v", ttl)
	}
}

func TestFetch_NeverObservedUsesDefaultPath(t *testing.T) {
	t.Parallel()

	src := newSource(map[int64]emdom.Metrics{})
	c, _, _ := setup(t, src, Options{})
	ctx := context.Background()

	got, err := c.Fetch(ctx, 42)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if b := got[42]; !b.Empty || b.Views != nil || b.Rating.Rating != nil {
		t.Fatalf("default bundle = %+v", b)
	}
	_, _ = c.Fetch(ctx, 42)
	if n := src.count(42); n != 1 {
		t.Fatalf("empty entity reloaded %d times", n)
	}
}

func TestFetch_SingleFlightAcrossInstances(t *testing.T) {
	t.Parallel()

	src := newSource(map[int64]emdom.Metrics{7: {emdom.MetricView: 1}})
	src.delay = 50 * time.Millisecond
	_, mr, _ := setup(t, src, Options{})
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	views := make([]*int64, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		// a fresh client and cache per goroutine behaves like separate processes
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer func() { _ = rdb.Close() }()
		c := New(rdb, src, toBundle, Options{EntityType: "Image", LockPoll: 10 * time.Millisecond})
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got, err := c.Fetch(ctx, 7)
			errs[i] = err
			views[i] = got[7].Views
		}(i)
	}
	close(start)
	wg.Wait()

	for i := range errs {
		if errs[i] != nil {
			t.Fatalf("fetch %d: %v", i, errs[i])
		}
		if views[i] == nil || *views[i] != 1 {
			t.Fatalf("fetch %d got views %v", i, views[i])
		}
	}
	if got := src.count(7); got != 1 {
		t.Fatalf("source loads = %d, want exactly 1", got)
	}
}

func TestBust_ForcesRepopulation(t *testing.T) {
	t.Parallel()

	src := newSource(map[int64]emdom.Metrics{1: {emdom.MetricView: 1}})
	c, _, _ := setup(t, src, Options{})
	ctx := context.Background()

	_, _ = c.Fetch(ctx, 1)
	src.set(1, emdom.Metrics{emdom.MetricView: 5})

	if got, _ := c.Fetch(ctx, 1); *got[1].Views != 1 {
		t.Fatalf("cached value should still be served before bust")
	}
	if err := c.Bust(ctx, 1); err != nil {
		t.Fatalf("Bust: %v", err)
	}
	got, _ := c.Fetch(ctx, 1)
	if *got[1].Views != 5 || src.count(1) != 2 {
		t.Fatalf("after bust views=%d loads=%d", *got[1].Views, src.count(1))
	}
}

func TestRefresh_OverwritesExisting(t *testing.T) {
	t.Parallel()

	src := newSource(map[int64]emdom.Metrics{1: {emdom.MetricView: 1, emdom.MetricHeart: 2}})
	c, _, _ := setup(t, src, Options{})
	ctx := context.Background()

	_, _ = c.Fetch(ctx, 1)
	src.set(1, emdom.Metrics{emdom.MetricView: 9})

	if err := c.Refresh(ctx, 1); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got, _ := c.Fetch(ctx, 1)
	if *got[1].Views != 9 {
		t.Fatalf("views = %d, want 9", *got[1].Views)
	}
	raw, _ := c.readAll(ctx, []int64{1})
	if _, stale := raw[1][emdom.MetricHeart]; stale {
		t.Fatalf("refresh left a stale field: %v", raw[1])
	}
}

func TestFetch_WaitsOnForeignLockThenServesDefault(t *testing.T) {
	t.Parallel()

	src := newSource(map[int64]emdom.Metrics{3: {emdom.MetricView: 1}})
	c, mr, _ := setup(t, src, Options{LockWait: 80 * time.Millisecond, LockPoll: 10 * time.Millisecond})

	if err := mr.Set("entitymetrics:lock:Image:3", "someone-else"); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	start := time.Now()
	got, err := c.Fetch(context.Background(), 3)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !got[3].Empty {
		t.Fatalf("expected default bundle while lock is held, got %+v", got[3])
	}
	if time.Since(start) < 80*time.Millisecond {
		t.Fatalf("returned before the lock wait elapsed")
	}
	if src.count(3) != 0 {
		t.Fatalf("source must not be called while another populator holds the lock")
	}
	if v, _ := mr.Get("entitymetrics:lock:Image:3"); v != "someone-else" {
		t.Fatalf("foreign lock was released: %q", v)
	}
}

func TestFetch_SourceErrorPropagatesAndReleasesLock(t *testing.T) {
	t.Parallel()

	boom := errors.New("clickhouse down")
	src := newSource(nil)
	src.err = boom
	c, mr, _ := setup(t, src, Options{})

	if _, err := c.Fetch(context.Background(), 5); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if mr.Exists("entitymetrics:lock:Image:5") {
		t.Fatalf("lock not released after failure")
	}
	if mr.Exists("entitymetrics:Image:5") {
		t.Fatalf("failed populate must not write a bundle")
	}
}

func TestFetch_MergesExtra(t *testing.T) {
	t.Parallel()

	src := newSource(map[int64]emdom.Metrics{1: {emdom.MetricView: 1}})
	c, _, _ := setup(t, src, Options{})
	c.WithExtra(func(_ context.Context, ids []int64) (map[int64]emdom.Extra, error) {
		out := map[int64]emdom.Extra{}
		for _, id := range ids {
			out[id] = emdom.Extra{"name": "img"}
		}
		return out, nil
	})

	got, err := c.Fetch(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got[1].Name != "img" || got[2].Name != "img" || !got[2].Empty {
		t.Fatalf("extras not merged: %+v", got)
	}
}

func TestFlush(t *testing.T) {
	t.Parallel()

	src := newSource(map[int64]emdom.Metrics{1: {emdom.MetricView: 1}, 2: {emdom.MetricView: 2}})
	c, mr, rdb := setup(t, src, Options{})
	ctx := context.Background()

	if _, err := c.Flush(ctx); !errors.Is(err, ErrFlushUnsupported) {
		t.Fatalf("Flush disabled err = %v", err)
	}

	c2 := New(rdb, src, toBundle, Options{EntityType: "Image", AllowFlush: true})
	_, _ = c2.Fetch(ctx, 1, 2)
	_ = mr.Set("entitymetrics:Model:1", "keep")

	n, err := c2.Flush(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Flush = %d %v", n, err)
	}
	if !mr.Exists("entitymetrics:Model:1") {
		t.Fatalf("flush removed another entity type")
	}
}

func TestLookup_TypeErased(t *testing.T) {
	t.Parallel()

	src := newSource(map[int64]emdom.Metrics{1: {emdom.MetricView: 4}})
	c, _, _ := setup(t, src, Options{})

	var p emdom.Port = c
	got, err := p.Lookup(context.Background(), 1)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	b, ok := got[1].(bundle)
	if !ok || *b.Views != 4 || p.EntityType() != "Image" {
		t.Fatalf("Lookup = %#v", got[1])
	}
}

func TestFetch_CallerDeadlineDoesNotFailSharedPopulate(t *testing.T) {
	t.Parallel()

	src := newSource(map[int64]emdom.Metrics{9: {emdom.MetricView: 4}})
	src.delay = 100 * time.Millisecond
	c, mr, _ := setup(t, src, Options{})

	short, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var errShort, errLong error
	var got map[int64]bundle
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errShort = c.Fetch(short, 9)
	}()
	go func() {
		defer wg.Done()
		got, errLong = c.Fetch(context.Background(), 9)
	}()
	wg.Wait()

	if !errors.Is(errShort, context.DeadlineExceeded) {
		t.Fatalf("short caller err = %v, want deadline exceeded", errShort)
	}
	if errLong != nil {
		t.Fatalf("caller without deadline failed: %v", errLong)
	}
	if v := got[9].Views; v == nil || *v != 4 {
		t.Fatalf("views = %v, want 4", v)
	}
	if !mr.Exists("entitymetrics:Image:9") {
		t.Fatalf("shared populate did not write the bundle")
	}
	if n := src.count(9); n != 1 {
		t.Fatalf("source loads = %d, want 1", n)
	}
}

func TestRefresh_WaitsForForeignLockThenReloads(t *testing.T) {
	t.Parallel()

	src := newSource(map[int64]emdom.Metrics{3: {emdom.MetricView: 1}})
	c, mr, _ := setup(t, src, Options{LockWait: time.Second, LockPoll: 10 * time.Millisecond})
	ctx := context.Background()

	_, _ = c.Fetch(ctx, 3)
	if err := mr.Set("entitymetrics:lock:Image:3", "someone-else"); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	src.set(3, emdom.Metrics{emdom.MetricView: 99})

	go func() {
		time.Sleep(50 * time.Millisecond)
		mr.Del("entitymetrics:lock:Image:3")
	}()

	if err := c.Refresh(ctx, 3); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got, _ := c.Fetch(ctx, 3)
	if v := got[3].Views; v == nil || *v != 99 {
		t.Fatalf("views after refresh = %v, want 99", v)
	}
	if n := src.count(3); n != 2 {
		t.Fatalf("source loads = %d, want 2", n)
	}
}

func TestRefresh_LockHeldPastWaitIsUnavailable(t *testing.T) {
	t.Parallel()

	src := newSource(map[int64]emdom.Metrics{3: {emdom.MetricView: 1}})
	c, mr, _ := setup(t, src, Options{LockWait: 60 * time.Millisecond, LockPoll: 10 * time.Millisecond})
	ctx := context.Background()

	_, _ = c.Fetch(ctx, 3)
	if err := mr.Set("entitymetrics:lock:Image:3", "someone-else"); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	err := c.Refresh(ctx, 3)
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("Refresh err = %v, want unavailable", err)
	}
	if n := src.count(3); n != 1 {
		t.Fatalf("source reloaded under a foreign lock: %d loads", n)
	}
	if v, _ := mr.Get("entitymetrics:lock:Image:3"); v != "someone-else" {
		t.Fatalf("foreign lock was released: %q", v)
	}
}
