// Package cache implements the read-through entity metrics cache on redis
package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"syncengine/internal/core/taskpool"
	perr "syncengine/internal/platform/errors"
	"syncengine/internal/platform/logger"
	emdom "syncengine/internal/services/entitymetrics/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ErrFlushUnsupported is returned by Flush when key enumeration is disabled
var ErrFlushUnsupported = errors.New("entitymetrics: flush not supported for this cache")

// releaseLock deletes a lock only if we still own it
const releaseLock = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// Options tunes a Cache
type Options struct {
	EntityType string
	KeyPrefix  string

	// TTL applies to populated bundles, zero keeps them until busted
	TTL time.Duration

	// LockTTL bounds how long a crashed populator can block others
	LockTTL time.Duration
	// LockWait is how long a caller waits on another populator before reading what is there
	LockWait time.Duration
	// LockPoll is the wait loop's poll interval
	LockPoll time.Duration

	PopulateBatch       int
	PopulateConcurrency int

	// AllowFlush enables SCAN based Flush
	AllowFlush bool
}

func (o *Options) defaults() {
	if o.KeyPrefix == "" {
		o.KeyPrefix = defaultPrefix
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 30 * time.Second
	}
	if o.LockWait <= 0 {
		o.LockWait = 3 * time.Second
	}
	if o.LockPoll <= 0 {
		o.LockPoll = 50 * time.Millisecond
	}
	if o.PopulateBatch <= 0 {
		o.PopulateBatch = 500
	}
	if o.PopulateConcurrency <= 0 {
		o.PopulateConcurrency = 4
	}
}

// Transform shapes raw metrics into a bundle
// m is nil when the entity has no metrics
type Transform[B any] func(id int64, m emdom.Metrics, extra emdom.Extra) B

// Cache serves bundles of type B for one entity type
type Cache[B any] struct {
	rdb       redis.UniversalClient
	src       emdom.Source
	transform Transform[B]
	extra     emdom.ExtraFetcher
	opts      Options
	keys      keyspace

	flight singleflight.Group
}

var _ emdom.Port = (*Cache[struct{}])(nil)

// New constructs a cache, panics on missing collaborators
func New[B any](rdb redis.UniversalClient, src emdom.Source, transform Transform[B], opts Options) *Cache[B] {
	if rdb == nil {
		panic("entitymetrics.Cache requires a redis client")
	}
	if src == nil {
		panic("entitymetrics.Cache requires a Source")
	}
	if transform == nil {
		panic("entitymetrics.Cache requires a Transform")
	}
	if opts.EntityType == "" {
		panic("entitymetrics.Cache requires an EntityType")
	}
	opts.defaults()
	return &Cache[B]{
		rdb:       rdb,
		src:       src,
		transform: transform,
		opts:      opts,
		keys:      keyspace{prefix: opts.KeyPrefix, entityType: opts.EntityType},
	}
}

// WithExtra sets the bulk fetcher merged into every Fetch
func (c *Cache[B]) WithExtra(f emdom.ExtraFetcher) *Cache[B] {
	c.extra = f
	return c
}

// EntityType returns the entity type this cache serves
func (c *Cache[B]) EntityType() string { return c.opts.EntityType }

// Fetch returns one bundle per requested id, populating misses first
func (c *Cache[B]) Fetch(ctx context.Context, ids ...int64) (map[int64]B, error) {
	ids = uniq(ids)
	out := make(map[int64]B, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	missing, err := c.missing(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		if err := c.fill(ctx, missing); err != nil {
			return nil, err
		}
	}

	raw, err := c.readAll(ctx, ids)
	if err != nil {
		return nil, err
	}

	var extras map[int64]emdom.Extra
	if c.extra != nil {
		extras, err = c.extra(ctx, ids)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "entitymetrics: extra fetch")
		}
	}

	for _, id := range ids {
		out[id] = c.transform(id, raw[id], extras[id])
	}
	return out, nil
}

// Lookup is Fetch with the bundle type erased
func (c *Cache[B]) Lookup(ctx context.Context, ids ...int64) (map[int64]any, error) {
	m, err := c.Fetch(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

// Bust deletes cached bundles so the next Fetch repopulates
func (c *Cache[B]) Bust(ctx context.Context, ids ...int64) error {
	ids = uniq(ids)
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.keys.bundle(id)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "entitymetrics: bust")
	}
	return nil
}

// fill populates missing ids once per process
// the shared populate is detached from any one caller and bounded by LockTTL,
// each caller stops waiting when its own ctx ends
func (c *Cache[B]) fill(ctx context.Context, missing []int64) error {
	ch := c.flight.DoChan(c.keys.flightKey(missing), func() (any, error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.LockTTL)
		defer cancel()
		others, err := c.populate(pctx, missing, false)
		if err != nil {
			return nil, err
		}
		if len(others) > 0 {
			c.wait(pctx, others)
		}
		return nil, nil
	})
	select {
	case <-ctx.Done():
		return perr.Wrap(ctx.Err(), perr.ErrorCodeUnavailable, "entitymetrics: populate")
	case r := <-ch:
		return r.Err
	}
}

// Refresh repopulates ids from the source now, overwriting cached bundles
// ids locked by another populator are retried until LockWait, then reported as unavailable
func (c *Cache[B]) Refresh(ctx context.Context, ids ...int64) error {
	pending := uniq(ids)
	if len(pending) == 0 {
		return nil
	}
	deadline := time.Now().Add(c.opts.LockWait)
	t := time.NewTicker(c.opts.LockPoll)
	defer t.Stop()

	for {
		others, err := c.populate(ctx, pending, true)
		if err != nil {
			return err
		}
		if len(others) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return perr.Unavailablef("entitymetrics: refresh: %d ids still locked by another populator", len(others))
		}
		select {
		case <-ctx.Done():
			return perr.Wrap(ctx.Err(), perr.ErrorCodeUnavailable, "entitymetrics: refresh")
		case <-t.C:
		}
		pending = others
	}
}

// Flush removes every bundle of this entity type, best effort
func (c *Cache[B]) Flush(ctx context.Context) (int, error) {
	if !c.opts.AllowFlush {
		return 0, ErrFlushUnsupported
	}
	var removed int
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.keys.pattern(), 500).Result()
		if err != nil {
			return removed, perr.Wrap(err, perr.ErrorCodeUnavailable, "entitymetrics: flush scan")
		}
		if len(keys) > 0 {
			n, err := c.rdb.Unlink(ctx, keys...).Result()
			if err != nil {
				return removed, perr.Wrap(err, perr.ErrorCodeUnavailable, "entitymetrics: flush unlink")
			}
			removed += int(n)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	logger.C(ctx).Info().Str("entity", c.opts.EntityType).Int("removed", removed).Msg("entitymetrics: flushed")
	return removed, nil
}

// missing returns ids with no cached bundle, one pipelined round trip
func (c *Cache[B]) missing(ctx context.Context, ids []int64) ([]int64, error) {
	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Exists(ctx, c.keys.bundle(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "entitymetrics: exists")
	}
	var out []int64
	for i, cmd := range cmds {
		if cmd.Val() == 0 {
			out = append(out, ids[i])
		}
	}
	return out, nil
}

// readAll loads every requested hash in one pipelined round trip
func (c *Cache[B]) readAll(ctx context.Context, ids []int64) (map[int64]emdom.Metrics, error) {
	pipe := c.rdb.Pipeline()
	cmds := make(map[int64]*redis.MapStringStringCmd, len(ids))
	for _, id := range ids {
		cmds[id] = pipe.HGetAll(ctx, c.keys.bundle(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "entitymetrics: read")
	}

	out := make(map[int64]emdom.Metrics, len(ids))
	for id, cmd := range cmds {
		if m := decode(cmd.Val()); m != nil {
			out[id] = m
		}
	}
	return out, nil
}

// populate loads ids from the source under per-id locks and returns the ids another populator holds
// force skips the post-lock existence check so cached bundles are overwritten
func (c *Cache[B]) populate(ctx context.Context, ids []int64, force bool) (others []int64, err error) {
	l := logger.C(ctx).With().Str("mod", "entitymetrics").Str("entity", c.opts.EntityType).Logger()

	token := uuid.NewString()
	locked, others, err := c.lock(ctx, ids, token)
	if err != nil {
		return nil, err
	}
	defer c.unlock(context.WithoutCancel(ctx), locked, token)

	todo := locked
	if !force && len(locked) > 0 {
		// another instance may have finished between our EXISTS and SETNX
		todo, err = c.missing(ctx, locked)
		if err != nil {
			return nil, err
		}
	}

	if len(todo) > 0 {
		if err := c.load(ctx, todo); err != nil {
			return nil, err
		}
		l.Debug().Int("ids", len(todo)).Bool("force", force).Msg("entitymetrics: populated")
	}
	return others, nil
}

// lock tries SET NX PX for every id in one pipeline
func (c *Cache[B]) lock(ctx context.Context, ids []int64, token string) (locked, others []int64, err error) {
	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.BoolCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.SetNX(ctx, c.keys.lock(id), token, c.opts.LockTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "entitymetrics: lock")
	}
	for i, cmd := range cmds {
		if cmd.Val() {
			locked = append(locked, ids[i])
		} else {
			others = append(others, ids[i])
		}
	}
	return locked, others, nil
}

func (c *Cache[B]) unlock(ctx context.Context, ids []int64, token string) {
	if len(ids) == 0 {
		return
	}
	pipe := c.rdb.Pipeline()
	for _, id := range ids {
		pipe.Eval(ctx, releaseLock, []string{c.keys.lock(id)}, token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.C(ctx).Warn().Err(err).Str("entity", c.opts.EntityType).Msg("entitymetrics: unlock failed, locks will expire")
	}
}

// load fetches metrics in chunks and writes each chunk atomically
func (c *Cache[B]) load(ctx context.Context, ids []int64) error {
	chunks := taskpool.Chunk(ids, c.opts.PopulateBatch)
	var mu sync.Mutex
	loaded := make(map[int64]emdom.Metrics, len(ids))

	errs := taskpool.Each(ctx, c.opts.PopulateConcurrency, chunks, func(ctx context.Context, chunk []int64) error {
		m, err := c.src.Load(ctx, c.opts.EntityType, chunk)
		if err != nil {
			return err
		}
		mu.Lock()
		for id, v := range m {
			loaded[id] = v
		}
		mu.Unlock()
		return nil
	})
	if err := errors.Join(errs...); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "entitymetrics: source load")
	}

	pipe := c.rdb.TxPipeline()
	for _, id := range ids {
		key := c.keys.bundle(id)
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, encode(loaded[id])...)
		if c.opts.TTL > 0 {
			pipe.Expire(ctx, key, c.opts.TTL)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "entitymetrics: write")
	}
	return nil
}

// wait polls until ids held by other populators exist or LockWait passes
// on timeout the caller reads whatever is cached, absent ids get the default bundle
func (c *Cache[B]) wait(ctx context.Context, ids []int64) {
	deadline := time.Now().Add(c.opts.LockWait)
	pending := ids
	t := time.NewTicker(c.opts.LockPoll)
	defer t.Stop()

	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		still, err := c.missing(ctx, pending)
		if err != nil {
			return
		}
		pending = still
		if time.Now().After(deadline) {
			if len(pending) > 0 {
				logger.C(ctx).Warn().Str("entity", c.opts.EntityType).Int("ids", len(pending)).
					Msg("entitymetrics: lock wait timed out, serving defaults")
			}
			return
		}
	}
}

func encode(m emdom.Metrics) []any {
	vals := make([]any, 0, 2+2*len(m))
	vals = append(vals, populatedField, "1")
	for k, v := range m {
		vals = append(vals, k, v)
	}
	return vals
}

func decode(h map[string]string) emdom.Metrics {
	if len(h) == 0 {
		return nil
	}
	var m emdom.Metrics
	for k, v := range h {
		if k == populatedField {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		if m == nil {
			m = make(emdom.Metrics, len(h))
		}
		m[k] = n
	}
	return m
}

func uniq(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
