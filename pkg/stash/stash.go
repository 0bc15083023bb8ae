// Package stash implements the table-invalidated, parameter-keyed
// result cache: reads are served from memory until a write touches one
// of their source tables, at which point they are marked stale rather
// than dropped, so the next read keeps the table association and a
// background task can quietly refill it.
package stash

import (
	"context"
	"strconv"

	"github.com/devkit-go/pgtk/pkg/observability"
	"github.com/devkit-go/pgtk/pkg/pgtk"
	"github.com/devkit-go/pgtk/pkg/sqlclass"
)

// Stash wraps an Executor with a shared cache. Every Stash derived from
// the same root (directly, or via Transaction) sees the same tables,
// queries, lock, and worker pool.
type Stash struct {
	inner pgtk.Executor
	cache *sharedCache
	obs   observability.Observability
	cfg   *config

	hits        observability.Counter
	misses      observability.Counter
	invalidated observability.Counter
	refills     observability.Counter
}

func New(inner pgtk.Executor, obs observability.Observability, opts ...Option) *Stash {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return newStash(inner, newSharedCache(), obs, cfg)
}

func newStash(inner pgtk.Executor, cache *sharedCache, obs observability.Observability, cfg *config) *Stash {
	metrics := obs.Metrics()
	return &Stash{
		inner:       inner,
		cache:       cache,
		obs:         obs,
		cfg:         cfg,
		hits:        metrics.Counter("pgtk.stash.hit", "cache hits", "1"),
		misses:      metrics.Counter("pgtk.stash.miss", "cache misses", "1"),
		invalidated: metrics.Counter("pgtk.stash.invalidate", "cache invalidations", "1"),
		refills:     metrics.Counter("pgtk.stash.refill", "cache refills", "1"),
	}
}

// Start starts the underlying pool and launches the background tasks.
// It is idempotent per shared cache: a second Start sharing the same
// cache state fails with a CacheError.
func (s *Stash) Start(ctx context.Context, n int) error {
	starter, ok := s.inner.(pgtk.Starter)
	if !ok {
		return ErrNotStarter
	}
	if err := starter.Start(ctx, n); err != nil {
		return err
	}

	refill := func(ctx context.Context, sql string, params []any, format pgtk.ResultFormat) (pgtk.Rows, error) {
		rows, err := s.inner.Exec(ctx, sql, params, format)
		if err == nil {
			s.refills.Increment(ctx)
		}
		return rows, err
	}

	s.cache.mu.Lock()
	if s.cache.launched {
		s.cache.mu.Unlock()
		return &pgtk.CacheError{Reason: "cannot launch multiple times on same cache data"}
	}
	s.cache.launched = true
	s.cache.scheduler = newScheduler(s.cache, s.cfg, s.obs, refill)
	sched := s.cache.scheduler
	s.cache.mu.Unlock()

	return sched.start()
}

// Shutdown stops the background task scheduler, if one was launched.
func (s *Stash) Shutdown(ctx context.Context) error {
	s.cache.mu.Lock()
	sched := s.cache.scheduler
	s.cache.mu.Unlock()
	if sched == nil {
		return nil
	}
	return sched.Shutdown(ctx)
}

func (s *Stash) Version(ctx context.Context) (string, error) {
	return s.inner.Version(ctx)
}

func (s *Stash) Exec(ctx context.Context, sql string, params []any, format pgtk.ResultFormat) (pgtk.Rows, error) {
	canonical := sqlclass.Canonicalize(sql)

	if sqlclass.IsModifier(canonical) {
		return s.execWrite(ctx, canonical, sql, params, format)
	}
	return s.execRead(ctx, canonical, sql, params, format)
}

func (s *Stash) execWrite(ctx context.Context, canonical, sql string, params []any, format pgtk.ResultFormat) (pgtk.Rows, error) {
	affected := sqlclass.AffectedTables(canonical)

	rows, err := s.inner.Exec(ctx, sql, params, format)
	if err != nil {
		return nil, err
	}

	if len(affected) > 0 {
		s.cache.invalidate(affected)
		s.invalidated.Add(ctx, int64(len(affected)))
	}
	return rows, nil
}

func (s *Stash) execRead(ctx context.Context, canonical, sql string, params []any, format pgtk.ResultFormat) (pgtk.Rows, error) {
	key := sqlclass.ParamsKey(params)

	if rows, ok := s.cache.lookup(canonical, key); ok {
		s.hits.Increment(ctx)
		return rows, nil
	}
	s.misses.Increment(ctx)

	rows, err := s.inner.Exec(ctx, sql, params, format)
	if err != nil {
		return nil, err
	}

	if sqlclass.ReferencesNow(canonical) {
		return rows, nil
	}

	tables := sqlclass.ReadTables(canonical)
	if len(tables) == 0 {
		return nil, &pgtk.CacheError{Reason: "cacheable read must reference at least one table: " + canonical}
	}

	s.cache.insertRead(canonical, tables, key, params, format, rows)
	return rows, nil
}

// Transaction delegates to the inner executor's transaction and wraps
// the yielded handle in a fresh Stash sharing this one's cache, config,
// and observability. Writes inside the transaction invalidate entries
// immediately rather than waiting for commit; a rollback is a safe
// approximation that merely costs extra misses afterward.
func (s *Stash) Transaction(ctx context.Context, fn pgtk.TxFunc) (any, error) {
	return s.inner.Transaction(ctx, func(ctx context.Context, tx pgtk.Executor) (any, error) {
		return fn(ctx, newStash(tx, s.cache, s.obs, s.cfg))
	})
}

func (s *Stash) Dump(ctx context.Context) (string, error) {
	base, err := s.inner.Dump(ctx)
	if err != nil {
		return "", err
	}
	entries, stale := s.cache.stats()
	return base + "\nstash: entries=" + strconv.Itoa(entries) + " stale=" + strconv.Itoa(stale) + "\n", nil
}
