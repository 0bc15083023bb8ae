package stash

import (
	"sort"
	"sync"
	"time"

	"github.com/devkit-go/pgtk/pkg/pgtk"
)

// entry is one cached result for a given (canonical SQL, params key) pair.
type entry struct {
	result     pgtk.Rows
	params     []any
	format     pgtk.ResultFormat
	used       time.Time
	popularity int64
	stale      time.Time // zero value means "not stale"
}

// sharedCache holds the state a Stash and every transactional Stash
// derived from it share: the query/params index, the table index used
// for invalidation, and the launch flag that makes Start idempotent.
//
// A single mutex guards all of it. Every method except the *Locked
// helpers takes and releases the lock itself and never calls another locking method while
// holding it, so no method needs to be reentrant — the discipline
// documented in spec.md §5 is enforced by never nesting critical
// sections rather than by a recursive lock.
type sharedCache struct {
	mu    sync.Mutex
	tables  map[string][]string          // table -> canonical SQL referencing it (deduped)
	queries map[string]map[string]*entry // canonical SQL -> params key -> entry

	launched  bool
	scheduler *scheduler
}

func newSharedCache() *sharedCache {
	return &sharedCache{
		tables:  make(map[string][]string),
		queries: make(map[string]map[string]*entry),
	}
}

func (c *sharedCache) lookup(sql, key string) (pgtk.Rows, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byKey, ok := c.queries[sql]
	if !ok {
		return nil, false
	}
	e, ok := byKey[key]
	if !ok || !e.stale.IsZero() {
		return nil, false
	}
	e.popularity++
	e.used = time.Now()
	return e.result, true
}

func (c *sharedCache) insertRead(sql string, tables []string, key string, params []any, format pgtk.ResultFormat, result pgtk.Rows) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range tables {
		if !containsString(c.tables[t], sql) {
			c.tables[t] = append(c.tables[t], sql)
		}
	}

	byKey, ok := c.queries[sql]
	if !ok {
		byKey = make(map[string]*entry)
		c.queries[sql] = byKey
	}
	byKey[key] = &entry{
		result:     result,
		params:     params,
		format:     format,
		used:       time.Now(),
		popularity: 1,
	}
}

// invalidate marks every cached entry for every query registered under
// any of the given tables as stale. It never removes the table index, so
// a later read against the same table still re-associates correctly.
func (c *sharedCache) invalidate(affectedTables []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, t := range affectedTables {
		for _, q := range c.tables[t] {
			for _, e := range c.queries[q] {
				e.stale = now
			}
		}
	}
}

// applyCap evicts the least-recently-used entry from every query in
// round-robin order until the total entry count is at or below max.
func (c *sharedCache) applyCap(max int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.totalLocked() > max {
		evicted := false
		for q, byKey := range c.queries {
			if len(byKey) == 0 {
				continue
			}
			oldestKey := oldestInLocked(byKey)
			delete(byKey, oldestKey)
			evicted = true
			if len(byKey) == 0 {
				delete(c.queries, q)
			}
			if c.totalLocked() <= max {
				break
			}
		}
		if !evicted {
			return
		}
	}
}

func oldestInLocked(byKey map[string]*entry) string {
	var key string
	var oldest time.Time
	first := true
	for k, e := range byKey {
		if first || e.used.Before(oldest) {
			key, oldest, first = k, e.used, false
		}
	}
	return key
}

func (c *sharedCache) totalLocked() int {
	total := 0
	for _, byKey := range c.queries {
		total += len(byKey)
	}
	return total
}

// applyRetirement drops every entry whose last use is older than maxAge.
func (c *sharedCache) applyRetirement(maxAge time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for q, byKey := range c.queries {
		for k, e := range byKey {
			if e.used.Before(cutoff) {
				delete(byKey, k)
			}
		}
		if len(byKey) == 0 {
			delete(c.queries, q)
		}
	}
}

// refillJob describes one stale entry whose SQL needs to be re-run
// against the underlying pool.
type refillJob struct {
	sql    string
	key    string
	params []any
	format pgtk.ResultFormat
}

// snapshotStale locks only long enough to collect candidate refill jobs,
// ordered by the aggregate popularity of their owning query (descending),
// skipping entries whose stale mark is not yet older than delay.
func (c *sharedCache) snapshotStale(delay time.Duration) []refillJob {
	c.mu.Lock()
	defer c.mu.Unlock()

	type aggregate struct {
		sql   string
		total int64
	}
	var aggs []aggregate
	for q, byKey := range c.queries {
		var total int64
		hasStale := false
		for _, e := range byKey {
			total += e.popularity
			if !e.stale.IsZero() {
				hasStale = true
			}
		}
		if hasStale {
			aggs = append(aggs, aggregate{sql: q, total: total})
		}
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].total > aggs[j].total })

	cutoff := time.Now().Add(-delay)
	var jobs []refillJob
	for _, agg := range aggs {
		for key, e := range c.queries[agg.sql] {
			if e.stale.IsZero() || !e.stale.Before(cutoff) {
				continue
			}
			jobs = append(jobs, refillJob{sql: agg.sql, key: key, params: e.params, format: e.format})
		}
	}
	return jobs
}

// writeBack installs a freshly re-executed result and clears the stale
// mark. It is a no-op if the entry was evicted between snapshot and
// re-execution.
func (c *sharedCache) writeBack(sql, key string, result pgtk.Rows) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byKey, ok := c.queries[sql]
	if !ok {
		return
	}
	e, ok := byKey[key]
	if !ok {
		return
	}
	e.result = result
	e.stale = time.Time{}
}

func (c *sharedCache) stats() (entries int, staleEntries int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, byKey := range c.queries {
		for _, e := range byKey {
			entries++
			if !e.stale.IsZero() {
				staleEntries++
			}
		}
	}
	return entries, staleEntries
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
