package stash

import (
	"context"
	"testing"
	"time"

	"github.com/devkit-go/pgtk/pkg/observability/noop"
	"github.com/devkit-go/pgtk/pkg/pgtk"
)

func TestApplyCapEvictsOldestAcrossQueries(t *testing.T) {
	c := newSharedCache()
	now := time.Now()

	c.queries["q1"] = map[string]*entry{
		"a": {used: now.Add(-3 * time.Minute), popularity: 1},
		"b": {used: now},
	}
	c.queries["q2"] = map[string]*entry{
		"c": {used: now.Add(-2 * time.Minute), popularity: 1},
	}

	c.applyCap(2)

	if total := c.totalLocked(); total != 2 {
		t.Fatalf("total entries = %d, want 2", total)
	}
	if _, ok := c.queries["q1"]["b"]; !ok {
		t.Error("newest entry q1/b should survive; each query gives up its oldest entry first")
	}
}

func TestApplyRetirementDropsStaleByAge(t *testing.T) {
	c := newSharedCache()
	now := time.Now()

	c.queries["q1"] = map[string]*entry{
		"old": {used: now.Add(-1 * time.Hour)},
		"new": {used: now},
	}

	c.applyRetirement(15 * time.Minute)

	if _, ok := c.queries["q1"]["old"]; ok {
		t.Error("entry older than retirement age should be dropped")
	}
	if _, ok := c.queries["q1"]["new"]; !ok {
		t.Error("recently used entry should survive retirement")
	}
}

func TestApplyRetirementDropsEmptyQuery(t *testing.T) {
	c := newSharedCache()
	c.queries["q1"] = map[string]*entry{
		"only": {used: time.Now().Add(-1 * time.Hour)},
	}

	c.applyRetirement(15 * time.Minute)

	if _, ok := c.queries["q1"]; ok {
		t.Error("query with no remaining entries should be removed entirely")
	}
}

func TestSnapshotStaleOrdersByAggregatePopularityDescending(t *testing.T) {
	c := newSharedCache()
	past := time.Now().Add(-time.Minute)

	c.queries["popular"] = map[string]*entry{
		"k1": {popularity: 100, stale: past, params: []any{1}},
	}
	c.queries["quiet"] = map[string]*entry{
		"k2": {popularity: 1, stale: past, params: []any{2}},
	}
	c.queries["fresh"] = map[string]*entry{
		"k3": {popularity: 1000}, // not stale, must be excluded
	}

	jobs := c.snapshotStale(0)
	if len(jobs) != 2 {
		t.Fatalf("len(jobs) = %d, want 2 (non-stale entries excluded)", len(jobs))
	}
	if jobs[0].sql != "popular" {
		t.Errorf("jobs[0].sql = %q, want %q (higher aggregate popularity first)", jobs[0].sql, "popular")
	}
}

func TestSnapshotStaleRespectsDelay(t *testing.T) {
	c := newSharedCache()
	c.queries["q"] = map[string]*entry{
		"k": {popularity: 1, stale: time.Now()},
	}

	jobs := c.snapshotStale(time.Hour)
	if len(jobs) != 0 {
		t.Fatalf("len(jobs) = %d, want 0 (stale mark not old enough yet)", len(jobs))
	}
}

func TestWriteBackClearsStaleAndReplacesResult(t *testing.T) {
	c := newSharedCache()
	c.queries["q"] = map[string]*entry{
		"k": {stale: time.Now(), result: pgtk.Rows{{"old": "true"}}},
	}

	c.writeBack("q", "k", pgtk.Rows{{"new": "true"}})

	e := c.queries["q"]["k"]
	if !e.stale.IsZero() {
		t.Error("writeBack must clear the stale mark")
	}
	if e.result[0]["new"] != "true" {
		t.Error("writeBack must install the new result")
	}
}

func TestWriteBackIsNoOpForMissingEntry(t *testing.T) {
	c := newSharedCache()
	c.writeBack("missing", "k", pgtk.Rows{{"x": "1"}}) // must not panic
}

func TestSchedulerPostRespectsQueueCapacity(t *testing.T) {
	cfg := defaultConfig()
	cfg.maxQueued = 1
	cfg.workers = 0 // no workers draining, so the single slot fills immediately
	s := newScheduler(newSharedCache(), cfg, noop.NewProvider(), func(ctx context.Context, sql string, params []any, format pgtk.ResultFormat) (pgtk.Rows, error) {
		return nil, nil
	})

	if !s.post(func(context.Context) {}) {
		t.Fatal("first post into an empty queue should succeed")
	}
	if s.post(func(context.Context) {}) {
		t.Fatal("second post into a full queue should fail")
	}
}

func TestSchedulerHealthReportsQueueState(t *testing.T) {
	cfg := defaultConfig()
	cfg.maxQueued = 8
	s := newScheduler(newSharedCache(), cfg, noop.NewProvider(), nil)

	h := s.Health()
	if h.QueueCapacity != 8 {
		t.Errorf("QueueCapacity = %d, want 8", h.QueueCapacity)
	}
	if h.Workers != cfg.workers {
		t.Errorf("Workers = %d, want %d", h.Workers, cfg.workers)
	}
}
