package stash

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/devkit-go/pgtk/pkg/observability"
	"github.com/devkit-go/pgtk/pkg/pgtk"
)

// execFunc re-runs a statement against the underlying pool, bypassing
// the cache entirely. Refill jobs use it to repopulate stale entries.
type execFunc func(ctx context.Context, sql string, params []any, format pgtk.ResultFormat) (pgtk.Rows, error)

type job func(ctx context.Context)

// scheduler is a fixed-size worker pool fed by three robfig/cron/v3
// periodic triggers (cap, retirement, refill), built on a Server/Job
// shape for bounded background work: a bounded job channel,
// panic-recovering workers, and a Health snapshot.
type scheduler struct {
	cache  *sharedCache
	cfg    *config
	obs    observability.Observability
	execFn execFunc

	cron *cron.Cron
	jobs chan job

	wg       sync.WaitGroup
	shutdown chan struct{}
	once     sync.Once
}

func newScheduler(cache *sharedCache, cfg *config, obs observability.Observability, execFn execFunc) *scheduler {
	return &scheduler{
		cache:    cache,
		cfg:      cfg,
		obs:      obs,
		execFn:   execFn,
		cron:     cron.New(),
		jobs:     make(chan job, cfg.maxQueued),
		shutdown: make(chan struct{}),
	}
}

func (s *scheduler) start() error {
	for i := 0; i < s.cfg.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	if s.cfg.capInterval > 0 {
		if _, err := s.cron.AddFunc(everySpec(s.cfg.capInterval), func() {
			s.post(s.runCap)
		}); err != nil {
			return err
		}
	}
	if s.cfg.retireInterval > 0 {
		if _, err := s.cron.AddFunc(everySpec(s.cfg.retireInterval), func() {
			s.post(s.runRetirement)
		}); err != nil {
			return err
		}
	}
	if s.cfg.refillInterval > 0 {
		if _, err := s.cron.AddFunc(everySpec(s.cfg.refillInterval), func() {
			s.post(s.runRefill)
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

func everySpec(d time.Duration) string {
	return "@every " + d.String()
}

// Health reports the worker pool's current load.
type Health struct {
	QueueDepth    int
	QueueCapacity int
	Workers       int
}

func (s *scheduler) Health() Health {
	return Health{QueueDepth: len(s.jobs), QueueCapacity: cap(s.jobs), Workers: s.cfg.workers}
}

// Shutdown stops accepting new cron triggers and waits for in-flight
// jobs to drain, bounded by ctx.
func (s *scheduler) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		cronCtx := s.cron.Stop()
		select {
		case <-cronCtx.Done():
		case <-ctx.Done():
		}
		close(s.shutdown)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case j, ok := <-s.jobs:
			if !ok {
				return
			}
			s.runJob(j)
		case <-s.shutdown:
			return
		}
	}
}

func (s *scheduler) runJob(j job) {
	defer func() {
		if r := recover(); r != nil {
			s.obs.Logger().Error(context.Background(), "stash: background job panicked", observability.Any("panic", r))
		}
	}()
	j(context.Background())
}

// post enqueues a job without blocking. It returns false when the queue
// is full, matching the refill task's "post while there is capacity"
// contract.
func (s *scheduler) post(j job) bool {
	select {
	case s.jobs <- j:
		return true
	default:
		return false
	}
}

func (s *scheduler) runCap(ctx context.Context) {
	s.cache.applyCap(s.cfg.capMax)
}

func (s *scheduler) runRetirement(ctx context.Context) {
	s.cache.applyRetirement(s.cfg.retireAfter)
}

func (s *scheduler) runRefill(ctx context.Context) {
	for _, rj := range s.cache.snapshotStale(s.cfg.refillDelay) {
		rj := rj
		posted := s.post(func(ctx context.Context) {
			rows, err := s.execFn(ctx, rj.sql, rj.params, rj.format)
			if err != nil {
				s.obs.Logger().Warn(ctx, "stash: refill failed",
					observability.String("sql", rj.sql),
					observability.Error(err),
				)
				return
			}
			s.cache.writeBack(rj.sql, rj.key, rows)
		})
		if !posted {
			break
		}
	}
}
