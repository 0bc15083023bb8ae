// Package pool implements the bounded connection pool at the bottom of
// the executor decorator chain. It is the only component that actually
// talks to PostgreSQL; everything above it (Spy, Impatient, Retry,
// Stash) wraps a Pool or wraps another decorator that eventually wraps
// one.
package pool

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/devkit-go/pgtk/pkg/observability"
	"github.com/devkit-go/pgtk/pkg/pgtk"
	"github.com/devkit-go/pgtk/pkg/wire"
)

// Pool is a fixed-size set of live connections dialed through a Wire,
// checked out for the duration of a single exec or transaction and
// returned to an idle queue afterward. A connection that fails with a
// connection-layer error is closed and transparently replaced before
// being returned to the queue.
type Pool struct {
	wire wire.Wire
	cfg  *config
	obs  observability.Observability

	idle chan *pgx.Conn
	size int

	versionOnce sync.Once
	version     string
	versionErr  error

	histOnce sync.Once
	hist     observability.Histogram
}

func New(w wire.Wire, obs observability.Observability, opts ...Option) *Pool {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Pool{wire: w, obs: obs, cfg: cfg}
}

// Start opens exactly n connections through Wire and places them in the
// idle queue. Must be called once before Exec/Transaction/Dump.
func (p *Pool) Start(ctx context.Context, n int) error {
	if n <= 0 {
		return &pgtk.ConfigError{Source: "pool", Field: "n"}
	}

	idle := make(chan *pgx.Conn, n)
	for i := 0; i < n; i++ {
		conn, err := p.dial(ctx)
		if err != nil {
			close(idle)
			for c := range idle {
				_ = c.Close(context.Background())
			}
			return err
		}
		idle <- conn
	}

	p.idle = idle
	p.size = n
	return nil
}

// dial opens one connection, retrying with exponential backoff when
// cfg.dialMaxElapsed is non-zero. With the default zero value it dials
// exactly once, matching spec.md's literal "open exactly n connections".
func (p *Pool) dial(ctx context.Context) (*pgx.Conn, error) {
	if p.cfg.dialMaxElapsed <= 0 {
		conn, err := p.wire.Connection(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.dialInitialDelay
	b.MaxInterval = p.cfg.dialMaxInterval
	b.MaxElapsedTime = p.cfg.dialMaxElapsed

	var conn *pgx.Conn
	operation := func() error {
		c, err := p.wire.Connection(ctx)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, &pgtk.ConnectionError{Op: "dial", Err: err}
	}
	return conn, nil
}

func (p *Pool) checkout(ctx context.Context) (*pgx.Conn, error) {
	if p.idle == nil {
		return nil, ErrNotStarted
	}
	select {
	case conn := <-p.idle:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// checkin returns conn to the idle queue, replacing it first if broken
// is true. Replacement failures are logged and the slot is dropped
// rather than blocking the caller indefinitely.
func (p *Pool) checkin(ctx context.Context, conn *pgx.Conn, broken bool) {
	if broken {
		_ = conn.Close(context.Background())
		replacement, err := p.dial(context.Background())
		if err != nil {
			p.obs.Logger().Error(ctx, "pool: failed to replace broken connection", observability.Error(err))
			return
		}
		conn = replacement
	}

	select {
	case p.idle <- conn:
	default:
		_ = conn.Close(context.Background())
	}
}

func (p *Pool) Version(ctx context.Context) (string, error) {
	p.versionOnce.Do(func() {
		conn, err := p.checkout(ctx)
		if err != nil {
			p.versionErr = err
			return
		}
		defer p.checkin(ctx, conn, false)

		raw := conn.PgConn().ParameterStatus("server_version")
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			p.versionErr = errors.New("pool: server did not report server_version")
			return
		}
		p.version = fields[0]
	})
	return p.version, p.versionErr
}

func (p *Pool) Exec(ctx context.Context, sql string, params []any, format pgtk.ResultFormat) (pgtk.Rows, error) {
	conn, err := p.checkout(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := p.obs.Tracer().Start(ctx, "pgtk.pool.exec")
	defer span.End()

	start := time.Now()
	rows, err := conn.Query(ctx, sql, queryArgs(params, format)...)
	var result pgtk.Rows
	if err == nil {
		result, err = collectRows(rows, format)
	}
	elapsed := time.Since(start)

	if err != nil {
		broken := isConnectionError(err)
		p.checkin(context.Background(), conn, broken)
		span.RecordError(err)
		span.SetStatus(observability.StatusCodeError, err.Error())
		p.obs.Logger().Error(ctx, "pool exec failed",
			observability.String("sql", sql),
			observability.Int("args", len(params)),
			observability.Error(err),
		)
		if broken {
			return nil, &pgtk.ConnectionError{Op: "exec", Err: err}
		}
		return nil, &pgtk.QueryError{SQL: sql, ArgCount: len(params), Err: err}
	}

	p.checkin(context.Background(), conn, false)
	p.logSuccess(ctx, sql, elapsed)
	return result, nil
}

func (p *Pool) Transaction(ctx context.Context, fn pgtk.TxFunc) (any, error) {
	conn, err := p.checkout(ctx)
	if err != nil {
		return nil, err
	}

	broken := false
	defer func() { p.checkin(context.Background(), conn, broken) }()

	tx, err := conn.Begin(ctx)
	if err != nil {
		broken = isConnectionError(err)
		if broken {
			return nil, &pgtk.ConnectionError{Op: "exec", Err: err}
		}
		return nil, &pgtk.QueryError{SQL: "START TRANSACTION", Err: err}
	}

	handle := &poolTx{pool: p, tx: tx}

	result, err := runTxFunc(ctx, tx, fn, handle)
	if err != nil {
		if rbErr := tx.Rollback(context.Background()); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			p.obs.Logger().Error(ctx, "pool: rollback failed", observability.Error(rbErr))
		}
		return nil, err
	}

	if cerr := tx.Commit(ctx); cerr != nil {
		broken = isConnectionError(cerr)
		if broken {
			return nil, &pgtk.ConnectionError{Op: "exec", Err: cerr}
		}
		return nil, &pgtk.QueryError{SQL: "COMMIT", Err: cerr}
	}
	return result, nil
}

// runTxFunc invokes fn, rolling back and re-panicking if fn panics.
// Grounded on the unit-of-work Do/rollbackTx pattern: a panic inside the
// callback must not leave the transaction open.
func runTxFunc(ctx context.Context, tx pgx.Tx, fn pgtk.TxFunc, handle pgtk.Executor) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(context.Background())
			panic(r)
		}
	}()
	return fn(ctx, handle)
}

func (p *Pool) Dump(ctx context.Context) (string, error) {
	if p.idle == nil {
		return "", ErrNotStarted
	}

	version, err := p.Version(ctx)
	if err != nil {
		version = "unknown"
	}

	var conns []*pgx.Conn
draining:
	for {
		select {
		case c := <-p.idle:
			conns = append(conns, c)
		default:
			break draining
		}
	}
	defer func() {
		for _, c := range conns {
			p.idle <- c
		}
	}()

	var b strings.Builder
	b.WriteString("pgtk pool: version=" + version + "\n")
	b.WriteString("idle=" + strconv.Itoa(len(conns)) + "/" + strconv.Itoa(p.size) + "\n")
	for _, c := range conns {
		b.WriteString("  conn pid=" + strconv.FormatUint(uint64(c.PgConn().PID()), 10) + "\n")
	}
	return b.String(), nil
}

func (p *Pool) logSuccess(ctx context.Context, sql string, elapsed time.Duration) {
	fields := []observability.Field{
		observability.String("sql", sql),
		observability.Int64("elapsed_ms", elapsed.Milliseconds()),
	}
	logger := p.obs.Logger()
	if elapsed >= p.cfg.slowLogThreshold {
		logger.Info(ctx, "pool exec", fields...)
	} else {
		logger.Debug(ctx, "pool exec", fields...)
	}
	p.execHistogram().Record(ctx, elapsed.Seconds())
}

func (p *Pool) execHistogram() observability.Histogram {
	p.histOnce.Do(func() {
		p.hist = p.obs.Metrics().Histogram("pgtk.pool.exec.duration", "pool exec wall time", "s")
	})
	return p.hist
}

// isConnectionError reports whether err originated below the protocol
// layer (network, closed connection) rather than being a server-reported
// SQL error, which leaves the connection itself usable. Context
// cancellation and deadline expiry are not counted as connection errors.
func isConnectionError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
