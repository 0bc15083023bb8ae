// Package retry implements the read-only retry decorator: SELECT
// statements are retried immediately (no backoff) up to a fixed attempt
// count; every other statement and every statement inside a transaction
// runs exactly once.
package retry

import (
	"context"
	"strings"

	"github.com/devkit-go/pgtk/pkg/pgtk"
	"github.com/devkit-go/pgtk/pkg/sqlclass"
)

const defaultAttempts = 3

// Retry wraps an Executor, retrying read-only statements immediately on
// failure.
type Retry struct {
	inner    pgtk.Executor
	attempts int
}

// New returns a Retry with the default attempt count of 3. Use WithAttempts
// to override it.
func New(inner pgtk.Executor, opts ...Option) *Retry {
	r := &Retry{inner: inner, attempts: defaultAttempts}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Option configures a Retry at construction time.
type Option func(*Retry)

// WithAttempts overrides the default attempt count. Values below 1 are
// treated as 1 (no retrying).
func WithAttempts(n int) Option {
	return func(r *Retry) {
		if n < 1 {
			n = 1
		}
		r.attempts = n
	}
}

func (r *Retry) Version(ctx context.Context) (string, error) {
	return r.inner.Version(ctx)
}

func (r *Retry) Exec(ctx context.Context, sql string, params []any, format pgtk.ResultFormat) (pgtk.Rows, error) {
	canonical := sqlclass.Canonicalize(sql)
	if !isSelect(canonical) {
		return r.inner.Exec(ctx, sql, params, format)
	}

	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		rows, err := r.inner.Exec(ctx, sql, params, format)
		if err == nil {
			return rows, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// isSelect classifies by first token only, per spec: canonicalize,
// trim leading whitespace, and check whether the first token is SELECT
// case-insensitively. This is intentionally narrower than
// sqlclass.IsReadOnly (which also excludes pg_* calls and other
// modifiers anywhere in the statement) because Retry's contract is
// literally "starts with SELECT".
func isSelect(canonical string) bool {
	trimmed := strings.TrimLeft(canonical, " ")
	fields := strings.Fields(trimmed)
	return len(fields) > 0 && strings.EqualFold(fields[0], "SELECT")
}

// Transaction is always a pass-through: statements inside a transaction
// must not be silently retried.
func (r *Retry) Transaction(ctx context.Context, fn pgtk.TxFunc) (any, error) {
	return r.inner.Transaction(ctx, fn)
}

func (r *Retry) Dump(ctx context.Context) (string, error) {
	return r.inner.Dump(ctx)
}
