// Package impatient implements the soft-cancellation timeout decorator:
// every exec not matched by an exemption pattern runs under a local
// deadline and fails with pgtk.TooSlow if that deadline fires first.
package impatient

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/devkit-go/pgtk/pkg/pgtk"
	"github.com/devkit-go/pgtk/pkg/sqlclass"
)

// Impatient wraps an Executor with a per-statement timeout T and an
// optional list of exemption regexes matched against canonicalized SQL.
type Impatient struct {
	inner      pgtk.Executor
	timeout    time.Duration
	exemptions []*regexp.Regexp
}

func New(inner pgtk.Executor, timeout time.Duration, exemptions ...*regexp.Regexp) *Impatient {
	return &Impatient{inner: inner, timeout: timeout, exemptions: exemptions}
}

// CompileExemptions compiles a set of exemption patterns up front so
// construction-time errors surface immediately rather than on first use.
func CompileExemptions(patterns ...string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("impatient: invalid exemption pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func (im *Impatient) Version(ctx context.Context) (string, error) {
	return im.inner.Version(ctx)
}

func (im *Impatient) Exec(ctx context.Context, sql string, params []any, format pgtk.ResultFormat) (pgtk.Rows, error) {
	canonical := sqlclass.Canonicalize(sql)
	for _, re := range im.exemptions {
		if re.MatchString(canonical) {
			return im.inner.Exec(ctx, sql, params, format)
		}
	}

	localCtx, cancel := context.WithTimeout(ctx, im.timeout)
	defer cancel()

	start := time.Now()
	rows, err := im.inner.Exec(localCtx, sql, params, format)
	elapsed := time.Since(start)
	if err == nil {
		return rows, nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		// An externally shorter deadline must win over our own timeout.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &pgtk.TooSlow{SQL: canonical, ArgCount: len(params), Elapsed: elapsed}
		}
	}
	return nil, err
}

// Transaction begins a transaction on the inner executor, issues
// SET LOCAL statement_timeout for server-side enforcement, and yields a
// fresh Impatient bound to the transaction handle with the same T.
func (im *Impatient) Transaction(ctx context.Context, fn pgtk.TxFunc) (any, error) {
	return im.inner.Transaction(ctx, func(ctx context.Context, tx pgtk.Executor) (any, error) {
		ms := im.timeout.Milliseconds()
		setSQL := fmt.Sprintf("SET LOCAL statement_timeout = %d", ms)
		if _, err := tx.Exec(ctx, setSQL, nil, pgtk.TextFormat); err != nil {
			return nil, err
		}
		return fn(ctx, New(tx, im.timeout, im.exemptions...))
	})
}

func (im *Impatient) Dump(ctx context.Context) (string, error) {
	return im.inner.Dump(ctx)
}
