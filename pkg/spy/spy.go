// Package spy implements the innermost observation decorator: a
// pass-through executor that reports the wall time of every successful
// exec to a caller-supplied callback, without altering behavior.
package spy

import (
	"context"
	"time"

	"github.com/devkit-go/pgtk/pkg/pgtk"
	"github.com/devkit-go/pgtk/pkg/sqlclass"
)

// Observe is invoked with the canonicalized SQL and elapsed wall time
// after a successful Exec. It is never called on failure.
type Observe func(canonicalSQL string, elapsed time.Duration)

// Spy wraps an Executor and reports timing through Observe.
type Spy struct {
	inner   pgtk.Executor
	observe Observe
}

func New(inner pgtk.Executor, observe Observe) *Spy {
	return &Spy{inner: inner, observe: observe}
}

func (s *Spy) Version(ctx context.Context) (string, error) {
	return s.inner.Version(ctx)
}

func (s *Spy) Exec(ctx context.Context, sql string, params []any, format pgtk.ResultFormat) (pgtk.Rows, error) {
	start := time.Now()
	rows, err := s.inner.Exec(ctx, sql, params, format)
	if err != nil {
		return nil, err
	}
	s.observe(sqlclass.Canonicalize(sql), time.Since(start))
	return rows, nil
}

// Transaction delegates to the inner executor and wraps the yielded
// handle in a new Spy sharing the same Observe callback, so per-statement
// observation continues for statements issued inside the transaction.
func (s *Spy) Transaction(ctx context.Context, fn pgtk.TxFunc) (any, error) {
	return s.inner.Transaction(ctx, func(ctx context.Context, tx pgtk.Executor) (any, error) {
		return fn(ctx, New(tx, s.observe))
	})
}

func (s *Spy) Dump(ctx context.Context) (string, error) {
	return s.inner.Dump(ctx)
}
