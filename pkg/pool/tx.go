package pool

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/devkit-go/pgtk/pkg/observability"
	"github.com/devkit-go/pgtk/pkg/pgtk"
)

// poolTx is the executor handle yielded to Transaction's callback. It
// binds Exec to the already-open transaction instead of checking out a
// fresh connection, and refuses nested transactions.
type poolTx struct {
	pool *Pool
	tx   pgx.Tx
}

func (t *poolTx) Version(ctx context.Context) (string, error) {
	return t.pool.Version(ctx)
}

func (t *poolTx) Exec(ctx context.Context, sql string, params []any, format pgtk.ResultFormat) (pgtk.Rows, error) {
	start := time.Now()
	rows, err := t.tx.Query(ctx, sql, queryArgs(params, format)...)
	var result pgtk.Rows
	if err == nil {
		result, err = collectRows(rows, format)
	}
	elapsed := time.Since(start)

	if err != nil {
		t.pool.obs.Logger().Error(ctx, "pool exec failed (in transaction)",
			observability.String("sql", sql),
			observability.Int("args", len(params)),
			observability.Error(err),
		)
		if isConnectionError(err) {
			return nil, &pgtk.ConnectionError{Op: "exec", Err: err}
		}
		return nil, &pgtk.QueryError{SQL: sql, ArgCount: len(params), Err: err}
	}

	t.pool.logSuccess(ctx, sql, elapsed)
	return result, nil
}

func (t *poolTx) Transaction(ctx context.Context, fn pgtk.TxFunc) (any, error) {
	return nil, ErrNestedTransaction
}

func (t *poolTx) Dump(ctx context.Context) (string, error) {
	return t.pool.Dump(ctx)
}
