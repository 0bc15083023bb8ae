// Package pgtk defines the uniform executor contract shared by the
// connection pool and every decorator that wraps it (Spy, Impatient,
// Retry, Stash). Callers depend only on this interface, never on a
// concrete implementation, so the chain can be stacked in any order.
package pgtk

import "context"

// ResultFormat selects how PostgreSQL encodes result column values on the wire.
type ResultFormat int16

const (
	// TextFormat requests text-encoded column values (the default).
	TextFormat ResultFormat = 0
	// BinaryFormat requests binary-encoded column values.
	BinaryFormat ResultFormat = 1
)

// Row is a single result row. Column values are strings in text mode and
// opaque bytes in binary mode, per the wire contract in SPEC_FULL.md §6.
type Row map[string]any

// Rows is the eagerly materialized result of Exec.
type Rows []Row

// TxFunc is the body a caller supplies to Transaction. It receives a
// transaction-scoped Executor restricted in practice to Exec; calling
// Start or Transaction again on the handle is not meaningful and
// implementations may return an error if attempted.
type TxFunc func(ctx context.Context, tx Executor) (any, error)

// Executor is the contract implemented by Pool and every decorator.
// Decorators hold an inner Executor and delegate to it, adding one
// cross-cutting behavior per layer (observation, timeout, retry, caching).
type Executor interface {
	// Version returns the server's advertised version, first whitespace
	// token only. Implementations memoize this after the first call.
	Version(ctx context.Context) (string, error)

	// Exec runs sql (already joined if it was supplied as fragments) with
	// the given positional params and requested result format, and
	// returns all rows eagerly.
	Exec(ctx context.Context, sql string, params []any, format ResultFormat) (Rows, error)

	// Transaction checks out a connection, starts a transaction, invokes
	// fn with a transaction-scoped Executor implementing the same
	// cross-cutting behavior as the caller of Transaction, and commits or
	// rolls back depending on fn's outcome.
	Transaction(ctx context.Context, fn TxFunc) (any, error)

	// Dump returns a human-readable multi-line snapshot of executor state.
	Dump(ctx context.Context) (string, error)
}

// Starter is implemented by the connection-owning Pool and by Stash,
// whose Start starts the wrapped executor and then launches its
// background tasks. Spy, Impatient and Retry do not implement it.
type Starter interface {
	Start(ctx context.Context, n int) error
}

// Join joins SQL fragments with single spaces; a single fragment is
// returned unchanged. It does not collapse or trim whitespace, so its
// result is not the "canonical SQL" of SPEC_FULL.md's glossary
// (sqlclass.Canonicalize produces that).
func Join(fragments ...string) string {
	if len(fragments) == 1 {
		return fragments[0]
	}
	out := fragments[0]
	for _, f := range fragments[1:] {
		out += " " + f
	}
	return out
}
