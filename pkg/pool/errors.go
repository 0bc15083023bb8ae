package pool

import "errors"

// ErrNotStarted is returned by exec/transaction/dump when called before
// Start.
var ErrNotStarted = errors.New("pool: start(n) was not called")

// ErrNestedTransaction is returned when fn attempts to open a transaction
// on an already-transactional handle. Savepoints are out of scope.
var ErrNestedTransaction = errors.New("pool: nested transactions are not supported")
