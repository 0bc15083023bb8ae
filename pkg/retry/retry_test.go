package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/devkit-go/pgtk/pkg/pgtk"
)

type countingExecutor struct {
	failUntil int // fail this many calls before succeeding; 0 always fails
	failFor   error
	calls     int
	txCalls   int
}

func (c *countingExecutor) Version(ctx context.Context) (string, error) { return "16.1", nil }

func (c *countingExecutor) Exec(ctx context.Context, sql string, params []any, format pgtk.ResultFormat) (pgtk.Rows, error) {
	c.calls++
	if c.calls <= c.failUntil {
		return nil, c.failFor
	}
	return pgtk.Rows{{"ok": "true"}}, nil
}

func (c *countingExecutor) Transaction(ctx context.Context, fn pgtk.TxFunc) (any, error) {
	c.txCalls++
	return fn(ctx, c)
}

func (c *countingExecutor) Dump(ctx context.Context) (string, error) { return "counting", nil }

func TestSelectRetriesUntilSuccess(t *testing.T) {
	inner := &countingExecutor{failUntil: 2, failFor: errors.New("transient")}
	r := New(inner)

	rows, err := r.Exec(context.Background(), "SELECT * FROM users", nil, pgtk.TextFormat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected rows, got %v", rows)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3 (2 failures + 1 success)", inner.calls)
	}
}

func TestSelectGivesUpAfterAttempts(t *testing.T) {
	wantErr := errors.New("persistent")
	inner := &countingExecutor{failUntil: 99, failFor: wantErr}
	r := New(inner, WithAttempts(3))

	_, err := r.Exec(context.Background(), "  select 1", nil, pgtk.TextFormat)
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestNonSelectRunsOnlyOnce(t *testing.T) {
	wantErr := errors.New("constraint violation")
	inner := &countingExecutor{failUntil: 99, failFor: wantErr}
	r := New(inner)

	_, err := r.Exec(context.Background(), "INSERT INTO users (name) VALUES ($1)", []any{"a"}, pgtk.TextFormat)
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry for non-SELECT)", inner.calls)
	}
}

func TestTransactionIsPassThrough(t *testing.T) {
	wantErr := errors.New("boom")
	inner := &countingExecutor{failUntil: 99, failFor: wantErr}
	r := New(inner, WithAttempts(5))

	_, err := r.Transaction(context.Background(), func(ctx context.Context, tx pgtk.Executor) (any, error) {
		return tx.Exec(ctx, "SELECT 1", nil, pgtk.TextFormat)
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retrying inside a transaction even for SELECT)", inner.calls)
	}
}

func TestWithAttemptsRejectsBelowOne(t *testing.T) {
	r := New(&countingExecutor{}, WithAttempts(0))
	if r.attempts != 1 {
		t.Errorf("attempts = %d, want 1 (clamped)", r.attempts)
	}
}
