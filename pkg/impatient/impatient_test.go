package impatient

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/devkit-go/pgtk/pkg/pgtk"
)

// slowExecutor waits for sleep or ctx cancellation, whichever comes
// first, recording the last SQL it was asked to run.
type slowExecutor struct {
	sleep   time.Duration
	lastSQL []string
}

func (s *slowExecutor) Version(ctx context.Context) (string, error) { return "16.1", nil }

func (s *slowExecutor) Exec(ctx context.Context, sql string, params []any, format pgtk.ResultFormat) (pgtk.Rows, error) {
	s.lastSQL = append(s.lastSQL, sql)
	select {
	case <-time.After(s.sleep):
		return pgtk.Rows{{"ok": "true"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *slowExecutor) Transaction(ctx context.Context, fn pgtk.TxFunc) (any, error) {
	return fn(ctx, s)
}

func (s *slowExecutor) Dump(ctx context.Context) (string, error) { return "slow", nil }

func TestExecTimesOutWithTooSlow(t *testing.T) {
	inner := &slowExecutor{sleep: 100 * time.Millisecond}
	im := New(inner, 10*time.Millisecond)

	_, err := im.Exec(context.Background(), "SELECT pg_sleep(1)", nil, pgtk.TextFormat)
	var tooSlow *pgtk.TooSlow
	if !errors.As(err, &tooSlow) {
		t.Fatalf("got %v (%T), want *pgtk.TooSlow", err, err)
	}
}

func TestExemptionBypassesTimeout(t *testing.T) {
	inner := &slowExecutor{sleep: 30 * time.Millisecond}
	exemption := regexp.MustCompile(`(?i)pg_sleep`)
	im := New(inner, 5*time.Millisecond, exemption)

	rows, err := im.Exec(context.Background(), "SELECT pg_sleep(1)", nil, pgtk.TextFormat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the slow call to actually complete, got %v", rows)
	}
}

func TestOuterDeadlineWinsOverImpatient(t *testing.T) {
	inner := &slowExecutor{sleep: 200 * time.Millisecond}
	im := New(inner, time.Second) // generous T, so only the outer deadline can fire first

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := im.Exec(ctx, "SELECT 1", nil, pgtk.TextFormat)
	var tooSlow *pgtk.TooSlow
	if errors.As(err, &tooSlow) {
		t.Fatalf("outer deadline should win, got TooSlow instead: %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
}

func TestTransactionSetsLocalStatementTimeout(t *testing.T) {
	inner := &slowExecutor{sleep: time.Millisecond}
	im := New(inner, 250*time.Millisecond)

	_, err := im.Transaction(context.Background(), func(ctx context.Context, tx pgtk.Executor) (any, error) {
		if _, ok := tx.(*Impatient); !ok {
			t.Fatalf("expected transaction handle to be *Impatient, got %T", tx)
		}
		return tx.Exec(ctx, "SELECT 1", nil, pgtk.TextFormat)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(inner.lastSQL) < 1 || !strings.Contains(inner.lastSQL[0], "statement_timeout = 250") {
		t.Fatalf("expected SET LOCAL statement_timeout as first statement, got %v", inner.lastSQL)
	}
}
