package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/devkit-go/pgtk/pkg/observability"
	"github.com/devkit-go/pgtk/pkg/observability/fake"
)

func TestFromObservability(t *testing.T) {
	underlying := fake.NewFakeLogger()
	logger := FromObservability(underlying)
	ctx := context.Background()

	logger.Info(ctx, "migration applied", String("database", "mydb"), Int("steps", 3))
	logger.Error(ctx, "migration failed", Error(errors.New("boom")))

	entries := underlying.GetEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 captured entries, got %d", len(entries))
	}

	if entries[0].Level != observability.LogLevelInfo || entries[0].Message != "migration applied" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if len(entries[0].Fields) != 2 || entries[0].Fields[0].Key != "database" || entries[0].Fields[1].Key != "steps" {
		t.Errorf("fields not forwarded correctly: %+v", entries[0].Fields)
	}

	if entries[1].Level != observability.LogLevelError || entries[1].Message != "migration failed" {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}
