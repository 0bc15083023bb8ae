package migration

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// DumpSchema shells out to pg_dump to capture the post-migration schema,
// per spec.md §6's "optionally dumps the resulting schema" boundary
// behavior. It runs --schema-only so it only ever reads catalog
// metadata, never table contents.
func DumpSchema(ctx context.Context, dsn string, logger Logger) ([]byte, error) {
	if logger == nil {
		logger = NewNoopLogger()
	}

	cmd := exec.CommandContext(ctx, "pg_dump", "--schema-only", "--no-owner", "--no-privileges", dsn)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Info(ctx, "running pg_dump --schema-only")
	if err := cmd.Run(); err != nil {
		logger.Error(ctx, "pg_dump failed", Error(err), String("stderr", stderr.String()))
		return nil, fmt.Errorf("pg_dump failed: %w: %s", err, stderr.String())
	}

	return stdout.Bytes(), nil
}
