// Command pgtk-migrate applies schema migrations against the database
// described by a pkg/wire YAML config, optionally dumping the resulting
// schema once migrations complete.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/devkit-go/pgtk/pkg/migration"
	"github.com/devkit-go/pgtk/pkg/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pgtk-migrate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		config   = flag.String("config", "pgtk.yaml", "path to the YAML config written by pgtk-bootstrap")
		source   = flag.String("source", "file://migrations", "migration source URL")
		down     = flag.Bool("down", false, "roll back instead of applying migrations")
		dumpPath = flag.String("dump", "", "if set, writes a schema-only pg_dump to this path after migrating")
		timeout  = flag.Duration("timeout", 5*time.Minute, "overall operation timeout")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	w := wire.NewYAMLFile(*config)
	logger := migration.NewSlogTextLogger(slog.LevelInfo)

	migrator, err := migration.New(
		migration.WithDriver(migration.DriverPostgres),
		migration.WithWireDSN(w),
		migration.WithSource(*source),
		migration.WithLogger(logger),
		migration.WithTimeout(*timeout),
	)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer migrator.Close()

	if *down {
		if err := migrator.Down(ctx); err != nil {
			return fmt.Errorf("rolling back: %w", err)
		}
	} else {
		if err := migrator.Up(ctx); err != nil && !migration.IsNoChangeError(err) {
			return fmt.Errorf("applying migrations: %w", err)
		}
	}

	version, dirty, err := migrator.Version(ctx)
	if err != nil {
		return fmt.Errorf("reading version: %w", err)
	}
	fmt.Printf("schema version %d (dirty=%v)\n", version, dirty)

	if *dumpPath == "" {
		return nil
	}

	dsn, err := w.DSN()
	if err != nil {
		return fmt.Errorf("resolving DSN for dump: %w", err)
	}
	schema, err := migration.DumpSchema(ctx, dsn, logger)
	if err != nil {
		return fmt.Errorf("dumping schema: %w", err)
	}
	if err := os.WriteFile(*dumpPath, schema, 0o644); err != nil {
		return fmt.Errorf("writing schema dump: %w", err)
	}
	fmt.Printf("wrote schema dump to %s\n", *dumpPath)
	return nil
}
