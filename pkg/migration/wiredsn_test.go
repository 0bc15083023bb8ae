package migration

import (
	"errors"
	"testing"

	"github.com/devkit-go/pgtk/pkg/wire"
)

func TestWithWireDSN(t *testing.T) {
	t.Run("resolves DSN from a working wire", func(t *testing.T) {
		w := &wire.Direct{Host: "localhost", Port: 5432, DBName: "mydb", User: "postgres"}
		cfg := DefaultConfig()
		cfg.Source = "file://migrations"
		WithWireDSN(w)(&cfg)

		if cfg.DSN == "" {
			t.Fatal("expected DSN to be populated from wire.Direct")
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("records resolution failure instead of leaving a silent empty DSN", func(t *testing.T) {
		w := &wire.Direct{} // no host: DSN() fails
		cfg := DefaultConfig()
		cfg.Source = "file://migrations"
		WithWireDSN(w)(&cfg)

		if cfg.DSN != "" {
			t.Fatalf("expected empty DSN, got %q", cfg.DSN)
		}
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected Validate() to fail")
		}
		if errors.Is(err, ErrMissingDSN) {
			t.Errorf("Validate() = %v, want the underlying wire error, not the generic ErrMissingDSN", err)
		}
	})
}
