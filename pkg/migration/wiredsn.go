package migration

import "github.com/devkit-go/pgtk/pkg/wire"

// WithWireDSN resolves a DSN through a wire.Wire and sets it on the
// Config, so callers configure migrations from the same Direct/EnvURL/
// YAMLFile sources the rest of this module uses instead of duplicating
// connection details as a raw string. A resolution failure is recorded
// on the Config and surfaces verbatim from Validate, instead of being
// dropped and reported as a generic ErrMissingDSN.
func WithWireDSN(w wire.Wire) Option {
	return func(c *Config) {
		dsn, err := w.DSN()
		if err != nil {
			c.wireErr = err
			return
		}
		c.DSN = dsn
	}
}
