// Package wire produces a live PostgreSQL connection from one of three
// configuration sources: inline fields (Direct), an environment variable
// holding a connection URI (EnvURL), or a YAML file (YAMLFile). Wire is
// the leaf dependency of the whole module: Pool depends on it, nothing
// depends on Pool to build a Wire.
package wire

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Wire produces a fresh, live connection on every call. Pool calls
// Connection once per slot at start(n) time and again whenever a
// checked-out connection is discarded as broken.
type Wire interface {
	// Connection dials a new PostgreSQL connection.
	Connection(ctx context.Context) (*pgx.Conn, error)

	// DSN returns the connection string this Wire would dial, without
	// opening a connection. Boundary collaborators (migration, bootstrap)
	// need the string form; the core query pipeline never calls this.
	DSN() (string, error)
}
