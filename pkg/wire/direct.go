package wire

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/devkit-go/pgtk/pkg/pgtk"
)

// Direct configures a connection from inline fields. Host and Port must
// be non-empty; DBName/User/Password are passed through as-is (an empty
// password is valid — trust/peer authentication, local development).
type Direct struct {
	Host     string
	Port     int
	DBName   string
	User     string
	Password string
	SSLMode  string // defaults to "disable" when empty
}

// NewDirect validates host/port and returns a Wire, following the
// validated functional-options style of the teacher's
// pkg/database/postgres/options.go (ported here as up-front
// construction-time validation rather than per-option validation, since
// Direct has no optional fields to accumulate).
func NewDirect(host string, port int, dbname, user, password string) (*Direct, error) {
	if host == "" {
		return nil, &pgtk.ConfigError{Source: "direct", Field: "host"}
	}
	if port <= 0 || port > 65535 {
		return nil, &pgtk.ConfigError{Source: "direct", Field: "port"}
	}
	return &Direct{Host: host, Port: port, DBName: dbname, User: user, Password: password}, nil
}

func (d *Direct) Connection(ctx context.Context) (*pgx.Conn, error) {
	dsn, err := d.DSN()
	if err != nil {
		return nil, err
	}
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, &pgtk.ConnectionError{Op: "connect", Err: err}
	}
	return conn, nil
}

func (d *Direct) DSN() (string, error) {
	if d.Host == "" {
		return "", &pgtk.ConfigError{Source: "direct", Field: "host"}
	}
	if d.Port <= 0 || d.Port > 65535 {
		return "", &pgtk.ConfigError{Source: "direct", Field: "port"}
	}
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, sslMode,
	), nil
}
