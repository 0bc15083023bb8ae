// Command pgtk-bootstrap starts (or points at) a PostgreSQL instance and
// emits a YAML configuration file in the format pkg/wire.YAMLFile reads,
// so the rest of the toolchain (pgtk-migrate, pgtk-lint, the example
// program) can be pointed at a database with a single flag.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gopkg.in/yaml.v3"

	"github.com/devkit-go/pgtk/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("pgtk-bootstrap: %v", err)
	}
}

func run() error {
	var (
		dsn      = flag.String("dsn", "", "existing postgres DSN; skips container startup when set")
		out      = flag.String("out", "pgtk.yaml", "path to write the YAML config to")
		image    = flag.String("image", "postgres:16-alpine", "container image to start when -dsn is not set")
		database = flag.String("database", "pgtk", "database name")
		user     = flag.String("user", "pgtk", "database user")
		password = flag.String("password", "pgtk", "database password")
	)
	flag.Parse()

	log := logger.NewLogger()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		host string
		port int
	)

	if *dsn != "" {
		parsed, err := url.Parse(*dsn)
		if err != nil {
			return fmt.Errorf("parsing -dsn: %w", err)
		}
		host = parsed.Hostname()
		port = 5432
		if p := parsed.Port(); p != "" {
			fmt.Sscanf(p, "%d", &port)
		}
		if parsed.Path != "" {
			*database = parsed.Path[1:]
		}
		if u := parsed.User; u != nil {
			*user = u.Username()
			if pw, ok := u.Password(); ok {
				*password = pw
			}
		}
	} else {
		container, err := postgres.Run(ctx, *image,
			postgres.WithDatabase(*database),
			postgres.WithUsername(*user),
			postgres.WithPassword(*password),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			return fmt.Errorf("starting postgres container: %w", err)
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := container.Terminate(shutdownCtx); err != nil {
				log.Error("terminating container", logger.Err(err))
			}
		}()

		mappedHost, err := container.Host(ctx)
		if err != nil {
			return fmt.Errorf("reading container host: %w", err)
		}
		mappedPort, err := container.MappedPort(ctx, "5432/tcp")
		if err != nil {
			return fmt.Errorf("reading mapped port: %w", err)
		}
		host = mappedHost
		port = mappedPort.Int()
		log.Info("started postgres container", logger.String("host", host), logger.Int("port", port))
	}

	if err := writeConfig(*out, host, port, *database, *user, *password); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	log.Info("wrote config", logger.String("path", *out))

	if *dsn == "" {
		<-ctx.Done()
	}
	return nil
}

type pgsqlSection struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DBName   string `yaml:"dbname"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	URL      string `yaml:"url"`
}

func writeConfig(path, host string, port int, dbname, user, password string) error {
	doc := map[string]pgsqlSection{
		"pgsql": {
			Host:     host,
			Port:     port,
			DBName:   dbname,
			User:     user,
			Password: password,
			URL:      fmt.Sprintf("jdbc:postgresql://%s:%d/%s?user=%s", host, port, dbname, url.QueryEscape(user)),
		},
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
