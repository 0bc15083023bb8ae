package wire

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	"github.com/devkit-go/pgtk/pkg/pgtk"
)

// YAMLFile reads connection fields from a top-level section of a YAML
// file, matching the configuration format in SPEC_FULL.md §6:
//
//	pgsql:
//	  host: localhost
//	  port: 5432
//	  dbname: mydb
//	  user: postgres
//	  password: secret
//	  url: jdbc:postgresql://localhost:5432/mydb?user=postgres
type YAMLFile struct {
	Path    string
	Section string // defaults to "pgsql" when empty
}

func NewYAMLFile(path string) *YAMLFile {
	return &YAMLFile{Path: path, Section: "pgsql"}
}

type yamlSection struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DBName   string `yaml:"dbname"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	URL      string `yaml:"url"`
}

func (y *YAMLFile) section() (yamlSection, error) {
	section := y.Section
	if section == "" {
		section = "pgsql"
	}

	data, err := os.ReadFile(y.Path)
	if err != nil {
		return yamlSection{}, &pgtk.ConfigError{Source: "yaml", Field: y.Path, Err: err}
	}

	var doc map[string]yamlSection
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return yamlSection{}, &pgtk.ConfigError{Source: "yaml", Field: y.Path, Err: err}
	}

	cfg, ok := doc[section]
	if !ok {
		return yamlSection{}, &pgtk.ConfigError{Source: "yaml", Field: section}
	}

	if cfg.Host == "" {
		return yamlSection{}, &pgtk.ConfigError{Source: "yaml", Field: "host"}
	}
	if cfg.Port == 0 {
		return yamlSection{}, &pgtk.ConfigError{Source: "yaml", Field: "port"}
	}
	if cfg.DBName == "" {
		return yamlSection{}, &pgtk.ConfigError{Source: "yaml", Field: "dbname"}
	}
	if cfg.User == "" {
		return yamlSection{}, &pgtk.ConfigError{Source: "yaml", Field: "user"}
	}

	return cfg, nil
}

func (y *YAMLFile) Connection(ctx context.Context) (*pgx.Conn, error) {
	dsn, err := y.DSN()
	if err != nil {
		return nil, err
	}
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, &pgtk.ConnectionError{Op: "connect", Err: err}
	}
	return conn, nil
}

func (y *YAMLFile) DSN() (string, error) {
	cfg, err := y.section()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName,
	), nil
}
