// Package env loads runtime configuration from .env files and the process
// environment.
package env

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Driver string

const (
	Memory   Driver = "memory"
	SQLite   Driver = "sqlite"
	Postgres Driver = "postgres"
	Couch    Driver = "couch"
)

type Environment struct {
	Store        Driver `env:"PTNET_STORE" envDefault:"memory"`
	SQLitePath   string `env:"PTNET_SQLITE_PATH" envDefault:"ptnet.db"`
	PostgresDSN  string `env:"PTNET_POSTGRES_DSN"`
	CouchURI     string `env:"COUCHDB_URI"`
	CouchDB      string `env:"COUCHDB_DB" envDefault:"ptnet"`
	AMQPURI      string `env:"RABBITMQ_URI"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"ptnet"`
	MetricsFile  string `env:"PTNET_METRICS_FILE"`
	Development  bool   `env:"PTNET_DEV"`
}

const defaultFile = ".env"

// Load reads the given .env files and then parses the environment. Variables
// already set in the process win over the files. With no files it reads
// .env if present; a named file must exist.
func Load(files ...string) (*Environment, error) {
	if len(files) == 0 {
		if err := godotenv.Load(defaultFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", defaultFile, err)
		}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	var e Environment
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

func (e *Environment) Validate() error {
	switch e.Store {
	case Memory, SQLite:
		return nil
	case Postgres:
		if e.PostgresDSN == "" {
			return errors.New("PTNET_POSTGRES_DSN not set")
		}
	case Couch:
		if e.CouchURI == "" {
			return errors.New("COUCHDB_URI not set")
		}
	default:
		return fmt.Errorf("unknown PTNET_STORE %q", e.Store)
	}
	return nil
}

// Logger returns a development logger when PTNET_DEV is set and a
// production logger otherwise.
func (e *Environment) Logger() (*zap.Logger, error) {
	if e.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
