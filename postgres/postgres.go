// Package postgres opens a sqlstore.Store on PostgreSQL through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jt05610/ptnet/sqlstore"
	"go.uber.org/zap"
)

const driver = "pgx"

// Open connects to dsn, checks the connection and applies the schema.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*sqlstore.Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("open postgres: empty dsn")
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := sqlstore.New(db, sqlstore.Postgres, logger)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
