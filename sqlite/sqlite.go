// Package sqlite opens a sqlstore.Store on a SQLite file using the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jt05610/ptnet/sqlstore"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

// Open creates or opens the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *zap.Logger) (*sqlstore.Store, error) {
	if path == "" {
		path = "ptnet.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer avoids SQLITE_BUSY between our own connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	s := sqlstore.New(db, sqlstore.SQLite, logger)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
