// Package sqlite opens a SQLite-backed store using the pure-Go driver. It is
// the default backend when no Postgres DSN is configured and the backend used
// by hermetic tests.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/relata/relata/internal/store"
	"github.com/relata/relata/internal/store/sqlstore"
)

// Open opens (or creates) the database at path and applies the schema.
// Pass ":memory:" for an in-memory database.
func Open(ctx context.Context, path string) (store.Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// An in-memory database lives and dies with its connection; pooling would
	// hand each caller a fresh empty database.
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := sqlstore.Bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sqlstore.New(db, sqlstore.DialectSQLite), nil
}
