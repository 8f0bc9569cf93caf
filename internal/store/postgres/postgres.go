// Package postgres opens a Postgres-backed store using the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/relata/relata/internal/store"
	"github.com/relata/relata/internal/store/sqlstore"
)

// Open connects, verifies connectivity, and applies the schema idempotently.
func Open(ctx context.Context, dsn string) (store.Store, error) {
	db, err := OpenDB(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := sqlstore.Bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sqlstore.New(db, sqlstore.DialectPostgres), nil
}

// OpenDB opens the raw connection and pings it.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
