// Package sqlstore implements store.Store over database/sql. The same SQL
// body serves both drivers; the dialect only selects the placeholder style.
// Postgres and SQLite adapters wrap this package with their own Open.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	sqlite3 "modernc.org/sqlite"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/store"
	"github.com/relata/relata/internal/store/guard"
)

// Dialect selects driver-specific SQL details.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// timeLayout is a fixed-width UTC format so that lexicographic ordering of
// stored text equals chronological ordering on both drivers.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store implements store.Store.
type Store struct {
	repoSet
	db *sql.DB
}

// New wraps an open connection. Every statement runs through the append-only
// guard.
func New(db *sql.DB, d Dialect) *Store {
	r := &runner{db: guard.Wrap(db), dollar: d == DialectPostgres}
	return &Store{repoSet: repoSet{r: r}, db: db}
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// HealthPing implements health.HealthPinger.
func (s *Store) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

// WithTx runs fn inside one transaction over a guarded handle.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	view := &txView{repoSet{r: &runner{db: guard.Wrap(tx), dollar: s.repoSet.r.dollar}}}
	if err := fn(view); err != nil {
		return err
	}
	return tx.Commit()
}

type txView struct{ repoSet }

// repoSet hands out sub-repositories bound to one runner. It backs both the
// store and the transactional view.
type repoSet struct{ r *runner }

func (s repoSet) Workspaces() store.Workspaces { return &workspaces{r: s.r} }
func (s repoSet) Contacts() store.Contacts     { return &contacts{r: s.r} }
func (s repoSet) Companies() store.Companies   { return &companies{r: s.r} }
func (s repoSet) Properties() store.Properties { return &properties{r: s.r} }
func (s repoSet) Pipelines() store.Pipelines   { return &pipelines{r: s.r} }
func (s repoSet) Deals() store.Deals           { return &deals{r: s.r} }
func (s repoSet) Tickets() store.Tickets       { return &tickets{r: s.r} }
func (s repoSet) Workflows() store.Workflows   { return &workflows{r: s.r} }
func (s repoSet) Activities() store.Activities { return &activities{r: s.r} }
func (s repoSet) Executions() store.Executions { return &executions{r: s.r} }

// runner rebinds placeholders and routes statements through the guard.
type runner struct {
	db     *guard.Handle
	dollar bool
}

func (r *runner) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.rebind(query), args...)
}

func (r *runner) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.rebind(query), args...)
}

func (r *runner) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return r.db.QueryRowContext(ctx, r.rebind(query), args...)
}

// rebind converts ? placeholders to $N for Postgres. Queries in this package
// never contain a literal question mark.
func (r *runner) rebind(query string) string {
	if !r.dollar {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// --- shared helpers ---

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func fmtTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func marshalJSON(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

func unmarshalMap(ns sql.NullString) map[string]interface{} {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var m map[string]interface{}
	_ = json.Unmarshal([]byte(ns.String), &m)
	return m
}

// isUniqueViolation recognizes unique-constraint rejections from both drivers.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sErr *sqlite3.Error
	if errors.As(err, &sErr) {
		// SQLITE_CONSTRAINT_PRIMARYKEY, SQLITE_CONSTRAINT_UNIQUE
		return sErr.Code() == 1555 || sErr.Code() == 2067
	}
	return false
}

func orNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}
