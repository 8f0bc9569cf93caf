// Package guard enforces append-only and archive-only mutation policies at
// the database handle. Adapters reach the database only through a guarded
// handle, so the policy also covers writes issued by the automation engine.
package guard

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/relata/relata/internal/model"
)

// Policy describes which mutation verbs a table accepts.
type Policy int

const (
	// PolicyOpen places no restriction beyond the schema.
	PolicyOpen Policy = iota
	// PolicyArchiveOnly forbids DELETE; UPDATE is allowed (used to set
	// archived_at and patch mutable fields).
	PolicyArchiveOnly
	// PolicyLedger forbids UPDATE and DELETE; rows are immutable once inserted.
	PolicyLedger
)

var tablePolicies = map[string]Policy{
	"workspaces":                   PolicyOpen,
	"contacts":                     PolicyArchiveOnly,
	"companies":                    PolicyArchiveOnly,
	"deals":                        PolicyArchiveOnly,
	"tickets":                      PolicyArchiveOnly,
	"workflows":                    PolicyArchiveOnly,
	"workflow_steps":               PolicyArchiveOnly,
	"pipelines":                    PolicyArchiveOnly,
	"pipeline_stages":              PolicyArchiveOnly,
	"ticket_pipelines":             PolicyArchiveOnly,
	"ticket_stages":                PolicyArchiveOnly,
	"contact_property_definitions": PolicyArchiveOnly,

	"activities":             PolicyLedger,
	"property_values":        PolicyLedger,
	"contact_company_assocs": PolicyLedger,
	"deal_contact_assocs":    PolicyLedger,
	"ticket_contact_assocs":  PolicyLedger,
	"workflow_executions":    PolicyLedger,
}

// PolicyFor returns the policy registered for a table. Unknown tables are
// open; the schema carries no other tables.
func PolicyFor(table string) Policy {
	return tablePolicies[strings.ToLower(table)]
}

// Check classifies a statement by verb and target table and returns
// model.ErrForbiddenMutation when the policy rejects the verb. Single and
// bulk statements are treated alike; the verb alone decides.
func Check(query string) error {
	verb, table := classify(query)
	switch verb {
	case "update":
		if PolicyFor(table) == PolicyLedger {
			return fmt.Errorf("%w: update on append-only table %s", model.ErrForbiddenMutation, table)
		}
	case "delete":
		switch PolicyFor(table) {
		case PolicyLedger, PolicyArchiveOnly:
			return fmt.Errorf("%w: delete on table %s", model.ErrForbiddenMutation, table)
		}
	}
	return nil
}

// classify extracts the leading verb and the table it targets.
func classify(query string) (verb, table string) {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return "", ""
	}
	verb = fields[0]
	switch verb {
	case "insert":
		// INSERT INTO <table>
		if len(fields) >= 3 && fields[1] == "into" {
			table = trimIdent(fields[2])
		}
	case "update":
		if len(fields) >= 2 {
			table = trimIdent(fields[1])
		}
	case "delete":
		// DELETE FROM <table>
		if len(fields) >= 3 && fields[1] == "from" {
			table = trimIdent(fields[2])
		}
	}
	return verb, table
}

func trimIdent(s string) string {
	return strings.Trim(s, `"(`)
}

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Handle wraps a DBTX and applies Check to every statement that can report an
// error. Mutations travel through ExecContext; QueryRowContext is a
// single-row read path.
type Handle struct {
	inner DBTX
}

// Wrap returns a guarded handle over db (a *sql.DB or *sql.Tx).
func Wrap(db DBTX) *Handle { return &Handle{inner: db} }

func (h *Handle) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if err := Check(query); err != nil {
		return nil, err
	}
	return h.inner.ExecContext(ctx, query, args...)
}

func (h *Handle) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if err := Check(query); err != nil {
		return nil, err
	}
	return h.inner.QueryContext(ctx, query, args...)
}

func (h *Handle) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return h.inner.QueryRowContext(ctx, query, args...)
}
