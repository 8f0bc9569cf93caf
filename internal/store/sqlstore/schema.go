package sqlstore

import (
	"context"
	"database/sql"
)

// schema is dialect-neutral DDL: TEXT keys and fixed-width TEXT timestamps so
// the same statements run on SQLite and Postgres. The unique index on
// (workflow_id, activity_id) is what makes workflow execution at-most-once.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS workspaces (
        workspace_id  TEXT PRIMARY KEY,
        name          TEXT NOT NULL,
        creation_time TEXT NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS contacts (
        workspace_id  TEXT NOT NULL,
        contact_id    TEXT NOT NULL,
        email         TEXT,
        first_name    TEXT,
        last_name     TEXT,
        creation_time TEXT NOT NULL,
        archived_at   TEXT,
        PRIMARY KEY (workspace_id, contact_id)
    )`,
	`CREATE TABLE IF NOT EXISTS companies (
        workspace_id  TEXT NOT NULL,
        company_id    TEXT NOT NULL,
        name          TEXT NOT NULL,
        domain        TEXT,
        industry      TEXT,
        size_range    TEXT,
        website       TEXT,
        creation_time TEXT NOT NULL,
        archived_at   TEXT,
        PRIMARY KEY (workspace_id, company_id)
    )`,
	`CREATE TABLE IF NOT EXISTS contact_company_assocs (
        workspace_id TEXT NOT NULL,
        assoc_id     TEXT PRIMARY KEY,
        contact_id   TEXT NOT NULL,
        company_id   TEXT NOT NULL,
        created_at   TEXT NOT NULL,
        archived_at  TEXT
    )`,
	`CREATE INDEX IF NOT EXISTS idx_cc_assocs_contact
        ON contact_company_assocs (workspace_id, contact_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS contact_property_definitions (
        workspace_id  TEXT NOT NULL,
        key           TEXT NOT NULL,
        label         TEXT NOT NULL,
        type          TEXT NOT NULL,
        options       TEXT,
        required      BOOLEAN NOT NULL,
        creation_time TEXT NOT NULL,
        PRIMARY KEY (workspace_id, key)
    )`,
	`CREATE TABLE IF NOT EXISTS property_values (
        workspace_id TEXT NOT NULL,
        value_id     TEXT PRIMARY KEY,
        contact_id   TEXT NOT NULL,
        property_key TEXT NOT NULL,
        value        TEXT,
        created_at   TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_property_values_contact
        ON property_values (workspace_id, contact_id, property_key, created_at)`,
	`CREATE TABLE IF NOT EXISTS pipelines (
        workspace_id  TEXT NOT NULL,
        pipeline_id   TEXT NOT NULL,
        name          TEXT NOT NULL,
        creation_time TEXT NOT NULL,
        PRIMARY KEY (workspace_id, pipeline_id)
    )`,
	`CREATE TABLE IF NOT EXISTS pipeline_stages (
        workspace_id   TEXT NOT NULL,
        stage_id       TEXT NOT NULL,
        pipeline_id    TEXT NOT NULL,
        name           TEXT NOT NULL,
        display_order  INTEGER NOT NULL,
        is_closed_won  BOOLEAN NOT NULL,
        is_closed_lost BOOLEAN NOT NULL,
        PRIMARY KEY (workspace_id, stage_id)
    )`,
	`CREATE TABLE IF NOT EXISTS ticket_pipelines (
        workspace_id  TEXT NOT NULL,
        pipeline_id   TEXT NOT NULL,
        name          TEXT NOT NULL,
        creation_time TEXT NOT NULL,
        PRIMARY KEY (workspace_id, pipeline_id)
    )`,
	`CREATE TABLE IF NOT EXISTS ticket_stages (
        workspace_id  TEXT NOT NULL,
        stage_id      TEXT NOT NULL,
        pipeline_id   TEXT NOT NULL,
        name          TEXT NOT NULL,
        display_order INTEGER NOT NULL,
        is_closed     BOOLEAN NOT NULL,
        PRIMARY KEY (workspace_id, stage_id)
    )`,
	`CREATE TABLE IF NOT EXISTS deals (
        workspace_id  TEXT NOT NULL,
        deal_id       TEXT NOT NULL,
        name          TEXT NOT NULL,
        amount        DOUBLE PRECISION,
        currency      TEXT,
        pipeline_id   TEXT NOT NULL,
        stage_id      TEXT NOT NULL,
        status        TEXT NOT NULL,
        creation_time TEXT NOT NULL,
        archived_at   TEXT,
        PRIMARY KEY (workspace_id, deal_id)
    )`,
	`CREATE TABLE IF NOT EXISTS deal_contact_assocs (
        workspace_id TEXT NOT NULL,
        assoc_id     TEXT PRIMARY KEY,
        deal_id      TEXT NOT NULL,
        contact_id   TEXT NOT NULL,
        is_primary   BOOLEAN NOT NULL,
        created_at   TEXT NOT NULL,
        archived_at  TEXT
    )`,
	`CREATE INDEX IF NOT EXISTS idx_deal_assocs_deal
        ON deal_contact_assocs (workspace_id, deal_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS tickets (
        workspace_id  TEXT NOT NULL,
        ticket_id     TEXT NOT NULL,
        name          TEXT NOT NULL,
        priority      TEXT NOT NULL,
        pipeline_id   TEXT NOT NULL,
        stage_id      TEXT NOT NULL,
        status        TEXT NOT NULL,
        creation_time TEXT NOT NULL,
        archived_at   TEXT,
        PRIMARY KEY (workspace_id, ticket_id)
    )`,
	`CREATE TABLE IF NOT EXISTS ticket_contact_assocs (
        workspace_id TEXT NOT NULL,
        assoc_id     TEXT PRIMARY KEY,
        ticket_id    TEXT NOT NULL,
        contact_id   TEXT NOT NULL,
        is_requester BOOLEAN NOT NULL,
        created_at   TEXT NOT NULL,
        archived_at  TEXT
    )`,
	`CREATE INDEX IF NOT EXISTS idx_ticket_assocs_ticket
        ON ticket_contact_assocs (workspace_id, ticket_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS workflows (
        workspace_id  TEXT NOT NULL,
        workflow_id   TEXT NOT NULL,
        name          TEXT NOT NULL,
        trigger_types TEXT,
        enabled       BOOLEAN NOT NULL,
        creation_time TEXT NOT NULL,
        archived_at   TEXT,
        PRIMARY KEY (workspace_id, workflow_id)
    )`,
	`CREATE TABLE IF NOT EXISTS workflow_steps (
        workflow_id TEXT NOT NULL,
        step_id     TEXT PRIMARY KEY,
        step_order  INTEGER NOT NULL,
        action_type TEXT NOT NULL,
        config      TEXT
    )`,
	`CREATE TABLE IF NOT EXISTS workflow_executions (
        execution_id    TEXT PRIMARY KEY,
        workflow_id     TEXT NOT NULL,
        activity_id     TEXT NOT NULL,
        contact_id      TEXT NOT NULL,
        status          TEXT NOT NULL,
        error           TEXT,
        executed_at     TEXT NOT NULL,
        idempotency_key TEXT NOT NULL,
        UNIQUE (workflow_id, activity_id)
    )`,
	`CREATE TABLE IF NOT EXISTS activities (
        workspace_id  TEXT NOT NULL,
        activity_id   TEXT NOT NULL,
        contact_id    TEXT NOT NULL,
        type          TEXT NOT NULL,
        subtype       TEXT NOT NULL,
        actor_user_id TEXT NOT NULL,
        payload       TEXT,
        occurred_at   TEXT NOT NULL,
        created_at    TEXT NOT NULL,
        PRIMARY KEY (workspace_id, activity_id)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_activities_contact
        ON activities (workspace_id, contact_id, occurred_at, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_created
        ON activities (created_at)`,
}

// Bootstrap applies the schema idempotently. It runs on the raw handle, not
// the guarded one, because DDL is outside the mutation policy.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
