package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/relata/relata/internal/model"
)

// --- Workspaces ---

type workspaces struct{ r *runner }

func (w *workspaces) Create(ctx context.Context, m *model.Workspace) (*model.Workspace, error) {
	out := *m
	if out.WorkspaceID == "" {
		out.WorkspaceID = uuid.New().String()
	}
	if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	_, err := w.r.exec(ctx, `
        INSERT INTO workspaces (workspace_id, name, creation_time)
        VALUES (?,?,?)
    `, out.WorkspaceID, out.Name, fmtTime(out.CreationTime))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (w *workspaces) Get(ctx context.Context, workspaceID string) (*model.Workspace, error) {
	var out model.Workspace
	var created string
	row := w.r.queryRow(ctx, `
        SELECT workspace_id, name, creation_time FROM workspaces WHERE workspace_id=?
    `, workspaceID)
	if err := row.Scan(&out.WorkspaceID, &out.Name, &created); err != nil {
		return nil, orNotFound(err)
	}
	out.CreationTime = parseTime(created)
	return &out, nil
}

// --- Contacts ---

type contacts struct{ r *runner }

func (c *contacts) Create(ctx context.Context, m *model.Contact) (*model.Contact, error) {
	out := *m
	if out.ContactID == "" {
		out.ContactID = uuid.New().String()
	}
	if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	_, err := c.r.exec(ctx, `
        INSERT INTO contacts (workspace_id, contact_id, email, first_name, last_name, creation_time, archived_at)
        VALUES (?,?,?,?,?,?,?)
    `, out.WorkspaceID, out.ContactID, out.Email, out.FirstName, out.LastName, fmtTime(out.CreationTime), fmtTimePtr(out.ArchivedAt))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *contacts) Get(ctx context.Context, workspaceID, contactID string) (*model.Contact, error) {
	row := c.r.queryRow(ctx, `
        SELECT workspace_id, contact_id, email, first_name, last_name, creation_time, archived_at
        FROM contacts WHERE workspace_id=? AND contact_id=?
    `, workspaceID, contactID)
	return scanContact(row.Scan)
}

func (c *contacts) List(ctx context.Context, workspaceID string) ([]*model.Contact, error) {
	rows, err := c.r.query(ctx, `
        SELECT workspace_id, contact_id, email, first_name, last_name, creation_time, archived_at
        FROM contacts WHERE workspace_id=? ORDER BY creation_time DESC
    `, workspaceID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Contact
	for rows.Next() {
		m, err := scanContact(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (c *contacts) UpdateFields(ctx context.Context, m *model.Contact) (*model.Contact, error) {
	res, err := c.r.exec(ctx, `
        UPDATE contacts SET email=?, first_name=?, last_name=?
        WHERE workspace_id=? AND contact_id=?
    `, m.Email, m.FirstName, m.LastName, m.WorkspaceID, m.ContactID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return c.Get(ctx, m.WorkspaceID, m.ContactID)
}

func (c *contacts) Archive(ctx context.Context, workspaceID, contactID string, at time.Time) error {
	res, err := c.r.exec(ctx, `
        UPDATE contacts SET archived_at=? WHERE workspace_id=? AND contact_id=?
    `, fmtTime(at), workspaceID, contactID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanContact(scan func(dest ...interface{}) error) (*model.Contact, error) {
	var m model.Contact
	var created string
	var archived sql.NullString
	if err := scan(&m.WorkspaceID, &m.ContactID, &m.Email, &m.FirstName, &m.LastName, &created, &archived); err != nil {
		return nil, orNotFound(err)
	}
	m.CreationTime = parseTime(created)
	m.ArchivedAt = parseTimePtr(archived)
	return &m, nil
}
