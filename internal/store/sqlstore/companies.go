package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/relata/relata/internal/model"
)

type companies struct{ r *runner }

func (c *companies) Create(ctx context.Context, m *model.Company) (*model.Company, error) {
	out := *m
	if out.CompanyID == "" {
		out.CompanyID = uuid.New().String()
	}
	if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	_, err := c.r.exec(ctx, `
        INSERT INTO companies (workspace_id, company_id, name, domain, industry, size_range, website, creation_time, archived_at)
        VALUES (?,?,?,?,?,?,?,?,?)
    `, out.WorkspaceID, out.CompanyID, out.Name, out.Domain, out.Industry, out.SizeRange, out.Website, fmtTime(out.CreationTime), fmtTimePtr(out.ArchivedAt))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *companies) Get(ctx context.Context, workspaceID, companyID string) (*model.Company, error) {
	var m model.Company
	var created string
	var archived sql.NullString
	row := c.r.queryRow(ctx, `
        SELECT workspace_id, company_id, name, domain, industry, size_range, website, creation_time, archived_at
        FROM companies WHERE workspace_id=? AND company_id=?
    `, workspaceID, companyID)
	if err := row.Scan(&m.WorkspaceID, &m.CompanyID, &m.Name, &m.Domain, &m.Industry, &m.SizeRange, &m.Website, &created, &archived); err != nil {
		return nil, orNotFound(err)
	}
	m.CreationTime = parseTime(created)
	m.ArchivedAt = parseTimePtr(archived)
	return &m, nil
}

func (c *companies) Archive(ctx context.Context, workspaceID, companyID string, at time.Time) error {
	res, err := c.r.exec(ctx, `
        UPDATE companies SET archived_at=? WHERE workspace_id=? AND company_id=?
    `, fmtTime(at), workspaceID, companyID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (c *companies) AppendAssociation(ctx context.Context, a *model.ContactCompanyAssociation) (*model.ContactCompanyAssociation, error) {
	out := *a
	if out.AssociationID == "" {
		out.AssociationID = uuid.New().String()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	_, err := c.r.exec(ctx, `
        INSERT INTO contact_company_assocs (workspace_id, assoc_id, contact_id, company_id, created_at, archived_at)
        VALUES (?,?,?,?,?,?)
    `, out.WorkspaceID, out.AssociationID, out.ContactID, out.CompanyID, fmtTime(out.CreatedAt), fmtTimePtr(out.ArchivedAt))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveAssociation returns the latest row for the pair when it is active,
// nil when the pair has no row or the latest row is archived.
func (c *companies) ActiveAssociation(ctx context.Context, workspaceID, contactID, companyID string) (*model.ContactCompanyAssociation, error) {
	row := c.r.queryRow(ctx, `
        SELECT workspace_id, assoc_id, contact_id, company_id, created_at, archived_at
        FROM contact_company_assocs
        WHERE workspace_id=? AND contact_id=? AND company_id=?
        ORDER BY created_at DESC, assoc_id DESC LIMIT 1
    `, workspaceID, contactID, companyID)
	a, err := scanCompanyAssoc(row.Scan)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if a.ArchivedAt != nil {
		return nil, nil
	}
	return a, nil
}

func (c *companies) ActiveAssociationsForContact(ctx context.Context, workspaceID, contactID string) ([]*model.ContactCompanyAssociation, error) {
	// Latest row per company decides; archived latest rows drop out.
	rows, err := c.r.query(ctx, `
        SELECT workspace_id, assoc_id, contact_id, company_id, created_at, archived_at
        FROM contact_company_assocs
        WHERE workspace_id=? AND contact_id=?
        ORDER BY created_at ASC, assoc_id ASC
    `, workspaceID, contactID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	latest := map[string]*model.ContactCompanyAssociation{}
	var order []string
	for rows.Next() {
		a, err := scanCompanyAssoc(rows.Scan)
		if err != nil {
			return nil, err
		}
		if _, seen := latest[a.CompanyID]; !seen {
			order = append(order, a.CompanyID)
		}
		latest[a.CompanyID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var out []*model.ContactCompanyAssociation
	for _, id := range order {
		if a := latest[id]; a.ArchivedAt == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func scanCompanyAssoc(scan func(dest ...interface{}) error) (*model.ContactCompanyAssociation, error) {
	var a model.ContactCompanyAssociation
	var created string
	var archived sql.NullString
	if err := scan(&a.WorkspaceID, &a.AssociationID, &a.ContactID, &a.CompanyID, &created, &archived); err != nil {
		return nil, orNotFound(err)
	}
	a.CreatedAt = parseTime(created)
	a.ArchivedAt = parseTimePtr(archived)
	return &a, nil
}
