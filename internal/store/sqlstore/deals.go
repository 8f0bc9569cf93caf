package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/relata/relata/internal/model"
)

type deals struct{ r *runner }

func (d *deals) Create(ctx context.Context, m *model.Deal) (*model.Deal, error) {
	out := *m
	if out.DealID == "" {
		out.DealID = uuid.New().String()
	}
	if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	_, err := d.r.exec(ctx, `
        INSERT INTO deals (workspace_id, deal_id, name, amount, currency, pipeline_id, stage_id, status, creation_time, archived_at)
        VALUES (?,?,?,?,?,?,?,?,?,?)
    `, out.WorkspaceID, out.DealID, out.Name, out.Amount, out.Currency, out.PipelineID, out.StageID, string(out.Status), fmtTime(out.CreationTime), fmtTimePtr(out.ArchivedAt))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *deals) Get(ctx context.Context, workspaceID, dealID string) (*model.Deal, error) {
	var m model.Deal
	var status, created string
	var archived sql.NullString
	row := d.r.queryRow(ctx, `
        SELECT workspace_id, deal_id, name, amount, currency, pipeline_id, stage_id, status, creation_time, archived_at
        FROM deals WHERE workspace_id=? AND deal_id=?
    `, workspaceID, dealID)
	if err := row.Scan(&m.WorkspaceID, &m.DealID, &m.Name, &m.Amount, &m.Currency, &m.PipelineID, &m.StageID, &status, &created, &archived); err != nil {
		return nil, orNotFound(err)
	}
	m.Status = model.DealStatus(status)
	m.CreationTime = parseTime(created)
	m.ArchivedAt = parseTimePtr(archived)
	return &m, nil
}

func (d *deals) UpdateStage(ctx context.Context, workspaceID, dealID, stageID string, status model.DealStatus) error {
	res, err := d.r.exec(ctx, `
        UPDATE deals SET stage_id=?, status=? WHERE workspace_id=? AND deal_id=?
    `, stageID, string(status), workspaceID, dealID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (d *deals) Archive(ctx context.Context, workspaceID, dealID string, at time.Time) error {
	res, err := d.r.exec(ctx, `
        UPDATE deals SET archived_at=? WHERE workspace_id=? AND deal_id=?
    `, fmtTime(at), workspaceID, dealID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (d *deals) AppendAssociation(ctx context.Context, a *model.DealContactAssociation) (*model.DealContactAssociation, error) {
	out := *a
	if out.AssociationID == "" {
		out.AssociationID = uuid.New().String()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	_, err := d.r.exec(ctx, `
        INSERT INTO deal_contact_assocs (workspace_id, assoc_id, deal_id, contact_id, is_primary, created_at, archived_at)
        VALUES (?,?,?,?,?,?,?)
    `, out.WorkspaceID, out.AssociationID, out.DealID, out.ContactID, out.IsPrimary, fmtTime(out.CreatedAt), fmtTimePtr(out.ArchivedAt))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *deals) ActiveAssociations(ctx context.Context, workspaceID, dealID string) ([]*model.DealContactAssociation, error) {
	rows, err := d.r.query(ctx, `
        SELECT workspace_id, assoc_id, deal_id, contact_id, is_primary, created_at, archived_at
        FROM deal_contact_assocs
        WHERE workspace_id=? AND deal_id=?
        ORDER BY created_at ASC, assoc_id ASC
    `, workspaceID, dealID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return reduceDealAssocs(rows)
}

func (d *deals) ActiveAssociation(ctx context.Context, workspaceID, dealID, contactID string) (*model.DealContactAssociation, error) {
	row := d.r.queryRow(ctx, `
        SELECT workspace_id, assoc_id, deal_id, contact_id, is_primary, created_at, archived_at
        FROM deal_contact_assocs
        WHERE workspace_id=? AND deal_id=? AND contact_id=?
        ORDER BY created_at DESC, assoc_id DESC LIMIT 1
    `, workspaceID, dealID, contactID)
	a, err := scanDealAssoc(row.Scan)
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

func (d *deals) ActivePrimary(ctx context.Context, workspaceID, dealID string) (*model.DealContactAssociation, error) {
	active, err := d.ActiveAssociations(ctx, workspaceID, dealID)
	if err != nil {
		return nil, err
	}
	for _, a := range active {
		if a.IsPrimary {
			return a, nil
		}
	}
	return nil, nil
}

// reduceDealAssocs keeps the latest row per contact and drops archived pairs.
func reduceDealAssocs(rows *sql.Rows) ([]*model.DealContactAssociation, error) {
	latest := map[string]*model.DealContactAssociation{}
	var order []string
	for rows.Next() {
		a, err := scanDealAssoc(rows.Scan)
		if err != nil {
			return nil, err
		}
		if _, seen := latest[a.ContactID]; !seen {
			order = append(order, a.ContactID)
		}
		latest[a.ContactID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var out []*model.DealContactAssociation
	for _, id := range order {
		if a := latest[id]; a.ArchivedAt == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func scanDealAssoc(scan func(dest ...interface{}) error) (*model.DealContactAssociation, error) {
	var a model.DealContactAssociation
	var created string
	var archived sql.NullString
	if err := scan(&a.WorkspaceID, &a.AssociationID, &a.DealID, &a.ContactID, &a.IsPrimary, &created, &archived); err != nil {
		return nil, orNotFound(err)
	}
	a.CreatedAt = parseTime(created)
	a.ArchivedAt = parseTimePtr(archived)
	return &a, nil
}
