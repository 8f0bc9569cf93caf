package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/relata/relata/internal/model"
)

type tickets struct{ r *runner }

func (t *tickets) Create(ctx context.Context, m *model.Ticket) (*model.Ticket, error) {
	out := *m
	if out.TicketID == "" {
		out.TicketID = uuid.New().String()
	}
	if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	_, err := t.r.exec(ctx, `
        INSERT INTO tickets (workspace_id, ticket_id, name, priority, pipeline_id, stage_id, status, creation_time, archived_at)
        VALUES (?,?,?,?,?,?,?,?,?)
    `, out.WorkspaceID, out.TicketID, out.Name, string(out.Priority), out.PipelineID, out.StageID, string(out.Status), fmtTime(out.CreationTime), fmtTimePtr(out.ArchivedAt))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *tickets) Get(ctx context.Context, workspaceID, ticketID string) (*model.Ticket, error) {
	var m model.Ticket
	var priority, status, created string
	var archived sql.NullString
	row := t.r.queryRow(ctx, `
        SELECT workspace_id, ticket_id, name, priority, pipeline_id, stage_id, status, creation_time, archived_at
        FROM tickets WHERE workspace_id=? AND ticket_id=?
    `, workspaceID, ticketID)
	if err := row.Scan(&m.WorkspaceID, &m.TicketID, &m.Name, &priority, &m.PipelineID, &m.StageID, &status, &created, &archived); err != nil {
		return nil, orNotFound(err)
	}
	m.Priority = model.TicketPriority(priority)
	m.Status = model.TicketStatus(status)
	m.CreationTime = parseTime(created)
	m.ArchivedAt = parseTimePtr(archived)
	return &m, nil
}

func (t *tickets) UpdateStage(ctx context.Context, workspaceID, ticketID, stageID string, status model.TicketStatus) error {
	res, err := t.r.exec(ctx, `
        UPDATE tickets SET stage_id=?, status=? WHERE workspace_id=? AND ticket_id=?
    `, stageID, string(status), workspaceID, ticketID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *tickets) Archive(ctx context.Context, workspaceID, ticketID string, at time.Time) error {
	res, err := t.r.exec(ctx, `
        UPDATE tickets SET archived_at=? WHERE workspace_id=? AND ticket_id=?
    `, fmtTime(at), workspaceID, ticketID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *tickets) AppendAssociation(ctx context.Context, a *model.TicketContactAssociation) (*model.TicketContactAssociation, error) {
	out := *a
	if out.AssociationID == "" {
		out.AssociationID = uuid.New().String()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	_, err := t.r.exec(ctx, `
        INSERT INTO ticket_contact_assocs (workspace_id, assoc_id, ticket_id, contact_id, is_requester, created_at, archived_at)
        VALUES (?,?,?,?,?,?,?)
    `, out.WorkspaceID, out.AssociationID, out.TicketID, out.ContactID, out.IsRequester, fmtTime(out.CreatedAt), fmtTimePtr(out.ArchivedAt))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *tickets) ActiveAssociations(ctx context.Context, workspaceID, ticketID string) ([]*model.TicketContactAssociation, error) {
	rows, err := t.r.query(ctx, `
        SELECT workspace_id, assoc_id, ticket_id, contact_id, is_requester, created_at, archived_at
        FROM ticket_contact_assocs
        WHERE workspace_id=? AND ticket_id=?
        ORDER BY created_at ASC, assoc_id ASC
    `, workspaceID, ticketID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	latest := map[string]*model.TicketContactAssociation{}
	var order []string
	for rows.Next() {
		a, err := scanTicketAssoc(rows.Scan)
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
	var out []*model.TicketContactAssociation
	for _, id := range order {
		if a := latest[id]; a.ArchivedAt == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *tickets) ActiveAssociation(ctx context.Context, workspaceID, ticketID, contactID string) (*model.TicketContactAssociation, error) {
	row := t.r.queryRow(ctx, `
        SELECT workspace_id, assoc_id, ticket_id, contact_id, is_requester, created_at, archived_at
        FROM ticket_contact_assocs
        WHERE workspace_id=? AND ticket_id=? AND contact_id=?
        ORDER BY created_at DESC, assoc_id DESC LIMIT 1
    `, workspaceID, ticketID, contactID)
	a, err := scanTicketAssoc(row.Scan)
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

func (t *tickets) ActiveRequester(ctx context.Context, workspaceID, ticketID string) (*model.TicketContactAssociation, error) {
	active, err := t.ActiveAssociations(ctx, workspaceID, ticketID)
	if err != nil {
		return nil, err
	}
	for _, a := range active {
		if a.IsRequester {
			return a, nil
		}
	}
	return nil, nil
}

func scanTicketAssoc(scan func(dest ...interface{}) error) (*model.TicketContactAssociation, error) {
	var a model.TicketContactAssociation
	var created string
	var archived sql.NullString
	if err := scan(&a.WorkspaceID, &a.AssociationID, &a.TicketID, &a.ContactID, &a.IsRequester, &created, &archived); err != nil {
		return nil, orNotFound(err)
	}
	a.CreatedAt = parseTime(created)
	a.ArchivedAt = parseTimePtr(archived)
	return &a, nil
}
