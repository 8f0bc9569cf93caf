package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/relata/relata/internal/model"
)

type activities struct{ r *runner }

func (a *activities) Append(ctx context.Context, m *model.Activity) (*model.Activity, error) {
	out := *m
	if out.ActivityID == "" {
		out.ActivityID = uuid.New().String()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = out.CreatedAt
	}
	_, err := a.r.exec(ctx, `
        INSERT INTO activities (workspace_id, activity_id, contact_id, type, subtype, actor_user_id, payload, occurred_at, created_at)
        VALUES (?,?,?,?,?,?,?,?,?)
    `, out.WorkspaceID, out.ActivityID, out.ContactID, string(out.Type), string(out.Subtype), out.ActorUserID,
		marshalJSON(out.Payload), fmtTime(out.OccurredAt), fmtTime(out.CreatedAt))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *activities) Get(ctx context.Context, workspaceID, activityID string) (*model.Activity, error) {
	row := a.r.queryRow(ctx, `
        SELECT workspace_id, activity_id, contact_id, type, subtype, actor_user_id, payload, occurred_at, created_at
        FROM activities WHERE workspace_id=? AND activity_id=?
    `, workspaceID, activityID)
	return scanActivity(row.Scan)
}

// List pages a contact's timeline newest-first. The cursor is the id of the
// last row of the previous page; its (occurred_at, created_at, id) tuple
// anchors the next page so rows sharing a timestamp are never skipped.
func (a *activities) List(ctx context.Context, req model.ListActivitiesRequest) ([]*model.Activity, error) {
	args := []interface{}{req.WorkspaceID, req.ContactID}
	where := "workspace_id=? AND contact_id=?"
	if req.Cursor != "" {
		anchor, err := a.Get(ctx, req.WorkspaceID, req.Cursor)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown cursor", model.ErrInvalidInput)
			}
			return nil, err
		}
		where += " AND (occurred_at, created_at, activity_id) < (?,?,?)"
		args = append(args, fmtTime(anchor.OccurredAt), fmtTime(anchor.CreatedAt), anchor.ActivityID)
	}
	args = append(args, req.Limit)
	rows, err := a.r.query(ctx, `
        SELECT workspace_id, activity_id, contact_id, type, subtype, actor_user_id, payload, occurred_at, created_at
        FROM activities WHERE `+where+`
        ORDER BY occurred_at DESC, created_at DESC, activity_id DESC
        LIMIT ?
    `, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectActivities(rows)
}

// Batch reads rows strictly after the (After, AfterID) watermark pair, oldest
// first, across all workspaces. The row-value comparison matches the batch
// order, so rows sharing one created_at instant are never skipped when a
// batch boundary falls between them. Filtering by type happens in SQL so
// quiet trigger sets do not pay for busy ledgers.
func (a *activities) Batch(ctx context.Context, req model.ActivityBatchRequest) ([]*model.Activity, error) {
	if len(req.TriggerTypes) == 0 {
		return nil, nil
	}
	args := []interface{}{fmtTime(req.After), req.AfterID}
	marks := make([]string, 0, len(req.TriggerTypes))
	for _, t := range req.TriggerTypes {
		marks = append(marks, "?")
		args = append(args, string(t))
	}
	args = append(args, req.Limit)
	rows, err := a.r.query(ctx, `
        SELECT workspace_id, activity_id, contact_id, type, subtype, actor_user_id, payload, occurred_at, created_at
        FROM activities
        WHERE (created_at, activity_id) > (?,?) AND type IN (`+strings.Join(marks, ",")+`)
        ORDER BY created_at ASC, activity_id ASC
        LIMIT ?
    `, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectActivities(rows)
}

func collectActivities(rows *sql.Rows) ([]*model.Activity, error) {
	var out []*model.Activity
	for rows.Next() {
		m, err := scanActivity(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanActivity(scan func(dest ...interface{}) error) (*model.Activity, error) {
	var m model.Activity
	var typ, subtype, occurred, created string
	var payload sql.NullString
	if err := scan(&m.WorkspaceID, &m.ActivityID, &m.ContactID, &typ, &subtype, &m.ActorUserID, &payload, &occurred, &created); err != nil {
		return nil, orNotFound(err)
	}
	m.Type = model.ActivityType(typ)
	m.Subtype = model.ActivitySubtype(subtype)
	m.Payload = unmarshalMap(payload)
	m.OccurredAt = parseTime(occurred)
	m.CreatedAt = parseTime(created)
	return &m, nil
}

type executions struct{ r *runner }

func (e *executions) Create(ctx context.Context, m *model.WorkflowExecution) (*model.WorkflowExecution, error) {
	out := *m
	if out.ExecutionID == "" {
		out.ExecutionID = uuid.New().String()
	}
	if out.ExecutedAt.IsZero() {
		out.ExecutedAt = time.Now().UTC()
	}
	if out.IdempotencyKey == "" {
		out.IdempotencyKey = out.WorkflowID + ":" + out.ActivityID
	}
	_, err := e.r.exec(ctx, `
        INSERT INTO workflow_executions (execution_id, workflow_id, activity_id, contact_id, status, error, executed_at, idempotency_key)
        VALUES (?,?,?,?,?,?,?,?)
    `, out.ExecutionID, out.WorkflowID, out.ActivityID, out.ContactID, string(out.Status), out.Error, fmtTime(out.ExecutedAt), out.IdempotencyKey)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrDuplicateExecution
		}
		return nil, err
	}
	return &out, nil
}

func (e *executions) Get(ctx context.Context, workflowID, activityID string) (*model.WorkflowExecution, error) {
	var m model.WorkflowExecution
	var status, executed string
	var errMsg sql.NullString
	row := e.r.queryRow(ctx, `
        SELECT execution_id, workflow_id, activity_id, contact_id, status, error, executed_at, idempotency_key
        FROM workflow_executions WHERE workflow_id=? AND activity_id=?
    `, workflowID, activityID)
	if err := row.Scan(&m.ExecutionID, &m.WorkflowID, &m.ActivityID, &m.ContactID, &status, &errMsg, &executed, &m.IdempotencyKey); err != nil {
		if errors.Is(orNotFound(err), model.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	m.Status = model.ExecutionStatus(status)
	if errMsg.Valid {
		s := errMsg.String
		m.Error = &s
	}
	m.ExecutedAt = parseTime(executed)
	return &m, nil
}
