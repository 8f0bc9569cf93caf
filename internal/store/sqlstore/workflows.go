package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/relata/relata/internal/model"
)

type workflows struct{ r *runner }

func (w *workflows) Create(ctx context.Context, m *model.Workflow, steps []*model.WorkflowStep) (*model.Workflow, error) {
	out := *m
	if out.WorkflowID == "" {
		out.WorkflowID = uuid.New().String()
	}
	if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	_, err := w.r.exec(ctx, `
        INSERT INTO workflows (workspace_id, workflow_id, name, trigger_types, enabled, creation_time, archived_at)
        VALUES (?,?,?,?,?,?,?)
    `, out.WorkspaceID, out.WorkflowID, out.Name, marshalJSON(out.TriggerTypes), out.Enabled, fmtTime(out.CreationTime), fmtTimePtr(out.ArchivedAt))
	if err != nil {
		return nil, err
	}
	for _, s := range steps {
		stepID := s.StepID
		if stepID == "" {
			stepID = uuid.New().String()
		}
		if _, err := w.r.exec(ctx, `
            INSERT INTO workflow_steps (workflow_id, step_id, step_order, action_type, config)
            VALUES (?,?,?,?,?)
        `, out.WorkflowID, stepID, s.StepOrder, string(s.ActionType), marshalJSON(s.Config)); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func (w *workflows) Get(ctx context.Context, workspaceID, workflowID string) (*model.Workflow, error) {
	row := w.r.queryRow(ctx, `
        SELECT workspace_id, workflow_id, name, trigger_types, enabled, creation_time, archived_at
        FROM workflows WHERE workspace_id=? AND workflow_id=?
    `, workspaceID, workflowID)
	return scanWorkflow(row.Scan)
}

func (w *workflows) List(ctx context.Context, workspaceID string) ([]*model.Workflow, error) {
	rows, err := w.r.query(ctx, `
        SELECT workspace_id, workflow_id, name, trigger_types, enabled, creation_time, archived_at
        FROM workflows WHERE workspace_id=? ORDER BY creation_time ASC, workflow_id ASC
    `, workspaceID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Workflow
	for rows.Next() {
		m, err := scanWorkflow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MatchByTrigger filters in Go; trigger sets are small JSON arrays and the
// per-workspace workflow count is low.
func (w *workflows) MatchByTrigger(ctx context.Context, workspaceID string, t model.ActivityType) ([]*model.Workflow, error) {
	all, err := w.List(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	var out []*model.Workflow
	for _, m := range all {
		if !m.Enabled || m.ArchivedAt != nil {
			continue
		}
		for _, tt := range m.TriggerTypes {
			if tt == t {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (w *workflows) SetEnabled(ctx context.Context, workspaceID, workflowID string, enabled bool) error {
	res, err := w.r.exec(ctx, `
        UPDATE workflows SET enabled=? WHERE workspace_id=? AND workflow_id=?
    `, enabled, workspaceID, workflowID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (w *workflows) Archive(ctx context.Context, workspaceID, workflowID string, at time.Time) error {
	res, err := w.r.exec(ctx, `
        UPDATE workflows SET archived_at=? WHERE workspace_id=? AND workflow_id=?
    `, fmtTime(at), workspaceID, workflowID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (w *workflows) Steps(ctx context.Context, workflowID string) ([]*model.WorkflowStep, error) {
	rows, err := w.r.query(ctx, `
        SELECT workflow_id, step_id, step_order, action_type, config
        FROM workflow_steps WHERE workflow_id=? ORDER BY step_order ASC
    `, workflowID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.WorkflowStep
	for rows.Next() {
		var s model.WorkflowStep
		var action string
		var config sql.NullString
		if err := rows.Scan(&s.WorkflowID, &s.StepID, &s.StepOrder, &action, &config); err != nil {
			return nil, err
		}
		s.ActionType = model.StepAction(action)
		s.Config = unmarshalMap(config)
		out = append(out, &s)
	}
	return out, rows.Err()
}

func scanWorkflow(scan func(dest ...interface{}) error) (*model.Workflow, error) {
	var m model.Workflow
	var triggers sql.NullString
	var created string
	var archived sql.NullString
	if err := scan(&m.WorkspaceID, &m.WorkflowID, &m.Name, &triggers, &m.Enabled, &created, &archived); err != nil {
		return nil, orNotFound(err)
	}
	if triggers.Valid && triggers.String != "" {
		_ = json.Unmarshal([]byte(triggers.String), &m.TriggerTypes)
	}
	m.CreationTime = parseTime(created)
	m.ArchivedAt = parseTimePtr(archived)
	return &m, nil
}
