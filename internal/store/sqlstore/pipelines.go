package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/relata/relata/internal/model"
)

type pipelines struct{ r *runner }

func (p *pipelines) CreatePipeline(ctx context.Context, m *model.Pipeline) (*model.Pipeline, error) {
	out := *m
	if out.PipelineID == "" {
		out.PipelineID = uuid.New().String()
	}
	if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	_, err := p.r.exec(ctx, `
        INSERT INTO pipelines (workspace_id, pipeline_id, name, creation_time)
        VALUES (?,?,?,?)
    `, out.WorkspaceID, out.PipelineID, out.Name, fmtTime(out.CreationTime))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *pipelines) GetPipeline(ctx context.Context, workspaceID, pipelineID string) (*model.Pipeline, error) {
	var m model.Pipeline
	var created string
	row := p.r.queryRow(ctx, `
        SELECT workspace_id, pipeline_id, name, creation_time
        FROM pipelines WHERE workspace_id=? AND pipeline_id=?
    `, workspaceID, pipelineID)
	if err := row.Scan(&m.WorkspaceID, &m.PipelineID, &m.Name, &created); err != nil {
		return nil, orNotFound(err)
	}
	m.CreationTime = parseTime(created)
	return &m, nil
}

func (p *pipelines) CreateStage(ctx context.Context, s *model.PipelineStage) (*model.PipelineStage, error) {
	out := *s
	if out.StageID == "" {
		out.StageID = uuid.New().String()
	}
	_, err := p.r.exec(ctx, `
        INSERT INTO pipeline_stages (workspace_id, stage_id, pipeline_id, name, display_order, is_closed_won, is_closed_lost)
        VALUES (?,?,?,?,?,?,?)
    `, out.WorkspaceID, out.StageID, out.PipelineID, out.Name, out.DisplayOrder, out.IsClosedWon, out.IsClosedLost)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *pipelines) GetStage(ctx context.Context, workspaceID, stageID string) (*model.PipelineStage, error) {
	var s model.PipelineStage
	row := p.r.queryRow(ctx, `
        SELECT workspace_id, stage_id, pipeline_id, name, display_order, is_closed_won, is_closed_lost
        FROM pipeline_stages WHERE workspace_id=? AND stage_id=?
    `, workspaceID, stageID)
	if err := row.Scan(&s.WorkspaceID, &s.StageID, &s.PipelineID, &s.Name, &s.DisplayOrder, &s.IsClosedWon, &s.IsClosedLost); err != nil {
		return nil, orNotFound(err)
	}
	return &s, nil
}

func (p *pipelines) CreateTicketPipeline(ctx context.Context, m *model.TicketPipeline) (*model.TicketPipeline, error) {
	out := *m
	if out.PipelineID == "" {
		out.PipelineID = uuid.New().String()
	}
	if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	_, err := p.r.exec(ctx, `
        INSERT INTO ticket_pipelines (workspace_id, pipeline_id, name, creation_time)
        VALUES (?,?,?,?)
    `, out.WorkspaceID, out.PipelineID, out.Name, fmtTime(out.CreationTime))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *pipelines) GetTicketPipeline(ctx context.Context, workspaceID, pipelineID string) (*model.TicketPipeline, error) {
	var m model.TicketPipeline
	var created string
	row := p.r.queryRow(ctx, `
        SELECT workspace_id, pipeline_id, name, creation_time
        FROM ticket_pipelines WHERE workspace_id=? AND pipeline_id=?
    `, workspaceID, pipelineID)
	if err := row.Scan(&m.WorkspaceID, &m.PipelineID, &m.Name, &created); err != nil {
		return nil, orNotFound(err)
	}
	m.CreationTime = parseTime(created)
	return &m, nil
}

func (p *pipelines) CreateTicketStage(ctx context.Context, s *model.TicketStage) (*model.TicketStage, error) {
	out := *s
	if out.StageID == "" {
		out.StageID = uuid.New().String()
	}
	_, err := p.r.exec(ctx, `
        INSERT INTO ticket_stages (workspace_id, stage_id, pipeline_id, name, display_order, is_closed)
        VALUES (?,?,?,?,?,?)
    `, out.WorkspaceID, out.StageID, out.PipelineID, out.Name, out.DisplayOrder, out.IsClosed)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *pipelines) GetTicketStage(ctx context.Context, workspaceID, stageID string) (*model.TicketStage, error) {
	var s model.TicketStage
	row := p.r.queryRow(ctx, `
        SELECT workspace_id, stage_id, pipeline_id, name, display_order, is_closed
        FROM ticket_stages WHERE workspace_id=? AND stage_id=?
    `, workspaceID, stageID)
	if err := row.Scan(&s.WorkspaceID, &s.StageID, &s.PipelineID, &s.Name, &s.DisplayOrder, &s.IsClosed); err != nil {
		return nil, orNotFound(err)
	}
	return &s, nil
}
