package commands

import (
	"context"
	"fmt"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/store"
)

// PipelineService covers the setup surface: pipelines and their stages, for
// both deals and tickets. Definitions are archive-only; there is no delete.
type PipelineService struct {
	store store.Store
	clock clock.Clock
}

func NewPipelineService(s store.Store, c clock.Clock) *PipelineService {
	return &PipelineService{store: s, clock: c}
}

func (s *PipelineService) CreatePipeline(ctx context.Context, workspaceID, name, actorID string) (*model.Pipeline, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: pipeline name is required", model.ErrInvalidInput)
	}
	return s.store.Pipelines().CreatePipeline(ctx, &model.Pipeline{
		WorkspaceID:  workspaceID,
		Name:         name,
		CreationTime: s.clock.Now(),
	})
}

func (s *PipelineService) CreateStage(ctx context.Context, stage *model.PipelineStage, actorID string) (*model.PipelineStage, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	if stage.IsClosedWon && stage.IsClosedLost {
		return nil, fmt.Errorf("%w: a stage cannot be both closed-won and closed-lost", model.ErrInvalidInput)
	}
	if _, err := s.store.Pipelines().GetPipeline(ctx, stage.WorkspaceID, stage.PipelineID); err != nil {
		return nil, err
	}
	return s.store.Pipelines().CreateStage(ctx, stage)
}

func (s *PipelineService) CreateTicketPipeline(ctx context.Context, workspaceID, name, actorID string) (*model.TicketPipeline, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: pipeline name is required", model.ErrInvalidInput)
	}
	return s.store.Pipelines().CreateTicketPipeline(ctx, &model.TicketPipeline{
		WorkspaceID:  workspaceID,
		Name:         name,
		CreationTime: s.clock.Now(),
	})
}

func (s *PipelineService) CreateTicketStage(ctx context.Context, stage *model.TicketStage, actorID string) (*model.TicketStage, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	if _, err := s.store.Pipelines().GetTicketPipeline(ctx, stage.WorkspaceID, stage.PipelineID); err != nil {
		return nil, err
	}
	return s.store.Pipelines().CreateTicketStage(ctx, stage)
}
