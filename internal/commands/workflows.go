package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/store"
)

// WorkflowService owns workflow definitions. Workflows are created disabled
// and must be enabled explicitly before the engine will run them.
type WorkflowService struct {
	store store.Store
	clock clock.Clock
}

func NewWorkflowService(s store.Store, c clock.Clock) *WorkflowService {
	return &WorkflowService{store: s, clock: c}
}

type WorkflowStepInput struct {
	StepOrder  int
	ActionType model.StepAction
	Config     map[string]interface{}
}

type CreateWorkflowRequest struct {
	WorkspaceID  string
	ActorID      string
	Name         string
	TriggerTypes []model.ActivityType
	Steps        []WorkflowStepInput
}

func (s *WorkflowService) Create(ctx context.Context, req CreateWorkflowRequest) (*model.Workflow, error) {
	if err := requireActor(req.ActorID); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: workflow name is required", model.ErrInvalidInput)
	}
	if len(req.TriggerTypes) == 0 {
		return nil, fmt.Errorf("%w: workflow requires at least one trigger type", model.ErrInvalidInput)
	}
	for _, st := range req.Steps {
		switch st.ActionType {
		case model.StepDelay, model.StepCreateTask, model.StepSendNotification, model.StepSetProperty, model.StepAssociateCompany:
		default:
			return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedActionType, st.ActionType)
		}
	}

	steps := make([]*model.WorkflowStep, 0, len(req.Steps))
	for _, st := range req.Steps {
		steps = append(steps, &model.WorkflowStep{
			StepOrder:  st.StepOrder,
			ActionType: st.ActionType,
			Config:     st.Config,
		})
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].StepOrder < steps[j].StepOrder })

	return s.store.Workflows().Create(ctx, &model.Workflow{
		WorkspaceID:  req.WorkspaceID,
		Name:         req.Name,
		TriggerTypes: req.TriggerTypes,
		Enabled:      false,
		CreationTime: s.clock.Now(),
	}, steps)
}

// Enable, Disable, and Archive take the acting user like every other
// command, even though workflow definitions carry no contact timeline.
func (s *WorkflowService) Enable(ctx context.Context, workspaceID, workflowID, actorID string) error {
	if err := requireActor(actorID); err != nil {
		return err
	}
	wf, err := s.store.Workflows().Get(ctx, workspaceID, workflowID)
	if err != nil {
		return err
	}
	if wf.ArchivedAt != nil {
		return fmt.Errorf("%w: workflow %s", model.ErrAlreadyArchived, workflowID)
	}
	return s.store.Workflows().SetEnabled(ctx, workspaceID, workflowID, true)
}

func (s *WorkflowService) Disable(ctx context.Context, workspaceID, workflowID, actorID string) error {
	if err := requireActor(actorID); err != nil {
		return err
	}
	if _, err := s.store.Workflows().Get(ctx, workspaceID, workflowID); err != nil {
		return err
	}
	return s.store.Workflows().SetEnabled(ctx, workspaceID, workflowID, false)
}

func (s *WorkflowService) Archive(ctx context.Context, workspaceID, workflowID, actorID string) error {
	if err := requireActor(actorID); err != nil {
		return err
	}
	wf, err := s.store.Workflows().Get(ctx, workspaceID, workflowID)
	if err != nil {
		return err
	}
	if wf.ArchivedAt != nil {
		return fmt.Errorf("%w: workflow %s", model.ErrAlreadyArchived, workflowID)
	}
	return s.store.Workflows().Archive(ctx, workspaceID, workflowID, s.clock.Now())
}

func (s *WorkflowService) Get(ctx context.Context, workspaceID, workflowID string) (*model.Workflow, error) {
	return s.store.Workflows().Get(ctx, workspaceID, workflowID)
}

func (s *WorkflowService) List(ctx context.Context, workspaceID string) ([]*model.Workflow, error) {
	return s.store.Workflows().List(ctx, workspaceID)
}

func (s *WorkflowService) Steps(ctx context.Context, workflowID string) ([]*model.WorkflowStep, error) {
	return s.store.Workflows().Steps(ctx, workflowID)
}
