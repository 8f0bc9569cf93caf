package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/store"
)

// TicketService mirrors DealService with a requester role in place of the
// primary, and closed/reopened transition events computed from the status
// edge, not the new state alone.
type TicketService struct {
	store store.Store
	clock clock.Clock
}

func NewTicketService(s store.Store, c clock.Clock) *TicketService {
	return &TicketService{store: s, clock: c}
}

type CreateTicketRequest struct {
	WorkspaceID        string
	ActorID            string
	RequesterContactID string
	Name               string
	Priority           model.TicketPriority
	PipelineID         string
	StageID            string
	OccurredAt         *time.Time
}

func (s *TicketService) Create(ctx context.Context, req CreateTicketRequest) (*model.Ticket, []*model.Activity, error) {
	if err := requireActor(req.ActorID); err != nil {
		return nil, nil, err
	}
	if req.Name == "" {
		return nil, nil, fmt.Errorf("%w: ticket name is required", model.ErrInvalidInput)
	}
	if !model.ValidPriority(req.Priority) {
		return nil, nil, fmt.Errorf("%w: unknown priority %q", model.ErrInvalidInput, req.Priority)
	}
	created := s.clock.Now()
	occurred := occurredOr(req.OccurredAt, created)

	var out *model.Ticket
	var acts []*model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := activeContact(ctx, tx, req.WorkspaceID, req.RequesterContactID); err != nil {
			return err
		}
		if _, err := tx.Pipelines().GetTicketPipeline(ctx, req.WorkspaceID, req.PipelineID); err != nil {
			return err
		}
		stage, err := tx.Pipelines().GetTicketStage(ctx, req.WorkspaceID, req.StageID)
		if err != nil {
			return err
		}
		if stage.PipelineID != req.PipelineID {
			return fmt.Errorf("%w: stage %s does not belong to pipeline %s", model.ErrInvalidInput, req.StageID, req.PipelineID)
		}
		status := model.DeriveTicketStatus(stage)
		tk, err := tx.Tickets().Create(ctx, &model.Ticket{
			WorkspaceID:  req.WorkspaceID,
			Name:         req.Name,
			Priority:     req.Priority,
			PipelineID:   req.PipelineID,
			StageID:      req.StageID,
			Status:       status,
			CreationTime: created,
		})
		if err != nil {
			return err
		}
		if _, err := tx.Tickets().AppendAssociation(ctx, &model.TicketContactAssociation{
			WorkspaceID: req.WorkspaceID,
			TicketID:    tk.TicketID,
			ContactID:   req.RequesterContactID,
			IsRequester: true,
			CreatedAt:   created,
		}); err != nil {
			return err
		}
		a, err := tx.Activities().Append(ctx, newActivity(
			req.WorkspaceID, req.RequesterContactID, model.ActivityTicketCreated, req.ActorID,
			map[string]interface{}{"ticketId": tk.TicketID, "name": tk.Name, "priority": string(tk.Priority), "status": string(status)},
			occurred, created))
		if err != nil {
			return err
		}
		acts = append(acts, a)
		if status == model.TicketClosed {
			a, err := tx.Activities().Append(ctx, newActivity(
				req.WorkspaceID, req.RequesterContactID, model.ActivityTicketClosed, req.ActorID,
				map[string]interface{}{"ticketId": tk.TicketID}, occurred, created))
			if err != nil {
				return err
			}
			acts = append(acts, a)
		}
		out = tk
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, acts, nil
}

func (s *TicketService) ChangeStage(ctx context.Context, workspaceID, ticketID, stageID, actorID string) (*model.Ticket, []*model.Activity, error) {
	if err := requireActor(actorID); err != nil {
		return nil, nil, err
	}
	created := s.clock.Now()

	var out *model.Ticket
	var acts []*model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		tk, err := tx.Tickets().Get(ctx, workspaceID, ticketID)
		if err != nil {
			return err
		}
		if tk.ArchivedAt != nil {
			return fmt.Errorf("%w: ticket %s", model.ErrAlreadyArchived, ticketID)
		}
		stage, err := tx.Pipelines().GetTicketStage(ctx, workspaceID, stageID)
		if err != nil {
			return err
		}
		if stage.PipelineID != tk.PipelineID {
			return fmt.Errorf("%w: stage %s does not belong to pipeline %s", model.ErrInvalidInput, stageID, tk.PipelineID)
		}
		requester, err := tx.Tickets().ActiveRequester(ctx, workspaceID, ticketID)
		if err != nil {
			return err
		}
		if requester == nil {
			return fmt.Errorf("%w: ticket %s has no active requester", model.ErrNoActiveAssociation, ticketID)
		}
		oldStatus := tk.Status
		newStatus := model.DeriveTicketStatus(stage)
		if err := tx.Tickets().UpdateStage(ctx, workspaceID, ticketID, stageID, newStatus); err != nil {
			return err
		}
		a, err := tx.Activities().Append(ctx, newActivity(
			workspaceID, requester.ContactID, model.ActivityTicketStageChanged, actorID,
			map[string]interface{}{"ticketId": ticketID, "fromStageId": tk.StageID, "toStageId": stageID, "status": string(newStatus)},
			created, created))
		if err != nil {
			return err
		}
		acts = append(acts, a)
		// Transition events come from the status edge, not the new state.
		if edge := ticketEdgeType(oldStatus, newStatus); edge != "" {
			a, err := tx.Activities().Append(ctx, newActivity(
				workspaceID, requester.ContactID, edge, actorID,
				map[string]interface{}{"ticketId": ticketID}, created, created))
			if err != nil {
				return err
			}
			acts = append(acts, a)
		}
		tk.StageID = stageID
		tk.Status = newStatus
		out = tk
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, acts, nil
}

func (s *TicketService) Archive(ctx context.Context, workspaceID, ticketID, actorID string) (*model.Activity, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	created := s.clock.Now()

	var act *model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		tk, err := tx.Tickets().Get(ctx, workspaceID, ticketID)
		if err != nil {
			return err
		}
		if tk.ArchivedAt != nil {
			return fmt.Errorf("%w: ticket %s", model.ErrAlreadyArchived, ticketID)
		}
		requester, err := tx.Tickets().ActiveRequester(ctx, workspaceID, ticketID)
		if err != nil {
			return err
		}
		if requester == nil {
			return fmt.Errorf("%w: ticket %s has no active requester", model.ErrNoActiveAssociation, ticketID)
		}
		if err := tx.Tickets().Archive(ctx, workspaceID, ticketID, created); err != nil {
			return err
		}
		a, err := tx.Activities().Append(ctx, newActivity(
			workspaceID, requester.ContactID, model.ActivityTicketArchived, actorID,
			map[string]interface{}{"ticketId": ticketID}, created, created))
		if err != nil {
			return err
		}
		act = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return act, nil
}

func (s *TicketService) Associate(ctx context.Context, workspaceID, ticketID, contactID, actorID string) ([]*model.Activity, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	created := s.clock.Now()

	var acts []*model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		tk, err := tx.Tickets().Get(ctx, workspaceID, ticketID)
		if err != nil {
			return err
		}
		if tk.ArchivedAt != nil {
			return fmt.Errorf("%w: ticket %s", model.ErrAlreadyArchived, ticketID)
		}
		if _, err := activeContact(ctx, tx, workspaceID, contactID); err != nil {
			return err
		}
		requester, err := tx.Tickets().ActiveRequester(ctx, workspaceID, ticketID)
		if err != nil {
			return err
		}
		if requester == nil {
			return fmt.Errorf("%w: ticket %s has no active requester", model.ErrNoActiveAssociation, ticketID)
		}
		existing, err := tx.Tickets().ActiveAssociation(ctx, workspaceID, ticketID, contactID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: contact %s and ticket %s", model.ErrAlreadyAssociated, contactID, ticketID)
		}
		if _, err := tx.Tickets().AppendAssociation(ctx, &model.TicketContactAssociation{
			WorkspaceID: workspaceID,
			TicketID:    ticketID,
			ContactID:   contactID,
			CreatedAt:   created,
		}); err != nil {
			return err
		}
		payload := map[string]interface{}{"ticketId": ticketID, "contactId": contactID}
		acts, err = emitToBoth(ctx, tx, workspaceID, requester.ContactID, contactID,
			model.ActivityAssociationAdded, actorID, payload, created)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acts, nil
}

func (s *TicketService) Disassociate(ctx context.Context, workspaceID, ticketID, contactID, actorID string) ([]*model.Activity, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	created := s.clock.Now()

	var acts []*model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		tk, err := tx.Tickets().Get(ctx, workspaceID, ticketID)
		if err != nil {
			return err
		}
		if tk.ArchivedAt != nil {
			return fmt.Errorf("%w: ticket %s", model.ErrAlreadyArchived, ticketID)
		}
		requester, err := tx.Tickets().ActiveRequester(ctx, workspaceID, ticketID)
		if err != nil {
			return err
		}
		if requester == nil {
			return fmt.Errorf("%w: ticket %s has no active requester", model.ErrNoActiveAssociation, ticketID)
		}
		if requester.ContactID == contactID {
			return fmt.Errorf("%w: contact %s is the ticket's requester", model.ErrCannotRemovePrimary, contactID)
		}
		existing, err := tx.Tickets().ActiveAssociation(ctx, workspaceID, ticketID, contactID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: contact %s and ticket %s", model.ErrNoActiveAssociation, contactID, ticketID)
		}
		active, err := tx.Tickets().ActiveAssociations(ctx, workspaceID, ticketID)
		if err != nil {
			return err
		}
		if len(active) <= 1 {
			return fmt.Errorf("%w: ticket %s would be left with no contacts", model.ErrMinimumContactsViolation, ticketID)
		}
		archivedAt := created
		if _, err := tx.Tickets().AppendAssociation(ctx, &model.TicketContactAssociation{
			WorkspaceID: workspaceID,
			TicketID:    ticketID,
			ContactID:   contactID,
			IsRequester: existing.IsRequester,
			CreatedAt:   created,
			ArchivedAt:  &archivedAt,
		}); err != nil {
			return err
		}
		payload := map[string]interface{}{"ticketId": ticketID, "contactId": contactID}
		acts, err = emitToBoth(ctx, tx, workspaceID, requester.ContactID, contactID,
			model.ActivityAssociationRemoved, actorID, payload, created)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acts, nil
}

func (s *TicketService) Get(ctx context.Context, workspaceID, ticketID string) (*model.Ticket, error) {
	return s.store.Tickets().Get(ctx, workspaceID, ticketID)
}

func (s *TicketService) Contacts(ctx context.Context, workspaceID, ticketID string) ([]*model.TicketContactAssociation, error) {
	return s.store.Tickets().ActiveAssociations(ctx, workspaceID, ticketID)
}

func ticketEdgeType(from, to model.TicketStatus) model.ActivityType {
	switch {
	case from == model.TicketOpen && to == model.TicketClosed:
		return model.ActivityTicketClosed
	case from == model.TicketClosed && to == model.TicketOpen:
		return model.ActivityTicketReopened
	}
	return ""
}
