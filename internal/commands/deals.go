package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/store"
)

// DealService owns deals, their stage transitions, and the deal-contact
// association history. Deal activities land on the active primary contact.
type DealService struct {
	store store.Store
	clock clock.Clock
}

func NewDealService(s store.Store, c clock.Clock) *DealService {
	return &DealService{store: s, clock: c}
}

type CreateDealRequest struct {
	WorkspaceID      string
	ActorID          string
	PrimaryContactID string
	Name             string
	Amount           *float64
	Currency         *string
	PipelineID       string
	StageID          string
	OccurredAt       *time.Time
}

func (s *DealService) Create(ctx context.Context, req CreateDealRequest) (*model.Deal, []*model.Activity, error) {
	if err := requireActor(req.ActorID); err != nil {
		return nil, nil, err
	}
	if req.Name == "" {
		return nil, nil, fmt.Errorf("%w: deal name is required", model.ErrInvalidInput)
	}
	created := s.clock.Now()
	occurred := occurredOr(req.OccurredAt, created)

	var out *model.Deal
	var acts []*model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := activeContact(ctx, tx, req.WorkspaceID, req.PrimaryContactID); err != nil {
			return err
		}
		if _, err := tx.Pipelines().GetPipeline(ctx, req.WorkspaceID, req.PipelineID); err != nil {
			return err
		}
		stage, err := tx.Pipelines().GetStage(ctx, req.WorkspaceID, req.StageID)
		if err != nil {
			return err
		}
		if stage.PipelineID != req.PipelineID {
			return fmt.Errorf("%w: stage %s does not belong to pipeline %s", model.ErrInvalidInput, req.StageID, req.PipelineID)
		}
		status := model.DeriveDealStatus(stage)
		deal, err := tx.Deals().Create(ctx, &model.Deal{
			WorkspaceID:  req.WorkspaceID,
			Name:         req.Name,
			Amount:       req.Amount,
			Currency:     req.Currency,
			PipelineID:   req.PipelineID,
			StageID:      req.StageID,
			Status:       status,
			CreationTime: created,
		})
		if err != nil {
			return err
		}
		if _, err := tx.Deals().AppendAssociation(ctx, &model.DealContactAssociation{
			WorkspaceID: req.WorkspaceID,
			DealID:      deal.DealID,
			ContactID:   req.PrimaryContactID,
			IsPrimary:   true,
			CreatedAt:   created,
		}); err != nil {
			return err
		}
		a, err := tx.Activities().Append(ctx, newActivity(
			req.WorkspaceID, req.PrimaryContactID, model.ActivityDealCreated, req.ActorID,
			map[string]interface{}{"dealId": deal.DealID, "name": deal.Name, "status": string(status)},
			occurred, created))
		if err != nil {
			return err
		}
		acts = append(acts, a)
		// A deal created directly in a closing stage still gets its outcome event.
		if closing := dealOutcomeType(status); closing != "" {
			a, err := tx.Activities().Append(ctx, newActivity(
				req.WorkspaceID, req.PrimaryContactID, closing, req.ActorID,
				map[string]interface{}{"dealId": deal.DealID}, occurred, created))
			if err != nil {
				return err
			}
			acts = append(acts, a)
		}
		out = deal
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, acts, nil
}

func (s *DealService) ChangeStage(ctx context.Context, workspaceID, dealID, stageID, actorID string) (*model.Deal, []*model.Activity, error) {
	if err := requireActor(actorID); err != nil {
		return nil, nil, err
	}
	created := s.clock.Now()

	var out *model.Deal
	var acts []*model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		deal, err := tx.Deals().Get(ctx, workspaceID, dealID)
		if err != nil {
			return err
		}
		if deal.ArchivedAt != nil {
			return fmt.Errorf("%w: deal %s", model.ErrAlreadyArchived, dealID)
		}
		stage, err := tx.Pipelines().GetStage(ctx, workspaceID, stageID)
		if err != nil {
			return err
		}
		if stage.PipelineID != deal.PipelineID {
			return fmt.Errorf("%w: stage %s does not belong to pipeline %s", model.ErrInvalidInput, stageID, deal.PipelineID)
		}
		primary, err := tx.Deals().ActivePrimary(ctx, workspaceID, dealID)
		if err != nil {
			return err
		}
		if primary == nil {
			return fmt.Errorf("%w: deal %s has no active primary contact", model.ErrNoActiveAssociation, dealID)
		}
		status := model.DeriveDealStatus(stage)
		if err := tx.Deals().UpdateStage(ctx, workspaceID, dealID, stageID, status); err != nil {
			return err
		}
		a, err := tx.Activities().Append(ctx, newActivity(
			workspaceID, primary.ContactID, model.ActivityDealStageChanged, actorID,
			map[string]interface{}{"dealId": dealID, "fromStageId": deal.StageID, "toStageId": stageID, "status": string(status)},
			created, created))
		if err != nil {
			return err
		}
		acts = append(acts, a)
		if closing := dealOutcomeType(status); closing != "" {
			a, err := tx.Activities().Append(ctx, newActivity(
				workspaceID, primary.ContactID, closing, actorID,
				map[string]interface{}{"dealId": dealID}, created, created))
			if err != nil {
				return err
			}
			acts = append(acts, a)
		}
		deal.StageID = stageID
		deal.Status = status
		out = deal
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, acts, nil
}

func (s *DealService) Archive(ctx context.Context, workspaceID, dealID, actorID string) (*model.Activity, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	created := s.clock.Now()

	var act *model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		deal, err := tx.Deals().Get(ctx, workspaceID, dealID)
		if err != nil {
			return err
		}
		if deal.ArchivedAt != nil {
			return fmt.Errorf("%w: deal %s", model.ErrAlreadyArchived, dealID)
		}
		primary, err := tx.Deals().ActivePrimary(ctx, workspaceID, dealID)
		if err != nil {
			return err
		}
		if primary == nil {
			return fmt.Errorf("%w: deal %s has no active primary contact", model.ErrNoActiveAssociation, dealID)
		}
		if err := tx.Deals().Archive(ctx, workspaceID, dealID, created); err != nil {
			return err
		}
		a, err := tx.Activities().Append(ctx, newActivity(
			workspaceID, primary.ContactID, model.ActivityDealArchived, actorID,
			map[string]interface{}{"dealId": dealID}, created, created))
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

// Associate adds a non-primary contact. Both the primary and the new contact
// receive the association event, collapsed to one row when they coincide.
func (s *DealService) Associate(ctx context.Context, workspaceID, dealID, contactID, actorID string) ([]*model.Activity, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	created := s.clock.Now()

	var acts []*model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		deal, err := tx.Deals().Get(ctx, workspaceID, dealID)
		if err != nil {
			return err
		}
		if deal.ArchivedAt != nil {
			return fmt.Errorf("%w: deal %s", model.ErrAlreadyArchived, dealID)
		}
		if _, err := activeContact(ctx, tx, workspaceID, contactID); err != nil {
			return err
		}
		primary, err := tx.Deals().ActivePrimary(ctx, workspaceID, dealID)
		if err != nil {
			return err
		}
		if primary == nil {
			return fmt.Errorf("%w: deal %s has no active primary contact", model.ErrNoActiveAssociation, dealID)
		}
		existing, err := tx.Deals().ActiveAssociation(ctx, workspaceID, dealID, contactID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: contact %s and deal %s", model.ErrAlreadyAssociated, contactID, dealID)
		}
		if _, err := tx.Deals().AppendAssociation(ctx, &model.DealContactAssociation{
			WorkspaceID: workspaceID,
			DealID:      dealID,
			ContactID:   contactID,
			CreatedAt:   created,
		}); err != nil {
			return err
		}
		payload := map[string]interface{}{"dealId": dealID, "contactId": contactID}
		acts, err = emitToBoth(ctx, tx, workspaceID, primary.ContactID, contactID,
			model.ActivityAssociationAdded, actorID, payload, created)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acts, nil
}

// Disassociate appends an archived marker for a non-primary contact. The
// primary itself can never be removed, and the deal must keep at least one
// active contact.
func (s *DealService) Disassociate(ctx context.Context, workspaceID, dealID, contactID, actorID string) ([]*model.Activity, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	created := s.clock.Now()

	var acts []*model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		deal, err := tx.Deals().Get(ctx, workspaceID, dealID)
		if err != nil {
			return err
		}
		if deal.ArchivedAt != nil {
			return fmt.Errorf("%w: deal %s", model.ErrAlreadyArchived, dealID)
		}
		primary, err := tx.Deals().ActivePrimary(ctx, workspaceID, dealID)
		if err != nil {
			return err
		}
		if primary == nil {
			return fmt.Errorf("%w: deal %s has no active primary contact", model.ErrNoActiveAssociation, dealID)
		}
		if primary.ContactID == contactID {
			return fmt.Errorf("%w: contact %s is the deal's primary", model.ErrCannotRemovePrimary, contactID)
		}
		existing, err := tx.Deals().ActiveAssociation(ctx, workspaceID, dealID, contactID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: contact %s and deal %s", model.ErrNoActiveAssociation, contactID, dealID)
		}
		active, err := tx.Deals().ActiveAssociations(ctx, workspaceID, dealID)
		if err != nil {
			return err
		}
		if len(active) <= 1 {
			return fmt.Errorf("%w: deal %s would be left with no contacts", model.ErrMinimumContactsViolation, dealID)
		}
		archivedAt := created
		if _, err := tx.Deals().AppendAssociation(ctx, &model.DealContactAssociation{
			WorkspaceID: workspaceID,
			DealID:      dealID,
			ContactID:   contactID,
			IsPrimary:   existing.IsPrimary,
			CreatedAt:   created,
			ArchivedAt:  &archivedAt,
		}); err != nil {
			return err
		}
		payload := map[string]interface{}{"dealId": dealID, "contactId": contactID}
		acts, err = emitToBoth(ctx, tx, workspaceID, primary.ContactID, contactID,
			model.ActivityAssociationRemoved, actorID, payload, created)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acts, nil
}

func (s *DealService) Get(ctx context.Context, workspaceID, dealID string) (*model.Deal, error) {
	return s.store.Deals().Get(ctx, workspaceID, dealID)
}

func (s *DealService) Contacts(ctx context.Context, workspaceID, dealID string) ([]*model.DealContactAssociation, error) {
	return s.store.Deals().ActiveAssociations(ctx, workspaceID, dealID)
}

func dealOutcomeType(status model.DealStatus) model.ActivityType {
	switch status {
	case model.DealWon:
		return model.ActivityDealWon
	case model.DealLost:
		return model.ActivityDealLost
	}
	return ""
}

// emitToBoth writes the event on the primary's and the target's timelines,
// deduplicated to one row when the target is the primary.
func emitToBoth(ctx context.Context, tx store.Tx, workspaceID, primaryContactID, targetContactID string, typ model.ActivityType, actorID string, payload map[string]interface{}, at time.Time) ([]*model.Activity, error) {
	onPrimary, err := tx.Activities().Append(ctx, newActivity(workspaceID, primaryContactID, typ, actorID, payload, at, at))
	if err != nil {
		return nil, err
	}
	if targetContactID == primaryContactID {
		return []*model.Activity{onPrimary}, nil
	}
	onTarget, err := tx.Activities().Append(ctx, newActivity(workspaceID, targetContactID, typ, actorID, payload, at, at))
	if err != nil {
		return nil, err
	}
	return []*model.Activity{onPrimary, onTarget}, nil
}
