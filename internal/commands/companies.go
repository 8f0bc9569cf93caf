package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/store"
)

// CompanyService owns companies and the contact-company association history.
// Companies never own a timeline: every lifecycle event lands on a
// caller-supplied contact.
type CompanyService struct {
	store store.Store
	clock clock.Clock
}

func NewCompanyService(s store.Store, c clock.Clock) *CompanyService {
	return &CompanyService{store: s, clock: c}
}

type CreateCompanyRequest struct {
	WorkspaceID string
	ContactID   string // receives the company_created activity
	ActorID     string
	Name        string
	Domain      *string
	Industry    *string
	SizeRange   *string
	Website     *string
	OccurredAt  *time.Time
}

func (s *CompanyService) Create(ctx context.Context, req CreateCompanyRequest) (*model.Company, *model.Activity, error) {
	if err := requireActor(req.ActorID); err != nil {
		return nil, nil, err
	}
	if req.Name == "" {
		return nil, nil, fmt.Errorf("%w: company name is required", model.ErrInvalidInput)
	}
	created := s.clock.Now()
	occurred := occurredOr(req.OccurredAt, created)

	var out *model.Company
	var act *model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := activeContact(ctx, tx, req.WorkspaceID, req.ContactID); err != nil {
			return err
		}
		co, err := tx.Companies().Create(ctx, &model.Company{
			WorkspaceID:  req.WorkspaceID,
			Name:         req.Name,
			Domain:       req.Domain,
			Industry:     req.Industry,
			SizeRange:    req.SizeRange,
			Website:      req.Website,
			CreationTime: created,
		})
		if err != nil {
			return err
		}
		a, err := tx.Activities().Append(ctx, newActivity(
			req.WorkspaceID, req.ContactID, model.ActivityCompanyCreated, req.ActorID,
			map[string]interface{}{"companyId": co.CompanyID, "name": co.Name}, occurred, created))
		if err != nil {
			return err
		}
		out, act = co, a
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, act, nil
}

func (s *CompanyService) Archive(ctx context.Context, workspaceID, companyID, contactID, actorID string) (*model.Activity, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	created := s.clock.Now()

	var act *model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		co, err := tx.Companies().Get(ctx, workspaceID, companyID)
		if err != nil {
			return err
		}
		if co.ArchivedAt != nil {
			return fmt.Errorf("%w: company %s", model.ErrAlreadyArchived, companyID)
		}
		if _, err := activeContact(ctx, tx, workspaceID, contactID); err != nil {
			return err
		}
		if err := tx.Companies().Archive(ctx, workspaceID, companyID, created); err != nil {
			return err
		}
		a, err := tx.Activities().Append(ctx, newActivity(
			workspaceID, contactID, model.ActivityCompanyArchived, actorID,
			map[string]interface{}{"companyId": companyID}, created, created))
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

// Associate appends an association row after checking no active one exists.
func (s *CompanyService) Associate(ctx context.Context, workspaceID, contactID, companyID, actorID string) (*model.ContactCompanyAssociation, *model.Activity, error) {
	if err := requireActor(actorID); err != nil {
		return nil, nil, err
	}
	created := s.clock.Now()

	var assoc *model.ContactCompanyAssociation
	var act *model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := activeContact(ctx, tx, workspaceID, contactID); err != nil {
			return err
		}
		co, err := tx.Companies().Get(ctx, workspaceID, companyID)
		if err != nil {
			return err
		}
		if co.ArchivedAt != nil {
			return fmt.Errorf("%w: company %s", model.ErrAlreadyArchived, companyID)
		}
		existing, err := tx.Companies().ActiveAssociation(ctx, workspaceID, contactID, companyID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: contact %s and company %s", model.ErrAlreadyAssociated, contactID, companyID)
		}
		a, err := tx.Companies().AppendAssociation(ctx, &model.ContactCompanyAssociation{
			WorkspaceID: workspaceID,
			ContactID:   contactID,
			CompanyID:   companyID,
			CreatedAt:   created,
		})
		if err != nil {
			return err
		}
		ev, err := tx.Activities().Append(ctx, newActivity(
			workspaceID, contactID, model.ActivityAssociationAdded, actorID,
			map[string]interface{}{"companyId": companyID}, created, created))
		if err != nil {
			return err
		}
		assoc, act = a, ev
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return assoc, act, nil
}

// Disassociate appends an archived marker row; the original row is untouched.
func (s *CompanyService) Disassociate(ctx context.Context, workspaceID, contactID, companyID, actorID string) (*model.Activity, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	created := s.clock.Now()

	var act *model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Companies().ActiveAssociation(ctx, workspaceID, contactID, companyID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: contact %s and company %s", model.ErrNoActiveAssociation, contactID, companyID)
		}
		archivedAt := created
		if _, err := tx.Companies().AppendAssociation(ctx, &model.ContactCompanyAssociation{
			WorkspaceID: workspaceID,
			ContactID:   contactID,
			CompanyID:   companyID,
			CreatedAt:   created,
			ArchivedAt:  &archivedAt,
		}); err != nil {
			return err
		}
		ev, err := tx.Activities().Append(ctx, newActivity(
			workspaceID, contactID, model.ActivityAssociationRemoved, actorID,
			map[string]interface{}{"companyId": companyID}, created, created))
		if err != nil {
			return err
		}
		act = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return act, nil
}

func (s *CompanyService) Get(ctx context.Context, workspaceID, companyID string) (*model.Company, error) {
	return s.store.Companies().Get(ctx, workspaceID, companyID)
}

func (s *CompanyService) AssociationsForContact(ctx context.Context, workspaceID, contactID string) ([]*model.ContactCompanyAssociation, error) {
	return s.store.Companies().ActiveAssociationsForContact(ctx, workspaceID, contactID)
}
