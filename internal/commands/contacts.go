package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/store"
)

// ContactService owns the contact lifecycle and the merge operation.
type ContactService struct {
	store store.Store
	clock clock.Clock
}

func NewContactService(s store.Store, c clock.Clock) *ContactService {
	return &ContactService{store: s, clock: c}
}

type CreateContactRequest struct {
	WorkspaceID string
	ActorID     string
	Email       *string
	FirstName   *string
	LastName    *string
	OccurredAt  *time.Time
}

func (s *ContactService) Create(ctx context.Context, req CreateContactRequest) (*model.Contact, *model.Activity, error) {
	if err := requireActor(req.ActorID); err != nil {
		return nil, nil, err
	}
	created := s.clock.Now()
	occurred := occurredOr(req.OccurredAt, created)

	var out *model.Contact
	var act *model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		c, err := tx.Contacts().Create(ctx, &model.Contact{
			WorkspaceID:  req.WorkspaceID,
			Email:        req.Email,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			CreationTime: created,
		})
		if err != nil {
			return err
		}
		payload := map[string]interface{}{}
		if req.Email != nil {
			payload["email"] = *req.Email
		}
		if req.FirstName != nil {
			payload["firstName"] = *req.FirstName
		}
		if req.LastName != nil {
			payload["lastName"] = *req.LastName
		}
		a, err := tx.Activities().Append(ctx, newActivity(
			req.WorkspaceID, c.ContactID, model.ActivityContactCreated, req.ActorID, payload, occurred, created))
		if err != nil {
			return err
		}
		out, act = c, a
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, act, nil
}

type UpdateContactRequest struct {
	WorkspaceID string
	ContactID   string
	ActorID     string
	Email       *string
	FirstName   *string
	LastName    *string
	OccurredAt  *time.Time
}

func (s *ContactService) Update(ctx context.Context, req UpdateContactRequest) (*model.Contact, *model.Activity, error) {
	if err := requireActor(req.ActorID); err != nil {
		return nil, nil, err
	}
	created := s.clock.Now()
	occurred := occurredOr(req.OccurredAt, created)

	var out *model.Contact
	var act *model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		c, err := activeContact(ctx, tx, req.WorkspaceID, req.ContactID)
		if err != nil {
			return err
		}
		patch := map[string]interface{}{}
		if req.Email != nil {
			c.Email = req.Email
			patch["email"] = *req.Email
		}
		if req.FirstName != nil {
			c.FirstName = req.FirstName
			patch["firstName"] = *req.FirstName
		}
		if req.LastName != nil {
			c.LastName = req.LastName
			patch["lastName"] = *req.LastName
		}
		upd, err := tx.Contacts().UpdateFields(ctx, c)
		if err != nil {
			return err
		}
		a, err := tx.Activities().Append(ctx, newActivity(
			req.WorkspaceID, c.ContactID, model.ActivityContactUpdated, req.ActorID, patch, occurred, created))
		if err != nil {
			return err
		}
		out, act = upd, a
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, act, nil
}

func (s *ContactService) Archive(ctx context.Context, workspaceID, contactID, actorID string) (*model.Activity, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	created := s.clock.Now()

	var act *model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := activeContact(ctx, tx, workspaceID, contactID); err != nil {
			return err
		}
		if err := tx.Contacts().Archive(ctx, workspaceID, contactID, created); err != nil {
			return err
		}
		a, err := tx.Activities().Append(ctx, newActivity(
			workspaceID, contactID, model.ActivityContactArchived, actorID, nil, created, created))
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

// Merge archives the secondary contact and writes a contact_merged activity on
// both timelines, so either contact's history is self-describing.
func (s *ContactService) Merge(ctx context.Context, workspaceID, primaryID, secondaryID, actorID string) ([]*model.Activity, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	if primaryID == secondaryID {
		return nil, fmt.Errorf("%w: cannot merge a contact into itself", model.ErrInvalidInput)
	}
	created := s.clock.Now()

	var acts []*model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := activeContact(ctx, tx, workspaceID, primaryID); err != nil {
			return err
		}
		if _, err := activeContact(ctx, tx, workspaceID, secondaryID); err != nil {
			return err
		}
		if err := tx.Contacts().Archive(ctx, workspaceID, secondaryID, created); err != nil {
			return err
		}
		onPrimary, err := tx.Activities().Append(ctx, newActivity(
			workspaceID, primaryID, model.ActivityContactMerged, actorID,
			map[string]interface{}{"mergedContactId": secondaryID}, created, created))
		if err != nil {
			return err
		}
		onSecondary, err := tx.Activities().Append(ctx, newActivity(
			workspaceID, secondaryID, model.ActivityContactMerged, actorID,
			map[string]interface{}{"primaryContactId": primaryID, "archivedAt": created.Format(time.RFC3339Nano)}, created, created))
		if err != nil {
			return err
		}
		acts = []*model.Activity{onPrimary, onSecondary}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acts, nil
}

// Get and List are read passthroughs for the API layer.
func (s *ContactService) Get(ctx context.Context, workspaceID, contactID string) (*model.Contact, error) {
	return s.store.Contacts().Get(ctx, workspaceID, contactID)
}

func (s *ContactService) List(ctx context.Context, workspaceID string) ([]*model.Contact, error) {
	return s.store.Contacts().List(ctx, workspaceID)
}

// Timeline pages a contact's activities newest-first.
func (s *ContactService) Timeline(ctx context.Context, req model.ListActivitiesRequest) ([]*model.Activity, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.store.Activities().List(ctx, req)
}
