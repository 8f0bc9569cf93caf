package commands

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/properties"
	"github.com/relata/relata/internal/store"
)

var propertyKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// PropertyService owns definitions and the append-only value history.
type PropertyService struct {
	store store.Store
	clock clock.Clock
}

func NewPropertyService(s store.Store, c clock.Clock) *PropertyService {
	return &PropertyService{store: s, clock: c}
}

type CreateDefinitionRequest struct {
	WorkspaceID string
	ActorID     string
	Key         string
	Label       string
	Type        model.PropertyType
	Options     []string
	Required    bool
}

func (s *PropertyService) CreateDefinition(ctx context.Context, req CreateDefinitionRequest) (*model.PropertyDefinition, error) {
	if err := requireActor(req.ActorID); err != nil {
		return nil, err
	}
	if !propertyKeyPattern.MatchString(req.Key) {
		return nil, fmt.Errorf("%w: property key must be snake_case", model.ErrInvalidInput)
	}
	switch req.Type {
	case model.PropertyString, model.PropertyNumber, model.PropertyBoolean, model.PropertyDate:
	case model.PropertyEnum:
		if len(req.Options) == 0 {
			return nil, fmt.Errorf("%w: enum property requires options", model.ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: unknown property type %q", model.ErrInvalidInput, req.Type)
	}
	return s.store.Properties().CreateDefinition(ctx, &model.PropertyDefinition{
		WorkspaceID:  req.WorkspaceID,
		Key:          req.Key,
		Label:        req.Label,
		Type:         req.Type,
		Options:      req.Options,
		Required:     req.Required,
		CreationTime: s.clock.Now(),
	})
}

func (s *PropertyService) ListDefinitions(ctx context.Context, workspaceID string) ([]*model.PropertyDefinition, error) {
	return s.store.Properties().ListDefinitions(ctx, workspaceID)
}

type SetPropertyRequest struct {
	WorkspaceID string
	ContactID   string
	ActorID     string
	Key         string
	Value       interface{} // nil clears the property
	OccurredAt  *time.Time
}

// Set validates and appends one value-history row. The activity row is
// written before the value row in the same transaction; the event trail leads
// the state it describes.
func (s *PropertyService) Set(ctx context.Context, req SetPropertyRequest) (*model.PropertyValue, *model.Activity, error) {
	if err := requireActor(req.ActorID); err != nil {
		return nil, nil, err
	}
	created := s.clock.Now()
	occurred := occurredOr(req.OccurredAt, created)

	var val *model.PropertyValue
	var act *model.Activity
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := activeContact(ctx, tx, req.WorkspaceID, req.ContactID); err != nil {
			return err
		}
		def, err := tx.Properties().GetDefinition(ctx, req.WorkspaceID, req.Key)
		if err != nil {
			return err
		}
		normalized, err := properties.Validate(def, req.Value)
		if err != nil {
			return err
		}
		var oldValue interface{}
		if prior, err := tx.Properties().LatestValue(ctx, req.WorkspaceID, req.ContactID, req.Key); err != nil {
			return err
		} else if prior != nil {
			oldValue = prior.Value
		}
		a, err := tx.Activities().Append(ctx, newActivity(
			req.WorkspaceID, req.ContactID, model.ActivityContactPropertySet, req.ActorID,
			map[string]interface{}{"propertyKey": req.Key, "oldValue": oldValue, "newValue": normalized},
			occurred, created))
		if err != nil {
			return err
		}
		v, err := tx.Properties().AppendValue(ctx, &model.PropertyValue{
			WorkspaceID: req.WorkspaceID,
			ContactID:   req.ContactID,
			PropertyKey: req.Key,
			Value:       normalized,
			CreatedAt:   created,
		})
		if err != nil {
			return err
		}
		val, act = v, a
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return val, act, nil
}

// Clear appends a nil-value row; history is never deleted.
func (s *PropertyService) Clear(ctx context.Context, workspaceID, contactID, actorID, key string) (*model.PropertyValue, *model.Activity, error) {
	return s.Set(ctx, SetPropertyRequest{
		WorkspaceID: workspaceID,
		ContactID:   contactID,
		ActorID:     actorID,
		Key:         key,
		Value:       nil,
	})
}

func (s *PropertyService) CurrentValues(ctx context.Context, workspaceID, contactID string) (map[string]interface{}, error) {
	return s.store.Properties().CurrentValues(ctx, workspaceID, contactID)
}
