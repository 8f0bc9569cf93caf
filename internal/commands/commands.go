// Package commands holds the transactional command handlers. Every handler
// follows the same shape: load and validate preconditions, compute derived
// state, write domain rows, write activity rows, all inside one transaction.
// A failed precondition aborts before any write, so no partial event trails
// exist.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/store"
)

func requireActor(actorID string) error {
	if actorID == "" {
		return fmt.Errorf("%w: actor id is required", model.ErrInvalidInput)
	}
	return nil
}

// activeContact loads a contact and rejects archived ones.
func activeContact(ctx context.Context, tx store.Tx, workspaceID, contactID string) (*model.Contact, error) {
	c, err := tx.Contacts().Get(ctx, workspaceID, contactID)
	if err != nil {
		return nil, err
	}
	if c.Archived() {
		return nil, fmt.Errorf("%w: contact %s", model.ErrAlreadyArchived, contactID)
	}
	return c, nil
}

// newActivity builds a ledger row. CreatedAt comes from the handler's clock so
// rows written in one transaction still order deterministically.
func newActivity(workspaceID, contactID string, typ model.ActivityType, actorID string, payload map[string]interface{}, occurredAt, createdAt time.Time) *model.Activity {
	return &model.Activity{
		ActivityID:  uuid.New().String(),
		WorkspaceID: workspaceID,
		ContactID:   contactID,
		Type:        typ,
		Subtype:     model.SubtypeSystem,
		ActorUserID: actorID,
		Payload:     payload,
		OccurredAt:  occurredAt,
		CreatedAt:   createdAt,
	}
}

// occurredOr defaults business time to ingestion time.
func occurredOr(occurredAt *time.Time, createdAt time.Time) time.Time {
	if occurredAt != nil {
		return occurredAt.UTC()
	}
	return createdAt
}

// Services bundles every command service over one store and clock.
type Services struct {
	Contacts   *ContactService
	Properties *PropertyService
	Companies  *CompanyService
	Pipelines  *PipelineService
	Deals      *DealService
	Tickets    *TicketService
	Workflows  *WorkflowService
}

// NewServices wires the command services.
func NewServices(s store.Store, c clock.Clock) *Services {
	return &Services{
		Contacts:   NewContactService(s, c),
		Properties: NewPropertyService(s, c),
		Companies:  NewCompanyService(s, c),
		Pipelines:  NewPipelineService(s, c),
		Deals:      NewDealService(s, c),
		Tickets:    NewTicketService(s, c),
		Workflows:  NewWorkflowService(s, c),
	}
}
