package store

import (
	"context"
	"time"

	"github.com/relata/relata/internal/model"
)

// Repos is the set of sub-repositories exposed both by a Store and by a
// transaction handle. Implementations live under internal/store/<driver>/.
//
// Every write, on either handle, passes through the append-only guard: ledger
// tables accept inserts only, archive-only tables additionally accept updates.
type Repos interface {
	Workspaces() Workspaces
	Contacts() Contacts
	Companies() Companies
	Properties() Properties
	Pipelines() Pipelines
	Deals() Deals
	Tickets() Tickets
	Workflows() Workflows
	Activities() Activities
	Executions() Executions
}

// Tx is the transactional view of the store. All writes inside the unit of
// work commit atomically or not at all.
type Tx interface {
	Repos
}

// Store exposes persistence operations required by the command layer and the
// automation engine.
type Store interface {
	Repos

	// WithTx runs fn inside one transaction. A non-nil error from fn rolls
	// everything back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Ping verifies connectivity.
	Ping(ctx context.Context) error
}

type Workspaces interface {
	Create(ctx context.Context, w *model.Workspace) (*model.Workspace, error)
	Get(ctx context.Context, workspaceID string) (*model.Workspace, error)
}

type Contacts interface {
	Create(ctx context.Context, c *model.Contact) (*model.Contact, error)
	Get(ctx context.Context, workspaceID, contactID string) (*model.Contact, error)
	List(ctx context.Context, workspaceID string) ([]*model.Contact, error)
	// UpdateFields patches the mutable contact fields (archive-only policy
	// permits updates, never deletes).
	UpdateFields(ctx context.Context, c *model.Contact) (*model.Contact, error)
	Archive(ctx context.Context, workspaceID, contactID string, at time.Time) error
}

type Companies interface {
	Create(ctx context.Context, c *model.Company) (*model.Company, error)
	Get(ctx context.Context, workspaceID, companyID string) (*model.Company, error)
	Archive(ctx context.Context, workspaceID, companyID string, at time.Time) error

	// AppendAssociation inserts one history row as given; removal is an
	// archived-marker row, never a mutation.
	AppendAssociation(ctx context.Context, a *model.ContactCompanyAssociation) (*model.ContactCompanyAssociation, error)
	ActiveAssociation(ctx context.Context, workspaceID, contactID, companyID string) (*model.ContactCompanyAssociation, error)
	ActiveAssociationsForContact(ctx context.Context, workspaceID, contactID string) ([]*model.ContactCompanyAssociation, error)
}

type Properties interface {
	CreateDefinition(ctx context.Context, d *model.PropertyDefinition) (*model.PropertyDefinition, error)
	GetDefinition(ctx context.Context, workspaceID, key string) (*model.PropertyDefinition, error)
	ListDefinitions(ctx context.Context, workspaceID string) ([]*model.PropertyDefinition, error)

	// AppendValue inserts one value-history row; a cleared value is a row
	// whose Value is nil.
	AppendValue(ctx context.Context, v *model.PropertyValue) (*model.PropertyValue, error)
	LatestValue(ctx context.Context, workspaceID, contactID, key string) (*model.PropertyValue, error)
	CurrentValues(ctx context.Context, workspaceID, contactID string) (map[string]interface{}, error)
}

type Pipelines interface {
	CreatePipeline(ctx context.Context, p *model.Pipeline) (*model.Pipeline, error)
	GetPipeline(ctx context.Context, workspaceID, pipelineID string) (*model.Pipeline, error)
	CreateStage(ctx context.Context, s *model.PipelineStage) (*model.PipelineStage, error)
	GetStage(ctx context.Context, workspaceID, stageID string) (*model.PipelineStage, error)

	CreateTicketPipeline(ctx context.Context, p *model.TicketPipeline) (*model.TicketPipeline, error)
	GetTicketPipeline(ctx context.Context, workspaceID, pipelineID string) (*model.TicketPipeline, error)
	CreateTicketStage(ctx context.Context, s *model.TicketStage) (*model.TicketStage, error)
	GetTicketStage(ctx context.Context, workspaceID, stageID string) (*model.TicketStage, error)
}

type Deals interface {
	Create(ctx context.Context, d *model.Deal) (*model.Deal, error)
	Get(ctx context.Context, workspaceID, dealID string) (*model.Deal, error)
	UpdateStage(ctx context.Context, workspaceID, dealID, stageID string, status model.DealStatus) error
	Archive(ctx context.Context, workspaceID, dealID string, at time.Time) error

	AppendAssociation(ctx context.Context, a *model.DealContactAssociation) (*model.DealContactAssociation, error)
	ActiveAssociations(ctx context.Context, workspaceID, dealID string) ([]*model.DealContactAssociation, error)
	ActiveAssociation(ctx context.Context, workspaceID, dealID, contactID string) (*model.DealContactAssociation, error)
	ActivePrimary(ctx context.Context, workspaceID, dealID string) (*model.DealContactAssociation, error)
}

type Tickets interface {
	Create(ctx context.Context, t *model.Ticket) (*model.Ticket, error)
	Get(ctx context.Context, workspaceID, ticketID string) (*model.Ticket, error)
	UpdateStage(ctx context.Context, workspaceID, ticketID, stageID string, status model.TicketStatus) error
	Archive(ctx context.Context, workspaceID, ticketID string, at time.Time) error

	AppendAssociation(ctx context.Context, a *model.TicketContactAssociation) (*model.TicketContactAssociation, error)
	ActiveAssociations(ctx context.Context, workspaceID, ticketID string) ([]*model.TicketContactAssociation, error)
	ActiveAssociation(ctx context.Context, workspaceID, ticketID, contactID string) (*model.TicketContactAssociation, error)
	ActiveRequester(ctx context.Context, workspaceID, ticketID string) (*model.TicketContactAssociation, error)
}

type Workflows interface {
	Create(ctx context.Context, w *model.Workflow, steps []*model.WorkflowStep) (*model.Workflow, error)
	Get(ctx context.Context, workspaceID, workflowID string) (*model.Workflow, error)
	List(ctx context.Context, workspaceID string) ([]*model.Workflow, error)
	// MatchByTrigger returns enabled, non-archived workflows in the workspace
	// whose trigger set contains t, in creation order.
	MatchByTrigger(ctx context.Context, workspaceID string, t model.ActivityType) ([]*model.Workflow, error)
	SetEnabled(ctx context.Context, workspaceID, workflowID string, enabled bool) error
	Archive(ctx context.Context, workspaceID, workflowID string, at time.Time) error
	Steps(ctx context.Context, workflowID string) ([]*model.WorkflowStep, error)
}

type Activities interface {
	Append(ctx context.Context, a *model.Activity) (*model.Activity, error)
	Get(ctx context.Context, workspaceID, activityID string) (*model.Activity, error)
	// List pages one contact's timeline ordered by
	// (occurred_at desc, created_at desc, id desc).
	List(ctx context.Context, req model.ListActivitiesRequest) ([]*model.Activity, error)
	// Batch is the engine's poll read: rows with (created_at, activity_id)
	// strictly after the watermark pair, filtered to trigger types,
	// ascending by (created_at, activity_id).
	Batch(ctx context.Context, req model.ActivityBatchRequest) ([]*model.Activity, error)
}

type Executions interface {
	// Create inserts the outcome row; a (workflow, activity) duplicate fails
	// with model.ErrDuplicateExecution.
	Create(ctx context.Context, e *model.WorkflowExecution) (*model.WorkflowExecution, error)
	Get(ctx context.Context, workflowID, activityID string) (*model.WorkflowExecution, error)
}
