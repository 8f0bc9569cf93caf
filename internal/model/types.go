package model

import "time"

// Workspace is the tenant boundary. Every other entity is scoped by WorkspaceID.
type Workspace struct {
	WorkspaceID  string    `json:"workspaceId"`
	Name         string    `json:"name"`
	CreationTime time.Time `json:"creationTime"`
}

// Contact owns the activity timeline. Archival is its only terminal state.
type Contact struct {
	ContactID    string     `json:"contactId"`
	WorkspaceID  string     `json:"workspaceId"`
	Email        *string    `json:"email,omitempty"`
	FirstName    *string    `json:"firstName,omitempty"`
	LastName     *string    `json:"lastName,omitempty"`
	CreationTime time.Time  `json:"creationTime"`
	ArchivedAt   *time.Time `json:"archivedAt,omitempty"`
}

// Archived reports whether the contact has been archived.
func (c *Contact) Archived() bool { return c.ArchivedAt != nil }

// Activity is an immutable event row recorded against exactly one contact.
// OccurredAt is business time and may be backdated by the caller; CreatedAt is
// ingestion time and is the only field safe to order or watermark by.
type Activity struct {
	ActivityID  string                 `json:"activityId"`
	WorkspaceID string                 `json:"workspaceId"`
	ContactID   string                 `json:"contactId"`
	Type        ActivityType           `json:"type"`
	Subtype     ActivitySubtype        `json:"subtype"`
	ActorUserID string                 `json:"actorUserId"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	OccurredAt  time.Time              `json:"occurredAt"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// PropertyDefinition is the schema for a custom contact field.
type PropertyDefinition struct {
	WorkspaceID  string       `json:"workspaceId"`
	Key          string       `json:"key"`
	Label        string       `json:"label"`
	Type         PropertyType `json:"type"`
	Options      []string     `json:"options,omitempty"`
	Required     bool         `json:"required"`
	CreationTime time.Time    `json:"creationTime"`
}

// PropertyValue is one row of the append-only value history for
// (workspace, contact, key). The current value is the latest row by CreatedAt;
// a cleared value is a row with Value == nil.
type PropertyValue struct {
	ValueID     string      `json:"valueId"`
	WorkspaceID string      `json:"workspaceId"`
	ContactID   string      `json:"contactId"`
	PropertyKey string      `json:"propertyKey"`
	Value       interface{} `json:"value"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Company never owns activities; company lifecycle events are emitted against
// a caller-supplied contact.
type Company struct {
	CompanyID    string     `json:"companyId"`
	WorkspaceID  string     `json:"workspaceId"`
	Name         string     `json:"name"`
	Domain       *string    `json:"domain,omitempty"`
	Industry     *string    `json:"industry,omitempty"`
	SizeRange    *string    `json:"sizeRange,omitempty"`
	Website      *string    `json:"website,omitempty"`
	CreationTime time.Time  `json:"creationTime"`
	ArchivedAt   *time.Time `json:"archivedAt,omitempty"`
}

// ContactCompanyAssociation is an append-only latest-wins join row.
// At most one row with ArchivedAt == nil may exist per (contact, company).
type ContactCompanyAssociation struct {
	AssociationID string     `json:"associationId"`
	WorkspaceID   string     `json:"workspaceId"`
	ContactID     string     `json:"contactId"`
	CompanyID     string     `json:"companyId"`
	CreatedAt     time.Time  `json:"createdAt"`
	ArchivedAt    *time.Time `json:"archivedAt,omitempty"`
}

// Pipeline groups deal stages.
type Pipeline struct {
	PipelineID   string    `json:"pipelineId"`
	WorkspaceID  string    `json:"workspaceId"`
	Name         string    `json:"name"`
	CreationTime time.Time `json:"creationTime"`
}

// PipelineStage carries the closed flags that derive deal status.
type PipelineStage struct {
	StageID      string `json:"stageId"`
	PipelineID   string `json:"pipelineId"`
	WorkspaceID  string `json:"workspaceId"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"displayOrder"`
	IsClosedWon  bool   `json:"isClosedWon"`
	IsClosedLost bool   `json:"isClosedLost"`
}

// TicketPipeline groups ticket stages.
type TicketPipeline struct {
	PipelineID   string    `json:"pipelineId"`
	WorkspaceID  string    `json:"workspaceId"`
	Name         string    `json:"name"`
	CreationTime time.Time `json:"creationTime"`
}

// TicketStage carries the closed flag that derives ticket status.
type TicketStage struct {
	StageID      string `json:"stageId"`
	PipelineID   string `json:"pipelineId"`
	WorkspaceID  string `json:"workspaceId"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"displayOrder"`
	IsClosed     bool   `json:"isClosed"`
}

// Deal status is fully derived from its current stage's closed flags.
type Deal struct {
	DealID       string     `json:"dealId"`
	WorkspaceID  string     `json:"workspaceId"`
	Name         string     `json:"name"`
	Amount       *float64   `json:"amount,omitempty"`
	Currency     *string    `json:"currency,omitempty"`
	PipelineID   string     `json:"pipelineId"`
	StageID      string     `json:"stageId"`
	Status       DealStatus `json:"status"`
	CreationTime time.Time  `json:"creationTime"`
	ArchivedAt   *time.Time `json:"archivedAt,omitempty"`
}

// DealContactAssociation is append-only latest-wins; exactly one active
// primary row per non-archived deal, enforced by the command layer.
type DealContactAssociation struct {
	AssociationID string     `json:"associationId"`
	WorkspaceID   string     `json:"workspaceId"`
	DealID        string     `json:"dealId"`
	ContactID     string     `json:"contactId"`
	IsPrimary     bool       `json:"isPrimary"`
	CreatedAt     time.Time  `json:"createdAt"`
	ArchivedAt    *time.Time `json:"archivedAt,omitempty"`
}

// Ticket mirrors Deal with a requester role and a closed-flag derived status.
type Ticket struct {
	TicketID     string         `json:"ticketId"`
	WorkspaceID  string         `json:"workspaceId"`
	Name         string         `json:"name"`
	Priority     TicketPriority `json:"priority"`
	PipelineID   string         `json:"pipelineId"`
	StageID      string         `json:"stageId"`
	Status       TicketStatus   `json:"status"`
	CreationTime time.Time      `json:"creationTime"`
	ArchivedAt   *time.Time     `json:"archivedAt,omitempty"`
}

// TicketContactAssociation is append-only latest-wins with a requester role.
type TicketContactAssociation struct {
	AssociationID string     `json:"associationId"`
	WorkspaceID   string     `json:"workspaceId"`
	TicketID      string     `json:"ticketId"`
	ContactID     string     `json:"contactId"`
	IsRequester   bool       `json:"isRequester"`
	CreatedAt     time.Time  `json:"createdAt"`
	ArchivedAt    *time.Time `json:"archivedAt,omitempty"`
}

// Workflow declares interest in a set of activity trigger types.
// Workflows are created disabled and are archive-only.
type Workflow struct {
	WorkflowID   string         `json:"workflowId"`
	WorkspaceID  string         `json:"workspaceId"`
	Name         string         `json:"name"`
	TriggerTypes []ActivityType `json:"triggerTypes"`
	Enabled      bool           `json:"enabled"`
	CreationTime time.Time      `json:"creationTime"`
	ArchivedAt   *time.Time     `json:"archivedAt,omitempty"`
}

// WorkflowStep is one ordered action of a workflow.
type WorkflowStep struct {
	StepID     string                 `json:"stepId"`
	WorkflowID string                 `json:"workflowId"`
	StepOrder  int                    `json:"stepOrder"`
	ActionType StepAction             `json:"actionType"`
	Config     map[string]interface{} `json:"config,omitempty"`
}

// WorkflowExecution is the immutable outcome record of one
// (workflow, triggering activity) pair. Uniqueness on that pair is the
// at-most-once execution guarantee.
type WorkflowExecution struct {
	ExecutionID    string          `json:"executionId"`
	WorkflowID     string          `json:"workflowId"`
	ActivityID     string          `json:"activityId"`
	ContactID      string          `json:"contactId"`
	Status         ExecutionStatus `json:"status"`
	Error          *string         `json:"error,omitempty"`
	ExecutedAt     time.Time       `json:"executedAt"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

// ListActivitiesRequest captures timeline pagination for one contact.
// Cursor is the id of the last row from the previous page.
type ListActivitiesRequest struct {
	WorkspaceID string
	ContactID   string
	Limit       int
	Cursor      string
}

// ActivityBatchRequest is the automation engine's poll query. The watermark
// is the (After, AfterID) pair: commands stamp every row of one transaction
// with the same created_at, so the row id breaks ties between batches.
type ActivityBatchRequest struct {
	After        time.Time
	AfterID      string
	TriggerTypes []ActivityType
	Limit        int
}
