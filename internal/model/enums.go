package model

// ActivityType enumerates the business event kinds recorded in the ledger.
type ActivityType string

const (
	ActivityContactCreated     ActivityType = "contact_created"
	ActivityContactUpdated     ActivityType = "contact_updated"
	ActivityContactArchived    ActivityType = "contact_archived"
	ActivityContactMerged      ActivityType = "contact_merged"
	ActivityContactPropertySet ActivityType = "contact_property_set"

	ActivityCompanyCreated  ActivityType = "company_created"
	ActivityCompanyArchived ActivityType = "company_archived"

	ActivityAssociationAdded   ActivityType = "association_added"
	ActivityAssociationRemoved ActivityType = "association_removed"

	ActivityDealCreated      ActivityType = "deal_created"
	ActivityDealStageChanged ActivityType = "deal_stage_changed"
	ActivityDealWon          ActivityType = "deal_won"
	ActivityDealLost         ActivityType = "deal_lost"
	ActivityDealArchived     ActivityType = "deal_archived"

	ActivityTicketCreated      ActivityType = "ticket_created"
	ActivityTicketStageChanged ActivityType = "ticket_stage_changed"
	ActivityTicketClosed       ActivityType = "ticket_closed"
	ActivityTicketReopened     ActivityType = "ticket_reopened"
	ActivityTicketArchived     ActivityType = "ticket_archived"

	ActivityAutomationSucceeded        ActivityType = "automation_execution_succeeded"
	ActivityAutomationFailed           ActivityType = "automation_execution_failed"
	ActivityAutomationSkipped          ActivityType = "automation_execution_skipped"
	ActivityAutomationTaskCreated      ActivityType = "automation_task_created"
	ActivityAutomationNotificationSent ActivityType = "automation_internal_notification_sent"
	ActivityAutomationPropertyUpdated  ActivityType = "automation_property_updated"
	ActivityAutomationCompanyLinked    ActivityType = "automation_company_associated"
)

// ActivitySubtype classifies the channel or origin of an activity.
type ActivitySubtype string

const (
	SubtypeContact ActivitySubtype = "contact"
	SubtypeTask    ActivitySubtype = "task"
	SubtypeNote    ActivitySubtype = "note"
	SubtypeEmail   ActivitySubtype = "email"
	SubtypeCall    ActivitySubtype = "call"
	SubtypeMeeting ActivitySubtype = "meeting"
	SubtypeSystem  ActivitySubtype = "system"
)

// PropertyType enumerates the supported custom field types.
type PropertyType string

const (
	PropertyString  PropertyType = "string"
	PropertyNumber  PropertyType = "number"
	PropertyBoolean PropertyType = "boolean"
	PropertyDate    PropertyType = "date"
	PropertyEnum    PropertyType = "enum"
)

// DealStatus is derived from the current stage's closed flags.
type DealStatus string

const (
	DealOpen DealStatus = "open"
	DealWon  DealStatus = "won"
	DealLost DealStatus = "lost"
)

// TicketStatus is derived from the current stage's closed flag.
type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// TicketPriority is supplied by the caller.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// ValidPriority reports whether p is one of the recognized priorities.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// StepAction is the closed set of workflow step kinds.
type StepAction string

const (
	StepDelay            StepAction = "delay"
	StepCreateTask       StepAction = "create_task"
	StepSendNotification StepAction = "send_internal_notification"
	StepSetProperty      StepAction = "set_contact_property"
	StepAssociateCompany StepAction = "associate_company"
)

// ExecutionStatus is the terminal state of one workflow execution.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
	ExecutionSkipped ExecutionStatus = "skipped"
)

// DeriveDealStatus maps a stage's closed flags to a deal status.
func DeriveDealStatus(stage *PipelineStage) DealStatus {
	switch {
	case stage.IsClosedWon:
		return DealWon
	case stage.IsClosedLost:
		return DealLost
	default:
		return DealOpen
	}
}

// DeriveTicketStatus maps a stage's closed flag to a ticket status.
func DeriveTicketStatus(stage *TicketStage) TicketStatus {
	if stage.IsClosed {
		return TicketClosed
	}
	return TicketOpen
}
