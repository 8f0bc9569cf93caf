package api

import (
	"github.com/gorilla/mux"

	"github.com/relata/relata/internal/api/recovery"
	"github.com/relata/relata/internal/commands"
	"github.com/relata/relata/internal/health"
	"github.com/relata/relata/internal/store"
)

// NewRouter wires every HTTP route over the command services. maxPageSize
// caps the timeline page size; zero means the default cap.
func NewRouter(s store.Store, svcs *commands.Services, healthSvc *health.Service, maxPageSize int) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	healthHandler := NewHealthHandler(healthSvc)
	workspaceHandler := NewWorkspaceHandler(s)
	contactHandler := NewContactHandler(svcs.Contacts, maxPageSize)
	propertyHandler := NewPropertyHandler(svcs.Properties)
	companyHandler := NewCompanyHandler(svcs.Companies)
	pipelineHandler := NewPipelineHandler(svcs.Pipelines)
	dealHandler := NewDealHandler(svcs.Deals)
	ticketHandler := NewTicketHandler(svcs.Tickets)
	workflowHandler := NewWorkflowHandler(svcs.Workflows)
	activityHandler := NewActivityHandler(s)

	// Health endpoints
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.HandleFunc("/api/health/ready", healthHandler.CheckReadiness).Methods("GET")

	// Workspace endpoints
	router.HandleFunc("/api/workspaces", workspaceHandler.CreateWorkspace).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}", workspaceHandler.GetWorkspace).Methods("GET")

	// Contact endpoints
	router.HandleFunc("/api/workspaces/{workspaceId}/contacts", contactHandler.CreateContact).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/contacts", contactHandler.ListContacts).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/contacts/{contactId}", contactHandler.GetContact).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/contacts/{contactId}", contactHandler.UpdateContact).Methods("PATCH")
	router.HandleFunc("/api/workspaces/{workspaceId}/contacts/{contactId}/archive", contactHandler.ArchiveContact).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/contacts/{contactId}/merge", contactHandler.MergeContacts).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/contacts/{contactId}/timeline", contactHandler.GetTimeline).Methods("GET")

	// Property definition and value endpoints
	router.HandleFunc("/api/workspaces/{workspaceId}/properties", propertyHandler.CreateDefinition).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/properties", propertyHandler.ListDefinitions).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/contacts/{contactId}/properties", propertyHandler.GetCurrentValues).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/contacts/{contactId}/properties/{key}", propertyHandler.SetProperty).Methods("PUT")
	router.HandleFunc("/api/workspaces/{workspaceId}/contacts/{contactId}/properties/{key}", propertyHandler.ClearProperty).Methods("DELETE")

	// Company endpoints
	router.HandleFunc("/api/workspaces/{workspaceId}/companies", companyHandler.CreateCompany).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/companies/{companyId}", companyHandler.GetCompany).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/companies/{companyId}/archive", companyHandler.ArchiveCompany).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/contacts/{contactId}/companies", companyHandler.ListContactCompanies).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/contacts/{contactId}/companies/{companyId}", companyHandler.AssociateCompany).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/contacts/{contactId}/companies/{companyId}", companyHandler.DisassociateCompany).Methods("DELETE")

	// Pipeline setup endpoints
	router.HandleFunc("/api/workspaces/{workspaceId}/pipelines", pipelineHandler.CreatePipeline).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/pipelines/{pipelineId}/stages", pipelineHandler.CreateStage).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/ticket-pipelines", pipelineHandler.CreateTicketPipeline).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/ticket-pipelines/{pipelineId}/stages", pipelineHandler.CreateTicketStage).Methods("POST")

	// Deal endpoints
	router.HandleFunc("/api/workspaces/{workspaceId}/deals", dealHandler.CreateDeal).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/deals/{dealId}", dealHandler.GetDeal).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/deals/{dealId}/stage", dealHandler.ChangeDealStage).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/deals/{dealId}/archive", dealHandler.ArchiveDeal).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/deals/{dealId}/contacts", dealHandler.ListDealContacts).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/deals/{dealId}/contacts/{contactId}", dealHandler.AssociateDealContact).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/deals/{dealId}/contacts/{contactId}", dealHandler.DisassociateDealContact).Methods("DELETE")

	// Ticket endpoints
	router.HandleFunc("/api/workspaces/{workspaceId}/tickets", ticketHandler.CreateTicket).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/tickets/{ticketId}", ticketHandler.GetTicket).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/tickets/{ticketId}/stage", ticketHandler.ChangeTicketStage).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/tickets/{ticketId}/archive", ticketHandler.ArchiveTicket).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/tickets/{ticketId}/contacts", ticketHandler.ListTicketContacts).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/tickets/{ticketId}/contacts/{contactId}", ticketHandler.AssociateTicketContact).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/tickets/{ticketId}/contacts/{contactId}", ticketHandler.DisassociateTicketContact).Methods("DELETE")

	// Workflow endpoints
	router.HandleFunc("/api/workspaces/{workspaceId}/workflows", workflowHandler.CreateWorkflow).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/workflows", workflowHandler.ListWorkflows).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/workflows/{workflowId}", workflowHandler.GetWorkflow).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/workflows/{workflowId}/steps", workflowHandler.ListWorkflowSteps).Methods("GET")
	router.HandleFunc("/api/workspaces/{workspaceId}/workflows/{workflowId}/enable", workflowHandler.EnableWorkflow).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/workflows/{workflowId}/disable", workflowHandler.DisableWorkflow).Methods("POST")
	router.HandleFunc("/api/workspaces/{workspaceId}/workflows/{workflowId}/archive", workflowHandler.ArchiveWorkflow).Methods("POST")

	// Activity read endpoint
	router.HandleFunc("/api/workspaces/{workspaceId}/activities/{activityId}", activityHandler.GetActivity).Methods("GET")

	return router
}
