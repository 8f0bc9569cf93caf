package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/relata/relata/internal/api/respond"
	"github.com/relata/relata/internal/commands"
	"github.com/relata/relata/internal/model"
)

// TicketHandler is a thin HTTP transport over TicketService.
type TicketHandler struct {
	svc *commands.TicketService
}

func NewTicketHandler(svc *commands.TicketService) *TicketHandler { return &TicketHandler{svc: svc} }

// CreateTicket POST /api/workspaces/{workspaceId}/tickets
func (h *TicketHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID            string               `json:"actorId"`
		RequesterContactID string               `json:"requesterContactId"`
		Name               string               `json:"name"`
		Priority           model.TicketPriority `json:"priority"`
		PipelineID         string               `json:"pipelineId"`
		StageID            string               `json:"stageId"`
		OccurredAt         *time.Time           `json:"occurredAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	ticket, acts, err := h.svc.Create(r.Context(), commands.CreateTicketRequest{
		WorkspaceID:        mux.Vars(r)["workspaceId"],
		ActorID:            req.ActorID,
		RequesterContactID: req.RequesterContactID,
		Name:               req.Name,
		Priority:           req.Priority,
		PipelineID:         req.PipelineID,
		StageID:            req.StageID,
		OccurredAt:         req.OccurredAt,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{"ticket": ticket, "activities": acts})
}

// GetTicket GET /api/workspaces/{workspaceId}/tickets/{ticketId}
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tk, err := h.svc.Get(r.Context(), vars["workspaceId"], vars["ticketId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, tk)
}

// ChangeTicketStage POST /api/workspaces/{workspaceId}/tickets/{ticketId}/stage
func (h *TicketHandler) ChangeTicketStage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID string `json:"actorId"`
		StageID string `json:"stageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	tk, acts, err := h.svc.ChangeStage(r.Context(), vars["workspaceId"], vars["ticketId"], req.StageID, req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"ticket": tk, "activities": acts})
}

// ArchiveTicket POST /api/workspaces/{workspaceId}/tickets/{ticketId}/archive
func (h *TicketHandler) ArchiveTicket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID string `json:"actorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	activity, err := h.svc.Archive(r.Context(), vars["workspaceId"], vars["ticketId"], req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"activity": activity})
}

// AssociateTicketContact POST /api/workspaces/{workspaceId}/tickets/{ticketId}/contacts/{contactId}
func (h *TicketHandler) AssociateTicketContact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID string `json:"actorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	acts, err := h.svc.Associate(r.Context(), vars["workspaceId"], vars["ticketId"], vars["contactId"], req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{"activities": acts})
}

// DisassociateTicketContact DELETE /api/workspaces/{workspaceId}/tickets/{ticketId}/contacts/{contactId}?actorId=
func (h *TicketHandler) DisassociateTicketContact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	acts, err := h.svc.Disassociate(r.Context(), vars["workspaceId"], vars["ticketId"], vars["contactId"], r.URL.Query().Get("actorId"))
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"activities": acts})
}

// ListTicketContacts GET /api/workspaces/{workspaceId}/tickets/{ticketId}/contacts
func (h *TicketHandler) ListTicketContacts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assocs, err := h.svc.Contacts(r.Context(), vars["workspaceId"], vars["ticketId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"associations": assocs, "count": len(assocs)})
}
