package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/relata/relata/internal/api/respond"
	"github.com/relata/relata/internal/commands"
)

// DealHandler is a thin HTTP transport over DealService.
type DealHandler struct {
	svc *commands.DealService
}

func NewDealHandler(svc *commands.DealService) *DealHandler { return &DealHandler{svc: svc} }

// CreateDeal POST /api/workspaces/{workspaceId}/deals
func (h *DealHandler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID          string     `json:"actorId"`
		PrimaryContactID string     `json:"primaryContactId"`
		Name             string     `json:"name"`
		Amount           *float64   `json:"amount"`
		Currency         *string    `json:"currency"`
		PipelineID       string     `json:"pipelineId"`
		StageID          string     `json:"stageId"`
		OccurredAt       *time.Time `json:"occurredAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	deal, acts, err := h.svc.Create(r.Context(), commands.CreateDealRequest{
		WorkspaceID:      mux.Vars(r)["workspaceId"],
		ActorID:          req.ActorID,
		PrimaryContactID: req.PrimaryContactID,
		Name:             req.Name,
		Amount:           req.Amount,
		Currency:         req.Currency,
		PipelineID:       req.PipelineID,
		StageID:          req.StageID,
		OccurredAt:       req.OccurredAt,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{"deal": deal, "activities": acts})
}

// GetDeal GET /api/workspaces/{workspaceId}/deals/{dealId}
func (h *DealHandler) GetDeal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deal, err := h.svc.Get(r.Context(), vars["workspaceId"], vars["dealId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, deal)
}

// ChangeDealStage POST /api/workspaces/{workspaceId}/deals/{dealId}/stage
func (h *DealHandler) ChangeDealStage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID string `json:"actorId"`
		StageID string `json:"stageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	deal, acts, err := h.svc.ChangeStage(r.Context(), vars["workspaceId"], vars["dealId"], req.StageID, req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"deal": deal, "activities": acts})
}

// ArchiveDeal POST /api/workspaces/{workspaceId}/deals/{dealId}/archive
func (h *DealHandler) ArchiveDeal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID string `json:"actorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	activity, err := h.svc.Archive(r.Context(), vars["workspaceId"], vars["dealId"], req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"activity": activity})
}

// AssociateDealContact POST /api/workspaces/{workspaceId}/deals/{dealId}/contacts/{contactId}
func (h *DealHandler) AssociateDealContact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID string `json:"actorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	acts, err := h.svc.Associate(r.Context(), vars["workspaceId"], vars["dealId"], vars["contactId"], req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{"activities": acts})
}

// DisassociateDealContact DELETE /api/workspaces/{workspaceId}/deals/{dealId}/contacts/{contactId}?actorId=
func (h *DealHandler) DisassociateDealContact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	acts, err := h.svc.Disassociate(r.Context(), vars["workspaceId"], vars["dealId"], vars["contactId"], r.URL.Query().Get("actorId"))
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"activities": acts})
}

// ListDealContacts GET /api/workspaces/{workspaceId}/deals/{dealId}/contacts
func (h *DealHandler) ListDealContacts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assocs, err := h.svc.Contacts(r.Context(), vars["workspaceId"], vars["dealId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"associations": assocs, "count": len(assocs)})
}
