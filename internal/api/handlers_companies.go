package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/relata/relata/internal/api/respond"
	"github.com/relata/relata/internal/commands"
)

// CompanyHandler is a thin HTTP transport over CompanyService.
type CompanyHandler struct {
	svc *commands.CompanyService
}

func NewCompanyHandler(svc *commands.CompanyService) *CompanyHandler {
	return &CompanyHandler{svc: svc}
}

// CreateCompany POST /api/workspaces/{workspaceId}/companies
// contactId names the contact whose timeline receives the creation event.
func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID    string     `json:"actorId"`
		ContactID  string     `json:"contactId"`
		Name       string     `json:"name"`
		Domain     *string    `json:"domain"`
		Industry   *string    `json:"industry"`
		SizeRange  *string    `json:"sizeRange"`
		Website    *string    `json:"website"`
		OccurredAt *time.Time `json:"occurredAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	company, activity, err := h.svc.Create(r.Context(), commands.CreateCompanyRequest{
		WorkspaceID: mux.Vars(r)["workspaceId"],
		ContactID:   req.ContactID,
		ActorID:     req.ActorID,
		Name:        req.Name,
		Domain:      req.Domain,
		Industry:    req.Industry,
		SizeRange:   req.SizeRange,
		Website:     req.Website,
		OccurredAt:  req.OccurredAt,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{"company": company, "activity": activity})
}

// GetCompany GET /api/workspaces/{workspaceId}/companies/{companyId}
func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	co, err := h.svc.Get(r.Context(), vars["workspaceId"], vars["companyId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, co)
}

// ArchiveCompany POST /api/workspaces/{workspaceId}/companies/{companyId}/archive
func (h *CompanyHandler) ArchiveCompany(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID   string `json:"actorId"`
		ContactID string `json:"contactId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	activity, err := h.svc.Archive(r.Context(), vars["workspaceId"], vars["companyId"], req.ContactID, req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"activity": activity})
}

// AssociateCompany POST /api/workspaces/{workspaceId}/contacts/{contactId}/companies/{companyId}
func (h *CompanyHandler) AssociateCompany(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID string `json:"actorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	assoc, activity, err := h.svc.Associate(r.Context(), vars["workspaceId"], vars["contactId"], vars["companyId"], req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{"association": assoc, "activity": activity})
}

// DisassociateCompany DELETE /api/workspaces/{workspaceId}/contacts/{contactId}/companies/{companyId}?actorId=
func (h *CompanyHandler) DisassociateCompany(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	activity, err := h.svc.Disassociate(r.Context(), vars["workspaceId"], vars["contactId"], vars["companyId"], r.URL.Query().Get("actorId"))
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"activity": activity})
}

// ListContactCompanies GET /api/workspaces/{workspaceId}/contacts/{contactId}/companies
func (h *CompanyHandler) ListContactCompanies(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assocs, err := h.svc.AssociationsForContact(r.Context(), vars["workspaceId"], vars["contactId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"associations": assocs, "count": len(assocs)})
}
