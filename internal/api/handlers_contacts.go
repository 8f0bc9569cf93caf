package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/relata/relata/internal/api/respond"
	"github.com/relata/relata/internal/commands"
	"github.com/relata/relata/internal/model"
)

// ContactHandler is a thin HTTP transport over ContactService.
type ContactHandler struct {
	svc         *commands.ContactService
	maxPageSize int
}

func NewContactHandler(svc *commands.ContactService, maxPageSize int) *ContactHandler {
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &ContactHandler{svc: svc, maxPageSize: maxPageSize}
}

// CreateContact POST /api/workspaces/{workspaceId}/contacts
func (h *ContactHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID    string     `json:"actorId"`
		Email      *string    `json:"email"`
		FirstName  *string    `json:"firstName"`
		LastName   *string    `json:"lastName"`
		OccurredAt *time.Time `json:"occurredAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	contact, activity, err := h.svc.Create(r.Context(), commands.CreateContactRequest{
		WorkspaceID: mux.Vars(r)["workspaceId"],
		ActorID:     req.ActorID,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		OccurredAt:  req.OccurredAt,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{"contact": contact, "activity": activity})
}

// GetContact GET /api/workspaces/{workspaceId}/contacts/{contactId}
func (h *ContactHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	c, err := h.svc.Get(r.Context(), vars["workspaceId"], vars["contactId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, c)
}

// ListContacts GET /api/workspaces/{workspaceId}/contacts
func (h *ContactHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.List(r.Context(), mux.Vars(r)["workspaceId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"contacts": cs, "count": len(cs)})
}

// UpdateContact PATCH /api/workspaces/{workspaceId}/contacts/{contactId}
func (h *ContactHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID    string     `json:"actorId"`
		Email      *string    `json:"email"`
		FirstName  *string    `json:"firstName"`
		LastName   *string    `json:"lastName"`
		OccurredAt *time.Time `json:"occurredAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	contact, activity, err := h.svc.Update(r.Context(), commands.UpdateContactRequest{
		WorkspaceID: vars["workspaceId"],
		ContactID:   vars["contactId"],
		ActorID:     req.ActorID,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		OccurredAt:  req.OccurredAt,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"contact": contact, "activity": activity})
}

// ArchiveContact POST /api/workspaces/{workspaceId}/contacts/{contactId}/archive
func (h *ContactHandler) ArchiveContact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID string `json:"actorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	activity, err := h.svc.Archive(r.Context(), vars["workspaceId"], vars["contactId"], req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"activity": activity})
}

// MergeContacts POST /api/workspaces/{workspaceId}/contacts/{contactId}/merge
// The path contact is the primary; the body names the secondary.
func (h *ContactHandler) MergeContacts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID            string `json:"actorId"`
		SecondaryContactID string `json:"secondaryContactId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	acts, err := h.svc.Merge(r.Context(), vars["workspaceId"], vars["contactId"], req.SecondaryContactID, req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"activities": acts})
}

// GetTimeline GET /api/workspaces/{workspaceId}/contacts/{contactId}/timeline?limit=&cursor=
func (h *ContactHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respond.WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > h.maxPageSize {
		limit = h.maxPageSize
	}
	acts, err := h.svc.Timeline(r.Context(), model.ListActivitiesRequest{
		WorkspaceID: vars["workspaceId"],
		ContactID:   vars["contactId"],
		Limit:       limit,
		Cursor:      r.URL.Query().Get("cursor"),
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	resp := map[string]interface{}{"activities": acts, "count": len(acts)}
	if len(acts) > 0 {
		resp["nextCursor"] = acts[len(acts)-1].ActivityID
	}
	respond.WriteJSON(w, http.StatusOK, resp)
}
