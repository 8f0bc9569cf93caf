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

// PropertyHandler is a thin HTTP transport over PropertyService.
type PropertyHandler struct {
	svc *commands.PropertyService
}

func NewPropertyHandler(svc *commands.PropertyService) *PropertyHandler {
	return &PropertyHandler{svc: svc}
}

// CreateDefinition POST /api/workspaces/{workspaceId}/properties
func (h *PropertyHandler) CreateDefinition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID  string             `json:"actorId"`
		Key      string             `json:"key"`
		Label    string             `json:"label"`
		Type     model.PropertyType `json:"type"`
		Options  []string           `json:"options"`
		Required bool               `json:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	def, err := h.svc.CreateDefinition(r.Context(), commands.CreateDefinitionRequest{
		WorkspaceID: mux.Vars(r)["workspaceId"],
		ActorID:     req.ActorID,
		Key:         req.Key,
		Label:       req.Label,
		Type:        req.Type,
		Options:     req.Options,
		Required:    req.Required,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, def)
}

// ListDefinitions GET /api/workspaces/{workspaceId}/properties
func (h *PropertyHandler) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.svc.ListDefinitions(r.Context(), mux.Vars(r)["workspaceId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"properties": defs, "count": len(defs)})
}

// SetProperty PUT /api/workspaces/{workspaceId}/contacts/{contactId}/properties/{key}
// A null value clears the property; history keeps every row.
func (h *PropertyHandler) SetProperty(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID    string      `json:"actorId"`
		Value      interface{} `json:"value"`
		OccurredAt *time.Time  `json:"occurredAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	val, activity, err := h.svc.Set(r.Context(), commands.SetPropertyRequest{
		WorkspaceID: vars["workspaceId"],
		ContactID:   vars["contactId"],
		ActorID:     req.ActorID,
		Key:         vars["key"],
		Value:       req.Value,
		OccurredAt:  req.OccurredAt,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"value": val, "activity": activity})
}

// ClearProperty DELETE /api/workspaces/{workspaceId}/contacts/{contactId}/properties/{key}?actorId=
func (h *PropertyHandler) ClearProperty(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	val, activity, err := h.svc.Clear(r.Context(), vars["workspaceId"], vars["contactId"], r.URL.Query().Get("actorId"), vars["key"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"value": val, "activity": activity})
}

// GetCurrentValues GET /api/workspaces/{workspaceId}/contacts/{contactId}/properties
func (h *PropertyHandler) GetCurrentValues(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	values, err := h.svc.CurrentValues(r.Context(), vars["workspaceId"], vars["contactId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"values": values})
}
