package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relata/relata/internal/api/respond"
	"github.com/relata/relata/internal/model"
	"github.com/relata/relata/internal/store"
)

// WorkspaceHandler is a thin HTTP transport over the workspace repository.
type WorkspaceHandler struct {
	store store.Store
}

func NewWorkspaceHandler(s store.Store) *WorkspaceHandler { return &WorkspaceHandler{store: s} }

// CreateWorkspace POST /api/workspaces
func (h *WorkspaceHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.Name == "" {
		respond.WriteBadRequest(w, "name is required")
		return
	}
	ws, err := h.store.Workspaces().Create(r.Context(), &model.Workspace{
		WorkspaceID:  uuid.New().String(),
		Name:         req.Name,
		CreationTime: time.Now().UTC(),
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, ws)
}

// GetWorkspace GET /api/workspaces/{workspaceId}
func (h *WorkspaceHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := h.store.Workspaces().Get(r.Context(), mux.Vars(r)["workspaceId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, ws)
}
