package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relata/relata/internal/api/respond"
	"github.com/relata/relata/internal/commands"
	"github.com/relata/relata/internal/model"
)

// WorkflowHandler is a thin HTTP transport over WorkflowService.
type WorkflowHandler struct {
	svc *commands.WorkflowService
}

func NewWorkflowHandler(svc *commands.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{svc: svc}
}

// CreateWorkflow POST /api/workspaces/{workspaceId}/workflows
// Workflows are created disabled; enable them explicitly once configured.
func (h *WorkflowHandler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID      string               `json:"actorId"`
		Name         string               `json:"name"`
		TriggerTypes []model.ActivityType `json:"triggerTypes"`
		Steps        []struct {
			StepOrder  int                    `json:"stepOrder"`
			ActionType model.StepAction       `json:"actionType"`
			Config     map[string]interface{} `json:"config"`
		} `json:"steps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	steps := make([]commands.WorkflowStepInput, 0, len(req.Steps))
	for _, st := range req.Steps {
		steps = append(steps, commands.WorkflowStepInput{
			StepOrder:  st.StepOrder,
			ActionType: st.ActionType,
			Config:     st.Config,
		})
	}
	wf, err := h.svc.Create(r.Context(), commands.CreateWorkflowRequest{
		WorkspaceID:  mux.Vars(r)["workspaceId"],
		ActorID:      req.ActorID,
		Name:         req.Name,
		TriggerTypes: req.TriggerTypes,
		Steps:        steps,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, wf)
}

// GetWorkflow GET /api/workspaces/{workspaceId}/workflows/{workflowId}
func (h *WorkflowHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	wf, err := h.svc.Get(r.Context(), vars["workspaceId"], vars["workflowId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, wf)
}

// ListWorkflows GET /api/workspaces/{workspaceId}/workflows
func (h *WorkflowHandler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	wfs, err := h.svc.List(r.Context(), mux.Vars(r)["workspaceId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"workflows": wfs, "count": len(wfs)})
}

// ListWorkflowSteps GET /api/workspaces/{workspaceId}/workflows/{workflowId}/steps
func (h *WorkflowHandler) ListWorkflowSteps(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if _, err := h.svc.Get(r.Context(), vars["workspaceId"], vars["workflowId"]); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	steps, err := h.svc.Steps(r.Context(), vars["workflowId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"steps": steps, "count": len(steps)})
}

// EnableWorkflow POST /api/workspaces/{workspaceId}/workflows/{workflowId}/enable
func (h *WorkflowHandler) EnableWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID string `json:"actorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := h.svc.Enable(r.Context(), vars["workspaceId"], vars["workflowId"], req.ActorID); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DisableWorkflow POST /api/workspaces/{workspaceId}/workflows/{workflowId}/disable
func (h *WorkflowHandler) DisableWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID string `json:"actorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := h.svc.Disable(r.Context(), vars["workspaceId"], vars["workflowId"], req.ActorID); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveWorkflow POST /api/workspaces/{workspaceId}/workflows/{workflowId}/archive
func (h *WorkflowHandler) ArchiveWorkflow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID string `json:"actorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := h.svc.Archive(r.Context(), vars["workspaceId"], vars["workflowId"], req.ActorID); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
