package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relata/relata/internal/api/respond"
	"github.com/relata/relata/internal/commands"
	"github.com/relata/relata/internal/model"
)

// PipelineHandler is a thin HTTP transport over PipelineService.
type PipelineHandler struct {
	svc *commands.PipelineService
}

func NewPipelineHandler(svc *commands.PipelineService) *PipelineHandler {
	return &PipelineHandler{svc: svc}
}

// CreatePipeline POST /api/workspaces/{workspaceId}/pipelines
func (h *PipelineHandler) CreatePipeline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID string `json:"actorId"`
		Name    string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	p, err := h.svc.CreatePipeline(r.Context(), mux.Vars(r)["workspaceId"], req.Name, req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, p)
}

// CreateStage POST /api/workspaces/{workspaceId}/pipelines/{pipelineId}/stages
func (h *PipelineHandler) CreateStage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID      string `json:"actorId"`
		Name         string `json:"name"`
		DisplayOrder int    `json:"displayOrder"`
		IsClosedWon  bool   `json:"isClosedWon"`
		IsClosedLost bool   `json:"isClosedLost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	st, err := h.svc.CreateStage(r.Context(), &model.PipelineStage{
		WorkspaceID:  vars["workspaceId"],
		PipelineID:   vars["pipelineId"],
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
		IsClosedWon:  req.IsClosedWon,
		IsClosedLost: req.IsClosedLost,
	}, req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, st)
}

// CreateTicketPipeline POST /api/workspaces/{workspaceId}/ticket-pipelines
func (h *PipelineHandler) CreateTicketPipeline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID string `json:"actorId"`
		Name    string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	p, err := h.svc.CreateTicketPipeline(r.Context(), mux.Vars(r)["workspaceId"], req.Name, req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, p)
}

// CreateTicketStage POST /api/workspaces/{workspaceId}/ticket-pipelines/{pipelineId}/stages
func (h *PipelineHandler) CreateTicketStage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req struct {
		ActorID      string `json:"actorId"`
		Name         string `json:"name"`
		DisplayOrder int    `json:"displayOrder"`
		IsClosed     bool   `json:"isClosed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	st, err := h.svc.CreateTicketStage(r.Context(), &model.TicketStage{
		WorkspaceID:  vars["workspaceId"],
		PipelineID:   vars["pipelineId"],
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
		IsClosed:     req.IsClosed,
	}, req.ActorID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, st)
}
