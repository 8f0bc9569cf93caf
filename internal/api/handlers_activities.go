package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relata/relata/internal/api/respond"
	"github.com/relata/relata/internal/store"
)

// ActivityHandler exposes read access to individual ledger rows. Paging a
// contact's timeline lives on the contact handler.
type ActivityHandler struct {
	store store.Store
}

func NewActivityHandler(s store.Store) *ActivityHandler { return &ActivityHandler{store: s} }

// GetActivity GET /api/workspaces/{workspaceId}/activities/{activityId}
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	a, err := h.store.Activities().Get(r.Context(), vars["workspaceId"], vars["activityId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, a)
}
