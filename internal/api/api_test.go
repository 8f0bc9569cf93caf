package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/relata/relata/internal/commands"
	"github.com/relata/relata/internal/health"
	"github.com/relata/relata/internal/platform/clock"
	"github.com/relata/relata/internal/store/sqlite"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	st, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	svcs := commands.NewServices(st, clock.NewMonotonic())
	return NewRouter(st, svcs, health.NewService(), 100)
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createWorkspace(t *testing.T, router *mux.Router) string {
	t.Helper()
	rec := doJSON(t, router, "POST", "/api/workspaces", map[string]string{"name": "acme"})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode(t, rec)["workspaceId"].(string)
}

func createContact(t *testing.T, router *mux.Router, ws string) string {
	t.Helper()
	rec := doJSON(t, router, "POST", "/api/workspaces/"+ws+"/contacts", map[string]interface{}{
		"actorId": "user-1", "email": "jo@example.com", "firstName": "Jo",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode(t, rec)["contact"].(map[string]interface{})["contactId"].(string)
}

func TestCreateContactReturnsActivity(t *testing.T) {
	router := newTestRouter(t)
	ws := createWorkspace(t, router)

	rec := doJSON(t, router, "POST", "/api/workspaces/"+ws+"/contacts", map[string]interface{}{
		"actorId": "user-1", "email": "jo@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	require.NotEmpty(t, body["contact"].(map[string]interface{})["contactId"])
	require.Equal(t, "contact_created", body["activity"].(map[string]interface{})["type"])
}

func TestCreateContactRequiresActor(t *testing.T) {
	router := newTestRouter(t)
	ws := createWorkspace(t, router)

	rec := doJSON(t, router, "POST", "/api/workspaces/"+ws+"/contacts", map[string]interface{}{
		"email": "jo@example.com",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidJSONRejected(t *testing.T) {
	router := newTestRouter(t)
	ws := createWorkspace(t, router)

	req := httptest.NewRequest("POST", "/api/workspaces/"+ws+"/contacts", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMissingContactIs404(t *testing.T) {
	router := newTestRouter(t)
	ws := createWorkspace(t, router)

	rec := doJSON(t, router, "GET", "/api/workspaces/"+ws+"/contacts/no-such-contact", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDoubleArchiveIsConflict(t *testing.T) {
	router := newTestRouter(t)
	ws := createWorkspace(t, router)
	contact := createContact(t, router, ws)

	rec := doJSON(t, router, "POST", "/api/workspaces/"+ws+"/contacts/"+contact+"/archive", map[string]string{"actorId": "user-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "POST", "/api/workspaces/"+ws+"/contacts/"+contact+"/archive", map[string]string{"actorId": "user-1"})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestPropertyRoundTrip(t *testing.T) {
	router := newTestRouter(t)
	ws := createWorkspace(t, router)
	contact := createContact(t, router, ws)

	rec := doJSON(t, router, "POST", "/api/workspaces/"+ws+"/properties", map[string]interface{}{
		"actorId": "user-1", "key": "tier", "label": "Tier", "type": "enum", "options": []string{"silver", "gold"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, "PUT", "/api/workspaces/"+ws+"/contacts/"+contact+"/properties/tier", map[string]interface{}{
		"actorId": "user-1", "value": "gold",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/api/workspaces/"+ws+"/contacts/"+contact+"/properties", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	values := decode(t, rec)["values"].(map[string]interface{})
	require.Equal(t, "gold", values["tier"])

	// A value outside the enum never lands.
	rec = doJSON(t, router, "PUT", "/api/workspaces/"+ws+"/contacts/"+contact+"/properties/tier", map[string]interface{}{
		"actorId": "user-1", "value": "platinum",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimelinePagination(t *testing.T) {
	router := newTestRouter(t)
	ws := createWorkspace(t, router)
	contact := createContact(t, router, ws)

	for i := 0; i < 4; i++ {
		rec := doJSON(t, router, "PATCH", "/api/workspaces/"+ws+"/contacts/"+contact, map[string]interface{}{
			"actorId": "user-1", "firstName": fmt.Sprintf("name-%d", i),
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, router, "GET", "/api/workspaces/"+ws+"/contacts/"+contact+"/timeline?limit=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	page1 := body["activities"].([]interface{})
	require.Len(t, page1, 3)
	cursor := body["nextCursor"].(string)

	rec = doJSON(t, router, "GET", "/api/workspaces/"+ws+"/contacts/"+contact+"/timeline?limit=3&cursor="+cursor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page2 := decode(t, rec)["activities"].([]interface{})
	require.Len(t, page2, 2)

	seen := map[string]bool{}
	for _, raw := range append(page1, page2...) {
		id := raw.(map[string]interface{})["activityId"].(string)
		require.False(t, seen[id], "duplicate activity across pages")
		seen[id] = true
	}
}

func TestWorkflowLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	ws := createWorkspace(t, router)

	rec := doJSON(t, router, "POST", "/api/workspaces/"+ws+"/workflows", map[string]interface{}{
		"actorId":      "user-1",
		"name":         "welcome",
		"triggerTypes": []string{"contact_created"},
		"steps": []map[string]interface{}{
			{"stepOrder": 1, "actionType": "create_task", "config": map[string]interface{}{"title": "say hi"}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	wfID := body["workflowId"].(string)
	require.Equal(t, false, body["enabled"])

	rec = doJSON(t, router, "POST", "/api/workspaces/"+ws+"/workflows/"+wfID+"/enable", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "POST", "/api/workspaces/"+ws+"/workflows/"+wfID+"/enable", map[string]string{"actorId": "user-1"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, "GET", "/api/workspaces/"+ws+"/workflows/"+wfID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decode(t, rec)["enabled"])

	rec = doJSON(t, router, "GET", "/api/workspaces/"+ws+"/workflows/"+wfID+"/steps", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode(t, rec)["steps"].([]interface{}), 1)
}

func TestUnknownWorkflowActionRejected(t *testing.T) {
	router := newTestRouter(t)
	ws := createWorkspace(t, router)

	rec := doJSON(t, router, "POST", "/api/workspaces/"+ws+"/workflows", map[string]interface{}{
		"actorId":      "user-1",
		"name":         "bad",
		"triggerTypes": []string{"contact_created"},
		"steps": []map[string]interface{}{
			{"stepOrder": 1, "actionType": "launch_rocket", "config": map[string]interface{}{}},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/api/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
