package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emergency-service/internal/api"
	"emergency-service/internal/config"
	"emergency-service/internal/directory"
	"emergency-service/internal/emergency"
	"emergency-service/internal/events"
	"emergency-service/internal/logging"
	"emergency-service/internal/models"
	"emergency-service/internal/store/memory"
)

type stubDispatcher struct {
	result emergency.DispatchResult
}

func (s *stubDispatcher) Dispatch(ctx context.Context, e models.Emergency, recipients []string) emergency.DispatchResult {
	return s.result
}

func newTestRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	store.AddUser("admin-1", "admin@x", models.RoleAdmin)
	store.AddUser("resp-1", "r1@x", models.RoleResponder)
	store.AddUser("amb-1", "amb@x", models.RoleAmbulance)

	var cfg config.Config
	cfg.API.BasePath = "/api/v0"
	cfg.Emergency.FallbackLatitude = 28.7041
	cfg.Emergency.FallbackLongitude = 77.1025
	cfg.Emergency.OpTimeout = 2 * time.Second

	logger := logging.Discard()
	hub := events.NewHub(16, logger)
	dir := directory.New(store, logger)
	svc := emergency.New(store, dir, &stubDispatcher{result: emergency.DispatchResult{Delivered: true}}, hub, logger, cfg)
	h := api.NewHandler(svc, hub, logger)
	return api.NewRouter(logger, cfg, h), store
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func triggerOne(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v0/emergencies", gin.H{
		"device_id": "dev-1",
		"location":  "Main St",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res emergency.TriggerResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.NotEmpty(t, res.EmergencyID)
	return res.EmergencyID
}

func TestTriggerEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v0/emergencies", gin.H{
		"device_id": "dev-1",
		"location":  "Main St",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var res emergency.TriggerResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.True(t, res.Dispatch.Delivered)

	// Recipients resolved from the registry: responder + ambulance.
	get := doJSON(t, r, http.MethodGet, "/api/v0/emergencies/"+res.EmergencyID, nil)
	require.Equal(t, http.StatusOK, get.Code)
	var e models.Emergency
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &e))
	assert.Equal(t, models.StatusActive, e.Status)
	assert.Equal(t, 2, e.RespondersNotified)
}

func TestTriggerWithExplicitRecipients(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v0/emergencies", gin.H{
		"device_id":  "dev-1",
		"recipients": []string{"only@x"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var res emergency.TriggerResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	get := doJSON(t, r, http.MethodGet, "/api/v0/emergencies/"+res.EmergencyID, nil)
	var e models.Emergency
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &e))
	assert.Equal(t, 1, e.RespondersNotified)
}

func TestGetEmergencyNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/v0/emergencies/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClearEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	id := triggerOne(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v0/emergencies/"+id+"/clear", gin.H{"actor": "admin-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	get := doJSON(t, r, http.MethodGet, "/api/v0/emergencies/"+id, nil)
	var e models.Emergency
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &e))
	assert.Equal(t, models.StatusCleared, e.Status)
	assert.Equal(t, "admin-1", e.ClearedBy)
}

func TestClearForbiddenForResponder(t *testing.T) {
	r, _ := newTestRouter(t)
	id := triggerOne(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v0/emergencies/"+id+"/clear", gin.H{"actor": "resp-1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	id := triggerOne(t, r)

	w := doJSON(t, r, http.MethodPut, "/api/v0/emergencies/"+id+"/status", gin.H{
		"status": "in-progress",
		"actor":  "amb-1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	bad := doJSON(t, r, http.MethodPut, "/api/v0/emergencies/"+id+"/status", gin.H{
		"status": "bogus",
		"actor":  "amb-1",
	})
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestConfirmEndpointConflicts(t *testing.T) {
	r, _ := newTestRouter(t)
	id := triggerOne(t, r)

	first := doJSON(t, r, http.MethodPost, "/api/v0/emergencies/"+id+"/confirmations", gin.H{
		"responder_id":    "resp-1",
		"responder_email": "r1@x",
	})
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	dup := doJSON(t, r, http.MethodPost, "/api/v0/emergencies/"+id+"/confirmations", gin.H{
		"responder_id":    "resp-1",
		"responder_email": "r1@x",
	})
	assert.Equal(t, http.StatusConflict, dup.Code)

	clear := doJSON(t, r, http.MethodPost, "/api/v0/emergencies/"+id+"/clear", gin.H{"actor": "admin-1"})
	require.Equal(t, http.StatusOK, clear.Code)

	late := doJSON(t, r, http.MethodPost, "/api/v0/emergencies/"+id+"/confirmations", gin.H{
		"responder_id":    "resp-2",
		"responder_email": "r2@x",
	})
	assert.Equal(t, http.StatusConflict, late.Code)
}

func TestListActiveEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	id1 := triggerOne(t, r)
	id2 := triggerOne(t, r)

	clear := doJSON(t, r, http.MethodPost, "/api/v0/emergencies/"+id1+"/clear", gin.H{"actor": "admin-1"})
	require.Equal(t, http.StatusOK, clear.Code)

	w := doJSON(t, r, http.MethodGet, "/api/v0/emergencies/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Emergency
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, id2, list[0].ID)
}

func TestResponderEmailsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v0/responders/emails", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Emails []string `json:"emails"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.ElementsMatch(t, []string{"r1@x", "amb@x"}, res.Emails)
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
