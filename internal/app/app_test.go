package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The prometheus exporter registers on the default registry, so the
// application is built once and shared across tests.
var (
	testAppOnce sync.Once
	testApp     *Application
	testAppErr  error
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	testAppOnce.Do(func() {
		testApp, testAppErr = NewApplication()
	})
	require.NoError(t, testAppErr)
	return testApp
}

func TestNewApplication_Wiring(t *testing.T) {
	application := newTestApplication(t)

	assert.NotNil(t, application.Config)
	assert.NotNil(t, application.Router)
	assert.NotNil(t, application.Server)
	assert.NotNil(t, application.Store)
	assert.NotNil(t, application.WebSocketHub)
	assert.NotNil(t, application.SessionService)
	assert.NotNil(t, application.AnalyticsService)
	assert.NotNil(t, application.HealthService)
}

func TestRouter_HealthAndVersion(t *testing.T) {
	application := newTestApplication(t)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])

	rec = httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_StrategiesEndpoint(t *testing.T) {
	application := newTestApplication(t)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/strategies", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["numeric"], "mean")
}

func TestRouter_SessionLifecycle(t *testing.T) {
	application := newTestApplication(t)

	payload := `{"name":"smoke","columns":[{"name":"v","type":"numeric","values":[1,null,3]}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	id := summary["id"].(string)

	rec = httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_UnknownAPIRouteIsProblemJSON(t *testing.T) {
	application := newTestApplication(t)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "/errors/not-found", problem["type"])
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	application := newTestApplication(t)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetCORSConfig(t *testing.T) {
	application := newTestApplication(t)

	cfg := application.getCORSConfig()
	assert.Equal(t, application.Config.Security.AllowedOrigins, cfg.AllowedOrigins)
	assert.Contains(t, cfg.AllowedMethods, "DELETE")
	assert.True(t, cfg.AllowCredentials)
}
