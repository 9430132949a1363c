package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightcli/internal/cleaning"
	"insightcli/internal/config"
	apierrors "insightcli/internal/errors"
	"insightcli/internal/impute"
	"insightcli/internal/services"
	"insightcli/pkg/contracts/events"
)

type nopPublisher struct{}

func (nopPublisher) Publish(events.MessageType, string, interface{}, string) {}

func newTestRouter(t *testing.T, caps impute.Capabilities) *chi.Mux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := cleaning.NewStore(caps, logger, nil)
	limits := config.LimitsConfig{
		MaxRows:              1000,
		MaxColumns:           50,
		MaxK:                 10,
		DefaultUnknownMarker: "Unknown",
	}

	sessionService := services.NewSessionService(store, nopPublisher{}, limits, logger)
	analyticsService := services.NewAnalyticsService(store, logger)
	errorHandler := apierrors.NewErrorHandler(logger, false)

	analyticsHandler := NewAnalyticsHandler(analyticsService, logger, errorHandler)
	sessionHandler := NewSessionHandler(sessionService, analyticsHandler, logger, errorHandler)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Mount("/sessions", sessionHandler.Routes())
		r.Get("/strategies", sessionHandler.GetStrategies)
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createSurveySession(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/sessions", map[string]interface{}{
		"name": "survey",
		"columns": []map[string]interface{}{
			{"name": "age", "type": "numeric", "values": []interface{}{25, nil, 31, 40}},
			{"name": "city", "type": "categorical", "values": []interface{}{"NY", "LA", nil, "NY"}},
			{"name": "notes", "type": "categorical", "values": []interface{}{nil, nil, nil, "x"}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	id, ok := body["id"].(string)
	require.True(t, ok)
	return id
}

func TestSessionFlow(t *testing.T) {
	router := newTestRouter(t, impute.Capabilities{CategoricalKNN: true})
	id := createSurveySession(t, router)

	// profile reports the gaps
	rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decodeBody(t, rec)
	report, ok := profile["report"].(map[string]interface{})
	require.True(t, ok)
	gaps := report["columns"].([]interface{})
	require.Len(t, gaps, 3)
	age := gaps[0].(map[string]interface{})
	assert.Equal(t, "age", age["column"])
	assert.EqualValues(t, 1, age["missing_count"])

	// mean-impute age
	rec = doJSON(t, router, http.MethodPost, "/api/sessions/"+id+"/operations", map[string]interface{}{
		"type":     "impute_numeric",
		"strategy": "mean",
		"columns":  []string{"age"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// dataset now carries the fill value in the gap
	rec = doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/dataset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	table := decodeBody(t, rec)
	columns := table["columns"].([]interface{})
	ageCol := columns[0].(map[string]interface{})
	values := ageCol["values"].([]interface{})
	require.NotNil(t, values[1])
	assert.InDelta(t, 32.0, values[1].(float64), 1e-9)

	// history shows one operation
	rec = doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/operations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])

	// reset restores the original snapshot
	rec = doJSON(t, router, http.MethodPost, "/api/sessions/"+id+"/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, decodeBody(t, rec)["missing_cells"])

	rec = doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/operations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeBody(t, rec)["count"])

	// delete is a 204 and the session is gone
	rec = doJSON(t, router, http.MethodDelete, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSession_ValidationProblem(t *testing.T) {
	router := newTestRouter(t, impute.Capabilities{})

	rec := doJSON(t, router, http.MethodPost, "/api/sessions", map[string]interface{}{
		"name":    "",
		"columns": []map[string]interface{}{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	problem := decodeBody(t, rec)
	assert.Equal(t, apierrors.TypeValidation, problem["type"])
	assert.EqualValues(t, http.StatusBadRequest, problem["status"])
	assert.NotEmpty(t, problem["title"])
	assert.Equal(t, "/api/sessions", problem["instance"])
}

func TestCreateSession_MalformedBody(t *testing.T) {
	router := newTestRouter(t, impute.Capabilities{})

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.TypeValidation, decodeBody(t, rec)["type"])
}

func TestUnknownSession_NotFoundProblem(t *testing.T) {
	router := newTestRouter(t, impute.Capabilities{})

	rec := doJSON(t, router, http.MethodGet, "/api/sessions/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	problem := decodeBody(t, rec)
	assert.Equal(t, apierrors.TypeSessionNotFound, problem["type"])
	assert.EqualValues(t, http.StatusNotFound, problem["status"])
}

func TestApplyOperation_KnnFallbackProblem(t *testing.T) {
	router := newTestRouter(t, impute.Capabilities{})

	rec := doJSON(t, router, http.MethodPost, "/api/sessions", map[string]interface{}{
		"name": "tiny",
		"columns": []map[string]interface{}{
			{"name": "a", "type": "numeric", "values": []interface{}{1, nil}},
			{"name": "b", "type": "numeric", "values": []interface{}{nil, 2}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody(t, rec)["id"].(string)

	// no complete rows, so knn cannot find donors
	rec = doJSON(t, router, http.MethodPost, "/api/sessions/"+id+"/operations", map[string]interface{}{
		"type":     "impute_numeric",
		"strategy": "knn",
		"columns":  []string{"a"},
		"params":   map[string]interface{}{"k": 2},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	problem := decodeBody(t, rec)
	assert.Equal(t, apierrors.TypeInsufficientData, problem["type"])
	assert.Contains(t, problem, "suggested_fallback")
}

func TestDropCandidates(t *testing.T) {
	router := newTestRouter(t, impute.Capabilities{})
	id := createSurveySession(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/drop-candidates?threshold=0.5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["count"])

	rec = doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/drop-candidates?threshold=1.5", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.TypeValidation, decodeBody(t, rec)["type"])
}

func TestStrategies_CapabilityGate(t *testing.T) {
	withKNN := newTestRouter(t, impute.Capabilities{CategoricalKNN: true})
	rec := doJSON(t, withKNN, http.MethodGet, "/api/strategies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["categorical"], "knn")

	withoutKNN := newTestRouter(t, impute.Capabilities{})
	rec = doJSON(t, withoutKNN, http.MethodGet, "/api/strategies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.NotContains(t, body["categorical"], "knn")
	assert.Contains(t, body["numeric"], "knn")
}
