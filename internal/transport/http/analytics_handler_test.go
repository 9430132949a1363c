package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "insightcli/internal/errors"
	"insightcli/internal/impute"
)

func TestAnalyticsEndpoints(t *testing.T) {
	router := newTestRouter(t, impute.Capabilities{})
	id := createSurveySession(t, router)

	t.Run("describe", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/analytics/describe", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.EqualValues(t, 1, body["count"], "only the numeric column is described")
		cols := body["columns"].([]interface{})
		age := cols[0].(map[string]interface{})
		assert.Equal(t, "age", age["column"])
		assert.EqualValues(t, 3, age["count"])
		assert.InDelta(t, 32.0, age["mean"].(float64), 1e-9)
	})

	t.Run("correlation default method", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/analytics/correlation", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "pearson", body["method"])
	})

	t.Run("correlation invalid method", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/analytics/correlation?method=cosine", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apierrors.TypeValidation, decodeBody(t, rec)["type"])
	})

	t.Run("value counts", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/analytics/value-counts?column=city", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "city", body["column"])
		counts := body["counts"].([]interface{})
		first := counts[0].(map[string]interface{})
		assert.Equal(t, "NY", first["value"])
		assert.EqualValues(t, 2, first["count"])
	})

	t.Run("value counts unknown column", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/analytics/value-counts?column=ghost", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, apierrors.TypeNotFound, decodeBody(t, rec)["type"])
	})

	t.Run("value counts missing column param", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/analytics/value-counts", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("value counts bad top", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/analytics/value-counts?column=city&top=-1", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("dtypes", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/analytics/dtypes", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 3, decodeBody(t, rec)["count"])
	})

	t.Run("metrics", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/analytics/metrics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.EqualValues(t, 4, body["rows"])
		assert.EqualValues(t, 5, body["missing_cells"])
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/sessions/nope/analytics/describe", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, apierrors.TypeSessionNotFound, decodeBody(t, rec)["type"])
	})
}
