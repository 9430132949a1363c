package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "insightcli/internal/errors"
)

// AnalyticsHandler serves overview analytics computed against a session's
// current snapshot.
type AnalyticsHandler struct {
	service      AnalyticsServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service AnalyticsServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "analytics")),
		errorHandler: errorHandler,
	}
}

// Routes returns the analytics routes, mounted under a session's
// /analytics sub-resource. The {id} parameter comes from the parent route.
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/describe", h.Describe)
	r.Get("/correlation", h.Correlation)
	r.Get("/value-counts", h.ValueCounts)
	r.Get("/dtypes", h.Dtypes)
	r.Get("/metrics", h.Metrics)

	return r
}

// Describe handles GET /api/sessions/{id}/analytics/describe
func (h *AnalyticsHandler) Describe(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Describe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"columns": entries,
		"count":   len(entries),
	})
}

// Correlation handles GET /api/sessions/{id}/analytics/correlation
func (h *AnalyticsHandler) Correlation(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("method")
	matrix, err := h.service.Correlation(r.Context(), chi.URLParam(r, "id"), method)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, matrix)
}

// ValueCounts handles GET /api/sessions/{id}/analytics/value-counts
func (h *AnalyticsHandler) ValueCounts(w http.ResponseWriter, r *http.Request) {
	column := r.URL.Query().Get("column")

	top := 0
	if raw := r.URL.Query().Get("top"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("top",
				"Top must be a non-negative integer"))
			return
		}
		top = parsed
	}

	result, err := h.service.ValueCounts(r.Context(), chi.URLParam(r, "id"), column, top)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Dtypes handles GET /api/sessions/{id}/analytics/dtypes
func (h *AnalyticsHandler) Dtypes(w http.ResponseWriter, r *http.Request) {
	dtypes, err := h.service.Dtypes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"columns": dtypes,
		"count":   len(dtypes),
	})
}

// Metrics handles GET /api/sessions/{id}/analytics/metrics
func (h *AnalyticsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.Metrics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, metrics)
}
