package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "insightcli/internal/errors"
	api "insightcli/pkg/contracts/api/v1"
)

// SessionHandler handles session lifecycle and operation HTTP requests
// with RFC 7807 compliance.
type SessionHandler struct {
	service      SessionServiceInterface
	analytics    *AnalyticsHandler
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSessionHandler creates a new session handler. The analytics handler is
// mounted under each session's /analytics sub-resource.
func NewSessionHandler(service SessionServiceInterface, analytics *AnalyticsHandler, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SessionHandler {
	return &SessionHandler{
		service:      service,
		analytics:    analytics,
		logger:       logger.With(slog.String("handler", "session")),
		errorHandler: errorHandler,
	}
}

// Routes returns the session routes with proper Chi patterns
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.CreateSession)
	r.Get("/", h.ListSessions)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.SessionCtx)
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Get("/profile", h.GetProfile)
		r.Get("/dataset", h.GetDataset)
		r.Get("/drop-candidates", h.GetDropCandidates)
		r.Post("/operations", h.ApplyOperation)
		r.Get("/operations", h.GetHistory)
		r.Post("/reset", h.ResetSession)

		if h.analytics != nil {
			r.Mount("/analytics", h.analytics.Routes())
		}
	})

	return r
}

// SessionCtx middleware validates the session id parameter
func (h *SessionHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "Session id is required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest,
			"INVALID_REQUEST",
			"Invalid request body",
			map[string]interface{}{"error": err.Error()},
		))
		return
	}

	summary, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "session created",
		slog.String("session_id", summary.ID),
		slog.Int("rows", summary.Rows),
		slog.Int("columns", summary.Columns),
	)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, summary)
}

// ListSessions handles GET /api/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.service.List(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, detail)
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "session deleted", slog.String("session_id", id))
	render.NoContent(w, r)
}

// GetProfile handles GET /api/sessions/{id}/profile
func (h *SessionHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, profile)
}

// GetDataset handles GET /api/sessions/{id}/dataset
func (h *SessionHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	table, err := h.service.Dataset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, table)
}

// GetDropCandidates handles GET /api/sessions/{id}/drop-candidates
func (h *SessionHandler) GetDropCandidates(w http.ResponseWriter, r *http.Request) {
	threshold := 0.5
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("threshold",
				"Threshold must be a number between 0 and 1"))
			return
		}
		threshold = parsed
	}

	candidates, err := h.service.DropCandidates(r.Context(), chi.URLParam(r, "id"), threshold)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"threshold":  threshold,
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// ApplyOperation handles POST /api/sessions/{id}/operations
func (h *SessionHandler) ApplyOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req api.OperationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest,
			"INVALID_REQUEST",
			"Invalid request body",
			map[string]interface{}{"error": err.Error()},
		))
		return
	}

	result, err := h.service.Apply(r.Context(), id, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "operation applied",
		slog.String("session_id", id),
		slog.String("type", req.Type),
		slog.String("strategy", req.Strategy),
		slog.Int("cells_filled", result.Outcome.CellsFilled()),
	)

	render.JSON(w, r, result)
}

// GetHistory handles GET /api/sessions/{id}/operations
func (h *SessionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"operations": history,
		"count":      len(history),
	})
}

// ResetSession handles POST /api/sessions/{id}/reset
func (h *SessionHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	summary, err := h.service.Reset(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "session reset", slog.String("session_id", id))
	render.JSON(w, r, summary)
}

// GetStrategies handles GET /api/strategies
func (h *SessionHandler) GetStrategies(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Strategies())
}
