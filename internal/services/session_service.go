package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/go-playground/validator/v10"

	"insightcli/internal/cleaning"
	"insightcli/internal/config"
	"insightcli/internal/dataprocessing"
	"insightcli/internal/dataset"
	apierrors "insightcli/internal/errors"
	"insightcli/internal/impute"
	"insightcli/internal/infrastructure"
	api "insightcli/pkg/contracts/api/v1"
	"insightcli/pkg/contracts/events"
)

// EventPublisher pushes session events to connected WebSocket clients. The
// hub satisfies it; tests substitute a recorder.
type EventPublisher interface {
	Publish(msgType events.MessageType, sessionID string, data interface{}, traceID string)
}

// SessionService owns the cleaning session lifecycle: dataset ingestion,
// profiling, operation dispatch, reset and deletion.
type SessionService struct {
	store    *cleaning.Store
	hub      EventPublisher
	limits   config.LimitsConfig
	validate *validator.Validate
	logger   *slog.Logger
}

// NewSessionService creates a session service with injected dependencies.
// A nil logger falls back to slog.Default().
func NewSessionService(store *cleaning.Store, hub EventPublisher, limits config.LimitsConfig, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		store:    store,
		hub:      hub,
		limits:   limits,
		validate: validator.New(),
		logger:   logger.With(slog.String("service", "session")),
	}
}

// ProfileResult pairs a missingness report with the column classification.
type ProfileResult struct {
	Report         dataprocessing.MissingnessReport `json:"report"`
	Classification dataprocessing.Classification    `json:"classification"`
}

// SessionDetail is the single-session view: summary plus log and metrics.
type SessionDetail struct {
	cleaning.Summary
	Log     []string                      `json:"log"`
	Metrics dataprocessing.DatasetMetrics `json:"metrics"`
}

// ApplyResult is the response to a successful operation: the outcome plus a
// fresh missingness report over the committed snapshot.
type ApplyResult struct {
	Outcome impute.Outcome                   `json:"outcome"`
	Report  dataprocessing.MissingnessReport `json:"report"`
}

// TableResponse is a session's current snapshot as a JSON table.
type TableResponse struct {
	Name    string              `json:"name"`
	Rows    int                 `json:"rows"`
	Columns []api.ColumnPayload `json:"columns"`
}

// Strategies lists the strategies the server advertises. Categorical knn
// only appears when the capability is enabled.
type Strategies struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
}

// Create validates the dataset payload, builds the immutable original
// snapshot and registers a new session.
func (s *SessionService) Create(ctx context.Context, req api.CreateSessionRequest) (cleaning.Summary, error) {
	if err := s.validate.Struct(req); err != nil {
		return cleaning.Summary{}, apierrors.InvalidRequestWithError(err)
	}
	ds, err := s.buildDataset(req)
	if err != nil {
		return cleaning.Summary{}, err
	}

	session := s.store.Create(ctx, req.Name, ds)
	summary := session.Summarize()

	s.hub.Publish(events.MessageTypeSessionCreated, summary.ID, events.SessionEvent{
		SessionID: summary.ID,
		Name:      summary.Name,
		State:     string(summary.State),
		Rows:      summary.Rows,
		Columns:   summary.Columns,
	}, infrastructure.GetTraceID(ctx))

	return summary, nil
}

// buildDataset converts the wire payload into a dataset, enforcing the
// configured size limits and cell types.
func (s *SessionService) buildDataset(req api.CreateSessionRequest) (*dataset.Dataset, error) {
	if len(req.Columns) > s.limits.MaxColumns {
		return nil, apierrors.ErrValidation("columns",
			fmt.Sprintf("dataset has %d columns, limit is %d", len(req.Columns), s.limits.MaxColumns))
	}

	rows := len(req.Columns[0].Values)
	if rows > s.limits.MaxRows {
		return nil, apierrors.ErrValidation("columns",
			fmt.Sprintf("dataset has %d rows, limit is %d", rows, s.limits.MaxRows))
	}

	columns := make([]*dataset.Column, 0, len(req.Columns))
	for _, cp := range req.Columns {
		if len(cp.Values) != rows {
			return nil, apierrors.ErrValidation(cp.Name,
				fmt.Sprintf("column has %d values, expected %d", len(cp.Values), rows))
		}
		col, err := buildColumn(cp)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}

	ds, err := dataset.New(columns...)
	if err != nil {
		// duplicate names and length mismatches land here
		return nil, apierrors.ErrValidation("columns", err.Error())
	}
	return ds, nil
}

func buildColumn(cp api.ColumnPayload) (*dataset.Column, error) {
	missing := make([]bool, len(cp.Values))
	switch dataset.Type(cp.Type) {
	case dataset.Numeric:
		values := make([]float64, len(cp.Values))
		for i, v := range cp.Values {
			if v == nil {
				missing[i] = true
				continue
			}
			f, ok := v.(float64)
			if !ok {
				return nil, apierrors.ErrValidation(cp.Name,
					fmt.Sprintf("row %d: numeric column got %T", i, v))
			}
			values[i] = f
		}
		return dataset.NewNumericColumn(cp.Name, values, missing), nil

	case dataset.Categorical:
		values := make([]string, len(cp.Values))
		for i, v := range cp.Values {
			if v == nil {
				missing[i] = true
				continue
			}
			str, ok := v.(string)
			if !ok {
				return nil, apierrors.ErrValidation(cp.Name,
					fmt.Sprintf("row %d: categorical column got %T", i, v))
			}
			values[i] = str
		}
		return dataset.NewCategoricalColumn(cp.Name, values, missing), nil
	}
	return nil, apierrors.ErrValidation(cp.Name, fmt.Sprintf("unknown column type %q", cp.Type))
}

// Get returns the detailed view of one session.
func (s *SessionService) Get(ctx context.Context, id string) (SessionDetail, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return SessionDetail{}, apierrors.SessionNotFoundError(id)
	}
	return SessionDetail{
		Summary: session.Summarize(),
		Log:     session.Log(),
		Metrics: dataprocessing.Metrics(session.Current()),
	}, nil
}

// List returns session summaries ordered by creation time.
func (s *SessionService) List(ctx context.Context) []cleaning.Summary {
	return s.store.List()
}

// Delete removes a session and notifies clients.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if !s.store.Delete(ctx, id) {
		return apierrors.SessionNotFoundError(id)
	}
	s.hub.Publish(events.MessageTypeSessionDeleted, id, events.SessionEvent{
		SessionID: id,
	}, infrastructure.GetTraceID(ctx))
	return nil
}

// Profile computes the missingness report and classification for a
// session's current snapshot. Percentages are rounded to two decimals at
// this boundary.
func (s *SessionService) Profile(ctx context.Context, id string) (ProfileResult, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return ProfileResult{}, apierrors.SessionNotFoundError(id)
	}
	report, classes := session.Profile()
	return ProfileResult{
		Report:         roundReport(report),
		Classification: classes,
	}, nil
}

// DropCandidates previews the columns exceeding the missing-fraction
// threshold without mutating the session.
func (s *SessionService) DropCandidates(ctx context.Context, id string, threshold float64) ([]impute.DropCandidate, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return nil, apierrors.SessionNotFoundError(id)
	}
	return session.DropCandidates(threshold)
}

// Apply validates and dispatches a cleaning operation, emits the
// operation:applied event on success and returns the outcome together with
// a fresh missingness report.
func (s *SessionService) Apply(ctx context.Context, id string, req api.OperationRequest) (ApplyResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return ApplyResult{}, apierrors.InvalidRequestWithError(err)
	}
	session, ok := s.store.Get(id)
	if !ok {
		return ApplyResult{}, apierrors.SessionNotFoundError(id)
	}

	op, err := s.buildOperation(session, req)
	if err != nil {
		return ApplyResult{}, err
	}

	outcome, err := session.Apply(ctx, op)
	if err != nil {
		return ApplyResult{}, err
	}

	s.hub.Publish(events.MessageTypeOperationApplied, id, events.OperationEvent{
		SessionID:   id,
		Operation:   outcome.Operation,
		Strategy:    outcome.Strategy,
		Columns:     outcome.ModifiedColumns(),
		CellsFilled: outcome.CellsFilled(),
		Dropped:     outcome.Dropped,
		Warnings:    outcome.Warnings,
		Summary:     outcome.LogLine(),
	}, infrastructure.GetTraceID(ctx))

	return ApplyResult{
		Outcome: outcome,
		Report:  roundReport(dataprocessing.Profile(session.Current())),
	}, nil
}

// buildOperation maps the wire request onto a cleaning operation. A
// drop_columns request without an explicit column list selects the
// candidates exceeding params.threshold.
func (s *SessionService) buildOperation(session *cleaning.Session, req api.OperationRequest) (cleaning.Operation, error) {
	op := cleaning.Operation{
		Type:          cleaning.OperationType(req.Type),
		Strategy:      req.Strategy,
		Columns:       req.Columns,
		Constant:      req.Params.Constant,
		FillValue:     req.Params.FillValue,
		K:             req.Params.K,
		UnknownMarker: req.Params.UnknownMarker,
	}
	if op.Type == cleaning.OpDropColumns && len(op.Columns) == 0 {
		if req.Params.Threshold == nil {
			return cleaning.Operation{}, apierrors.ErrValidation("columns",
				"drop_columns needs either a column list or params.threshold")
		}
		candidates, err := session.DropCandidates(*req.Params.Threshold)
		if err != nil {
			return cleaning.Operation{}, err
		}
		for _, c := range candidates {
			op.Columns = append(op.Columns, c.Column)
		}
	}
	if op.K > s.limits.MaxK {
		return cleaning.Operation{}, apierrors.ErrValidation("params.k",
			fmt.Sprintf("k=%d exceeds the configured maximum %d", op.K, s.limits.MaxK))
	}
	if op.Type == cleaning.OpImputeCategorical && op.Strategy == string(impute.CategoricalUnknown) && op.UnknownMarker == "" {
		op.UnknownMarker = s.limits.DefaultUnknownMarker
	}
	return op, nil
}

// History returns the structured operation history of a session.
func (s *SessionService) History(ctx context.Context, id string) ([]cleaning.HistoryEntry, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return nil, apierrors.SessionNotFoundError(id)
	}
	return session.History(), nil
}

// Reset restores the original snapshot and notifies clients.
func (s *SessionService) Reset(ctx context.Context, id string) (cleaning.Summary, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return cleaning.Summary{}, apierrors.SessionNotFoundError(id)
	}
	session.Reset(ctx)
	summary := session.Summarize()

	s.hub.Publish(events.MessageTypeSessionReset, id, events.SessionEvent{
		SessionID: id,
		Name:      summary.Name,
		State:     string(summary.State),
		Rows:      summary.Rows,
		Columns:   summary.Columns,
	}, infrastructure.GetTraceID(ctx))

	return summary, nil
}

// Dataset returns the session's current snapshot as a JSON table. Missing
// cells and non-finite numbers are rendered as nulls.
func (s *SessionService) Dataset(ctx context.Context, id string) (TableResponse, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return TableResponse{}, apierrors.SessionNotFoundError(id)
	}
	ds := session.Current()

	resp := TableResponse{
		Name:    session.Name(),
		Rows:    ds.Rows(),
		Columns: make([]api.ColumnPayload, 0, ds.NumColumns()),
	}
	for _, c := range ds.Columns() {
		cp := api.ColumnPayload{
			Name:   c.Name,
			Type:   string(c.Type),
			Values: make([]interface{}, c.Len()),
		}
		for i := 0; i < c.Len(); i++ {
			if c.IsMissing(i) {
				continue // leave nil
			}
			switch c.Type {
			case dataset.Numeric:
				if v := c.Floats[i]; !math.IsInf(v, 0) && !math.IsNaN(v) {
					cp.Values[i] = v
				}
			case dataset.Categorical:
				cp.Values[i] = c.Strings[i]
			}
		}
		resp.Columns = append(resp.Columns, cp)
	}
	return resp, nil
}

// Strategies returns the advertised strategies under the store's
// capabilities.
func (s *SessionService) Strategies() Strategies {
	out := Strategies{}
	for _, st := range impute.NumericStrategies() {
		out.Numeric = append(out.Numeric, string(st))
	}
	for _, st := range s.store.Capabilities().CategoricalStrategies() {
		out.Categorical = append(out.Categorical, string(st))
	}
	return out
}

// roundReport rounds percentages to two decimals for the wire.
func roundReport(r dataprocessing.MissingnessReport) dataprocessing.MissingnessReport {
	for i := range r.Columns {
		r.Columns[i].MissingPercent = math.Round(r.Columns[i].MissingPercent*100) / 100
	}
	return r
}
