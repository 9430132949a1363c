package cleaning

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"insightcli/internal/dataprocessing"
	"insightcli/internal/dataset"
	"insightcli/internal/impute"
)

// State is the lifecycle position of a cleaning session.
type State string

const (
	StateLoaded           State = "loaded"
	StateProfiled         State = "profiled"
	StateStrategySelected State = "strategy_selected"
	StateApplied          State = "applied"
)

// OperationType identifies a cleaning operation kind.
type OperationType string

const (
	OpImputeNumeric     OperationType = "impute_numeric"
	OpImputeCategorical OperationType = "impute_categorical"
	OpDropColumns       OperationType = "drop_columns"
)

// Valid reports whether t is a known operation type.
func (t OperationType) Valid() bool {
	switch t {
	case OpImputeNumeric, OpImputeCategorical, OpDropColumns:
		return true
	}
	return false
}

// Operation is one cleaning request against a session's current snapshot.
type Operation struct {
	Type     OperationType
	Strategy string
	Columns  []string

	// Constant is the fill value for the numeric constant strategy.
	Constant *float64
	// FillValue is the fill value for the categorical constant strategy;
	// a non-nil pointer marks it as intentionally supplied.
	FillValue *string
	// K is the neighbor count for knn strategies.
	K int
	// UnknownMarker overrides the default sentinel for unknown_marker.
	UnknownMarker string
}

// HistoryEntry is one structured record of a successfully applied operation.
type HistoryEntry struct {
	ID       string         `json:"id"`
	At       time.Time      `json:"at"`
	Type     OperationType  `json:"type"`
	Strategy string         `json:"strategy,omitempty"`
	Columns  []string       `json:"columns,omitempty"`
	Outcome  impute.Outcome `json:"outcome"`
}

// Session is one interactive cleaning workflow over a dataset. All methods
// are safe for concurrent use; mutating operations serialize on the session
// lock.
type Session struct {
	mu sync.Mutex

	id        string
	name      string
	createdAt time.Time
	updatedAt time.Time
	state     State

	original *dataset.Dataset
	current  *dataset.Dataset
	log      []string
	history  []HistoryEntry

	caps   impute.Capabilities
	logger *slog.Logger
	tracer *OperationTracer
}

// NewSession builds a session around ds. The dataset becomes the immutable
// original snapshot; the working copy starts as a clone of it. A nil logger
// falls back to slog.Default().
func NewSession(name string, ds *dataset.Dataset, caps impute.Capabilities, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now()
	return &Session{
		id:        uuid.New().String(),
		name:      name,
		createdAt: now,
		updatedAt: now,
		state:     StateLoaded,
		original:  ds,
		current:   ds.Clone(),
		caps:      caps,
		logger:    logger.With(slog.String("component", "cleaning")),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Name returns the dataset name the session was created with.
func (s *Session) Name() string { return s.name }

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the time of the last state change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the current snapshot. Committed snapshots are never
// mutated after commit, so the returned dataset is safe to read without the
// session lock.
func (s *Session) Current() *dataset.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Original returns the immutable original snapshot.
func (s *Session) Original() *dataset.Dataset { return s.original }

// Log returns a copy of the append-only human-readable operation log.
func (s *Session) Log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

// History returns a copy of the structured operation history.
func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryEntry(nil), s.history...)
}

// Profile computes the missingness report and column classification for the
// current snapshot and moves the session to the Profiled state.
func (s *Session) Profile() (dataprocessing.MissingnessReport, dataprocessing.Classification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report := dataprocessing.Profile(s.current)
	classes := dataprocessing.Classify(s.current)
	s.state = StateProfiled
	s.updatedAt = time.Now()
	return report, classes
}

// DropCandidates previews the columns whose missing fraction strictly
// exceeds fraction. Identification never mutates the snapshot or the state.
func (s *Session) DropCandidates(fraction float64) ([]impute.DropCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return impute.DropByThreshold(s.current, fraction)
}

// Apply validates op, executes it on a copy of the current snapshot and
// commits the result on success. On any error the current snapshot and log
// are unchanged. The call is synchronous: when it returns, the outcome
// reflects the committed state.
func (s *Session) Apply(ctx context.Context, op Operation) (impute.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	ctx, span := s.tracer.StartOperation(ctx, s.id, op)

	outcome, err := s.apply(op)

	s.tracer.RecordOperation(ctx, span, op, time.Since(start), outcome, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "operation rejected",
			slog.String("session_id", s.id),
			slog.String("operation", string(op.Type)),
			slog.String("error", err.Error()))
		return outcome, err
	}
	s.logger.InfoContext(ctx, "operation applied",
		slog.String("session_id", s.id),
		slog.String("operation", string(op.Type)),
		slog.String("strategy", op.Strategy),
		slog.Int("cells_filled", outcome.CellsFilled()),
		slog.Int("columns_dropped", len(outcome.Dropped)))
	return outcome, nil
}

// apply runs under the session lock.
func (s *Session) apply(op Operation) (impute.Outcome, error) {
	if !op.Type.Valid() {
		return impute.Outcome{}, &impute.ValidationError{
			Operation: string(op.Type), Reason: "unknown operation type",
		}
	}
	s.state = StateStrategySelected
	s.updatedAt = time.Now()

	var (
		next    *dataset.Dataset
		outcome impute.Outcome
		err     error
	)
	switch op.Type {
	case OpImputeNumeric:
		next, outcome, err = impute.ImputeNumeric(s.current, op.Columns,
			impute.NumericStrategy(op.Strategy),
			impute.NumericParams{Constant: op.Constant, K: op.K})

	case OpImputeCategorical:
		next, outcome, err = s.applyCategorical(op)

	case OpDropColumns:
		next, outcome, err = impute.ApplyDrop(s.current, op.Columns)
	}
	if err != nil {
		return outcome, err
	}

	s.current = next
	s.state = StateApplied
	s.updatedAt = time.Now()
	s.log = append(s.log, outcome.LogLine())
	s.history = append(s.history, HistoryEntry{
		ID:       uuid.New().String(),
		At:       s.updatedAt,
		Type:     op.Type,
		Strategy: op.Strategy,
		Columns:  append([]string(nil), op.Columns...),
		Outcome:  outcome,
	})
	return outcome, nil
}

// imputeCategorical is replaced in tests to exercise knn failure handling.
var imputeCategorical = impute.ImputeCategorical

// applyCategorical dispatches to the categorical imputer, enforcing the knn
// capability gate and the all-columns-failed fallback: when knn fails for
// every selected column, the whole selection is re-imputed with pure mode.
func (s *Session) applyCategorical(op Operation) (*dataset.Dataset, impute.Outcome, error) {
	strategy := impute.CategoricalStrategy(op.Strategy)
	if strategy == impute.CategoricalKNN && !s.caps.CategoricalKNN {
		return nil, impute.Outcome{}, &impute.ValidationError{
			Operation: string(op.Type),
			Reason:    "categorical knn is not available in this build",
		}
	}
	params := impute.CategoricalParams{K: op.K, UnknownMarker: op.UnknownMarker}
	if op.FillValue != nil {
		params.FillValue = *op.FillValue
		params.FillValueSet = true
	}

	next, outcome, err := imputeCategorical(s.current, op.Columns, strategy, params)
	if err == impute.ErrAllColumnsFailed {
		warnings := outcome.Warnings
		next, outcome, err = impute.ImputeCategorical(s.current, op.Columns,
			impute.CategoricalMode, impute.CategoricalParams{})
		if err != nil {
			return nil, outcome, err
		}
		outcome.Strategy = op.Strategy
		outcome.Warnings = append(warnings, append(outcome.Warnings,
			"knn failed for all selected columns; applied mode to all of them")...)
	}
	return next, outcome, err
}

// Reset discards all applied operations: the current snapshot becomes a
// fresh clone of the original, the log and history are cleared and the
// session returns to the Loaded state. Reachable from any state.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.original.Clone()
	s.log = nil
	s.history = nil
	s.state = StateLoaded
	s.updatedAt = time.Now()
	s.logger.InfoContext(ctx, "session reset", slog.String("session_id", s.id))
}

// setTracer attaches operation instrumentation. Called by the store before
// the session is handed out.
func (s *Session) setTracer(t *OperationTracer) { s.tracer = t }

// Summary is the listing view of a session.
type Summary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	State      State     `json:"state"`
	Rows       int       `json:"rows"`
	Columns    int       `json:"columns"`
	Missing    int       `json:"missing_cells"`
	Operations int       `json:"operations"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summarize returns the listing view of the session.
func (s *Session) Summarize() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		ID:         s.id,
		Name:       s.name,
		State:      s.state,
		Rows:       s.current.Rows(),
		Columns:    s.current.NumColumns(),
		Missing:    s.current.TotalMissing(),
		Operations: len(s.history),
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
	}
}
