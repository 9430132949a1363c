package services

import (
	"context"
	"log/slog"
	"math"
	"net/http"

	"insightcli/internal/cleaning"
	"insightcli/internal/dataprocessing"
	apierrors "insightcli/internal/errors"
)

// AnalyticsService computes overview analytics against a session's current
// snapshot. Statistics that are undefined (NaN) are rendered as JSON nulls.
type AnalyticsService struct {
	store  *cleaning.Store
	logger *slog.Logger
}

// NewAnalyticsService creates an analytics service. A nil logger falls back
// to slog.Default().
func NewAnalyticsService(store *cleaning.Store, logger *slog.Logger) *AnalyticsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsService{
		store:  store,
		logger: logger.With(slog.String("service", "analytics")),
	}
}

// DescribeEntry is the wire form of one column's summary statistics.
type DescribeEntry struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q25    *float64 `json:"q25"`
	Median *float64 `json:"median"`
	Q75    *float64 `json:"q75"`
	Max    *float64 `json:"max"`
}

// CorrelationResponse is the wire form of a correlation matrix. Cells with
// fewer than two pairwise-complete observations are null.
type CorrelationResponse struct {
	Method  string       `json:"method"`
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// Describe returns summary statistics for every numeric column of the
// session's current snapshot.
func (s *AnalyticsService) Describe(ctx context.Context, id string) ([]DescribeEntry, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return nil, apierrors.SessionNotFoundError(id)
	}

	stats := dataprocessing.Describe(session.Current())
	out := make([]DescribeEntry, len(stats))
	for i, cs := range stats {
		out[i] = DescribeEntry{
			Column: cs.Column,
			Count:  cs.Count,
			Mean:   nullable(cs.Mean),
			Std:    nullable(cs.Std),
			Min:    nullable(cs.Min),
			Q25:    nullable(cs.Q25),
			Median: nullable(cs.Median),
			Q75:    nullable(cs.Q75),
			Max:    nullable(cs.Max),
		}
	}
	return out, nil
}

// Correlation computes the pairwise-complete correlation matrix with the
// requested method (pearson, spearman or kendall).
func (s *AnalyticsService) Correlation(ctx context.Context, id, method string) (CorrelationResponse, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return CorrelationResponse{}, apierrors.SessionNotFoundError(id)
	}
	if method == "" {
		method = string(dataprocessing.Pearson)
	}
	m := dataprocessing.CorrelationMethod(method)
	if !m.Valid() {
		return CorrelationResponse{}, apierrors.ErrValidation("method",
			"method must be one of pearson, spearman, kendall")
	}

	matrix, err := dataprocessing.Correlate(session.Current(), m)
	if err != nil {
		return CorrelationResponse{}, apierrors.InvalidRequestWithError(err)
	}

	resp := CorrelationResponse{
		Method:  string(matrix.Method),
		Columns: matrix.Columns,
		Values:  make([][]*float64, len(matrix.Values)),
	}
	for i, row := range matrix.Values {
		resp.Values[i] = make([]*float64, len(row))
		for j, v := range row {
			resp.Values[i][j] = nullable(v)
		}
	}
	return resp, nil
}

// ValueCounts returns the value distribution of a categorical column,
// optionally truncated to the top N values with an "other" rollup.
func (s *AnalyticsService) ValueCounts(ctx context.Context, id, column string, top int) (dataprocessing.ValueCountsResult, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return dataprocessing.ValueCountsResult{}, apierrors.SessionNotFoundError(id)
	}
	if column == "" {
		return dataprocessing.ValueCountsResult{}, apierrors.ErrValidation("column", "column is required")
	}
	ds := session.Current()
	if !ds.HasColumn(column) {
		return dataprocessing.ValueCountsResult{}, apierrors.NewWithDetails(
			http.StatusNotFound, "COLUMN_NOT_FOUND", "Column not found", column)
	}

	result, err := dataprocessing.ValueCounts(ds, column, top)
	if err != nil {
		return dataprocessing.ValueCountsResult{}, apierrors.ErrValidation("column", err.Error())
	}
	return result, nil
}

// Dtypes returns the per-column type and cardinality breakdown.
func (s *AnalyticsService) Dtypes(ctx context.Context, id string) ([]dataprocessing.ColumnDtype, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return nil, apierrors.SessionNotFoundError(id)
	}
	return dataprocessing.DtypeSummary(session.Current()), nil
}

// Metrics returns headline shape and missingness metrics for the snapshot.
func (s *AnalyticsService) Metrics(ctx context.Context, id string) (dataprocessing.DatasetMetrics, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return dataprocessing.DatasetMetrics{}, apierrors.SessionNotFoundError(id)
	}
	m := dataprocessing.Metrics(session.Current())
	m.MissingPercent = math.Round(m.MissingPercent*100) / 100
	return m, nil
}

// nullable converts NaN to a JSON null.
func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
