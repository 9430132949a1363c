package http

import (
	"context"

	"insightcli/internal/cleaning"
	"insightcli/internal/dataprocessing"
	"insightcli/internal/impute"
	"insightcli/internal/services"
	api "insightcli/pkg/contracts/api/v1"
)

// SessionServiceInterface defines the interface for session operations
type SessionServiceInterface interface {
	Create(ctx context.Context, req api.CreateSessionRequest) (cleaning.Summary, error)
	List(ctx context.Context) []cleaning.Summary
	Get(ctx context.Context, id string) (services.SessionDetail, error)
	Delete(ctx context.Context, id string) error
	Profile(ctx context.Context, id string) (services.ProfileResult, error)
	DropCandidates(ctx context.Context, id string, threshold float64) ([]impute.DropCandidate, error)
	Apply(ctx context.Context, id string, req api.OperationRequest) (services.ApplyResult, error)
	History(ctx context.Context, id string) ([]cleaning.HistoryEntry, error)
	Reset(ctx context.Context, id string) (cleaning.Summary, error)
	Dataset(ctx context.Context, id string) (services.TableResponse, error)
	Strategies() services.Strategies
}

// AnalyticsServiceInterface defines the interface for snapshot analytics
type AnalyticsServiceInterface interface {
	Describe(ctx context.Context, id string) ([]services.DescribeEntry, error)
	Correlation(ctx context.Context, id, method string) (services.CorrelationResponse, error)
	ValueCounts(ctx context.Context, id, column string, top int) (dataprocessing.ValueCountsResult, error)
	Dtypes(ctx context.Context, id string) ([]dataprocessing.ColumnDtype, error)
	Metrics(ctx context.Context, id string) (dataprocessing.DatasetMetrics, error)
}
