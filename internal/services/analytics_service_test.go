package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightcli/internal/cleaning"
	"insightcli/internal/dataset"
	apierrors "insightcli/internal/errors"
	"insightcli/internal/impute"
	api "insightcli/pkg/contracts/api/v1"
)

func newAnalyticsFixture(t *testing.T) (*AnalyticsService, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := cleaning.NewStore(impute.Capabilities{}, logger, nil)
	sessions := NewSessionService(store, &fakeHub{}, testLimits(), logger)

	summary, err := sessions.Create(context.Background(), api.CreateSessionRequest{
		Name: "analytics",
		Columns: []api.ColumnPayload{
			{Name: "x", Type: "numeric", Values: []interface{}{1.0, 2.0, 3.0, 4.0}},
			{Name: "y", Type: "numeric", Values: []interface{}{2.0, 4.0, 6.0, 8.0}},
			{Name: "blank", Type: "numeric", Values: []interface{}{nil, nil, nil, nil}},
			{Name: "fruit", Type: "categorical", Values: []interface{}{"apple", "apple", "pear", nil}},
		},
	})
	require.NoError(t, err)
	return NewAnalyticsService(store, logger), summary.ID
}

func TestAnalyticsService_Describe(t *testing.T) {
	svc, id := newAnalyticsFixture(t)

	entries, err := svc.Describe(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, entries, 3, "categorical columns are excluded")

	x := entries[0]
	assert.Equal(t, "x", x.Column)
	assert.Equal(t, 4, x.Count)
	require.NotNil(t, x.Mean)
	assert.InDelta(t, 2.5, *x.Mean, 1e-9)
	require.NotNil(t, x.Min)
	assert.Equal(t, 1.0, *x.Min)
	require.NotNil(t, x.Max)
	assert.Equal(t, 4.0, *x.Max)

	blank := entries[2]
	assert.Equal(t, 0, blank.Count)
	assert.Nil(t, blank.Mean, "all-missing column renders null stats")
	assert.Nil(t, blank.Std)
}

func TestAnalyticsService_Correlation(t *testing.T) {
	svc, id := newAnalyticsFixture(t)

	resp, err := svc.Correlation(context.Background(), id, "")
	require.NoError(t, err)
	assert.Equal(t, "pearson", resp.Method)
	require.Contains(t, resp.Columns, "x")
	require.Contains(t, resp.Columns, "y")

	// diagonal is 1, perfectly linear pair is 1, all-missing column is null
	for i, col := range resp.Columns {
		if col == "blank" {
			assert.Nil(t, resp.Values[i][i])
			continue
		}
		require.NotNil(t, resp.Values[i][i])
		assert.InDelta(t, 1.0, *resp.Values[i][i], 1e-9)
	}
	xi, yi := indexOf(resp.Columns, "x"), indexOf(resp.Columns, "y")
	require.NotNil(t, resp.Values[xi][yi])
	assert.InDelta(t, 1.0, *resp.Values[xi][yi], 1e-9)

	_, err = svc.Correlation(context.Background(), id, "cosine")
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
}

func TestAnalyticsService_ValueCounts(t *testing.T) {
	svc, id := newAnalyticsFixture(t)

	result, err := svc.ValueCounts(context.Background(), id, "fruit", 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(result.Counts), 2)
	assert.Equal(t, "apple", result.Counts[0].Value)
	assert.Equal(t, 2, result.Counts[0].Count)

	_, err = svc.ValueCounts(context.Background(), id, "", 0)
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)

	_, err = svc.ValueCounts(context.Background(), id, "ghost", 0)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
	assert.Equal(t, "COLUMN_NOT_FOUND", apiErr.ErrorCode)

	_, err = svc.ValueCounts(context.Background(), id, "x", 0)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
}

func TestAnalyticsService_Dtypes(t *testing.T) {
	svc, id := newAnalyticsFixture(t)

	dtypes, err := svc.Dtypes(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, dtypes, 4)
	assert.Equal(t, "x", dtypes[0].Column)
	assert.Equal(t, dataset.Numeric, dtypes[0].Type)
	assert.Equal(t, 4, dtypes[0].NonNull)
	assert.Equal(t, "fruit", dtypes[3].Column)
	assert.Equal(t, dataset.Categorical, dtypes[3].Type)
	assert.Equal(t, 2, dtypes[3].UniqueCount)
}

func TestAnalyticsService_Metrics(t *testing.T) {
	svc, id := newAnalyticsFixture(t)

	m, err := svc.Metrics(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Rows)
	assert.Equal(t, 4, m.Columns)
	assert.Equal(t, 5, m.MissingCells)
	assert.Equal(t, 31.25, m.MissingPercent)
}

func TestAnalyticsService_UnknownSession(t *testing.T) {
	svc, _ := newAnalyticsFixture(t)

	var apiErr *apierrors.APIError
	_, err := svc.Describe(context.Background(), "nope")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)

	_, err = svc.Metrics(context.Background(), "nope")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}

func indexOf(ss []string, want string) int {
	for i, s := range ss {
		if s == want {
			return i
		}
	}
	return -1
}
