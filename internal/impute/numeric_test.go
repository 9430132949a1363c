package impute

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightcli/internal/dataset"
)

func mustDataset(t *testing.T, cols ...*dataset.Column) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(cols...)
	require.NoError(t, err)
	return ds
}

func floatPtr(v float64) *float64 { return &v }

func TestImputeNumeric_Mean(t *testing.T) {
	ds := mustDataset(t,
		dataset.NewNumericColumn("age", []float64{25, math.NaN(), 31, 40}, nil),
	)

	out, outcome, err := ImputeNumeric(ds, []string{"age"}, NumericMean, NumericParams{})
	require.NoError(t, err)

	col, _ := out.Column("age")
	assert.Equal(t, 0, col.MissingCount())
	assert.InDelta(t, 32.0, col.Floats[1], 1e-9, "mean of 25, 31, 40")
	// original non-missing values unchanged in position and value
	assert.Equal(t, 25.0, col.Floats[0])
	assert.Equal(t, 31.0, col.Floats[2])
	assert.Equal(t, 40.0, col.Floats[3])

	require.Len(t, outcome.Modified, 1)
	assert.Equal(t, ColumnDelta{Column: "age", Before: 1, After: 0}, outcome.Modified[0])

	// input snapshot untouched
	orig, _ := ds.Column("age")
	assert.Equal(t, 1, orig.MissingCount())
}

func TestImputeNumeric_Median(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd count", []float64{1, math.NaN(), 3, 2}, 2},
		{"even count midpoint", []float64{1, 2, 3, 4, math.NaN()}, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := mustDataset(t, dataset.NewNumericColumn("v", tt.values, nil))
			out, _, err := ImputeNumeric(ds, []string{"v"}, NumericMedian, NumericParams{})
			require.NoError(t, err)
			col, _ := out.Column("v")
			for i := range tt.values {
				if math.IsNaN(tt.values[i]) {
					assert.InDelta(t, tt.want, col.Floats[i], 1e-9)
				}
			}
		})
	}
}

func TestImputeNumeric_ModeTieBreaksToSmallest(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"larger value first", []float64{7, 7, 3, 3, math.NaN()}, 3},
		{"smaller value first", []float64{2, 2, 5, 5, math.NaN()}, 2},
		{"all singletons", []float64{9, 4, 1, math.NaN()}, 1},
		{"clear winner unaffected", []float64{8, 8, 8, 1, math.NaN()}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// repeated runs: the fill must not depend on map iteration order
			for i := 0; i < 100; i++ {
				values := append([]float64(nil), tt.values...)
				ds := mustDataset(t, dataset.NewNumericColumn("v", values, nil))
				out, _, err := ImputeNumeric(ds, []string{"v"}, NumericMode, NumericParams{})
				require.NoError(t, err)
				col, _ := out.Column("v")
				require.Equal(t, tt.want, col.Floats[len(tt.values)-1],
					"tie resolves to the smallest of the most frequent values")
			}
		})
	}
}

func TestImputeNumeric_Constant(t *testing.T) {
	ds := mustDataset(t,
		dataset.NewNumericColumn("a", []float64{math.NaN(), 2}, nil),
		dataset.NewNumericColumn("b", []float64{1, math.NaN()}, nil),
	)

	out, outcome, err := ImputeNumeric(ds, []string{"a", "b"}, NumericConstant, NumericParams{Constant: floatPtr(-1)})
	require.NoError(t, err)

	colA, _ := out.Column("a")
	colB, _ := out.Column("b")
	assert.Equal(t, -1.0, colA.Floats[0])
	assert.Equal(t, -1.0, colB.Floats[1])
	assert.Equal(t, []string{"a", "b"}, outcome.ModifiedColumns())
}

func TestImputeNumeric_AllMissingColumnSkipped(t *testing.T) {
	ds := mustDataset(t,
		dataset.NewNumericColumn("empty", []float64{math.NaN(), math.NaN()}, nil),
	)

	out, outcome, err := ImputeNumeric(ds, []string{"empty"}, NumericMean, NumericParams{})
	require.NoError(t, err, "zero non-missing values must fail silently, not crash")

	col, _ := out.Column("empty")
	assert.Equal(t, 2, col.MissingCount(), "column left unchanged")
	assert.False(t, outcome.Changed())
	assert.Equal(t, []string{"empty"}, outcome.Skipped)
}

func TestImputeNumeric_Idempotent(t *testing.T) {
	ds := mustDataset(t,
		dataset.NewNumericColumn("v", []float64{1, math.NaN(), 3}, nil),
	)

	once, outcome1, err := ImputeNumeric(ds, []string{"v"}, NumericMean, NumericParams{})
	require.NoError(t, err)
	assert.True(t, outcome1.Changed())

	twice, outcome2, err := ImputeNumeric(once, []string{"v"}, NumericMean, NumericParams{})
	require.NoError(t, err)
	assert.False(t, outcome2.Changed(), "second application must report zero columns modified")
	assert.True(t, dataset.Equal(once, twice))
}

func TestImputeNumeric_Validation(t *testing.T) {
	ds := mustDataset(t,
		dataset.NewNumericColumn("v", []float64{1}, nil),
		dataset.NewCategoricalColumn("c", []string{"x"}, nil),
	)

	tests := []struct {
		name     string
		columns  []string
		strategy NumericStrategy
		params   NumericParams
	}{
		{"no columns", nil, NumericMean, NumericParams{}},
		{"unknown column", []string{"nope"}, NumericMean, NumericParams{}},
		{"categorical column", []string{"c"}, NumericMean, NumericParams{}},
		{"constant without value", []string{"v"}, NumericConstant, NumericParams{}},
		{"non-finite constant", []string{"v"}, NumericConstant, NumericParams{Constant: floatPtr(math.Inf(1))}},
		{"knn k zero", []string{"v"}, NumericKNN, NumericParams{K: 0}},
		{"unknown strategy", []string{"v"}, "interpolate", NumericParams{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ImputeNumeric(ds, tt.columns, tt.strategy, tt.params)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}
}

func TestImputeNumeric_KNN(t *testing.T) {
	// rows 0-3 complete; row 4 misses column b. Its nearest neighbors by
	// a/c distance are rows 0 and 1.
	ds := mustDataset(t,
		dataset.NewNumericColumn("a", []float64{1, 2, 10, 11, 1.5}, nil),
		dataset.NewNumericColumn("b", []float64{100, 102, 200, 202, math.NaN()}, nil),
		dataset.NewNumericColumn("c", []float64{1, 2, 10, 11, 1.5}, nil),
	)

	out, outcome, err := ImputeNumeric(ds, []string{"a", "b", "c"}, NumericKNN, NumericParams{K: 2})
	require.NoError(t, err)

	col, _ := out.Column("b")
	assert.Equal(t, 0, col.MissingCount())
	assert.InDelta(t, 101.0, col.Floats[4], 1e-9, "average of the two nearest donors")
	assert.Equal(t, []string{"b"}, outcome.ModifiedColumns())
	assert.Contains(t, outcome.Skipped, "a", "gap-free columns are reported as skipped")
}

func TestImputeNumeric_KNNInsufficientData(t *testing.T) {
	// only one complete row: effective k = min(5, 0) <= 0
	ds := mustDataset(t,
		dataset.NewNumericColumn("a", []float64{1, math.NaN()}, nil),
		dataset.NewNumericColumn("b", []float64{2, 3}, nil),
	)

	_, _, err := ImputeNumeric(ds, []string{"a", "b"}, NumericKNN, NumericParams{K: 5})

	var ie *InsufficientDataError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, ie.CompleteRows)
	assert.Equal(t, 5, ie.RequestedK)
	assert.Contains(t, ie.Error(), "impute_numeric")
}

func TestImputeNumeric_KNNIgnoresInfiniteCells(t *testing.T) {
	ds := mustDataset(t,
		dataset.NewNumericColumn("a", []float64{1, 2, 3, math.Inf(1)}, nil),
		dataset.NewNumericColumn("b", []float64{1, 2, 3, 4}, nil),
	)
	// Inf cell participates as a gap for distance purposes but must not
	// crash and must not be overwritten.
	out, _, err := ImputeNumeric(ds, []string{"a", "b"}, NumericKNN, NumericParams{K: 2})
	require.NoError(t, err)
	col, _ := out.Column("a")
	assert.True(t, math.IsInf(col.Floats[3], 1))
}

func TestKnnImpute_EffectiveKCappedByCompleteRows(t *testing.T) {
	matrix := [][]float64{
		{1, 1},
		{2, 2},
		{3, 3},
		{math.NaN(), 2},
	}
	filled, err := knnImpute(matrix, 10)
	require.NoError(t, err, "k is capped at complete rows - 1, not rejected")
	assert.False(t, math.IsNaN(filled[3][0]))
}

func TestKnnImpute_NoDonorsFallsBackToColumnMean(t *testing.T) {
	// row 3 observes nothing, so it shares no dimension with any donor
	matrix := [][]float64{
		{1, 1},
		{3, 2},
		{5, 3},
		{math.NaN(), math.NaN()},
	}
	filled, err := knnImpute(matrix, 2)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, filled[3][0], 1e-9, "column mean of 1, 3, 5")
	assert.InDelta(t, 2.0, filled[3][1], 1e-9, "column mean of 1, 2, 3")
}

func TestErrorsAreTyped(t *testing.T) {
	var err error = &InsufficientDataError{Operation: "x", RequestedK: 3}
	var ie *InsufficientDataError
	assert.True(t, errors.As(err, &ie))

	err = &ValidationError{Operation: "x", Reason: "bad"}
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}
