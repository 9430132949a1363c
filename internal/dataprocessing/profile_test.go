package dataprocessing

import (
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

func TestProfile(t *testing.T) {
	ds := mustDataset(t,
		dataset.NewNumericColumn("age", []float64{25, 0, 31, 40}, []bool{false, true, false, false}),
		dataset.NewCategoricalColumn("city", []string{"NY", "LA", "", "NY"}, []bool{false, false, true, false}),
		dataset.NewNumericColumn("salary", []float64{1, 2, 3, 4}, nil),
	)

	report := Profile(ds)

	require.Len(t, report.Columns, 2, "complete columns must be excluded")
	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, "age", report.Columns[0].Column)
	assert.Equal(t, 1, report.Columns[0].MissingCount)
	assert.InDelta(t, 25.0, report.Columns[0].MissingPercent, 1e-9)
	assert.Equal(t, "city", report.Columns[1].Column)
	assert.InDelta(t, 25.0, report.Columns[1].MissingPercent, 1e-9)
}

func TestProfile_EmptyDataset(t *testing.T) {
	ds := mustDataset(t)
	report := Profile(ds)
	assert.Equal(t, 0, report.Rows)
	assert.Empty(t, report.Columns)
}

func TestProfile_ZeroRows(t *testing.T) {
	ds := mustDataset(t, dataset.NewNumericColumn("a", []float64{}, nil))
	report := Profile(ds)
	assert.Empty(t, report.Columns, "percentage is undefined at zero rows")
}

func TestClassify(t *testing.T) {
	ds := mustDataset(t,
		dataset.NewNumericColumn("age", []float64{1, 2}, nil),
		dataset.NewCategoricalColumn("city", []string{"NY", "LA"}, nil),
		// all-missing column keeps its declared type
		dataset.NewCategoricalColumn("notes", []string{"", ""}, []bool{true, true}),
	)

	classes := Classify(ds)

	assert.Equal(t, []string{"age"}, classes.Numeric)
	assert.Equal(t, []string{"city", "notes"}, classes.Categorical)
	assert.Empty(t, classes.Warnings)
}

func TestMissingFraction(t *testing.T) {
	ds := mustDataset(t,
		dataset.NewNumericColumn("a", []float64{1, 0, 0, 4}, []bool{false, true, true, false}),
	)
	assert.InDelta(t, 0.5, MissingFraction(ds, "a"), 1e-9)
	assert.Zero(t, MissingFraction(ds, "missing-col"))
}
