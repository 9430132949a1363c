package impute

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"insightcli/internal/dataset"
)

// NumericStrategy selects the fill rule for numeric columns.
type NumericStrategy string

const (
	NumericMean     NumericStrategy = "mean"
	NumericMedian   NumericStrategy = "median"
	NumericMode     NumericStrategy = "mode"
	NumericConstant NumericStrategy = "constant"
	NumericKNN      NumericStrategy = "knn"
)

// NumericStrategies lists the supported numeric strategies.
func NumericStrategies() []NumericStrategy {
	return []NumericStrategy{NumericMean, NumericMedian, NumericMode, NumericConstant, NumericKNN}
}

// NumericParams carries strategy parameters for ImputeNumeric.
type NumericParams struct {
	// Constant is the fill value for the constant strategy.
	Constant *float64
	// K is the requested neighbor count for the knn strategy.
	K int
}

const opImputeNumeric = "impute_numeric"

// ImputeNumeric fills missing cells in the selected numeric columns and
// returns a new snapshot. Per-column statistics (mean, median, mode) are
// computed independently from each column's non-missing values; columns with
// no usable values are skipped, never an error. KNN imputes jointly over the
// selected sub-table and fails with InsufficientDataError when the complete
// rows cannot support the requested K. The input dataset is never mutated.
func ImputeNumeric(ds *dataset.Dataset, columns []string, strategy NumericStrategy, params NumericParams) (*dataset.Dataset, Outcome, error) {
	outcome := Outcome{Operation: opImputeNumeric, Strategy: string(strategy)}

	if err := validateNumericRequest(ds, columns, strategy, params); err != nil {
		return nil, outcome, err
	}

	if strategy == NumericKNN {
		return imputeNumericKNN(ds, columns, params.K, outcome)
	}

	out := ds.Clone()
	for _, name := range columns {
		col, _ := out.Column(name)
		before := col.MissingCount()
		if before == 0 {
			outcome.Skipped = append(outcome.Skipped, name)
			continue
		}

		var fill float64
		if strategy == NumericConstant {
			fill = *params.Constant
		} else {
			values := col.NonMissingFloats()
			if len(values) == 0 {
				// nothing to learn from; leave the column unchanged
				outcome.Skipped = append(outcome.Skipped, name)
				continue
			}
			fill = numericFillValue(values, strategy)
		}

		for i := range col.Missing {
			if col.Missing[i] {
				col.SetFloat(i, fill)
			}
		}
		outcome.Modified = append(outcome.Modified, ColumnDelta{Column: name, Before: before, After: col.MissingCount()})
	}
	return out, outcome, nil
}

func validateNumericRequest(ds *dataset.Dataset, columns []string, strategy NumericStrategy, params NumericParams) error {
	if len(columns) == 0 {
		return &ValidationError{Operation: opImputeNumeric, Reason: "no columns selected"}
	}
	var unknown, wrongType []string
	for _, name := range columns {
		col, ok := ds.Column(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if col.Type != dataset.Numeric {
			wrongType = append(wrongType, name)
		}
	}
	if len(unknown) > 0 {
		return &ValidationError{Operation: opImputeNumeric, Reason: "unknown columns", Columns: unknown}
	}
	if len(wrongType) > 0 {
		return &ValidationError{Operation: opImputeNumeric, Reason: "columns are not numeric", Columns: wrongType}
	}
	switch strategy {
	case NumericMean, NumericMedian, NumericMode:
	case NumericConstant:
		if params.Constant == nil {
			return &ValidationError{Operation: opImputeNumeric, Reason: "constant strategy requires a fill value"}
		}
		if math.IsNaN(*params.Constant) || math.IsInf(*params.Constant, 0) {
			return &ValidationError{Operation: opImputeNumeric, Reason: "constant fill value must be finite"}
		}
	case NumericKNN:
		if params.K < 1 {
			return &ValidationError{Operation: opImputeNumeric, Reason: "knn strategy requires k >= 1"}
		}
	default:
		return &ValidationError{Operation: opImputeNumeric, Reason: "unknown strategy " + string(strategy)}
	}
	return nil
}

// numericFillValue computes the per-column fill for mean/median/mode.
// values must be non-empty and finite.
func numericFillValue(values []float64, strategy NumericStrategy) float64 {
	switch strategy {
	case NumericMedian:
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			return sorted[mid]
		}
		return (sorted[mid-1] + sorted[mid]) / 2
	case NumericMode:
		// ties resolve to the smallest of the most frequent values
		counts := make(map[float64]int, len(values))
		best, bestCount := math.NaN(), 0
		for _, v := range values {
			counts[v]++
			if c := counts[v]; c > bestCount || (c == bestCount && v < best) {
				best, bestCount = v, c
			}
		}
		return best
	default:
		return stat.Mean(values, nil)
	}
}

// imputeNumericKNN runs joint KNN imputation over the selected sub-table.
func imputeNumericKNN(ds *dataset.Dataset, columns []string, k int, outcome Outcome) (*dataset.Dataset, Outcome, error) {
	matrix, missing := buildMatrix(ds, columns)

	filled, err := knnImpute(matrix, k)
	if err != nil {
		if ie, ok := err.(*InsufficientDataError); ok {
			ie.Operation = opImputeNumeric
			ie.Columns = columns
			ie.Fallback = "reduce k or use a simpler strategy such as mean"
		}
		return nil, outcome, err
	}

	out := ds.Clone()
	for j, name := range columns {
		col, _ := out.Column(name)
		before := col.MissingCount()
		if before == 0 {
			outcome.Skipped = append(outcome.Skipped, name)
			continue
		}
		for i := range col.Missing {
			if missing[i][j] && !math.IsNaN(filled[i][j]) {
				col.SetFloat(i, filled[i][j])
			}
		}
		after := col.MissingCount()
		if after == before {
			// all-missing column: no neighbor had a value to offer
			outcome.Skipped = append(outcome.Skipped, name)
			continue
		}
		outcome.Modified = append(outcome.Modified, ColumnDelta{Column: name, Before: before, After: after})
	}
	return out, outcome, nil
}

// buildMatrix extracts the selected columns into a row-major matrix with NaN
// marking missing or non-finite cells, plus the original missing mask.
func buildMatrix(ds *dataset.Dataset, columns []string) (matrix [][]float64, missing [][]bool) {
	rows := ds.Rows()
	matrix = make([][]float64, rows)
	missing = make([][]bool, rows)
	for i := 0; i < rows; i++ {
		matrix[i] = make([]float64, len(columns))
		missing[i] = make([]bool, len(columns))
	}
	for j, name := range columns {
		col, _ := ds.Column(name)
		for i := 0; i < rows; i++ {
			if col.Missing[i] || math.IsInf(col.Floats[i], 0) {
				matrix[i][j] = math.NaN()
				missing[i][j] = col.Missing[i]
				continue
			}
			matrix[i][j] = col.Floats[i]
		}
	}
	return matrix, missing
}
