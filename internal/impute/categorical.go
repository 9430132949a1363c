package impute

import (
	"fmt"

	"insightcli/internal/dataset"
)

// CategoricalStrategy selects the fill rule for categorical columns.
type CategoricalStrategy string

const (
	CategoricalMode     CategoricalStrategy = "mode"
	CategoricalConstant CategoricalStrategy = "constant"
	CategoricalUnknown  CategoricalStrategy = "unknown_marker"
	CategoricalKNN      CategoricalStrategy = "knn"
)

// DefaultUnknownMarker is the sentinel used by the unknown_marker strategy
// when no marker is configured.
const DefaultUnknownMarker = "Unknown"

// Capabilities gates optional strategies. A runtime without the categorical
// KNN capability simply does not advertise or accept that strategy.
type Capabilities struct {
	CategoricalKNN bool
}

// CategoricalStrategies lists the strategies available under the given
// capabilities.
func (c Capabilities) CategoricalStrategies() []CategoricalStrategy {
	out := []CategoricalStrategy{CategoricalMode, CategoricalConstant, CategoricalUnknown}
	if c.CategoricalKNN {
		out = append(out, CategoricalKNN)
	}
	return out
}

// CategoricalParams carries strategy parameters for ImputeCategorical.
type CategoricalParams struct {
	// FillValue is the user-supplied string for the constant strategy.
	FillValue string
	// FillValueSet distinguishes an intentional empty-string fill from an
	// absent parameter.
	FillValueSet bool
	// K is the requested neighbor count for the knn strategy.
	K int
	// UnknownMarker overrides DefaultUnknownMarker when non-empty.
	UnknownMarker string
}

const opImputeCategorical = "impute_categorical"

// ErrAllColumnsFailed reports that KNN failed for every selected column; the
// orchestrator reacts by applying pure mode imputation to all of them.
var ErrAllColumnsFailed = fmt.Errorf("%s: knn failed for all selected columns", opImputeCategorical)

// ImputeCategorical fills missing cells in the selected categorical columns
// and returns a new snapshot. Mode fills per column with the most frequent
// value (ties break to the first encountered in row order); columns with no
// non-missing values are skipped with a note, never an error. KNN encodes
// the columns (label encoding), runs the numeric KNN imputer on the encoded
// table and decodes the estimates back; any per-column failure falls back to
// mode over that column's original values, and only an all-columns failure
// surfaces as ErrAllColumnsFailed. The input dataset is never mutated.
func ImputeCategorical(ds *dataset.Dataset, columns []string, strategy CategoricalStrategy, params CategoricalParams) (*dataset.Dataset, Outcome, error) {
	outcome := Outcome{Operation: opImputeCategorical, Strategy: string(strategy)}

	if err := validateCategoricalRequest(ds, columns, strategy, params); err != nil {
		return nil, outcome, err
	}

	if strategy == CategoricalKNN {
		return imputeCategoricalKNN(ds, columns, params, outcome)
	}

	out := ds.Clone()
	for _, name := range columns {
		col, _ := out.Column(name)
		before := col.MissingCount()
		if before == 0 {
			outcome.Skipped = append(outcome.Skipped, name)
			continue
		}

		var fill string
		switch strategy {
		case CategoricalConstant:
			fill = params.FillValue
		case CategoricalUnknown:
			fill = params.UnknownMarker
			if fill == "" {
				fill = DefaultUnknownMarker
			}
		default:
			mode, ok := categoricalMode(col)
			if !ok {
				outcome.Skipped = append(outcome.Skipped, name)
				outcome.Warnings = append(outcome.Warnings,
					fmt.Sprintf("column %q has no non-missing values; mode unavailable", name))
				continue
			}
			fill = mode
		}

		for i := range col.Missing {
			if col.Missing[i] {
				col.SetString(i, fill)
			}
		}
		outcome.Modified = append(outcome.Modified, ColumnDelta{Column: name, Before: before, After: col.MissingCount()})
	}
	return out, outcome, nil
}

func validateCategoricalRequest(ds *dataset.Dataset, columns []string, strategy CategoricalStrategy, params CategoricalParams) error {
	if len(columns) == 0 {
		return &ValidationError{Operation: opImputeCategorical, Reason: "no columns selected"}
	}
	var unknown, wrongType []string
	for _, name := range columns {
		col, ok := ds.Column(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if col.Type != dataset.Categorical {
			wrongType = append(wrongType, name)
		}
	}
	if len(unknown) > 0 {
		return &ValidationError{Operation: opImputeCategorical, Reason: "unknown columns", Columns: unknown}
	}
	if len(wrongType) > 0 {
		return &ValidationError{Operation: opImputeCategorical, Reason: "columns are not categorical", Columns: wrongType}
	}
	switch strategy {
	case CategoricalMode, CategoricalUnknown:
	case CategoricalConstant:
		if !params.FillValueSet {
			return &ValidationError{Operation: opImputeCategorical, Reason: "constant strategy requires a fill value"}
		}
	case CategoricalKNN:
		if params.K < 1 {
			return &ValidationError{Operation: opImputeCategorical, Reason: "knn strategy requires k >= 1"}
		}
	default:
		return &ValidationError{Operation: opImputeCategorical, Reason: "unknown strategy " + string(strategy)}
	}
	return nil
}

// categoricalMode returns the most frequent non-missing value, ties broken
// by first-encountered row order.
func categoricalMode(col *dataset.Column) (string, bool) {
	counts := make(map[string]int)
	var order []string
	for i, v := range col.Strings {
		if col.Missing[i] {
			continue
		}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	best, bestCount := "", 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best, bestCount > 0
}

// imputeCategoricalKNN runs the encode → numeric KNN → decode pipeline.
func imputeCategoricalKNN(ds *dataset.Dataset, columns []string, params CategoricalParams, outcome Outcome) (*dataset.Dataset, Outcome, error) {
	// KNN needs at least k+1 rows complete across the target columns;
	// below that the whole strategy degrades to mode with a warning.
	complete := completeRows(ds, columns)
	if complete < params.K+1 {
		outcome.Warnings = append(outcome.Warnings,
			(&InsufficientDataError{
				Operation:    opImputeCategorical,
				Columns:      columns,
				CompleteRows: complete,
				RequestedK:   params.K,
				Fallback:     "used mode instead",
			}).Error())
		out, modeOutcome, err := ImputeCategorical(ds, columns, CategoricalMode, CategoricalParams{})
		if err != nil {
			return nil, outcome, err
		}
		outcome.Modified = modeOutcome.Modified
		outcome.Skipped = modeOutcome.Skipped
		outcome.Warnings = append(outcome.Warnings, modeOutcome.Warnings...)
		return out, outcome, nil
	}

	table, maps, err := Encode(ds, columns)
	if err != nil {
		return nil, outcome, err
	}

	// Column-major to row-major for the KNN kernel.
	matrix := make([][]float64, table.Rows)
	for i := 0; i < table.Rows; i++ {
		matrix[i] = make([]float64, len(columns))
		for j := range columns {
			matrix[i][j] = table.Data[j][i]
		}
	}

	filled, knnErr := knnImpute(matrix, params.K)

	out := ds.Clone()
	failed := 0
	for j, name := range columns {
		col, _ := out.Column(name)
		before := col.MissingCount()
		if before == 0 {
			outcome.Skipped = append(outcome.Skipped, name)
			continue
		}
		m, hasMap := maps[name]
		if !hasMap {
			// zero learnable values: EncodingError downgraded to a skip
			outcome.Skipped = append(outcome.Skipped, name)
			outcome.Warnings = append(outcome.Warnings, (&EncodingError{Column: name}).Error())
			continue
		}
		if knnErr != nil {
			if !fallbackToMode(col, name, &outcome, "knn unavailable") {
				failed++
			}
			continue
		}

		codes := make([]float64, len(filled))
		for i := range filled {
			codes[i] = filled[i][j]
		}
		values, stillMissing, decErr := DecodeColumn(codes, m)
		if decErr != nil {
			// decode anomaly: per-column fallback to mode over the
			// original pre-attempt values
			if !fallbackToMode(col, name, &outcome, decErr.Error()) {
				failed++
			}
			continue
		}
		for i := range col.Missing {
			if col.Missing[i] && !stillMissing[i] {
				col.SetString(i, values[i])
			}
		}
		outcome.Modified = append(outcome.Modified, ColumnDelta{Column: name, Before: before, After: col.MissingCount()})
	}

	if knnErr != nil && !outcome.Changed() {
		return nil, outcome, ErrAllColumnsFailed
	}
	if failed > 0 && !outcome.Changed() {
		return nil, outcome, ErrAllColumnsFailed
	}
	return out, outcome, nil
}

// fallbackToMode mode-imputes a single column in place using its original
// values. Returns false when the column has no values to fall back on.
func fallbackToMode(col *dataset.Column, name string, outcome *Outcome, reason string) bool {
	before := col.MissingCount()
	mode, ok := categoricalMode(col)
	if !ok {
		outcome.Skipped = append(outcome.Skipped, name)
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("column %q: %s and no values for mode fallback", name, reason))
		return false
	}
	for i := range col.Missing {
		if col.Missing[i] {
			col.SetString(i, mode)
		}
	}
	outcome.Modified = append(outcome.Modified, ColumnDelta{Column: name, Before: before, After: col.MissingCount()})
	outcome.Warnings = append(outcome.Warnings,
		fmt.Sprintf("column %q: %s; fell back to mode", name, reason))
	return true
}

// completeRows counts rows with no missing cell across the given columns.
func completeRows(ds *dataset.Dataset, columns []string) int {
	rows := ds.Rows()
	n := 0
	for i := 0; i < rows; i++ {
		ok := true
		for _, name := range columns {
			col, exists := ds.Column(name)
			if !exists || col.Missing[i] {
				ok = false
				break
			}
		}
		if ok {
			n++
		}
	}
	return n
}
