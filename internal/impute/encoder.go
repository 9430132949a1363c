package impute

import (
	"math"

	"insightcli/internal/dataset"
)

// EncodingMap is a bijection between a column's observed non-missing values
// and contiguous integer codes [0, k-1]. Maps are built fresh for each
// imputation invocation and never persisted: columns may gain new categories
// between runs.
type EncodingMap struct {
	classes []string
	index   map[string]int
}

func newEncodingMap() *EncodingMap {
	return &EncodingMap{index: make(map[string]int)}
}

func (m *EncodingMap) add(v string) int {
	if code, ok := m.index[v]; ok {
		return code
	}
	code := len(m.classes)
	m.classes = append(m.classes, v)
	m.index[v] = code
	return code
}

// Size returns the number of known categories.
func (m *EncodingMap) Size() int {
	return len(m.classes)
}

// Code returns the integer code for a value present in the map.
func (m *EncodingMap) Code(v string) (int, bool) {
	code, ok := m.index[v]
	return code, ok
}

// Decode snaps a continuous code estimate to the nearest valid category:
// round half away from zero, then clamp into [0, k-1]. This is deliberately
// a nearest-valid-category heuristic, not exact recovery — KNN produces
// continuous code estimates and the snap is lossy when categories are
// numerous or codes land far from integers.
func (m *EncodingMap) Decode(code float64) (string, error) {
	if m.Size() == 0 {
		return "", &DecodingError{Code: code}
	}
	i := int(math.Round(code))
	if i < 0 {
		i = 0
	}
	if i > m.Size()-1 {
		i = m.Size() - 1
	}
	return m.classes[i], nil
}

// EncodedTable is the numeric image of a set of categorical columns:
// column-major, aligned with Columns, missing cells carried as NaN so the
// numeric KNN imputer treats them as gaps.
type EncodedTable struct {
	Columns []string
	Rows    int
	Data    [][]float64
}

// Encode fits one encoding map per selected categorical column from its
// non-missing values, in first-encountered row order, and produces the
// numeric table. A column with zero non-missing values yields an all-NaN
// column and no map entry; decoding such a column is a passthrough.
func Encode(ds *dataset.Dataset, columns []string) (*EncodedTable, map[string]*EncodingMap, error) {
	table := &EncodedTable{Columns: columns, Rows: ds.Rows()}
	table.Data = make([][]float64, len(columns))
	maps := make(map[string]*EncodingMap, len(columns))

	for j, name := range columns {
		col, ok := ds.Column(name)
		if !ok {
			return nil, nil, &ValidationError{Operation: "encode", Reason: "unknown columns", Columns: []string{name}}
		}
		if col.Type != dataset.Categorical {
			return nil, nil, &ValidationError{Operation: "encode", Reason: "columns are not categorical", Columns: []string{name}}
		}

		data := make([]float64, ds.Rows())
		m := newEncodingMap()
		for i := 0; i < col.Len(); i++ {
			if col.Missing[i] {
				data[i] = math.NaN()
				continue
			}
			data[i] = float64(m.add(col.Strings[i]))
		}
		table.Data[j] = data
		if m.Size() > 0 {
			maps[name] = m
		}
	}
	return table, maps, nil
}

// DecodeColumn maps one encoded column back to strings using its map.
// Cells still NaN stay missing. Columns without a map must not be passed
// here; callers treat them as passthrough.
func DecodeColumn(data []float64, m *EncodingMap) ([]string, []bool, error) {
	values := make([]string, len(data))
	missing := make([]bool, len(data))
	for i, code := range data {
		if math.IsNaN(code) {
			missing[i] = true
			continue
		}
		v, err := m.Decode(code)
		if err != nil {
			return nil, nil, err
		}
		values[i] = v
	}
	return values, missing, nil
}
