package dataprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"insightcli/internal/dataset"
)

// CorrelationMethod selects the correlation kernel used by Correlate.
type CorrelationMethod string

const (
	Pearson  CorrelationMethod = "pearson"
	Spearman CorrelationMethod = "spearman"
	Kendall  CorrelationMethod = "kendall"
)

// Valid reports whether m is a supported correlation method.
func (m CorrelationMethod) Valid() bool {
	return m == Pearson || m == Spearman || m == Kendall
}

// ColumnStats holds describe-style summary statistics for one numeric
// column. All statistics except Count are NaN when Count is zero; Std is NaN
// when Count is one.
type ColumnStats struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Describe computes summary statistics for every numeric column, in dataset
// order. Quantiles linearly interpolate between the two closest data points.
func Describe(ds *dataset.Dataset) []ColumnStats {
	var out []ColumnStats
	for _, c := range ds.Columns() {
		if c.Type != dataset.Numeric {
			continue
		}
		values := c.NonMissingFloats()
		cs := ColumnStats{Column: c.Name, Count: len(values)}
		if len(values) == 0 {
			cs.Mean, cs.Std, cs.Min, cs.Q25, cs.Median, cs.Q75, cs.Max =
				math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
			out = append(out, cs)
			continue
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		cs.Mean = stat.Mean(values, nil)
		cs.Std = stat.StdDev(values, nil)
		cs.Min = floats.Min(sorted)
		cs.Max = floats.Max(sorted)
		cs.Q25 = quantile(sorted, 0.25)
		cs.Median = quantile(sorted, 0.5)
		cs.Q75 = quantile(sorted, 0.75)
		out = append(out, cs)
	}
	return out
}

// quantile interpolates linearly at rank p*(n-1) over a sorted sample, so
// the median of an even-sized sample is the midpoint of the two middle
// values.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// CorrelationMatrix is a symmetric matrix over the numeric columns of a
// snapshot. Values[i][j] is NaN when fewer than two pairwise-complete
// observations exist for the pair.
type CorrelationMatrix struct {
	Method  CorrelationMethod
	Columns []string
	Values  [][]float64
}

// Correlate computes a pairwise-complete correlation matrix over the numeric
// columns. Rows missing in either column of a pair are excluded for that
// pair only. The diagonal is 1 whenever the column has at least one present
// value.
func Correlate(ds *dataset.Dataset, method CorrelationMethod) (CorrelationMatrix, error) {
	if !method.Valid() {
		return CorrelationMatrix{}, fmt.Errorf("unsupported correlation method %q", method)
	}
	var cols []*dataset.Column
	for _, c := range ds.Columns() {
		if c.Type == dataset.Numeric {
			cols = append(cols, c)
		}
	}
	m := CorrelationMatrix{Method: method, Columns: make([]string, len(cols))}
	m.Values = make([][]float64, len(cols))
	for i, c := range cols {
		m.Columns[i] = c.Name
		m.Values[i] = make([]float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			var r float64
			if i == j {
				if presentCount(cols[i]) > 0 {
					r = 1
				} else {
					r = math.NaN()
				}
			} else {
				r = pairCorrelation(cols[i], cols[j], method)
			}
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

func presentCount(c *dataset.Column) int {
	return c.Len() - c.MissingCount()
}

// pairCorrelation computes the correlation of two columns over rows present
// in both. Non-finite cells are excluded the same way missing ones are.
func pairCorrelation(a, b *dataset.Column, method CorrelationMethod) float64 {
	var x, y []float64
	for i := 0; i < a.Len(); i++ {
		if a.Missing[i] || b.Missing[i] {
			continue
		}
		if math.IsInf(a.Floats[i], 0) || math.IsInf(b.Floats[i], 0) {
			continue
		}
		x = append(x, a.Floats[i])
		y = append(y, b.Floats[i])
	}
	if len(x) < 2 {
		return math.NaN()
	}
	switch method {
	case Spearman:
		return stat.Correlation(rank(x), rank(y), nil)
	case Kendall:
		return stat.Kendall(x, y, nil)
	default:
		return stat.Correlation(x, y, nil)
	}
}

// rank converts values to fractional ranks, averaging ties.
func rank(x []float64) []float64 {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	ranks := make([]float64, len(x))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && x[idx[j+1]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// ValueCount is one (value, count) pair of a categorical distribution.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCountsResult holds the distribution of a categorical column.
type ValueCountsResult struct {
	Column string       `json:"column"`
	Unique int          `json:"unique"`
	Counts []ValueCount `json:"counts"`
	// Other holds the rolled-up count of values truncated by topN.
	Other int `json:"other,omitempty"`
}

// ValueCounts returns the distribution of a categorical column ordered by
// count descending, ties broken by first-encountered row order. Missing
// cells are excluded. A positive topN truncates the list and rolls the
// remainder into Other.
func ValueCounts(ds *dataset.Dataset, column string, topN int) (ValueCountsResult, error) {
	c, ok := ds.Column(column)
	if !ok {
		return ValueCountsResult{}, fmt.Errorf("column %q not found", column)
	}
	if c.Type != dataset.Categorical {
		return ValueCountsResult{}, fmt.Errorf("column %q is not categorical", column)
	}

	counts := make(map[string]int)
	var order []string
	for i, v := range c.Strings {
		if c.Missing[i] {
			continue
		}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}

	result := ValueCountsResult{Column: column, Unique: len(order)}
	result.Counts = make([]ValueCount, 0, len(order))
	for _, v := range order {
		result.Counts = append(result.Counts, ValueCount{Value: v, Count: counts[v]})
	}
	sort.SliceStable(result.Counts, func(i, j int) bool {
		return result.Counts[i].Count > result.Counts[j].Count
	})

	if topN > 0 && len(result.Counts) > topN {
		for _, vc := range result.Counts[topN:] {
			result.Other += vc.Count
		}
		result.Counts = result.Counts[:topN]
	}
	return result, nil
}

// ColumnDtype describes one column's declared type and cardinality.
type ColumnDtype struct {
	Column      string       `json:"column"`
	Type        dataset.Type `json:"type"`
	NonNull     int          `json:"non_null"`
	UniqueCount int          `json:"unique_count"`
}

// DtypeSummary returns per-column type, non-null count and distinct
// non-missing value count, in dataset order.
func DtypeSummary(ds *dataset.Dataset) []ColumnDtype {
	out := make([]ColumnDtype, 0, ds.NumColumns())
	for _, c := range ds.Columns() {
		d := ColumnDtype{Column: c.Name, Type: c.Type, NonNull: presentCount(c)}
		switch c.Type {
		case dataset.Numeric:
			seen := make(map[float64]bool)
			for i, v := range c.Floats {
				if !c.Missing[i] {
					seen[v] = true
				}
			}
			d.UniqueCount = len(seen)
		case dataset.Categorical:
			seen := make(map[string]bool)
			for i, v := range c.Strings {
				if !c.Missing[i] {
					seen[v] = true
				}
			}
			d.UniqueCount = len(seen)
		}
		out = append(out, d)
	}
	return out
}

// DatasetMetrics summarizes a snapshot's shape and missingness.
type DatasetMetrics struct {
	Rows           int     `json:"rows"`
	Columns        int     `json:"columns"`
	MissingCells   int     `json:"missing_cells"`
	MissingPercent float64 `json:"missing_percent"`
	EstimatedBytes int64   `json:"estimated_bytes"`
}

// Metrics computes the headline dataset metrics for a snapshot.
func Metrics(ds *dataset.Dataset) DatasetMetrics {
	m := DatasetMetrics{
		Rows:           ds.Rows(),
		Columns:        ds.NumColumns(),
		MissingCells:   ds.TotalMissing(),
		EstimatedBytes: ds.EstimatedBytes(),
	}
	if cells := m.Rows * m.Columns; cells > 0 {
		m.MissingPercent = float64(m.MissingCells) / float64(cells) * 100
	}
	return m
}
