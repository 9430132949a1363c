package impute

import (
	"math"
	"sort"
)

// knnImpute fills the NaN cells of a row-major matrix using K-nearest
// neighbors. Neighbor distance is NaN-euclidean: computed over the
// dimensions observed in both rows and scaled by sqrt(total/observed) so
// rows with few shared dimensions are not artificially close. The effective
// K is min(k, complete rows - 1); when that is not positive the function
// returns InsufficientDataError instead of running with a degenerate
// neighbor count. Cells whose column has no observed value anywhere remain
// NaN. The input matrix is not modified.
func knnImpute(matrix [][]float64, k int) ([][]float64, error) {
	rows := len(matrix)
	complete := 0
	for _, row := range matrix {
		if rowComplete(row) {
			complete++
		}
	}
	effK := k
	if complete-1 < effK {
		effK = complete - 1
	}
	if effK <= 0 {
		return nil, &InsufficientDataError{CompleteRows: complete, RequestedK: k}
	}

	out := make([][]float64, rows)
	for i, row := range matrix {
		out[i] = append([]float64(nil), row...)
	}

	for i, row := range matrix {
		for j, v := range row {
			if !math.IsNaN(v) {
				continue
			}
			out[i][j] = estimateCell(matrix, i, j, effK)
		}
	}
	return out, nil
}

func rowComplete(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

type neighbor struct {
	dist  float64
	value float64
}

// estimateCell averages the target column over the k nearest donor rows.
// Donors must have the target dimension observed and share at least one
// observed dimension with the query row. With no usable donor the column
// mean of observed values is used; NaN if the column is entirely missing.
func estimateCell(matrix [][]float64, row, col, k int) float64 {
	var candidates []neighbor
	for r, other := range matrix {
		if r == row || math.IsNaN(other[col]) {
			continue
		}
		d, ok := nanEuclidean(matrix[row], other)
		if !ok {
			continue
		}
		candidates = append(candidates, neighbor{dist: d, value: other[col]})
	}
	if len(candidates) == 0 {
		return columnMean(matrix, col)
	}
	sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].dist < candidates[b].dist })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	sum := 0.0
	for _, n := range candidates {
		sum += n.value
	}
	return sum / float64(len(candidates))
}

// nanEuclidean returns the distance over mutually observed dimensions,
// scaled to the full dimensionality. ok is false when the rows share no
// observed dimension.
func nanEuclidean(a, b []float64) (float64, bool) {
	total := len(a)
	observed := 0
	sum := 0.0
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		diff := a[i] - b[i]
		sum += diff * diff
		observed++
	}
	if observed == 0 {
		return 0, false
	}
	return math.Sqrt(sum * float64(total) / float64(observed)), true
}

func columnMean(matrix [][]float64, col int) float64 {
	sum := 0.0
	n := 0
	for _, row := range matrix {
		if math.IsNaN(row[col]) {
			continue
		}
		sum += row[col]
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
