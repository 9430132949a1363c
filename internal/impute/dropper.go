package impute

import (
	"insightcli/internal/dataset"
)

// DropCandidate is a column whose missing percentage exceeds the threshold.
type DropCandidate struct {
	Column         string  `json:"column"`
	MissingCount   int     `json:"missing_count"`
	MissingPercent float64 `json:"missing_percent"`
}

const opDropColumns = "drop_columns"

// DropByThreshold identifies columns whose missing fraction is strictly
// greater than fraction. Identification never mutates the dataset; dropping
// happens only through an explicit ApplyDrop call (two-step confirm).
func DropByThreshold(ds *dataset.Dataset, fraction float64) ([]DropCandidate, error) {
	if fraction < 0 || fraction > 1 {
		return nil, &ValidationError{Operation: opDropColumns, Reason: "threshold fraction must be in [0, 1]"}
	}
	rows := ds.Rows()
	if rows == 0 {
		return nil, nil
	}
	var out []DropCandidate
	for _, c := range ds.Columns() {
		missing := c.MissingCount()
		if float64(missing)/float64(rows) > fraction {
			out = append(out, DropCandidate{
				Column:         c.Name,
				MissingCount:   missing,
				MissingPercent: float64(missing) / float64(rows) * 100,
			})
		}
	}
	return out, nil
}

// ApplyDrop removes the named columns and returns the new snapshot. Names
// not present are reported as skipped, never fatal. Row count is unchanged.
func ApplyDrop(ds *dataset.Dataset, names []string) (*dataset.Dataset, Outcome, error) {
	outcome := Outcome{Operation: opDropColumns}
	if len(names) == 0 {
		return nil, outcome, &ValidationError{Operation: opDropColumns, Reason: "no columns selected"}
	}
	out, removed := ds.Drop(names...)
	outcome.Dropped = removed
	dropped := make(map[string]bool, len(removed))
	for _, n := range removed {
		dropped[n] = true
	}
	for _, n := range names {
		if !dropped[n] {
			outcome.Skipped = append(outcome.Skipped, n)
		}
	}
	return out, outcome, nil
}
