package dataprocessing

import (
	"fmt"

	"insightcli/internal/dataset"
)

// ColumnMissingness is one row of a missingness report.
type ColumnMissingness struct {
	Column         string  `json:"column"`
	MissingCount   int     `json:"missing_count"`
	MissingPercent float64 `json:"missing_percent"`
}

// MissingnessReport lists the columns that currently have absent cells, in
// dataset column order.
type MissingnessReport struct {
	Rows    int                 `json:"rows"`
	Columns []ColumnMissingness `json:"columns"`
}

// Profile computes per-column missing counts and percentages for the given
// snapshot. Columns without missing cells are excluded. A dataset with zero
// rows or zero columns produces an empty report; the percentage would be
// undefined at zero rows so no column qualifies.
func Profile(ds *dataset.Dataset) MissingnessReport {
	report := MissingnessReport{Rows: ds.Rows()}
	if ds.Rows() == 0 {
		return report
	}
	for _, c := range ds.Columns() {
		missing := c.MissingCount()
		if missing == 0 {
			continue
		}
		report.Columns = append(report.Columns, ColumnMissingness{
			Column:         c.Name,
			MissingCount:   missing,
			MissingPercent: float64(missing) / float64(ds.Rows()) * 100,
		})
	}
	return report
}

// MissingFraction returns the missing fraction [0,1] for a single column, or
// 0 for a zero-row dataset.
func MissingFraction(ds *dataset.Dataset, name string) float64 {
	c, ok := ds.Column(name)
	if !ok || ds.Rows() == 0 {
		return 0
	}
	return float64(c.MissingCount()) / float64(ds.Rows())
}

// Classification partitions column names by their declared semantic type.
type Classification struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Classify partitions the dataset's columns into numeric and categorical
// sets using the declared column type only. An all-missing or zero-row
// column keeps its declared type. A categorical column whose backing storage
// cannot hold strings is excluded with a warning; with the typed column
// model this is a defensive path that should not trigger.
func Classify(ds *dataset.Dataset) Classification {
	var out Classification
	for _, c := range ds.Columns() {
		switch c.Type {
		case dataset.Numeric:
			out.Numeric = append(out.Numeric, c.Name)
		case dataset.Categorical:
			if c.Strings == nil && c.Len() > 0 {
				out.Warnings = append(out.Warnings,
					fmt.Sprintf("column %q has no string representation and was excluded from categorical processing", c.Name))
				continue
			}
			out.Categorical = append(out.Categorical, c.Name)
		}
	}
	return out
}
