package impute

import (
	"fmt"
	"strings"
)

// ColumnDelta records the missing-cell count of one column before and after
// an operation.
type ColumnDelta struct {
	Column string `json:"column"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// Outcome describes what an operation actually did. Strategies that no-op
// (no missing values, no eligible columns) report empty Modified and a note
// instead of claiming success.
type Outcome struct {
	Operation string        `json:"operation"`
	Strategy  string        `json:"strategy,omitempty"`
	Modified  []ColumnDelta `json:"modified,omitempty"`
	Dropped   []string      `json:"dropped,omitempty"`
	Skipped   []string      `json:"skipped,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
}

// Changed reports whether any column was actually modified or dropped.
func (o Outcome) Changed() bool {
	return len(o.Modified) > 0 || len(o.Dropped) > 0
}

// ModifiedColumns returns the names of the modified columns in order.
func (o Outcome) ModifiedColumns() []string {
	names := make([]string, len(o.Modified))
	for i, d := range o.Modified {
		names[i] = d.Column
	}
	return names
}

// CellsFilled returns the total number of cells filled by the operation.
func (o Outcome) CellsFilled() int {
	n := 0
	for _, d := range o.Modified {
		n += d.Before - d.After
	}
	return n
}

// LogLine renders the outcome as one human-readable history entry.
func (o Outcome) LogLine() string {
	var b strings.Builder
	if o.Strategy != "" {
		fmt.Fprintf(&b, "%s (%s): ", o.Operation, o.Strategy)
	} else {
		fmt.Fprintf(&b, "%s: ", o.Operation)
	}
	switch {
	case len(o.Dropped) > 0:
		fmt.Fprintf(&b, "dropped %d column(s) [%s]", len(o.Dropped), strings.Join(o.Dropped, ", "))
	case len(o.Modified) > 0:
		fmt.Fprintf(&b, "filled %d cell(s) in %d column(s) [%s]",
			o.CellsFilled(), len(o.Modified), strings.Join(o.ModifiedColumns(), ", "))
	default:
		b.WriteString("no columns modified")
	}
	if len(o.Skipped) > 0 {
		fmt.Fprintf(&b, "; skipped [%s]", strings.Join(o.Skipped, ", "))
	}
	if len(o.Warnings) > 0 {
		fmt.Fprintf(&b, "; warnings: %s", strings.Join(o.Warnings, "; "))
	}
	return b.String()
}
